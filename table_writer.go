package phmap

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	pherrors "github.com/tamirms/phmap/errors"
	"github.com/tamirms/phmap/internal/displace"
)

// WriteTable builds a perfect-hash table over byte-string keys with uint64
// payloads and serializes it to path. The resulting file is opened read-only
// with Open or OpenBytes.
//
// Keys are hashed with seeded xxHash3 (the same hash Open uses for queries).
// Construction errors are the same as NewMap's: DuplicateKeyError[[]byte] on
// equal keys, ConstructionError on retry exhaustion. Individual keys longer
// than 4 GiB fail with ErrKeyTooLong; a key set whose total key bytes exceed
// 4 GiB fails with ErrRegionOverflow.
func WriteTable(ctx context.Context, path string, entries []Entry[[]byte, uint64], opts ...Option) error {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var keyBytes uint64
	for i := range entries {
		if uint64(len(entries[i].Key)) > math.MaxUint32 {
			return fmt.Errorf("%w: entry %d is %d bytes", pherrors.ErrKeyTooLong, i, len(entries[i].Key))
		}
		keyBytes += uint64(len(entries[i].Key))
	}
	// Strictly below MaxUint32 so no key offset can equal the empty-slot
	// sentinel.
	if keyBytes >= math.MaxUint32 {
		return fmt.Errorf("%w: %d key bytes total", pherrors.ErrRegionOverflow, keyBytes)
	}

	src := &entrySource[[]byte, uint64]{
		ctx:     ctx,
		hasher:  BytesHasher{},
		entries: entries,
		workers: cfg.workers,
	}
	table, err := displace.Build(ctx, src, cfg.displace)
	if err != nil {
		return wrapBuildError(err, func(i int) []byte { return entries[i].Key })
	}

	buf := encodeTable(table, entries, keyBytes)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table file: %w", err)
	}
	if _, err := file.Write(buf); err != nil {
		return errors.Join(fmt.Errorf("write table file: %w", err), file.Close())
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close table file: %w", err)
	}
	return nil
}

// encodeTable serializes a solved table plus its entries into the file
// format described in header.go.
func encodeTable(table *displace.Table, entries []Entry[[]byte, uint64], keyBytes uint64) []byte {
	numBuckets := table.NumBuckets()
	tableSize := table.NumSlots()

	seedsOff := uint64(headerSize)
	slotsOff := seedsOff + uint64(numBuckets)*seedEntrySize
	keysOff := slotsOff + uint64(tableSize)*slotEntrySize
	footerOff := keysOff + keyBytes
	totalSize := footerOff + footerSize

	buf := make([]byte, totalSize)

	hdr := header{
		Magic:         magic,
		Version:       version,
		NumKeys:       uint64(len(entries)),
		NumBuckets:    numBuckets,
		TableSize:     tableSize,
		GlobalSeed:    table.Seed(),
		KeyRegionSize: keyBytes,
		MaxSeed:       table.MaxSeed(),
		Retries:       uint32(table.Retries()),
	}
	hdr.encodeTo(buf[:headerSize])

	for i, seed := range table.Seeds() {
		binary.LittleEndian.PutUint16(buf[seedsOff+uint64(i)*seedEntrySize:], seed)
	}

	// Key bytes are laid down in slot order so the directory's offsets are
	// monotonically increasing across occupied slots.
	keyCursor := keysOff
	for s := uint32(0); s < tableSize; s++ {
		entryBuf := buf[slotsOff+uint64(s)*slotEntrySize:]
		idx := table.EntryAt(s)
		if idx < 0 {
			binary.LittleEndian.PutUint32(entryBuf[0:4], emptySlotOffset)
			continue
		}
		e := &entries[idx]
		binary.LittleEndian.PutUint32(entryBuf[0:4], uint32(keyCursor-keysOff))
		binary.LittleEndian.PutUint32(entryBuf[4:8], uint32(len(e.Key)))
		binary.LittleEndian.PutUint64(entryBuf[8:16], e.Value)
		copy(buf[keyCursor:], e.Key)
		keyCursor += uint64(len(e.Key))
	}

	ftr := footer{
		Checksum: xxhash.Sum64(buf[:footerOff]),
		FileSize: totalSize,
		Magic:    magic,
		Version:  version,
	}
	ftr.encodeTo(buf[footerOff:])

	return buf
}
