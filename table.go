package phmap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	pherrors "github.com/tamirms/phmap/errors"
	intbits "github.com/tamirms/phmap/internal/bits"
	"github.com/tamirms/phmap/internal/displace"
	"github.com/zeebo/xxh3"
)

// minFileSize is the smallest structurally valid table file:
// header + footer with every region empty.
const minFileSize = headerSize + footerSize

// Table is a read-only perfect-hash table backed by a file written with
// WriteTable, typically memory-mapped.
//
// Thread safety:
//   - Lookup, Len, Stats, and Verify are safe for concurrent use
//   - Close is NOT safe to call concurrently with queries
//   - After Close returns, no methods may be called on the Table
type Table struct {
	mm   mmap.MMap // nil when opened via OpenBytes
	data []byte

	header *header

	// Region views into data
	seeds     []byte
	slots     []byte
	keyRegion []byte

	closed atomic.Bool
}

// Open opens a table file for querying. It opens the file, memory-maps it,
// and closes the file descriptor.
func Open(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile opens a table by memory-mapping the given file. The caller is
// responsible for closing f; per POSIX mmap(2), f may be closed immediately
// after OpenFile returns.
func OpenFile(f *os.File) (*Table, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat table file: %w", err)
	}
	if stat.Size() < int64(minFileSize) {
		return nil, pherrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap table file: %w", err)
	}

	t := &Table{mm: mm, data: []byte(mm)}
	if err := t.initFromData(); err != nil {
		return nil, errors.Join(err, t.Close())
	}
	// Queries touch the slot directory and key region at hash-random
	// offsets; tell the kernel not to read ahead.
	madviseRandom(t.data)
	return t, nil
}

// OpenBytes creates a Table from an in-memory byte slice. No file is opened
// or memory-mapped; Close is a no-op. The caller must not modify data while
// the Table is in use.
func OpenBytes(data []byte) (*Table, error) {
	if len(data) < minFileSize {
		return nil, pherrors.ErrTruncatedFile
	}
	t := &Table{data: data}
	if err := t.initFromData(); err != nil {
		return nil, err
	}
	return t, nil
}

// initFromData parses and validates the header, footer, and region geometry.
// Checksum verification is deferred to Verify: opening only touches the
// header and footer pages.
func (t *Table) initFromData() error {
	hdr, err := decodeHeader(t.data[:headerSize])
	if err != nil {
		return err
	}

	fileSize := uint64(len(t.data))
	ftr, err := decodeFooter(t.data[fileSize-footerSize:])
	if err != nil {
		return err
	}
	if ftr.FileSize != fileSize {
		return pherrors.ErrTruncatedFile
	}

	// Region sizes come from the header, so bound each one by the file size
	// before summing; a corrupt KeyRegionSize must not wrap the arithmetic.
	if hdr.KeyRegionSize > fileSize {
		return pherrors.ErrCorruptedTable
	}
	seedsOff := uint64(headerSize)
	slotsOff := seedsOff + uint64(hdr.NumBuckets)*seedEntrySize
	keysOff := slotsOff + uint64(hdr.TableSize)*slotEntrySize
	footerOff := keysOff + hdr.KeyRegionSize
	if footerOff+footerSize != fileSize {
		return pherrors.ErrCorruptedTable
	}
	if hdr.NumKeys > uint64(hdr.TableSize) {
		return pherrors.ErrCorruptedTable
	}
	// Empty tables have neither buckets nor slots; a populated one has both.
	// A slot directory without a displacement table would panic on lookup.
	if (hdr.NumBuckets == 0) != (hdr.TableSize == 0) {
		return pherrors.ErrCorruptedTable
	}

	t.header = hdr
	t.seeds = t.data[seedsOff:slotsOff]
	t.slots = t.data[slotsOff:keysOff]
	t.keyRegion = t.data[keysOff:footerOff]
	return nil
}

// Verify recomputes the file checksum and compares it against the footer.
// This reads the entire file; call it once after Open when integrity
// matters, not per query.
func (t *Table) Verify() error {
	if t.closed.Load() {
		return pherrors.ErrTableClosed
	}
	footerOff := uint64(len(t.data)) - footerSize
	want := binary.LittleEndian.Uint64(t.data[footerOff : footerOff+8])
	if xxhash.Sum64(t.data[:footerOff]) != want {
		return pherrors.ErrChecksumFailed
	}
	return nil
}

// Len returns the number of keys in the table.
func (t *Table) Len() int { return int(t.header.NumKeys) }

// Lookup returns the payload stored for key, or ok=false when the key was
// not in the built key set. The only error condition is querying a closed
// table.
func (t *Table) Lookup(key []byte) (payload uint64, ok bool, err error) {
	if t.closed.Load() {
		return 0, false, pherrors.ErrTableClosed
	}
	if t.header.TableSize == 0 {
		return 0, false, nil
	}

	h := xxh3.HashSeed(key, t.header.GlobalSeed)
	b := intbits.FastRange32(h, t.header.NumBuckets)
	d := binary.LittleEndian.Uint16(t.seeds[uint64(b)*seedEntrySize:])
	if d == displace.EmptySeed {
		return 0, false, nil
	}

	s := displace.SlotFor(displace.Fold(h), displace.DisplaceHash(d, t.header.GlobalSeed), t.header.TableSize)
	entry := t.slots[uint64(s)*slotEntrySize:]
	keyOff := binary.LittleEndian.Uint32(entry[0:4])
	if keyOff == emptySlotOffset {
		return 0, false, nil
	}
	keyLen := binary.LittleEndian.Uint32(entry[4:8])
	if uint64(keyOff)+uint64(keyLen) > uint64(len(t.keyRegion)) {
		return 0, false, pherrors.ErrCorruptedTable
	}

	// Verification: the perfect-hash property only covers built keys, so a
	// foreign key can land on an occupied slot. Compare the stored bytes.
	stored := t.keyRegion[keyOff : keyOff+keyLen]
	if !bytes.Equal(key, stored) {
		return 0, false, nil
	}
	return binary.LittleEndian.Uint64(entry[8:16]), true, nil
}

// Contains reports whether key was in the built key set.
func (t *Table) Contains(key []byte) (bool, error) {
	_, ok, err := t.Lookup(key)
	return ok, err
}

// TableStats holds statistics for a file-backed table.
type TableStats struct {
	NumKeys    uint64
	NumBuckets uint32
	TableSize  uint32
	FileSize   int64
	BitsPerKey float64
	Retries    int
	MaxSeed    int
}

// Stats returns table statistics.
func (t *Table) Stats() TableStats {
	s := TableStats{
		NumKeys:    t.header.NumKeys,
		NumBuckets: t.header.NumBuckets,
		TableSize:  t.header.TableSize,
		FileSize:   int64(len(t.data)),
		Retries:    int(t.header.Retries),
		MaxSeed:    int(t.header.MaxSeed),
	}
	if s.NumKeys > 0 {
		s.BitsPerKey = float64(s.FileSize*8) / float64(s.NumKeys)
	}
	return s
}

// Close unmaps the table. Safe to call multiple times, but not concurrently
// with queries.
func (t *Table) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.data = nil
	t.seeds = nil
	t.slots = nil
	t.keyRegion = nil
	if t.mm != nil {
		mm := t.mm
		t.mm = nil
		if err := mm.Unmap(); err != nil {
			return fmt.Errorf("unmap table file: %w", err)
		}
	}
	return nil
}
