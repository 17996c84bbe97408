package phmap

import (
	"encoding/binary"

	pherrors "github.com/tamirms/phmap/errors"
)

const (
	// magic number for phmap table files, "PHTB" in little-endian
	magic = uint32(0x50485442)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (32 bytes)
	footerSize = 32

	// seedEntrySize is the size of one displacement table entry
	seedEntrySize = 2

	// slotEntrySize is the size of one slot directory entry:
	// [KeyOffset u32][KeyLen u32][Payload u64]
	slotEntrySize = 16

	// emptySlotOffset marks a slot that holds no key
	emptySlotOffset = uint32(0xFFFFFFFF)
)

// header is the 64-byte file header.
//
// Layout:
//
//	Offset  Size  Field          Type
//	0       4     Magic          0x50485442 ("PHTB")
//	4       2     Version        0x0001
//	6       8     NumKeys        uint64_le
//	14      4     NumBuckets     uint32_le
//	18      4     TableSize      uint32_le (slot count)
//	22      8     GlobalSeed     uint64_le
//	30      8     KeyRegionSize  uint64_le
//	38      2     MaxSeed        uint16_le (largest displacement accepted)
//	40      4     Retries        uint32_le (global attempts consumed)
//	44      20    Reserved       [20]byte (zero)
//
// Regions follow the header in order: displacement table (NumBuckets × 2B),
// slot directory (TableSize × 16B), key bytes, 32-byte footer.
type header struct {
	Magic         uint32
	Version       uint16
	NumKeys       uint64
	NumBuckets    uint32
	TableSize     uint32
	GlobalSeed    uint64
	KeyRegionSize uint64
	MaxSeed       uint16
	Retries       uint32
}

// encodeTo serializes the header into a 64-byte buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint64(buf[6:14], h.NumKeys)
	binary.LittleEndian.PutUint32(buf[14:18], h.NumBuckets)
	binary.LittleEndian.PutUint32(buf[18:22], h.TableSize)
	binary.LittleEndian.PutUint64(buf[22:30], h.GlobalSeed)
	binary.LittleEndian.PutUint64(buf[30:38], h.KeyRegionSize)
	binary.LittleEndian.PutUint16(buf[38:40], h.MaxSeed)
	binary.LittleEndian.PutUint32(buf[40:44], h.Retries)
	clear(buf[44:headerSize])
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, pherrors.ErrTruncatedFile
	}
	h := &header{
		Magic:         binary.LittleEndian.Uint32(buf[0:4]),
		Version:       binary.LittleEndian.Uint16(buf[4:6]),
		NumKeys:       binary.LittleEndian.Uint64(buf[6:14]),
		NumBuckets:    binary.LittleEndian.Uint32(buf[14:18]),
		TableSize:     binary.LittleEndian.Uint32(buf[18:22]),
		GlobalSeed:    binary.LittleEndian.Uint64(buf[22:30]),
		KeyRegionSize: binary.LittleEndian.Uint64(buf[30:38]),
		MaxSeed:       binary.LittleEndian.Uint16(buf[38:40]),
		Retries:       binary.LittleEndian.Uint32(buf[40:44]),
	}
	if h.Magic != magic {
		return nil, pherrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, pherrors.ErrInvalidVersion
	}
	return h, nil
}

// footer is the 32-byte file footer.
//
// Layout:
//
//	Offset  Size  Field     Type
//	0       8     Checksum  uint64_le (xxhash64 of all bytes before footer)
//	8       8     FileSize  uint64_le
//	16      4     Magic     0x50485442
//	20      2     Version   0x0001
//	22      10    Reserved  [10]byte (zero)
type footer struct {
	Checksum uint64
	FileSize uint64
	Magic    uint32
	Version  uint16
}

// encodeTo serializes the footer into a 32-byte buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.Checksum)
	binary.LittleEndian.PutUint64(buf[8:16], f.FileSize)
	binary.LittleEndian.PutUint32(buf[16:20], f.Magic)
	binary.LittleEndian.PutUint16(buf[20:22], f.Version)
	clear(buf[22:footerSize])
}

// decodeFooter parses a 32-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, pherrors.ErrTruncatedFile
	}
	f := &footer{
		Checksum: binary.LittleEndian.Uint64(buf[0:8]),
		FileSize: binary.LittleEndian.Uint64(buf[8:16]),
		Magic:    binary.LittleEndian.Uint32(buf[16:20]),
		Version:  binary.LittleEndian.Uint16(buf[20:22]),
	}
	if f.Magic != magic {
		return nil, pherrors.ErrInvalidMagic
	}
	if f.Version != version {
		return nil, pherrors.ErrInvalidVersion
	}
	return f, nil
}
