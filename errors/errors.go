// Package errors defines all exported error sentinels for the phmap library.
//
// This is the single source of truth for error values. Both the top-level
// phmap package and internal algorithm packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Construction errors
var (
	ErrDuplicateKey       = errors.New("phmap: duplicate key detected")
	ErrConstructionFailed = errors.New("phmap: perfect hash construction exhausted all retries")
	ErrInvalidConfig      = errors.New("phmap: invalid configuration")
	ErrTooManyKeys        = errors.New("phmap: key count exceeds maximum (2^31-1)")
)

// Table file errors
var (
	ErrInvalidMagic   = errors.New("phmap: invalid magic number")
	ErrInvalidVersion = errors.New("phmap: unsupported version")
	ErrTruncatedFile  = errors.New("phmap: table file is truncated")
	ErrChecksumFailed = errors.New("phmap: file checksum verification failed")
	ErrCorruptedTable = errors.New("phmap: table data is corrupted")
	ErrKeyTooLong     = errors.New("phmap: key exceeds maximum length (2^32-1 bytes)")
	ErrRegionOverflow = errors.New("phmap: key bytes region exceeds 4 GiB")
	ErrTableClosed    = errors.New("phmap: table is closed")
)
