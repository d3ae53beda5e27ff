// Package image implements the padfs binary image format: a read-only,
// hash-indexed filesystem packed into one monolithic blob. The package
// contains the parser and directory lookup used at runtime, and the
// writer that assembles images for the offline pack tool and for tests.
package image

import (
	"errors"
	"fmt"
)

const (
	headerSize           = 16
	hashEntrySize        = 8
	sortEntrySize        = 4
	objectHeaderSize     = 8
	fileHeaderSize       = 20
	heatshrinkHeaderSize = 4
	footerSize           = 4

	// VersionMajor and VersionMinor identify the format revision this
	// package reads and writes. A major mismatch is rejected; minor
	// differences are tolerated.
	VersionMajor = 1
	VersionMinor = 0
)

// magic occupies the first four bytes of every image.
var magic = [4]byte{'p', 'a', 'd', 'f'}

var (
	ErrBadMagic           = errors.New("image: bad magic")
	ErrUnsupportedVersion = errors.New("image: unsupported version")
	ErrTruncated          = errors.New("image: truncated or corrupt")
	ErrChecksum           = errors.New("image: checksum mismatch")
	ErrNotFound           = errors.New("image: object not found")
)

// ObjectType distinguishes files from directory nodes.
type ObjectType uint8

const (
	TypeFile ObjectType = 0
	TypeDir  ObjectType = 1
)

func (t ObjectType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDir:
		return "dir"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Compression identifies the transform applied to a file's payload.
// Values are format constants; changing them breaks image
// compatibility.
type Compression uint8

const (
	// CompressionNone stores the payload verbatim; reads are zero-copy.
	CompressionNone Compression = 0

	// CompressionHeatshrink is the windowed incremental LZSS codec. The
	// payload begins with a 4-byte sub-header carrying the window and
	// lookahead size exponents.
	CompressionHeatshrink Compression = 1

	// CompressionZstd stores a single zstd frame.
	CompressionZstd Compression = 2

	// CompressionLZ4 stores an lz4 frame stream.
	CompressionLZ4 Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionHeatshrink:
		return "heatshrink"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as used in pack
// configuration files.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "heatshrink":
		return CompressionHeatshrink, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// Flags carries per-file hints that do not affect payload decoding.
type Flags uint16

const (
	// FlagGzip marks content stored gzip-encoded (with
	// CompressionNone) for direct transfer, e.g. as an HTTP response
	// body with Content-Encoding: gzip.
	FlagGzip Flags = 1 << 0

	// FlagCache is a consumer hint that the file is worth caching.
	FlagCache Flags = 1 << 1
)

// Header is the fixed-size image header.
//
// Bytes (little-endian):
//   - 0..3:   magic "padf"
//   - 4:      version major
//   - 5:      version minor
//   - 6..7:   header length
//   - 8..9:   object count
//   - 10..13: total image length, footer included
//   - 14..15: reserved
type Header struct {
	VersionMajor uint8
	VersionMinor uint8
	HeaderLen    uint16
	NumObjects   uint16
	BinaryLen    uint32
}

// Hash computes the 32-bit DJB2 xor-variant hash used by the lookup
// table: h = h*33 ^ c over the path bytes, seeded with 5381. The path
// must already be normalized (see Normalize).
func Hash(path string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(path); i++ {
		h = (h<<5 + h) ^ uint32(path[i])
	}
	return h
}

// Normalize strips any leading path separators. No other rewriting is
// performed: dot segments and case are preserved.
func Normalize(path string) string {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}
