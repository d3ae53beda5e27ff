package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/odvcencio/padfs/pkg/heatshrink"
)

// Builder assembles a padfs image from in-memory entries. Stable
// indexes are assigned in lexicographic path order, directories implied
// by file paths (including the root) are materialized, and the hash
// table is emitted in ascending hash order with equal-hash runs kept
// contiguous.
//
// When a compressed payload would not be smaller than the original
// data, the entry silently falls back to CompressionNone (and FlagGzip
// is dropped).
type Builder struct {
	// WindowBits and LookaheadBits parameterize heatshrink entries.
	WindowBits    uint8
	LookaheadBits uint8

	entries map[string]*builderEntry
}

type builderEntry struct {
	typ   ObjectType
	data  []byte
	comp  Compression
	flags Flags
}

// NewBuilder returns a Builder with the default heatshrink parameters
// (window 2^11, lookahead 2^4).
func NewBuilder() *Builder {
	return &Builder{
		WindowBits:    11,
		LookaheadBits: 4,
		entries:       make(map[string]*builderEntry),
	}
}

// AddFile adds a file entry. The path is normalized; parent directories
// are created implicitly at build time.
func (b *Builder) AddFile(path string, data []byte, comp Compression, flags Flags) error {
	path = Normalize(path)
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("path %q contains NUL", path)
	}
	if e, ok := b.entries[path]; ok && e.typ != TypeFile {
		return fmt.Errorf("path %q already added as %s", path, e.typ)
	}
	b.entries[path] = &builderEntry{typ: TypeFile, data: data, comp: comp, flags: flags}
	return nil
}

// AddDir adds an explicit directory entry.
func (b *Builder) AddDir(path string) error {
	path = Normalize(path)
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("path %q contains NUL", path)
	}
	if e, ok := b.entries[path]; ok && e.typ != TypeDir {
		return fmt.Errorf("path %q already added as %s", path, e.typ)
	}
	b.entries[path] = &builderEntry{typ: TypeDir}
	return nil
}

// Build encodes the image and returns the complete blob, CRC32 footer
// included.
func (b *Builder) Build() ([]byte, error) {
	entries := make(map[string]*builderEntry, len(b.entries))
	for p, e := range b.entries {
		entries[p] = e
	}

	// Materialize the root and all implied parents.
	if _, ok := entries[""]; !ok {
		entries[""] = &builderEntry{typ: TypeDir}
	}
	for p := range b.entries {
		for {
			i := strings.LastIndexByte(p, '/')
			if i < 0 {
				break
			}
			p = p[:i]
			if e, ok := entries[p]; ok {
				if e.typ != TypeDir {
					return nil, fmt.Errorf("path %q is both file and directory", p)
				}
			} else {
				entries[p] = &builderEntry{typ: TypeDir}
			}
		}
	}

	if len(entries) > 0xffff {
		return nil, fmt.Errorf("too many objects: %d", len(entries))
	}

	// Stable indexes follow sorted path order so that a directory's
	// children occupy a contiguous index range right after it.
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	index := make(map[string]uint16, len(paths))
	for i, p := range paths {
		index[p] = uint16(i)
	}

	// Encode object blobs in hash order, tracking offsets for both
	// tables as they are assigned.
	hashOrder := make([]string, len(paths))
	copy(hashOrder, paths)
	sort.Slice(hashOrder, func(i, j int) bool {
		hi, hj := Hash(hashOrder[i]), Hash(hashOrder[j])
		if hi != hj {
			return hi < hj
		}
		return hashOrder[i] < hashOrder[j]
	})

	n := len(paths)
	offset := headerSize + n*hashEntrySize + n*sortEntrySize
	hashTable := make([]byte, 0, n*hashEntrySize)
	sortTable := make([]byte, n*sortEntrySize)
	var objects bytes.Buffer

	for _, p := range hashOrder {
		e := entries[p]
		blob, err := b.encodeObject(p, index[p], e)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", p, err)
		}

		hashTable = binary.LittleEndian.AppendUint32(hashTable, Hash(p))
		hashTable = binary.LittleEndian.AppendUint32(hashTable, uint32(offset))
		binary.LittleEndian.PutUint32(sortTable[int(index[p])*sortEntrySize:], uint32(offset))

		objects.Write(blob)
		offset += len(blob)
	}

	binaryLen := offset + footerSize
	if uint64(binaryLen) > 0xffffffff {
		return nil, fmt.Errorf("image too large: %d bytes", binaryLen)
	}
	out := make([]byte, 0, binaryLen)
	hdr := make([]byte, headerSize)
	copy(hdr[:4], magic[:])
	hdr[4] = VersionMajor
	hdr[5] = VersionMinor
	binary.LittleEndian.PutUint16(hdr[6:8], headerSize)
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(n))
	binary.LittleEndian.PutUint32(hdr[10:14], uint32(binaryLen))

	out = append(out, hdr...)
	out = append(out, hashTable...)
	out = append(out, sortTable...)
	out = append(out, objects.Bytes()...)
	out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out))
	return out, nil
}

func (b *Builder) encodeObject(path string, index uint16, e *builderEntry) ([]byte, error) {
	if len(path) > 0xffff {
		return nil, fmt.Errorf("path too long: %d bytes", len(path))
	}
	if e.typ == TypeDir {
		blob := make([]byte, objectHeaderSize, objectHeaderSize+len(path))
		blob[0] = byte(TypeDir)
		blob[1] = objectHeaderSize
		binary.LittleEndian.PutUint16(blob[2:4], index)
		binary.LittleEndian.PutUint16(blob[4:6], uint16(len(path)))
		return append(blob, path...), nil
	}

	comp := e.comp
	flags := e.flags
	fileLen := uint32(len(e.data))
	payload := e.data

	if flags&FlagGzip != 0 {
		if comp != CompressionNone {
			return nil, fmt.Errorf("gzip flag requires compression none, got %s", comp)
		}
		gz, err := gzipCompress(e.data)
		if err != nil {
			return nil, err
		}
		if len(gz) < len(e.data) {
			// Consumers transfer the gzip bytes directly, so the
			// logical length is the stored length.
			payload = gz
			fileLen = uint32(len(gz))
		} else {
			flags &^= FlagGzip
		}
	}

	switch comp {
	case CompressionNone:
		// payload already set

	case CompressionHeatshrink:
		raw, err := heatshrink.Compress(e.data, b.WindowBits, b.LookaheadBits)
		if err != nil {
			return nil, err
		}
		sub := make([]byte, heatshrinkHeaderSize)
		sub[0] = b.WindowBits
		sub[1] = b.LookaheadBits
		if heatshrinkHeaderSize+len(raw) < len(e.data) {
			payload = append(sub, raw...)
		} else {
			comp = CompressionNone
		}

	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		raw := enc.EncodeAll(e.data, nil)
		enc.Close()
		if len(raw) < len(e.data) {
			payload = raw
		} else {
			comp = CompressionNone
		}

	case CompressionLZ4:
		var buf bytes.Buffer
		lw := lz4.NewWriter(&buf)
		if _, err := lw.Write(e.data); err != nil {
			lw.Close()
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := lw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if buf.Len() < len(e.data) {
			payload = buf.Bytes()
		} else {
			comp = CompressionNone
		}

	default:
		return nil, fmt.Errorf("unknown compression %d", comp)
	}

	blob := make([]byte, fileHeaderSize, fileHeaderSize+len(path)+len(payload))
	blob[0] = byte(TypeFile)
	blob[1] = fileHeaderSize
	binary.LittleEndian.PutUint16(blob[2:4], index)
	binary.LittleEndian.PutUint16(blob[4:6], uint16(len(path)))
	binary.LittleEndian.PutUint32(blob[8:12], uint32(len(payload)))
	binary.LittleEndian.PutUint32(blob[12:16], fileLen)
	binary.LittleEndian.PutUint16(blob[16:18], uint16(flags))
	blob[18] = byte(comp)
	blob = append(blob, path...)
	return append(blob, payload...), nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buf.Bytes(), nil
}
