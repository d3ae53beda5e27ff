package image

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Image is a parsed, bounds-checked view over a padfs binary blob. The
// underlying bytes are never copied or mutated; an Image may be shared
// freely across concurrent readers.
type Image struct {
	data    []byte
	header  Header
	hashOff int
	sortOff int
	objOff  int
}

// Parse validates the image header and table extents over data. The
// region may be larger than the image itself (a mapped flash partition
// usually is); everything past the declared image length is ignored.
// No object headers are touched here; offsets read from the tables are
// validated lazily, per access, since they are untrusted input.
func Parse(data []byte) (*Image, error) {
	if len(data) < headerSize+footerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	if string(data[:4]) != string(magic[:]) {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, data[:4])
	}

	h := Header{
		VersionMajor: data[4],
		VersionMinor: data[5],
		HeaderLen:    binary.LittleEndian.Uint16(data[6:8]),
		NumObjects:   binary.LittleEndian.Uint16(data[8:10]),
		BinaryLen:    binary.LittleEndian.Uint32(data[10:14]),
	}
	if h.VersionMajor != VersionMajor {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion,
			h.VersionMajor, h.VersionMinor)
	}
	if h.HeaderLen < headerSize {
		return nil, fmt.Errorf("%w: header length %d", ErrTruncated, h.HeaderLen)
	}
	if uint64(h.BinaryLen) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: declared length %d exceeds region %d",
			ErrTruncated, h.BinaryLen, len(data))
	}

	n := int(h.NumObjects)
	hashOff := int(h.HeaderLen)
	sortOff := hashOff + n*hashEntrySize
	objOff := sortOff + n*sortEntrySize
	if uint64(objOff)+footerSize > uint64(h.BinaryLen) {
		return nil, fmt.Errorf("%w: tables exceed image length", ErrTruncated)
	}

	return &Image{
		data:    data[:h.BinaryLen],
		header:  h,
		hashOff: hashOff,
		sortOff: sortOff,
		objOff:  objOff,
	}, nil
}

// Header returns a copy of the parsed image header.
func (im *Image) Header() Header { return im.header }

// NumObjects returns the number of objects in the image.
func (im *Image) NumObjects() int { return int(im.header.NumObjects) }

// Len returns the image length in bytes, footer included.
func (im *Image) Len() int { return len(im.data) }

// Verify recomputes the CRC32 footer over the image body and compares
// it against the stored value. Mount does not call this: a full sweep
// of a flash-resident image is an explicit, caller-paid operation.
func (im *Image) Verify() error {
	body := im.data[:len(im.data)-footerSize]
	want := binary.LittleEndian.Uint32(im.data[len(im.data)-footerSize:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return fmt.Errorf("%w: computed %08x, stored %08x", ErrChecksum, got, want)
	}
	return nil
}

// Object is a decoded object header. Path and payload are sub-slices of
// the image; callers must not mutate them.
type Object struct {
	Type  ObjectType
	Index uint16

	path []byte

	// File-only fields; zero for directories.
	Flags       Flags
	Compression Compression
	DataLen     uint32
	FileLen     uint32

	payload []byte
}

// Path returns the object's stored path, leading separator stripped.
func (o *Object) Path() string { return string(o.path) }

// PathBytes returns the stored path without copying.
func (o *Object) PathBytes() []byte { return o.path }

// Payload returns the raw on-disk payload of a file object, still in
// its stored (possibly compressed) form, sub-header included.
func (o *Object) Payload() []byte { return o.payload }

// objectAt decodes and validates the object header at the given image
// offset. The offset comes from an in-image table and is untrusted:
// every derived extent is checked against the image bounds.
func (im *Image) objectAt(off uint32) (*Object, error) {
	limit := len(im.data) - footerSize
	start := int(off)
	if start < im.objOff || start+objectHeaderSize > limit {
		return nil, fmt.Errorf("%w: object offset %d out of range", ErrTruncated, off)
	}
	b := im.data[start:]

	o := &Object{
		Type:  ObjectType(b[0]),
		Index: binary.LittleEndian.Uint16(b[2:4]),
	}
	hdrLen := int(b[1])
	pathLen := int(binary.LittleEndian.Uint16(b[4:6]))

	switch o.Type {
	case TypeDir:
		if hdrLen < objectHeaderSize {
			return nil, fmt.Errorf("%w: dir header length %d", ErrTruncated, hdrLen)
		}
	case TypeFile:
		if hdrLen < fileHeaderSize {
			return nil, fmt.Errorf("%w: file header length %d", ErrTruncated, hdrLen)
		}
	default:
		return nil, fmt.Errorf("%w: object type %d", ErrTruncated, b[0])
	}

	pathStart := start + hdrLen
	pathEnd := pathStart + pathLen
	if pathEnd > limit {
		return nil, fmt.Errorf("%w: path extent out of range", ErrTruncated)
	}
	o.path = im.data[pathStart:pathEnd:pathEnd]

	if o.Type == TypeFile {
		o.DataLen = binary.LittleEndian.Uint32(b[8:12])
		o.FileLen = binary.LittleEndian.Uint32(b[12:16])
		o.Flags = Flags(binary.LittleEndian.Uint16(b[16:18]))
		o.Compression = Compression(b[18])

		payloadEnd := uint64(pathEnd) + uint64(o.DataLen)
		if payloadEnd > uint64(limit) {
			return nil, fmt.Errorf("%w: payload extent out of range", ErrTruncated)
		}
		o.payload = im.data[pathEnd:payloadEnd:payloadEnd]
	}

	return o, nil
}

// hashEntry returns the i'th (hash, offset) pair from the lookup table.
// The caller guarantees i is within the object count.
func (im *Image) hashEntry(i int) (hash, offset uint32) {
	base := im.hashOff + i*hashEntrySize
	return binary.LittleEndian.Uint32(im.data[base : base+4]),
		binary.LittleEndian.Uint32(im.data[base+4 : base+8])
}

// sortEntry returns the object offset for the given stable index.
func (im *Image) sortEntry(i int) uint32 {
	base := im.sortOff + i*sortEntrySize
	return binary.LittleEndian.Uint32(im.data[base : base+4])
}
