package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildImage assembles a small test image.
func buildImage(t *testing.T, add func(b *Builder)) []byte {
	t.Helper()
	b := NewBuilder()
	add(b)
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}

func TestParseRejectsShortInput(t *testing.T) {
	if _, err := Parse(nil); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Parse(nil) = %v, want ErrTruncated", err)
	}
	if _, err := Parse(make([]byte, 10)); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Parse(short) = %v, want ErrTruncated", err)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := buildImage(t, func(b *Builder) {})
	data[0] ^= 0xff
	if _, err := Parse(data); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("Parse = %v, want ErrBadMagic", err)
	}
}

func TestParseRejectsMajorVersionMismatch(t *testing.T) {
	data := buildImage(t, func(b *Builder) {})
	data[4] = VersionMajor + 1
	if _, err := Parse(data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("Parse = %v, want ErrUnsupportedVersion", err)
	}
}

func TestParseToleratesMinorVersionDifference(t *testing.T) {
	data := buildImage(t, func(b *Builder) {})
	data[5] = VersionMinor + 3
	if _, err := Parse(data); err != nil {
		t.Fatalf("Parse with newer minor version: %v", err)
	}
}

func TestParseRejectsOversizedDeclaredLength(t *testing.T) {
	data := buildImage(t, func(b *Builder) {})
	binary.LittleEndian.PutUint32(data[10:14], uint32(len(data)+1))
	if _, err := Parse(data); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Parse = %v, want ErrTruncated", err)
	}
}

func TestParseRejectsTablesBeyondImage(t *testing.T) {
	data := buildImage(t, func(b *Builder) {})
	binary.LittleEndian.PutUint16(data[8:10], 1000)
	if _, err := Parse(data); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Parse = %v, want ErrTruncated", err)
	}
}

func TestParseIgnoresTrailingRegion(t *testing.T) {
	data := buildImage(t, func(b *Builder) {
		if err := b.AddFile("a.txt", []byte("hello"), CompressionNone, 0); err != nil {
			t.Fatalf("AddFile: %v", err)
		}
	})
	// A mapped flash partition is typically larger than the image and
	// padded with erased bytes.
	padded := append(append([]byte(nil), data...), bytes.Repeat([]byte{0xff}, 4096)...)

	im, err := Parse(padded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if im.Len() != len(data) {
		t.Fatalf("Len = %d, want %d", im.Len(), len(data))
	}
	if err := im.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	data := buildImage(t, func(b *Builder) {
		if err := b.AddFile("a.txt", []byte("hello"), CompressionNone, 0); err != nil {
			t.Fatalf("AddFile: %v", err)
		}
	})

	im, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := im.Verify(); err != nil {
		t.Fatalf("Verify on intact image: %v", err)
	}

	data[len(data)-10] ^= 0x01
	im, err = Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := im.Verify(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("Verify = %v, want ErrChecksum", err)
	}
}

func TestLookupRejectsCorruptObjectOffset(t *testing.T) {
	data := buildImage(t, func(b *Builder) {
		if err := b.AddFile("a.txt", []byte("hello"), CompressionNone, 0); err != nil {
			t.Fatalf("AddFile: %v", err)
		}
	})

	im, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Stomp every hash table entry's offset with an out-of-range value.
	for i := 0; i < im.NumObjects(); i++ {
		base := im.hashOff + i*hashEntrySize + 4
		binary.LittleEndian.PutUint32(data[base:base+4], uint32(len(data)))
	}

	if _, err := im.Lookup("a.txt"); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Lookup = %v, want ErrTruncated", err)
	}
}

func TestObjectPayloadBoundsChecked(t *testing.T) {
	data := buildImage(t, func(b *Builder) {
		if err := b.AddFile("a.txt", []byte("hello"), CompressionNone, 0); err != nil {
			t.Fatalf("AddFile: %v", err)
		}
	})

	im, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	o, err := im.Lookup("a.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	// Inflate the stored data_len so the payload would run past the
	// image; the object must be rejected on next access.
	off := im.sortEntry(int(o.Index))
	binary.LittleEndian.PutUint32(data[off+8:off+12], uint32(len(data)))
	if _, err := im.Lookup("a.txt"); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Lookup with corrupt data_len = %v, want ErrTruncated", err)
	}
}
