package padfs

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/odvcencio/padfs/pkg/image"
)

// pattern generates n bytes of a deterministic repeating pattern.
func pattern(n int) []byte {
	out := make([]byte, n)
	src := []byte("0123456789abcdef")
	for i := range out {
		out[i] = src[i%len(src)]
	}
	return out
}

func mountImage(t *testing.T, add func(b *image.Builder)) *FS {
	t.Helper()
	b := image.NewBuilder()
	add(b)
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	fs, err := MountBytes(data)
	if err != nil {
		t.Fatalf("MountBytes: %v", err)
	}
	t.Cleanup(func() { fs.Close() })
	return fs
}

func addFile(t *testing.T, b *image.Builder, path string, data []byte, comp image.Compression) {
	t.Helper()
	if err := b.AddFile(path, data, comp, 0); err != nil {
		t.Fatalf("AddFile(%q): %v", path, err)
	}
}

func TestOpenReadUncompressed(t *testing.T) {
	fs := mountImage(t, func(b *image.Builder) {
		addFile(t, b, "a.txt", []byte("hello"), image.CompressionNone)
	})

	f, err := fs.Open("a.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 10)
	n, err := f.Read(buf)
	if err != nil || n != 5 {
		t.Fatalf("Read = %d, %v; want 5, nil", n, err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("Read content %q", buf[:n])
	}
	if n, err := f.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("Read at EOF = %d, %v; want 0, EOF", n, err)
	}
	if f.Tell() != 5 {
		t.Fatalf("Tell = %d, want 5", f.Tell())
	}
}

func TestReadZeroBytesIsNoOp(t *testing.T) {
	fs := mountImage(t, func(b *image.Builder) {
		addFile(t, b, "a.txt", []byte("hello"), image.CompressionNone)
	})
	f, err := fs.Open("a.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if n, err := f.Read(nil); n != 0 || err != nil {
		t.Fatalf("Read(nil) = %d, %v", n, err)
	}
	if f.Tell() != 0 {
		t.Fatalf("Tell after zero read = %d", f.Tell())
	}
}

func TestOpenErrors(t *testing.T) {
	fs := mountImage(t, func(b *image.Builder) {
		addFile(t, b, "dir/a.txt", []byte("x"), image.CompressionNone)
	})

	if _, err := fs.Open("nope.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open(missing) = %v, want ErrNotFound", err)
	}
	if _, err := fs.Open("dir"); !errors.Is(err, ErrNotAFile) {
		t.Fatalf("Open(dir) = %v, want ErrNotAFile", err)
	}
}

func TestOpenRejectsUnknownCompression(t *testing.T) {
	b := image.NewBuilder()
	addFile(t, b, "weird.bin", []byte("payload"), image.CompressionNone)
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// The compression id lives 18 bytes into the file header, which
	// sits 20 bytes before the inline path.
	pathPos := bytes.Index(data, []byte("weird.bin"))
	if pathPos < 0 {
		t.Fatal("path not found in image")
	}
	data[pathPos-20+18] = 0x7f

	fs, err := MountBytes(data)
	if err != nil {
		t.Fatalf("MountBytes: %v", err)
	}
	defer fs.Close()

	if _, err := fs.Open("weird.bin"); !errors.Is(err, ErrUnsupportedCompression) {
		t.Fatalf("Open = %v, want ErrUnsupportedCompression", err)
	}
}

func TestDirectAccess(t *testing.T) {
	content := pattern(300)
	fs := mountImage(t, func(b *image.Builder) {
		addFile(t, b, "raw.bin", content, image.CompressionNone)
		addFile(t, b, "packed.bin", pattern(3000), image.CompressionHeatshrink)
	})

	f, err := fs.Open("raw.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	direct, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(direct, content) {
		t.Fatal("direct access content differs")
	}

	// Direct access and sequential reads see the same bytes.
	viaRead, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(viaRead, direct) {
		t.Fatal("read content differs from direct access")
	}

	g, err := fs.Open("packed.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer g.Close()
	if _, err := g.Bytes(); !errors.Is(err, ErrNoDirectAccess) {
		t.Fatalf("Bytes on compressed file = %v, want ErrNoDirectAccess", err)
	}
}

func TestCompressedRoundTripAllSchemes(t *testing.T) {
	content := pattern(10000)
	schemes := []image.Compression{
		image.CompressionHeatshrink,
		image.CompressionZstd,
		image.CompressionLZ4,
	}

	fs := mountImage(t, func(b *image.Builder) {
		for _, c := range schemes {
			addFile(t, b, "f-"+c.String(), content, c)
		}
	})

	for _, c := range schemes {
		name := "f-" + c.String()
		st, err := fs.Stat(name)
		if err != nil {
			t.Fatalf("Stat(%q): %v", name, err)
		}
		if st.Compression != c {
			t.Fatalf("%q stored as %s, want %s", name, st.Compression, c)
		}
		if st.Size != int64(len(content)) {
			t.Fatalf("%q Size = %d, want %d", name, st.Size, len(content))
		}

		// Chunked reads to EOF accumulate exactly the content.
		f, err := fs.Open(name)
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		var got []byte
		buf := make([]byte, 64)
		for {
			n, err := f.Read(buf)
			got = append(got, buf[:n]...)
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Read(%q): %v", name, err)
			}
		}
		if !bytes.Equal(got, content) {
			t.Fatalf("%q round trip mismatch: %d bytes", name, len(got))
		}
		f.Close()

		// Determinism: a second session decodes identical output.
		g, err := fs.Open(name)
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		again, err := io.ReadAll(g)
		if err != nil {
			t.Fatalf("ReadAll(%q): %v", name, err)
		}
		g.Close()
		if !bytes.Equal(again, got) {
			t.Fatalf("%q second decode differs", name)
		}
	}
}

func TestMixedReadAndSeek(t *testing.T) {
	content := pattern(1000)
	fs := mountImage(t, func(b *image.Builder) {
		addFile(t, b, "a.txt", []byte("hello"), image.CompressionNone)
		addFile(t, b, "b.bin", content, image.CompressionHeatshrink)
	})

	f, err := fs.Open("a.txt")
	if err != nil {
		t.Fatalf("Open(a.txt): %v", err)
	}
	buf := make([]byte, 10)
	if n, err := f.Read(buf); n != 5 || err != nil || string(buf[:5]) != "hello" {
		t.Fatalf("Read = %d %v %q", n, err, buf[:5])
	}
	if n, err := f.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("second Read = %d, %v", n, err)
	}
	f.Close()

	g, err := fs.Open("/b.bin")
	if err != nil {
		t.Fatalf("Open(/b.bin): %v", err)
	}
	defer g.Close()
	var got []byte
	chunk := make([]byte, 64)
	for {
		n, err := g.Read(chunk)
		got = append(got, chunk[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("accumulated %d bytes, mismatch", len(got))
	}

	if _, err := g.Seek(500, io.SeekStart); err != nil {
		t.Fatalf("Seek(500): %v", err)
	}
	ten := make([]byte, 10)
	if _, err := io.ReadFull(g, ten); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if !bytes.Equal(ten, content[500:510]) {
		t.Fatalf("bytes at 500 = %q, want %q", ten, content[500:510])
	}
}
