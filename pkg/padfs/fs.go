// Package padfs is the runtime engine for padfs images: a read-only,
// hash-indexed filesystem packed into a single binary blob. A mounted
// FS and its image are immutable and safe for concurrent readers; each
// open File owns private cursor and decoder state and must not be
// shared without external synchronization.
package padfs

import (
	"fmt"
	"strings"

	"github.com/odvcencio/padfs/pkg/image"
)

// FS is a mounted padfs image.
type FS struct {
	src Source
	im  *image.Image
}

// Mount parses the image provided by src. On failure the source is
// closed; nothing is left half-held.
func Mount(src Source) (*FS, error) {
	im, err := image.Parse(src.Bytes())
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("mount: %w", err)
	}
	return &FS{src: src, im: im}, nil
}

// MountBytes mounts an in-memory image region.
func MountBytes(data []byte) (*FS, error) {
	return Mount(BytesSource(data))
}

// Close releases the image source. Files opened from the FS must be
// closed first; their reads go straight into the source region.
func (fs *FS) Close() error {
	if fs.src == nil {
		return nil
	}
	err := fs.src.Close()
	fs.src = nil
	fs.im = nil
	return err
}

// Verify recomputes the image checksum. This walks the whole image and
// is deliberately not part of Mount.
func (fs *FS) Verify() error {
	if fs.im == nil {
		return ErrClosed
	}
	return fs.im.Verify()
}

// NumObjects returns the number of objects in the mounted image.
func (fs *FS) NumObjects() int {
	if fs.im == nil {
		return 0
	}
	return fs.im.NumObjects()
}

// Stat describes an object without opening a session.
type Stat struct {
	Path        string
	Type        image.ObjectType
	Index       uint16
	Flags       image.Flags
	Compression image.Compression

	// Size is the logical (decompressed) length for files, zero for
	// directories.
	Size int64

	// StoredSize is the on-image payload length for files.
	StoredSize int64
}

func statOf(o *image.Object) Stat {
	s := Stat{
		Path:  o.Path(),
		Type:  o.Type,
		Index: o.Index,
	}
	if o.Type == image.TypeFile {
		s.Flags = o.Flags
		s.Compression = o.Compression
		s.Size = int64(o.FileLen)
		s.StoredSize = int64(o.DataLen)
	}
	return s
}

// Stat resolves a path and returns its metadata.
func (fs *FS) Stat(path string) (Stat, error) {
	if fs.im == nil {
		return Stat{}, ErrClosed
	}
	o, err := fs.im.Lookup(path)
	if err != nil {
		return Stat{}, err
	}
	return statOf(o), nil
}

// PathByIndex recovers the path of the object with the given stable
// index.
func (fs *FS) PathByIndex(i uint16) (string, error) {
	if fs.im == nil {
		return "", ErrClosed
	}
	return fs.im.PathByIndex(i)
}

// DirEntry is one entry of a directory listing.
type DirEntry struct {
	// Name is the entry's name within its directory, not its full
	// path.
	Name  string
	Type  image.ObjectType
	Index uint16
}

// ReadDir lists the immediate children of a directory. Stable indexes
// follow sorted path order, so a directory's descendants sit in a
// contiguous index range right after it; enumeration stops at the first
// object outside the directory and skips anything deeper than one
// level.
func (fs *FS) ReadDir(path string) ([]DirEntry, error) {
	if fs.im == nil {
		return nil, ErrClosed
	}
	o, err := fs.im.Lookup(path)
	if err != nil {
		return nil, err
	}
	if o.Type != image.TypeDir {
		return nil, fmt.Errorf("%w: %q", ErrNotADir, path)
	}

	prefix := image.Normalize(path)
	if prefix != "" {
		prefix += "/"
	}

	var out []DirEntry
	for i := int(o.Index) + 1; i < fs.im.NumObjects(); i++ {
		child, err := fs.im.ObjectByIndex(uint16(i))
		if err != nil {
			return nil, err
		}
		p := child.Path()
		if !strings.HasPrefix(p, prefix) {
			// Paths under prefix form a contiguous sorted range, but a
			// sibling like "css.txt" sorts between "css" and "css/".
			if p > prefix {
				break
			}
			continue
		}
		name := p[len(prefix):]
		if strings.ContainsRune(name, '/') {
			continue
		}
		out = append(out, DirEntry{Name: name, Type: child.Type, Index: child.Index})
	}
	return out, nil
}
