//go:build unix

package padfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type mmapSource struct {
	data []byte
}

// MapFile maps an image file read-only. This is the host-side analogue
// of a memory-mapped flash partition: the image is addressable without
// being copied into the heap.
func MapFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat image %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return &mmapSource{}, nil
	}
	if size != int64(int(size)) {
		return nil, fmt.Errorf("image %s too large to map: %d bytes", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap image %s: %w", path, err)
	}
	return &mmapSource{data: data}, nil
}

func (s *mmapSource) Bytes() []byte { return s.data }

func (s *mmapSource) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	return err
}
