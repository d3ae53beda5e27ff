package padfs

import (
	"fmt"
	"os"
)

// Source provides the raw bytes of an image. The returned region must
// stay valid and unchanged until Close; the filesystem never copies it.
type Source interface {
	Bytes() []byte
	Close() error
}

type bytesSource struct {
	data []byte
}

// BytesSource wraps an in-memory image region, such as a blob linked
// into the binary. Close is a no-op.
func BytesSource(data []byte) Source {
	return &bytesSource{data: data}
}

func (s *bytesSource) Bytes() []byte { return s.data }
func (s *bytesSource) Close() error  { return nil }

type fileSource struct {
	data []byte
}

// FileSource reads an image file fully into memory. For large images on
// unix hosts, MapFile avoids the copy.
func FileSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return &fileSource{data: data}, nil
}

func (s *fileSource) Bytes() []byte { return s.data }

func (s *fileSource) Close() error {
	s.data = nil
	return nil
}
