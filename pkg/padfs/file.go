package padfs

import (
	"errors"
	"fmt"
	"io"

	"github.com/odvcencio/padfs/pkg/image"
)

// File is an open file session: a resolved object, a logical cursor,
// and (for compressed files) forward-only decoder state allocated on
// first read. File implements io.ReadSeekCloser. It is single-caller;
// concurrent use requires external locking.
type File struct {
	fs  *FS
	obj *image.Object

	pos     int64 // logical position in the decoded content
	fileLen int64

	// raw is the uncompressed payload for CompressionNone files;
	// reads and seeks are pure offset arithmetic over it.
	raw []byte

	dec    decoder
	closed bool
}

// Open resolves a path and creates a file session. The object must be
// a file with a recognized compression scheme; decoder state, if any,
// is not allocated until the first read.
func (fs *FS) Open(path string) (*File, error) {
	if fs.im == nil {
		return nil, ErrClosed
	}
	o, err := fs.im.Lookup(path)
	if err != nil {
		return nil, err
	}
	if o.Type != image.TypeFile {
		return nil, fmt.Errorf("%w: %q", ErrNotAFile, path)
	}

	f := &File{fs: fs, obj: o, fileLen: int64(o.FileLen)}

	switch o.Compression {
	case image.CompressionNone:
		if o.DataLen != o.FileLen {
			return nil, fmt.Errorf("%w: stored length %d != logical length %d",
				image.ErrTruncated, o.DataLen, o.FileLen)
		}
		f.raw = o.Payload()

	case image.CompressionHeatshrink, image.CompressionZstd, image.CompressionLZ4:
		// Decoder allocated lazily on first read.

	default:
		return nil, fmt.Errorf("%w: scheme %d", ErrUnsupportedCompression, uint8(o.Compression))
	}

	return f, nil
}

// Stat returns the session's object metadata.
func (f *File) Stat() Stat { return statOf(f.obj) }

// Tell returns the current logical position.
func (f *File) Tell() int64 { return f.pos }

// Bytes returns the file's content as a zero-copy slice of the image,
// valid for the life of the mount. Only uncompressed files have a
// contiguous decoded representation; anything else is
// ErrNoDirectAccess.
func (f *File) Bytes() ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if f.raw == nil {
		return nil, ErrNoDirectAccess
	}
	return f.raw, nil
}

// Close releases decoder state. Closing twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.dec != nil {
		f.dec.close()
		f.dec = nil
	}
	return nil
}

// Read copies decoded bytes into p, advancing the logical position.
// Compressed files may return short counts before EOF; callers loop (or
// use io.ReadFull). At EOF, Read returns (0, io.EOF).
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	remaining := f.fileLen - f.pos
	if remaining == 0 {
		return 0, io.EOF
	}

	if f.raw != nil {
		n := copy(p, f.raw[f.pos:])
		f.pos += int64(n)
		return n, nil
	}

	if f.dec == nil {
		dec, err := newDecoder(f.obj)
		if err != nil {
			return 0, err
		}
		f.dec = dec
	}

	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := f.dec.read(p)
	f.pos += int64(n)
	switch {
	case err != nil && !errors.Is(err, io.EOF):
		return n, err
	case n == 0:
		// The decoder stalled with logical bytes still owed: the
		// stream is shorter than the declared length.
		return 0, fmt.Errorf("%w: stream ended at %d of %d bytes", ErrDecode, f.pos, f.fileLen)
	default:
		return n, nil
	}
}

// Seek repositions the logical cursor. The result is clamped into
// [0, file length]. A negative target from io.SeekStart and a positive
// offset from io.SeekEnd are rejected with ErrInvalidSeek; seeking past
// end-of-file is expressed only as a non-positive end-relative offset.
//
// Uncompressed files seek in O(1). Compressed files are forward-only
// streams: seeking backward resets the decoder and replays from the
// start, and any forward distance is decoded and discarded, so a
// backward seek costs O(target). Seeking exactly to the end skips
// decoding entirely.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}

	var target int64
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			return 0, fmt.Errorf("%w: negative offset %d from start", ErrInvalidSeek, offset)
		}
		target = min(offset, f.fileLen)
	case io.SeekCurrent:
		target = f.pos + offset
		if target < 0 {
			target = 0
		} else if target > f.fileLen {
			target = f.fileLen
		}
	case io.SeekEnd:
		if offset > 0 {
			return 0, fmt.Errorf("%w: positive offset %d from end", ErrInvalidSeek, offset)
		}
		target = max(f.fileLen+offset, 0)
	default:
		return 0, fmt.Errorf("%w: whence %d", ErrInvalidSeek, whence)
	}

	if f.raw != nil {
		f.pos = target
		return f.pos, nil
	}

	if target < f.pos {
		if f.dec != nil {
			if err := f.dec.reset(); err != nil {
				return f.pos, err
			}
		}
		f.pos = 0
	}

	if target == f.fileLen {
		// Fast path: no decode work for a seek-to-end, the decoder is
		// simply out of sync until the next backward seek resets it.
		f.pos = target
		return f.pos, nil
	}

	// Decode and discard forward to the target.
	var scratch [512]byte
	for f.pos < target {
		chunk := int64(len(scratch))
		if remaining := target - f.pos; remaining < chunk {
			chunk = remaining
		}
		if _, err := f.Read(scratch[:chunk]); err != nil {
			return f.pos, fmt.Errorf("seek replay: %w", err)
		}
	}
	return f.pos, nil
}
