package padfs

import (
	"errors"

	"github.com/odvcencio/padfs/pkg/image"
)

// ErrNotFound reports a path with no matching object. It is the same
// sentinel the image package returns, re-exported so callers need only
// this package.
var ErrNotFound = image.ErrNotFound

var (
	// ErrNotAFile reports a path that resolved to a directory where a
	// file was required.
	ErrNotAFile = errors.New("padfs: not a file")

	// ErrNotADir reports a path that resolved to a file where a
	// directory was required.
	ErrNotADir = errors.New("padfs: not a directory")

	// ErrUnsupportedCompression reports a file header declaring a
	// compression scheme this build does not recognize.
	ErrUnsupportedCompression = errors.New("padfs: unsupported compression")

	// ErrDecode reports a protocol fault in the underlying decoder. It
	// is fatal for the session; the caller should close the file.
	ErrDecode = errors.New("padfs: decode error")

	// ErrInvalidSeek reports an out-of-policy offset/whence
	// combination.
	ErrInvalidSeek = errors.New("padfs: invalid seek")

	// ErrNoDirectAccess reports a direct-buffer request on a
	// compressed file, which has no contiguous decoded bytes.
	ErrNoDirectAccess = errors.New("padfs: direct access unavailable for compressed file")

	// ErrClosed reports use of a closed file or filesystem.
	ErrClosed = errors.New("padfs: closed")
)
