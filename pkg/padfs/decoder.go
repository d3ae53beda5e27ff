package padfs

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/odvcencio/padfs/pkg/heatshrink"
	"github.com/odvcencio/padfs/pkg/image"
)

// decoder is the per-session streaming decode state for one compressed
// file. Implementations are forward-only; reset rewinds to the start of
// the raw payload without reallocating.
type decoder interface {
	read(p []byte) (int, error)
	reset() error
	close()
}

// sinkChunkSize is how many raw bytes are fed to the heatshrink decoder
// per sink/poll iteration.
const sinkChunkSize = 16

// newDecoder builds the decode state for a file object. Called lazily
// on the first read of a compressed file.
func newDecoder(o *image.Object) (decoder, error) {
	switch o.Compression {
	case image.CompressionHeatshrink:
		payload := o.Payload()
		if len(payload) < 4 {
			return nil, fmt.Errorf("%w: heatshrink payload too short", image.ErrTruncated)
		}
		hs, err := heatshrink.NewDecoder(payload[0], payload[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return &heatshrinkState{
			hs:      hs,
			raw:     payload[4:],
			fileLen: int64(o.FileLen),
		}, nil

	case image.CompressionZstd:
		br := bytes.NewReader(o.Payload())
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return &zstdState{br: br, dec: dec}, nil

	case image.CompressionLZ4:
		br := bytes.NewReader(o.Payload())
		return &lz4State{br: br, dec: lz4.NewReader(br)}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, o.Compression)
	}
}

// heatshrinkState drives the sink/poll loop over the raw payload that
// follows the 4-byte sub-header.
type heatshrinkState struct {
	hs       *heatshrink.Decoder
	raw      []byte
	rawOff   int
	produced int64
	fileLen  int64
	finished bool
}

func (s *heatshrinkState) read(p []byte) (int, error) {
	decoded := 0
	for decoded < len(p) {
		if s.rawOff < len(s.raw) {
			end := min(s.rawOff+sinkChunkSize, len(s.raw))
			s.rawOff += s.hs.Sink(s.raw[s.rawOff:end])
		}

		n := s.hs.Poll(p[decoded:])
		decoded += n
		s.produced += int64(n)

		if s.rawOff == len(s.raw) {
			if s.produced == s.fileLen && !s.finished {
				if err := s.hs.Finish(); err != nil {
					return decoded, fmt.Errorf("%w: %v", ErrDecode, err)
				}
				s.finished = true
			}
			return decoded, nil
		}
	}
	return decoded, nil
}

func (s *heatshrinkState) reset() error {
	s.hs.Reset()
	s.rawOff = 0
	s.produced = 0
	s.finished = false
	return nil
}

func (s *heatshrinkState) close() {}

type zstdState struct {
	br  *bytes.Reader
	dec *zstd.Decoder
}

func (s *zstdState) read(p []byte) (int, error) {
	return s.dec.Read(p)
}

func (s *zstdState) reset() error {
	if _, err := s.br.Seek(0, 0); err != nil {
		return err
	}
	if err := s.dec.Reset(s.br); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

func (s *zstdState) close() { s.dec.Close() }

type lz4State struct {
	br  *bytes.Reader
	dec *lz4.Reader
}

func (s *lz4State) read(p []byte) (int, error) {
	return s.dec.Read(p)
}

func (s *lz4State) reset() error {
	if _, err := s.br.Seek(0, 0); err != nil {
		return err
	}
	s.dec.Reset(s.br)
	return nil
}

func (s *lz4State) close() {}
