// Package heatshrink implements the heatshrink LZSS bitstream, an
// incremental windowed compression format designed for small embedded
// targets. The decoder consumes bounded input chunks and produces bounded
// output chunks, so callers never need the whole stream in memory.
package heatshrink

import (
	"errors"
	"fmt"
)

const (
	// MinWindowBits and MaxWindowBits bound the window size exponent.
	MinWindowBits = 4
	MaxWindowBits = 15

	// MinLookaheadBits bounds the lookahead size exponent. The upper
	// bound is windowBits-1.
	MinLookaheadBits = 3

	// inputBufferSize is the decoder's internal staging buffer. Sink
	// accepts at most this many bytes before a Poll drains them.
	inputBufferSize = 16
)

var (
	// ErrBadConfig reports window/lookahead exponents outside the
	// supported range.
	ErrBadConfig = errors.New("heatshrink: bad window/lookahead config")

	// ErrTruncated reports a stream that ended mid-symbol.
	ErrTruncated = errors.New("heatshrink: truncated stream")
)

type decodeState uint8

const (
	stateTagBit decodeState = iota
	stateYieldLiteral
	stateBackrefIndexMSB
	stateBackrefIndexLSB
	stateBackrefCountMSB
	stateBackrefCountLSB
	stateYieldBackref
)

// Decoder is an incremental heatshrink decoder. Feed compressed bytes
// with Sink, drain decoded bytes with Poll, and call Finish once the
// entire stream has been sunk and drained. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	windowBits    uint8
	lookaheadBits uint8

	window []byte // 1<<windowBits circular history
	head   int    // write position in window (wraps via mask)

	input    [inputBufferSize]byte
	inputLen int
	inputPos int

	bitBuf uint32
	bitCnt uint8

	state        decodeState
	backrefIndex int
	backrefCount int
}

// NewDecoder allocates a decoder with the given window and lookahead
// size exponents. The window buffer is sized 1<<windowBits.
func NewDecoder(windowBits, lookaheadBits uint8) (*Decoder, error) {
	if windowBits < MinWindowBits || windowBits > MaxWindowBits ||
		lookaheadBits < MinLookaheadBits || lookaheadBits >= windowBits {
		return nil, fmt.Errorf("%w: window=%d lookahead=%d",
			ErrBadConfig, windowBits, lookaheadBits)
	}
	return &Decoder{
		windowBits:    windowBits,
		lookaheadBits: lookaheadBits,
		window:        make([]byte, 1<<windowBits),
	}, nil
}

// Reset returns the decoder to its initial state without reallocating.
// The window history is cleared so back-references into unwritten
// history read zeros, exactly as on a fresh decoder.
func (d *Decoder) Reset() {
	clear(d.window)
	d.head = 0
	d.inputLen = 0
	d.inputPos = 0
	d.bitBuf = 0
	d.bitCnt = 0
	d.state = stateTagBit
	d.backrefIndex = 0
	d.backrefCount = 0
}

// Sink buffers compressed input, returning how many bytes were
// accepted. Acceptance stops when the internal staging buffer is full;
// the caller should Poll and then Sink the remainder.
func (d *Decoder) Sink(p []byte) int {
	if d.inputPos == d.inputLen {
		d.inputPos = 0
		d.inputLen = 0
	}
	n := copy(d.input[d.inputLen:], p)
	d.inputLen += n
	return n
}

// Poll decodes into dst, returning the number of bytes produced. A
// short (or zero) count means the decoder needs more input via Sink.
func (d *Decoder) Poll(dst []byte) int {
	mask := len(d.window) - 1
	n := 0

	for n < len(dst) {
		switch d.state {
		case stateTagBit:
			b, ok := d.getBits(1)
			if !ok {
				return n
			}
			if b != 0 {
				d.state = stateYieldLiteral
			} else {
				d.backrefIndex = 0
				d.backrefCount = 0
				if d.windowBits > 8 {
					d.state = stateBackrefIndexMSB
				} else {
					d.state = stateBackrefIndexLSB
				}
			}

		case stateYieldLiteral:
			b, ok := d.getBits(8)
			if !ok {
				return n
			}
			c := byte(b)
			d.window[d.head&mask] = c
			d.head++
			dst[n] = c
			n++
			d.state = stateTagBit

		case stateBackrefIndexMSB:
			b, ok := d.getBits(d.windowBits - 8)
			if !ok {
				return n
			}
			d.backrefIndex = int(b) << 8
			d.state = stateBackrefIndexLSB

		case stateBackrefIndexLSB:
			b, ok := d.getBits(min(d.windowBits, 8))
			if !ok {
				return n
			}
			d.backrefIndex |= int(b)
			d.backrefIndex++
			if d.lookaheadBits > 8 {
				d.state = stateBackrefCountMSB
			} else {
				d.state = stateBackrefCountLSB
			}

		case stateBackrefCountMSB:
			b, ok := d.getBits(d.lookaheadBits - 8)
			if !ok {
				return n
			}
			d.backrefCount = int(b) << 8
			d.state = stateBackrefCountLSB

		case stateBackrefCountLSB:
			b, ok := d.getBits(min(d.lookaheadBits, 8))
			if !ok {
				return n
			}
			d.backrefCount |= int(b)
			d.backrefCount++
			d.state = stateYieldBackref

		case stateYieldBackref:
			for d.backrefCount > 0 && n < len(dst) {
				c := d.window[(d.head-d.backrefIndex)&mask]
				d.window[d.head&mask] = c
				d.head++
				dst[n] = c
				n++
				d.backrefCount--
			}
			if d.backrefCount == 0 {
				d.state = stateTagBit
			}
		}
	}
	return n
}

// Finish validates end-of-stream. All sunk input must have been
// consumed and no back-reference may be left partially emitted;
// trailing sub-byte padding bits are permitted.
func (d *Decoder) Finish() error {
	if d.inputPos != d.inputLen {
		return ErrTruncated
	}
	if d.state == stateYieldBackref || d.backrefCount > 0 {
		return ErrTruncated
	}
	return nil
}

// getBits pulls count (1..8) bits MSB-first from the staged input.
// Nothing is consumed on a short read.
func (d *Decoder) getBits(count uint8) (uint16, bool) {
	for d.bitCnt < count {
		if d.inputPos == d.inputLen {
			return 0, false
		}
		d.bitBuf = d.bitBuf<<8 | uint32(d.input[d.inputPos])
		d.inputPos++
		d.bitCnt += 8
	}
	v := uint16(d.bitBuf>>(d.bitCnt-count)) & (1<<count - 1)
	d.bitCnt -= count
	d.bitBuf &= 1<<d.bitCnt - 1
	return v, true
}
