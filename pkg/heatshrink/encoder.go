package heatshrink

import "fmt"

// Compress encodes data as a heatshrink bitstream with the given window
// and lookahead size exponents. The output decodes to exactly data via
// a Decoder constructed with the same exponents.
//
// The matcher is a straightforward greedy scan over the trailing
// window; it favors simplicity over ratio, which is fine for the small
// assets this format targets.
func Compress(data []byte, windowBits, lookaheadBits uint8) ([]byte, error) {
	if windowBits < MinWindowBits || windowBits > MaxWindowBits ||
		lookaheadBits < MinLookaheadBits || lookaheadBits >= windowBits {
		return nil, fmt.Errorf("%w: window=%d lookahead=%d",
			ErrBadConfig, windowBits, lookaheadBits)
	}

	windowSize := 1 << windowBits
	maxMatch := 1 << lookaheadBits

	// A back-reference costs 1+windowBits+lookaheadBits bits; a literal
	// costs 9. Only emit a back-reference when it beats literals.
	backrefBits := 1 + int(windowBits) + int(lookaheadBits)
	minMatch := backrefBits/9 + 1

	var w bitWriter
	for i := 0; i < len(data); {
		bestLen, bestDist := 0, 0
		start := max(i-windowSize, 0)
		limit := min(maxMatch, len(data)-i)
		for j := i - 1; j >= start; j-- {
			k := 0
			for k < limit && data[j+k] == data[i+k] {
				k++
			}
			if k > bestLen {
				bestLen = k
				bestDist = i - j
				if k == limit {
					break
				}
			}
		}

		if bestLen >= minMatch && bestLen*9 > backrefBits {
			w.push(0, 1)
			w.push(uint16(bestDist-1), windowBits)
			w.push(uint16(bestLen-1), lookaheadBits)
			i += bestLen
		} else {
			w.push(1, 1)
			w.push(uint16(data[i]), 8)
			i++
		}
	}
	return w.flush(), nil
}

// bitWriter packs values MSB-first, padding the final byte with zero
// bits.
type bitWriter struct {
	out    []byte
	cur    uint16
	curLen uint8
}

func (w *bitWriter) push(v uint16, bits uint8) {
	for b := int(bits) - 1; b >= 0; b-- {
		w.cur <<= 1
		if v&(1<<b) != 0 {
			w.cur |= 1
		}
		w.curLen++
		if w.curLen == 8 {
			w.out = append(w.out, byte(w.cur))
			w.cur = 0
			w.curLen = 0
		}
	}
}

func (w *bitWriter) flush() []byte {
	if w.curLen > 0 {
		w.out = append(w.out, byte(w.cur<<(8-w.curLen)))
		w.cur = 0
		w.curLen = 0
	}
	return w.out
}
