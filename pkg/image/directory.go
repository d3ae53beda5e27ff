package image

import (
	"bytes"
	"fmt"
)

// Lookup resolves a path to its object. The path is normalized (leading
// separators stripped) before hashing. Resolution is a binary search
// over the hash table followed, on a hash collision, by a linear scan
// of the contiguous run of entries sharing the hash. A miss returns
// ErrNotFound.
func (im *Image) Lookup(path string) (*Object, error) {
	path = Normalize(path)
	want := Hash(path)

	first, last := 0, im.NumObjects()-1
	var middle int
	for first <= last {
		middle = first + (last-first)/2
		h, _ := im.hashEntry(middle)
		if h == want {
			break
		} else if h < want {
			first = middle + 1
		} else {
			last = middle - 1
		}
	}
	if first > last {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	// Optimistic: the landing entry is almost always the match.
	_, off := im.hashEntry(middle)
	o, err := im.objectAt(off)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(o.path, []byte(path)) {
		return o, nil
	}

	// Hash collision. Entries with equal hashes are contiguous, so
	// rewind to the first of the run and walk the run comparing paths.
	skip := middle
	for middle > 0 {
		if h, _ := im.hashEntry(middle - 1); h != want {
			break
		}
		middle--
	}
	for ; middle < im.NumObjects(); middle++ {
		h, off := im.hashEntry(middle)
		if h != want {
			break
		}
		if middle == skip {
			continue
		}
		o, err := im.objectAt(off)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(o.path, []byte(path)) {
			return o, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
}

// ObjectByIndex resolves a stable object index via the sort table.
func (im *Image) ObjectByIndex(i uint16) (*Object, error) {
	if int(i) >= im.NumObjects() {
		return nil, fmt.Errorf("%w: index %d of %d", ErrNotFound, i, im.NumObjects())
	}
	return im.objectAt(im.sortEntry(int(i)))
}

// PathByIndex recovers the stored path for a stable object index.
func (im *Image) PathByIndex(i uint16) (string, error) {
	o, err := im.ObjectByIndex(i)
	if err != nil {
		return "", err
	}
	return o.Path(), nil
}
