// Package bitmap is a fixed-capacity bitset over non-negative int64 IDs.
// It backs key membership checks when the key space is small and dense.
package bitmap

import "math/bits"

// Bitmap holds IDs in [0, Cap()).
type Bitmap struct {
	words []uint64
	n     int
}

// New returns a bitmap able to hold every ID in [0, maxID]. A negative maxID
// yields an empty bitmap that holds nothing.
func New(maxID int64) *Bitmap {
	if maxID < 0 {
		return &Bitmap{}
	}
	return &Bitmap{words: make([]uint64, maxID/64+1)}
}

// Cap is one past the largest ID the bitmap can hold.
func (b *Bitmap) Cap() int64 { return int64(len(b.words)) * 64 }

// Add sets id and reports whether it fits. IDs outside [0, Cap()) are ignored.
func (b *Bitmap) Add(id int64) bool {
	if id < 0 || id >= b.Cap() {
		return false
	}
	w, mask := id/64, uint64(1)<<uint(id%64)
	if b.words[w]&mask == 0 {
		b.words[w] |= mask
		b.n++
	}
	return true
}

// Has reports whether id is set.
func (b *Bitmap) Has(id int64) bool {
	if id < 0 || id >= b.Cap() {
		return false
	}
	return b.words[id/64]&(uint64(1)<<uint(id%64)) != 0
}

// Len is the number of IDs set.
func (b *Bitmap) Len() int { return b.n }

// Count recomputes Len from the words.
func (b *Bitmap) Count() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}
