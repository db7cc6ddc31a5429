package hashing_test

import (
	"testing"

	"cuckoostore/internal/hashing"
)

// TestDeterministic verifies the same key always derives the same indices
// and fingerprints.
func TestDeterministic(t *testing.T) {
	h := hashing.StringKeyHasher()

	d1 := h.Derive("alpha", 1024, 12)
	d2 := h.Derive("alpha", 1024, 12)

	if d1 != d2 {
		t.Fatalf("derivation is not deterministic: %+v != %+v", d1, d2)
	}
}

// TestTagNeverZero checks the zero-to-one sentinel rule holds across many
// keys and bit widths.
func TestTagNeverZero(t *testing.T) {
	h := hashing.Uint64KeyHasher()

	for bits := uint8(4); bits <= 16; bits++ {
		for k := uint64(0); k < 2000; k++ {
			d := h.Derive(k, 1<<14, bits)
			for s, tag := range d.Tag {
				if tag == 0 {
					t.Fatalf("bits=%d key=%d slot=%d: tag derived as 0", bits, k, s)
				}
			}
		}
	}
}

// TestIndicesWithinRange checks i1/i2 are always within [0, numBuckets).
func TestIndicesWithinRange(t *testing.T) {
	h := hashing.Uint64KeyHasher()
	numBuckets := uint64(256)

	for k := uint64(0); k < 5000; k++ {
		d := h.Derive(k, numBuckets, 12)
		if d.I1 >= numBuckets || d.I2 >= numBuckets {
			t.Fatalf("key=%d: indices out of range (i1=%d, i2=%d, numBuckets=%d)", k, d.I1, d.I2, numBuckets)
		}
	}
}

// TestFixedTagHashScenario reproduces the worked example: with b = 12 and a
// fixed tag_hash of 0x00000F00E00D00C, the four tags extracted in order
// (low 12 bits first) are 0xC, 0xD, 0xE, 0xF.
func TestFixedTagHashScenario(t *testing.T) {
	const tagHash = uint64(0x00000F00E00D00C)
	const bits = 12

	want := [4]uint32{0xC, 0xD, 0xE, 0xF}

	tagMask := uint32(1)<<bits - 1
	tmp := tagHash
	var got [4]uint32
	for s := 0; s < 4; s++ {
		tag := uint32(tmp) & tagMask
		if tag == 0 {
			tag = 1
		}
		got[s] = tag
		tmp >>= bits
	}

	if got != want {
		t.Fatalf("tag extraction mismatch: got %v, want %v", got, want)
	}
}
