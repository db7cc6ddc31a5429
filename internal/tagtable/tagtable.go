// Package tagtable implements the bit-packed fingerprint table: N buckets of
// four slots each, every slot holding a tag of a fixed bit width. Only the
// fingerprint bits live here — never a key or value.
package tagtable

import "math/rand"

// PlacementKind is the tagged result of InsertTagToBucket, surfacing the
// engine's choice explicitly instead of a bool plus an out-parameter.
type PlacementKind uint8

const (
	// Placed means an empty slot was found and the tag was written there.
	Placed PlacementKind = iota
	// MustKick means no slot was empty, kickout was requested, and a slot
	// was chosen and overwritten — the caller must now read the evicted
	// entry out of the side map before it writes its own entry in.
	MustKick
	// Rejected means no slot was empty and kickout was not requested;
	// nothing was written.
	Rejected
)

// Placement reports what InsertTagToBucket did to a bucket.
type Placement struct {
	Kind PlacementKind
	Slot uint8
}

// Table is a bit-packed array of N buckets x 4 slots x bits-wide tags. Tag 0
// is the empty sentinel and is never written as a live fingerprint by
// WriteTag's callers (the engine enforces the zero-to-one rule at
// derivation time, before any tag reaches the table).
type Table struct {
	numBuckets uint64
	bits       uint8
	data       []byte
}

// New builds a table of numBuckets buckets (must already be a power of two;
// the engine is responsible for rounding) with tags of the given bit width.
func New(numBuckets uint64, bits uint8) *Table {
	totalBits := numBuckets * 4 * uint64(bits)
	numBytes := (totalBits + 7) / 8
	return &Table{
		numBuckets: numBuckets,
		bits:       bits,
		data:       make([]byte, numBytes),
	}
}

// NumBuckets returns N.
func (t *Table) NumBuckets() uint64 { return t.numBuckets }

// SizeInTags returns 4*N, the total slot count.
func (t *Table) SizeInTags() uint64 { return t.numBuckets * 4 }

// SizeInBytes returns the packed storage footprint.
func (t *Table) SizeInBytes() uint64 { return uint64(len(t.data)) }

func (t *Table) bitOffset(i uint64, s uint8) uint64 {
	return (i*4 + uint64(s)) * uint64(t.bits)
}

// ReadTag returns the tag currently stored at (bucket i, slot s).
func (t *Table) ReadTag(i uint64, s uint8) uint32 {
	return readBits(t.data, t.bitOffset(i, s), t.bits)
}

// WriteTag overwrites the tag at (bucket i, slot s).
func (t *Table) WriteTag(i uint64, s uint8, tag uint32) {
	writeBits(t.data, t.bitOffset(i, s), t.bits, tag)
}

// InsertTagToBucket scans the four slots of bucket i for an empty slot (stored
// tag 0). If one is found, it writes tag[slot] there and reports Placed. Otherwise, if
// kickout is true, it picks a slot (via rng, so the choice is reproducible
// under a seeded generator), overwrites it with tag[slot], and reports
// MustKick — the caller must read the evicted entry out of the side map
// using the reported slot before writing its own entry there, since the
// table write has already landed. If kickout is false and no slot is empty,
// nothing is written and Rejected is reported.
func (t *Table) InsertTagToBucket(i uint64, tag [4]uint32, kickout bool, rng *rand.Rand) Placement {
	for s := uint8(0); s < 4; s++ {
		if t.ReadTag(i, s) == 0 {
			t.WriteTag(i, s, tag[s])
			return Placement{Kind: Placed, Slot: s}
		}
	}
	if !kickout {
		return Placement{Kind: Rejected}
	}
	slot := uint8(rng.Intn(4))
	t.WriteTag(i, slot, tag[slot])
	return Placement{Kind: MustKick, Slot: slot}
}

func readBits(data []byte, bitOffset uint64, width uint8) uint32 {
	var result uint32
	for b := uint8(0); b < width; b++ {
		bitIdx := bitOffset + uint64(b)
		if data[bitIdx/8]&(1<<(bitIdx%8)) != 0 {
			result |= 1 << b
		}
	}
	return result
}

func writeBits(data []byte, bitOffset uint64, width uint8, value uint32) {
	for b := uint8(0); b < width; b++ {
		bitIdx := bitOffset + uint64(b)
		byteIdx := bitIdx / 8
		bitInByte := bitIdx % 8
		if value&(1<<b) != 0 {
			data[byteIdx] |= 1 << bitInByte
		} else {
			data[byteIdx] &^= 1 << bitInByte
		}
	}
}
