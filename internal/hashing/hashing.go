// Package hashing derives the cuckoo bucket indices and per-slot
// fingerprints used to place and locate a key in the engine.
package hashing

import "github.com/cespare/xxhash/v2"

// Derived holds everything the engine needs to place or look up a single
// key: its two independent candidate bucket indices, its per-slot
// fingerprints, and the raw 64-bit tag hash those fingerprints were sliced
// from (kept around so a victim can be re-derived without the original key
// bytes on hand).
//
// Tag[s] is the fingerprint used when the key occupies slot s — unlike a
// textbook cuckoo filter, the fingerprint here depends on the destination
// slot, not just the key.
type Derived struct {
	I1, I2  uint64
	Tag     [4]uint32
	TagHash uint64
}

// KeyHasher derives bucket indices and per-slot fingerprints for a key of
// type K against a table of numBuckets buckets and fingerprintBits-wide
// tags. Implementations must be deterministic: the same key, numBuckets,
// and fingerprintBits always yield the same Derived.
type KeyHasher[K comparable] interface {
	Derive(key K, numBuckets uint64, fingerprintBits uint8) Derived
}

// Distinct suffix bytes appended to a key's serialization before hashing,
// so the two bucket hashes and the tag hash are independent draws from the
// same hash family rather than correlated derivatives of one another.
const (
	seedBucket1 byte = 0x00
	seedBucket2 byte = 0x5a
	seedTag     byte = 0xa5
)

// XXHasher derives keys via xxhash, serializing K through ToBytes. It is
// the default KeyHasher for any comparable K that can be turned into bytes.
type XXHasher[K comparable] struct {
	ToBytes func(K) []byte
}

// NewXXHasher builds an XXHasher for keys serialized via toBytes.
func NewXXHasher[K comparable](toBytes func(K) []byte) XXHasher[K] {
	return XXHasher[K]{ToBytes: toBytes}
}

// Derive implements KeyHasher.
func (h XXHasher[K]) Derive(key K, numBuckets uint64, fingerprintBits uint8) Derived {
	raw := h.ToBytes(key)

	buf := make([]byte, len(raw)+1)
	copy(buf, raw)

	buf[len(raw)] = seedBucket1
	h1 := xxhash.Sum64(buf)
	buf[len(raw)] = seedBucket2
	h2 := xxhash.Sum64(buf)
	buf[len(raw)] = seedTag
	tagHash := xxhash.Sum64(buf)

	mask := numBuckets - 1
	d := Derived{
		I1:      h1 & mask,
		I2:      h2 & mask,
		TagHash: tagHash,
	}

	tagMask := uint32(1)<<fingerprintBits - 1
	tmp := tagHash
	for s := 0; s < 4; s++ {
		t := uint32(tmp) & tagMask
		if t == 0 {
			t = 1
		}
		d.Tag[s] = t
		tmp >>= fingerprintBits
	}
	return d
}

// StringKeyHasher returns a KeyHasher for string keys.
func StringKeyHasher() XXHasher[string] {
	return NewXXHasher[string](func(s string) []byte { return []byte(s) })
}

// Uint64KeyHasher returns a KeyHasher for uint64 keys.
func Uint64KeyHasher() XXHasher[uint64] {
	return NewXXHasher[uint64](func(k uint64) []byte {
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[i] = byte(k >> (8 * i))
		}
		return b[:]
	})
}
