// Package sidemap implements the external key/value map addressed by
// (bucket, slot) coordinates that mirrors the fingerprint table's occupancy.
// It is the other half of the engine's dual-structure coupling: grounded on
// the map-plus-filter pairing pattern of a production key/value store, but
// narrowed to the three coordinate-addressed operations the engine needs.
package sidemap

// Coord addresses a single slot within the fingerprint table.
type Coord struct {
	Bucket uint64
	Slot   uint8
}

// Map holds the (K, V) pair for every occupied (bucket, slot) coordinate.
// The engine is the sole caller and is itself single-threaded cooperative
// (see the concurrency notes on Engine), so Map does no internal locking of
// its own — the one lock lives at the engine's public API boundary.
type Map[K comparable, V any] struct {
	entries map[Coord]pair[K, V]
}

type pair[K comparable, V any] struct {
	key K
	val V
}

// New builds an empty side map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{entries: make(map[Coord]pair[K, V])}
}

// AddAt sets the entry at (i, s), replacing any prior entry at that
// coordinate.
func (m *Map[K, V]) AddAt(i uint64, s uint8, k K, v V) {
	m.entries[Coord{Bucket: i, Slot: s}] = pair[K, V]{key: k, val: v}
}

// ReadAt returns the entry at (i, s). Calling this on a coordinate whose
// fingerprint-table tag is zero yields unspecified content; the engine only
// reads coordinates it has already confirmed are tag-occupied.
func (m *Map[K, V]) ReadAt(i uint64, s uint8) (K, V, bool) {
	p, ok := m.entries[Coord{Bucket: i, Slot: s}]
	return p.key, p.val, ok
}

// DeleteAt removes the entry at (i, s), if any.
func (m *Map[K, V]) DeleteAt(i uint64, s uint8) {
	delete(m.entries, Coord{Bucket: i, Slot: s})
}
