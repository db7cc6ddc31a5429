package engine

import "cuckoostore/internal/sidemap"

// FindInFilter reports whether key might be present, using only the
// fingerprint table: no key comparison, no side-map access, no mutation. It
// is the pure cuckoo-filter membership test and may return false positives.
// It never schedules remediation — I4 requires findinfilter to never mutate
// observable state, and remediation only fires from Find/Contains/Erase.
//
// Read-only over the table, FindInFilter may run concurrently with itself
// so long as tagtable.Table.ReadTag tolerates non-torn reads, which it does:
// every read walks the packed byte slice independently of any concurrent
// write. It is not safe to run concurrently with Insert/Find/Contains/Erase.
func (e *Engine[K, V]) FindInFilter(key K) bool {
	d := e.derive(key)

	if v := e.victimSnapshot(); v != nil && v.Key == key && (v.Index == d.I1 || v.Index == d.I2) {
		return true
	}

	if e.table.ReadTag(d.I1, 0) == d.Tag[0] || e.table.ReadTag(d.I1, 1) == d.Tag[1] ||
		e.table.ReadTag(d.I1, 2) == d.Tag[2] || e.table.ReadTag(d.I1, 3) == d.Tag[3] {
		return true
	}
	if d.I2 == d.I1 {
		return false
	}
	return e.table.ReadTag(d.I2, 0) == d.Tag[0] || e.table.ReadTag(d.I2, 1) == d.Tag[1] ||
		e.table.ReadTag(d.I2, 2) == d.Tag[2] || e.table.ReadTag(d.I2, 3) == d.Tag[3]
}

// victimSnapshot reads the victim pointer under the engine lock, since
// FindInFilter is documented to run concurrently with itself but must still
// see a coherent victim snapshot rather than a torn pointer read.
func (e *Engine[K, V]) victimSnapshot() *Victim[K, V] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.victim
}

// Find reports whether key is present, returning its value on success.
// Every fingerprint match across both candidate buckets is examined, not
// just the first, because any false-positive site discovered along the way
// must be handed to remediation before Find returns.
func (e *Engine[K, V]) Find(key K) (V, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.FindOperations++
	return e.scanLocked(key)
}

// Contains reports whether key is present, without returning its value.
func (e *Engine[K, V]) Contains(key K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.FindOperations++
	_, ok := e.scanLocked(key)
	return ok
}

// scanLocked implements the shared find/contains skeleton: check the
// victim, scan both candidate buckets for tag matches, resolve each match
// against the side map, collect every false-positive site, remediate all of
// them, and report whether key was found. Must be called with e.mu held.
func (e *Engine[K, V]) scanLocked(key K) (V, bool) {
	var zero, found V
	hit := false

	d := e.derive(key)

	if e.victim != nil && e.victim.Key == key && (e.victim.Index == d.I1 || e.victim.Index == d.I2) {
		found = e.victim.Val
		hit = true
	}

	indices := [2]uint64{d.I1, d.I2}
	count := 2
	if d.I1 == d.I2 {
		count = 1
	}

	var falsePositives []sidemap.Coord
	for bi := 0; bi < count; bi++ {
		idx := indices[bi]
		for s := uint8(0); s < 4; s++ {
			if e.table.ReadTag(idx, s) != d.Tag[s] {
				continue
			}
			sk, sv, ok := e.side.ReadAt(idx, s)
			assertf(ok, "side map missing entry at (%d,%d) despite non-zero tag", idx, s)
			if sk == key {
				found = sv
				hit = true
			} else {
				falsePositives = append(falsePositives, sidemap.Coord{Bucket: idx, Slot: s})
			}
		}
	}

	for _, site := range falsePositives {
		e.remediate(site.Bucket, site.Slot)
	}

	if !hit {
		return zero, false
	}
	return found, true
}
