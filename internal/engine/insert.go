package engine

import (
	"context"

	"cuckoostore/internal/logging"
	"cuckoostore/internal/tagtable"
)

// Insert places (key, val) into the engine. It returns false only when the
// victim cache was already occupied on entry — the structure is effectively
// full. If the key ends up in the victim cache after exhausting the
// relocation budget, Insert still returns true: the value is logically
// present and Find will surface it via the victim path.
func (e *Engine[K, V]) Insert(key K, val V) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.InsertOperations++

	if e.victim != nil {
		return false
	}

	d := e.derive(key)
	return e.insertImpl(key, val, d.I1, d.Tag, d.TagHash)
}

// insertImpl runs the cuckoo relocation loop starting at curIndex. On a
// kick, the evicted (old_key, old_val) is read from the side map only after
// the tag table has already been overwritten for the new tag, and the new
// key is written to the side map only after that read — side-map writes
// trail table writes by exactly one step, which is why the reported slot
// from InsertTagToBucket is needed even when it reports MustKick rather
// than Placed.
func (e *Engine[K, V]) insertImpl(curKey K, curVal V, curIndex uint64, curTag [4]uint32, curTagHash uint64) bool {
	// chained tracks whether this call has kicked at least once, so
	// EvictionChains counts once per insertImpl call that needed kicking —
	// matching the teacher's evictAndInsert semantics — rather than once
	// per relocation hop within the chain.
	chained := false

	for n := 0; n < e.maxCuckooCount; n++ {
		kickout := n > 0
		placement := e.table.InsertTagToBucket(curIndex, curTag, kickout, e.rng)

		switch placement.Kind {
		case tagtable.Placed:
			e.side.AddAt(curIndex, placement.Slot, curKey, curVal)
			assertf(e.table.ReadTag(curIndex, placement.Slot) == curTag[placement.Slot],
				"tag read back mismatch at (%d,%d)", curIndex, placement.Slot)
			e.numItems++
			if chained {
				e.stats.EvictionChains++
			}
			return true

		case tagtable.MustKick:
			oldKey, oldVal, ok := e.side.ReadAt(curIndex, placement.Slot)
			assertf(ok, "side map missing entry at (%d,%d) despite non-zero tag", curIndex, placement.Slot)
			e.side.AddAt(curIndex, placement.Slot, curKey, curVal)

			chained = true
			if n+1 > e.stats.MaxEvictionLength {
				e.stats.MaxEvictionLength = n + 1
			}

			curKey, curVal = oldKey, oldVal
			d := e.derive(curKey)
			if curIndex == d.I1 {
				curIndex = d.I2
			} else {
				curIndex = d.I1
			}
			curTag, curTagHash = d.Tag, d.TagHash

			logging.Debug(context.Background(), logging.ComponentEngine, logging.ActionEvict,
				"relocated displaced key to alternate bucket")

		case tagtable.Rejected:
			// kickout was false on this iteration (only possible at
			// n == 0); the next iteration retries the same index with
			// kickout true, which always resolves to Placed or MustKick.
		}
	}

	e.victim = &Victim[K, V]{Index: curIndex, TagHash: curTagHash, Key: curKey, Val: curVal}
	e.numItems++
	if chained {
		e.stats.EvictionChains++
	}
	logging.Warn(context.Background(), logging.ComponentEngine, logging.ActionVictim,
		"relocation budget exhausted, key held in victim cache")
	return true
}
