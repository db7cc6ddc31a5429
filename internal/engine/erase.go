package engine

import (
	"context"

	"cuckoostore/internal/logging"
	"cuckoostore/internal/sidemap"
)

// Erase removes key from the engine. It returns false if key was found
// nowhere — neither the victim nor a tag-matched, key-matched table slot.
// Every false-positive site discovered during the scan is remediated,
// mirroring Find's scan discipline.
//
// num_items is decremented on a successful erase and on a victim clear,
// departing from the reference's monotone counter (treated as a likely
// bug): Size reports live occupancy rather than a high-water mark.
//
// If the erased entry freed a table slot and the victim cache was still
// occupied, the victim is pulled out and re-placed via insertImpl using
// fingerprints re-derived from its stored key — it may land back in the
// table now that a slot is free, or fall straight back into the victim
// cache if it doesn't.
func (e *Engine[K, V]) Erase(key K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.EraseOperations++

	d := e.derive(key)
	found := false

	if e.victim != nil && e.victim.Key == key && (e.victim.Index == d.I1 || e.victim.Index == d.I2) {
		e.victim = nil
		e.numItems--
		found = true
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
			sk, _, ok := e.side.ReadAt(idx, s)
			assertf(ok, "side map missing entry at (%d,%d) despite non-zero tag", idx, s)
			if sk == key {
				e.table.WriteTag(idx, s, 0)
				e.side.DeleteAt(idx, s)
				e.numItems--
				found = true
			} else {
				falsePositives = append(falsePositives, sidemap.Coord{Bucket: idx, Slot: s})
			}
		}
	}

	for _, site := range falsePositives {
		e.remediate(site.Bucket, site.Slot)
	}

	if !found {
		return false
	}

	if e.victim != nil {
		v := e.victim
		e.victim = nil
		// v already contributed 1 to numItems while parked in the victim
		// cache; insertImpl increments again on placement, so drop that
		// count here to avoid double-counting the same logical item.
		e.numItems--
		vd := e.derive(v.Key)
		e.insertImpl(v.Key, v.Val, vd.I1, vd.Tag, vd.TagHash)
		logging.Debug(context.Background(), logging.ComponentEngine, logging.ActionVictim,
			"re-placed victim after erase freed a slot")
	}

	return true
}
