package engine

import (
	"context"

	"cuckoostore/internal/logging"
)

// remediate reshuffles the false-positive site (index, slot) — tag matched,
// key did not — with a uniformly chosen sibling slot in the same bucket, so
// the same fingerprint alias is less likely to recur at this coordinate.
// Must be called with e.mu held.
//
// kA was occupying slot with fingerprint tagA[slot], which aliased the
// queried key's tag[slot]. Moving kA to newSlot changes its fingerprint to
// tagA[newSlot] — derived from a different slot index, so independent of
// the aliasing one. The fingerprint left behind at (index, slot) is now
// either zero or tagB[slot]. Only one key ever leaves or enters (index,
// slot) per call; invariant 2 holds because both kA and kB already have
// index in their {i1, i2} set.
//
// The slot draw uses rng.Intn(3) remapped so {0,1,2,3}\{slot} is covered
// uniformly, rather than the biased rand()%3-then-remap the reference uses —
// the spec calls uniform selection acceptable and the bias buys nothing.
func (e *Engine[K, V]) remediate(index uint64, slot uint8) {
	e.stats.RemediationCount++

	newSlot := uint8(e.rng.Intn(3))
	if newSlot == slot {
		newSlot = 3
	}

	emptyNewSlot := e.table.ReadTag(index, newSlot) == 0

	kA, vA, ok := e.side.ReadAt(index, slot)
	assertf(ok, "side map missing entry at (%d,%d) during remediation", index, slot)
	tagA := e.derive(kA)

	var kB K
	var vB V
	var tagBslot uint32
	if !emptyNewSlot {
		var okB bool
		kB, vB, okB = e.side.ReadAt(index, newSlot)
		assertf(okB, "side map missing entry at (%d,%d) during remediation", index, newSlot)
		tagBslot = e.derive(kB).Tag[slot]
	}

	if emptyNewSlot {
		e.table.WriteTag(index, slot, 0)
	} else {
		e.table.WriteTag(index, slot, tagBslot)
	}
	e.table.WriteTag(index, newSlot, tagA.Tag[newSlot])

	if emptyNewSlot {
		e.side.DeleteAt(index, slot)
	} else {
		e.side.AddAt(index, slot, kB, vB)
	}
	e.side.AddAt(index, newSlot, kA, vA)

	logging.Debug(context.Background(), logging.ComponentEngine, logging.ActionRemediate,
		"reshuffled false-positive site within bucket")
}
