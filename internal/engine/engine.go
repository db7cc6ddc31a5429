// Package engine implements the coupled dual-structure cuckoo associative
// store: a bit-packed fingerprint table (internal/tagtable) and a parallel
// side map (internal/sidemap) kept mutually consistent across insertion,
// cuckoo eviction, the victim cache, deletion, and the false-positive
// remediation routine that fires on lookup.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"cuckoostore/internal/hashing"
	"cuckoostore/internal/logging"
	"cuckoostore/internal/sidemap"
	"cuckoostore/internal/tagtable"
)

// defaultMaxCuckooCount and defaultTargetLoadFactor are the fallbacks used
// when a Config leaves MaxCuckooCount/TargetLoadFactor at zero.
const (
	defaultMaxCuckooCount   = 500
	defaultTargetLoadFactor = 0.96
)

// Victim holds the single key/value pair that could not be placed in the
// table after maxCuckooCount relocations. A nil *Victim means empty — a sum
// type, not a boolean flag sitting next to garbage fields.
type Victim[K comparable, V any] struct {
	Index   uint64
	TagHash uint64
	Key     K
	Val     V
}

// EngineError reports a construction-time condition a caller might want to
// branch on. Mutating and lookup operations keep the plain boolean-return
// contract the spec calls for; EngineError exists only for New.
type EngineError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine %s failed: %s (caused by: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("engine %s failed: %s", e.Operation, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Cause }

// Stats mirrors the operation counters a caller would want for monitoring,
// without being part of the boolean-return public surface.
type Stats struct {
	InsertOperations  uint64
	FindOperations    uint64
	EraseOperations   uint64
	EvictionChains    uint64
	MaxEvictionLength int
	RemediationCount  uint64
}

// Config configures a newly constructed Engine.
type Config[K comparable, V any] struct {
	// CapacityHint is the expected number of items; N is sized from it
	// per the construction rule in numBucketsFor.
	CapacityHint uint64
	// FingerprintBits is the tag width b. Defaults to 12 if zero.
	FingerprintBits uint8
	// Hasher derives (i1, i2, tag[4], tagHash) for a key. Required.
	Hasher hashing.KeyHasher[K]
	// Rand seeds the remediation and kickout-slot selection. Defaults to
	// a fixed seed if nil — inject your own for deterministic tests or
	// genuine unpredictability in production.
	Rand *rand.Rand
	// MaxCuckooCount bounds the relocations insertImpl will attempt before
	// falling back to the victim cache. Defaults to 500 if zero.
	MaxCuckooCount int
	// TargetLoadFactor is the load factor above which N is doubled at
	// construction time. Defaults to 0.96 if zero.
	TargetLoadFactor float64
}

// Engine is the coupled dual-structure cuckoo associative store. It is
// single-threaded cooperative: the mutex below exists only so a caller that
// wants thread safety gets the single exclusive lock the design calls for
// around insert/find/contains/erase, since C5 mutates during reads.
// FindInFilter is read-only over the table and documented separately.
type Engine[K comparable, V any] struct {
	mu sync.Mutex

	table  *tagtable.Table
	side   *sidemap.Map[K, V]
	hasher hashing.KeyHasher[K]
	rng    *rand.Rand

	bits           uint8
	numItems       uint64
	victim         *Victim[K, V]
	maxCuckooCount int

	id uuid.UUID

	stats Stats
}

// New builds an Engine. N is chosen as the least power of two >=
// ceil(capacityHint/4), doubled if the resulting load factor would exceed
// cfg.TargetLoadFactor — the caller's hint is honoured, not overridden by a
// hardcoded constant.
func New[K comparable, V any](cfg Config[K, V]) (*Engine[K, V], error) {
	if cfg.Hasher == nil {
		return nil, &EngineError{Operation: "new", Message: "hasher must not be nil"}
	}

	bits := cfg.FingerprintBits
	if bits == 0 {
		bits = 12
	}
	if bits > 32 {
		return nil, &EngineError{Operation: "new", Message: "fingerprint_bits must be between 1 and 32"}
	}

	maxCuckooCount := cfg.MaxCuckooCount
	if maxCuckooCount == 0 {
		maxCuckooCount = defaultMaxCuckooCount
	}
	if maxCuckooCount < 0 {
		return nil, &EngineError{Operation: "new", Message: "max_cuckoo_count must be >= 0"}
	}

	targetLoadFactor := cfg.TargetLoadFactor
	if targetLoadFactor == 0 {
		targetLoadFactor = defaultTargetLoadFactor
	}
	if targetLoadFactor <= 0 || targetLoadFactor > 1 {
		return nil, &EngineError{Operation: "new", Message: "target_load_factor must be in (0, 1]"}
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	n := numBucketsFor(cfg.CapacityHint, targetLoadFactor)

	e := &Engine[K, V]{
		table:          tagtable.New(n, bits),
		side:           sidemap.New[K, V](),
		hasher:         cfg.Hasher,
		rng:            rng,
		bits:           bits,
		maxCuckooCount: maxCuckooCount,
		id:             uuid.New(),
	}

	logging.Info(context.Background(), logging.ComponentEngine, logging.ActionValidation,
		fmt.Sprintf("engine %s constructed with %d buckets, %d-bit tags, max cuckoo count %d",
			e.id, n, bits, maxCuckooCount))

	return e, nil
}

// numBucketsFor picks N as the least power of two >= ceil(capacityHint/4),
// doubled once more if the load factor at capacityHint would exceed
// targetLoadFactor. A hint of 0 or 1 still yields a valid, non-empty table
// (N >= 1).
func numBucketsFor(capacityHint uint64, targetLoadFactor float64) uint64 {
	if capacityHint == 0 {
		capacityHint = 1
	}
	need := (capacityHint + 3) / 4
	if need == 0 {
		need = 1
	}
	n := nextPowerOfTwo(need)
	if float64(capacityHint)/float64(n*4) > targetLoadFactor {
		n *= 2
	}
	return n
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

func (e *Engine[K, V]) derive(key K) hashing.Derived {
	return e.hasher.Derive(key, e.table.NumBuckets(), e.bits)
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("cuckoostore: internal consistency fault: "+format, args...))
	}
}

// Size returns the current number of items: non-zero table tags plus one if
// the victim cache is occupied. Decremented on successful erase and on
// victim clear, so it reports live occupancy rather than a high-water mark.
func (e *Engine[K, V]) Size() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numItems
}

// SizeInBytes forwards the fingerprint table's packed storage footprint.
func (e *Engine[K, V]) SizeInBytes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.SizeInBytes()
}

// Capacity returns the total slot count, 4*N.
func (e *Engine[K, V]) Capacity() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.SizeInTags()
}

// LoadFactor returns numItems / (4*N).
func (e *Engine[K, V]) LoadFactor() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.numItems) / float64(e.table.SizeInTags())
}

// Stats returns a snapshot of the operation counters.
func (e *Engine[K, V]) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Info returns a human-readable summary including load factor and bits/key.
func (e *Engine[K, V]) Info() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	capacity := e.table.SizeInTags()
	loadFactor := float64(e.numItems) / float64(capacity)

	var bitsPerKey float64
	if e.numItems > 0 {
		bitsPerKey = float64(e.table.SizeInBytes()*8) / float64(e.numItems)
	}

	victimStatus := "empty"
	if e.victim != nil {
		victimStatus = "occupied"
	}

	return fmt.Sprintf(
		"cuckoostore engine %s: %d buckets, %d-bit tags, %d/%d slots occupied (load factor %.4f), %.2f bits/key, victim %s",
		e.id, e.table.NumBuckets(), e.bits, e.numItems, capacity, loadFactor, bitsPerKey, victimStatus,
	)
}
