package filter

import (
	"context"
	"math"
	"math/rand"
	"time"

	"cuckoostore/internal/engine"
	"cuckoostore/internal/hashing"
	"cuckoostore/internal/logging"
)

// CuckooFilter adapts a cuckoostore Engine — keyed by the raw key bytes as a
// string, valued by an empty struct — to the narrower ProbabilisticFilter
// surface for callers that only need approximate membership, not
// authoritative values. It is the same engine FindInFilter serves, wrapped
// so an existing probabilistic-filter caller does not need to know about
// keys and values at all.
type CuckooFilter struct {
	config          *FilterConfig
	eng             *engine.Engine[string, struct{}]
	fingerprintBits uint8

	successfulAdds    uint64
	failedAdds        uint64
	successfulDeletes uint64
	failedDeletes     uint64

	createdAt      time.Time
	lastModified   time.Time
	lastStatsReset time.Time
}

// NewCuckooFilter creates a new Cuckoo filter with the specified configuration.
func NewCuckooFilter(config *FilterConfig) (*CuckooFilter, error) {
	if config == nil {
		return nil, ErrConfigInvalid
	}
	if config.ExpectedItems == 0 {
		return nil, &FilterError{Operation: "create", Message: "expected_items must be greater than 0"}
	}
	if config.FalsePositiveRate <= 0 || config.FalsePositiveRate >= 1 {
		return nil, &FilterError{Operation: "create", Message: "false_positive_rate must be between 0 and 1"}
	}
	if config.HashFunction != "" && config.HashFunction != "xxhash" {
		return nil, &FilterError{Operation: "create", Message: "hash_function " + config.HashFunction + " is not wired, only xxhash is"}
	}

	fingerprintBits := config.FingerprintSize
	if fingerprintBits == 0 {
		fingerprintBits = calculateOptimalFingerprintSize(config.FalsePositiveRate)
	}

	eng, err := engine.New(engine.Config[string, struct{}]{
		CapacityHint:    config.ExpectedItems,
		FingerprintBits: fingerprintBits,
		Hasher:          hashing.StringKeyHasher(),
		Rand:            rand.New(rand.NewSource(1)),
	})
	if err != nil {
		return nil, &FilterError{Operation: "create", Message: "failed to build engine", Cause: err}
	}

	now := time.Now()
	logging.Info(context.Background(), logging.ComponentFilter, logging.ActionValidation,
		"cuckoo filter constructed: "+config.Name)

	return &CuckooFilter{
		config:          config,
		eng:             eng,
		fingerprintBits: fingerprintBits,
		createdAt:       now,
		lastModified:    now,
		lastStatsReset:  now,
	}, nil
}

// Add inserts a key into the Cuckoo filter. Fails with ErrMemoryExceeded if
// config.MemoryBudgetBytes is set and already met, without touching the
// engine; fails with ErrFilterFull if the engine's victim slot was already
// occupied. Both count as a failed add when config.EnableStatistics is set.
func (cf *CuckooFilter) Add(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if cf.config.MemoryBudgetBytes > 0 && cf.eng.SizeInBytes() >= cf.config.MemoryBudgetBytes {
		cf.recordAdd(false)
		logging.Warn(context.Background(), logging.ComponentFilter, logging.ActionInsert,
			"add rejected, memory budget exceeded")
		return ErrMemoryExceeded
	}
	if !cf.eng.Insert(string(key), struct{}{}) {
		cf.recordAdd(false)
		logging.Warn(context.Background(), logging.ComponentFilter, logging.ActionInsert,
			"add rejected, victim slot already occupied")
		return ErrFilterFull
	}
	cf.recordAdd(true)
	cf.lastModified = time.Now()
	return nil
}

// Contains checks if a key might exist in the filter.
func (cf *CuckooFilter) Contains(key []byte) bool {
	if len(key) == 0 {
		return false
	}
	return cf.eng.FindInFilter(string(key))
}

// Delete removes a key from the filter if it exists.
func (cf *CuckooFilter) Delete(key []byte) bool {
	if len(key) == 0 {
		return false
	}
	ok := cf.eng.Erase(string(key))
	cf.recordDelete(ok)
	if ok {
		cf.lastModified = time.Now()
	}
	return ok
}

// recordAdd and recordDelete update the success/failure counters GetStats
// reports, but only when config.EnableStatistics is set.
func (cf *CuckooFilter) recordAdd(success bool) {
	if !cf.config.EnableStatistics {
		return
	}
	if success {
		cf.successfulAdds++
	} else {
		cf.failedAdds++
	}
}

func (cf *CuckooFilter) recordDelete(success bool) {
	if !cf.config.EnableStatistics {
		return
	}
	if success {
		cf.successfulDeletes++
	} else {
		cf.failedDeletes++
	}
}

// Clear is not supported by the underlying engine: N is fixed for its
// lifetime and there is no bulk-reset operation. Build a fresh filter
// instead.
func (cf *CuckooFilter) Clear() error {
	return &FilterError{Operation: "clear", Message: "clear is not supported, construct a new filter instead"}
}

// Size returns the current number of items in the filter.
func (cf *CuckooFilter) Size() uint64 {
	return cf.eng.Size()
}

// Capacity returns the total slot count (4*N) the filter can hold.
func (cf *CuckooFilter) Capacity() uint64 {
	return cf.eng.Capacity()
}

// LoadFactor returns the current load factor.
func (cf *CuckooFilter) LoadFactor() float64 {
	return cf.eng.LoadFactor()
}

// GetStats returns detailed statistics about the filter.
func (cf *CuckooFilter) GetStats() *FilterStats {
	s := cf.eng.Stats()
	return &FilterStats{
		Size:              cf.eng.Size(),
		Capacity:          cf.eng.Capacity(),
		LoadFactor:        cf.eng.LoadFactor(),
		MemoryUsage:       cf.eng.SizeInBytes(),
		FalsePositiveRate: cf.FalsePositiveRate(),
		AddOperations:     s.InsertOperations,
		LookupOperations:  s.FindOperations,
		DeleteOperations:  s.EraseOperations,
		SuccessfulAdds:    cf.successfulAdds,
		FailedAdds:        cf.failedAdds,
		SuccessfulDeletes: cf.successfulDeletes,
		FailedDeletes:     cf.failedDeletes,
		EvictionChains:    s.EvictionChains,
		MaxEvictionLength: uint32(s.MaxEvictionLength),
		CreatedAt:         cf.createdAt,
		LastModified:      cf.lastModified,
		LastStatsReset:    cf.lastStatsReset,
	}
}

// EstimatedMemoryUsage returns the approximate memory usage in bytes.
func (cf *CuckooFilter) EstimatedMemoryUsage() uint64 {
	return cf.eng.SizeInBytes()
}

// FalsePositiveRate returns the theoretical false positive rate: FPR ~=
// 4 / 2^fingerprintBits, the 4 slots of one bucket. A lookup compares against
// both candidate buckets (8 slots), which this figure does not count.
func (cf *CuckooFilter) FalsePositiveRate() float64 {
	return 4.0 / math.Pow(2, float64(cf.fingerprintBits))
}

// calculateOptimalFingerprintSize picks a tag width for the given target
// false-positive rate at the fixed bucket size of 4.
func calculateOptimalFingerprintSize(fpr float64) uint8 {
	size := math.Ceil(math.Log2(4.0 / fpr))
	if size < 1 {
		size = 1
	}
	if size > 32 {
		size = 32
	}
	return uint8(size)
}
