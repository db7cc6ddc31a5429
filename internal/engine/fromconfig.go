package engine

import (
	"math/rand"

	"cuckoostore/internal/hashing"
	"cuckoostore/pkg/config"
)

// NewFromSettings builds an Engine from a loaded pkg/config.EngineConfig,
// the seam between the YAML-driven configuration surface and the engine's
// own Config. rng may be nil to take New's default seed.
func NewFromSettings[K comparable, V any](settings config.EngineConfig, hasher hashing.KeyHasher[K], rng *rand.Rand) (*Engine[K, V], error) {
	return New(Config[K, V]{
		CapacityHint:     settings.CapacityHint,
		FingerprintBits:  settings.FingerprintBits,
		Hasher:           hasher,
		Rand:             rng,
		MaxCuckooCount:   settings.MaxCuckooCount,
		TargetLoadFactor: settings.TargetLoadFactor,
	})
}
