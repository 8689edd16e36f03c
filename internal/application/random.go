package application

import (
	"math/rand/v2"

	"github.com/bryanwahyu/argus/internal/domain/analysis"
)

// RandSource hands out a Rand for a single request.
type RandSource interface {
	New() analysis.Rand
}

// SystemRand seeds an independent PCG per request from the runtime's
// concurrency-safe generator, so requests never share generator state.
type SystemRand struct{}

func (SystemRand) New() analysis.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// SeededRand returns generators that all start from the same seed. Used by tests and the CLI --seed flag.
type SeededRand struct {
	Seed1, Seed2 uint64
}

func (s SeededRand) New() analysis.Rand {
	return rand.New(rand.NewPCG(s.Seed1, s.Seed2))
}
