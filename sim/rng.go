package sim

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// VariateSource is the single random-number source for one simulation run.
// Every draw the engine makes (interarrival interval, category selection,
// service duration, routing destination) consumes from the one underlying
// generator, and the draw order is part of the reproducibility contract:
// the same topology and seed must replay the exact same trajectory.
//
// Thread-safety: NOT thread-safe. A VariateSource must never be shared
// across concurrently running simulations; independent replications each
// own their own source.
type VariateSource struct {
	src rand.Source
	rnd *rand.Rand
}

// NewVariateSource returns a source seeded with seed.
func NewVariateSource(seed uint64) *VariateSource {
	src := rand.NewSource(seed)
	return &VariateSource{src: src, rnd: rand.New(src)}
}

// Exponential draws one Exponential(rate) variate.
func (v *VariateSource) Exponential(rate float64) float64 {
	return distuv.Exponential{Rate: rate, Src: v.src}.Rand()
}

// Uniform draws one U[0,1) variate.
func (v *VariateSource) Uniform() float64 {
	return v.rnd.Float64()
}

// Categorical draws an index from the distribution probs by walking the
// cumulative sum with a single uniform draw. probs must sum to 1 within
// tolerance; Topology validation guarantees this before the engine runs.
func (v *VariateSource) Categorical(probs []float64) int {
	u := v.rnd.Float64()
	cum := 0.0
	for i, p := range probs {
		cum += p
		if u < cum {
			return i
		}
	}
	// Floating-point slack can leave u just past the final cumulative value.
	return len(probs) - 1
}
