package physics

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// noiseStep is the distance between successive samples along the noise field
const noiseStep = 0.731

// NoiseRand is a deterministic Rand backed by simplex noise. Successive values
// are spatially correlated, which gives neighbouring grid cells a gently
// varying offset instead of independent jitter.
type NoiseRand struct {
	noise opensimplex.Noise
	t     float64
}

// NewNoiseRand creates a noise source for the given seed
func NewNoiseRand(seed int64) *NoiseRand {
	return &NoiseRand{noise: opensimplex.New(seed)}
}

// Float64 returns the next sample mapped into [0, 1)
func (n *NoiseRand) Float64() float64 {
	v := n.noise.Eval2(n.t, n.t*0.5+0.25)
	n.t += noiseStep
	v = (v + 1) / 2
	return math.Max(0, math.Min(v, math.Nextafter(1, 0)))
}
