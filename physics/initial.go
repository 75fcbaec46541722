package physics

import (
	"math"

	"github.com/TFMV/versegraph/models"
)

const (
	// circleLimit and spiralLimit pick the seeding strategy by node count
	circleLimit = 10
	spiralLimit = 20

	circleFraction = 0.42
	gridJitter     = 0.3
)

// phi is the golden ratio
var phi = (1 + math.Sqrt(5)) / 2

// Rand is the random source used for grid jitter. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// InitialBodies seeds a position for every node. Nodes already present in prior
// keep their position and pin; new nodes are placed by a strategy chosen from
// the total node count. rng may be nil, in which case the grid is not jittered.
func InitialBodies(nodes []models.Node, prior map[string]Body, viewport models.Viewport, cfg ForceConfig, rng Rand) []Body {
	n := len(nodes)
	bodies := make([]Body, n)
	for i, node := range nodes {
		b := Body{ID: node.ID, Type: node.Type, Radius: node.EffectiveRadius()}
		if !validLength(b.Radius) {
			b.Radius = cfg.sanitized().DefaultRadius
		}

		if old, ok := prior[node.ID]; ok {
			old = old.clone()
			b.X, b.Y, b.Pin = old.X, old.Y, old.Pin
		} else {
			p := seedPosition(i, n, viewport, cfg.BoundaryPadding, rng)
			b.X, b.Y = p.X, p.Y
		}
		bodies[i] = b
	}
	return bodies
}

// seedPosition returns the starting point of the i-th of n nodes
func seedPosition(i, n int, vp models.Viewport, pad float64, rng Rand) models.Position {
	c := vp.Center()
	// largest radius that keeps a point inside the padded area
	inner := math.Min(vp.Width/2-pad, vp.Height/2-pad)
	if inner < 0 {
		inner = 0
	}

	switch {
	case n <= 1:
		return c
	case n <= circleLimit:
		r := math.Min(circleFraction*vp.MinDim(), inner)
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		return models.Position{X: c.X + r*math.Cos(angle), Y: c.Y + r*math.Sin(angle)}
	case n <= spiralLimit:
		r := inner * math.Sqrt(float64(i+1)/float64(n))
		angle := float64(i) * 2 * math.Pi / phi
		return models.Position{X: c.X + r*math.Cos(angle), Y: c.Y + r*math.Sin(angle)}
	default:
		return gridPosition(i, n, vp, pad, rng)
	}
}

func gridPosition(i, n int, vp models.Viewport, pad float64, rng Rand) models.Position {
	w := math.Max(vp.Width-2*pad, 0)
	h := math.Max(vp.Height-2*pad, 0)
	aspect := 1.0
	if w > 0 && h > 0 {
		aspect = w / h
	}

	cols := int(math.Ceil(math.Sqrt(float64(n) * aspect)))
	cols = max(1, min(cols, n))
	rows := (n + cols - 1) / cols

	cellW := w / float64(cols)
	cellH := h / float64(rows)
	x := pad + (float64(i%cols)+0.5)*cellW
	y := pad + (float64(i/cols)+0.5)*cellH

	if rng != nil {
		x += (rng.Float64()*2 - 1) * gridJitter * cellW
		y += (rng.Float64()*2 - 1) * gridJitter * cellH
	}
	return models.Position{
		X: contain(x, pad, vp.Width),
		Y: contain(y, pad, vp.Height),
	}
}

// PriorBodies indexes bodies by id for InitialBodies
func PriorBodies(bodies []Body) map[string]Body {
	out := make(map[string]Body, len(bodies))
	for _, b := range bodies {
		out[b.ID] = b
	}
	return out
}
