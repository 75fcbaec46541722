package interaction

import (
	"math"

	"github.com/TFMV/versegraph/models"
)

// Transform maps layout (world) coordinates onto the screen. It is owned by
// the controller and never touches the simulation.
type Transform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Identity is the transform of an unpanned, unzoomed view
var Identity = Transform{Scale: 1}

// ToWorld converts a screen point to layout coordinates
func (t Transform) ToWorld(sx, sy float64) models.Position {
	return models.Position{X: (sx - t.OffsetX) / t.Scale, Y: (sy - t.OffsetY) / t.Scale}
}

// ToScreen converts a layout point to screen coordinates
func (t Transform) ToScreen(p models.Position) (sx, sy float64) {
	return p.X*t.Scale + t.OffsetX, p.Y*t.Scale + t.OffsetY
}

// Pan moves the view by a screen-space delta
func (t Transform) Pan(dx, dy float64) Transform {
	t.OffsetX += dx
	t.OffsetY += dy
	return t
}

// Zoom scales the view by factor around the screen point (sx, sy), keeping
// the layout point under it fixed. The result is clamped to [minScale, maxScale].
func (t Transform) Zoom(factor, sx, sy, minScale, maxScale float64) Transform {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return t
	}
	focus := t.ToWorld(sx, sy)
	t.Scale = math.Max(minScale, math.Min(maxScale, t.Scale*factor))
	t.OffsetX = sx - focus.X*t.Scale
	t.OffsetY = sy - focus.Y*t.Scale
	return t
}
