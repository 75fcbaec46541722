package physics

import (
	"math"

	"github.com/TFMV/versegraph/models"
)

// goldenAngle separates coincident bodies along a deterministic direction
const goldenAngle = 2.399963229728653

// link is an edge resolved to body indices
type link struct {
	source, target int
	strength       float64
}

// displacement accumulates the per-tick movement of each body
type displacement struct {
	dx, dy []float64
}

func (d *displacement) reset(n int) {
	if cap(d.dx) < n {
		d.dx = make([]float64, n)
		d.dy = make([]float64, n)
	}
	d.dx = d.dx[:n]
	d.dy = d.dy[:n]
	for i := range d.dx {
		d.dx[i] = 0
		d.dy[i] = 0
	}
}

func (d *displacement) add(i int, x, y float64) {
	d.dx[i] += x
	d.dy[i] += y
}

// separation returns the vector from b to a and its length, never zero
func separation(a, b Body, i, j int) (dx, dy, dist float64) {
	dx = a.X - b.X
	dy = a.Y - b.Y
	dist = math.Sqrt(dx*dx + dy*dy)
	if dist < 1e-6 {
		angle := float64(i-j) * goldenAngle
		dx = math.Cos(angle) * 0.01
		dy = math.Sin(angle) * 0.01
		dist = 0.01
	}
	return dx, dy, dist
}

// radius returns a usable radius for b
func (s *Simulator) radius(b Body) float64 {
	if validLength(b.Radius) {
		return b.Radius
	}
	return s.cfg.DefaultRadius
}

// applyCharge pushes every pair of bodies within the cutoff apart
func (s *Simulator) applyCharge(alpha float64, d *displacement) {
	if s.cfg.ChargeStrength == 0 {
		return
	}
	bodies := s.state.Bodies
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			dx, dy, dist := separation(bodies[i], bodies[j], i, j)
			if dist > s.cfg.ChargeCutoff {
				continue
			}

			strength := s.cfg.ChargeStrength / dist
			if dist < s.cfg.ChargeShortRange {
				strength *= s.cfg.ShortRangeBoost
			}
			if bodies[i].Type == bodies[j].Type {
				strength *= s.cfg.SameTypeCharge
			} else {
				strength *= s.cfg.CrossTypeCharge
			}
			strength *= alpha

			ux, uy := dx/dist, dy/dist
			d.add(i, ux*strength, uy*strength)
			d.add(j, -ux*strength, -uy*strength)
		}
	}
}

// applyLinks pulls linked bodies toward the rest length
func (s *Simulator) applyLinks(alpha float64, d *displacement) {
	bodies := s.state.Bodies
	for _, l := range s.links {
		dx, dy, dist := separation(bodies[l.target], bodies[l.source], l.target, l.source)

		// positive when stretched, negative when compressed
		pull := (dist - s.restLength) * l.strength * alpha
		ux, uy := dx/dist, dy/dist
		d.add(l.source, ux*pull, uy*pull)
		d.add(l.target, -ux*pull, -uy*pull)
	}
}

// applyClustering draws each body toward the centroid of the other bodies of
// its type, unless that centroid is too far away to be the same cluster
func (s *Simulator) applyClustering(alpha float64, d *displacement) {
	if s.cfg.ClusteringStrength == 0 {
		return
	}
	bodies := s.state.Bodies
	sums := make(map[models.NodeType]*[3]float64, len(models.NodeTypes))
	for _, b := range bodies {
		acc, ok := sums[b.Type]
		if !ok {
			acc = &[3]float64{}
			sums[b.Type] = acc
		}
		acc[0] += b.X
		acc[1] += b.Y
		acc[2]++
	}

	for i, b := range bodies {
		acc := sums[b.Type]
		if acc[2] < 2 {
			continue
		}
		cx := (acc[0] - b.X) / (acc[2] - 1)
		cy := (acc[1] - b.Y) / (acc[2] - 1)
		dx, dy := cx-b.X, cy-b.Y
		if math.Hypot(dx, dy) > s.cfg.ClusterRadius {
			continue
		}
		k := s.cfg.ClusteringStrength * alpha
		d.add(i, dx*k, dy*k)
	}
}

// applyCentering pulls bodies toward the viewport center, or toward their
// type's sector when several types share the view
func (s *Simulator) applyCentering(alpha float64, d *displacement) {
	if s.cfg.CenterStrength == 0 {
		return
	}
	bodies := s.state.Bodies
	sectors := s.typeCount() > 1
	minDim := s.viewport.MinDim()

	for i, b := range bodies {
		c := s.viewport.Center()
		if sectors {
			c = s.sectorCenter(b.Type)
		}
		dx, dy := c.X-b.X, c.Y-b.Y
		dist := math.Hypot(dx, dy)

		// stronger pull from far away
		k := s.cfg.CenterStrength * alpha * dist / minDim
		d.add(i, dx*k, dy*k)
	}
}

// sectorCenter returns the anchor assigned to a node type
func (s *Simulator) sectorCenter(t models.NodeType) models.Position {
	c := s.viewport.Center()
	idx := t.Index()
	if idx < 0 {
		return c
	}
	angle := -math.Pi/2 + float64(idx)*2*math.Pi/float64(len(models.NodeTypes))
	offset := s.cfg.SectorOffset * s.viewport.MinDim()
	return models.Position{
		X: c.X + offset*math.Cos(angle),
		Y: c.Y + offset*math.Sin(angle),
	}
}

func (s *Simulator) typeCount() int {
	seen := make(map[models.NodeType]struct{}, len(models.NodeTypes))
	for _, b := range s.state.Bodies {
		seen[b.Type] = struct{}{}
	}
	return len(seen)
}

// applyCollision separates bodies whose circles overlap
func (s *Simulator) applyCollision(alpha float64, d *displacement) {
	if s.cfg.CollisionStrength == 0 {
		return
	}
	bodies := s.state.Bodies
	for i := range bodies {
		ri := s.radius(bodies[i])
		for j := i + 1; j < len(bodies); j++ {
			minDist := ri + s.radius(bodies[j]) + s.cfg.CollisionPadding
			dx, dy, dist := separation(bodies[i], bodies[j], i, j)
			if dist >= minDist {
				continue
			}
			push := (minDist - dist) * 0.5 * s.cfg.CollisionStrength * alpha
			ux, uy := dx/dist, dy/dist
			d.add(i, ux*push, uy*push)
			d.add(j, -ux*push, -uy*push)
		}
	}
}

// applyBoundary pushes bodies that reach into the padding band back inward.
// It scales with alpha like every other force, so it keeps acting through
// the end of cooling.
func (s *Simulator) applyBoundary(alpha float64, d *displacement) {
	pad := s.cfg.BoundaryPadding
	k := s.cfg.BoundaryStrength * alpha
	w, h := s.viewport.Width, s.viewport.Height

	for i, b := range s.state.Bodies {
		r := s.radius(b)
		if over := pad - (b.X - r); over > 0 {
			d.add(i, over*k, 0)
		}
		if over := (b.X + r) - (w - pad); over > 0 {
			d.add(i, -over*k, 0)
		}
		if over := pad - (b.Y - r); over > 0 {
			d.add(i, 0, over*k)
		}
		if over := (b.Y + r) - (h - pad); over > 0 {
			d.add(i, 0, -over*k)
		}
	}
}

// contain clamps a coordinate into [pad, size-pad]
func contain(v, pad, size float64) float64 {
	lo, hi := pad, size-pad
	if lo > hi {
		return size / 2
	}
	return math.Max(lo, math.Min(hi, v))
}
