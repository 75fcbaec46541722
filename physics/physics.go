// Package physics implements the force-directed layout used by the study graph
// view: an initializer that seeds positions, and a simulator that advances the
// layout one tick at a time under a geometric cooling schedule.
package physics

import (
	"math"

	"github.com/TFMV/versegraph/models"
)

// maxLinkStrength keeps a single spring below the point where it overshoots.
const maxLinkStrength = 0.45

// Simulator advances a SimulationState. It is not safe for concurrent use;
// callers serialize Tick with every other method.
type Simulator struct {
	cfg        ForceConfig
	viewport   models.Viewport
	state      *State
	links      []link
	restLength float64
	done       bool
	scratch    displacement
}

// NewSimulator creates a simulator over a copy of bodies
func NewSimulator(bodies []Body, edges []models.Edge, viewport models.Viewport, cfg ForceConfig) *Simulator {
	s := &Simulator{
		cfg:      cfg.sanitized(),
		viewport: viewport,
		state:    newState(bodies),
	}
	s.restLength = s.cfg.linkDistance(viewport)

	// a body without a usable position would poison every pairwise force
	c := viewport.Center()
	for i := range s.state.Bodies {
		b := &s.state.Bodies[i]
		if !finite(b.X) || !finite(b.Y) {
			b.X, b.Y = c.X, c.Y
		}
	}

	s.SetEdges(edges)
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SetEdges replaces the springs. Edges whose endpoints are unknown are skipped.
func (s *Simulator) SetEdges(edges []models.Edge) {
	degree := make(map[int]int, len(s.state.Bodies))
	resolved := make([]link, 0, len(edges))
	for _, e := range edges {
		src, okSrc := s.state.lookup(e.Source)
		dst, okDst := s.state.lookup(e.Target)
		if !okSrc || !okDst || src == dst {
			continue
		}
		strength := s.cfg.LinkStrength * e.Multiplier()
		if s.state.Bodies[src].Type == s.state.Bodies[dst].Type {
			strength *= s.cfg.SameTypeLinkBias
		}
		resolved = append(resolved, link{source: src, target: dst, strength: strength})
		degree[src]++
		degree[dst]++
	}

	// hubs share their pull across all of their links
	for i := range resolved {
		l := &resolved[i]
		l.strength /= float64(min(degree[l.source], degree[l.target]))
		l.strength = math.Min(l.strength, maxLinkStrength)
	}
	s.links = resolved
}

// UpdateBodies copies the type and radius of each node onto its body and
// reports whether any changed. Positions and pins are kept; unknown ids are
// ignored. Callers should SetEdges afterwards since link bias depends on type.
func (s *Simulator) UpdateBodies(nodes []models.Node) bool {
	changed := false
	for _, n := range nodes {
		i, ok := s.state.lookup(n.ID)
		if !ok {
			continue
		}
		b := &s.state.Bodies[i]
		r := n.EffectiveRadius()
		if !validLength(r) {
			r = s.cfg.DefaultRadius
		}
		if b.Type != n.Type || b.Radius != r {
			b.Type = n.Type
			b.Radius = r
			changed = true
		}
	}
	return changed
}

// SetViewport changes the bounds the layout is confined to
func (s *Simulator) SetViewport(viewport models.Viewport) {
	s.viewport = viewport
	s.restLength = s.cfg.linkDistance(viewport)
}

// Config returns the sanitized configuration in use
func (s *Simulator) Config() ForceConfig {
	return s.cfg
}

// Viewport returns the current bounds
func (s *Simulator) Viewport() models.Viewport {
	return s.viewport
}

// Tick advances the simulation by exactly one step and reports whether the
// run has halted. Ticking a halted simulator is a no-op.
func (s *Simulator) Tick() bool {
	if s.done {
		return true
	}
	st := s.state

	// Held bodies sit exactly on their pins before any force is computed
	for i := range st.Bodies {
		if pin := st.Bodies[i].Pin; pin != nil {
			st.Bodies[i].X = pin.X
			st.Bodies[i].Y = pin.Y
		}
	}

	alpha := st.Alpha
	d := &s.scratch
	d.reset(len(st.Bodies))

	s.applyCharge(alpha, d)
	s.applyLinks(alpha, d)
	s.applyClustering(alpha, d)
	s.applyCentering(alpha, d)
	s.applyCollision(alpha, d)
	s.applyBoundary(alpha, d)

	pad := s.cfg.BoundaryPadding
	for i := range st.Bodies {
		b := &st.Bodies[i]
		if b.Pin != nil {
			continue
		}

		dx, dy := d.dx[i], d.dy[i]
		if !finite(dx) || !finite(dy) {
			continue
		}

		// Limit displacement so a near-collision cannot fling a body across the view
		if step := math.Hypot(dx, dy); step > s.cfg.MaxStep {
			dx *= s.cfg.MaxStep / step
			dy *= s.cfg.MaxStep / step
		}

		b.X = contain(b.X+dx, pad, s.viewport.Width)
		b.Y = contain(b.Y+dy, pad, s.viewport.Height)
	}

	st.Iteration++
	s.cool()
	return s.done
}

// cool applies one step of the geometric cooling schedule
func (s *Simulator) cool() {
	st := s.state
	next := st.Alpha*(1-s.cfg.AlphaDecay) + s.cfg.AlphaTarget*s.cfg.AlphaDecay
	if next < s.cfg.AlphaMin {
		st.Alpha = s.cfg.AlphaMin
		s.done = true
	} else {
		st.Alpha = math.Min(next, 1)
	}
	if st.Iteration >= s.cfg.MaxIterations {
		s.done = true
	}
}

// Done reports whether the run has converged or hit its iteration cap
func (s *Simulator) Done() bool {
	return s.done
}

// Alpha returns the current temperature
func (s *Simulator) Alpha() float64 {
	return s.state.Alpha
}

// Iteration returns the number of ticks in the current run
func (s *Simulator) Iteration() int {
	return s.state.Iteration
}

// Reheat restores full temperature. A halted run also restarts its iteration
// count so it gets a full schedule again. Positions are untouched.
func (s *Simulator) Reheat() {
	s.Warm(1)
}

// Warm raises the temperature to at least alpha, resuming a halted run
func (s *Simulator) Warm(alpha float64) {
	alpha = math.Min(1, math.Max(alpha, s.cfg.AlphaMin))
	if s.done {
		s.done = false
		s.state.Iteration = 0
		s.state.Alpha = alpha
		return
	}
	s.state.Alpha = math.Max(s.state.Alpha, alpha)
}

// Restart begins a new schedule at the given temperature
func (s *Simulator) Restart(alpha float64) {
	s.done = false
	s.state.Iteration = 0
	s.state.Alpha = math.Min(1, math.Max(alpha, s.cfg.AlphaMin))
}

// Pin holds the body with the given id at (x, y). It returns false when no
// such body exists.
func (s *Simulator) Pin(id string, x, y float64) bool {
	i, ok := s.state.lookup(id)
	if !ok {
		return false
	}
	s.state.Bodies[i].Pin = &models.Position{X: x, Y: y}
	return true
}

// Unpin releases a held body at its last position
func (s *Simulator) Unpin(id string) bool {
	i, ok := s.state.lookup(id)
	if !ok {
		return false
	}
	b := &s.state.Bodies[i]
	if b.Pin != nil {
		b.X, b.Y = b.Pin.X, b.Pin.Y
		b.Pin = nil
	}
	return true
}

// Has reports whether a body with the given id exists
func (s *Simulator) Has(id string) bool {
	_, ok := s.state.lookup(id)
	return ok
}

// Bodies returns a deep copy of the current bodies
func (s *Simulator) Bodies() []Body {
	return s.state.CopyBodies()
}

// Positions returns where each body should be drawn right now
func (s *Simulator) Positions() map[string]models.Position {
	out := make(map[string]models.Position, len(s.state.Bodies))
	for _, b := range s.state.Bodies {
		out[b.ID] = b.Position()
	}
	return out
}

// Len returns the number of bodies
func (s *Simulator) Len() int {
	return len(s.state.Bodies)
}
