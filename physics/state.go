package physics

import (
	"github.com/TFMV/versegraph/models"
)

// Body is a node as the simulator sees it
type Body struct {
	ID     string
	Type   models.NodeType
	X, Y   float64
	Radius float64
	// Pin holds the externally fixed position while the body is held
	Pin *models.Position
}

// Pinned reports whether the body is currently held
func (b Body) Pinned() bool {
	return b.Pin != nil
}

// Position returns where the body should be drawn
func (b Body) Position() models.Position {
	if b.Pin != nil {
		return *b.Pin
	}
	return models.Position{X: b.X, Y: b.Y}
}

// clone returns a copy that shares no memory with b
func (b Body) clone() Body {
	if b.Pin != nil {
		pin := *b.Pin
		b.Pin = &pin
	}
	return b
}

// State is the mutable simulation arena. Only Simulator.Tick moves bodies;
// pin requests only touch Pin.
type State struct {
	Bodies    []Body
	Alpha     float64
	Iteration int

	index map[string]int
}

func newState(bodies []Body) *State {
	st := &State{
		Bodies: make([]Body, len(bodies)),
		Alpha:  1,
		index:  make(map[string]int, len(bodies)),
	}
	for i, b := range bodies {
		st.Bodies[i] = b.clone()
		st.index[b.ID] = i
	}
	return st
}

// lookup returns the index of the body with the given id
func (st *State) lookup(id string) (int, bool) {
	i, ok := st.index[id]
	return i, ok
}

// CopyBodies returns a deep copy of the bodies
func (st *State) CopyBodies() []Body {
	out := make([]Body, len(st.Bodies))
	for i, b := range st.Bodies {
		out[i] = b.clone()
	}
	return out
}
