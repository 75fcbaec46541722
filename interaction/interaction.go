// Package interaction turns pointer and touch input into pins on the running
// layout. A gesture that starts on a node drags it; a gesture that starts on
// empty space pans the view instead.
package interaction

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/physics"
)

// Phase is the state of the current gesture
type Phase int

const (
	Idle Phase = iota
	Grabbed
	Dragging
	Released
	Panning
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Grabbed:
		return "grabbed"
	case Dragging:
		return "dragging"
	case Released:
		return "released"
	case Panning:
		return "panning"
	default:
		return "unknown"
	}
}

// Target is the running layout the controller pins nodes on
type Target interface {
	Bodies() []physics.Body
	Pin(id string, x, y float64) bool
	Unpin(id string) bool
	Has(id string) bool
	// Reheat restores full temperature and restarts a halted run
	Reheat()
	Halted() bool
}

// SelectEvent is emitted when a gesture on a node turns out to be a tap
type SelectEvent struct {
	NodeID string `json:"nodeId"`
}

// DragEvent is emitted on every pointer move while a node is held
type DragEvent struct {
	NodeID string  `json:"nodeId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Options tunes hit testing and gesture classification. Distances are in
// screen pixels.
type Options struct {
	Tolerance    float64 `json:"tolerance" yaml:"tolerance" toml:"tolerance" validate:"gte=0"`
	TapThreshold float64 `json:"tapThreshold" yaml:"tap_threshold" toml:"tap_threshold" validate:"gte=0"`
	MinScale     float64 `json:"minScale" yaml:"min_scale" toml:"min_scale" validate:"gt=0"`
	MaxScale     float64 `json:"maxScale" yaml:"max_scale" toml:"max_scale" validate:"gtefield=MinScale"`
}

// DefaultOptions returns touch-friendly defaults
func DefaultOptions() Options {
	return Options{
		Tolerance:    8,
		TapThreshold: 6,
		MinScale:     0.25,
		MaxScale:     4,
	}
}

// Controller runs the gesture state machine for a single pointer
type Controller struct {
	target Target
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	phase     Phase
	nodeID    string
	downX     float64
	downY     float64
	lastX     float64
	lastY     float64
	transform Transform
	onSelect  func(SelectEvent)
	onDrag    func(DragEvent)
}

// NewController creates a controller for target. logger may be nil.
func NewController(target Target, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := DefaultOptions()
	if opts.MinScale <= 0 {
		opts.MinScale = d.MinScale
	}
	if opts.MaxScale < opts.MinScale {
		opts.MaxScale = math.Max(d.MaxScale, opts.MinScale)
	}
	return &Controller{
		target:    target,
		opts:      opts,
		logger:    logger,
		transform: Identity,
	}
}

// OnSelect sets the callback for taps on a node
func (c *Controller) OnSelect(fn func(SelectEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSelect = fn
}

// OnDrag sets the callback for drag updates
func (c *Controller) OnDrag(fn func(DragEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDrag = fn
}

// Phase returns the state of the current gesture
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Held returns the id of the node under the pointer, if any
func (c *Controller) Held() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodeID, c.nodeID != ""
}

// Transform returns the current view transform
func (c *Controller) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transform
}

// SetTransform replaces the view transform
func (c *Controller) SetTransform(t Transform) {
	if t.Scale <= 0 {
		t.Scale = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transform = t
}

// HitTest returns the node nearest to the screen point whose circle, grown
// by the tolerance, contains it
func (c *Controller) HitTest(sx, sy float64) (string, bool) {
	c.mu.Lock()
	t := c.transform
	c.mu.Unlock()
	return c.hitTest(t.ToWorld(sx, sy), c.opts.Tolerance/t.Scale)
}

func (c *Controller) hitTest(p models.Position, tolerance float64) (string, bool) {
	best := ""
	bestDist := math.Inf(1)
	for _, b := range c.target.Bodies() {
		r := b.Radius
		if !(r > 0) || math.IsInf(r, 0) {
			r = models.DefaultRadius
		}
		d := b.Position().Distance(p)
		if d <= r+tolerance && d < bestDist {
			best, bestDist = b.ID, d
		}
	}
	return best, best != ""
}

// PointerDown starts a gesture. It reports whether a node was grabbed; if
// not, the gesture pans the view.
func (c *Controller) PointerDown(sx, sy float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == Grabbed || c.phase == Dragging {
		c.releaseLocked()
	}
	c.downX, c.downY = sx, sy
	c.lastX, c.lastY = sx, sy

	id, ok := c.hitTest(c.transform.ToWorld(sx, sy), c.opts.Tolerance/c.transform.Scale)
	if !ok {
		c.phase = Panning
		c.nodeID = ""
		return false
	}

	var at models.Position
	for _, b := range c.target.Bodies() {
		if b.ID == id {
			at = b.Position()
			break
		}
	}
	// reheat first so the snapshot forced by Pin is not marked final
	c.target.Reheat()
	if !c.target.Pin(id, at.X, at.Y) {
		c.phase = Idle
		return false
	}
	c.phase = Grabbed
	c.nodeID = id
	c.logger.Debug("node grabbed", zap.String("node", id))
	return true
}

// PointerMove drags the held node or pans the view
func (c *Controller) PointerMove(sx, sy float64) {
	c.mu.Lock()

	switch c.phase {
	case Panning:
		c.transform = c.transform.Pan(sx-c.lastX, sy-c.lastY)
		c.lastX, c.lastY = sx, sy
		c.mu.Unlock()
		return

	case Grabbed, Dragging:
		id := c.nodeID
		p := c.transform.ToWorld(sx, sy)
		if !c.target.Has(id) {
			c.dropDanglingLocked()
			c.mu.Unlock()
			return
		}
		if c.target.Halted() {
			c.target.Reheat()
		}
		if !c.target.Pin(id, p.X, p.Y) {
			c.dropDanglingLocked()
			c.mu.Unlock()
			return
		}
		c.phase = Dragging
		c.lastX, c.lastY = sx, sy
		fn := c.onDrag
		c.mu.Unlock()

		if fn != nil {
			fn(DragEvent{NodeID: id, X: p.X, Y: p.Y})
		}
		return
	}
	c.mu.Unlock()
}

// PointerUp ends the gesture. A held node is released where it is; if the
// pointer barely moved, the gesture is reported as a selection.
func (c *Controller) PointerUp(sx, sy float64) {
	c.mu.Lock()

	if c.phase == Panning {
		c.phase = Released
		c.mu.Unlock()
		return
	}
	if c.phase != Grabbed && c.phase != Dragging {
		c.mu.Unlock()
		return
	}

	id := c.nodeID
	if !c.target.Has(id) {
		c.dropDanglingLocked()
		c.mu.Unlock()
		return
	}
	tap := math.Hypot(sx-c.downX, sy-c.downY) < c.opts.TapThreshold
	c.releaseLocked()
	fn := c.onSelect
	c.mu.Unlock()

	if tap && fn != nil {
		fn(SelectEvent{NodeID: id})
	}
}

// Cancel aborts the current gesture, releasing any held node
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Grabbed || c.phase == Dragging {
		c.releaseLocked()
	}
	c.phase = Idle
}

// Zoom scales the view around a screen point
func (c *Controller) Zoom(factor, sx, sy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transform = c.transform.Zoom(factor, sx, sy, c.opts.MinScale, c.opts.MaxScale)
}

// Sync clears the held node if it no longer exists. Hosts call it after the
// node set changes so a dangling pin is dropped before the next event.
func (c *Controller) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nodeID != "" && !c.target.Has(c.nodeID) {
		c.dropDanglingLocked()
	}
}

func (c *Controller) releaseLocked() {
	c.target.Unpin(c.nodeID)
	c.logger.Debug("node released", zap.String("node", c.nodeID))
	c.nodeID = ""
	c.phase = Released
}

func (c *Controller) dropDanglingLocked() {
	c.logger.Debug("held node disappeared, gesture dropped", zap.String("node", c.nodeID))
	c.nodeID = ""
	c.phase = Idle
}
