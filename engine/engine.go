// Package engine wires the layout pieces together: it normalizes host input,
// seeds and runs the simulator one scheduled tick at a time, and publishes
// throttled snapshots. It is also the target the interaction controller pins
// nodes on.
package engine

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TFMV/versegraph/graph"
	"github.com/TFMV/versegraph/metrics"
	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/physics"
	"github.com/TFMV/versegraph/scheduler"
	"github.com/TFMV/versegraph/snapshot"
)

// Options configures an Engine
type Options struct {
	Viewport     models.Viewport
	Force        physics.ForceConfig
	PublishEvery int
	// Seed drives grid jitter for new nodes
	Seed int64
	// NoiseJitter uses simplex noise instead of uniform random jitter
	NoiseJitter  bool
	OnDiagnostic graph.DiagnosticFunc
	Logger       *zap.Logger
	Metrics      *metrics.Collector
}

// Engine owns a single simulation. All state changes happen under mu, and
// snapshots are published after it is released. Each snapshot takes a
// sequence number under mu; one captured before a newer one was published is
// dropped.
type Engine struct {
	sched     scheduler.Scheduler
	publisher *snapshot.Publisher
	norm      *graph.Normalizer
	logger    *zap.Logger
	metrics   *metrics.Collector
	cfg       physics.ForceConfig
	rng       physics.Rand

	mu       sync.Mutex
	viewport models.Viewport
	sim      *physics.Simulator
	nodes    []models.Node
	edges    []models.Edge
	runID    string
	handle   scheduler.Handle
	pending  bool
	disposed bool
	seq      uint64

	pubMu     sync.Mutex
	published uint64
}

// New creates an idle engine that schedules its ticks on sched
func New(sched scheduler.Scheduler, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var rng physics.Rand = rand.New(rand.NewSource(opts.Seed))
	if opts.NoiseJitter {
		rng = physics.NewNoiseRand(opts.Seed)
	}

	e := &Engine{
		sched:     sched,
		publisher: snapshot.NewPublisher(opts.PublishEvery),
		logger:    logger,
		metrics:   opts.Metrics,
		cfg:       opts.Force,
		rng:       rng,
		viewport:  opts.Viewport,
	}
	onDiagnostic := opts.OnDiagnostic
	e.norm = graph.NewNormalizer(logger, func(d graph.Diagnostic) {
		e.metrics.ObserveDiagnostic(string(d.Kind))
		if onDiagnostic != nil {
			onDiagnostic(d)
		}
	})
	return e
}

// Subscribe registers fn for published snapshots
func (e *Engine) Subscribe(fn snapshot.Subscriber) (unsubscribe func()) {
	return e.publisher.Subscribe(fn)
}

// Latest returns the most recently published snapshot
func (e *Engine) Latest() snapshot.Snapshot {
	return e.publisher.Latest()
}

// SetGraph replaces the node and edge lists. The caller's slices are never
// modified or retained.
//
// An empty node set tears the simulation down. A changed node id set starts a
// new run that keeps the positions of surviving nodes. If only the edges or
// node types and radii changed the running layout is updated in place and
// partially reheated. Identical input is a no-op.
func (e *Engine) SetGraph(nodes []models.Node, edges []models.Edge) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	nodes, edges = e.norm.Normalize(nodes, edges)

	if len(nodes) == 0 {
		e.teardownLocked()
		seq := e.nextSeqLocked()
		e.mu.Unlock()
		e.publish(seq, snapshot.Snapshot{Final: true, Positions: map[string]models.Position{}})
		return
	}

	if e.sim != nil && graph.SameNodeSet(e.nodes, nodes) {
		e.nodes = nodes
		reshaped := e.sim.UpdateBodies(nodes)
		sameEdges := graph.SameEdges(e.edges, edges)
		if !reshaped && sameEdges {
			e.mu.Unlock()
			return
		}
		e.edges = edges
		e.sim.SetEdges(edges)
		e.sim.Warm(e.sim.Config().IncrementalAlpha)
		reason := metrics.RunEdges
		if sameEdges {
			reason = metrics.RunNodes
		}
		e.metrics.RunStarted(reason, e.sim.Len())
		e.logger.Debug("graph changed, layout rewired",
			zap.String("run", e.runID),
			zap.String("reason", reason),
			zap.Int("edges", len(edges)),
		)
		e.scheduleLocked()
		e.mu.Unlock()
		return
	}

	e.startLocked(nodes, edges)
	e.mu.Unlock()
}

// startLocked cancels any in-flight tick and begins a run over nodes
func (e *Engine) startLocked(nodes []models.Node, edges []models.Edge) {
	e.cancelLocked()

	var prior map[string]physics.Body
	if e.sim != nil {
		prior = physics.PriorBodies(e.sim.Bodies())
	}
	kept := 0
	for _, n := range nodes {
		if _, ok := prior[n.ID]; ok {
			kept++
		}
	}

	bodies := physics.InitialBodies(nodes, prior, e.viewport, e.cfg, e.rng)
	e.sim = physics.NewSimulator(bodies, edges, e.viewport, e.cfg)
	e.nodes = nodes
	e.edges = edges
	e.runID = uuid.New().String()

	reason := metrics.RunFresh
	if kept > 0 {
		reason = metrics.RunIncremental
		e.sim.Restart(e.sim.Config().IncrementalAlpha)
	}
	e.metrics.RunStarted(reason, len(nodes))
	e.logger.Info("layout run started",
		zap.String("run", e.runID),
		zap.String("reason", reason),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
		zap.Int("kept", kept),
	)
	e.scheduleLocked()
}

func (e *Engine) teardownLocked() {
	e.cancelLocked()
	if e.sim != nil {
		e.logger.Info("layout torn down", zap.String("run", e.runID))
	}
	e.sim = nil
	e.nodes = nil
	e.edges = nil
	e.runID = ""
	e.metrics.Reset()
}

// scheduleLocked requests the next tick unless one is already pending
func (e *Engine) scheduleLocked() {
	if e.pending || e.sim == nil || e.sim.Done() {
		return
	}
	runID := e.runID
	e.pending = true
	e.handle = e.sched.RequestTick(func() { e.step(runID) })
}

func (e *Engine) cancelLocked() {
	if e.pending {
		e.sched.CancelTick(e.handle)
		e.pending = false
	}
}

// step runs one tick of the given run and schedules the next
func (e *Engine) step(runID string) {
	e.mu.Lock()
	if e.disposed || e.sim == nil || e.runID != runID {
		e.mu.Unlock()
		return
	}
	e.pending = false

	done := e.sim.Tick()
	iteration := e.sim.Iteration()
	alpha := e.sim.Alpha()
	e.metrics.ObserveTick(alpha)

	var (
		snap *snapshot.Snapshot
		seq  uint64
	)
	if e.publisher.ShouldPublish(iteration, done) {
		seq = e.nextSeqLocked()
		snap = &snapshot.Snapshot{
			RunID:     runID,
			Iteration: iteration,
			Alpha:     alpha,
			Final:     done,
			Positions: e.sim.Positions(),
		}
	}

	if done {
		e.metrics.RunHalted(iteration)
		e.logger.Debug("layout halted", zap.String("run", runID), zap.Int("iterations", iteration), zap.Float64("alpha", alpha))
	} else {
		e.scheduleLocked()
	}
	e.mu.Unlock()

	if snap != nil {
		e.publish(seq, *snap)
	}
}

func (e *Engine) nextSeqLocked() uint64 {
	e.seq++
	return e.seq
}

// publish delivers s unless a snapshot captured after it went out first.
// Subscribers must not call Pin or SetGraph synchronously.
func (e *Engine) publish(seq uint64, s snapshot.Snapshot) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if seq <= e.published {
		return
	}
	e.published = seq
	e.publisher.Publish(s)
	e.metrics.ObserveSnapshot()
}

// forcedSnapshotLocked captures positions outside the publish interval
func (e *Engine) forcedSnapshotLocked() snapshot.Snapshot {
	return snapshot.Snapshot{
		RunID:     e.runID,
		Iteration: e.sim.Iteration(),
		Alpha:     e.sim.Alpha(),
		Final:     e.sim.Done(),
		Positions: e.sim.Positions(),
	}
}

// SetViewport changes the layout bounds and lets the layout settle into them
func (e *Engine) SetViewport(vp models.Viewport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed || vp == e.viewport {
		return
	}
	e.viewport = vp
	if e.sim == nil {
		return
	}
	e.sim.SetViewport(vp)
	e.sim.Warm(e.sim.Config().IncrementalAlpha)
	e.metrics.RunStarted(metrics.RunViewport, e.sim.Len())
	e.scheduleLocked()
}

// Viewport returns the current layout bounds
func (e *Engine) Viewport() models.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// Dispose stops the simulation for good. It is safe to call more than once.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.teardownLocked()
	e.disposed = true
}

// Nodes returns a copy of the normalized nodes
func (e *Engine) Nodes() []models.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Node(nil), e.nodes...)
}

// Edges returns a copy of the normalized edges
func (e *Engine) Edges() []models.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Edge(nil), e.edges...)
}

// RunID identifies the current run, or "" when idle
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// Positions returns the live positions of every node
func (e *Engine) Positions() map[string]models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sim == nil {
		return map[string]models.Position{}
	}
	return e.sim.Positions()
}

// Bodies returns a copy of the simulated bodies
func (e *Engine) Bodies() []physics.Body {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sim == nil {
		return nil
	}
	return e.sim.Bodies()
}

// Has reports whether a node with the given id is being simulated
func (e *Engine) Has(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim != nil && e.sim.Has(id)
}

// Pin holds a node at (x, y) and publishes the change immediately so drag
// feedback does not wait for the publish interval
func (e *Engine) Pin(id string, x, y float64) bool {
	e.mu.Lock()
	if e.sim == nil || !e.sim.Pin(id, x, y) {
		e.mu.Unlock()
		return false
	}
	snap := e.forcedSnapshotLocked()
	seq := e.nextSeqLocked()
	e.mu.Unlock()

	e.publish(seq, snap)
	return true
}

// Unpin releases a held node where it is
func (e *Engine) Unpin(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim != nil && e.sim.Unpin(id)
}

// Reheat restores full temperature, restarting a halted run
func (e *Engine) Reheat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sim == nil {
		return
	}
	if e.sim.Done() {
		e.metrics.RunStarted(metrics.RunReheat, e.sim.Len())
	}
	e.sim.Reheat()
	e.scheduleLocked()
}

// Halted reports whether no run is in progress
func (e *Engine) Halted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim == nil || e.sim.Done()
}

// Alpha returns the current temperature, or 0 when idle
func (e *Engine) Alpha() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sim == nil {
		return 0
	}
	return e.sim.Alpha()
}
