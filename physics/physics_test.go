package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/versegraph/models"
)

var square = models.Viewport{Width: 400, Height: 400}

func verseNodes(ids ...string) []models.Node {
	nodes := make([]models.Node, len(ids))
	for i, id := range ids {
		nodes[i] = models.Node{ID: id, Type: models.NodeVerse}
	}
	return nodes
}

func newTestSimulator(nodes []models.Node, edges []models.Edge) *Simulator {
	cfg := DefaultForceConfig()
	bodies := InitialBodies(nodes, nil, square, cfg, rand.New(rand.NewSource(1)))
	return NewSimulator(bodies, edges, square, cfg)
}

func run(s *Simulator) int {
	ticks := 0
	for !s.Done() {
		s.Tick()
		ticks++
		if ticks > 10_000 {
			break
		}
	}
	return ticks
}

func TestTick_TerminatesWithinIterationCap(t *testing.T) {
	s := newTestSimulator(verseNodes("a", "b", "c", "d"), nil)

	ticks := run(s)

	assert.True(t, s.Done())
	assert.LessOrEqual(t, ticks, DefaultForceConfig().MaxIterations)
	assert.Equal(t, ticks, s.Iteration())
}

func TestTick_CoolingIsMonotonic(t *testing.T) {
	s := newTestSimulator(verseNodes("a", "b"), nil)

	prev := s.Alpha()
	for !s.Tick() {
		assert.LessOrEqual(t, s.Alpha(), prev)
		assert.GreaterOrEqual(t, s.Alpha(), DefaultForceConfig().AlphaMin)
		prev = s.Alpha()
	}
}

func TestTick_HaltedTickIsNoop(t *testing.T) {
	s := newTestSimulator(verseNodes("a", "b"), nil)
	run(s)
	before := s.Positions()
	iter := s.Iteration()

	assert.True(t, s.Tick())
	assert.Equal(t, before, s.Positions())
	assert.Equal(t, iter, s.Iteration())
}

func TestTick_IterationCapHaltsWarmRun(t *testing.T) {
	cfg := DefaultForceConfig()
	cfg.AlphaTarget = 0.5
	cfg.MaxIterations = 25
	s := NewSimulator(InitialBodies(verseNodes("a", "b"), nil, square, cfg, nil), nil, square, cfg)

	assert.Equal(t, 25, run(s))
	assert.Greater(t, s.Alpha(), cfg.AlphaMin)
}

func TestTick_KeepsBodiesInsidePaddedViewport(t *testing.T) {
	var nodes []models.Node
	var edges []models.Edge
	for i := 0; i < 30; i++ {
		id := string(rune('A' + i))
		nodes = append(nodes, models.Node{ID: id, Type: models.NodeTypes[i%4]})
		if i > 0 {
			edges = append(edges, models.Edge{ID: id, Source: nodes[0].ID, Target: id})
		}
	}
	s := newTestSimulator(nodes, edges)
	pad := DefaultForceConfig().BoundaryPadding

	for !s.Tick() {
		for id, p := range s.Positions() {
			require.GreaterOrEqual(t, p.X, pad, id)
			require.LessOrEqual(t, p.X, square.Width-pad, id)
			require.GreaterOrEqual(t, p.Y, pad, id)
			require.LessOrEqual(t, p.Y, square.Height-pad, id)
		}
	}
}

func TestTick_PinnedBodyDoesNotMove(t *testing.T) {
	s := newTestSimulator(verseNodes("a", "b", "c"), []models.Edge{
		{ID: "ab", Source: "a", Target: "b"},
		{ID: "bc", Source: "b", Target: "c"},
	})
	require.True(t, s.Pin("b", 123, 321))

	for i := 0; i < 50; i++ {
		s.Tick()
		assert.Equal(t, models.Position{X: 123, Y: 321}, s.Positions()["b"])
	}
	for _, b := range s.Bodies() {
		if b.ID == "b" {
			assert.Equal(t, 123.0, b.X)
			assert.Equal(t, 321.0, b.Y)
			assert.True(t, b.Pinned())
		}
	}
}

func TestUnpin_ReleasesAtPinnedPosition(t *testing.T) {
	s := newTestSimulator(verseNodes("a", "b"), nil)
	require.True(t, s.Pin("a", 100, 100))
	require.True(t, s.Unpin("a"))

	assert.Equal(t, models.Position{X: 100, Y: 100}, s.Positions()["a"])
	assert.False(t, s.Pin("missing", 1, 1))
	assert.False(t, s.Unpin("missing"))
}

func TestTick_SeparatesOverlappingBodies(t *testing.T) {
	bodies := []Body{
		{ID: "a", Type: models.NodeVerse, X: 200, Y: 200, Radius: models.VerseRadius},
		{ID: "b", Type: models.NodeVerse, X: 205, Y: 200, Radius: models.VerseRadius},
	}
	s := NewSimulator(bodies, nil, square, DefaultForceConfig())

	run(s)

	p := s.Positions()
	minDist := 2*models.VerseRadius + DefaultForceConfig().CollisionPadding
	assert.GreaterOrEqual(t, p["a"].Distance(p["b"]), minDist)
}

func TestTick_CoincidentBodiesAreSplit(t *testing.T) {
	bodies := []Body{
		{ID: "a", Type: models.NodeNote, X: 200, Y: 200},
		{ID: "b", Type: models.NodeNote, X: 200, Y: 200},
	}
	s := NewSimulator(bodies, nil, square, DefaultForceConfig())

	s.Tick()

	p := s.Positions()
	assert.Greater(t, p["a"].Distance(p["b"]), 0.0)
}

func TestTick_ThreeNodeChain(t *testing.T) {
	nodes := verseNodes("A", "B", "C")
	edges := []models.Edge{
		{ID: "ab", Source: "A", Target: "B"},
		{ID: "bc", Source: "B", Target: "C"},
	}
	s := newTestSimulator(nodes, edges)

	run(s)

	p := s.Positions()
	a, b, c := p["A"], p["B"], p["C"]

	// projection of B onto segment AC falls strictly inside it
	acx, acy := c.X-a.X, c.Y-a.Y
	proj := ((b.X-a.X)*acx + (b.Y-a.Y)*acy) / (acx*acx + acy*acy)
	assert.Greater(t, proj, 0.0)
	assert.Less(t, proj, 1.0)

	pad := DefaultForceConfig().BoundaryPadding
	for id, pos := range p {
		assert.True(t, pos.X >= pad && pos.X <= square.Width-pad, id)
		assert.True(t, pos.Y >= pad && pos.Y <= square.Height-pad, id)
	}

	minDist := 2*models.VerseRadius + DefaultForceConfig().CollisionPadding
	assert.GreaterOrEqual(t, a.Distance(b), minDist)
	assert.GreaterOrEqual(t, b.Distance(c), minDist)
	assert.GreaterOrEqual(t, a.Distance(c), minDist)
}

func TestTick_InvalidRadiusFallsBackToDefault(t *testing.T) {
	bodies := []Body{
		{ID: "a", Type: models.NodeTag, X: 150, Y: 200, Radius: math.NaN()},
		{ID: "b", Type: models.NodeTag, X: 250, Y: 200, Radius: -3},
	}
	s := NewSimulator(bodies, nil, square, DefaultForceConfig())
	assert.Equal(t, DefaultForceConfig().DefaultRadius, s.radius(s.state.Bodies[0]))
	assert.Equal(t, DefaultForceConfig().DefaultRadius, s.radius(s.state.Bodies[1]))

	run(s)

	for id, pos := range s.Positions() {
		assert.False(t, math.IsNaN(pos.X) || math.IsNaN(pos.Y), id)
	}
}

func TestNewSimulator_RepairsNonFinitePositions(t *testing.T) {
	bodies := []Body{
		{ID: "a", Type: models.NodeVerse, X: math.NaN(), Y: 10},
		{ID: "b", Type: models.NodeVerse, X: 100, Y: 100},
	}
	s := NewSimulator(bodies, nil, square, DefaultForceConfig())

	assert.Equal(t, square.Center(), s.Positions()["a"])
	s.Tick()
	for id, pos := range s.Positions() {
		assert.False(t, math.IsNaN(pos.X) || math.IsNaN(pos.Y), id)
	}
}

func TestReheat(t *testing.T) {
	s := newTestSimulator(verseNodes("a", "b"), nil)

	s.Tick()
	s.Tick()
	s.Reheat()
	assert.Equal(t, 1.0, s.Alpha())
	assert.Equal(t, 2, s.Iteration(), "a live run keeps counting")

	run(s)
	s.Reheat()
	assert.False(t, s.Done())
	assert.Equal(t, 1.0, s.Alpha())
	assert.Equal(t, 0, s.Iteration())
}

func TestWarm_NeverCoolsALiveRun(t *testing.T) {
	s := newTestSimulator(verseNodes("a", "b"), nil)
	s.Tick()

	s.Warm(0.3)
	assert.Greater(t, s.Alpha(), 0.3)

	run(s)
	s.Warm(0.3)
	assert.Equal(t, 0.3, s.Alpha())
	assert.False(t, s.Done())
}

func TestSetEdges_SkipsUnknownEndpointsAndSplitsHubs(t *testing.T) {
	s := newTestSimulator(verseNodes("hub", "a", "b"), nil)
	s.SetEdges([]models.Edge{
		{ID: "1", Source: "hub", Target: "a"},
		{ID: "2", Source: "hub", Target: "b"},
		{ID: "3", Source: "hub", Target: "zzz"},
		{ID: "4", Source: "a", Target: "a"},
	})

	require.Len(t, s.links, 2)
	cfg := DefaultForceConfig()
	assert.InDelta(t, cfg.LinkStrength*cfg.SameTypeLinkBias, s.links[0].strength, 1e-12)
}

func TestSetEdges_WeightIsCapped(t *testing.T) {
	nodes := []models.Node{{ID: "a", Type: models.NodeVerse}, {ID: "b", Type: models.NodeNote}}
	s := newTestSimulator(nodes, []models.Edge{{ID: "1", Source: "a", Target: "b", Weight: 100}})

	require.Len(t, s.links, 1)
	assert.Equal(t, maxLinkStrength, s.links[0].strength)
}

func TestSectorCenter_DistinctPerType(t *testing.T) {
	s := newTestSimulator(verseNodes("a"), nil)

	seen := map[models.Position]bool{}
	for _, nt := range models.NodeTypes {
		c := s.sectorCenter(nt)
		assert.InDelta(t, DefaultForceConfig().SectorOffset*square.MinDim(), c.Distance(square.Center()), 1e-9)
		seen[c] = true
	}
	assert.Len(t, seen, len(models.NodeTypes))
	assert.Equal(t, square.Center(), s.sectorCenter("UNKNOWN"))
}

func TestPositions_ReturnsCopies(t *testing.T) {
	s := newTestSimulator(verseNodes("a"), nil)
	s.Pin("a", 50, 60)

	bodies := s.Bodies()
	bodies[0].Pin.X = 999
	bodies[0].X = 999

	assert.Equal(t, models.Position{X: 50, Y: 60}, s.Positions()["a"])
}

func TestUpdateBodies_RefreshesTypeAndRadius(t *testing.T) {
	s := newTestSimulator(verseNodes("a", "b"), nil)
	s.Pin("a", 50, 60)
	before := s.Positions()

	nodes := verseNodes("a", "b", "zzz")
	assert.False(t, s.UpdateBodies(nodes), "unchanged nodes report no change")

	nodes[0].Type = models.NodeTag
	nodes[1].Radius = 40
	require.True(t, s.UpdateBodies(nodes))

	bodies := s.Bodies()
	assert.Equal(t, models.NodeTag, bodies[0].Type)
	assert.Equal(t, models.TagRadius, bodies[0].Radius)
	assert.Equal(t, 40.0, bodies[1].Radius)
	assert.True(t, bodies[0].Pinned())
	assert.Equal(t, before, s.Positions())
	assert.Equal(t, 2, s.Len())
}
