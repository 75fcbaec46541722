package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studyGraph() *Graph {
	g := NewGraph("study", Viewport{Width: 400, Height: 300})
	g.Nodes = []Node{
		{ID: "jn316", Type: NodeVerse, Label: "John 3:16"},
		{ID: "rom58", Type: NodeVerse, Label: "Romans 5:8"},
		{ID: "love", Type: NodeTag, Label: "#love"},
		{ID: "n1", Type: NodeNote},
	}
	g.Edges = []Edge{
		{ID: "e1", Source: "jn316", Target: "rom58", Type: ConnCrossReference},
		{ID: "e2", Source: "jn316", Target: "love", Type: ConnTagged},
		{ID: "e3", Source: "n1", Target: "gone", Type: ConnNote},
	}
	return g
}

func TestNodeType(t *testing.T) {
	assert.Equal(t, 0, NodeVerse.Index())
	assert.Equal(t, 3, NodeTag.Index())
	assert.True(t, NodeGroup.Valid())
	assert.False(t, NodeType("BOOK").Valid())
	assert.Equal(t, -1, NodeType("").Index())
}

func TestEdgeMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, Edge{}.Multiplier())
	assert.Equal(t, 1.0, Edge{Weight: -2}.Multiplier())
	assert.Equal(t, 1.0, Edge{Weight: math.NaN()}.Multiplier())
	assert.Equal(t, 1.0, Edge{Weight: math.Inf(1)}.Multiplier())
	assert.Equal(t, 2.5, Edge{Weight: 2.5}.Multiplier())
}

func TestEffectiveRadius(t *testing.T) {
	assert.Equal(t, VerseRadius, Node{Type: NodeVerse}.EffectiveRadius())
	assert.Equal(t, DefaultRadius, Node{Type: "BOOK"}.EffectiveRadius())
	assert.Equal(t, 30.0, Node{Type: NodeTag, Radius: 30}.EffectiveRadius())
	assert.Equal(t, TagRadius, Node{Type: NodeTag, Radius: math.Inf(1)}.EffectiveRadius())
}

func TestViewport(t *testing.T) {
	vp := Viewport{Width: 400, Height: 300}
	assert.Equal(t, Position{X: 200, Y: 150}, vp.Center())
	assert.Equal(t, 300.0, vp.MinDim())
	assert.Equal(t, 5.0, Position{X: 3}.Distance(Position{Y: 4}))
}

func TestFindNodeByID(t *testing.T) {
	g := studyGraph()

	n, err := g.FindNodeByID("love")
	require.NoError(t, err)
	assert.Equal(t, "#love", n.Label)

	_, err = g.FindNodeByID("gen11")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestCountByType(t *testing.T) {
	counts := studyGraph().CountByType()
	assert.Equal(t, 2, counts[NodeVerse])
	assert.Equal(t, 1, counts[NodeTag])
	assert.Equal(t, 1, counts[NodeNote])
	assert.Zero(t, counts[NodeGroup])
}

func TestLinks(t *testing.T) {
	g := studyGraph()

	links := g.Links("jn316")
	require.Len(t, links, 2)
	assert.Equal(t, "rom58", links[0].Node.ID)
	assert.Equal(t, "e1", links[0].EdgeID)
	assert.True(t, links[0].Outgoing)
	assert.Equal(t, ConnTagged, links[1].Kind)

	links = g.Links("rom58")
	require.Len(t, links, 1)
	assert.False(t, links[0].Outgoing)
	assert.Equal(t, "jn316", links[0].Node.ID)

	assert.Empty(t, g.Links("n1"), "edges to missing nodes are skipped")
	assert.Empty(t, g.Links("gen11"))
}

func TestAddAndRemoveNode(t *testing.T) {
	g := studyGraph()

	node := NewNode(NodeGroup, "Love passages")
	g.AddNode(node)
	g.AddEdge(NewEdge(node.ID, "jn316", ConnGroupMember, 0))
	assert.NotEmpty(t, node.ID)
	assert.Len(t, g.Nodes, 5)
	assert.Len(t, g.Links("jn316"), 3)

	assert.True(t, g.RemoveNode("jn316"))
	assert.Len(t, g.Nodes, 4)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "e3", g.Edges[0].ID)

	assert.False(t, g.RemoveNode("jn316"))
	assert.Len(t, g.Nodes, 4)
}
