package models

import (
	"math"

	"github.com/google/uuid"
)

// Default radius per node type, in viewport units.
const (
	VerseRadius   = 18.0
	GroupRadius   = 22.0
	NoteRadius    = 14.0
	TagRadius     = 12.0
	DefaultRadius = 16.0
)

// NewNode creates a new node with a unique ID
func NewNode(nodeType NodeType, label string) *Node {
	return &Node{
		ID:    uuid.New().String(),
		Type:  nodeType,
		Label: label,
	}
}

// NewEdge creates a new edge with a unique ID
func NewEdge(source, target string, kind ConnectionKind, weight float64) *Edge {
	return &Edge{
		ID:     uuid.New().String(),
		Source: source,
		Target: target,
		Type:   kind,
		Weight: weight,
	}
}

// NewGraph creates an empty graph with a unique ID and the given viewport
func NewGraph(name string, viewport Viewport) *Graph {
	return &Graph{
		ID:       uuid.New().String(),
		Name:     name,
		Nodes:    []Node{},
		Edges:    []Edge{},
		Viewport: viewport,
	}
}

// TypeRadius returns the default drawing radius for a node type
func TypeRadius(t NodeType) float64 {
	switch t {
	case NodeVerse:
		return VerseRadius
	case NodeGroup:
		return GroupRadius
	case NodeNote:
		return NoteRadius
	case NodeTag:
		return TagRadius
	default:
		return DefaultRadius
	}
}

// EffectiveRadius returns the node's radius, falling back to its type default
func (n Node) EffectiveRadius() float64 {
	if n.Radius > 0 && !math.IsInf(n.Radius, 1) {
		return n.Radius
	}
	return TypeRadius(n.Type)
}

// AddNode adds a node to the graph
func (g *Graph) AddNode(node *Node) {
	g.Nodes = append(g.Nodes, *node)
}

// AddEdge adds an edge to the graph. Endpoints are not checked here;
// the graph model drops edges that do not resolve.
func (g *Graph) AddEdge(edge *Edge) {
	g.Edges = append(g.Edges, *edge)
}

// RemoveNode removes a node and all connected edges from the graph. It
// reports whether the node was present.
func (g *Graph) RemoveNode(nodeID string) bool {
	if _, err := g.FindNodeByID(nodeID); err != nil {
		return false
	}

	var newNodes []Node
	for _, node := range g.Nodes {
		if node.ID != nodeID {
			newNodes = append(newNodes, node)
		}
	}
	g.Nodes = newNodes

	var newEdges []Edge
	for _, edge := range g.Edges {
		if edge.Source != nodeID && edge.Target != nodeID {
			newEdges = append(newEdges, edge)
		}
	}
	g.Edges = newEdges
	return true
}
