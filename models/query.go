package models

import (
	"errors"
)

// ErrNodeNotFound is returned when a lookup names no node in the graph
var ErrNodeNotFound = errors.New("node not found")

// Link is one connection seen from a node
type Link struct {
	Node     Node           `json:"node"`
	EdgeID   string         `json:"edgeId"`
	Kind     ConnectionKind `json:"kind"`
	Outgoing bool           `json:"outgoing"`
}

// FindNodeByID returns a node by its ID
func (g *Graph) FindNodeByID(id string) (Node, error) {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node, nil
		}
	}
	return Node{}, ErrNodeNotFound
}

// CountByType returns how many nodes of each type the graph holds
func (g *Graph) CountByType() map[NodeType]int {
	counts := make(map[NodeType]int, len(NodeTypes))
	for _, node := range g.Nodes {
		counts[node.Type]++
	}
	return counts
}

// Links returns every edge touching nodeID together with the node at its
// other end. Edges whose far end is missing are skipped.
func (g *Graph) Links(nodeID string) []Link {
	byID := make(map[string]Node, len(g.Nodes))
	for _, node := range g.Nodes {
		byID[node.ID] = node
	}

	var links []Link
	for _, edge := range g.Edges {
		var other string
		switch nodeID {
		case edge.Source:
			other = edge.Target
		case edge.Target:
			other = edge.Source
		default:
			continue
		}
		node, ok := byID[other]
		if !ok {
			continue
		}
		links = append(links, Link{Node: node, EdgeID: edge.ID, Kind: edge.Type, Outgoing: edge.Source == nodeID})
	}
	return links
}
