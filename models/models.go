// Package models provides data structures shared by the versegraph layout engine.
// It defines the host-facing node, edge and viewport types that flow into the engine.
package models

import "math"

// NodeType classifies a node in the study graph
type NodeType string

const (
	NodeVerse NodeType = "VERSE"
	NodeGroup NodeType = "GROUP"
	NodeNote  NodeType = "NOTE"
	NodeTag   NodeType = "TAG"
)

// NodeTypes lists every node type in sector order.
var NodeTypes = []NodeType{NodeVerse, NodeGroup, NodeNote, NodeTag}

// Valid reports whether t is one of the known node types
func (t NodeType) Valid() bool {
	return t.Index() >= 0
}

// Index returns the position of t in NodeTypes, or -1 if unknown
func (t NodeType) Index() int {
	for i, known := range NodeTypes {
		if known == t {
			return i
		}
	}
	return -1
}

// ConnectionKind names the relationship carried by an edge
type ConnectionKind string

const (
	ConnCrossReference ConnectionKind = "CROSS_REFERENCE"
	ConnTheme          ConnectionKind = "THEME"
	ConnProphecy       ConnectionKind = "PROPHECY"
	ConnNote           ConnectionKind = "NOTE_ATTACHMENT"
	ConnGroupMember    ConnectionKind = "GROUP_MEMBER"
	ConnTagged         ConnectionKind = "TAGGED"
)

// Node represents a node handed to the engine by the host
type Node struct {
	ID         string   `json:"id"`
	Type       NodeType `json:"type"`
	Label      string   `json:"label,omitempty"`
	Radius     float64  `json:"radius,omitempty"`     // 0 means the type default
	OriginalID string   `json:"originalId,omitempty"` // set when the id was suffixed
}

// Edge represents a typed connection between two nodes
type Edge struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Type   ConnectionKind `json:"type"`
	Weight float64        `json:"weight,omitempty"` // <= 0 means unset
}

// Multiplier returns the weight applied to the edge's spring
func (e Edge) Multiplier() float64 {
	if e.Weight <= 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
		return 1
	}
	return e.Weight
}

// Viewport is the drawable area the layout must stay within
type Viewport struct {
	Width  float64 `json:"width" yaml:"width" toml:"width" validate:"gt=0"`
	Height float64 `json:"height" yaml:"height" toml:"height" validate:"gt=0"`
}

// Center returns the middle of the viewport
func (v Viewport) Center() Position {
	return Position{X: v.Width / 2, Y: v.Height / 2}
}

// MinDim returns the smaller of the two dimensions
func (v Viewport) MinDim() float64 {
	return math.Min(v.Width, v.Height)
}

// Position is a point in viewport coordinates
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the euclidean distance between two positions
func (p Position) Distance(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Graph bundles the node and edge lists a host hands to the engine
type Graph struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Viewport Viewport `json:"viewport"`
}
