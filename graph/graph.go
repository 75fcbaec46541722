// Package graph normalizes host-supplied node and edge lists into the form the
// layout engine consumes: unique node ids, resolved edge endpoints and no
// self-loops. Malformed input is repaired or dropped, never rejected.
package graph

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/TFMV/versegraph/models"
)

// DiagnosticKind classifies a repair made during normalization
type DiagnosticKind string

const (
	DuplicateNode   DiagnosticKind = "duplicate_node"
	MissingNodeID   DiagnosticKind = "missing_node_id"
	UnknownNodeType DiagnosticKind = "unknown_node_type"
	DuplicateEdge   DiagnosticKind = "duplicate_edge"
	SelfLoop        DiagnosticKind = "self_loop"
	DanglingEdge    DiagnosticKind = "dangling_edge"
)

// Diagnostic describes one repaired or dropped input element
type Diagnostic struct {
	Kind    DiagnosticKind
	NodeID  string
	EdgeID  string
	Message string
}

// Dropped reports whether the diagnostic removed an element
func (d Diagnostic) Dropped() bool {
	return d.Kind == SelfLoop || d.Kind == DanglingEdge
}

// DiagnosticFunc receives diagnostics. It must not block.
type DiagnosticFunc func(Diagnostic)

// suffixSep joins a duplicated id with its occurrence counter.
const suffixSep = "~"

// Normalizer turns raw node and edge lists into engine input
type Normalizer struct {
	logger       *zap.Logger
	onDiagnostic DiagnosticFunc
}

// NewNormalizer creates a normalizer. Both arguments may be nil.
func NewNormalizer(logger *zap.Logger, fn DiagnosticFunc) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger, onDiagnostic: fn}
}

// Normalize de-duplicates node ids, remaps edges onto them and drops edges
// that are self-loops or reference a node that does not exist. The input
// slices are never modified.
func (n *Normalizer) Normalize(nodes []models.Node, edges []models.Edge) ([]models.Node, []models.Edge) {
	outNodes := make([]models.Node, 0, len(nodes))
	taken := make(map[string]bool, len(nodes))
	// remap holds the internal id each original id resolves to for edges
	remap := make(map[string]string, len(nodes))
	seen := make(map[string]int, len(nodes))

	// synthesized ids must not shadow an id given later in the input
	explicit := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if node.ID != "" {
			explicit[node.ID] = true
		}
	}

	for i, node := range nodes {
		if node.ID == "" {
			base := "node-" + strconv.Itoa(i)
			node.ID = base
			for explicit[node.ID] || taken[node.ID] {
				node.ID = uniqueID(base, seen, taken)
			}
			n.report(Diagnostic{
				Kind:    MissingNodeID,
				NodeID:  node.ID,
				Message: fmt.Sprintf("node at index %d has no id", i),
			})
		}
		if !node.Type.Valid() {
			n.report(Diagnostic{
				Kind:    UnknownNodeType,
				NodeID:  node.ID,
				Message: fmt.Sprintf("node type %q replaced with %s", node.Type, models.NodeVerse),
			})
			node.Type = models.NodeVerse
		}

		original := node.ID
		if _, dup := remap[original]; dup || taken[original] {
			node.ID = uniqueID(original, seen, taken)
			node.OriginalID = original
			n.report(Diagnostic{
				Kind:    DuplicateNode,
				NodeID:  node.ID,
				Message: fmt.Sprintf("duplicate node id %q renamed to %q", original, node.ID),
			})
		}
		if _, ok := remap[original]; !ok {
			remap[original] = node.ID
		}
		taken[node.ID] = true
		outNodes = append(outNodes, node)
	}

	outEdges := make([]models.Edge, 0, len(edges))
	edgeTaken := make(map[string]bool, len(edges))
	edgeSeen := make(map[string]int, len(edges))

	for i, edge := range edges {
		if edge.ID == "" {
			edge.ID = "edge-" + strconv.Itoa(i)
		}
		source, okSource := remap[edge.Source]
		target, okTarget := remap[edge.Target]
		if !okSource || !okTarget {
			n.report(Diagnostic{
				Kind:    DanglingEdge,
				EdgeID:  edge.ID,
				Message: fmt.Sprintf("edge %s -> %s references a missing node", edge.Source, edge.Target),
			})
			continue
		}
		if source == target {
			n.report(Diagnostic{
				Kind:    SelfLoop,
				EdgeID:  edge.ID,
				NodeID:  source,
				Message: fmt.Sprintf("edge loops on node %s", source),
			})
			continue
		}
		edge.Source = source
		edge.Target = target

		if edgeTaken[edge.ID] {
			original := edge.ID
			edge.ID = uniqueID(original, edgeSeen, edgeTaken)
			n.report(Diagnostic{
				Kind:    DuplicateEdge,
				EdgeID:  edge.ID,
				Message: fmt.Sprintf("duplicate edge id %q renamed to %q", original, edge.ID),
			})
		}
		edgeTaken[edge.ID] = true
		outEdges = append(outEdges, edge)
	}

	return outNodes, outEdges
}

// uniqueID returns the next free suffixed form of id
func uniqueID(id string, seen map[string]int, taken map[string]bool) string {
	for {
		seen[id]++
		candidate := id + suffixSep + strconv.Itoa(seen[id])
		if !taken[candidate] {
			return candidate
		}
	}
}

func (n *Normalizer) report(d Diagnostic) {
	n.logger.Debug("normalized graph input",
		zap.String("kind", string(d.Kind)),
		zap.String("node", d.NodeID),
		zap.String("edge", d.EdgeID),
		zap.String("detail", d.Message),
	)
	if n.onDiagnostic != nil {
		n.onDiagnostic(d)
	}
}

// NodeIDs returns the ids of nodes as a set
func NodeIDs(nodes []models.Node) map[string]struct{} {
	ids := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		ids[node.ID] = struct{}{}
	}
	return ids
}

// SameNodeSet reports whether a and b contain exactly the same node ids
func SameNodeSet(a, b []models.Node) bool {
	if len(a) != len(b) {
		return false
	}
	ids := NodeIDs(a)
	for _, node := range b {
		if _, ok := ids[node.ID]; !ok {
			return false
		}
	}
	return true
}

// SameEdges reports whether two normalized edge lists are identical
func SameEdges(a, b []models.Edge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
