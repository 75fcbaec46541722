package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/TFMV/versegraph/models"
)

// JSONRenderer outputs node positions as JSON for other canvases
type JSONRenderer struct{}

// Name returns the name of the renderer
func (r *JSONRenderer) Name() string {
	return "JSON Renderer"
}

// Description returns a description of the renderer
func (r *JSONRenderer) Description() string {
	return "Renders the layout as JSON for use in other tools"
}

type jsonNode struct {
	ID     string          `json:"id"`
	Type   models.NodeType `json:"type"`
	Label  string          `json:"label,omitempty"`
	Radius float64         `json:"radius"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Color  string          `json:"color"`
}

type jsonEdge struct {
	ID     string                `json:"id"`
	Source string                `json:"source"`
	Target string                `json:"target"`
	Type   models.ConnectionKind `json:"type"`
	Weight float64               `json:"weight"`
	Color  string                `json:"color"`
}

type jsonLayout struct {
	Viewport  models.Viewport `json:"viewport"`
	Iteration int             `json:"iteration"`
	Final     bool            `json:"final"`
	Nodes     []jsonNode      `json:"nodes"`
	Edges     []jsonEdge      `json:"edges"`
}

// Render creates a JSON representation of the placed scene
func (r *JSONRenderer) Render(scene Scene, options *Options) ([]byte, error) {
	out := jsonLayout{
		Viewport:  scene.Viewport,
		Iteration: scene.Iteration,
		Final:     scene.Final,
		Nodes:     make([]jsonNode, 0, len(scene.Nodes)),
		Edges:     make([]jsonEdge, 0, len(scene.Edges)),
	}

	for _, node := range scene.Nodes {
		pos, ok := scene.placed(node.ID)
		if !ok {
			continue
		}
		out.Nodes = append(out.Nodes, jsonNode{
			ID:     node.ID,
			Type:   node.Type,
			Label:  node.Label,
			Radius: node.EffectiveRadius(),
			X:      pos.X,
			Y:      pos.Y,
			Color:  options.Palette.NodeColor(node.Type),
		})
	}
	for _, edge := range scene.Edges {
		out.Edges = append(out.Edges, jsonEdge{
			ID:     edge.ID,
			Source: edge.Source,
			Target: edge.Target,
			Type:   edge.Type,
			Weight: edge.Multiplier(),
			Color:  options.Palette.EdgeColor(edge.Type),
		})
	}

	return json.MarshalIndent(out, "", "  ")
}

// DOTRenderer outputs Graphviz DOT with fixed positions
type DOTRenderer struct{}

// Name returns the name of the renderer
func (r *DOTRenderer) Name() string {
	return "DOT Renderer"
}

// Description returns a description of the renderer
func (r *DOTRenderer) Description() string {
	return "Renders the layout as Graphviz DOT with pinned positions (use neato -n)"
}

// Render creates a DOT representation of the scene. Graphviz puts the
// origin at the bottom left, so y is flipped.
func (r *DOTRenderer) Render(scene Scene, options *Options) ([]byte, error) {
	var buf bytes.Buffer
	p := options.Palette

	buf.WriteString("graph versegraph {\n")
	buf.WriteString("  node [shape=circle, style=filled, fontname=\"sans-serif\"];\n")
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", p.Background)

	for _, node := range scene.Nodes {
		pos, ok := scene.placed(node.ID)
		if !ok {
			continue
		}
		label := ""
		if options.ShowLabels {
			label = node.Label
		}
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q, width=%.2f, pos=\"%.2f,%.2f!\"];\n",
			node.ID, label, p.NodeColor(node.Type), node.EffectiveRadius()*2/72,
			pos.X, scene.Viewport.Height-pos.Y)
	}

	for _, edge := range scene.Edges {
		attrs := fmt.Sprintf("color=%q, penwidth=%.2f", p.EdgeColor(edge.Type), edge.Multiplier()*options.EdgeWidth)
		if options.ShowEdgeLabels {
			attrs += fmt.Sprintf(", label=%q", edge.Type)
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", edge.Source, edge.Target, attrs)
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}
