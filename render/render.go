// Package render draws a laid-out study graph. It stands in for the app's
// canvas: the engine only produces positions, and these renderers turn a
// snapshot of them into SVG, terminal text, JSON or Graphviz DOT.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/snapshot"
)

// ErrUnsupportedFormat is returned for output formats no renderer handles
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Scene is everything a renderer needs for one frame
type Scene struct {
	Viewport  models.Viewport
	Nodes     []models.Node
	Edges     []models.Edge
	Positions map[string]models.Position
	Iteration int
	Final     bool
	// Selected and Held mark nodes the user tapped or is dragging
	Selected string
	Held     string
}

// NewScene pairs normalized nodes and edges with a snapshot's positions
func NewScene(vp models.Viewport, nodes []models.Node, edges []models.Edge, snap snapshot.Snapshot) Scene {
	return Scene{
		Viewport:  vp,
		Nodes:     nodes,
		Edges:     edges,
		Positions: snap.Positions,
		Iteration: snap.Iteration,
		Final:     snap.Final,
	}
}

// placed returns the position of a node, if the snapshot has one
func (s Scene) placed(id string) (models.Position, bool) {
	p, ok := s.Positions[id]
	return p, ok
}

// Options defines rendering configuration options
type Options struct {
	Format         string   // Output format (svg, ascii, json, dot)
	Palette        *Palette // Colors per node type and connection kind
	ShowLabels     bool     // Show node labels
	ShowEdgeLabels bool     // Show connection kinds on edges
	FontSize       float64  // Font size for labels
	EdgeWidth      float64  // Base edge width; weighted edges scale from it
	Columns        int      // Text grid width (ascii)
	Rows           int      // Text grid height (ascii)
}

// NewDefaultOptions creates a default set of output options
func NewDefaultOptions(format string) *Options {
	return &Options{
		Format:     format,
		Palette:    DefaultPalette(),
		ShowLabels: true,
		FontSize:   10,
		EdgeWidth:  1,
		Columns:    80,
		Rows:       24,
	}
}

// Renderer interface defines methods that all rendering backends must implement
type Renderer interface {
	// Render draws the scene using the provided options
	Render(scene Scene, options *Options) ([]byte, error)

	// Name returns the name of the renderer
	Name() string

	// Description returns a description of the renderer
	Description() string
}

// GetRenderer returns the appropriate renderer based on format
func GetRenderer(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "svg":
		return &SVGRenderer{}, nil
	case "ascii", "txt":
		return &ASCIIRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "dot":
		return &DOTRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Render draws scene in the format named by options
func Render(scene Scene, options *Options) ([]byte, error) {
	if options == nil {
		options = NewDefaultOptions("svg")
	}
	if options.Palette == nil {
		options.Palette = DefaultPalette()
	}
	renderer, err := GetRenderer(options.Format)
	if err != nil {
		return nil, err
	}
	out, err := renderer.Render(scene, options)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", renderer.Name(), err)
	}
	return out, nil
}

// Palette provides the color scheme for a rendering
type Palette struct {
	Nodes       map[models.NodeType]string
	Edges       map[models.ConnectionKind]string
	DefaultNode string
	DefaultEdge string
	Background  string
	Highlight   string
}

// DefaultPalette returns the light study palette
func DefaultPalette() *Palette {
	return &Palette{
		Nodes: map[models.NodeType]string{
			models.NodeVerse: "#4285F4",
			models.NodeGroup: "#673AB7",
			models.NodeNote:  "#FBBC05",
			models.NodeTag:   "#34A853",
		},
		Edges: map[models.ConnectionKind]string{
			models.ConnCrossReference: "#666666",
			models.ConnTheme:          "#009688",
			models.ConnProphecy:       "#EA4335",
			models.ConnNote:           "#AAAAAA",
			models.ConnGroupMember:    "#9575CD",
			models.ConnTagged:         "#81C784",
		},
		DefaultNode: "#4285F4",
		DefaultEdge: "#888888",
		Background:  "#f8f8f8",
		Highlight:   "#FF5722",
	}
}

// DarkPalette returns a palette for dark backgrounds
func DarkPalette() *Palette {
	return &Palette{
		Nodes: map[models.NodeType]string{
			models.NodeVerse: "#2979FF",
			models.NodeGroup: "#651FFF",
			models.NodeNote:  "#FF6D00",
			models.NodeTag:   "#00E676",
		},
		Edges: map[models.ConnectionKind]string{
			models.ConnCrossReference: "#9E9E9E",
			models.ConnTheme:          "#00BFA5",
			models.ConnProphecy:       "#F50057",
			models.ConnNote:           "#757575",
			models.ConnGroupMember:    "#9C27B0",
			models.ConnTagged:         "#76FF03",
		},
		DefaultNode: "#2979FF",
		DefaultEdge: "#616161",
		Background:  "#212121",
		Highlight:   "#C6FF00",
	}
}

// PaletteByName returns a palette for "light"/"default" or "dark"
func PaletteByName(name string) (*Palette, error) {
	switch strings.ToLower(name) {
	case "", "default", "light":
		return DefaultPalette(), nil
	case "dark":
		return DarkPalette(), nil
	default:
		return nil, fmt.Errorf("unknown palette %q", name)
	}
}

// NodeColor returns the fill for a node type
func (p *Palette) NodeColor(t models.NodeType) string {
	if c, ok := p.Nodes[t]; ok {
		return c
	}
	return p.DefaultNode
}

// EdgeColor returns the stroke for a connection kind
func (p *Palette) EdgeColor(k models.ConnectionKind) string {
	if c, ok := p.Edges[k]; ok {
		return c
	}
	return p.DefaultEdge
}
