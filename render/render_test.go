package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/snapshot"
)

func testScene() Scene {
	nodes := []models.Node{
		{ID: "jn316", Type: models.NodeVerse, Label: "John 3:16"},
		{ID: "love", Type: models.NodeTag, Label: "#love & <grace>"},
		{ID: "unplaced", Type: models.NodeNote},
	}
	edges := []models.Edge{
		{ID: "e1", Source: "jn316", Target: "love", Type: models.ConnTagged, Weight: 2},
	}
	snap := snapshot.Snapshot{
		Iteration: 12,
		Final:     true,
		Positions: map[string]models.Position{
			"jn316": {X: 0, Y: 0},
			"love":  {X: 400, Y: 200},
		},
	}
	return NewScene(models.Viewport{Width: 400, Height: 200}, nodes, edges, snap)
}

func TestGetRenderer(t *testing.T) {
	for _, format := range []string{"svg", "ASCII", "txt", "json", "dot"} {
		r, err := GetRenderer(format)
		require.NoError(t, err, format)
		assert.NotEmpty(t, r.Name())
		assert.NotEmpty(t, r.Description())
	}

	_, err := GetRenderer("webgl")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSVGRenderer(t *testing.T) {
	out, err := Render(testScene(), NewDefaultOptions("svg"))
	require.NoError(t, err)
	svg := string(out)

	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `viewBox="0 0 400 200"`)
	assert.Contains(t, svg, `<line x1="0.00" y1="0.00" x2="400.00" y2="200.00"`)
	assert.Contains(t, svg, `stroke-width="2"`)
	assert.Equal(t, 2, strings.Count(svg, "<circle"), "unplaced nodes are skipped")
	assert.Contains(t, svg, `r="18"`)
	assert.Contains(t, svg, "#love &amp; &lt;grace&gt;")
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
}

func TestSVGRenderer_Highlight(t *testing.T) {
	scene := testScene()
	scene.Selected = "love"
	out, err := Render(scene, NewDefaultOptions("svg"))
	require.NoError(t, err)
	assert.Contains(t, string(out), DefaultPalette().Highlight)
}

func TestASCIIRenderer(t *testing.T) {
	opts := NewDefaultOptions("ascii")
	opts.Columns, opts.Rows = 20, 10
	out, err := Render(testScene(), opts)
	require.NoError(t, err)

	lines := strings.Split(string(out), "\n")
	assert.Equal(t, "+"+strings.Repeat("-", 20)+"+", lines[0])
	assert.Equal(t, 'O', []rune(lines[1])[1], "verse at the top left")
	assert.Equal(t, '#', []rune(lines[10])[20], "tag at the bottom right")
	assert.Contains(t, string(out), "O John 3:16")
}

func TestGrid_EdgesBetweenNodes(t *testing.T) {
	grid := Grid(testScene(), 11, 11)
	require.Len(t, grid, 11)

	assert.Equal(t, 'O', grid[0][0])
	assert.Equal(t, '#', grid[10][10])
	assert.Equal(t, '.', grid[5][5])
	assert.Equal(t, ' ', grid[0][10])
	assert.Nil(t, Grid(testScene(), 0, 5))
}

func TestGrid_HeldNode(t *testing.T) {
	scene := testScene()
	scene.Held = "jn316"
	grid := Grid(scene, 5, 5)
	assert.Equal(t, '+', grid[0][0])
}

func TestCell_ClampsOutside(t *testing.T) {
	vp := models.Viewport{Width: 100, Height: 100}
	x, y := Cell(vp, models.Position{X: -50, Y: 500}, 10, 10)
	assert.Equal(t, 0, x)
	assert.Equal(t, 9, y)
}

func TestJSONRenderer(t *testing.T) {
	out, err := Render(testScene(), NewDefaultOptions("json"))
	require.NoError(t, err)

	var doc struct {
		Iteration int  `json:"iteration"`
		Final     bool `json:"final"`
		Nodes     []struct {
			ID    string  `json:"id"`
			X     float64 `json:"x"`
			Color string  `json:"color"`
		} `json:"nodes"`
		Edges []struct {
			Weight float64 `json:"weight"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))

	assert.Equal(t, 12, doc.Iteration)
	assert.True(t, doc.Final)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, 400.0, doc.Nodes[1].X)
	assert.Equal(t, "#34A853", doc.Nodes[1].Color)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, 2.0, doc.Edges[0].Weight)
}

func TestDOTRenderer(t *testing.T) {
	opts := NewDefaultOptions("dot")
	opts.ShowEdgeLabels = true
	out, err := Render(testScene(), opts)
	require.NoError(t, err)
	dot := string(out)

	assert.True(t, strings.HasPrefix(dot, "graph versegraph {"))
	assert.Contains(t, dot, `"jn316" [label="John 3:16"`)
	assert.Contains(t, dot, `pos="0.00,200.00!"`, "y is flipped")
	assert.Contains(t, dot, `"jn316" -- "love"`)
	assert.Contains(t, dot, `label="TAGGED"`)
}

func TestRender_Defaults(t *testing.T) {
	out, err := Render(testScene(), nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<svg")

	_, err = Render(testScene(), &Options{Format: "png"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPalette(t *testing.T) {
	p, err := PaletteByName("dark")
	require.NoError(t, err)
	assert.Equal(t, "#212121", p.Background)
	assert.Equal(t, p.DefaultNode, p.NodeColor("UNKNOWN"))
	assert.Equal(t, p.DefaultEdge, p.EdgeColor("UNKNOWN"))

	_, err = PaletteByName("neon")
	assert.Error(t, err)
}
