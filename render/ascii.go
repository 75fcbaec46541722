package render

import (
	"math"
	"strings"

	"github.com/TFMV/versegraph/models"
)

// ASCIIRenderer outputs the layout as a text grid
type ASCIIRenderer struct{}

// Name returns the name of the renderer
func (r *ASCIIRenderer) Name() string {
	return "ASCII Renderer"
}

// Description returns a description of the renderer
func (r *ASCIIRenderer) Description() string {
	return "Renders the layout as ASCII text for terminal display"
}

// Symbol returns the grid character for a node type
func Symbol(t models.NodeType) rune {
	switch t {
	case models.NodeVerse:
		return 'O'
	case models.NodeGroup:
		return '@'
	case models.NodeNote:
		return '*'
	case models.NodeTag:
		return '#'
	default:
		return 'o'
	}
}

// Grid rasterizes the scene into rows of cols runes. Edges are drawn
// first so nodes always stay visible.
func Grid(scene Scene, cols, rows int) [][]rune {
	if cols < 1 || rows < 1 {
		return nil
	}
	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}

	for _, edge := range scene.Edges {
		source, okSource := scene.placed(edge.Source)
		target, okTarget := scene.placed(edge.Target)
		if !okSource || !okTarget {
			continue
		}
		x1, y1 := Cell(scene.Viewport, source, cols, rows)
		x2, y2 := Cell(scene.Viewport, target, cols, rows)
		drawLine(grid, x1, y1, x2, y2, '.')
	}

	for _, node := range scene.Nodes {
		pos, ok := scene.placed(node.ID)
		if !ok {
			continue
		}
		x, y := Cell(scene.Viewport, pos, cols, rows)
		symbol := Symbol(node.Type)
		if node.ID == scene.Held {
			symbol = '+'
		}
		grid[y][x] = symbol
	}

	return grid
}

// Cell maps a viewport position to a grid cell
func Cell(vp models.Viewport, p models.Position, cols, rows int) (int, int) {
	x, y := 0, 0
	if vp.Width > 0 {
		x = int(math.Round(p.X / vp.Width * float64(cols-1)))
	}
	if vp.Height > 0 {
		y = int(math.Round(p.Y / vp.Height * float64(rows-1)))
	}
	return clamp(x, 0, cols-1), clamp(y, 0, rows-1)
}

// Render creates an ASCII representation of the scene with a border and legend
func (r *ASCIIRenderer) Render(scene Scene, options *Options) ([]byte, error) {
	cols, rows := options.Columns, options.Rows
	if cols < 2 {
		cols = 80
	}
	if rows < 2 {
		rows = 24
	}

	var sb strings.Builder
	sb.WriteString("+" + strings.Repeat("-", cols) + "+\n")
	for _, row := range Grid(scene, cols, rows) {
		sb.WriteString("|")
		sb.WriteString(string(row))
		sb.WriteString("|\n")
	}
	sb.WriteString("+" + strings.Repeat("-", cols) + "+\n")
	sb.WriteString("O verse  @ group  * note  # tag  . connection\n")

	if options.ShowLabels {
		for _, node := range scene.Nodes {
			if _, ok := scene.placed(node.ID); !ok || node.Label == "" {
				continue
			}
			sb.WriteString(string(Symbol(node.Type)))
			sb.WriteString(" ")
			sb.WriteString(node.Label)
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}

// drawLine draws a line between two cells using Bresenham's algorithm,
// leaving the endpoints for the node symbols
func drawLine(grid [][]rune, x1, y1, x2, y2 int, char rune) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy

	x, y := x1, y1
	for {
		if (x != x1 || y != y1) && (x != x2 || y != y2) {
			if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) && grid[y][x] == ' ' {
				grid[y][x] = char
			}
		}
		if x == x2 && y == y2 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
