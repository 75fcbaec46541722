package render

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/TFMV/versegraph/models"
)

// SVGRenderer outputs SVG format
type SVGRenderer struct{}

// Name returns the name of the renderer
func (r *SVGRenderer) Name() string {
	return "SVG Renderer"
}

// Description returns a description of the renderer
func (r *SVGRenderer) Description() string {
	return "Renders the layout as Scalable Vector Graphics (SVG)"
}

// Render creates an SVG representation of the scene
func (r *SVGRenderer) Render(scene Scene, options *Options) ([]byte, error) {
	var buf bytes.Buffer
	w, h := scene.Viewport.Width, scene.Viewport.Height
	p := options.Palette

	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg width="%g" height="%g" viewBox="0 0 %g %g" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, p.Background)

	for _, edge := range scene.Edges {
		source, okSource := scene.placed(edge.Source)
		target, okTarget := scene.placed(edge.Target)
		if !okSource || !okTarget {
			continue
		}

		color := p.EdgeColor(edge.Type)
		strokeWidth := options.EdgeWidth
		if edge.Weight > 0 {
			strokeWidth = math.Max(0.5, edge.Weight*options.EdgeWidth)
		}
		dash := ""
		if edge.Type == models.ConnTheme {
			dash = ` stroke-dasharray="5,3"`
		}

		fmt.Fprintf(&buf, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%g"%s/>
`, source.X, source.Y, target.X, target.Y, color, strokeWidth, dash)

		if options.ShowEdgeLabels && edge.Type != "" {
			fmt.Fprintf(&buf, `<text x="%.2f" y="%.2f" font-family="sans-serif" font-size="%g" fill="%s" text-anchor="middle">%s</text>
`, (source.X+target.X)/2, (source.Y+target.Y)/2, options.FontSize*0.8, color, html.EscapeString(string(edge.Type)))
		}
	}

	for _, node := range scene.Nodes {
		pos, ok := scene.placed(node.ID)
		if !ok {
			continue
		}
		radius := node.EffectiveRadius()
		stroke := "rgba(0,0,0,0.3)"
		if node.ID == scene.Selected || node.ID == scene.Held {
			stroke = p.Highlight
		}

		fmt.Fprintf(&buf, `<circle cx="%.2f" cy="%.2f" r="%g" fill="%s" stroke="%s" stroke-width="1"><title>%s</title></circle>
`, pos.X, pos.Y, radius, p.NodeColor(node.Type), stroke, html.EscapeString(node.ID))

		if options.ShowLabels && node.Label != "" {
			fmt.Fprintf(&buf, `<text x="%.2f" y="%.2f" font-family="sans-serif" font-size="%g" fill="#333333" text-anchor="middle">%s</text>
`, pos.X, pos.Y+radius+options.FontSize+2, options.FontSize, html.EscapeString(node.Label))
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}
