// Package ingest turns study graph files into node and edge lists.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TFMV/versegraph/models"
)

// ErrUnsupportedFormat is returned for input formats no processor handles
var ErrUnsupportedFormat = errors.New("unsupported format")

// DataProcessor defines the interface that all data processors must implement
type DataProcessor interface {
	// Process takes raw data bytes and returns the graph it describes.
	// Dangling or duplicate references are passed through; the engine
	// repairs them.
	Process(data []byte) (*models.Graph, error)

	// Name returns the name of the processor
	Name() string
}

// JSONProcessor handles JSON study graphs
type JSONProcessor struct{}

// NewJSONProcessor creates a new JSON processor
func NewJSONProcessor() *JSONProcessor {
	return &JSONProcessor{}
}

// Name returns the name of the processor
func (p *JSONProcessor) Name() string {
	return "JSON Processor"
}

// Process parses {"name", "viewport", "nodes", "edges"} documents
func (p *JSONProcessor) Process(data []byte) (*models.Graph, error) {
	var doc struct {
		Name     string          `json:"name"`
		Viewport models.Viewport `json:"viewport"`
		Nodes    []models.Node   `json:"nodes"`
		Edges    []models.Edge   `json:"edges"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}

	name := doc.Name
	if name == "" {
		name = "JSON Import"
	}
	graph := models.NewGraph(name, doc.Viewport)
	for i := range doc.Nodes {
		graph.AddNode(&doc.Nodes[i])
	}
	for i := range doc.Edges {
		graph.AddEdge(&doc.Edges[i])
	}
	return graph, nil
}

// CSVProcessor handles edge lists with a header row
type CSVProcessor struct{}

// NewCSVProcessor creates a new CSV processor
func NewCSVProcessor() *CSVProcessor {
	return &CSVProcessor{}
}

// Name returns the name of the processor
func (p *CSVProcessor) Name() string {
	return "CSV Processor"
}

// csvColumns locates the recognised columns of a header row
type csvColumns struct {
	source, target, kind, weight, sourceType, targetType int
}

func findColumns(header []string) (csvColumns, error) {
	cols := csvColumns{-1, -1, -1, -1, -1, -1}
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "source", "from", "src":
			cols.source = i
		case "target", "to", "dst":
			cols.target = i
		case "type", "kind", "connection":
			cols.kind = i
		case "weight", "value", "strength":
			cols.weight = i
		case "source_type":
			cols.sourceType = i
		case "target_type":
			cols.targetType = i
		}
	}
	if cols.source == -1 || cols.target == -1 {
		return cols, fmt.Errorf("CSV must contain source and target columns")
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Process reads one edge per row. Nodes are created on first mention; their
// type comes from the source_type/target_type columns or the label prefix.
func (p *CSVProcessor) Process(data []byte) (*models.Graph, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}
	cols, err := findColumns(header)
	if err != nil {
		return nil, err
	}

	graph := models.NewGraph("CSV Import", models.Viewport{})
	b := newBuilder(graph)

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row %d: %w", line, err)
		}

		source := b.node(cell(row, cols.source), models.NodeType(strings.ToUpper(cell(row, cols.sourceType))))
		target := b.node(cell(row, cols.target), models.NodeType(strings.ToUpper(cell(row, cols.targetType))))

		weight := 0.0
		if raw := cell(row, cols.weight); raw != "" {
			w, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("error reading CSV row %d: weight %q: %w", line, raw, err)
			}
			weight = w
		}
		kind := models.ConnectionKind(strings.ToUpper(cell(row, cols.kind)))
		if kind == "" {
			kind = defaultKind(source, target)
		}
		b.edge(source, target, kind, weight)
	}

	return graph, nil
}

// TextProcessor handles plain-text study notes where each line links two
// references, e.g. "John 3:16 -> Romans 5:8" or "#grace ~ Ephesians 2:8"
type TextProcessor struct{}

// NewTextProcessor creates a new text processor
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

// Name returns the name of the processor
func (p *TextProcessor) Name() string {
	return "Text Processor"
}

// textPatterns maps line separators to the connection they describe
var textPatterns = []struct {
	separator string
	kind      models.ConnectionKind
}{
	{" => ", models.ConnProphecy},
	{" -> ", models.ConnCrossReference},
	{" ~ ", models.ConnTheme},
	{" - ", models.ConnCrossReference},
}

// Process parses one relationship per line. Lines starting with "//" and
// lines without a known separator are skipped.
func (p *TextProcessor) Process(data []byte) (*models.Graph, error) {
	graph := models.NewGraph("Text Import", models.Viewport{})
	b := newBuilder(graph)

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		for _, pattern := range textPatterns {
			parts := strings.Split(line, pattern.separator)
			if len(parts) != 2 {
				continue
			}
			source := b.node(strings.TrimSpace(parts[0]), "")
			target := b.node(strings.TrimSpace(parts[1]), "")
			kind := pattern.kind
			if pattern.kind == models.ConnCrossReference {
				kind = defaultKind(source, target)
			}
			b.edge(source, target, kind, 0)
			break
		}
	}

	return graph, nil
}

// builder creates nodes on first mention and keeps ids stable across runs,
// so re-ingesting an edited file only changes what was edited
type builder struct {
	graph *models.Graph
	nodes map[string]*models.Node
}

func newBuilder(g *models.Graph) *builder {
	return &builder{graph: g, nodes: make(map[string]*models.Node)}
}

func (b *builder) node(label string, nodeType models.NodeType) *models.Node {
	if n, ok := b.nodes[label]; ok {
		return n
	}
	if !nodeType.Valid() {
		nodeType = InferType(label)
	}
	n := &models.Node{ID: label, Type: nodeType, Label: displayLabel(label)}
	b.graph.AddNode(n)
	b.nodes[label] = n
	return n
}

func (b *builder) edge(source, target *models.Node, kind models.ConnectionKind, weight float64) {
	id := fmt.Sprintf("%s|%s|%s", source.ID, target.ID, kind)
	b.graph.AddEdge(&models.Edge{ID: id, Source: source.ID, Target: target.ID, Type: kind, Weight: weight})
}

// InferType guesses a node type from a label: "#tag", "note:…", "group:…",
// anything else is a verse reference
func InferType(label string) models.NodeType {
	lower := strings.ToLower(label)
	switch {
	case strings.HasPrefix(lower, "#"):
		return models.NodeTag
	case strings.HasPrefix(lower, "note:"):
		return models.NodeNote
	case strings.HasPrefix(lower, "group:"):
		return models.NodeGroup
	default:
		return models.NodeVerse
	}
}

func displayLabel(label string) string {
	lower := strings.ToLower(label)
	for _, prefix := range []string{"note:", "group:"} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(label[len(prefix):])
		}
	}
	return label
}

// defaultKind picks the connection implied by the endpoint types
func defaultKind(source, target *models.Node) models.ConnectionKind {
	for _, t := range []models.NodeType{source.Type, target.Type} {
		switch t {
		case models.NodeTag:
			return models.ConnTagged
		case models.NodeNote:
			return models.ConnNote
		case models.NodeGroup:
			return models.ConnGroupMember
		}
	}
	return models.ConnCrossReference
}

// GetProcessor returns the appropriate processor for the given format
func GetProcessor(format string) (DataProcessor, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONProcessor(), nil
	case "csv":
		return NewCSVProcessor(), nil
	case "txt", "text":
		return NewTextProcessor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// FormatFromPath returns the format implied by a file extension
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
