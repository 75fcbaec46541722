package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TFMV/versegraph/engine"
	"github.com/TFMV/versegraph/ingest"
	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/render"
	"github.com/TFMV/versegraph/scheduler"
)

// renderFlags are shared by commands that write renderings
type renderFlags struct {
	output     string
	format     string
	palette    string
	noLabels   bool
	edgeLabels bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default stdout; format inferred from extension)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: "+formats())
	cmd.Flags().StringVar(&f.palette, "palette", "light", "Color palette: light, dark")
	cmd.Flags().BoolVar(&f.noLabels, "no-labels", false, "Hide node labels")
	cmd.Flags().BoolVar(&f.edgeLabels, "edge-labels", false, "Show connection kinds on edges")
}

func (f *renderFlags) options() (*render.Options, error) {
	format := f.format
	if format == "" && f.output != "" {
		format = ingest.FormatFromPath(f.output)
	}
	if format == "" {
		format = "ascii"
	}
	palette, err := render.PaletteByName(f.palette)
	if err != nil {
		return nil, err
	}
	opts := render.NewDefaultOptions(format)
	opts.Palette = palette
	opts.ShowLabels = !f.noLabels
	opts.ShowEdgeLabels = f.edgeLabels
	return opts, nil
}

// readGraph parses a graph file, picking the processor from its extension
// unless format is set
func readGraph(path, format string) (*models.Graph, error) {
	if format == "" {
		format = ingest.FormatFromPath(path)
	}
	processor, err := ingest.GetProcessor(format)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	g, err := processor.Process(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// sceneOf captures the engine's latest snapshot as a render scene
func sceneOf(eng *engine.Engine) render.Scene {
	return render.NewScene(eng.Viewport(), eng.Nodes(), eng.Edges(), eng.Latest())
}

// writeOutput writes data to path, or to stdout when path is empty
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func layoutCmd(global *globalOptions) *cobra.Command {
	var (
		rf          renderFlags
		inputFormat string
		width       float64
		height      float64
	)

	cmd := &cobra.Command{
		Use:   "layout <graph-file>",
		Short: "Run a layout to convergence and render it",
		Long: `Lay out a study graph once and write the result.

Input may be JSON ({nodes, edges, viewport}), a CSV edge list or a text file
with one relationship per line.

  versegraph layout study.json -o study.svg
  versegraph layout notes.txt -f dot --edge-labels | neato -n -Tpng > notes.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := global.load(cmd)
			if err != nil {
				return err
			}
			defer rt.logger.Sync()

			opts, err := rf.options()
			if err != nil {
				return err
			}
			g, err := readGraph(args[0], inputFormat)
			if err != nil {
				return err
			}

			sched := scheduler.NewManual()
			eng := rt.newEngine(sched)
			defer eng.Dispose()

			vp := rt.cfg.Viewport
			if g.Viewport.Width > 0 && g.Viewport.Height > 0 {
				vp = g.Viewport
			}
			if width > 0 {
				vp.Width = width
			}
			if height > 0 {
				vp.Height = height
			}
			eng.SetViewport(vp)
			eng.SetGraph(g.Nodes, g.Edges)

			ticks := sched.Drain(0)
			out, err := render.Render(sceneOf(eng), opts)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, rf.output, out); err != nil {
				return err
			}

			nodes, edges := eng.Nodes(), eng.Edges()
			Good.Fprintf(rt.stderr, "  ✓ %d nodes, %d edges laid out in %d ticks", len(nodes), len(edges), ticks)
			if rf.output != "" {
				Subtle.Fprintf(rt.stderr, " → %s", rf.output)
			}
			fmt.Fprintln(rt.stderr)
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "Input format: json, csv, txt (default from extension)")
	cmd.Flags().Float64Var(&width, "width", 0, "Viewport width (overrides config and file)")
	cmd.Flags().Float64Var(&height, "height", 0, "Viewport height (overrides config and file)")
	return cmd
}

// formats lists the supported output formats for help text
func formats() string {
	return strings.Join([]string{"svg", "ascii", "json", "dot"}, ", ")
}
