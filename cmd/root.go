// Package cmd implements the versegraph command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TFMV/versegraph/config"
	"github.com/TFMV/versegraph/engine"
	"github.com/TFMV/versegraph/graph"
	"github.com/TFMV/versegraph/logging"
	"github.com/TFMV/versegraph/metrics"
	"github.com/TFMV/versegraph/scheduler"
)

var version = "0.3.0"

// Output colors
var (
	Brand  = color.New(color.FgHiCyan, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

// globalOptions holds the persistent flags
type globalOptions struct {
	configPath string
	logLevel   string
	dev        bool
}

// runtime is what every subcommand needs once flags and config are parsed
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	stderr   io.Writer
}

func (o *globalOptions) load(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.dev {
		cfg.Log.Development = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  collector,
		stderr:   cmd.ErrOrStderr(),
	}, nil
}

// newEngine builds an engine from the loaded config. Normalization
// diagnostics are echoed to stderr.
func (rt *runtime) newEngine(sched scheduler.Scheduler) *engine.Engine {
	return engine.New(sched, engine.Options{
		Viewport:     rt.cfg.Viewport,
		Force:        rt.cfg.Force,
		PublishEvery: rt.cfg.Publish.Every,
		Seed:         rt.cfg.Layout.Seed,
		NoiseJitter:  rt.cfg.Layout.Noise,
		Logger:       rt.logger,
		Metrics:      rt.metrics,
		OnDiagnostic: func(d graph.Diagnostic) {
			Warn.Fprintf(rt.stderr, "  ! %s: %s\n", d.Kind, d.Message)
		},
	})
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "versegraph",
		Short: "versegraph: force-directed layouts for study graphs",
		Long: Brand.Sprint("versegraph") + " lays out verses, notes, tags and groups\n" +
			Subtle.Sprint("Run a layout once, serve it live, view it in the terminal or follow a file"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("versegraph {{ .Version }}\n")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.dev, "dev", false, "Human-readable development logging")

	root.AddCommand(
		layoutCmd(opts),
		serveCmd(opts),
		viewCmd(opts),
		watchCmd(opts),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		Bad.Fprintf(os.Stderr, "versegraph: %v\n", err)
		return err
	}
	return nil
}
