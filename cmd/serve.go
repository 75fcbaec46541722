package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/scheduler"
	"github.com/TFMV/versegraph/server"
	"github.com/TFMV/versegraph/watch"
)

func serveCmd(global *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [graph-file]",
		Short: "Serve a live layout over HTTP and websocket",
		Long: `Start the layout server. Graphs are uploaded with PUT /api/graph and
positions stream from /api/stream. When a graph file is given it is loaded at
start and reloaded whenever it changes.

  versegraph serve
  versegraph serve study.json --addr :9090`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := global.load(cmd)
			if err != nil {
				return err
			}
			defer rt.logger.Sync()
			if addr != "" {
				rt.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			frames := scheduler.NewFrame(ctx, rt.cfg.Scheduler.FPS)
			defer frames.Close()
			eng := rt.newEngine(frames)
			defer eng.Dispose()
			controller := interaction.NewController(eng, rt.cfg.Interaction, rt.logger)

			srv := server.New(server.Config{
				Addr:           rt.cfg.Server.Addr,
				AllowedOrigins: rt.cfg.Server.AllowedOrigins,
			}, eng, controller, rt.registry, rt.logger)
			defer srv.Close()

			var watcher *watch.Watcher
			if len(args) == 1 {
				watcher, err = watch.New(args[0], syncedSink{eng, controller}, debounce(rt), rt.logger)
				if err != nil {
					return err
				}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Start(gctx)
			})
			if watcher != nil {
				g.Go(func() error {
					return watcher.Run(gctx)
				})
			}

			Brand.Fprintf(rt.stderr, "  versegraph")
			Subtle.Fprintf(rt.stderr, " listening on %s\n", rt.cfg.Server.Addr)
			err = g.Wait()
			rt.logger.Info("stopped", zap.Error(err))
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func debounce(rt *runtime) time.Duration {
	return time.Duration(rt.cfg.Watch.DebounceMillis) * time.Millisecond
}

// syncedSink forwards reloaded graphs to the engine and then lets the
// controller drop a grab on a node that no longer exists
type syncedSink struct {
	target     watch.Sink
	controller *interaction.Controller
}

func (s syncedSink) SetViewport(vp models.Viewport) {
	s.target.SetViewport(vp)
}

func (s syncedSink) SetGraph(nodes []models.Node, edges []models.Edge) {
	s.target.SetGraph(nodes, edges)
	s.controller.Sync()
}
