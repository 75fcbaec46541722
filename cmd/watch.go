package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/render"
	"github.com/TFMV/versegraph/scheduler"
	"github.com/TFMV/versegraph/snapshot"
	"github.com/TFMV/versegraph/watch"
)

func watchCmd(global *globalOptions) *cobra.Command {
	var rf renderFlags

	cmd := &cobra.Command{
		Use:   "watch <graph-file>",
		Short: "Re-render a layout every time its file changes",
		Long: `Follow a graph file. Each edit re-runs the layout incrementally, keeping
unchanged nodes where they were, and rewrites the output once it settles.

  versegraph watch study.json -o study.svg`,
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			frames := scheduler.NewFrame(ctx, rt.cfg.Scheduler.FPS)
			defer frames.Close()
			eng := rt.newEngine(frames)
			defer eng.Dispose()
			controller := interaction.NewController(eng, rt.cfg.Interaction, rt.logger)

			settled := make(chan snapshot.Snapshot, 1)
			unsubscribe := eng.Subscribe(func(s snapshot.Snapshot) {
				if !s.Final {
					return
				}
				select {
				case settled <- s:
				default:
				}
			})
			defer unsubscribe()

			watcher, err := watch.New(args[0], syncedSink{eng, controller}, debounce(rt), rt.logger)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return watcher.Run(gctx)
			})
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return nil
					case s := <-settled:
						scene := render.NewScene(eng.Viewport(), eng.Nodes(), eng.Edges(), s)
						out, err := render.Render(scene, opts)
						if err != nil {
							return err
						}
						if err := writeOutput(cmd, rf.output, out); err != nil {
							return err
						}
						rt.logger.Info("layout written", zap.String("run", s.RunID), zap.Int("iterations", s.Iteration))
						Good.Fprintf(rt.stderr, "  ✓ settled after %d ticks\n", s.Iteration)
					}
				}
			})

			Brand.Fprintf(rt.stderr, "  versegraph")
			Subtle.Fprintf(rt.stderr, " watching %s\n", args[0])
			return g.Wait()
		},
	}

	rf.register(cmd)
	return cmd
}
