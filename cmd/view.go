package cmd

import (
	"context"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/scheduler"
	"github.com/TFMV/versegraph/tui"
	"github.com/TFMV/versegraph/watch"
)

func viewCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <graph-file>",
		Short: "Watch a layout settle in the terminal",
		Long: `Open an interactive terminal view of a graph file. Nodes can be dragged
with the mouse; the file is reloaded when it changes.

  versegraph view study.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := global.load(cmd)
			if err != nil {
				return err
			}
			// anything written to the terminal would draw over the view
			rt.logger = zap.NewNop()
			rt.stderr = io.Discard

			sched := scheduler.NewManual()
			eng := rt.newEngine(sched)
			defer eng.Dispose()
			controller := interaction.NewController(eng, rt.cfg.Interaction, rt.logger)

			watcher, err := watch.New(args[0], syncedSink{eng, controller}, debounce(rt), rt.logger)
			if err != nil {
				return err
			}
			if err := watcher.Load(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return watcher.Run(gctx)
			})
			g.Go(func() error {
				defer cancel()
				return tui.Run(gctx, tui.New(eng, sched, controller, filepath.Base(args[0])))
			})
			return g.Wait()
		},
	}
	return cmd
}
