// Package watch re-lays out a study graph whenever its file changes on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/TFMV/versegraph/ingest"
	"github.com/TFMV/versegraph/models"
)

// DefaultDebounce is how long to wait for more writes before reloading
const DefaultDebounce = 250 * time.Millisecond

// Sink receives each successfully parsed graph. *engine.Engine satisfies it.
type Sink interface {
	SetViewport(vp models.Viewport)
	SetGraph(nodes []models.Node, edges []models.Edge)
}

// Watcher reloads one graph file into a Sink
type Watcher struct {
	path      string
	processor ingest.DataProcessor
	sink      Sink
	debounce  time.Duration
	logger    *zap.Logger
	watcher   *fsnotify.Watcher

	reloads atomic.Int64
	loaded  atomic.Int64
}

// New creates a watcher for path. The file's directory is watched rather than
// the file itself so editors that save by rename are still seen.
func New(path string, sink Sink, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	processor, err := ingest.GetProcessor(ingest.FormatFromPath(abs))
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:      abs,
		processor: processor,
		sink:      sink,
		debounce:  debounce,
		logger:    logger.With(zap.String("file", abs)),
		watcher:   fw,
	}, nil
}

// Load reads and parses the file and hands the graph to the sink. On error
// the sink is left untouched.
func (w *Watcher) Load() error {
	w.reloads.Add(1)

	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.path, err)
	}
	g, err := w.processor.Process(data)
	if err != nil {
		return fmt.Errorf("process %s: %w", w.path, err)
	}

	if g.Viewport.Width > 0 && g.Viewport.Height > 0 {
		w.sink.SetViewport(g.Viewport)
	}
	w.sink.SetGraph(g.Nodes, g.Edges)
	w.loaded.Add(1)

	w.logger.Info("graph reloaded", zap.Int("nodes", len(g.Nodes)), zap.Int("edges", len(g.Edges)))
	return nil
}

// Reloads returns how many loads were attempted
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// Loaded returns how many loads reached the sink
func (w *Watcher) Loaded() int64 {
	return w.loaded.Load()
}

// Run loads the file once, then reloads it after each burst of changes until
// ctx is cancelled. Parse failures are logged and the previous graph kept.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.Load(); err != nil {
		w.logger.Warn("initial load failed", zap.Error(err))
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("change detected", zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if err := w.Load(); err != nil {
				w.logger.Warn("reload failed, keeping previous layout", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
