// Package watch reloads file backed base templates when they are rewritten.
// A reload only marks the affected roots stale; the pipelines are rebuilt by
// the usual explicit or automatic rebuild.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fosdem/lumen/lib/engine"
	"github.com/jhenstridge/go-inotify"
)

// editors tend to write in several steps
const settleDelay = 100 * time.Millisecond

type Watcher struct {
	engine  *engine.Engine
	watcher *inotify.Watcher
	paths   []string

	logger *slog.Logger
}

// New watches every path. The watches are in place when New returns.
func New(e *engine.Engine, paths []string) (*Watcher, error) {
	watcher, err := inotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not start inotify watcher: %w", err)
	}
	for _, p := range paths {
		if _, err := watcher.Watch(p); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("could not watch %s: %w", p, err)
		}
	}
	return &Watcher{
		engine:  e,
		watcher: watcher,
		paths:   paths,
		logger:  slog.Default().With(slog.String("module", "watch")),
	}, nil
}

// Run handles events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	defer func(watcher *inotify.Watcher) {
		err := watcher.Close()
		if err != nil {
			w.logger.Debug(fmt.Sprintf("could not close watcher: %s", err))
		}
	}(w.watcher)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Event:
			if !ok {
				return
			}
			if ev.Mask&inotify.IN_CLOSE_WRITE == 0 {
				continue
			}
			w.logger.Debug(fmt.Sprintf("reloading %s due to inotify event", ev.Name))
			time.Sleep(settleDelay)
			w.reload(ctx, ev.Name)
		}
	}
}

func (w *Watcher) reload(ctx context.Context, path string) {
	err := w.engine.Submit(ctx, func(e *engine.Engine) error {
		for _, root := range e.RootsForTemplate(path) {
			if err := e.ReloadTemplate(root); err != nil {
				return fmt.Errorf("root %s: %w", root, err)
			}
			w.logger.Info(fmt.Sprintf("template for %s changed, pipeline is stale", root))
		}
		return nil
	})
	if err != nil {
		w.logger.Error(fmt.Sprintf("could not reload %s: %s", path, err))
	}
}
