package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Benny93/roadnet-go/internal/config"
	"github.com/Benny93/roadnet-go/internal/storage"
)

// DefaultDebounce is how long the watcher waits after the last change to the
// scene file before regenerating.
const DefaultDebounce = 500 * time.Millisecond

// WatchResult is called after every regeneration. err is set when the scene
// could not be loaded or the run failed; the watcher keeps going either way.
type WatchResult func(n *Network, res *PipelineResult, err error)

// WatchOption configures WatchScene.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	progress ProgressCallback
}

// WithDebounce sets the quiet period before regenerating.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) { c.debounce = d }
}

// WithProgress forwards phase progress of every run.
func WithProgress(p ProgressCallback) WatchOption {
	return func(c *watchConfig) { c.progress = p }
}

// WatchScene generates the network once and then regenerates it wholesale
// whenever the scene file changes. Blocks until the context is cancelled.
//
// The directory holding the file is watched rather than the file itself so
// editors that save by renaming are picked up.
func WatchScene(ctx context.Context, path string, store storage.NetworkStore, name string, onResult WatchResult, opts ...WatchOption) error {
	cfg := &watchConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(cfg)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving scene path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	regenerate := func() {
		scene, err := config.Load(abs)
		if err != nil {
			onResult(nil, nil, err)
			return
		}
		n, res, err := RunPipeline(ctx, scene, store, name, cfg.progress)
		onResult(n, res, err)
	}

	slog.Info("watching scene", "path", abs, "network", name)
	regenerate()

	batchTimer := time.NewTimer(cfg.debounce)
	batchTimer.Stop() // Don't start yet
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSceneChange(event, abs) {
				continue
			}
			pending = true
			batchTimer.Reset(cfg.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-batchTimer.C:
			if pending {
				pending = false
				slog.Info("scene changed, regenerating", "path", abs)
				regenerate()
			}
		}
	}
}

// isSceneChange reports whether event rewrote the scene file.
func isSceneChange(event fsnotify.Event, scenePath string) bool {
	if filepath.Clean(event.Name) != scenePath {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
