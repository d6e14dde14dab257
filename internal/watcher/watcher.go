// Package watcher reloads the API manifest when it changes on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fsnotify/fsnotify"

	"github.com/stacklok/flagpole/internal/logger"
)

const (
	// DefaultDebounce is how long the watcher waits for further changes before reloading.
	DefaultDebounce = 500 * time.Millisecond

	retryInitialInterval = 100 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
)

// ReloadFunc reloads the watched manifest.
type ReloadFunc func(ctx context.Context) error

// Watcher calls a ReloadFunc after the manifest file is written, created or replaced.
//
// Editors often save through a rename or several writes, so events are debounced and
// the containing directory is watched rather than the file itself.
type Watcher struct {
	path      string
	reload    ReloadFunc
	debounce  time.Duration
	maxTries  uint
	retryable func(error) bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRetry retries a failed reload with exponential backoff, up to maxTries attempts
// in total, while retryable reports true for the error. A nil retryable retries every
// error.
func WithRetry(maxTries uint, retryable func(error) bool) Option {
	return func(w *Watcher) {
		if maxTries > 0 {
			w.maxTries = maxTries
		}
		w.retryable = retryable
	}
}

// New returns a Watcher for the manifest at path.
func New(path string, reload ReloadFunc, opts ...Option) (*Watcher, error) {
	if reload == nil {
		return nil, fmt.Errorf("reload function cannot be nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path %s: %w", path, err)
	}

	w := &Watcher{path: abs, reload: reload, debounce: DefaultDebounce, maxTries: 1}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path of the watched manifest.
func (w *Watcher) Path() string {
	return w.path
}

// Run watches until ctx is cancelled. Reload failures are logged and do not stop it.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := fw.Close(); err != nil {
			logger.Warnf("Failed to close file watcher: %v", err)
		}
	}()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Infof("Watching %s for changes", w.path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Debugf("Stopped watching %s", w.path)
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debugf("Manifest event %s on %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("File watcher error: %v", err)

		case <-fire:
			fire = nil
			logger.Infof("Manifest %s changed, reloading", w.path)
			if err := w.reloadWithRetry(ctx); err != nil {
				logger.Errorf("Failed to reload manifest %s: %v", w.path, err)
			}
		}
	}
}

func (w *Watcher) reloadWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := w.reload(ctx)
		if err != nil && w.retryable != nil && !w.retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil && w.maxTries > 1 {
			logger.Debugf("Reload of %s failed, retrying: %v", w.path, err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(w.maxTries))
	return err
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
