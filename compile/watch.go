package compile

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	tt "github.com/gnoswap-labs/mofc/internal/types"
	"github.com/gnoswap-labs/mofc/scanner"
)

// DefaultWatchDelay coalesces the burst of events an editor produces when
// it saves a file.
const DefaultWatchDelay = 100 * time.Millisecond

// Watcher reports changes to .mof files under a set of directories.
type Watcher struct {
	logger  *zap.Logger
	delay   time.Duration
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching dirs and all their subdirectories.
func NewWatcher(logger *zap.Logger, dirs []string, delay time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{logger: logger, delay: delay, watcher: watcher}
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Run blocks until ctx is done or the watcher is closed. After a change
// to one or more .mof files it calls onChange once with the sorted
// changed paths, when no further event has arrived for the delay.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handleFileEvent(event) {
				continue
			}
			changed[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			paths := slices.Sorted(maps.Keys(changed))
			clear(changed)
			onChange(paths)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}

// handleFileEvent reports whether event changes a MOF file. New
// directories are added to the watch list.
func (w *Watcher) handleFileEvent(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("cannot watch directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return false
		}
	}
	if !strings.EqualFold(filepath.Ext(event.Name), scanner.MOFExt) {
		return false
	}
	if !event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
		return false
	}
	w.logger.Debug("file changed",
		zap.String("file", event.Name),
		zap.String("op", event.Op.String()))
	return true
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Rebuild discards the repository and compiles paths again from scratch.
func (e *Engine) Rebuild(ctx context.Context, paths []string) ([]tt.Issue, error) {
	e.Reset()
	return ProcessFiles(ctx, e.logger, e, paths, ProcessFile)
}
