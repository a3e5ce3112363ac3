// Package watch reruns a task whenever one of its input files changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Options selects the files that trigger a rerun.
type Options struct {
	// Files are watched individually.
	Files []string
	// Dirs are watched for any file accepted by Match.
	Dirs  []string
	Match func(name string) bool
	// Exclude lists paths whose changes never trigger, such as the task's
	// own output.
	Exclude []string
	// IgnorePrefix drops files whose base name starts with it.
	IgnorePrefix string
	Debounce     time.Duration
	Logger       *slog.Logger
}

type filter struct {
	files        map[string]bool
	dirs         map[string]bool
	exclude      map[string]bool
	match        func(string) bool
	ignorePrefix string
}

func newFilter(opts Options) *filter {
	f := &filter{
		files:        make(map[string]bool),
		dirs:         make(map[string]bool),
		exclude:      make(map[string]bool),
		match:        opts.Match,
		ignorePrefix: opts.IgnorePrefix,
	}
	for _, path := range opts.Files {
		if path != "" {
			f.files[absPath(path)] = true
		}
	}
	for _, dir := range opts.Dirs {
		if dir != "" {
			f.dirs[absPath(dir)] = true
		}
	}
	for _, path := range opts.Exclude {
		if path != "" {
			f.exclude[absPath(path)] = true
		}
	}
	return f
}

// watchDirs returns the directories to register, in no particular order.
func (f *filter) watchDirs() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(f.dirs)+len(f.files))
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	for dir := range f.dirs {
		add(dir)
	}
	for file := range f.files {
		add(filepath.Dir(file))
	}
	return out
}

func (f *filter) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	path := absPath(event.Name)
	base := filepath.Base(path)
	if f.exclude[path] || (f.ignorePrefix != "" && strings.HasPrefix(base, f.ignorePrefix)) {
		return false
	}
	if f.files[path] {
		return true
	}
	return f.dirs[filepath.Dir(path)] && f.match != nil && f.match(base)
}

// Run calls task once and then again after each burst of relevant changes,
// until ctx is done. Task errors are logged and do not stop the loop.
func Run(ctx context.Context, opts Options, task func(context.Context) error) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warn("failed to close watcher", "error", err)
		}
	}()

	f := newFilter(opts)
	for _, dir := range f.watchDirs() {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		log.Debug("watching directory", "path", dir)
	}

	run := func() {
		if err := task(ctx); err != nil {
			log.Error("task failed", "error", err)
		}
	}
	run()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !f.relevant(event) {
				continue
			}
			log.Debug("input changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			run()
		}
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
