package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"blockmerge/internal/testutil"
)

func TestFilterRelevant(t *testing.T) {
	dir := t.TempDir()
	f := newFilter(Options{
		Files:        []string{filepath.Join(dir, "conf", "local.txt")},
		Dirs:         []string{dir},
		Match:        func(name string) bool { return strings.HasSuffix(name, ".json") },
		Exclude:      []string{filepath.Join(dir, "out.json")},
		IgnorePrefix: ".tmp-",
	})

	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{filepath.Join(dir, "blocklists_nextdns.json"), fsnotify.Write, true},
		{filepath.Join(dir, "blocklists_nextdns.json"), fsnotify.Create, true},
		{filepath.Join(dir, "blocklists_nextdns.json"), fsnotify.Remove, true},
		{filepath.Join(dir, "blocklists_nextdns.json"), fsnotify.Chmod, false},
		{filepath.Join(dir, "notes.md"), fsnotify.Write, false},
		{filepath.Join(dir, "out.json"), fsnotify.Write, false},
		{filepath.Join(dir, ".tmp-123.json"), fsnotify.Create, false},
		{filepath.Join(dir, "conf", "local.txt"), fsnotify.Rename, true},
		{filepath.Join(dir, "conf", "other.json"), fsnotify.Write, false},
	}
	for _, tt := range tests {
		if got := f.relevant(fsnotify.Event{Name: tt.name, Op: tt.op}); got != tt.want {
			t.Errorf("relevant(%s %s) = %v, want %v", filepath.Base(tt.name), tt.op, got, tt.want)
		}
	}

	if got := len(f.watchDirs()); got != 2 {
		t.Errorf("watchDirs() has %d entries, want 2", got)
	}
}

func TestRunRerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteFile(t, dir, "local.txt", "a.example\n")
	output := filepath.Join(dir, "out.conf")

	runs := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			Files:    []string{input},
			Exclude:  []string{output},
			Debounce: 20 * time.Millisecond,
			Logger:   testutil.DiscardLogger(),
		}, func(context.Context) error {
			runs <- struct{}{}
			return errors.New("task errors are only logged")
		})
	}()

	waitRun(t, runs)

	if err := os.WriteFile(output, []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-runs:
		t.Fatal("writing the excluded output must not trigger a run")
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(input, []byte("b.example\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitRun(t, runs)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunMissingDirectory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := Run(ctx, Options{
		Dirs:   []string{filepath.Join(t.TempDir(), "absent")},
		Logger: testutil.DiscardLogger(),
	}, func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for a missing directory")
	}
}

func waitRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run")
	}
}
