package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/store"
	"github.com/lorehq/lore/internal/watch"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := os.CreateTemp("", "lore_daemon_test_*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)

	s, err := store.Open(store.DefaultConfig(path))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	})
	return s
}

func TestNewBuildsDaemonWithoutWatching(t *testing.T) {
	st := setupTestStore(t)
	reg := watch.NewRegistry()
	machine := model.Machine{ID: uuid.New(), Name: "test-machine"}

	d, err := New(st, reg, machine, filepath.Join(t.TempDir(), "lore.sock"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !d.LastRun().IsZero() {
		t.Fatalf("expected LastRun to be zero before Run is called")
	}
}

func TestRunPerformsStartupImportPassAndStopsOnCancel(t *testing.T) {
	st := setupTestStore(t)
	reg := watch.NewRegistry() // no watchers registered, so the import pass is a no-op
	machine := model.Machine{ID: uuid.New(), Name: "test-machine"}

	d, err := New(st, reg, machine, filepath.Join(t.TempDir(), "lore.sock"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned an error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	if d.LastRun().IsZero() {
		t.Fatal("expected LastRun to be set after the startup import pass")
	}
}

func TestScheduleImportDebouncesRapidCalls(t *testing.T) {
	st := setupTestStore(t)
	reg := watch.NewRegistry()
	machine := model.Machine{ID: uuid.New(), Name: "test-machine"}

	d, err := New(st, reg, machine, filepath.Join(t.TempDir(), "lore.sock"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d.scheduleImport(ctx)
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.LastRun().IsZero() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if d.LastRun().IsZero() {
		t.Fatal("expected the debounced import to eventually run")
	}
}
