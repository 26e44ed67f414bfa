package tasks_test

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/construehq/construe/internal/tasks"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRegistry_PutGet(t *testing.T) {
	reg := tasks.NewRegistry(testLogger())
	task := tasks.New("doc.pdf", "application/pdf", 42, nil)

	reg.Put(task)

	got, err := reg.Get(task.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.ID != task.ID || got.State != tasks.StateQueued {
		t.Errorf("Get() = %+v, want queued snapshot of %s", got, task.ID)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := tasks.NewRegistry(testLogger())

	_, err := reg.Get(uuid.New())
	if !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg := tasks.NewRegistry(testLogger())
	task := tasks.New("doc.pdf", "application/pdf", 1, nil)
	reg.Put(task)

	reg.Delete(task.ID)

	if _, err := reg.Get(task.ID); !errors.Is(err, tasks.ErrNotFound) {
		t.Error("snapshot still retrievable after Delete")
	}

	// Deleting again is a no-op.
	reg.Delete(task.ID)
}

func TestRegistry_LastWriteWins(t *testing.T) {
	reg := tasks.NewRegistry(testLogger())
	task := tasks.New("doc.pdf", "application/pdf", 1, nil)

	newer := task
	newer.State = tasks.StateUploading
	newer.UpdatedAt = task.UpdatedAt.Add(time.Second)

	reg.Put(newer)
	reg.Put(task) // stale snapshot must not clobber the newer one

	got, err := reg.Get(task.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.State != tasks.StateUploading {
		t.Errorf("state = %s, want uploading (stale put applied)", got.State)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := tasks.NewRegistry(testLogger())

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 64)
	for i := range ids {
		task := tasks.New("doc.pdf", "application/pdf", int64(i), nil)
		ids[i] = task.ID

		wg.Add(2)
		go func(task tasks.Task) {
			defer wg.Done()
			reg.Put(task)
		}(task)
		go func(id uuid.UUID) {
			defer wg.Done()
			// Reads must never block or corrupt; NotFound is fine here.
			reg.Get(id)
		}(task.ID)
	}
	wg.Wait()

	if reg.Len() != len(ids) {
		t.Errorf("Len() = %d, want %d", reg.Len(), len(ids))
	}
	for _, id := range ids {
		if _, err := reg.Get(id); err != nil {
			t.Errorf("Get(%s) failed: %v", id, err)
		}
	}
}

func TestRegistry_SweepEvictsOnlyStaleTerminal(t *testing.T) {
	reg := tasks.NewRegistry(testLogger())

	stale := tasks.New("old.pdf", "application/pdf", 1, nil)
	stale.State = tasks.StateCompleted
	stale.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	reg.Put(stale)

	fresh := tasks.New("new.pdf", "application/pdf", 1, nil)
	fresh.State = tasks.StateFailed
	reg.Put(fresh)

	running := tasks.New("busy.pdf", "application/pdf", 1, nil)
	running.State = tasks.StatePolling
	running.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	reg.Put(running)

	evicted := reg.Sweep(time.Hour)
	if evicted != 1 {
		t.Fatalf("Sweep() = %d, want 1", evicted)
	}

	if _, err := reg.Get(stale.ID); !errors.Is(err, tasks.ErrNotFound) {
		t.Error("stale terminal task not evicted")
	}
	if _, err := reg.Get(fresh.ID); err != nil {
		t.Error("fresh terminal task evicted")
	}
	if _, err := reg.Get(running.ID); err != nil {
		t.Error("non-terminal task evicted")
	}
}

func TestRegistry_ListNewestFirst(t *testing.T) {
	reg := tasks.NewRegistry(testLogger())

	oldest := tasks.New("first.pdf", "application/pdf", 1, nil)
	oldest.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newest := tasks.New("second.pdf", "application/pdf", 1, nil)
	reg.Put(oldest)
	reg.Put(newest)

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d tasks, want 2", len(list))
	}
	if list[0].ID != newest.ID || list[1].ID != oldest.ID {
		t.Errorf("List() not ordered newest first: %s, %s", list[0].Filename, list[1].Filename)
	}
}
