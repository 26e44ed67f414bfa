package lifecycle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/construehq/construe/internal/lifecycle"
)

func TestNew(t *testing.T) {
	lc := lifecycle.New()

	if lc == nil {
		t.Fatal("New() returned nil")
	}

	if lc.Context() == nil {
		t.Error("Context() returned nil")
	}

	if lc.Ready() {
		t.Error("Ready() = true, want false for new coordinator")
	}
}

func TestCoordinator_OnStartup(t *testing.T) {
	lc := lifecycle.New()

	var executed atomic.Bool
	lc.OnStartup(func() {
		executed.Store(true)
	})

	lc.WaitForStartup()

	if !executed.Load() {
		t.Error("startup function was not executed")
	}
}

func TestCoordinator_OnStartup_Multiple(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for i := 0; i < 3; i++ {
		lc.OnStartup(func() {
			count.Add(1)
		})
	}

	lc.WaitForStartup()

	if count.Load() != 3 {
		t.Errorf("count = %d, want 3", count.Load())
	}
}

func TestCoordinator_WaitForStartup_SetsReady(t *testing.T) {
	lc := lifecycle.New()

	if lc.Ready() {
		t.Error("Ready() = true before WaitForStartup")
	}

	lc.WaitForStartup()

	if !lc.Ready() {
		t.Error("Ready() = false after WaitForStartup")
	}
}

func TestCoordinator_Shutdown_CancelsContext(t *testing.T) {
	lc := lifecycle.New()

	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	select {
	case <-lc.Context().Done():
	default:
		t.Error("context not cancelled after Shutdown")
	}
}

func TestCoordinator_Shutdown_WaitsForHooks(t *testing.T) {
	lc := lifecycle.New()

	var finished atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		finished.Store(true)
	})

	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	if !finished.Load() {
		t.Error("shutdown hook did not complete before Shutdown returned")
	}
}

func TestCoordinator_Shutdown_Timeout(t *testing.T) {
	lc := lifecycle.New()

	block := make(chan struct{})
	lc.OnShutdown(func() {
		<-block
	})
	defer close(block)

	err := lc.Shutdown(50 * time.Millisecond)
	if err != lifecycle.ErrShutdownTimeout {
		t.Errorf("Shutdown() error = %v, want ErrShutdownTimeout", err)
	}
}
