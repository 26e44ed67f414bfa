// Package lifecycle coordinates subsystem startup and shutdown.
// Subsystems register hooks against a shared Coordinator; the process
// entry point drives startup, readiness, and bounded shutdown.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdownTimeout indicates shutdown hooks did not complete within the deadline.
var ErrShutdownTimeout = errors.New("lifecycle: shutdown timed out")

// ReadinessChecker reports whether startup has completed.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator tracks startup and shutdown hooks for all subsystems.
// The zero value is not usable; construct with New.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	startup []func()
	ready   atomic.Bool
	wg      sync.WaitGroup
}

// New creates a coordinator with a live root context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the root context, cancelled when shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Ready reports whether all registered startup hooks have run.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// OnStartup registers a hook executed during WaitForStartup.
// Hooks run sequentially in registration order.
func (c *Coordinator) OnStartup(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startup = append(c.startup, fn)
}

// OnShutdown launches a hook on its own goroutine. Hooks typically block
// on Context().Done() and perform teardown once it fires; Shutdown waits
// for every hook to return.
func (c *Coordinator) OnShutdown(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// WaitForStartup runs all registered startup hooks and marks the
// coordinator ready.
func (c *Coordinator) WaitForStartup() {
	c.mu.Lock()
	hooks := c.startup
	c.startup = nil
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	c.ready.Store(true)
}

// Shutdown cancels the root context and waits up to timeout for all
// shutdown hooks to return.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
