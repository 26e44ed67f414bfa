package tasks

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the in-memory status registry: the latest known snapshot
// for each task id, readable by any caller while pipelines advance
// tasks on other goroutines. It holds no state beyond process lifetime.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]Task
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byID:   make(map[uuid.UUID]Task),
		logger: logger.With("system", "registry"),
	}
}

// Put upserts a snapshot keyed by task id. Under the single-writer rule
// concurrent puts for the same id should not happen; if they do, the
// snapshot with the latest UpdatedAt wins.
func (r *Registry) Put(t Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[t.ID]; ok && existing.UpdatedAt.After(t.UpdatedAt) {
		return
	}
	r.byID[t.ID] = t
}

// Get returns the most recent snapshot for id, or ErrNotFound for
// unknown ids. It never blocks on an in-flight transition.
func (r *Registry) Get(id uuid.UUID) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// List returns all snapshots ordered newest first.
func (r *Registry) List() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Task, 0, len(r.byID))
	for _, t := range r.byID {
		list = append(list, t)
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list
}

// Delete removes the snapshot for id. Removing an unknown id is a no-op.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Len returns the number of registered snapshots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Sweep evicts terminal snapshots whose last update is older than ttl
// and returns the number evicted. Non-terminal tasks are never evicted.
func (r *Registry) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	cutoff := time.Now().UTC().Add(-ttl)
	for id, t := range r.byID {
		if t.State.Terminal() && t.UpdatedAt.Before(cutoff) {
			delete(r.byID, id)
			evicted++
		}
	}

	if evicted > 0 {
		r.logger.Info("evicted terminal tasks", "count", evicted, "ttl", ttl)
	}
	return evicted
}
