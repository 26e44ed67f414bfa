package tasks

import (
	"time"

	"github.com/construehq/construe/internal/lifecycle"
)

// StartJanitor begins periodic eviction of terminal snapshots older than
// ttl. A ttl of zero or less disables eviction entirely; entries then
// remain retrievable for the life of the process.
func (r *Registry) StartJanitor(lc *lifecycle.Coordinator, ttl, interval time.Duration) {
	if ttl <= 0 {
		r.logger.Info("registry eviction disabled")
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ctx := lc.Context()
	lc.OnStartup(func() {
		r.logger.Info("registry janitor started", "ttl", ttl, "interval", interval)
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ttl)
			}
		}
	}()
}
