// internal/watchdog/runner.go
package watchdog

import (
	"context"
	"time"
)

// Run starts the ticker loop and emits each sweep on out.
// One goroutine for all targets. No overlap. A nil out discards results.
func (w *Watchdog) Run(ctx context.Context, out chan<- []Result) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := w.CheckOnce(ctx)
			if out == nil {
				continue
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}
