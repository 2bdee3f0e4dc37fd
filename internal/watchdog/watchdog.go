// internal/watchdog/watchdog.go
package watchdog

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/printer-mirror/internal/clock"
)

// DefaultInterval is the sweep period.
const DefaultInterval = time.Second

// Config is the minimal runtime config the watchdog needs.
type Config struct {
	Interval time.Duration
}

// Watchdog sweeps every target on a fixed period. Freshness rules live in
// the targets; the watchdog only drives them.
type Watchdog struct {
	cfg     Config
	targets []Target
	clock   clock.Clock
}

// New creates a watchdog with immutable config. A nil clock uses the wall clock.
func New(cfg Config, targets []Target, clk clock.Clock) (*Watchdog, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("watchdog: interval must be > 0")
	}
	if len(targets) == 0 {
		return nil, errors.New("watchdog: at least one target required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Watchdog{cfg: cfg, targets: targets, clock: clk}, nil
}

// CheckOnce performs exactly one sweep, in target order.
func (w *Watchdog) CheckOnce(ctx context.Context) []Result {
	at := w.clock.Now()
	out := make([]Result, 0, len(w.targets))
	for _, t := range w.targets {
		if ctx.Err() != nil {
			break
		}
		out = append(out, Result{
			DeviceID: t.ID(),
			At:       at,
			Health:   t.Check(ctx),
		})
	}
	return out
}
