// internal/writer/feed.go
package writer

import (
	"log/slog"
	"sync"

	"github.com/tamzrod/printer-mirror/internal/clock"
	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/status"
)

// Feed joins the two inputs of a printer's block: session updates and
// watchdog verdicts. Every input re-projects and writes the block.
type Feed struct {
	sw    StatusWriter
	log   *slog.Logger
	clock clock.Clock

	mu     sync.Mutex
	snap   device.Snapshot
	health device.Health
}

func NewFeed(sw StatusWriter, log *slog.Logger, clk clock.Clock) *Feed {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Feed{sw: sw, log: log, clock: clk, health: device.HealthOffline}
}

// OnUpdate is registered with Session.OnUpdate.
func (f *Feed) OnUpdate(u device.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = u.Snapshot
	f.health = device.HealthOK
	f.flushLocked()
}

// OnHealth takes one watchdog verdict with the session's current snapshot.
func (f *Feed) OnHealth(snap device.Snapshot, h device.Health) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
	f.health = h
	f.flushLocked()
}

func (f *Feed) flushLocked() {
	s := status.FromDevice(f.snap, f.health, f.clock.Now())
	if err := f.sw.WriteStatus(s); err != nil {
		f.log.Warn("writer: status write failed", "device", f.snap.ID, "err", err)
	}
}
