// internal/decoder/hold.go
package decoder

import "time"

const (
	// HoldWindow is how long a locally-set option ignores printer reports.
	HoldWindow = 3 * time.Second
	// HoldCount is how many printer reports a locally-set option ignores.
	HoldCount = 3
	// HoldCountCamera is the report budget for camera options, which the
	// printer is slower to acknowledge.
	HoldCountCamera = 6
	// HoldCountNozzle is the budget for the nozzle pair. Diameter and type
	// each spend one report.
	HoldCountNozzle = 2 * HoldCount
)

// Debounced is one user-settable option mirrored from the printer.
//
// After SetLocal the option keeps the locally chosen value and ignores
// printer reports until the window has passed or the report budget is spent,
// whichever happens first. It is not safe for concurrent use; the owning
// Decoder serialises access.
type Debounced[T any] struct {
	value  T
	until  time.Time
	left   int
	window time.Duration
	count  int
}

// NewDebounced returns an option with the given hold window and report budget.
func NewDebounced[T any](window time.Duration, count int) *Debounced[T] {
	return &Debounced[T]{window: window, count: count}
}

// Value returns the current value.
func (d *Debounced[T]) Value() T { return d.value }

// SetLocal records a locally requested value and starts a hold.
func (d *Debounced[T]) SetLocal(v T, now time.Time) {
	d.value = v
	d.until = now.Add(d.window)
	d.left = d.count
}

// Holding reports whether printer reports are currently ignored.
func (d *Debounced[T]) Holding(now time.Time) bool {
	return d.left > 0 && now.Before(d.until)
}

// Observe feeds one printer report and returns the value to publish.
func (d *Debounced[T]) Observe(remote T, now time.Time) T {
	if d.Holding(now) {
		d.left--
		return d.value
	}
	d.left = 0
	d.value = remote
	return d.value
}
