// internal/watchdog/types.go
package watchdog

import (
	"context"
	"time"

	"github.com/tamzrod/printer-mirror/internal/device"
)

// Target is one watched printer session.
type Target interface {
	ID() string
	Check(ctx context.Context) device.Health
}

// Result is the verdict for one target in one sweep.
type Result struct {
	DeviceID string
	At       time.Time
	Health   device.Health
}
