// internal/device/types.go
package device

import (
	"errors"
	"time"

	"github.com/tamzrod/printer-mirror/internal/decoder"
	"github.com/tamzrod/printer-mirror/internal/jsondiff"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

const (
	// StartSeqID and EndSeqID bound the sequence ids this service stamps on
	// its own commands. Replies carrying an id in [StartSeqID, EndSeqID)
	// answer one of ours.
	StartSeqID = 20000
	EndSeqID   = 30000

	// PushAllMinInterval rate-limits unforced push-all requests.
	PushAllMinInterval = 3 * time.Second

	DefaultPushTimeout       = 15 * time.Second
	DefaultDisconnectTimeout = 30 * time.Second
)

// ErrRateLimited is returned by an unforced push-all request sent too soon
// after the previous one.
var ErrRateLimited = errors.New("device: push-all request rate limited")

// ErrMalformedReport is returned for a push_status report whose msg field
// is not an integer. The report is dropped without touching the baseline.
var ErrMalformedReport = errors.New("device: malformed push_status msg")

// Publisher sends a command payload to the printer.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Recorder receives per-device counters. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Message(device, kind string)
	DecodeFailure(device, reason string)
	ResyncRequested(device string)
	SyncState(device string, state jsondiff.SyncState)
}

type nopRecorder struct{}

func (nopRecorder) Message(string, string)               {}
func (nopRecorder) DecodeFailure(string, string)         {}
func (nopRecorder) ResyncRequested(string)               {}
func (nopRecorder) SyncState(string, jsondiff.SyncState) {}

// Config identifies one printer and where its commands go.
type Config struct {
	ID           string
	Name         string
	RequestTopic string

	PushTimeout       time.Duration
	DisconnectTimeout time.Duration
}

// Snapshot is a point-in-time copy of one session.
// Status shares slices with the session's mirror; treat it as read-only.
type Snapshot struct {
	ID   string
	Name string

	Status decoder.Status

	Sync         jsondiff.SyncState
	Failures     int
	FailingSince time.Time

	Online     bool
	LastReport time.Time
}

// Update is delivered to observers after every accepted report.
type Update struct {
	Snapshot Snapshot

	// Document is the full reconstructed report.
	Document *tree.Object
	// Delta holds what changed since the previous accepted report.
	// It is empty when nothing changed.
	Delta *tree.Object
}

// Health is the watchdog verdict for one session.
type Health uint8

const (
	HealthOK Health = iota
	HealthStale
	HealthOffline
)

func (h Health) String() string {
	switch h {
	case HealthStale:
		return "stale"
	case HealthOffline:
		return "offline"
	default:
		return "ok"
	}
}
