// internal/jsondiff/codec.go
package jsondiff

import (
	"sync"

	"github.com/tamzrod/printer-mirror/internal/tree"
)

// ResyncThreshold is the number of consecutive restore failures tolerated.
// The next failure beyond it requests a full retransmission.
const ResyncThreshold = 5

// SyncState is the per-connection synchronisation state.
type SyncState uint8

const (
	StateUnsynced SyncState = iota
	StateSynced
	StateDegraded
)

func (s SyncState) String() string {
	switch s {
	case StateSynced:
		return "synced"
	case StateDegraded:
		return "degraded"
	default:
		return "unsynced"
	}
}

// Codec owns both rolling baselines of one device connection.
//
// The encode baseline tracks what was last sent (full -> diff); the decode
// baseline tracks what was last restored (diff -> full). One mutex guards
// both; it is held for the duration of each call and released before the
// resync callback runs.
type Codec struct {
	mu         sync.Mutex
	encodeBase *tree.Object
	decodeBase *tree.Object
	failures   int
	state      SyncState
	onResync   func()
}

// NewCodec returns an unsynced codec. onResync may be nil.
func NewCodec(onResync func()) *Codec {
	return &Codec{
		encodeBase: tree.NewObject(),
		decodeBase: tree.NewObject(),
		onResync:   onResync,
	}
}

// ResetDecodeBase installs full as the decode baseline.
// A non-empty full document synchronises the connection; an empty one
// (reconnect) drops back to unsynced.
func (c *Codec) ResetDecodeBase(full *tree.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.decodeBase = full.Clone()
	c.failures = 0
	if c.decodeBase.Len() > 0 {
		c.state = StateSynced
	} else {
		c.state = StateUnsynced
	}
}

// ResetEncodeBase installs full as the encode baseline.
func (c *Codec) ResetEncodeBase(full *tree.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodeBase = full.Clone()
}

// Encode diffs full against the encode baseline and then adopts full as the
// new baseline. The bool reports whether anything changed.
func (c *Codec) Encode(full *tree.Object) (*tree.Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	diff, changed := ComputeDiff(full, c.encodeBase)
	c.encodeBase = full.Clone()
	return diff, changed
}

// Decode restores diff against the decode baseline.
//
// On success the result replaces the baseline and the failure counter resets.
// On failure the baseline is kept and the counter grows; the crossing of
// ResyncThreshold fires the resync callback once for the streak.
func (c *Codec) Decode(diff *tree.Object) (*tree.Object, error) {
	full, fire, err := c.decode(diff)
	if fire && c.onResync != nil {
		c.onResync()
	}
	if err != nil {
		return nil, err
	}
	return full, nil
}

func (c *Codec) decode(diff *tree.Object) (*tree.Object, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := ApplyDiff(diff, c.decodeBase)
	if err != nil {
		c.failures++
		crossed := c.failures == ResyncThreshold+1
		switch {
		case crossed:
			c.state = StateUnsynced
		case c.state == StateSynced:
			c.state = StateDegraded
		}
		return nil, crossed, err
	}

	c.decodeBase = out
	c.failures = 0
	c.state = StateSynced
	return out.Clone(), false, nil
}

// NeedsResync reports whether the failure counter is beyond ResyncThreshold.
func (c *Codec) NeedsResync() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures > ResyncThreshold
}

// Failures returns the consecutive restore failure count.
func (c *Codec) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// State returns the current synchronisation state.
func (c *Codec) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DecodeBase returns a copy of the decode baseline.
func (c *Codec) DecodeBase() *tree.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decodeBase.Clone()
}
