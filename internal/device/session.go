// internal/device/session.go
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/printer-mirror/internal/clock"
	"github.com/tamzrod/printer-mirror/internal/decoder"
	"github.com/tamzrod/printer-mirror/internal/jsondiff"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

// Deps are the collaborators of a Session. Zero fields get safe defaults,
// except Publisher: a session without one cannot send commands.
type Deps struct {
	Publisher Publisher
	Recorder  Recorder
	Log       *slog.Logger
	Clock     clock.Clock
}

// Session mirrors one printer.
//
// Ingest, commands and reads may be called from any goroutine. All mirror
// state is guarded by mu; the codec has its own lock and the sequence
// counter is atomic.
type Session struct {
	cfg   Config
	pub   Publisher
	rec   Recorder
	log   *slog.Logger
	clock clock.Clock

	codec *jsondiff.Codec
	seq   atomic.Int64

	// set by the codec callback, drained after mu is released
	resyncPending atomic.Bool

	mu           sync.Mutex
	dec          *decoder.Decoder
	status       decoder.Status
	online       bool
	lastReport   time.Time
	lastPushAll  time.Time
	failingSince time.Time
	observers    []func(Update)
}

// NewSession returns a session for cfg. Timeouts left at zero use the defaults.
func NewSession(cfg Config, deps Deps) *Session {
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = DefaultPushTimeout
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = DefaultDisconnectTimeout
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}

	s := &Session{
		cfg:   cfg,
		pub:   deps.Publisher,
		rec:   deps.Recorder,
		log:   deps.Log.With("device", cfg.ID),
		clock: deps.Clock,
	}
	s.codec = jsondiff.NewCodec(func() { s.resyncPending.Store(true) })
	s.dec = decoder.New(s.log, s.clock)
	s.seq.Store(StartSeqID)
	return s
}

func (s *Session) ID() string     { return s.cfg.ID }
func (s *Session) Config() Config { return s.cfg }

// OnUpdate registers fn to run after every accepted report.
// Observers run on the ingesting goroutine, outside the session lock.
func (s *Session) OnUpdate(fn func(Update)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// ---- ingest ----

// Ingest processes one report payload.
//
// push_status reports carry msg 0 (full, resets the baseline) or msg 1
// (delta, restored against the baseline). A missing msg is treated as full.
// Failed restores leave the mirror unchanged and are returned as errors;
// after too many in a row a push-all is requested.
func (s *Session) Ingest(ctx context.Context, payload []byte) error {
	doc, err := tree.ParseObject(payload)
	if err != nil {
		s.rec.DecodeFailure(s.cfg.ID, "malformed")
		return fmt.Errorf("device %s: %w", s.cfg.ID, err)
	}

	upd, err := s.ingest(doc)

	if s.resyncPending.Swap(false) {
		s.rec.ResyncRequested(s.cfg.ID)
		s.log.Info("device: restore keeps failing, requesting push-all", "failures", s.codec.Failures())
		if perr := s.RequestPushAll(ctx, true); perr != nil {
			s.log.Warn("device: push-all request failed", "err", perr)
		}
	}
	s.rec.SyncState(s.cfg.ID, s.codec.State())

	if err != nil {
		return err
	}
	if upd != nil {
		s.notify(*upd)
	}
	return nil
}

func (s *Session) ingest(doc *tree.Object) (*Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	full := doc
	kind := "other"

	report, hasPrint := doc.Child("print")
	if hasPrint {
		var command string
		if v, ok := report.Get("command"); ok {
			command, _ = v.Str()
		}

		switch command {
		case "push_status":
			msgVal, hasMsg := report.Get("msg")
			msg, isInt := msgVal.IntValue()
			switch {
			case hasMsg && !isInt:
				s.rec.Message(s.cfg.ID, "other")
				s.rec.DecodeFailure(s.cfg.ID, "msg")
				s.log.Warn("device: malformed push_status msg", "kind", msgVal.Kind().String())
				return nil, fmt.Errorf("device %s: %w", s.cfg.ID, ErrMalformedReport)
			case !hasMsg || msg == 0:
				kind = "full"
				s.codec.ResetDecodeBase(doc)
			case msg == 1:
				kind = "diff"
				restored, err := s.codec.Decode(doc)
				if err != nil {
					if s.failingSince.IsZero() {
						s.failingSince = now
					}
					s.rec.Message(s.cfg.ID, kind)
					s.rec.DecodeFailure(s.cfg.ID, "restore")
					s.log.Warn("device: delta restore failed", "err", err, "failures", s.codec.Failures())
					return nil, fmt.Errorf("device %s: %w", s.cfg.ID, err)
				}
				full = restored
			default:
				s.log.Warn("device: unsupported push_status msg type", "msg", msg, "kind", msgVal.Kind().String())
			}
			s.failingSince = time.Time{}

			if p, ok := full.Child("print"); ok {
				s.status = s.dec.Decode(p, s.status)
				if seq, ok := sequenceID(p); ok {
					s.status.SequenceID = seq
				}
			}

		default:
			if seq, ok := sequenceID(report); ok && IsStudioCommand(seq) {
				var result string
				if v, ok := report.Get("result"); ok {
					result, _ = v.Str()
				}
				s.log.Debug("device: command reply", "command", command, "sequence_id", seq, "result", result)
			}
		}
	}

	if info, ok := doc.Child("info"); ok {
		if v, ok := info.Get("command"); ok {
			if c, _ := v.Str(); c == "get_version" {
				kind = "version"
				s.status.Modules = decodeModules(info)
			}
		}
	}

	s.online = true
	s.lastReport = now

	if v, ok := doc.Get("t_utc"); ok {
		if ms, ok := v.IntValue(); ok && ms > 0 {
			s.status.MessageDelay = now.Sub(time.UnixMilli(ms))
		}
	}
	s.status.LastReport = now

	s.rec.Message(s.cfg.ID, kind)

	delta := tree.NewObject()
	if kind == "full" || kind == "diff" {
		delta, _ = s.codec.Encode(full)
	}

	return &Update{
		Snapshot: s.snapshotLocked(),
		Document: full.Clone(),
		Delta:    delta,
	}, nil
}

func (s *Session) notify(u Update) {
	s.mu.Lock()
	obs := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, fn := range obs {
		fn(u)
	}
}

func decodeModules(info *tree.Object) []decoder.ModuleVersion {
	v, ok := info.Get("module")
	if !ok {
		return nil
	}
	arr, ok := v.Arr()
	if !ok {
		return nil
	}

	out := make([]decoder.ModuleVersion, 0, len(arr))
	for _, item := range arr {
		m, ok := item.Obj()
		if !ok {
			continue
		}
		name, ok := stringField(m, "name")
		if !ok {
			continue
		}
		mv := decoder.ModuleVersion{Name: name}
		mv.SWVersion, _ = stringField(m, "sw_ver")
		mv.HWVersion, _ = stringField(m, "hw_ver")
		mv.SN, _ = stringField(m, "sn")
		if f, ok := m.Get("flag"); ok {
			if n, ok := f.IntValue(); ok {
				mv.Flag = int(n)
			}
		}
		out = append(out, mv)
	}
	return out
}

func stringField(o *tree.Object, key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

// sequenceID reads sequence_id, sent as a decimal string or a number.
func sequenceID(o *tree.Object) (int, bool) {
	v, ok := o.Get("sequence_id")
	if !ok {
		return 0, false
	}
	if n, ok := v.IntValue(); ok {
		return int(n), true
	}
	if s, ok := v.Str(); ok {
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	return 0, false
}

// IsStudioCommand reports whether seq falls in the range this service
// stamps on its own commands.
func IsStudioCommand(seq int) bool {
	return seq >= StartSeqID && seq < EndSeqID
}

// ---- reads ----

// Snapshot returns a copy of the mirrored state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           s.cfg.ID,
		Name:         s.cfg.Name,
		Status:       s.status,
		Sync:         s.codec.State(),
		Failures:     s.codec.Failures(),
		FailingSince: s.failingSince,
		Online:       s.online,
		LastReport:   s.lastReport,
	}
}

// Document returns a copy of the last reconstructed report.
func (s *Session) Document() *tree.Object {
	return s.codec.DecodeBase()
}

// Reset drops all mirrored state. It is called when the broker connection
// is re-established, after which the printer must be asked for a full report.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codec.ResetDecodeBase(tree.NewObject())
	s.codec.ResetEncodeBase(tree.NewObject())
	s.resyncPending.Store(false)
	s.dec = decoder.New(s.log, s.clock)
	s.status = decoder.Status{}
	s.online = false
	s.lastReport = time.Time{}
	s.failingSince = time.Time{}
}

// Check evaluates report freshness at now. A stale session gets an
// unforced push-all request; an offline one is marked so.
func (s *Session) Check(ctx context.Context) Health {
	now := s.clock.Now()

	s.mu.Lock()
	last := s.lastReport
	online := s.online
	s.mu.Unlock()

	if last.IsZero() {
		return HealthOffline
	}

	quiet := now.Sub(last)
	switch {
	case quiet >= s.cfg.DisconnectTimeout:
		if online {
			s.mu.Lock()
			s.online = false
			s.mu.Unlock()
			s.log.Warn("device: no report, marking offline", "quiet", quiet.String())
		}
		return HealthOffline

	case quiet >= s.cfg.PushTimeout:
		err := s.RequestPushAll(ctx, false)
		if err != nil && !errors.Is(err, ErrRateLimited) {
			s.log.Warn("device: push-all request failed", "err", err)
		}
		return HealthStale
	}
	return HealthOK
}
