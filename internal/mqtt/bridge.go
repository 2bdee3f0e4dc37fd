// internal/mqtt/bridge.go
package mqtt

import (
	"context"
	"errors"
	"log/slog"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

// Sink receives report payloads for one printer.
type Sink interface {
	ID() string
	Ingest(ctx context.Context, payload []byte) error
}

// Bridge routes report topics to sessions.
type Bridge struct {
	ctx context.Context
	api ClientAPI
	log *slog.Logger
}

func NewBridge(ctx context.Context, api ClientAPI, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Bridge{ctx: ctx, api: api, log: log}
}

// Route subscribes topic and feeds every message to sink.
func (b *Bridge) Route(topic string, sink Sink) error {
	return b.api.Subscribe(topic, b.handler(sink))
}

func (b *Bridge) handler(sink Sink) Handler {
	return func(_ paho.Client, msg Message) {
		err := sink.Ingest(b.ctx, msg.Payload())
		switch {
		case err == nil:
		case errors.Is(err, tree.ErrMalformedPayload):
			b.log.Debug("mqtt: malformed report dropped", "device", sink.ID(), "topic", msg.Topic(), "error", err)
		default:
			b.log.Debug("mqtt: report rejected", "device", sink.ID(), "topic", msg.Topic(), "error", err)
		}
	}
}

// Resync drops every mirror and asks each printer for a full report and its
// module versions. It runs after each broker (re)connect.
func Resync(ctx context.Context, reg *device.Registry, log *slog.Logger) {
	reg.ResetAll()
	for _, s := range reg.List() {
		if err := s.RequestPushAll(ctx, true); err != nil {
			log.Warn("mqtt: push-all after connect failed", "device", s.ID(), "error", err)
		}
		if err := s.GetVersion(ctx); err != nil {
			log.Warn("mqtt: get_version after connect failed", "device", s.ID(), "error", err)
		}
	}
}
