// internal/store/cache.go
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

const keyPrefix = "printer:document:"

func key(id string) string { return keyPrefix + id }

// Encoder and decoder are safe for concurrent use and reused across calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// DocumentCache keeps the last reconstructed report of each printer,
// zstd-compressed, so it can be served after a restart.
type DocumentCache struct {
	b       Backend
	ttl     time.Duration
	timeout time.Duration
	log     *slog.Logger
}

func NewDocumentCache(b Backend, ttl time.Duration, log *slog.Logger) *DocumentCache {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &DocumentCache{b: b, ttl: ttl, timeout: 2 * time.Second, log: log}
}

// Put stores doc for id.
func (c *DocumentCache) Put(ctx context.Context, id string, doc *tree.Object) error {
	raw, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}
	if err := c.b.Set(ctx, key(id), zstdEncoder.EncodeAll(raw, nil), c.ttl); err != nil {
		return fmt.Errorf("store: set %s: %w", id, err)
	}
	return nil
}

// Load returns the cached document for id, if any.
func (c *DocumentCache) Load(ctx context.Context, id string) (*tree.Object, bool, error) {
	packed, found, err := c.b.Get(ctx, key(id))
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	raw, err := zstdDecoder.DecodeAll(packed, nil)
	if err != nil {
		c.drop(ctx, id)
		return nil, false, fmt.Errorf("store: decompress %s: %w", id, err)
	}
	doc, err := tree.ParseObject(raw)
	if err != nil {
		c.drop(ctx, id)
		return nil, false, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return doc, true, nil
}

// drop removes an unreadable entry so the next report overwrites it.
func (c *DocumentCache) drop(ctx context.Context, id string) {
	if err := c.b.Delete(ctx, key(id)); err != nil {
		c.log.Warn("store: drop corrupt entry failed", "device", id, "error", err)
		return
	}
	c.log.Warn("store: dropped corrupt entry", "device", id)
}

// OnUpdate is registered with Session.OnUpdate. Reports that changed
// nothing are not written.
func (c *DocumentCache) OnUpdate(u device.Update) {
	if u.Delta == nil || u.Delta.Len() == 0 || u.Document == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.Put(ctx, u.Snapshot.ID, u.Document); err != nil {
		c.log.Warn("store: document cache write failed", "device", u.Snapshot.ID, "error", err)
	}
}
