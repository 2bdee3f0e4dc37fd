// internal/store/cache_test.go
package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

// ---- fake backend ----

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	sets int
	fail error
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[key] = append([]byte(nil), value...)
	m.ttls[key] = ttl
	m.sets++
	return nil
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, false, m.fail
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func mustDoc(t *testing.T, s string) *tree.Object {
	t.Helper()
	o, err := tree.ParseObject([]byte(s))
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	return o
}

// ---- tests ----

func TestDocumentCache_RoundTrip(t *testing.T) {
	b := newMemBackend()
	c := NewDocumentCache(b, time.Hour, nil)
	ctx := context.Background()

	doc := mustDoc(t, `{"print":{"command":"push_status","nozzle_temper":210.5,"ams":{"ams":[]}}}`)
	if err := c.Put(ctx, "p1", doc); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	if b.ttls["printer:document:p1"] != time.Hour {
		t.Fatalf("ttl: got=%v want=1h", b.ttls["printer:document:p1"])
	}
	raw, _ := doc.MarshalJSON()
	if string(b.data["printer:document:p1"]) == string(raw) {
		t.Fatalf("stored value must be compressed")
	}

	got, found, err := c.Load(ctx, "p1")
	if err != nil || !found {
		t.Fatalf("Load() found=%v err=%v", found, err)
	}
	if !got.Equal(doc) {
		t.Fatalf("round trip mismatch")
	}
}

func TestDocumentCache_Missing(t *testing.T) {
	c := NewDocumentCache(newMemBackend(), time.Hour, nil)
	_, found, err := c.Load(context.Background(), "nope")
	if err != nil || found {
		t.Fatalf("missing key: found=%v err=%v", found, err)
	}
}

func TestDocumentCache_CorruptEntry(t *testing.T) {
	b := newMemBackend()
	b.data["printer:document:p1"] = []byte("not zstd")
	c := NewDocumentCache(b, time.Hour, nil)
	if _, _, err := c.Load(context.Background(), "p1"); err == nil {
		t.Fatalf("corrupt entry must fail")
	}
	if _, ok := b.data["printer:document:p1"]; ok {
		t.Fatalf("corrupt entry must be dropped")
	}
	if _, found, err := c.Load(context.Background(), "p1"); found || err != nil {
		t.Fatalf("after drop: found=%v err=%v want=false,nil", found, err)
	}
}

func TestDocumentCache_UndecodableEntry(t *testing.T) {
	b := newMemBackend()
	b.data["printer:document:p1"] = zstdEncoder.EncodeAll([]byte(`{"print":`), nil)
	c := NewDocumentCache(b, time.Hour, nil)
	if _, _, err := c.Load(context.Background(), "p1"); err == nil {
		t.Fatalf("truncated json must fail")
	}
	if _, ok := b.data["printer:document:p1"]; ok {
		t.Fatalf("undecodable entry must be dropped")
	}
}

func TestDocumentCache_BackendError(t *testing.T) {
	b := newMemBackend()
	b.fail = errors.New("down")
	c := NewDocumentCache(b, time.Hour, nil)
	if err := c.Put(context.Background(), "p1", tree.NewObject()); err == nil {
		t.Fatalf("backend error must surface")
	}
}

func TestDocumentCache_OnUpdateSkipsEmptyDelta(t *testing.T) {
	b := newMemBackend()
	c := NewDocumentCache(b, time.Hour, nil)
	doc := mustDoc(t, `{"print":{"msg":1}}`)

	c.OnUpdate(device.Update{Snapshot: device.Snapshot{ID: "p1"}, Document: doc, Delta: tree.NewObject()})
	if b.sets != 0 {
		t.Fatalf("empty delta must not write")
	}

	c.OnUpdate(device.Update{Snapshot: device.Snapshot{ID: "p1"}, Document: doc, Delta: mustDoc(t, `{"print":{"msg":1}}`)})
	if b.sets != 1 {
		t.Fatalf("changed document must write once, got %d", b.sets)
	}
}

