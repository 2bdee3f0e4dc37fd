// internal/metrics/metrics_test.go
package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/jsondiff"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()
	r.Message("p1", "full")
	r.Message("p1", "diff")
	r.Message("p1", "diff")
	r.DecodeFailure("p1", "restore")
	r.ResyncRequested("p1")
	r.SyncState("p1", jsondiff.StateDegraded)
	r.Health("p1", device.HealthStale)

	if got := testutil.ToFloat64(r.messages.WithLabelValues("p1", "diff")); got != 2 {
		t.Fatalf("diff messages: got=%v want=2", got)
	}
	if got := testutil.ToFloat64(r.failures.WithLabelValues("p1", "restore")); got != 1 {
		t.Fatalf("restore failures: got=%v want=1", got)
	}
	if got := testutil.ToFloat64(r.resyncs.WithLabelValues("p1")); got != 1 {
		t.Fatalf("resyncs: got=%v want=1", got)
	}
	if got := testutil.ToFloat64(r.sync.WithLabelValues("p1")); got != float64(jsondiff.StateDegraded) {
		t.Fatalf("sync state: got=%v", got)
	}
	if got := testutil.ToFloat64(r.health.WithLabelValues("p1")); got != float64(device.HealthStale) {
		t.Fatalf("health: got=%v", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.Message("p1", "full")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `printer_mirror_messages_total{device="p1",kind="full"} 1`) {
		t.Fatalf("exposition missing counter:\n%s", body)
	}
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.Message("p1", "full")
	if got := testutil.ToFloat64(b.messages.WithLabelValues("p1", "full")); got != 0 {
		t.Fatalf("recorders must not share state: got=%v", got)
	}
}
