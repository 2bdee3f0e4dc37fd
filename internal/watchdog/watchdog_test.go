// internal/watchdog/watchdog_test.go
package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/tamzrod/printer-mirror/internal/clock"
	"github.com/tamzrod/printer-mirror/internal/device"
)

type fakeTarget struct {
	id     string
	health device.Health
	checks int
}

func (f *fakeTarget) ID() string { return f.id }

func (f *fakeTarget) Check(context.Context) device.Health {
	f.checks++
	return f.health
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Interval: 0}, []Target{&fakeTarget{id: "a"}}, nil); err == nil {
		t.Fatalf("zero interval must fail")
	}
	if _, err := New(Config{Interval: time.Second}, nil, nil); err == nil {
		t.Fatalf("no targets must fail")
	}
}

func TestCheckOnce_AllTargetsInOrder(t *testing.T) {
	a := &fakeTarget{id: "a", health: device.HealthOK}
	b := &fakeTarget{id: "b", health: device.HealthStale}
	clk := clock.NewFake(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	w, err := New(Config{Interval: time.Second}, []Target{a, b}, clk)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := w.CheckOnce(context.Background())
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].DeviceID != "a" || res[1].DeviceID != "b" || res[1].Health != device.HealthStale {
		t.Fatalf("unexpected results: %+v", res)
	}
	if !res[0].At.Equal(clk.Now()) {
		t.Fatalf("result time must come from the clock")
	}
}

func TestCheckOnce_StopsOnCancel(t *testing.T) {
	a := &fakeTarget{id: "a"}
	w, _ := New(Config{Interval: time.Second}, []Target{a}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res := w.CheckOnce(ctx); len(res) != 0 || a.checks != 0 {
		t.Fatalf("cancelled sweep must not check targets")
	}
}

func TestRun_EmitsSweeps(t *testing.T) {
	a := &fakeTarget{id: "a", health: device.HealthOffline}
	w, _ := New(Config{Interval: 5 * time.Millisecond}, []Target{a}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []Result)
	done := make(chan struct{})
	go func() {
		w.Run(ctx, out)
		close(done)
	}()

	select {
	case res := <-out:
		if len(res) != 1 || res[0].Health != device.HealthOffline {
			t.Fatalf("unexpected sweep: %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no sweep emitted")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
}

func TestRun_RealSessions(t *testing.T) {
	s := device.NewSession(device.Config{ID: "p1"}, device.Deps{})
	w, err := New(Config{Interval: time.Second}, []Target{s}, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	res := w.CheckOnce(context.Background())
	if res[0].Health != device.HealthOffline {
		t.Fatalf("session without reports must be offline, got %s", res[0].Health)
	}
}
