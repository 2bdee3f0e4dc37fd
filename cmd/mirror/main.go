// cmd/mirror/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/tamzrod/printer-mirror/internal/config"
	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/httpapi"
	"github.com/tamzrod/printer-mirror/internal/metrics"
	"github.com/tamzrod/printer-mirror/internal/mqtt"
	"github.com/tamzrod/printer-mirror/internal/store"
	"github.com/tamzrod/printer-mirror/internal/watchdog"
	"github.com/tamzrod/printer-mirror/internal/writer"
	wmodbus "github.com/tamzrod/printer-mirror/internal/writer/modbus"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "mirror.yaml", "path to the YAML config")
	logLevel := pflag.String("log-level", "", "override mirror.log_level (debug, info, warn, error)")
	pflag.Parse()

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal("config load failed", err)
	}
	if *logLevel != "" {
		cfg.Mirror.LogLevel = *logLevel
	}
	if err := config.Validate(cfg); err != nil {
		fatal("config validation failed", err)
	}
	config.Normalize(cfg)
	m := cfg.Mirror

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(m.LogLevel)}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.New()
	reg := device.NewRegistry()

	// --------------------
	// Broker
	// --------------------

	// OnConnect runs on its own goroutine; hold it until every session is registered.
	ready := make(chan struct{})
	client, err := mqtt.New(mqtt.Config{
		BrokerURL: m.BrokerURL,
		OnConnect: func() {
			select {
			case <-ready:
			case <-ctx.Done():
				return
			}
			mqtt.Resync(ctx, reg, log)
		},
	}, log)
	if err != nil {
		fatal("mqtt connect failed", err)
	}
	defer client.Close()

	// --------------------
	// Optional sinks
	// --------------------

	var cache *store.DocumentCache
	if m.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: m.Redis.Addr, Password: m.Redis.Password, DB: m.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, document cache writes will fail until it recovers", "addr", m.Redis.Addr, "error", err)
		}
		cache = store.NewDocumentCache(store.NewRedis(rdb), time.Duration(m.Redis.TTLs)*time.Second, log)
	}

	var statusCli *wmodbus.EndpointClient
	if m.StatusMemory.Endpoint != "" {
		statusCli, err = wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: m.StatusMemory.Endpoint,
			Timeout:  time.Duration(m.StatusMemory.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			fatal("status memory connect failed", err)
		}
		defer statusCli.Close()
	}

	// --------------------
	// Build per-device sessions
	// --------------------

	bridge := mqtt.NewBridge(ctx, client, log)
	feeds := make(map[string]*writer.Feed)
	var targets []watchdog.Target

	for _, d := range m.Devices {
		s := device.NewSession(device.Config{
			ID:                d.ID,
			Name:              d.Name,
			RequestTopic:      d.RequestTopic,
			PushTimeout:       time.Duration(d.PushTimeoutMs) * time.Millisecond,
			DisconnectTimeout: time.Duration(d.DisconnectTimeoutMs) * time.Millisecond,
		}, device.Deps{Publisher: client, Recorder: rec, Log: log})

		if err := reg.Add(s); err != nil {
			fatal("device registration failed", err)
		}
		if cache != nil {
			s.OnUpdate(cache.OnUpdate)
		}
		if d.Status != nil && statusCli != nil {
			sw := writer.NewDeviceStatusWriter(writer.StatusPlan{
				UnitID:     d.Status.UnitID,
				BaseSlot:   d.Status.Slot,
				DeviceName: d.Name,
			}, statusCli)
			feed := writer.NewFeed(sw, log, nil)
			s.OnUpdate(feed.OnUpdate)
			feeds[d.ID] = feed
		}
		if err := bridge.Route(d.ReportTopic, s); err != nil {
			fatal("report subscription failed", err)
		}
		targets = append(targets, s)
	}
	close(ready)

	// --------------------
	// Watchdog
	// --------------------

	wd, err := watchdog.New(watchdog.Config{Interval: watchdog.DefaultInterval}, targets, nil)
	if err != nil {
		fatal("watchdog build failed", err)
	}
	sweeps := make(chan []watchdog.Result)
	go wd.Run(ctx, sweeps)
	go func() {
		last := make(map[string]device.Health)
		for {
			select {
			case <-ctx.Done():
				return
			case res := <-sweeps:
				for _, r := range res {
					rec.Health(r.DeviceID, r.Health)
					if prev, seen := last[r.DeviceID]; !seen || prev != r.Health {
						log.Info("device health changed", "device", r.DeviceID, "health", r.Health.String())
						last[r.DeviceID] = r.Health
					}
					if feed, ok := feeds[r.DeviceID]; ok {
						if s, ok := reg.Get(r.DeviceID); ok {
							feed.OnHealth(s.Snapshot(), r.Health)
						}
					}
				}
			}
		}
	}()

	// --------------------
	// HTTP
	// --------------------

	var docs httpapi.DocumentSource
	if cache != nil {
		docs = cache
	}
	srv := &http.Server{
		Addr:              m.HTTPListen,
		Handler:           httpapi.NewServer(reg, docs, rec.Handler(), log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", m.HTTPListen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
