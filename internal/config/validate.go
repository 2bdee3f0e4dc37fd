// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/tamzrod/printer-mirror/internal/status"
)

var validLogLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	m := cfg.Mirror

	if !validLogLevels[m.LogLevel] {
		return fmt.Errorf("log_level %q: want debug, info, warn or error", m.LogLevel)
	}

	if m.BrokerURL == "" {
		return errors.New("broker_url required")
	}
	u, err := url.Parse(m.BrokerURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("broker_url %q: not a broker url", m.BrokerURL)
	}
	switch u.Scheme {
	case "mqtt", "tcp", "ssl", "tls", "ws", "wss":
	default:
		return fmt.Errorf("broker_url %q: unsupported scheme %q", m.BrokerURL, u.Scheme)
	}

	if m.Redis.TTLs < 0 {
		return errors.New("redis.ttl_s must be >= 0")
	}
	if m.StatusMemory.TimeoutMs < 0 {
		return errors.New("status_memory.timeout_ms must be >= 0")
	}

	if len(m.Devices) == 0 {
		return errors.New("at least one device required")
	}

	// ------------------------------------------------------------
	// DEVICE VALIDATION
	// ------------------------------------------------------------

	ids := make(map[string]bool)
	reportTopics := make(map[string]string)

	// key = status_unit_id | slot
	statusOwner := make(map[string]string)

	for _, d := range m.Devices {
		if d.ID == "" {
			return errors.New("device id required")
		}
		if ids[d.ID] {
			return fmt.Errorf("device %q: duplicate id", d.ID)
		}
		ids[d.ID] = true

		if d.ReportTopic == "" || d.RequestTopic == "" {
			return fmt.Errorf("device %q: report_topic and request_topic required", d.ID)
		}
		if prev, exists := reportTopics[d.ReportTopic]; exists {
			return fmt.Errorf("device %q: report_topic %q already used by device %q", d.ID, d.ReportTopic, prev)
		}
		reportTopics[d.ReportTopic] = d.ID

		if d.PushTimeoutMs < 0 || d.DisconnectTimeoutMs < 0 {
			return fmt.Errorf("device %q: timeouts must be >= 0", d.ID)
		}
		if d.PushTimeoutMs > 0 && d.DisconnectTimeoutMs > 0 && d.DisconnectTimeoutMs <= d.PushTimeoutMs {
			return fmt.Errorf("device %q: disconnect_timeout_ms must exceed push_timeout_ms", d.ID)
		}

		// name sanity (ASCII only)
		for i := 0; i < len(d.Name); i++ {
			if d.Name[i] > 0x7F {
				return fmt.Errorf("device %q: name must contain ASCII characters only", d.ID)
			}
		}

		// status is opt-in
		if d.Status == nil {
			continue
		}

		if m.StatusMemory.Endpoint == "" {
			return fmt.Errorf("device %q: status is set but status_memory.endpoint is empty", d.ID)
		}

		// the block must fit the 16-bit register space
		if (int(d.Status.Slot)+1)*status.SlotsPerDevice > 65536 {
			return fmt.Errorf("device %q: status slot %d out of range", d.ID, d.Status.Slot)
		}

		key := fmt.Sprintf("%d|%d", d.Status.UnitID, d.Status.Slot)
		if prev, exists := statusOwner[key]; exists {
			return fmt.Errorf(
				"status slot collision: unit_id=%d slot=%d used by devices %q and %q",
				d.Status.UnitID,
				d.Status.Slot,
				prev,
				d.ID,
			)
		}
		statusOwner[key] = d.ID
	}

	return nil
}
