// internal/config/normalize.go
package config

import "github.com/tamzrod/printer-mirror/internal/status"

const (
	DefaultLogLevel            = "info"
	DefaultHTTPListen          = ":8080"
	DefaultRedisTTLs           = 3600
	DefaultStatusTimeoutMs     = 1000
	DefaultPushTimeoutMs       = 15000
	DefaultDisconnectTimeoutMs = 30000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	m := &cfg.Mirror

	if m.LogLevel == "" {
		m.LogLevel = DefaultLogLevel
	}
	if m.HTTPListen == "" {
		m.HTTPListen = DefaultHTTPListen
	}
	if m.Redis.TTLs == 0 {
		m.Redis.TTLs = DefaultRedisTTLs
	}
	if m.StatusMemory.TimeoutMs == 0 {
		m.StatusMemory.TimeoutMs = DefaultStatusTimeoutMs
	}

	for i := range m.Devices {
		d := &m.Devices[i]

		if d.Name == "" {
			d.Name = d.ID
		}
		if d.PushTimeoutMs == 0 {
			d.PushTimeoutMs = DefaultPushTimeoutMs
		}
		if d.DisconnectTimeoutMs == 0 {
			d.DisconnectTimeoutMs = DefaultDisconnectTimeoutMs
		}
		// a default on one side must not invert the pair
		if d.DisconnectTimeoutMs <= d.PushTimeoutMs {
			d.DisconnectTimeoutMs = 2 * d.PushTimeoutMs
		}

		// ASCII already validated; the register block holds 16 characters
		if len(d.Name) > status.DeviceNameMaxChars {
			d.Name = d.Name[:status.DeviceNameMaxChars]
		}
	}
}
