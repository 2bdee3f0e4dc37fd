// internal/config/config.go
package config

type Config struct {
	Mirror MirrorConfig `yaml:"mirror"`
}

type MirrorConfig struct {
	LogLevel     string             `yaml:"log_level"`
	BrokerURL    string             `yaml:"broker_url"`
	HTTPListen   string             `yaml:"http_listen"`
	Redis        RedisConfig        `yaml:"redis"`
	StatusMemory StatusMemoryConfig `yaml:"status_memory"`
	Devices      []DeviceConfig     `yaml:"devices"`
}

// ---- CACHE ----

// RedisConfig enables the document cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLs     int    `yaml:"ttl_s"`
}

// ---- STATUS MEMORY ----

type StatusMemoryConfig struct {
	Endpoint  string `yaml:"endpoint"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	ReportTopic  string `yaml:"report_topic"`
	RequestTopic string `yaml:"request_topic"`

	PushTimeoutMs       int `yaml:"push_timeout_ms"`
	DisconnectTimeoutMs int `yaml:"disconnect_timeout_ms"`

	// Status register block (optional, opt-in)
	Status *StatusBlockConfig `yaml:"status"`
}

type StatusBlockConfig struct {
	UnitID uint8  `yaml:"unit_id"`
	Slot   uint16 `yaml:"slot"`
}
