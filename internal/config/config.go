// Package config loads the exporter's YAML configuration, following the
// teacher's LoadConfig(path) (*Config, error) shape exactly.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flowexporter/internal/ipfix"
)

// FieldDef mirrors spec §6's `template` option: an ordered
// (identifier, size) pair.
type FieldDef struct {
	Identifier string `yaml:"identifier"`
	SizeBytes  int    `yaml:"size_bytes"`
}

// ExporterConfig holds every option spec §6 enumerates for the core.
type ExporterConfig struct {
	ExporterIP      string     `yaml:"exporter_ip"`
	ExporterPort    int        `yaml:"exporter_port"`
	CollectorIP     string     `yaml:"collector_ip"`
	CollectorPort   int        `yaml:"collector_port"`
	IdleTimeoutMs   int64      `yaml:"idle_timeout_ms"`
	ActiveTimeoutMs int64      `yaml:"active_timeout_ms"`
	PollPeriodS     int        `yaml:"poll_period_s"`
	ObservationID   uint32     `yaml:"observation_domain_id"`
	MaxMessageBytes int        `yaml:"max_message_bytes"`
	Template        []FieldDef `yaml:"template"`
}

// NATSConfig configures the probe<->exporter transport (internal/transport).
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig configures the optional archival sink
// (internal/egress.ClickHouseArchiver). A nil *ClickHouseConfig in
// Config disables archival entirely.
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// APIConfig configures the internal/api introspection HTTP server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire
// application, matching the teacher's single-nested-struct style.
type Config struct {
	Exporter   ExporterConfig    `yaml:"exporter"`
	NATS       NATSConfig        `yaml:"nats"`
	ClickHouse *ClickHouseConfig `yaml:"clickhouse"`
	API        APIConfig         `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a
// Config struct, applying spec §4.A/§4.B defaults for any timeout or
// poll period left at zero.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config YAML: %w", err)
	}

	if cfg.Exporter.IdleTimeoutMs <= 0 {
		cfg.Exporter.IdleTimeoutMs = 10_000
	}
	if cfg.Exporter.ActiveTimeoutMs <= 0 {
		cfg.Exporter.ActiveTimeoutMs = 30_000
	}
	if cfg.Exporter.PollPeriodS <= 0 {
		cfg.Exporter.PollPeriodS = 10
	}
	if len(cfg.Exporter.Template) == 0 {
		for _, d := range ipfix.DefaultFieldDefs {
			cfg.Exporter.Template = append(cfg.Exporter.Template, FieldDef{Identifier: d.Identifier, SizeBytes: d.SizeBytes})
		}
	}

	return &cfg, nil
}

// BuildTemplate constructs an ipfix.Template from the configured field
// list, validating it against the closed IPFIX enumeration.
func (c *Config) BuildTemplate() (*ipfix.Template, error) {
	defs := make([]ipfix.FieldDef, 0, len(c.Exporter.Template))
	for _, d := range c.Exporter.Template {
		defs = append(defs, ipfix.FieldDef{Identifier: d.Identifier, SizeBytes: d.SizeBytes})
	}
	return ipfix.Build(ipfix.DefaultSetID, defs)
}
