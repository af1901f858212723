package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HERE      HereConfig      `mapstructure:"here"`
	Transport TransportConfig `mapstructure:"transport"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
}

// HereConfig configures the HERE routing client. URLParameters are merged
// into every request, e.g. language or metricSystem.
type HereConfig struct {
	ServiceURL    string         `mapstructure:"service_url"`
	AppID         string         `mapstructure:"app_id"`
	AppCode       string         `mapstructure:"app_code"`
	TimeoutMS     int            `mapstructure:"timeout_ms"`
	URLParameters []URLParameter `mapstructure:"url_parameters"`
}

// URLParameter is one static query parameter. HERE parameter names are
// case-sensitive and viper lowercases map keys, so they are configured as
// a list:
//
//	url_parameters:
//	  - key: instructionFormat
//	    value: html
type URLParameter struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

// Parameters returns URLParameters as a map. Later entries win.
func (h HereConfig) Parameters() map[string]string {
	if len(h.URLParameters) == 0 {
		return nil
	}
	out := make(map[string]string, len(h.URLParameters))
	for _, p := range h.URLParameters {
		out[p.Key] = p.Value
	}
	return out
}

// Timeout is TimeoutMS as a duration.
func (h HereConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMS) * time.Millisecond
}

type TransportConfig struct {
	MaxConnsPerHost int    `mapstructure:"max_conns_per_host"`
	UserAgent       string `mapstructure:"user_agent"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	Enabled       bool   `mapstructure:"enabled"`
}

// ValkeyConfig backs the routing rate limiter. Disabled, each process
// keeps its own counters.
type ValkeyConfig struct {
	Addr      string `mapstructure:"addr"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Enabled   bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.request_timeout", 35)
	v.SetDefault("here.service_url", "https://route.cit.api.here.com/routing/7.2/calculateroute.json")
	v.SetDefault("here.app_id", "")
	v.SetDefault("here.app_code", "")
	v.SetDefault("here.timeout_ms", 30000)
	v.SetDefault("transport.max_conns_per_host", 64)
	v.SetDefault("transport.user_agent", service)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "routing")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.key_prefix", "hereroute:limiter:")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: HEREROUTE_HERE_APP_ID → here.app_id
	v.SetEnvPrefix("HEREROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if u, err := url.Parse(c.HERE.ServiceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("here.service_url must be an absolute http(s) URL, got %q", c.HERE.ServiceURL))
	}
	if c.HERE.AppID == "" {
		errs = append(errs, "here.app_id is required")
	}
	if c.HERE.AppCode == "" {
		errs = append(errs, "here.app_code is required")
	}
	if c.HERE.TimeoutMS <= 0 {
		errs = append(errs, "here.timeout_ms must be positive")
	}
	for i, p := range c.HERE.URLParameters {
		switch p.Key {
		case "":
			errs = append(errs, fmt.Sprintf("here.url_parameters[%d].key is required", i))
		case "app_id", "app_code":
			errs = append(errs, fmt.Sprintf("here.url_parameters must not set %s", p.Key))
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats.enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey.enabled")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
