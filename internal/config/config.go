package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/reducers"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STATEBRIDGE_"

// Config is the runtime configuration of the statebridge command.
type Config struct {
	LogLevel string       `yaml:"log_level" env:"LOG_LEVEL"`
	System   SystemConfig `yaml:"system"`
	HTTP     HTTPConfig   `yaml:"http" envPrefix:"HTTP_"`
	Redis    RedisConfig  `yaml:"redis" envPrefix:"REDIS_"`
	MCP      MCPConfig    `yaml:"mcp" envPrefix:"MCP_"`
}

// SystemConfig declares a map-shaped state and its actions.
type SystemConfig struct {
	Name    string                    `yaml:"name" env:"SYSTEM_NAME"`
	Initial map[string]any            `yaml:"initial"`
	Actions map[string]map[string]any `yaml:"actions"`
}

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	Addr        string `yaml:"addr" env:"ADDR"`
	MetricsPath string `yaml:"metrics_path" env:"METRICS_PATH"`
}

// RedisConfig configures the pub/sub relay. The relay is off unless Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Prefix   string `yaml:"prefix" env:"PREFIX"`
}

// MCPConfig configures the MCP adapter.
type MCPConfig struct {
	Transport string `yaml:"transport" env:"TRANSPORT"`
	Port      int    `yaml:"port" env:"PORT"`
}

// Enabled reports whether the relay should run.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		System: SystemConfig{
			Name:    bridge.DefaultName,
			Initial: map[string]any{},
			Actions: map[string]map[string]any{},
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			MetricsPath: "/metrics",
		},
		Redis: RedisConfig{
			Prefix: "statebridge:",
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Port:      8081,
		},
	}
}

// Load reads the YAML file at path (if any) over the defaults, then applies
// STATEBRIDGE_* environment variables, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Decode strictly decodes YAML into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// Validate checks the values that cannot be caught by decoding.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.System.Name == "" {
		errs = append(errs, errors.New("system name is required"))
	}
	if _, err := c.System.Specs(); err != nil {
		errs = append(errs, err)
	}
	switch c.MCP.Transport {
	case "stdio", "sse":
	default:
		errs = append(errs, fmt.Errorf("unknown mcp transport %q", c.MCP.Transport))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("invalid redis db %d", c.Redis.DB))
	}
	return errors.Join(errs...)
}

// Specs decodes the declared actions.
func (s SystemConfig) Specs() (map[string]reducers.ActionSpec, error) {
	specs := make(map[string]reducers.ActionSpec, len(s.Actions))
	for name, raw := range s.Actions {
		spec, err := reducers.DecodeSpec(raw)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", name, err)
		}
		specs[name] = spec
	}
	return specs, nil
}

// Definition builds the bridge definition of the declared system.
func (s SystemConfig) Definition() (bridge.Definition[reducers.State], error) {
	specs, err := s.Specs()
	if err != nil {
		return bridge.Definition[reducers.State]{}, err
	}
	return reducers.Build(s.Name, s.Initial, specs)
}
