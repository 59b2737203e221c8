package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// SensitiveString hides its value when printed.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string { return string(s) }

type Config struct {
	Server ServerConfig `koanf:"server"`
	N8N    N8NConfig    `koanf:"n8n"`
	Log    LogConfig    `koanf:"log"`
}

type ServerConfig struct {
	Port int `koanf:"port" validate:"min=1,max=65535"`
}

// N8NConfig holds the remote workflow API settings. APIURL and APIKey are
// allowed to be empty; the request is attempted regardless.
type N8NConfig struct {
	APIURL     string          `koanf:"api_url"`
	APIKey     SensitiveString `koanf:"api_key"`
	Timeout    time.Duration   `koanf:"timeout"     validate:"min=0"`
	MaxRetries int             `koanf:"max_retries" validate:"min=0,max=10"`
	RetryWait  time.Duration   `koanf:"retry_wait"  validate:"min=0"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 3000},
		N8N: N8NConfig{
			Timeout:   30 * time.Second,
			RetryWait: 500 * time.Millisecond,
		},
		Log: LogConfig{Level: "info"},
	}
}

// envKeys maps environment variables onto config paths.
var envKeys = map[string]string{
	"PORT":            "server.port",
	"N8N_API_URL":     "n8n.api_url",
	"N8N_API_KEY":     "n8n.api_key",
	"N8N_TIMEOUT":     "n8n.timeout",
	"N8N_MAX_RETRIES": "n8n.max_retries",
	"N8N_RETRY_WAIT":  "n8n.retry_wait",
	"LOG_LEVEL":       "log.level",
	"LOG_JSON":        "log.json",
}

// Load builds the configuration from defaults overridden by environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envKeys[key]
			if !ok || value == "" {
				return "", nil
			}
			return path, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
