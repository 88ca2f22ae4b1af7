// Package config loads weave.yaml and applies WEAVE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given. It may be absent.
const DefaultFile = "weave.yaml"

// Provider kinds.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Channel kinds.
const (
	ChannelStdio = "stdio"
	ChannelHTTP  = "http"
	ChannelRedis = "redis"
)

// Checkpoint store kinds.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the full runtime configuration.
type Config struct {
	LogLevel   string     `yaml:"log_level"`
	LogFormat  string     `yaml:"log_format"`
	Limits     Limits     `yaml:"limits"`
	Provider   Provider   `yaml:"provider"`
	Channel    Channel    `yaml:"channel"`
	Checkpoint Checkpoint `yaml:"checkpoint"`
	Relay      Relay      `yaml:"relay"`
	Metrics    Metrics    `yaml:"metrics"`
}

// Limits bounds a run. Zero values keep the engine defaults.
type Limits struct {
	MaxSteps          int           `yaml:"max_steps"`
	MaxIterations     int           `yaml:"max_iterations"`
	MaxRecursionDepth int           `yaml:"max_recursion_depth"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay"`
}

// Provider selects and tunes the AI backend.
type Provider struct {
	Kind              string        `yaml:"kind"`
	Model             string        `yaml:"model"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	System            string        `yaml:"system"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Burst             int           `yaml:"burst"`
	MaxResponseBytes  int           `yaml:"max_response_bytes"`
}

// Channel selects where interactive I/O goes.
type Channel struct {
	Kind            string        `yaml:"kind"`
	URL             string        `yaml:"url"`
	Session         string        `yaml:"session"`
	RedisAddr       string        `yaml:"redis_addr"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
	// TTL expires the redis channel's session keys after this long idle.
	TTL time.Duration `yaml:"ttl"`
}

// Checkpoint selects where run snapshots are kept.
type Checkpoint struct {
	Kind      string        `yaml:"kind"`
	Path      string        `yaml:"path"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
	// EncryptionKeyEnv names a variable holding a base64 AES-256 key.
	EncryptionKeyEnv string `yaml:"encryption_key_env"`
	// Mask lists patterns of variable names stored as "***".
	Mask []string `yaml:"mask"`
}

// Relay configures the HTTP relay server.
type Relay struct {
	Addr     string `yaml:"addr"`
	MaxQueue int    `yaml:"max_queue"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Provider: Provider{
			Kind:    ProviderNone,
			Timeout: 60 * time.Second,
		},
		Channel: Channel{
			Kind:            ChannelStdio,
			PollInterval:    500 * time.Millisecond,
			MaxPollAttempts: 600,
		},
		Checkpoint: Checkpoint{
			Kind: StoreNone,
			Path: ".weave/checkpoints",
		},
		Relay: Relay{Addr: ":8080"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// With an empty path DefaultFile is tried and may be missing.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"WEAVE_LOG_LEVEL":       &c.LogLevel,
		"WEAVE_LOG_FORMAT":      &c.LogFormat,
		"WEAVE_PROVIDER":        &c.Provider.Kind,
		"WEAVE_MODEL":           &c.Provider.Model,
		"WEAVE_CHANNEL":         &c.Channel.Kind,
		"WEAVE_RELAY_URL":       &c.Channel.URL,
		"WEAVE_SESSION":         &c.Channel.Session,
		"WEAVE_CHECKPOINT":      &c.Checkpoint.Kind,
		"WEAVE_CHECKPOINT_PATH": &c.Checkpoint.Path,
		"WEAVE_METRICS_ADDR":    &c.Metrics.Addr,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("WEAVE_REDIS_ADDR"); ok && v != "" {
		c.Channel.RedisAddr = v
		c.Checkpoint.RedisAddr = v
	}
	if v, ok := lookup("WEAVE_MAX_STEPS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEAVE_MAX_STEPS: %w", err)
		}
		c.Limits.MaxSteps = n
	}
	return nil
}

// Validate rejects unknown kinds and negative bounds.
func (c *Config) Validate() error {
	var problems []string
	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		problems = append(problems, fmt.Sprintf("%s: unknown value %q (want %s)", field, value, strings.Join(allowed, ", ")))
	}
	oneOf("log_format", c.LogFormat, "text", "json")
	oneOf("provider.kind", c.Provider.Kind, ProviderNone, ProviderAnthropic, ProviderOpenAI)
	oneOf("channel.kind", c.Channel.Kind, ChannelStdio, ChannelHTTP, ChannelRedis)
	oneOf("checkpoint.kind", c.Checkpoint.Kind, StoreNone, StoreMemory, StoreFile, StoreRedis)

	if c.Limits.MaxSteps < 0 || c.Limits.MaxIterations < 0 || c.Limits.MaxRecursionDepth < 0 || c.Limits.MaxRetryDelay < 0 {
		problems = append(problems, "limits cannot be negative")
	}
	if c.Provider.Kind != ProviderNone && c.Provider.Model == "" {
		problems = append(problems, "provider.model is required")
	}
	if c.Channel.Kind == ChannelHTTP && c.Channel.URL == "" {
		problems = append(problems, "channel.url is required for the http channel")
	}
	if c.Channel.TTL < 0 || c.Checkpoint.TTL < 0 {
		problems = append(problems, "ttl cannot be negative")
	}
	if c.Channel.Kind == ChannelRedis && c.Channel.RedisAddr == "" {
		problems = append(problems, "channel.redis_addr is required for the redis channel")
	}
	if c.Checkpoint.Kind == StoreRedis && c.Checkpoint.RedisAddr == "" {
		problems = append(problems, "checkpoint.redis_addr is required for the redis store")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// APIKey reads the provider key from api_key_env, or the vendor's usual variable.
func (p Provider) APIKey() string {
	env := p.APIKeyEnv
	if env == "" {
		switch p.Kind {
		case ProviderAnthropic:
			env = "ANTHROPIC_API_KEY"
		case ProviderOpenAI:
			env = "OPENAI_API_KEY"
		default:
			return ""
		}
	}
	return os.Getenv(env)
}
