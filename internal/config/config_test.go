package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
limits:
  max_steps: 500
  max_retry_delay: 5s
provider:
  kind: anthropic
  model: claude-test
  timeout: 20s
  requests_per_minute: 30
channel:
  kind: http
  url: http://localhost:8080
  session: s1
  ttl: 30m
checkpoint:
  kind: file
  path: /tmp/cp
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 500, cfg.Limits.MaxSteps)
	assert.Equal(t, 5*time.Second, cfg.Limits.MaxRetryDelay)
	assert.Equal(t, 20*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 30, cfg.Provider.RequestsPerMinute)
	assert.Equal(t, "http://localhost:8080", cfg.Channel.URL)
	assert.Equal(t, 600, cfg.Channel.MaxPollAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Channel.TTL)
	assert.Equal(t, StoreFile, cfg.Checkpoint.Kind)
}

func TestLoad_MissingFiles(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Channel, cfg.Channel)

	_, err = Load("nope.yaml")
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weave.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  kind: skynet\nlimits:\n  max_steps: -1\nchannel:\n  ttl: -1s\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `provider.kind: unknown value "skynet"`)
	assert.Contains(t, err.Error(), "limits cannot be negative")
	assert.Contains(t, err.Error(), "ttl cannot be negative")

	require.NoError(t, os.WriteFile(path, []byte("limits: [1"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"WEAVE_LOG_LEVEL":  "warn",
		"WEAVE_CHANNEL":    "redis",
		"WEAVE_REDIS_ADDR": "localhost:6379",
		"WEAVE_MAX_STEPS":  "42",
		"WEAVE_PROVIDER":   "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ChannelRedis, cfg.Channel.Kind)
	assert.Equal(t, "localhost:6379", cfg.Channel.RedisAddr)
	assert.Equal(t, "localhost:6379", cfg.Checkpoint.RedisAddr)
	assert.Equal(t, 42, cfg.Limits.MaxSteps)
	assert.Equal(t, ProviderNone, cfg.Provider.Kind)
	require.NoError(t, cfg.Validate())

	env["WEAVE_MAX_STEPS"] = "many"
	assert.Error(t, Default().applyEnv(lookup))
}

func TestProvider_APIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("CUSTOM_KEY", "c-key")

	assert.Equal(t, "a-key", Provider{Kind: ProviderAnthropic}.APIKey())
	assert.Equal(t, "c-key", Provider{Kind: ProviderOpenAI, APIKeyEnv: "CUSTOM_KEY"}.APIKey())
	assert.Empty(t, Provider{Kind: ProviderNone}.APIKey())
}
