package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
httpServer:
  checks:
    - name: edge
      port: 8080
  admin:
    port: 9000
store:
  type: redis
  redis:
    addresses: ["127.0.0.1:6379"]
    password: ${RW_TEST_REDIS_PASSWORD}
  breaker:
    threshold: 0.6
profiles:
  - name: login
    preset: auth
    maxRequests: 3
  - name: search
    strategy: sliding_window
    windowMs: 60000
    maxRequests: 40
    skip:
      addresses: ["10.0.0.0/8"]
routes:
  - prefix: /api/auth
    profile: login
  - prefix: /api/search
    profile: search
  - prefix: /api/pay
    profile: payment
`

func TestManager_LoadAppliesDefaultsAndPresets(t *testing.T) {
	t.Setenv("RW_TEST_REDIS_PASSWORD", "s3cret")

	manager := newTestManager(t)
	require.NoError(t, manager.Load([]byte(sampleConfig)))
	cfg := manager.GetConfig()

	// 决策服务默认值
	require.Len(t, cfg.HTTPServer.Checks, 1)
	assert.Equal(t, "0.0.0.0", cfg.HTTPServer.Checks[0].Address)
	assert.Equal(t, 60000, cfg.HTTPServer.Checks[0].Timeout.Idle)

	// 存储默认值与环境变量展开
	assert.Equal(t, 200, cfg.Store.Timeout)
	assert.Equal(t, 8, cfg.Store.MaxRetries)
	assert.Equal(t, "s3cret", cfg.Store.Redis.Password)
	assert.Equal(t, 20, cfg.Store.Redis.PoolSize)
	assert.Equal(t, 0.6, cfg.Store.Breaker.Threshold)
	assert.Equal(t, 30000, cfg.Store.Breaker.Cooldown)

	// 违规升级默认值
	assert.Equal(t, 10, cfg.Abuse.Threshold)
	assert.Equal(t, 86400000, cfg.Abuse.Window)

	profiles := make(map[string]ProfileConfig)
	for _, p := range cfg.Profiles {
		profiles[p.Name] = p
	}

	login := profiles["login"]
	assert.Equal(t, "fixed_window", login.Strategy)
	assert.Equal(t, 900000, login.WindowMs)
	assert.Equal(t, 3, login.MaxRequests, "explicit value wins over preset")
	require.NotNil(t, login.IncludeHeaders)
	assert.True(t, *login.IncludeHeaders)

	// 未覆盖的内置配置自动追加
	for _, name := range PresetNames() {
		assert.Contains(t, profiles, name)
	}
	assert.Equal(t, "general", cfg.DefaultProfile)
}

func TestManager_ReferenceValidation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name: "route to unknown profile",
			yaml: `
routes:
  - prefix: /api
    profile: missing
`,
			errMsg: "unknown profile 'missing'",
		},
		{
			name: "unknown default profile",
			yaml: `
defaultProfile: nope
`,
			errMsg: "default profile 'nope'",
		},
		{
			name: "incomplete custom profile",
			yaml: `
profiles:
  - name: search
    windowMs: 60000
`,
			errMsg: "profile 'search' must set",
		},
		{
			name: "duplicate profile",
			yaml: `
profiles:
  - name: a
    preset: auth
  - name: a
    preset: upload
`,
			errMsg: "duplicate profile 'a'",
		},
		{
			name: "redis type without redis section",
			yaml: `
store:
  type: redis
`,
			errMsg: "store_conditional",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := newTestManager(t)
			err := manager.Load([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestManager_LoadFromFileAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	cfgPath := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(envPath, []byte("RW_TEST_ENV_PASSWORD=from-dotenv\n"), 0o600))
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
store:
  type: redis
  redis:
    addresses: ["127.0.0.1:6379"]
    password: ${RW_TEST_ENV_PASSWORD}
`), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("RW_TEST_ENV_PASSWORD") })

	manager := newTestManager(t)
	require.NoError(t, manager.LoadEnvFile(envPath, true))
	require.NoError(t, manager.LoadFromFile(cfgPath))

	assert.Equal(t, "from-dotenv", manager.GetConfig().Store.Redis.Password)
	assert.True(t, filepath.IsAbs(manager.GetConfigPath()))

	redacted := manager.Redacted()
	assert.Equal(t, "******", redacted.Store.Redis.Password)
	assert.Equal(t, "from-dotenv", manager.GetConfig().Store.Redis.Password, "redaction must not touch live config")
}

func TestManager_MissingFiles(t *testing.T) {
	manager := newTestManager(t)

	assert.NoError(t, manager.LoadEnvFile("/nonexistent/.env", false))
	assert.Error(t, manager.LoadEnvFile("/nonexistent/.env", true))

	err := manager.LoadFromFile("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestManager_MinimalConfigDefaults(t *testing.T) {
	manager := newTestManager(t)
	require.NoError(t, manager.Load([]byte("{}")))
	cfg := manager.GetConfig()

	assert.Equal(t, "memory", cfg.Store.Type)
	require.NotNil(t, cfg.Store.Memory)
	assert.Equal(t, 60000, cfg.Store.Memory.CleanupInterval)
	assert.Nil(t, cfg.Store.Breaker)
	assert.Equal(t, 8080, cfg.HTTPServer.Checks[0].Port)
	assert.Equal(t, 9000, cfg.HTTPServer.Admin.Port)
	assert.Equal(t, 20, cfg.HTTPServer.Admin.RateLimit.PerSecond)
	assert.Len(t, cfg.Profiles, len(PresetNames()))
}

func TestManager_WebhookDefaultsAndRedaction(t *testing.T) {
	manager := newTestManager(t)
	require.NoError(t, manager.Load([]byte(`
abuse:
  webhook:
    url: https://hooks.example.com/ratewarden
    auth:
      type: bearer
      token: tok-123
    headers:
      - op: insert
        key: X-Source
        value: ratewarden
`)))

	webhook := manager.GetConfig().Abuse.Webhook
	require.NotNil(t, webhook)
	assert.Equal(t, 3000, webhook.Timeout)
	assert.Equal(t, 256, webhook.QueueSize)
	require.NotNil(t, webhook.Retry)
	assert.Equal(t, 1, webhook.Retry.Attempts)
	assert.Equal(t, 500, webhook.Retry.Initial)

	redacted := manager.Redacted()
	assert.Equal(t, "******", redacted.Abuse.Webhook.Auth.Token)
	assert.Equal(t, "tok-123", manager.GetConfig().Abuse.Webhook.Auth.Token)
}

func TestManager_WebhookValidation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name: "non http scheme",
			yaml: `
abuse:
  webhook:
    url: ftp://hooks.example.com
`,
			errMsg: "URL",
		},
		{
			name: "bearer without token",
			yaml: `
abuse:
  webhook:
    url: https://hooks.example.com
    auth:
      type: bearer
`,
			errMsg: "Token",
		},
		{
			name: "insert without value",
			yaml: `
abuse:
  webhook:
    url: https://hooks.example.com
    headers:
      - op: insert
        key: X-Source
`,
			errMsg: "Value",
		},
		{
			name: "too many attempts",
			yaml: `
abuse:
  webhook:
    url: https://hooks.example.com
    retry:
      attempts: 50
`,
			errMsg: "Attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := newTestManager(t)
			err := manager.Load([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
