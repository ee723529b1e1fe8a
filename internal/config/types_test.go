package config

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager()
	require.NoError(t, err)
	return manager
}

func TestProfileConfig_Validation(t *testing.T) {
	manager := newTestManager(t)

	tests := []struct {
		name    string
		config  ProfileConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid custom profile",
			config: ProfileConfig{
				Name:        "search",
				Strategy:    "sliding_window",
				WindowMs:    60000,
				MaxRequests: 50,
			},
			wantErr: false,
		},
		{
			name: "valid preset-only profile",
			config: ProfileConfig{
				Name:   "login",
				Preset: "auth",
			},
			wantErr: false,
		},
		{
			name: "invalid strategy",
			config: ProfileConfig{
				Name:        "search",
				Strategy:    "leaky_bucket",
				WindowMs:    60000,
				MaxRequests: 50,
			},
			wantErr: true,
			errMsg:  "Strategy",
		},
		{
			name: "invalid preset",
			config: ProfileConfig{
				Name:   "search",
				Preset: "graphql",
			},
			wantErr: true,
			errMsg:  "Preset",
		},
		{
			name: "window too small",
			config: ProfileConfig{
				Name:        "search",
				Strategy:    "fixed_window",
				WindowMs:    10,
				MaxRequests: 5,
			},
			wantErr: true,
			errMsg:  "WindowMs",
		},
		{
			name: "negative max requests",
			config: ProfileConfig{
				Name:        "search",
				Strategy:    "fixed_window",
				WindowMs:    1000,
				MaxRequests: -1,
			},
			wantErr: true,
			errMsg:  "MaxRequests",
		},
		{
			name: "missing name",
			config: ProfileConfig{
				Preset: "auth",
			},
			wantErr: true,
			errMsg:  "Name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.validator.Struct(&tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSkipConfig_CIDROrIPValidation(t *testing.T) {
	manager := newTestManager(t)

	tests := []struct {
		name    string
		config  SkipConfig
		wantErr bool
	}{
		{name: "ipv4 address", config: SkipConfig{Addresses: []string{"10.0.0.1"}}},
		{name: "ipv6 address", config: SkipConfig{Addresses: []string{"::1"}}},
		{name: "ipv4 cidr", config: SkipConfig{Addresses: []string{"192.168.0.0/16"}}},
		{name: "path prefix", config: SkipConfig{Paths: []string{"/health"}}},
		{name: "hostname is rejected", config: SkipConfig{Addresses: []string{"localhost"}}, wantErr: true},
		{name: "broken cidr", config: SkipConfig{Addresses: []string{"10.0.0.0/99"}}, wantErr: true},
		{name: "relative path", config: SkipConfig{Paths: []string{"health"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.validator.Struct(&tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStoreConfig_ConditionalValidation(t *testing.T) {
	manager := newTestManager(t)

	tests := []struct {
		name    string
		config  StoreConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "memory store without redis section",
			config:  StoreConfig{Type: "memory"},
			wantErr: false,
		},
		{
			name: "redis store with addresses",
			config: StoreConfig{
				Type:  "redis",
				Redis: &RedisStoreConfig{Addresses: []string{"127.0.0.1:6379"}},
			},
			wantErr: false,
		},
		{
			// type=redis 时缺少 redis 配置
			name:    "redis store without redis section",
			config:  StoreConfig{Type: "redis"},
			wantErr: true,
			errMsg:  "store_conditional",
		},
		{
			name: "redis address without port",
			config: StoreConfig{
				Type:  "redis",
				Redis: &RedisStoreConfig{Addresses: []string{"127.0.0.1"}},
			},
			wantErr: true,
			errMsg:  "Addresses",
		},
		{
			name:    "unknown store type",
			config:  StoreConfig{Type: "etcd"},
			wantErr: true,
			errMsg:  "Type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.validator.Struct(&tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBreakerConfig_OptionalValidation(t *testing.T) {
	validator := validator.New()

	tests := []struct {
		name    string
		config  BreakerConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config with all fields",
			config: BreakerConfig{
				Threshold: 0.5,
				Cooldown:  30000,
			},
			wantErr: false,
		},
		{
			name: "valid config with zero values (use defaults)",
			config: BreakerConfig{
				Threshold: 0,
				Cooldown:  0,
			},
			wantErr: false,
		},
		{
			name: "invalid threshold - too low",
			config: BreakerConfig{
				Threshold: 0.005,
				Cooldown:  30000,
			},
			wantErr: true,
			errMsg:  "Threshold",
		},
		{
			name: "invalid threshold - too high",
			config: BreakerConfig{
				Threshold: 1.5,
				Cooldown:  30000,
			},
			wantErr: true,
			errMsg:  "Threshold",
		},
		{
			name: "invalid cooldown - too high",
			config: BreakerConfig{
				Threshold: 0.5,
				Cooldown:  3600001,
			},
			wantErr: true,
			errMsg:  "Cooldown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Struct(&tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
