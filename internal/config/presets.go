package config

import "github.com/shengyanli1982/ratewarden/internal/constants"

// 内置端点类别名称
const (
	PresetAuth    = "auth"
	PresetPayment = "payment"
	PresetUpload  = "upload"
	PresetAdmin   = "admin"
	PresetWebhook = "webhook"
	PresetGeneral = "general"
)

// presets 内置的端点类别限流配置
var presets = map[string]ProfileConfig{
	PresetAuth: {
		Name:        PresetAuth,
		Strategy:    constants.StrategyFixedWindow,
		WindowMs:    15 * 60 * 1000,
		MaxRequests: 5,
		Message:     "Too many authentication attempts, please try again later.",
	},
	PresetPayment: {
		Name:        PresetPayment,
		Strategy:    constants.StrategyTokenBucket,
		WindowMs:    60 * 1000,
		MaxRequests: 10,
		Message:     "Too many payment requests, please slow down.",
	},
	PresetUpload: {
		Name:        PresetUpload,
		Strategy:    constants.StrategySlidingWindow,
		WindowMs:    60 * 60 * 1000,
		MaxRequests: 20,
		Message:     "Upload limit reached, please try again later.",
	},
	PresetAdmin: {
		Name:        PresetAdmin,
		Strategy:    constants.StrategyFixedWindow,
		WindowMs:    60 * 1000,
		MaxRequests: 30,
	},
	PresetWebhook: {
		Name:        PresetWebhook,
		Strategy:    constants.StrategyTokenBucket,
		WindowMs:    60 * 1000,
		MaxRequests: 100,
	},
	PresetGeneral: {
		Name:        PresetGeneral,
		Strategy:    constants.StrategySlidingWindow,
		WindowMs:    15 * 60 * 1000,
		MaxRequests: 100,
	},
}

// Preset 返回指定名称的内置配置副本
func Preset(name string) (ProfileConfig, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames 返回所有内置配置名称（固定顺序）
func PresetNames() []string {
	return []string{PresetAuth, PresetPayment, PresetUpload, PresetAdmin, PresetWebhook, PresetGeneral}
}
