package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shengyanli1982/ratewarden/internal/constants"
	"gopkg.in/yaml.v3"
)

// 全局验证器实例，用于配置验证
var validate = validator.New()

// redactedSecret 敏感字段脱敏后的占位符
const redactedSecret = "******"

// Manager 代表配置管理器，负责配置文件的加载、验证和管理
type Manager struct {
	config     *Config             // 当前加载的配置实例
	configPath string              // 配置文件的绝对路径
	validator  *validator.Validate // 配置验证器
}

// NewManager 创建新的配置管理器实例
func NewManager() (*Manager, error) {
	var err error
	// 注册自定义验证器
	err = validate.RegisterValidation("cidr_or_ip", validateCIDROrIP)
	if err != nil {
		return nil, err
	}
	err = validate.RegisterValidation("strategy", validateStrategy)
	if err != nil {
		return nil, err
	}
	// Redis 配置为空指针时也需要执行，以便检查 type=redis 却缺少配置的情况
	err = validate.RegisterValidation("store_conditional", validateStoreConditional, true)
	if err != nil {
		return nil, err
	}
	err = validate.RegisterValidation("auth_conditional", validateAuthConditional)
	if err != nil {
		return nil, err
	}
	err = validate.RegisterValidation("header_conditional", validateHeaderConditional)
	if err != nil {
		return nil, err
	}
	err = validate.RegisterValidation("http_url", validateHTTPURL)
	if err != nil {
		return nil, err
	}

	return &Manager{
		validator: validate,
	}, nil
}

// LoadEnvFile 加载 .env 文件到进程环境变量
// 文件不存在且 required 为 false 时静默跳过
func (m *Manager) LoadEnvFile(envPath string, required bool) error {
	if _, err := os.Stat(envPath); errors.Is(err, os.ErrNotExist) {
		if required {
			return fmt.Errorf("env file not found: %s", envPath)
		}
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromFile 从指定路径加载配置文件并进行验证
// configPath: 配置文件路径
func (m *Manager) LoadFromFile(configPath string) error {
	// 检查文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := m.Load(data); err != nil {
		return err
	}

	m.configPath, _ = filepath.Abs(configPath)
	return nil
}

// Load 解析、补全并验证内存中的 YAML 配置
// ${VAR} 占位符在解析前按环境变量展开
func (m *Manager) Load(data []byte) error {
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// 设置默认值
	m.SetDefaults(&config)

	// 验证配置结构
	if err := m.validator.Struct(&config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 验证引用关系
	if err := m.validateReferences(&config); err != nil {
		return fmt.Errorf("config reference validation failed: %w", err)
	}

	m.config = &config
	return nil
}

// validateReferences 验证配置中的引用关系是否正确
// config: 待验证的配置实例
func (m *Manager) validateReferences(config *Config) error {
	profileNames := make(map[string]bool, len(config.Profiles))
	for _, profile := range config.Profiles {
		if profileNames[profile.Name] {
			return fmt.Errorf("duplicate profile '%s'", profile.Name)
		}
		profileNames[profile.Name] = true

		// 自定义配置在补全默认值后仍需完整
		if profile.Strategy == "" || profile.WindowMs == 0 || profile.MaxRequests == 0 {
			return fmt.Errorf("profile '%s' must set strategy, windowMs and maxRequests or use a preset", profile.Name)
		}
	}

	checkNames := make(map[string]bool, len(config.HTTPServer.Checks))
	for _, check := range config.HTTPServer.Checks {
		if checkNames[check.Name] {
			return fmt.Errorf("duplicate check service '%s'", check.Name)
		}
		checkNames[check.Name] = true
	}

	// 验证路由引用的限流配置是否存在
	for _, route := range config.Routes {
		if !profileNames[route.Profile] {
			return fmt.Errorf("route '%s' references unknown profile '%s'", route.Prefix, route.Profile)
		}
	}

	if !profileNames[config.DefaultProfile] {
		return fmt.Errorf("default profile '%s' is not defined", config.DefaultProfile)
	}

	return nil
}

// GetConfig 返回当前加载的配置实例
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetConfigPath 返回当前配置文件的绝对路径
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Redacted 返回隐藏敏感字段后的配置副本，用于管理接口展示
func (m *Manager) Redacted() *Config {
	if m.config == nil {
		return nil
	}
	cp := *m.config
	if cp.Store.Redis != nil {
		redis := *cp.Store.Redis
		if redis.Password != "" {
			redis.Password = redactedSecret
		}
		cp.Store.Redis = &redis
	}
	if cp.Abuse.Webhook != nil && cp.Abuse.Webhook.Auth != nil {
		webhook := *cp.Abuse.Webhook
		auth := *webhook.Auth
		if auth.Token != "" {
			auth.Token = redactedSecret
		}
		if auth.Password != "" {
			auth.Password = redactedSecret
		}
		webhook.Auth = &auth
		cp.Abuse.Webhook = &webhook
	}
	return &cp
}

// SetDefaults 为配置设置默认值，确保所有必需字段都有合理的默认值
// config: 待设置默认值的配置实例
func (m *Manager) SetDefaults(config *Config) {
	m.setCheckDefaults(config)
	m.setAdminDefaults(config)
	m.setStoreDefaults(config)
	m.setAbuseDefaults(config)
	m.setProfileDefaults(config)
}

// setTimeoutDefaults 补全超时配置
func setTimeoutDefaults(timeout **TimeoutConfig) {
	if *timeout == nil {
		*timeout = &TimeoutConfig{
			Idle:  constants.DefaultIdleTimeout,
			Read:  constants.DefaultReadTimeout,
			Write: constants.DefaultWriteTimeout,
		}
		return
	}
	t := *timeout
	if t.Idle == 0 {
		t.Idle = constants.DefaultIdleTimeout
	}
	if t.Read == 0 {
		t.Read = constants.DefaultReadTimeout
	}
	if t.Write == 0 {
		t.Write = constants.DefaultWriteTimeout
	}
}

// setCheckDefaults 设置决策服务的默认值
func (m *Manager) setCheckDefaults(config *Config) {
	if len(config.HTTPServer.Checks) == 0 {
		config.HTTPServer.Checks = []CheckConfig{{Name: "default", Port: constants.DefaultCheckPort}}
	}
	for i := range config.HTTPServer.Checks {
		check := &config.HTTPServer.Checks[i]
		if check.Address == "" {
			check.Address = constants.DefaultAddress
		}
		setTimeoutDefaults(&check.Timeout)
	}
}

// setAdminDefaults 设置管理服务的默认值
func (m *Manager) setAdminDefaults(config *Config) {
	admin := &config.HTTPServer.Admin
	if admin.Port == 0 {
		admin.Port = constants.DefaultAdminPort
	}
	if admin.Address == "" {
		admin.Address = constants.DefaultAddress
	}
	setTimeoutDefaults(&admin.Timeout)
	if admin.RateLimit == nil {
		admin.RateLimit = &RateLimitConfig{
			PerSecond: constants.DefaultAdminPerSecond,
			Burst:     constants.DefaultAdminBurst,
		}
	} else {
		if admin.RateLimit.PerSecond == 0 {
			admin.RateLimit.PerSecond = constants.DefaultAdminPerSecond
		}
		if admin.RateLimit.Burst == 0 {
			admin.RateLimit.Burst = constants.DefaultAdminBurst
		}
	}
}

// setStoreDefaults 设置计数存储的默认值
func (m *Manager) setStoreDefaults(config *Config) {
	store := &config.Store
	if store.Type == "" {
		store.Type = constants.StoreTypeMemory
	}
	if store.Timeout == 0 {
		store.Timeout = constants.DefaultStoreTimeout
	}
	if store.MaxRetries == 0 {
		store.MaxRetries = constants.DefaultStoreMaxRetries
	}
	if store.Type == constants.StoreTypeMemory {
		if store.Memory == nil {
			store.Memory = &MemoryStoreConfig{}
		}
		if store.Memory.CleanupInterval == 0 {
			store.Memory.CleanupInterval = constants.DefaultCleanupInterval
		}
	}
	if store.Redis != nil {
		if store.Redis.PoolSize == 0 {
			store.Redis.PoolSize = constants.DefaultRedisPoolSize
		}
		if store.Redis.DialTimeout == 0 {
			store.Redis.DialTimeout = constants.DefaultRedisDialTimeout
		}
	}
	// 熔断器仅在显式配置时启用
	if store.Breaker != nil {
		if store.Breaker.Threshold == 0 {
			store.Breaker.Threshold = constants.DefaultBreakerThreshold
		}
		if store.Breaker.Cooldown == 0 {
			store.Breaker.Cooldown = constants.DefaultBreakerCooldown
		}
		if store.Breaker.MaxRequests == 0 {
			store.Breaker.MaxRequests = constants.DefaultBreakerMaxRequests
		}
		if store.Breaker.Interval == 0 {
			store.Breaker.Interval = constants.DefaultBreakerInterval
		}
	}
}

// setAbuseDefaults 设置违规升级的默认值
func (m *Manager) setAbuseDefaults(config *Config) {
	if config.Abuse.Threshold == 0 {
		config.Abuse.Threshold = constants.DefaultAbuseThreshold
	}
	if config.Abuse.Window == 0 {
		config.Abuse.Window = constants.DefaultAbuseWindow
	}

	webhook := config.Abuse.Webhook
	if webhook == nil {
		return
	}
	if webhook.Timeout == 0 {
		webhook.Timeout = constants.DefaultWebhookTimeout
	}
	if webhook.QueueSize == 0 {
		webhook.QueueSize = constants.DefaultWebhookQueueSize
	}
	if webhook.Retry == nil {
		webhook.Retry = &RetryConfig{Attempts: 1}
	}
	if webhook.Retry.Initial == 0 {
		webhook.Retry.Initial = constants.DefaultWebhookRetryInitial
	}
}

// setProfileDefaults 用内置配置补全限流配置，并追加未被覆盖的内置配置
func (m *Manager) setProfileDefaults(config *Config) {
	defined := make(map[string]bool, len(config.Profiles))
	for i := range config.Profiles {
		profile := &config.Profiles[i]
		defined[profile.Name] = true

		base := profile.Preset
		if base == "" {
			base = profile.Name
		}
		if preset, ok := Preset(base); ok {
			if profile.Strategy == "" {
				profile.Strategy = preset.Strategy
			}
			if profile.WindowMs == 0 {
				profile.WindowMs = preset.WindowMs
			}
			if profile.MaxRequests == 0 {
				profile.MaxRequests = preset.MaxRequests
			}
			if profile.Message == "" {
				profile.Message = preset.Message
			}
		}
		if profile.IncludeHeaders == nil {
			enabled := true
			profile.IncludeHeaders = &enabled
		}
	}

	for _, name := range PresetNames() {
		if defined[name] {
			continue
		}
		preset, _ := Preset(name)
		enabled := true
		preset.IncludeHeaders = &enabled
		config.Profiles = append(config.Profiles, preset)
	}

	if config.DefaultProfile == "" {
		config.DefaultProfile = constants.DefaultProfile
	}
}

// validateCIDROrIP 验证字段为合法的 IP 地址或 CIDR 网段
func validateCIDROrIP(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if _, err := netip.ParseAddr(value); err == nil {
		return true
	}
	_, err := netip.ParsePrefix(value)
	return err == nil
}

// validateStrategy 验证限流算法名称
func validateStrategy(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case constants.StrategyFixedWindow, constants.StrategySlidingWindow, constants.StrategyTokenBucket:
		return true
	default:
		return false
	}
}

// validateStoreConditional 验证 type=redis 时必须提供 Redis 配置
func validateStoreConditional(fl validator.FieldLevel) bool {
	store, ok := fl.Parent().Interface().(StoreConfig)
	if !ok {
		return true // 如果不是StoreConfig类型，跳过验证
	}

	switch store.Type {
	case constants.StoreTypeRedis:
		return store.Redis != nil && len(store.Redis.Addresses) > 0
	default:
		return true
	}
}

// validateAuthConditional 验证认证配置的条件必填字段
func validateAuthConditional(fl validator.FieldLevel) bool {
	auth, ok := fl.Parent().Interface().(AuthConfig)
	if !ok {
		return true
	}

	switch auth.Type {
	case constants.AuthTypeBearer:
		return auth.Token != ""
	case constants.AuthTypeBasic:
		return auth.Username != "" && auth.Password != ""
	case constants.AuthTypeNone, "":
		return true
	default:
		return false
	}
}

// validateHeaderConditional 验证 insert 与 replace 操作必须提供头部值
func validateHeaderConditional(fl validator.FieldLevel) bool {
	header, ok := fl.Parent().Interface().(HeaderOpConfig)
	if !ok {
		return true
	}

	switch header.Op {
	case constants.HeaderOpInsert, constants.HeaderOpReplace:
		return header.Value != ""
	case constants.HeaderOpRemove:
		return true
	default:
		return false
	}
}

// validateHTTPURL 验证URL必须使用HTTP或HTTPS协议且包含主机
func validateHTTPURL(fl validator.FieldLevel) bool {
	parsed, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}
