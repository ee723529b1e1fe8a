package config

// Config 代表主配置结构体，包含HTTP服务器、计数存储、违规升级、限流配置和路由映射
type Config struct {
	HTTPServer     HTTPServerConfig `yaml:"httpServer" validate:"required"`
	Store          StoreConfig      `yaml:"store"`
	Abuse          AbuseConfig      `yaml:"abuse"`
	Profiles       []ProfileConfig  `yaml:"profiles" validate:"dive"`
	Routes         []RouteConfig    `yaml:"routes" validate:"dive"`
	DefaultProfile string           `yaml:"defaultProfile"`
}

// HTTPServerConfig 代表HTTP服务器配置，包含决策服务和管理服务设置
type HTTPServerConfig struct {
	Checks []CheckConfig `yaml:"checks" validate:"required,dive"`
	Admin  AdminConfig   `yaml:"admin"`
}

// CheckConfig 代表决策服务配置，定义单个限流决策实例的监听参数
type CheckConfig struct {
	Name    string         `yaml:"name" validate:"required"`
	Port    int            `yaml:"port" validate:"required,min=1,max=65535"`
	Address string         `yaml:"address"`
	Timeout *TimeoutConfig `yaml:"timeout,omitempty"`
}

// AdminConfig 代表管理服务配置，用于健康检查、监控指标和状态查询
type AdminConfig struct {
	Port      int              `yaml:"port" validate:"min=1,max=65535"`
	Address   string           `yaml:"address"`
	Timeout   *TimeoutConfig   `yaml:"timeout,omitempty"`
	RateLimit *RateLimitConfig `yaml:"ratelimit,omitempty"`
}

// RateLimitConfig 代表进程内限流配置，控制管理接口的请求频率和突发流量
type RateLimitConfig struct {
	PerSecond int `yaml:"perSecond" validate:"omitempty,min=1,max=65535"`
	Burst     int `yaml:"burst" validate:"omitempty,min=1,max=65535"`
}

// TimeoutConfig 代表超时配置，定义各种操作的超时时间（单位：毫秒）
type TimeoutConfig struct {
	Idle  int `yaml:"idle,omitempty" validate:"omitempty,min=1000,max=86400000"`
	Read  int `yaml:"read,omitempty" validate:"omitempty,min=1000,max=86400000"`
	Write int `yaml:"write,omitempty" validate:"omitempty,min=1000,max=86400000"`
}

// StoreConfig 代表计数存储配置
type StoreConfig struct {
	Type       string             `yaml:"type" validate:"omitempty,oneof=memory redis"`
	Timeout    int                `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=60000"` // 单位：毫秒
	MaxRetries int                `yaml:"maxRetries,omitempty" validate:"omitempty,min=1,max=100"`
	Memory     *MemoryStoreConfig `yaml:"memory,omitempty"`
	Redis      *RedisStoreConfig  `yaml:"redis,omitempty" validate:"store_conditional"`
	Breaker    *BreakerConfig     `yaml:"breaker,omitempty"`
}

// MemoryStoreConfig 代表内存存储配置，仅适用于单实例部署
type MemoryStoreConfig struct {
	CleanupInterval int `yaml:"cleanupInterval,omitempty" validate:"omitempty,min=1000,max=86400000"` // 单位：毫秒
}

// RedisStoreConfig 代表Redis存储配置，多个地址时按一致性哈希分片
type RedisStoreConfig struct {
	Addresses   []string `yaml:"addresses" validate:"required,min=1,dive,hostname_port"`
	Password    string   `yaml:"password,omitempty"`
	DB          int      `yaml:"db,omitempty" validate:"min=0,max=15"`
	PoolSize    int      `yaml:"poolSize,omitempty" validate:"omitempty,min=1,max=1000"`
	DialTimeout int      `yaml:"dialTimeout,omitempty" validate:"omitempty,min=100,max=60000"` // 单位：毫秒
}

// BreakerConfig 代表熔断器配置，用于在存储故障时快速放行
type BreakerConfig struct {
	Threshold   float64 `yaml:"threshold,omitempty" validate:"omitempty,min=0.01,max=1.0"`
	Cooldown    int     `yaml:"cooldown,omitempty" validate:"omitempty,min=1000,max=3600000"` // 单位：毫秒
	MaxRequests uint32  `yaml:"maxRequests,omitempty" validate:"omitempty,min=1,max=100"`
	Interval    int     `yaml:"interval,omitempty" validate:"omitempty,min=1000,max=3600000"` // 单位：毫秒
}

// AbuseConfig 代表违规升级配置
type AbuseConfig struct {
	Disabled  bool           `yaml:"disabled,omitempty"`
	Threshold int            `yaml:"threshold,omitempty" validate:"omitempty,min=1,max=1000000"`
	Window    int            `yaml:"window,omitempty" validate:"omitempty,min=1000,max=604800000"` // 单位：毫秒
	Webhook   *WebhookConfig `yaml:"webhook,omitempty"`
}

// WebhookConfig 代表升级事件的外部通知配置，事件以 JSON 形式 POST 到指定地址
type WebhookConfig struct {
	URL       string           `yaml:"url" validate:"required,http_url"`
	Timeout   int              `yaml:"timeout,omitempty" validate:"omitempty,min=100,max=60000"` // 单位：毫秒
	QueueSize int              `yaml:"queueSize,omitempty" validate:"omitempty,min=1,max=65535"`
	Retry     *RetryConfig     `yaml:"retry,omitempty"`
	Proxy     *ProxyConfig     `yaml:"proxy,omitempty"`
	Auth      *AuthConfig      `yaml:"auth,omitempty"`
	Headers   []HeaderOpConfig `yaml:"headers,omitempty" validate:"dive"`
}

// RetryConfig 代表重试配置，间隔按指数退避增长
type RetryConfig struct {
	Attempts int `yaml:"attempts" validate:"min=1,max=10"`
	Initial  int `yaml:"initial,omitempty" validate:"omitempty,min=10,max=60000"` // 单位：毫秒
}

// ProxyConfig 代表出站代理配置
type ProxyConfig struct {
	URL string `yaml:"url" validate:"required,url"`
}

// AuthConfig 代表出站请求认证配置，支持Bearer Token和Basic Auth
type AuthConfig struct {
	Type     string `yaml:"type,omitempty" validate:"oneof='' none bearer basic"`
	Token    string `yaml:"token,omitempty" validate:"auth_conditional"`
	Username string `yaml:"username,omitempty" validate:"auth_conditional"`
	Password string `yaml:"password,omitempty" validate:"auth_conditional"`
}

// HeaderOpConfig 代表出站请求头部操作
type HeaderOpConfig struct {
	Op    string `yaml:"op" validate:"required,oneof=insert replace remove"`
	Key   string `yaml:"key" validate:"required"`
	Value string `yaml:"value,omitempty" validate:"header_conditional"`
}

// ProfileConfig 代表一类端点的限流配置
type ProfileConfig struct {
	Name           string      `yaml:"name" validate:"required"`
	Preset         string      `yaml:"preset,omitempty" validate:"omitempty,oneof=auth payment upload admin webhook general"`
	Strategy       string      `yaml:"strategy,omitempty" validate:"omitempty,strategy"`
	WindowMs       int         `yaml:"windowMs,omitempty" validate:"omitempty,min=100,max=604800000"`
	MaxRequests    int         `yaml:"maxRequests,omitempty" validate:"omitempty,min=1,max=1000000"`
	Message        string      `yaml:"message,omitempty"`
	IncludeHeaders *bool       `yaml:"includeHeaders,omitempty"`
	Skip           *SkipConfig `yaml:"skip,omitempty"`
}

// SkipConfig 代表免限流规则
type SkipConfig struct {
	Addresses []string `yaml:"addresses,omitempty" validate:"dive,cidr_or_ip"`
	Paths     []string `yaml:"paths,omitempty" validate:"dive,startswith=/"`
}

// RouteConfig 代表路径前缀到限流配置的映射
type RouteConfig struct {
	Prefix  string `yaml:"prefix" validate:"required,startswith=/"`
	Profile string `yaml:"profile" validate:"required"`
}
