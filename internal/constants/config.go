package constants

const (
	// Command line flags - 命令行标志

	// FlagConfig 配置文件路径参数名
	FlagConfig = "config"

	// FlagEnv 环境变量文件路径参数名
	FlagEnv = "env"

	// FlagJSON JSON日志格式参数名
	FlagJSON = "json"

	// FlagRelease 发布模式参数名
	FlagRelease = "release"

	// Flag short aliases - 短参数别名

	// FlagConfigShort 配置文件路径短参数
	FlagConfigShort = "c"

	// FlagEnvShort 环境变量文件路径短参数
	FlagEnvShort = "e"

	// FlagJSONShort JSON日志格式短参数
	FlagJSONShort = "j"

	// FlagReleaseShort 发布模式短参数
	FlagReleaseShort = "r"
)

const (
	// Limits and constraints - 限制和约束

	// MinTimeout 最小超时时间（毫秒）
	MinTimeout = 1000

	// MaxTimeout 最大超时时间（毫秒，24小时）
	MaxTimeout = 86400000

	// MinPort 最小端口号
	MinPort = 1

	// MaxPort 最大端口号
	MaxPort = 65535

	// MinWindowMs 最小限流窗口（毫秒）
	MinWindowMs = 100

	// MaxWindowMs 最大限流窗口（毫秒，7天）
	MaxWindowMs = 604800000

	// MaxRequestsLimit 单个窗口允许配置的最大请求数
	MaxRequestsLimit = 1000000
)

const (
	// Default configuration values - 配置默认值

	// DefaultAddress 默认绑定地址
	DefaultAddress = "0.0.0.0"

	// DefaultCheckPort 默认决策服务端口
	DefaultCheckPort = 8080

	// DefaultAdminPort 默认管理端口
	DefaultAdminPort = 9000

	// DefaultIdleTimeout 默认空闲超时（毫秒）
	DefaultIdleTimeout = 60000

	// DefaultReadTimeout 默认读取超时（毫秒）
	DefaultReadTimeout = 30000

	// DefaultWriteTimeout 默认写入超时（毫秒）
	DefaultWriteTimeout = 30000

	// DefaultStoreTimeout 默认存储操作超时（毫秒）
	DefaultStoreTimeout = 200

	// DefaultStoreMaxRetries 默认乐观锁冲突重试次数
	DefaultStoreMaxRetries = 8

	// DefaultCleanupInterval 默认内存存储过期清理间隔（毫秒）
	DefaultCleanupInterval = 60000

	// DefaultRedisPoolSize 默认 Redis 连接池大小
	DefaultRedisPoolSize = 20

	// DefaultRedisDialTimeout 默认 Redis 建连超时（毫秒）
	DefaultRedisDialTimeout = 5000

	// DefaultAdminPerSecond 管理接口默认每秒请求数
	DefaultAdminPerSecond = 20

	// DefaultAdminBurst 管理接口默认突发请求数
	DefaultAdminBurst = 40

	// DefaultAbuseThreshold 默认违规升级阈值
	DefaultAbuseThreshold = 10

	// DefaultAbuseWindow 默认违规计数保留时间（毫秒，24小时）
	DefaultAbuseWindow = 86400000

	// DefaultWebhookTimeout 升级通知单次请求超时（毫秒）
	DefaultWebhookTimeout = 3000

	// DefaultWebhookQueueSize 升级通知队列长度
	DefaultWebhookQueueSize = 256

	// DefaultWebhookRetryInitial 升级通知首次重试间隔（毫秒）
	DefaultWebhookRetryInitial = 500

	// DefaultProfile 默认限流配置名称
	DefaultProfile = "general"
)

const (
	// Circuit breaker defaults - 熔断器默认值

	// DefaultBreakerName 默认熔断器名称
	DefaultBreakerName = "store"

	// DefaultBreakerThreshold 默认熔断器失败率阈值
	DefaultBreakerThreshold = 0.5

	// DefaultBreakerCooldown 默认熔断器冷却时间（毫秒）
	DefaultBreakerCooldown = 30000

	// DefaultBreakerMaxRequests 默认熔断器半开状态最大请求数
	DefaultBreakerMaxRequests = 3

	// DefaultBreakerInterval 默认熔断器统计周期（毫秒）
	DefaultBreakerInterval = 10000

	// DefaultBreakerMinRequests 触发熔断判定的最少请求数
	DefaultBreakerMinRequests = 10
)
