package constants

const (
	// HTTP headers - HTTP头部

	// HeaderUserAgent User-Agent头部名称
	HeaderUserAgent = "User-Agent"

	// HeaderXForwardedFor X-Forwarded-For头部名称
	HeaderXForwardedFor = "X-Forwarded-For"

	// HeaderXRealIP X-Real-IP头部名称
	HeaderXRealIP = "X-Real-IP"

	// HeaderXOriginalURI X-Original-URI头部名称（nginx auth_request）
	HeaderXOriginalURI = "X-Original-URI"

	// HeaderXOriginalMethod X-Original-Method头部名称（nginx auth_request）
	HeaderXOriginalMethod = "X-Original-Method"

	// HeaderRateLimitLimit X-RateLimit-Limit头部名称
	HeaderRateLimitLimit = "X-RateLimit-Limit"

	// HeaderRateLimitRemaining X-RateLimit-Remaining头部名称
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"

	// HeaderRateLimitReset X-RateLimit-Reset头部名称
	HeaderRateLimitReset = "X-RateLimit-Reset"

	// HeaderRetryAfter Retry-After头部名称
	HeaderRetryAfter = "Retry-After"
)

const (
	// Store types - 存储类型

	// StoreTypeMemory 内存存储
	StoreTypeMemory = "memory"

	// StoreTypeRedis Redis存储
	StoreTypeRedis = "redis"
)

const (
	// Strategy names - 限流算法名称

	// StrategyFixedWindow 固定窗口计数
	StrategyFixedWindow = "fixed_window"

	// StrategySlidingWindow 滑动窗口日志
	StrategySlidingWindow = "sliding_window"

	// StrategyTokenBucket 令牌桶
	StrategyTokenBucket = "token_bucket"
)

const (
	// Decision outcomes - 决策结果

	// OutcomeAllowed 允许通过
	OutcomeAllowed = "allowed"

	// OutcomeLimited 被限流
	OutcomeLimited = "limited"

	// OutcomeSkipped 跳过限流
	OutcomeSkipped = "skipped"

	// OutcomeFailOpen 存储故障放行
	OutcomeFailOpen = "fail_open"
)

const (
	// Notification outcomes - 升级通知结果

	// NotificationDelivered 通知已送达
	NotificationDelivered = "delivered"

	// NotificationFailed 重试耗尽后仍失败
	NotificationFailed = "failed"

	// NotificationDropped 队列已满被丢弃
	NotificationDropped = "dropped"
)

const (
	// Outbound request constants - 出站请求常量

	// HeaderAuthorization Authorization头部名称
	HeaderAuthorization = "Authorization"

	// HeaderContentType Content-Type头部名称
	HeaderContentType = "Content-Type"

	// ContentTypeJSON JSON内容类型
	ContentTypeJSON = "application/json"

	// BearerPrefix Bearer认证前缀
	BearerPrefix = "Bearer "

	// BasicPrefix Basic认证前缀
	BasicPrefix = "Basic "

	// HeaderEventID 升级通知携带的事件ID头部名称
	HeaderEventID = "X-RateWarden-Event"

	// UserAgent 出站请求默认User-Agent
	UserAgent = "RateWarden-Notifier/1.0"

	// AuthTypeNone 无认证
	AuthTypeNone = "none"

	// AuthTypeBearer Bearer Token认证
	AuthTypeBearer = "bearer"

	// AuthTypeBasic Basic认证
	AuthTypeBasic = "basic"

	// HeaderOpInsert 头部不存在时插入
	HeaderOpInsert = "insert"

	// HeaderOpReplace 头部存在时替换，不存在时插入
	HeaderOpReplace = "replace"

	// HeaderOpRemove 删除头部
	HeaderOpRemove = "remove"
)
