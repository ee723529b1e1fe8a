package constants

const (
	// Error messages - 错误消息

	// ErrMsgServerAlreadyStarted 服务器已启动错误消息
	ErrMsgServerAlreadyStarted = "server already started"

	// ErrMsgServerNotStarted 服务器未启动错误消息
	ErrMsgServerNotStarted = "server not started"

	// ErrMsgServerNotRunning 服务器未运行错误消息
	ErrMsgServerNotRunning = "server is not running"

	// ErrMsgServiceAlreadyStarted 服务已启动错误消息
	ErrMsgServiceAlreadyStarted = "service already started"

	// ErrMsgServiceNotStarted 服务未启动错误消息
	ErrMsgServiceNotStarted = "service not started"

	// ErrMsgServiceNotRunning 服务未运行错误消息
	ErrMsgServiceNotRunning = "service is not running"

	// ErrMsgNilRequest 空请求错误消息
	ErrMsgNilRequest = "request cannot be nil"

	// ErrMsgUnknownProfile 未知限流配置错误消息
	ErrMsgUnknownProfile = "unknown rate limit profile"

	// ErrMsgInvalidCheckRequest 无效决策请求错误消息
	ErrMsgInvalidCheckRequest = "invalid check request"

	// ErrMsgStoreUnavailable 存储不可用错误消息
	ErrMsgStoreUnavailable = "counter store unavailable"

	// ErrMsgBreakerOpen 存储熔断器开启错误消息
	ErrMsgBreakerOpen = "counter store circuit breaker is open"

	// ErrMsgNotifierClosed 通知器已关闭错误消息
	ErrMsgNotifierClosed = "notifier is closed"

	// ErrMsgWebhookStatus 通知端点返回非成功状态错误消息
	ErrMsgWebhookStatus = "webhook returned non-success status"
)

const (
	// Error types for metrics - 指标错误类型

	// ErrorTypeStoreUpdate 存储更新错误类型
	ErrorTypeStoreUpdate = "update"

	// ErrorTypeStoreIncrement 存储计数错误类型
	ErrorTypeStoreIncrement = "increment"

	// ErrorTypeStoreGet 存储读取错误类型
	ErrorTypeStoreGet = "get"
)
