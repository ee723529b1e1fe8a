package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// RejectionError 拒绝响应体中的固定错误名称
const RejectionError = "Too Many Requests"

// DefaultMessage 未配置提示信息时使用的默认提示
const DefaultMessage = "Too many requests, please try again later."

// Rejection 代表拒绝响应体
type Rejection struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
	ResetTime  int64  `json:"resetTime"` // 毫秒时间戳
}

// Decision 代表一次限流判定结果
type Decision struct {
	Limited           bool       `json:"limited"`
	RemainingRequests int        `json:"remainingRequests"`
	ResetTime         int64      `json:"resetTime,omitempty"` // 毫秒时间戳
	Profile           string     `json:"profile,omitempty"`
	Response          *Rejection `json:"response,omitempty"`

	// 以下字段不参与序列化
	Limit          int    `json:"-"`
	Key            string `json:"-"`
	Skipped        bool   `json:"-"`
	FailOpen       bool   `json:"-"`
	IncludeHeaders bool   `json:"-"`
}

// StatusCode 返回判定对应的 HTTP 状态码
func (d *Decision) StatusCode() int {
	if d.Limited {
		return http.StatusTooManyRequests
	}
	return http.StatusOK
}

// WriteHeaders 写入限流响应头，仅在拒绝且启用响应头时生效
// 通过时由调用方自行决定是否附加响应头。
func (d *Decision) WriteHeaders(h http.Header) {
	if !d.Limited || !d.IncludeHeaders || d.Response == nil {
		return
	}
	h.Set(constants.HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(constants.HeaderRateLimitRemaining, "0")
	h.Set(constants.HeaderRateLimitReset, strconv.FormatInt(ceilSeconds(d.Response.ResetTime), 10))
	h.Set(constants.HeaderRetryAfter, strconv.FormatInt(d.Response.RetryAfter, 10))
}

// WriteRejection 将拒绝结果写入 gin 响应并中止后续处理
func WriteRejection(c *gin.Context, d *Decision) {
	d.WriteHeaders(c.Writer.Header())
	c.AbortWithStatusJSON(http.StatusTooManyRequests, d.Response)
}

// newRejection 由算法结论构建拒绝响应体
func newRejection(message string, v Verdict) *Rejection {
	if message == "" {
		message = DefaultMessage
	}
	return &Rejection{
		Error:      RejectionError,
		Message:    message,
		RetryAfter: v.RetryAfter,
		ResetTime:  v.ResetTime,
	}
}
