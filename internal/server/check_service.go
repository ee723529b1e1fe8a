package server

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/constants"
	"github.com/shengyanli1982/ratewarden/internal/ratelimit"
	"github.com/shengyanli1982/ratewarden/internal/response"
)

// checkRequest 代表 /v1/check 的请求体
type checkRequest struct {
	Profile       string `json:"profile"`
	Path          string `json:"path" binding:"required,startswith=/"`
	Method        string `json:"method"`
	ClientAddress string `json:"clientAddress" binding:"required"`
	Signature     string `json:"signature"`
}

// CheckService 代表限流决策服务，处理宿主应用的判定请求
type CheckService struct {
	mu      sync.RWMutex
	config  *config.CheckConfig
	logger  *logr.Logger
	runtime *Runtime
	running bool
}

// NewCheckServices 创建新的决策服务实例
func NewCheckServices() *CheckService {
	logger := logr.Discard() // 临时使用，后续会被重新设置
	return &CheckService{logger: &logger}
}

// Initialize 初始化决策服务
func (s *CheckService) Initialize(cfg *config.CheckConfig, runtime *Runtime, logger *logr.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = cfg
	s.runtime = runtime
	s.logger = logger
}

// RegisterGroup 实现orbit.Service接口，注册到orbit引擎
func (s *CheckService) RegisterGroup(g *gin.RouterGroup) {
	g.Use(s.ginMetricsMiddleware())

	v1 := g.Group("/v1")
	v1.POST("/check", s.handleCheck)
	v1.GET("/auth", s.handleAuth)
}

// ginMetricsMiddleware 记录每个请求的响应状态与耗时
func (s *CheckService) ginMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.runtime.Metrics.RecordResponse(s.config.Name, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// handleCheck 处理 JSON 形式的判定请求
func (s *CheckService) handleCheck(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(response.CodeBadRequest, ErrInvalidCheckRequest.Error()).
			WithDetail(map[string]interface{}{"reason": err.Error()}).
			JSON(c, http.StatusBadRequest)
		return
	}

	decision, err := s.runtime.Limits.CheckProfile(c.Request.Context(), req.Profile, &ratelimit.Request{
		Path:          req.Path,
		Method:        req.Method,
		ClientAddress: req.ClientAddress,
		Signature:     req.Signature,
	})
	if err != nil {
		s.sendCheckError(c, err, req.Profile)
		return
	}

	if decision.Limited {
		decision.WriteHeaders(c.Writer.Header())
		c.JSON(http.StatusTooManyRequests, decision.Response)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// handleAuth 处理 nginx auth_request 形式的判定请求
// 原始路径取自 X-Original-URI，客户端地址取自转发头部。
func (s *CheckService) handleAuth(c *gin.Context) {
	req := ratelimit.RequestFromHTTP(c.Request)
	if uri := c.GetHeader(constants.HeaderXOriginalURI); uri != "" {
		if parsed, err := url.ParseRequestURI(uri); err == nil {
			req.Path = parsed.Path
		}
	}
	if method := c.GetHeader(constants.HeaderXOriginalMethod); method != "" {
		req.Method = method
	}

	decision, err := s.runtime.Limits.CheckProfile(c.Request.Context(), c.Query("profile"), req)
	if err != nil {
		s.sendCheckError(c, err, c.Query("profile"))
		return
	}

	if decision.Limited {
		ratelimit.WriteRejection(c, &decision)
		return
	}
	response.NoContent(c)
}

// sendCheckError 发送判定失败响应
func (s *CheckService) sendCheckError(c *gin.Context, err error, profile string) {
	if errors.Is(err, ratelimit.ErrUnknownProfile) {
		response.Error(response.CodeUnknownProfile, constants.ErrMsgUnknownProfile).
			WithDetail(map[string]interface{}{"profile": profile}).
			JSON(c, http.StatusNotFound)
		return
	}

	s.logger.Error(err, "Check request failed", "server", s.config.Name, "path", c.Request.URL.Path)
	response.InternalServerError(c, err.Error())
}

// Run 启动决策服务
func (s *CheckService) Run() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	s.logger.Info("Check service started", "name", s.config.Name)
}

// Stop 停止决策服务
func (s *CheckService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.logger.Info("Check service stopped", "name", s.config.Name)
}

// IsRunning 检查服务是否运行中
func (s *CheckService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
