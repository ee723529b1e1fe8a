package server

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/breaker"
	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/constants"
	"github.com/shengyanli1982/ratewarden/internal/metrics"
	"github.com/shengyanli1982/ratewarden/internal/ratelimit"
	"github.com/shengyanli1982/ratewarden/internal/response"
	"github.com/shengyanli1982/ratewarden/internal/store"
)

// 分页默认值
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AdminService 代表管理服务，提供指标、状态、配置与违规查询
type AdminService struct {
	mu              sync.RWMutex
	config          *config.AdminConfig
	configMgr       *config.Manager
	logger          *logr.Logger
	server          *Server // 引用主服务器以获取状态信息
	runtime         *Runtime
	metricsRegistry *metrics.MetricsRegistry // 指标注册器
	localLimiter    *ratelimit.LocalLimiter  // 管理接口自身的进程内限流
	startTime       time.Time
	running         bool
}

// NewAdminServices 创建新的管理服务实例
func NewAdminServices() *AdminService {
	return &AdminService{
		startTime: time.Now(),
	}
}

// Initialize 初始化管理服务
func (s *AdminService) Initialize(cfg *config.AdminConfig, configMgr *config.Manager, logger *logr.Logger, server *Server, rt *Runtime) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = cfg
	s.configMgr = configMgr
	s.logger = logger
	s.server = server
	s.runtime = rt

	// 初始化指标注册器
	s.metricsRegistry = metrics.GetGlobalRegistry()

	if cfg.RateLimit != nil {
		s.localLimiter = ratelimit.NewLocalLimiter(float64(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	}
}

// RegisterGroup 注册路由组和处理器
func (s *AdminService) RegisterGroup(g *gin.RouterGroup) {
	if s.localLimiter != nil {
		g.Use(ratelimit.LocalMiddleware(s.localLimiter, "admin", s.logger, s.runtime.Metrics))
	}

	g.GET("/metrics", s.handleMetrics)
	g.GET("/status", s.handleStatus)
	g.GET("/config", s.handleConfig)
	g.GET("/profiles", s.handleProfiles)
	g.GET("/violations", s.handleViolations)
}

// handleMetrics 输出共享注册器中的 Prometheus 指标
func (s *AdminService) handleMetrics(c *gin.Context) {
	if s.metricsRegistry == nil {
		response.NotFound(c, "metrics registry not available")
		return
	}
	s.metricsRegistry.Handler().ServeHTTP(c.Writer, c.Request)
}

// handleStatus 处理详细状态请求
func (s *AdminService) handleStatus(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statusInfo := gin.H{
		"service": gin.H{
			"name":       constants.AppName,
			"uptime":     time.Since(s.startTime).Seconds(),
			"start_time": s.startTime.Format(time.RFC3339),
		},
		"runtime": gin.H{
			"go_version":   runtime.Version(),
			"goroutines":   runtime.NumGoroutine(),
			"memory_alloc": getMemoryStats(),
		},
	}

	if s.runtime != nil {
		statusInfo["store"] = s.storeStatus(c.Request.Context())
	}

	if s.metricsRegistry != nil {
		statusInfo["metrics"] = gin.H{
			"collectors":      s.metricsRegistry.ListCollectors(),
			"collector_count": s.metricsRegistry.CollectorCount(),
		}
	}

	if s.server != nil {
		checkServers := make(map[string]interface{})
		s.server.lock.RLock()
		for name, checkServer := range s.server.checkServers {
			checkServers[name] = gin.H{
				"running":  checkServer.IsRunning(),
				"endpoint": checkServer.GetEndpoint(),
			}
		}
		s.server.lock.RUnlock()
		statusInfo["check_servers"] = checkServers

		statusInfo["admin_server"] = gin.H{
			"running":  s.server.adminServer.IsRunning(),
			"endpoint": s.server.adminServer.GetEndpoint(),
		}
	}

	response.OK(c, statusInfo)
}

// storeStatus 探测计数存储可用性
func (s *AdminService) storeStatus(ctx context.Context) gin.H {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	status := gin.H{"type": s.runtime.Store.Type(), "healthy": true}
	if err := s.runtime.Store.Ping(ctx); err != nil {
		status["healthy"] = false
		status["error"] = err.Error()
	}
	if bs, ok := s.runtime.Store.(*store.BreakerStore); ok {
		status["breaker"] = bs.Breaker().State().String()
	}
	return status
}

// handleConfig 返回隐藏敏感字段后的当前配置
func (s *AdminService) handleConfig(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.configMgr == nil || s.configMgr.GetConfig() == nil {
		response.NotFound(c, "configuration not available")
		return
	}

	response.OK(c, gin.H{
		"path":      s.configMgr.GetConfigPath(),
		"config":    s.configMgr.Redacted(),
		"timestamp": time.Now().Unix(),
	})
}

// handleProfiles 分页列出限流配置
func (s *AdminService) handleProfiles(c *gin.Context) {
	pageIndex, err := queryInt(c, "page", 1)
	if err != nil || pageIndex < 1 {
		response.BadRequest(c, "invalid page")
		return
	}
	pageSize, err := queryInt(c, "size", defaultPageSize)
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		response.BadRequest(c, "invalid size")
		return
	}

	profiles := s.runtime.Limits.Profiles()
	// 先比较页号再相乘，超大页号不会溢出
	start := len(profiles)
	if pageIndex-1 <= len(profiles)/pageSize {
		start = min((pageIndex-1)*pageSize, len(profiles))
	}
	end := start + pageSize
	if end > len(profiles) {
		end = len(profiles)
	}

	response.Paginated(profiles[start:end], int64(len(profiles)), int64(pageIndex), int64(pageSize), false).
		JSON(c, http.StatusOK)
}

// handleViolations 查询计数键的违规次数
// 可直接传 key，也可传 path、clientAddress、signature 由对应限流器生成键。
func (s *AdminService) handleViolations(c *gin.Context) {
	if s.runtime.Tracker == nil {
		response.NotFound(c, "abuse tracking is disabled")
		return
	}

	key := c.Query("key")
	if key == "" {
		path, addr := c.Query("path"), c.Query("clientAddress")
		if path == "" || addr == "" {
			response.BadRequest(c, "key or path and clientAddress are required")
			return
		}
		req := &ratelimit.Request{Path: path, ClientAddress: addr, Signature: c.Query("signature")}
		key = s.runtime.Limits.Resolve(path).Key(req)
	}

	count, err := s.runtime.Tracker.Violations(c.Request.Context(), key)
	if err != nil {
		s.logger.Error(err, "Failed to read violation counter", "key", key)
		if breaker.IsOpen(err) {
			response.Error(response.CodeBreakerOpen, ErrBreakerOpen.Error()).JSON(c, http.StatusServiceUnavailable)
			return
		}
		response.Error(response.CodeStoreUnavailable, ErrStoreUnavailable.Error()).JSON(c, http.StatusServiceUnavailable)
		return
	}

	response.OK(c, gin.H{
		"key":        key,
		"violations": count,
		"threshold":  s.runtime.Tracker.Threshold(),
		"escalated":  count > s.runtime.Tracker.Threshold(),
	})
}

// queryInt 读取整数查询参数，缺省时返回默认值
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// getMemoryStats 获取内存统计信息
func getMemoryStats() gin.H {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return gin.H{
		"alloc":        m.Alloc,
		"total_alloc":  m.TotalAlloc,
		"sys":          m.Sys,
		"heap_alloc":   m.HeapAlloc,
		"heap_objects": m.HeapObjects,
		"gc_cycles":    m.NumGC,
	}
}

// Run 启动管理服务
func (s *AdminService) Run() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	if s.logger != nil {
		s.logger.Info("Admin service started")
	}
}

// Stop 停止管理服务
func (s *AdminService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	if s.logger != nil {
		s.logger.Info("Admin service stopped")
	}
}

// IsRunning 检查服务是否运行中
func (s *AdminService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
