package server

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/shengyanli1982/orbit"
	"github.com/shengyanli1982/ratewarden/internal/config"
)

// CheckServer 代表决策服务器，负责接收宿主应用的限流判定请求
type CheckServer struct {
	name       string              // 服务器名称
	endpoint   string              // 服务器监听地址
	httpEngine *orbit.Engine       // HTTP 引擎实例
	closeOnce  sync.Once           // 确保只关闭一次
	config     *config.CheckConfig // 决策服务配置
	debug      bool                // 是否启用调试模式
	logger     *logr.Logger        // 日志记录器
	service    *CheckService       // 决策服务实例
}

// NewCheckServer 创建新的决策服务器实例
// debug: 是否启用调试模式
// logger: 日志记录器
// config: 决策服务配置
// runtime: 共享的限流运行时
func NewCheckServer(debug bool, logger *logr.Logger, config *config.CheckConfig, runtime *Runtime) *CheckServer {
	endpoint := fmt.Sprintf("%s:%d", config.Address, config.Port)

	// 创建 Orbit 引擎配置
	cfg := orbit.NewConfig().
		WithLogger(logger).
		WithAddress(config.Address).
		WithPort(uint16(config.Port)).
		WithHttpIdleTimeout(uint32(config.Timeout.Idle)).
		WithHttpReadHeaderTimeout(uint32(config.Timeout.Read)).
		WithHttpReadTimeout(uint32(config.Timeout.Read)).
		WithHttpWriteTimeout(uint32(config.Timeout.Write))
	if !debug {
		cfg.WithRelease()
	}

	// 创建 HTTP 引擎
	engine := orbit.NewEngine(cfg, orbit.EmptyOptions())

	svcs := NewCheckServices()
	svcs.Initialize(config, runtime, logger)

	// 注册服务到引擎
	engine.RegisterService(svcs)

	return &CheckServer{
		name:       config.Name,
		endpoint:   endpoint,
		httpEngine: engine,
		config:     config,
		debug:      debug,
		logger:     logger,
		service:    svcs,
	}
}

// Start 启动决策服务器
func (s *CheckServer) Start() {
	if s.httpEngine.IsRunning() {
		s.logger.Error(ErrServerAlreadyStarted, "Check server is already started", "name", s.name)
		return
	}

	s.logger.Info("Starting check server", "name", s.name, "endpoint", s.endpoint)

	s.service.Run()
	s.httpEngine.Run()

	// 重置关闭标志
	s.closeOnce = sync.Once{}

	s.logger.Info("Check server started successfully", "name", s.name)
}

// Stop 停止决策服务器
func (s *CheckServer) Stop() {
	if !s.httpEngine.IsRunning() {
		s.logger.Info("Check server is not running", "name", s.name)
		return
	}

	s.logger.Info("Stopping check server", "name", s.name)

	s.closeOnce.Do(func() {
		s.httpEngine.Stop()
		s.service.Stop()

		s.logger.Info("Check server stopped successfully", "name", s.name)
	})
}

// IsRunning 检查决策服务器是否正在运行
func (s *CheckServer) IsRunning() bool {
	return s.httpEngine.IsRunning()
}

// GetEndpoint 获取服务器监听地址
func (s *CheckServer) GetEndpoint() string {
	return s.endpoint
}

// GetConfig 获取决策服务配置
func (s *CheckServer) GetConfig() *config.CheckConfig {
	return s.config
}

// GetService 获取决策服务实例
func (s *CheckServer) GetService() *CheckService {
	return s.service
}
