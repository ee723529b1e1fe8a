package server

import (
	"sync"

	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/config"
)

// Server 代表主服务器，管理决策服务器、管理服务器和共享的限流运行时
type Server struct {
	lock         sync.RWMutex            // 读写锁，保护并发访问
	checkServers map[string]*CheckServer // 决策服务器映射
	adminServer  *AdminServer            // 管理服务器实例
	runtime      *Runtime                // 限流运行时
	logger       *logr.Logger            // 日志记录器
}

// NewServer 创建新的服务器实例
// debug: 是否启用调试模式
// logger: 日志记录器
// configMgr: 已加载配置的配置管理器
func NewServer(debug bool, logger *logr.Logger, configMgr *config.Manager) (*Server, error) {
	cfg := configMgr.GetConfig()

	collector, err := sharedCollector(logger)
	if err != nil {
		return nil, err
	}

	runtime, err := NewRuntime(cfg, logger, collector)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		checkServers: make(map[string]*CheckServer),
		runtime:      runtime,
		logger:       logger,
	}

	// 创建决策服务器实例
	for i := range cfg.HTTPServer.Checks {
		check := &cfg.HTTPServer.Checks[i]
		srv.checkServers[check.Name] = NewCheckServer(debug, logger, check, runtime)
	}

	// 创建管理服务器实例
	srv.adminServer = NewAdminServer(debug, logger, &cfg.HTTPServer.Admin, configMgr, srv, runtime)

	logger.Info("Rate limit runtime ready",
		"store", runtime.Store.Type(),
		"profiles", len(runtime.Limits.Profiles()),
		"routes", len(runtime.Limits.Routes()),
		"defaultProfile", runtime.Limits.DefaultProfile())

	return srv, nil
}

// Start 启动所有服务器（决策服务器和管理服务器）
func (s *Server) Start() {
	s.logger.Info("Starting all servers")

	s.lock.RLock()
	for name, checkServer := range s.checkServers {
		s.logger.Info("Starting check server", "name", name)
		checkServer.Start()
	}
	s.lock.RUnlock()

	// 启动管理服务器
	s.adminServer.Start()
}

// Stop 停止所有服务器并释放计数存储
func (s *Server) Stop() {
	s.logger.Info("Stopping all servers")

	s.lock.RLock()
	for name, checkServer := range s.checkServers {
		s.logger.Info("Stopping check server", "name", name)
		checkServer.Stop()
	}
	s.lock.RUnlock()

	s.adminServer.Stop()

	if err := s.runtime.Close(); err != nil {
		s.logger.Error(err, "Failed to close counter store")
	}
}

// Runtime 获取共享的限流运行时
func (s *Server) Runtime() *Runtime {
	return s.runtime
}

// AddCheckServer 添加新的决策服务器
// checkServer: 要添加的决策服务器实例
func (s *Server) AddCheckServer(checkServer *CheckServer) {
	if checkServer == nil {
		s.logger.Error(nil, "Cannot add nil check server")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	name := checkServer.GetConfig().Name
	if _, exists := s.checkServers[name]; !exists {
		s.checkServers[name] = checkServer
		s.logger.Info("Check server added", "name", name)
	} else {
		s.logger.Info("Check server already exists", "name", name)
	}
}

// RemoveCheckServer 移除指定的决策服务器
// checkServer: 要移除的决策服务器实例
func (s *Server) RemoveCheckServer(checkServer *CheckServer) {
	if checkServer == nil {
		s.logger.Error(nil, "Cannot remove nil check server")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	name := checkServer.GetConfig().Name
	if _, exists := s.checkServers[name]; exists {
		checkServer.Stop()
		delete(s.checkServers, name)
		s.logger.Info("Check server removed", "name", name)
	} else {
		s.logger.Info("Check server not found", "name", name)
	}
}

// GetCheckServer 根据名称获取决策服务器实例
// name: 决策服务器名称
func (s *Server) GetCheckServer(name string) *CheckServer {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if checkServer, exists := s.checkServers[name]; exists {
		return checkServer
	}
	return nil
}
