package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/shengyanli1982/gs"
	"github.com/shengyanli1982/law"
	"github.com/shengyanli1982/orbit/utils/log"
	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/server"
)

// Version 通过 ldflags 在编译时设置
var Version = "0.1.0"

const ASCII_LOGO = `
██████╗  █████╗ ████████╗███████╗
██╔══██╗██╔══██╗╚══██╔══╝██╔════╝
██████╔╝███████║   ██║   █████╗
██╔══██╗██╔══██║   ██║   ██╔══╝
██║  ██║██║  ██║   ██║   ███████╗
╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚══════╝

██╗    ██╗ █████╗ ██████╗ ██████╗ ███████╗███╗   ██╗
██║    ██║██╔══██╗██╔══██╗██╔══██╗██╔════╝████╗  ██║
██║ █╗ ██║███████║██████╔╝██║  ██║█████╗  ██╔██╗ ██║
██║███╗██║██╔══██║██╔══██╗██║  ██║██╔══╝  ██║╚██╗██║
╚███╔███╔╝██║  ██║██║  ██║██████╔╝███████╗██║ ╚████║
 ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚══════╝╚═╝  ╚═══╝
	`

// ServiceContext 服务上下文结构体，用于管理服务所需的所有组件
type ServiceContext struct {
	logger      *logr.Logger      // 日志记录器
	asyncWriter *law.WriteAsyncer // 异步写入器
	configMgr   *config.Manager   // 配置管理器
	server      *server.Server    // 限流决策服务器
}

// isReleaseMode 判断是否为发布模式
func isReleaseMode(releaseMode bool) bool {
	return releaseMode || gin.Mode() == gin.ReleaseMode
}

// initLogger 初始化日志系统
// releaseMode: 是否为发布模式
// jsonOutput: 是否输出 JSON 格式日志
func initLogger(releaseMode, jsonOutput bool) (*logr.Logger, *law.WriteAsyncer) {
	var (
		logger      *logr.Logger
		asyncWriter *law.WriteAsyncer
	)

	// 在发布模式下使用异步写入器
	if isReleaseMode(releaseMode) {
		asyncWriter = law.NewWriteAsyncer(os.Stdout, law.DefaultConfig())
		if jsonOutput {
			logger = log.NewZapLogger(zapcore.AddSync(asyncWriter)).GetLogrLogger()
		} else {
			logger = log.NewLogrLogger(asyncWriter).GetLogrLogger()
		}
		return logger, asyncWriter
	}

	// 开发模式直接使用标准输出
	logger = log.NewLogrLogger(os.Stdout).GetLogrLogger()
	return logger, nil
}

// initConfig 加载 .env 文件与配置文件
// envRequired 为 true 时 .env 文件缺失视为错误
func initConfig(configPath, envPath string, envRequired bool) (*config.Manager, error) {
	configManager, err := config.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create configuration manager: %w", err)
	}
	if err := configManager.LoadEnvFile(envPath, envRequired); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	if err := configManager.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return configManager, nil
}

// setupGracefulShutdown 设置优雅关闭机制
func setupGracefulShutdown(ctx *ServiceContext, releaseMode bool) {
	serverSignal := gs.NewTerminateSignal()
	serverSignal.RegisterCancelHandles(ctx.server.Stop)

	// 日志写入器最后关闭，保证停机日志完整输出
	writerSignal := gs.NewTerminateSignal()
	if isReleaseMode(releaseMode) && ctx.asyncWriter != nil {
		writerSignal.RegisterCancelHandles(ctx.asyncWriter.Stop)
	}

	gs.WaitForSync(serverSignal, writerSignal)
}

func main() {
	var (
		configPath  string
		envPath     string
		releaseMode bool
		jsonOutput  bool
	)

	cmd := cobra.Command{
		Use:     "ratewarden",
		Version: Version,
		Short:   "RateWarden is a rate limiting and abuse escalation service",
		Long: `RateWarden answers one question for the services in front of it:
should this request be allowed right now?

Core Features:
- Fixed window, sliding window and token bucket strategies
- Named profiles with built-in presets (auth, payment, upload, admin, webhook, general)
- Route prefix to profile mapping
- Abuse escalation for keys that keep getting rejected
- Fail open when the counter store is unavailable

Deployment:
- In-memory store for a single instance
- Redis store (sharded by consistent hashing) for shared limits
- JSON check API and nginx auth_request endpoint
- Prometheus metrics on the admin listener

Author: shengyanli1982
Repository: https://github.com/shengyanli1982/ratewarden`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := &ServiceContext{}

			ctx.logger, ctx.asyncWriter = initLogger(releaseMode, jsonOutput)

			var err error
			ctx.configMgr, err = initConfig(configPath, envPath, cmd.Flags().Changed("env"))
			if err != nil {
				ctx.logger.Error(err, "Failed to load service configuration")
				return err
			}

			ctx.logger.Info("Configuration loaded successfully", "path", ctx.configMgr.GetConfigPath())

			// 输出 ASCII 标志（只有在配置加载成功后才显示）
			fmt.Println(ASCII_LOGO)

			ctx.server, err = server.NewServer(!releaseMode, ctx.logger, ctx.configMgr)
			if err != nil {
				ctx.logger.Error(err, "Failed to create server")
				return err
			}

			ctx.server.Start()
			ctx.logger.Info("RateWarden started successfully")

			setupGracefulShutdown(ctx, releaseMode)

			ctx.logger.Info("RateWarden stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")
	cmd.Flags().StringVarP(&envPath, "env", "e", "./.env", "Path to .env file (optional unless set explicitly)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Enable JSON format logging output (only effective in release mode)")
	cmd.Flags().BoolVarP(&releaseMode, "release", "r", false, "Enable release mode for performance optimizations and async logging")

	if err := cmd.Execute(); err != nil {
		fmt.Printf("Failed to execute command: %v\n", err)
		os.Exit(-1)
	}
}
