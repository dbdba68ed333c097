package wire

import (
	"context"
	"time"

	"log/slog"

	appAssistant "github.com/automentor/backend/internal/application/assistant"
	"github.com/automentor/backend/internal/domain/events"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/discovery"
	applog "github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/infrastructure/vector"
	"github.com/automentor/backend/internal/infrastructure/watcher"
	"github.com/automentor/backend/internal/infrastructure/websocket"
	"github.com/automentor/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer

	cfg           *config.Config
	wsHub         *websocket.Hub
	service       *appAssistant.AssistantService
	scanScheduler *appAssistant.ScanScheduler
	qdrantManager *vector.QdrantManager
	advertiser    *discovery.Advertiser
	logger        *slog.Logger

	// 文件监听相关
	eventBus      events.EventBus
	sourceWatcher *watcher.SourceWatcher
}

// NewApp 创建应用实例
func NewApp(
	cfg *config.Config,
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	service *appAssistant.AssistantService,
	scanScheduler *appAssistant.ScanScheduler,
	qdrantManager *vector.QdrantManager,
	advertiser *discovery.Advertiser,
	eventBus events.EventBus,
	sourceWatcher *watcher.SourceWatcher,
) *App {
	return &App{
		HTTPServer:    httpServer,
		MCPServer:     mcpServer,
		cfg:           cfg,
		wsHub:         wsHub,
		service:       service,
		scanScheduler: scanScheduler,
		qdrantManager: qdrantManager,
		advertiser:    advertiser,
		eventBus:      eventBus,
		sourceWatcher: sourceWatcher,
		logger:        applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting AutoMentor daemon")

	// 准备向量库连接
	// 失败不阻塞启动：摄取或提问时会再次尝试，Qdrant 也可通过管理端点手动拉起
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := a.qdrantManager.EnsureReady(ctx); err != nil {
		a.logger.Warn("qdrant not ready at startup",
			"error", err,
		)
	}
	cancel()

	// 启动 WebSocket Hub 并注册事件订阅者
	a.wsHub.Start()
	a.setupEventSubscribers()

	// 启动文件监听（按配置）
	if a.cfg.Scan.Watch && a.sourceWatcher != nil {
		if err := a.sourceWatcher.Start(); err != nil {
			a.logger.Error("Failed to start source watcher",
				"error", err,
			)
		} else {
			a.logger.Info("Source watcher started")
		}
	}

	// 启动定时扫描调度器
	if err := a.scanScheduler.Start(); err != nil {
		a.logger.Error("Failed to start scan scheduler",
			"error", err,
		)
	}

	// mDNS 广播（按配置）
	if a.cfg.Server.DiscoveryEnabled {
		if err := a.advertiser.Start(); err != nil {
			a.logger.Error("Failed to start mDNS advertiser",
				"error", err,
			)
		}
	}

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	// 后台预热助手，索引为空时静默跳过，等首次摄取后再懒初始化
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.service.Initialize(ctx); err != nil {
			a.logger.Info("assistant not initialized at startup",
				"reason", err,
			)
		}
	}()

	a.logger.Info("AutoMentor daemon started")

	return nil
}

// setupEventSubscribers 注册事件订阅者
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil {
		return
	}

	// 源文档变更事件触发增量摄取
	a.eventBus.SubscribeMultiple(
		[]events.EventType{
			events.SourceFileCreated,
			events.SourceFileModified,
			events.SourceFileDeleted,
		},
		events.HandlerFunc(a.scanScheduler.HandleEvent),
	)

	// 摄取完成后重载助手，让新索引内容立即可查
	a.eventBus.Subscribe(
		events.IngestCompleted,
		events.HandlerFunc(func(event events.Event) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.service.Reload(ctx); err != nil {
				a.logger.Warn("failed to reload assistant after ingest",
					"error", err,
				)
			}
			return nil
		}),
	)

	// 所有事件广播到 WebSocket 客户端
	a.eventBus.SubscribeMultiple(
		[]events.EventType{
			events.IngestStarted,
			events.IngestCompleted,
			events.IngestFailed,
			events.AssistantReloaded,
			events.SourceFileCreated,
			events.SourceFileModified,
			events.SourceFileDeleted,
		},
		events.HandlerFunc(func(event events.Event) error {
			return a.wsHub.Broadcast(string(event.Type()), event)
		}),
	)
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping AutoMentor daemon")

	// 停止 mDNS 广播
	if a.cfg.Server.DiscoveryEnabled {
		if err := a.advertiser.Stop(); err != nil {
			a.logger.Error("Failed to stop mDNS advertiser",
				"error", err,
			)
		}
	}

	// 停止文件监听器
	if a.sourceWatcher != nil {
		a.sourceWatcher.Stop()
	}

	// 关闭事件总线
	if a.eventBus != nil {
		a.eventBus.Close()
	}

	// 停止扫描调度器
	if err := a.scanScheduler.Stop(); err != nil {
		a.logger.Error("Failed to stop scan scheduler",
			"error", err,
		)
	}

	// 停止 Qdrant（托管模式杀掉进程，外部模式只断开连接）
	if err := a.qdrantManager.Stop(); err != nil {
		a.logger.Error("Failed to stop qdrant",
			"error", err,
		)
	}

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
		return err
	}
	if err := a.MCPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop MCP server",
			"error", err,
		)
		return err
	}

	a.logger.Info("AutoMentor daemon stopped")

	return nil
}
