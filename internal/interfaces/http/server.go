package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/interfaces/http/handler"
	"github.com/automentor/backend/internal/interfaces/http/middleware"
	"github.com/automentor/backend/internal/interfaces/mcp"

	_ "github.com/automentor/backend/docs" // Swagger docs
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
// 根路径暴露问答与摄取的核心端点，/api/v1 下是管理端点
func NewServer(
	cfg *config.Config,
	assistantHandler *handler.AssistantHandler,
	ingestHandler *handler.IngestHandler,
	settingsHandler *handler.SettingsHandler,
	qdrantHandler *handler.QdrantHandler,
	wsHandler *handler.WSHandler,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 核心端点
	router.GET("/health", assistantHandler.Health)
	router.POST("/query", assistantHandler.Query)
	router.POST("/ingest", ingestHandler.Upload)
	router.GET("/ws", wsHandler.Serve)

	// 管理端点
	api := router.Group("/api/v1")
	{
		api.POST("/ingest/scan", ingestHandler.Scan)
		api.GET("/documents", ingestHandler.Documents)
		api.DELETE("/index", ingestHandler.ClearIndex)

		api.GET("/status", assistantHandler.Status)
		api.GET("/history", assistantHandler.History)
		api.POST("/reload", assistantHandler.Reload)

		api.GET("/settings", settingsHandler.Get)
		api.PUT("/settings", settingsHandler.Update)
		api.POST("/settings/test", settingsHandler.Test)

		qdrant := api.Group("/qdrant")
		{
			qdrant.POST("/download", qdrantHandler.Download)
			qdrant.POST("/start", qdrantHandler.Start)
			qdrant.POST("/stop", qdrantHandler.Stop)
			qdrant.GET("/status", qdrantHandler.Status)
		}
	}

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: cfg.Server.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
