package handler

import (
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/infrastructure/vector"
)

// QdrantHandler 托管 Qdrant 进程管理处理器
type QdrantHandler struct {
	manager *vector.QdrantManager
	logger  *slog.Logger
}

// NewQdrantHandler 创建 Qdrant 管理处理器
func NewQdrantHandler(manager *vector.QdrantManager) *QdrantHandler {
	return &QdrantHandler{
		manager: manager,
		logger:  log.NewModuleLogger("qdrant", "handler"),
	}
}

// Download 下载并安装 Qdrant 二进制
// @Summary 下载 Qdrant
// @Tags Qdrant
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /qdrant/download [post]
func (h *QdrantHandler) Download(c *gin.Context) {
	installPath, err := h.manager.EnsureInstalled(c.Request.Context(), nil)
	if err != nil {
		h.logger.Error("failed to install qdrant", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"install_path": installPath,
		"version":      vector.DefaultQdrantVersion,
	})
}

// Start 启动托管的 Qdrant 进程
// @Summary 启动 Qdrant
// @Tags Qdrant
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /qdrant/start [post]
func (h *QdrantHandler) Start(c *gin.Context) {
	if h.manager.IsRunning() {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "qdrant is already running"})
		return
	}

	if err := h.manager.Start(); err != nil {
		h.logger.Error("failed to start qdrant", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "qdrant started"})
}

// Stop 停止托管的 Qdrant 进程
// @Summary 停止 Qdrant
// @Tags Qdrant
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /qdrant/stop [post]
func (h *QdrantHandler) Stop(c *gin.Context) {
	if !h.manager.IsRunning() {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "qdrant is not running"})
		return
	}

	if err := h.manager.Stop(); err != nil {
		h.logger.Error("failed to stop qdrant", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "qdrant stopped"})
}

// Status Qdrant 安装与运行状态
// @Summary Qdrant 状态
// @Tags Qdrant
// @Produce json
// @Success 200 {object} vector.QdrantStatus
// @Router /qdrant/status [get]
func (h *QdrantHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Status())
}
