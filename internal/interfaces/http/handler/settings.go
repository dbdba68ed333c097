package handler

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/automentor/backend/internal/application/assistant"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/embedding"
	"github.com/automentor/backend/internal/infrastructure/llm"
	"github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/infrastructure/settings"
	"github.com/automentor/backend/internal/interfaces/http/response"
)

// SettingsHandler 运行时设置处理器
type SettingsHandler struct {
	cfg       *config.Config
	store     *settings.Store
	service   *assistant.AssistantService
	scheduler *assistant.ScanScheduler
	logger    *slog.Logger
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(
	cfg *config.Config,
	store *settings.Store,
	service *assistant.AssistantService,
	scheduler *assistant.ScanScheduler,
) *SettingsHandler {
	return &SettingsHandler{
		cfg:       cfg,
		store:     store,
		service:   service,
		scheduler: scheduler,
		logger:    log.NewModuleLogger("settings", "handler"),
	}
}

// EndpointDTO 模型服务端点设置
type EndpointDTO struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

// SettingsDTO 运行时设置
type SettingsDTO struct {
	Embedding EndpointDTO           `json:"embedding"`
	LLM       EndpointDTO           `json:"llm"`
	TopK      int                   `json:"top_k"`
	Scan      settings.ScanSettings `json:"scan"`
	UpdatedAt int64                 `json:"updated_at"`
}

// Get 读取设置
// @Summary 读取设置
// @Description 返回运行时设置，API Key 脱敏
// @Tags 设置
// @Produce json
// @Success 200 {object} response.Response{data=SettingsDTO}
// @Failure 500 {object} response.ErrorResponse
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	st, err := h.store.Read()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 400001, err.Error())
		return
	}

	response.Success(c, &SettingsDTO{
		Embedding: EndpointDTO{
			BaseURL: st.Embedding.BaseURL,
			APIKey:  maskAPIKey(st.Embedding.APIKey),
			Model:   st.Embedding.Model,
		},
		LLM: EndpointDTO{
			BaseURL: st.LLM.BaseURL,
			APIKey:  maskAPIKey(st.LLM.APIKey),
			Model:   st.LLM.Model,
		},
		TopK:      st.TopK,
		Scan:      st.Scan,
		UpdatedAt: st.UpdatedAt,
	})
}

// UpdateSettingsRequest 更新设置请求
// 缺省的段保持现状，API Key 留空表示沿用已保存的 Key
type UpdateSettingsRequest struct {
	Embedding *EndpointDTO           `json:"embedding"`
	LLM       *EndpointDTO           `json:"llm"`
	TopK      int                    `json:"top_k"`
	Scan      *settings.ScanSettings `json:"scan"`
}

// Update 更新设置
// @Summary 更新设置
// @Description 持久化运行时设置并触发助手重载；扫描设置变更会重启调度器
// @Tags 设置
// @Accept json
// @Produce json
// @Param body body UpdateSettingsRequest true "设置"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400002, "invalid request body")
		return
	}

	updated, err := h.store.Update(func(st *settings.AssistantSettings) {
		if req.Embedding != nil {
			applyEndpoint(&st.Embedding, req.Embedding)
		}
		if req.LLM != nil {
			applyEndpoint(&st.LLM, req.LLM)
		}
		if req.TopK > 0 {
			st.TopK = req.TopK
		}
		if req.Scan != nil {
			st.Scan = *req.Scan
		}
		st.UpdatedAt = time.Now().Unix()
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 400003, err.Error())
		return
	}

	h.scheduler.Restart()

	// 新设置对下一次构建生效；已初始化时后台重载，失败只记日志
	if h.service.Initialized() {
		go func() {
			if err := h.service.Reload(context.Background()); err != nil {
				h.logger.Warn("failed to reload assistant after settings update", "error", err)
			}
		}()
	}

	response.Success(c, gin.H{"updated_at": updated.UpdatedAt})
}

// TestEndpointRequest 连通性测试请求
type TestEndpointRequest struct {
	// Target 测试目标：embedding 或 llm
	Target  string `json:"target" binding:"required"`
	BaseURL string `json:"base_url" binding:"required"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model" binding:"required"`
}

// Test 测试模型服务连通性
// @Summary 连通性测试
// @Tags 设置
// @Accept json
// @Produce json
// @Param body body TestEndpointRequest true "测试目标"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /settings/test [post]
func (h *SettingsHandler) Test(c *gin.Context) {
	var req TestEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.logger.Debug("testing model endpoint",
		"target", req.Target,
		"base_url", req.BaseURL,
		"model", req.Model,
		"api_key", maskAPIKey(req.APIKey),
	)

	var err error
	switch req.Target {
	case "embedding":
		err = embedding.NewClient(req.BaseURL, req.APIKey, req.Model, h.cfg.Embedding.BatchSize).TestConnection()
	case "llm":
		err = llm.NewClient(req.BaseURL, req.APIKey, req.Model).TestConnection()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target must be 'embedding' or 'llm'"})
		return
	}

	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// applyEndpoint 合并端点设置，空 API Key 保留已保存的值
func applyEndpoint(dst *settings.EndpointSettings, src *EndpointDTO) {
	dst.BaseURL = src.BaseURL
	dst.Model = src.Model
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
}

// maskAPIKey API Key 脱敏，只保留首尾各 4 个字符
func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) > 8 {
		return key[:4] + "..." + key[len(key)-4:]
	}
	return "***"
}
