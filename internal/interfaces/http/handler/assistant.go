package handler

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/automentor/backend/internal/application/assistant"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/infrastructure/vector"
	"github.com/automentor/backend/internal/interfaces/http/response"
)

// AssistantHandler 问答处理器
// 覆盖对外问答接口和 /api/v1 下的助手管理接口
type AssistantHandler struct {
	cfg      *config.Config
	service  *assistant.AssistantService
	chatRepo knowledge.ChatRepository
	metaRepo knowledge.IndexMetaRepository
	qdrant   *vector.QdrantManager
	logger   *slog.Logger
}

// NewAssistantHandler 创建问答处理器
func NewAssistantHandler(
	cfg *config.Config,
	service *assistant.AssistantService,
	chatRepo knowledge.ChatRepository,
	metaRepo knowledge.IndexMetaRepository,
	qdrant *vector.QdrantManager,
) *AssistantHandler {
	return &AssistantHandler{
		cfg:      cfg,
		service:  service,
		chatRepo: chatRepo,
		metaRepo: metaRepo,
		qdrant:   qdrant,
		logger:   log.NewModuleLogger("assistant", "handler"),
	}
}

// QueryRequest 提问请求
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// Query 回答一个问题
// @Summary 提问
// @Description 检索相关片段并生成回答，返回回答文本和引用来源
// @Tags 问答
// @Accept json
// @Produce json
// @Param body body QueryRequest true "问题"
// @Success 200 {object} assistant.Answer
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /query [post]
func (h *AssistantHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	a, err := h.service.GetOrInit(c.Request.Context())
	if err != nil {
		if errors.Is(err, knowledge.ErrNotInitialized) || errors.Is(err, knowledge.ErrEmptyIndex) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not initialized: ingest documents first"})
			return
		}
		h.logger.Error("failed to initialize assistant", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	answer, err := a.Ask(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyIndex) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not initialized: ingest documents first"})
			return
		}
		h.logger.Error("failed to answer question", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate answer"})
		return
	}

	c.JSON(http.StatusOK, answer)
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *AssistantHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"initialized": h.service.Initialized(),
	})
}

// Reload 重建助手实例
// @Summary 重载助手
// @Description 按当前索引和设置重建助手实例并原子替换
// @Tags 问答
// @Produce json
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse
// @Router /reload [post]
func (h *AssistantHandler) Reload(c *gin.Context) {
	if err := h.service.Reload(c.Request.Context()); err != nil {
		if errors.Is(err, knowledge.ErrEmptyIndex) {
			response.Error(c, http.StatusConflict, 200001, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, 200002, err.Error())
		return
	}

	response.Success(c, gin.H{"state": h.service.State()})
}

// ChatTurnDTO 问答历史条目
type ChatTurnDTO struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	CreatedAt int64    `json:"created_at"`
}

// History 分页查询问答历史
// @Summary 问答历史
// @Tags 问答
// @Produce json
// @Param page query int false "页码，从 1 开始"
// @Param page_size query int false "每页条数，默认 20"
// @Success 200 {object} response.ResponseWithPage
// @Router /history [get]
func (h *AssistantHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	total, err := h.chatRepo.CountTurns()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 200003, err.Error())
		return
	}

	turns, err := h.chatRepo.ListTurns((page-1)*pageSize, pageSize)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 200003, err.Error())
		return
	}

	items := make([]*ChatTurnDTO, 0, len(turns))
	for _, turn := range turns {
		items = append(items, &ChatTurnDTO{
			ID:        turn.ID,
			Question:  turn.Question,
			Answer:    turn.Answer,
			Sources:   turn.Sources,
			CreatedAt: turn.CreatedAt,
		})
	}

	response.SuccessWithPage(c, items, page, pageSize, total)
}

// Status 返回索引和助手状态
// @Summary 索引状态
// @Description 索引元信息、Qdrant 连通性和助手状态
// @Tags 系统
// @Produce json
// @Success 200 {object} response.Response
// @Router /status [get]
func (h *AssistantHandler) Status(c *gin.Context) {
	meta, err := h.metaRepo.GetMeta(h.cfg.Qdrant.Collection)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 200004, err.Error())
		return
	}

	qdrantAlive := h.qdrant.HealthCheck(c.Request.Context()) == nil

	status := gin.H{
		"assistant_state": h.service.State(),
		"initialized":     h.service.Initialized(),
		"qdrant_alive":    qdrantAlive,
		"collection":      h.cfg.Qdrant.Collection,
	}
	if meta != nil {
		status["embedding_model"] = meta.EmbeddingModel
		status["vector_dim"] = meta.VectorDim
		status["document_count"] = meta.DocumentCount
		status["chunk_count"] = meta.ChunkCount
		status["built_at"] = meta.BuiltAt
	}

	response.Success(c, status)
}
