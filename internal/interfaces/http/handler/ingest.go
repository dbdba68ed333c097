package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/automentor/backend/internal/application/assistant"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/interfaces/http/response"
)

// IngestHandler 文档摄取处理器
type IngestHandler struct {
	cfg       *config.Config
	ingest    *assistant.IngestService
	scheduler *assistant.ScanScheduler
	service   *assistant.AssistantService
	docRepo   knowledge.DocumentRepository
	metaRepo  knowledge.IndexMetaRepository
	index     assistant.VectorIndex
	logger    *slog.Logger
}

// NewIngestHandler 创建摄取处理器
func NewIngestHandler(
	cfg *config.Config,
	ingest *assistant.IngestService,
	scheduler *assistant.ScanScheduler,
	service *assistant.AssistantService,
	docRepo knowledge.DocumentRepository,
	metaRepo knowledge.IndexMetaRepository,
	index assistant.VectorIndex,
) *IngestHandler {
	return &IngestHandler{
		cfg:       cfg,
		ingest:    ingest,
		scheduler: scheduler,
		service:   service,
		docRepo:   docRepo,
		metaRepo:  metaRepo,
		index:     index,
		logger:    log.NewModuleLogger("ingest", "handler"),
	}
}

// Upload 上传并摄取文档
// @Summary 上传文档
// @Description multipart 上传 pdf/txt/csv 文件并增量摄取；不支持的文件逐个拒绝，不影响同批其他文件
// @Tags 摄取
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "待摄取的文件（可重复）"
// @Success 200 {object} knowledge.IngestReport
// @Failure 400 {object} map[string]interface{}
// @Router /ingest [post]
func (h *IngestHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files in 'files' field"})
		return
	}

	uploads := make([]assistant.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			uploads = append(uploads, assistant.Upload{Filename: fh.Filename})
			continue
		}
		// 超过上限一个字节即可判定超限，避免把超大文件整个读进内存
		data, err := io.ReadAll(io.LimitReader(f, h.cfg.Ingest.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			uploads = append(uploads, assistant.Upload{Filename: fh.Filename})
			continue
		}
		uploads = append(uploads, assistant.Upload{Filename: fh.Filename, Data: data})
	}

	report, err := h.ingest.IngestUploads(c.Request.Context(), uploads)
	if err != nil {
		if errors.Is(err, knowledge.ErrNoDocuments) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":            "no ingestible content",
				"rejected_uploads": report.RejectedUploads,
			})
			return
		}
		h.logger.Error("upload ingestion failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ScanRequest 目录摄取请求
type ScanRequest struct {
	// Mode 摄取模式：append（默认）或 rebuild
	Mode string `json:"mode"`
	// Dir 可选的源目录，空表示配置的源文档目录
	Dir string `json:"dir"`
}

// Scan 摄取源文档目录
// @Summary 目录摄取
// @Description 扫描源文档目录并摄取；rebuild 清空集合后全量重建，append 只处理新增或变更的文件
// @Tags 摄取
// @Accept json
// @Produce json
// @Param body body ScanRequest false "摄取参数"
// @Success 200 {object} response.Response{data=knowledge.IngestReport}
// @Failure 400 {object} response.ErrorResponse
// @Router /ingest/scan [post]
func (h *IngestHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, 300001, "invalid request body")
			return
		}
	}

	mode, ok := knowledge.ParseIngestMode(req.Mode)
	if !ok {
		response.Error(c, http.StatusBadRequest, 300002, fmt.Sprintf("unknown ingest mode %q", req.Mode))
		return
	}

	report, err := h.ingest.IngestDirectory(c.Request.Context(), req.Dir, mode)
	if err != nil {
		if errors.Is(err, knowledge.ErrNoDocuments) {
			response.ErrorWithDetail(c, http.StatusBadRequest, 300003, "no ingestible content", err.Error())
			return
		}
		if errors.Is(err, knowledge.ErrModelMismatch) {
			response.ErrorWithDetail(c, http.StatusConflict, 300004, "embedding model mismatch", err.Error())
			return
		}
		h.logger.Error("directory ingestion failed", "error", err)
		response.Error(c, http.StatusInternalServerError, 300005, err.Error())
		return
	}

	response.Success(c, report)
}

// DocumentDTO 已索引源文件条目
type DocumentDTO struct {
	SourcePath     string `json:"source_path"`
	SourceType     string `json:"source_type"`
	ChunkCount     int    `json:"chunk_count"`
	LastIngestedAt int64  `json:"last_ingested_at"`
	Status         string `json:"status"`
}

// Documents 已索引源文件列表
// @Summary 文档列表
// @Tags 摄取
// @Produce json
// @Success 200 {object} response.Response{data=[]DocumentDTO}
// @Router /documents [get]
func (h *IngestHandler) Documents(c *gin.Context) {
	records, err := h.docRepo.ListRecords()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 300006, err.Error())
		return
	}

	items := make([]*DocumentDTO, 0, len(records))
	for _, record := range records {
		items = append(items, &DocumentDTO{
			SourcePath:     record.SourcePath,
			SourceType:     string(record.SourceType),
			ChunkCount:     record.ChunkCount,
			LastIngestedAt: record.LastIngestedAt,
			Status:         record.Status,
		})
	}

	response.Success(c, gin.H{"documents": items, "total": len(items)})
}

// ClearIndex 清空索引和状态记录
// @Summary 清空索引
// @Description 删除向量集合、源文件状态和索引元信息；问答历史保留
// @Tags 摄取
// @Produce json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Router /index [delete]
func (h *IngestHandler) ClearIndex(c *gin.Context) {
	if err := h.index.DropCollection(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, 300007, err.Error())
		return
	}
	if err := h.docRepo.ClearAllRecords(); err != nil {
		response.Error(c, http.StatusInternalServerError, 300007, err.Error())
		return
	}
	if err := h.metaRepo.DeleteMeta(h.cfg.Qdrant.Collection); err != nil {
		response.Error(c, http.StatusInternalServerError, 300007, err.Error())
		return
	}

	// 旧实例指向已删除的集合，立即失效
	h.service.Invalidate()

	h.logger.Info("index cleared", "collection", h.cfg.Qdrant.Collection)
	response.Success(c, gin.H{"message": "index cleared"})
}
