package assistant

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/automentor/backend/internal/domain/events"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/infrastructure/settings"
)

// Upload 通过 API 上传的待摄取文件
type Upload struct {
	Filename string
	Data     []byte
}

// IngestService 文档摄取服务
// 负责加载、切分、向量化并写入索引，全程串行执行，
// 同一时间只允许一次摄取
type IngestService struct {
	cfg      *config.Config
	store    *settings.Store
	loader   *DocumentLoader
	chunker  *Chunker
	index    VectorIndex
	docRepo  knowledge.DocumentRepository
	metaRepo knowledge.IndexMetaRepository
	tokens   TokenCounter
	bus      events.EventBus

	mu         sync.Mutex
	newClients clientFactory
	logger     *slog.Logger
}

// NewIngestService 创建摄取服务
func NewIngestService(
	cfg *config.Config,
	store *settings.Store,
	loader *DocumentLoader,
	chunker *Chunker,
	index VectorIndex,
	docRepo knowledge.DocumentRepository,
	metaRepo knowledge.IndexMetaRepository,
	tokens TokenCounter,
	bus events.EventBus,
) *IngestService {
	return &IngestService{
		cfg:        cfg,
		store:      store,
		loader:     loader,
		chunker:    chunker,
		index:      index,
		docRepo:    docRepo,
		metaRepo:   metaRepo,
		tokens:     tokens,
		bus:        bus,
		newClients: defaultClientFactory,
		logger:     log.NewModuleLogger("assistant", "ingest"),
	}
}

// IngestDirectory 摄取目录下的全部受支持文档
// dir 为空时使用配置的源文档目录
func (s *IngestService) IngestDirectory(ctx context.Context, dir string, mode knowledge.IngestMode) (*knowledge.IngestReport, error) {
	return s.run(ctx, dir, nil, mode)
}

// IngestFiles 增量摄取指定文件
// 文件监听器检测到新增或变更时调用
func (s *IngestService) IngestFiles(ctx context.Context, paths []string) (*knowledge.IngestReport, error) {
	return s.run(ctx, "", paths, knowledge.IngestModeAppend)
}

// IngestUploads 保存上传文件到源文档目录并增量摄取
// 校验失败的文件逐个记入 RejectedUploads，不影响同批其他文件；
// 全部被拒绝时返回 ErrNoDocuments
func (s *IngestService) IngestUploads(ctx context.Context, uploads []Upload) (*knowledge.IngestReport, error) {
	report := &knowledge.IngestReport{Mode: knowledge.IngestModeAppend}

	dir := s.cfg.Ingest.SourceDocsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report, fmt.Errorf("failed to create source docs dir: %w", err)
	}

	var accepted []string
	var rejected []string
	for _, upload := range uploads {
		name, err := s.validateUpload(upload)
		if err != nil {
			label := strings.TrimSpace(upload.Filename)
			if label == "" {
				label = "(unnamed)"
			}
			rejected = append(rejected, fmt.Sprintf("%s: %v", label, err))
			continue
		}

		dest := filepath.Join(dir, name)
		if err := os.WriteFile(dest, upload.Data, 0o644); err != nil {
			rejected = append(rejected, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		accepted = append(accepted, dest)
	}

	report.RejectedUploads = rejected
	if len(accepted) == 0 {
		return report, fmt.Errorf("%w: no uploads accepted", knowledge.ErrNoDocuments)
	}

	result, err := s.run(ctx, "", accepted, knowledge.IngestModeAppend)
	if result == nil {
		return report, err
	}
	result.RejectedUploads = rejected
	return result, err
}

// RemoveSource 从索引和状态记录中移除一个源文件
// 源文件被删除后由监听器调用
func (s *IngestService) RemoveSource(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.DeleteBySourcePath(ctx, path); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", filepath.Base(path), err)
	}
	if err := s.docRepo.DeleteRecord(path); err != nil {
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	cfg := effectiveConfig(s.cfg, s.store, s.logger)
	if err := s.updateMetaCounts(cfg.Qdrant.Collection); err != nil {
		return err
	}

	s.logger.Info("source removed from index", "path", path)
	return nil
}

// validateUpload 校验单个上传文件
func (s *IngestService) validateUpload(upload Upload) (string, error) {
	name := filepath.Base(strings.TrimSpace(upload.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename")
	}
	if _, err := knowledge.ParseSourceType(name); err != nil {
		return "", err
	}
	if len(upload.Data) == 0 {
		return "", fmt.Errorf("empty file")
	}
	if max := s.cfg.Ingest.MaxUploadBytes; max > 0 && int64(len(upload.Data)) > max {
		return "", fmt.Errorf("file size %d exceeds limit %d", len(upload.Data), max)
	}
	return name, nil
}

// run 在摄取锁内执行一次摄取并发布流程事件
func (s *IngestService) run(ctx context.Context, dir string, only []string, mode knowledge.IngestMode) (*knowledge.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := effectiveConfig(s.cfg, s.store, s.logger)
	if dir == "" {
		dir = cfg.Ingest.SourceDocsDir
	}

	s.publishStarted(mode)

	report, err := s.ingestLocked(ctx, cfg, dir, only, mode)
	if err != nil {
		s.publishFailed(mode, err)
		return report, err
	}

	s.publishCompleted(report)
	return report, nil
}

// ingestLocked 执行摄取主流程
// 调用方必须持有 s.mu
func (s *IngestService) ingestLocked(ctx context.Context, cfg *config.Config, dir string, only []string, mode knowledge.IngestMode) (*knowledge.IngestReport, error) {
	start := time.Now()
	report := &knowledge.IngestReport{Mode: mode}

	var docs []*knowledge.Document
	if len(only) > 0 {
		for _, path := range only {
			report.DocumentsFound++
			loaded, err := s.loader.LoadFile(ctx, path)
			if err != nil {
				report.DocumentsSkipped = append(report.DocumentsSkipped, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				s.logger.Warn("failed to load file, skipping", "path", path, "error", err)
				continue
			}
			report.DocumentsRead++
			docs = append(docs, loaded...)
		}
		if len(docs) == 0 {
			return report, fmt.Errorf("%w: none of %d files yielded text", knowledge.ErrNoDocuments, len(only))
		}
	} else {
		loaded, result, err := s.loader.LoadDirectory(ctx, dir)
		if result != nil {
			report.DocumentsFound = result.Found
			report.DocumentsRead = result.Read
			report.DocumentsSkipped = result.Skipped
		}
		if err != nil {
			return report, err
		}
		docs = loaded
	}

	embedder, _ := s.newClients(cfg)
	dim, err := embedder.GetVectorDimension()
	if err != nil {
		return report, fmt.Errorf("failed to probe vector dimension: %w", err)
	}

	// 增量追加必须沿用建索引时的向量模型
	if mode == knowledge.IngestModeAppend {
		meta, err := s.metaRepo.GetMeta(cfg.Qdrant.Collection)
		if err != nil {
			return report, fmt.Errorf("failed to read index meta: %w", err)
		}
		if meta != nil && meta.ChunkCount > 0 && meta.EmbeddingModel != "" && meta.EmbeddingModel != embedder.Model() {
			return report, fmt.Errorf("%w: index built with %q, configured %q",
				knowledge.ErrModelMismatch, meta.EmbeddingModel, embedder.Model())
		}
	}

	if mode == knowledge.IngestModeRebuild {
		if err := s.index.RecreateCollection(ctx, uint64(dim)); err != nil {
			return report, fmt.Errorf("failed to recreate collection: %w", err)
		}
		if err := s.docRepo.ClearAllRecords(); err != nil {
			return report, fmt.Errorf("failed to clear document records: %w", err)
		}
	} else {
		if err := s.index.EnsureCollection(ctx, uint64(dim)); err != nil {
			return report, fmt.Errorf("failed to ensure collection: %w", err)
		}
	}

	for _, group := range groupBySource(docs) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		mtime, hash, err := fileFingerprint(group.path)
		if err != nil {
			report.DocumentsSkipped = append(report.DocumentsSkipped, fmt.Sprintf("%s: %v", filepath.Base(group.path), err))
			s.logger.Warn("failed to fingerprint file, skipping", "path", group.path, "error", err)
			continue
		}

		if mode == knowledge.IngestModeAppend {
			record, err := s.docRepo.GetRecord(group.path)
			if err != nil {
				return report, fmt.Errorf("failed to read document record: %w", err)
			}
			if record != nil {
				if !record.NeedsReingest(mtime, hash) {
					report.DocumentsUnchanged++
					if record.NeedsMtimeUpdate(mtime, hash) {
						if err := s.docRepo.UpdateFileMtime(group.path, mtime); err != nil {
							s.logger.Warn("failed to update file mtime", "path", group.path, "error", err)
						}
					}
					continue
				}
				// 内容变化，先清掉旧片段再重新索引
				if err := s.index.DeleteBySourcePath(ctx, group.path); err != nil {
					return report, fmt.Errorf("failed to delete stale chunks: %w", err)
				}
			}
		}

		chunks := s.chunker.SplitAll(group.docs)
		if len(chunks) == 0 {
			continue
		}

		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}

		vectors, err := embedder.EmbedTexts(texts)
		if err != nil {
			return report, fmt.Errorf("failed to embed chunks of %s: %w", filepath.Base(group.path), err)
		}

		if err := s.index.UpsertChunks(ctx, chunks, vectors); err != nil {
			return report, fmt.Errorf("failed to upsert chunks of %s: %w", filepath.Base(group.path), err)
		}

		if s.tokens != nil {
			for _, text := range texts {
				report.TokensIndexed += s.tokens.CountTokens(text)
			}
		}

		record := &knowledge.DocumentRecord{
			SourcePath:     group.path,
			SourceType:     group.docs[0].Meta.SourceType,
			ContentHash:    hash,
			ChunkCount:     len(chunks),
			FileMtime:      mtime,
			LastIngestedAt: time.Now().Unix(),
			Status:         knowledge.IngestStatusIngested,
		}
		if err := s.docRepo.SaveRecord(record); err != nil {
			return report, fmt.Errorf("failed to save document record: %w", err)
		}

		report.ChunksIndexed += len(chunks)
	}

	if err := s.saveMeta(cfg.Qdrant.Collection, embedder.Model(), dim); err != nil {
		return report, err
	}

	report.DurationMs = time.Since(start).Milliseconds()

	s.logger.Info("ingestion finished",
		"mode", mode,
		"files_found", report.DocumentsFound,
		"files_read", report.DocumentsRead,
		"files_unchanged", report.DocumentsUnchanged,
		"chunks_indexed", report.ChunksIndexed,
		"tokens_indexed", report.TokensIndexed,
		"duration_ms", report.DurationMs,
	)

	return report, nil
}

// saveMeta 根据状态记录重算并保存索引元信息
func (s *IngestService) saveMeta(collection, model string, dim int) error {
	records, err := s.docRepo.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list document records: %w", err)
	}

	chunkCount := 0
	for _, record := range records {
		chunkCount += record.ChunkCount
	}

	meta := &knowledge.IndexMeta{
		Collection:     collection,
		EmbeddingModel: model,
		VectorDim:      dim,
		DocumentCount:  len(records),
		ChunkCount:     chunkCount,
		BuiltAt:        time.Now().Unix(),
	}
	if err := s.metaRepo.SaveMeta(meta); err != nil {
		return fmt.Errorf("failed to save index meta: %w", err)
	}
	return nil
}

// updateMetaCounts 移除源文件后刷新元信息中的数量统计
func (s *IngestService) updateMetaCounts(collection string) error {
	meta, err := s.metaRepo.GetMeta(collection)
	if err != nil {
		return fmt.Errorf("failed to read index meta: %w", err)
	}
	if meta == nil {
		return nil
	}

	records, err := s.docRepo.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list document records: %w", err)
	}

	meta.DocumentCount = len(records)
	meta.ChunkCount = 0
	for _, record := range records {
		meta.ChunkCount += record.ChunkCount
	}

	if err := s.metaRepo.SaveMeta(meta); err != nil {
		return fmt.Errorf("failed to save index meta: %w", err)
	}
	return nil
}

// sourceGroup 同一源文件的全部文档
type sourceGroup struct {
	path string
	docs []*knowledge.Document
}

// groupBySource 按来源路径分组，保持首次出现的顺序
func groupBySource(docs []*knowledge.Document) []*sourceGroup {
	index := make(map[string]int)
	var groups []*sourceGroup

	for _, doc := range docs {
		i, ok := index[doc.Meta.SourcePath]
		if !ok {
			i = len(groups)
			index[doc.Meta.SourcePath] = i
			groups = append(groups, &sourceGroup{path: doc.Meta.SourcePath})
		}
		groups[i].docs = append(groups[i].docs, doc)
	}

	return groups
}

// fileFingerprint 计算文件的修改时间和内容哈希
func fileFingerprint(path string) (int64, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to stat file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, "", fmt.Errorf("failed to hash file: %w", err)
	}

	return info.ModTime().Unix(), fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (s *IngestService) publishStarted(mode knowledge.IngestMode) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&events.IngestEvent{
		EventType: events.IngestStarted,
		Mode:      string(mode),
		EventTime: time.Now(),
	})
}

func (s *IngestService) publishCompleted(report *knowledge.IngestReport) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&events.IngestEvent{
		EventType:     events.IngestCompleted,
		Mode:          string(report.Mode),
		ChunksIndexed: report.ChunksIndexed,
		EventTime:     time.Now(),
	})
}

func (s *IngestService) publishFailed(mode knowledge.IngestMode, err error) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&events.IngestEvent{
		EventType: events.IngestFailed,
		Mode:      string(mode),
		Error:     err.Error(),
		EventTime: time.Now(),
	})
}
