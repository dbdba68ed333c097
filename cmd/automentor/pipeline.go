package main

import (
	"context"
	"fmt"

	"github.com/automentor/backend/internal/application/assistant"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/settings"
	"github.com/automentor/backend/internal/infrastructure/storage"
	"github.com/automentor/backend/internal/infrastructure/vector"
)

// pipeline 命令行进程内的知识库管线
// 与守护进程共用同一套数据目录、数据库和 Qdrant 集合
type pipeline struct {
	cfg      *config.Config
	manager  *vector.QdrantManager
	index    *vector.ChunkIndex
	metaRepo knowledge.IndexMetaRepository
	ingest   *assistant.IngestService
	service  *assistant.AssistantService

	cleanup func()
}

// newPipeline 构建管线并连接 Qdrant
func newPipeline(ctx context.Context) (*pipeline, error) {
	cfg := config.NewConfig()

	db, cleanup, err := storage.NewDB(config.NewDatabaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := settings.NewStore()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	manager := vector.NewQdrantManager(&cfg.Qdrant)
	if err := manager.EnsureReady(ctx); err != nil {
		cleanup()
		return nil, fmt.Errorf("qdrant not available: %w", err)
	}

	tokens, err := assistant.ProvideTokenCounter()
	if err != nil {
		manager.Close()
		cleanup()
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	index := vector.NewChunkIndex(manager)
	docRepo := storage.NewDocumentRepository(db)
	metaRepo := storage.NewIndexMetaRepository(db)
	chatRepo := storage.NewChatRepository(db)
	loader := assistant.ProvideDocumentLoader()
	chunker := assistant.ProvideChunker(cfg)

	// 命令行场景没有事件消费方，事件总线传 nil
	ingest := assistant.NewIngestService(cfg, store, loader, chunker, index, docRepo, metaRepo, tokens, nil)
	service := assistant.NewAssistantService(cfg, store, index, metaRepo, chatRepo, tokens, nil)

	return &pipeline{
		cfg:      cfg,
		manager:  manager,
		index:    index,
		metaRepo: metaRepo,
		ingest:   ingest,
		service:  service,
		cleanup:  cleanup,
	}, nil
}

// Close 释放数据库和 Qdrant 连接
// 托管模式下也会停掉本进程拉起的 Qdrant
func (p *pipeline) Close() {
	p.manager.Close()
	p.cleanup()
}
