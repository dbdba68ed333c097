package assistant

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/automentor/backend/internal/domain/events"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/embedding"
	"github.com/automentor/backend/internal/infrastructure/llm"
	"github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/infrastructure/settings"
)

// clientFactory 根据生效配置构建模型客户端
// 测试中替换为确定性的内存实现
type clientFactory func(cfg *config.Config) (Embedder, Generator)

// defaultClientFactory 生产客户端工厂
func defaultClientFactory(cfg *config.Config) (Embedder, Generator) {
	embedder := embedding.NewClient(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.BatchSize,
	)
	generator := llm.NewClient(
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		cfg.LLM.Model,
	)
	return embedder, generator
}

// AssistantService 助手生命周期服务
// 懒初始化唯一的 Assistant 实例并持有在 atomic.Pointer 中，
// 重载时构建新实例原子替换，进行中的提问继续使用旧实例
type AssistantService struct {
	cfg      *config.Config
	store    *settings.Store
	index    VectorIndex
	metaRepo knowledge.IndexMetaRepository
	chatRepo knowledge.ChatRepository
	tokens   TokenCounter
	bus      events.EventBus

	current    atomic.Pointer[Assistant]
	memory     *ConversationMemory
	mu         sync.Mutex
	newClients clientFactory
	logger     *slog.Logger
}

// NewAssistantService 创建助手服务
func NewAssistantService(
	cfg *config.Config,
	store *settings.Store,
	index VectorIndex,
	metaRepo knowledge.IndexMetaRepository,
	chatRepo knowledge.ChatRepository,
	tokens TokenCounter,
	bus events.EventBus,
) *AssistantService {
	return &AssistantService{
		cfg:        cfg,
		store:      store,
		index:      index,
		metaRepo:   metaRepo,
		chatRepo:   chatRepo,
		tokens:     tokens,
		bus:        bus,
		memory:     NewConversationMemory(cfg.Memory.MaxTurns),
		newClients: defaultClientFactory,
		logger:     log.NewModuleLogger("assistant", "service"),
	}
}

// Get 返回当前助手实例
// 尚未初始化时返回 ErrNotInitialized
func (s *AssistantService) Get() (*Assistant, error) {
	if a := s.current.Load(); a != nil {
		return a, nil
	}
	return nil, knowledge.ErrNotInitialized
}

// GetOrInit 返回当前助手实例，必要时先执行懒初始化
func (s *AssistantService) GetOrInit(ctx context.Context) (*Assistant, error) {
	if a := s.current.Load(); a != nil {
		return a, nil
	}
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.Get()
}

// Initialized 助手是否已初始化
func (s *AssistantService) Initialized() bool {
	return s.current.Load() != nil
}

// State 返回助手状态
func (s *AssistantService) State() string {
	a := s.current.Load()
	if a == nil {
		return StateNotReady
	}
	return a.State()
}

// Memory 返回跨重载共享的对话记忆
func (s *AssistantService) Memory() *ConversationMemory {
	return s.memory
}

// Invalidate 丢弃当前助手实例
// 索引被清空后调用，下一次提问会重新触发懒初始化
func (s *AssistantService) Invalidate() {
	s.current.Store(nil)
}

// Initialize 懒初始化助手
// 同一时间只有一个初始化在执行；已初始化时直接返回
func (s *AssistantService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Load() != nil {
		return nil
	}

	return s.buildAndSwap(ctx)
}

// Reload 重建助手并原子替换
// 摄取完成或设置变更后调用；进行中的提问在旧实例上完成
func (s *AssistantService) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buildAndSwap(ctx)
}

// buildAndSwap 构建新的助手实例并替换当前实例
// 调用方必须持有 s.mu
func (s *AssistantService) buildAndSwap(ctx context.Context) error {
	cfg := s.EffectiveConfig()

	// 索引元信息必须存在且非空，否则视为从未摄取
	meta, err := s.metaRepo.GetMeta(cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("failed to read index meta: %w", err)
	}
	if meta == nil || meta.ChunkCount == 0 {
		return fmt.Errorf("%w: run ingestion first", knowledge.ErrEmptyIndex)
	}

	// 向量模型必须与建索引时一致，否则查询向量落在不同的向量空间
	if meta.EmbeddingModel != "" && meta.EmbeddingModel != cfg.Embedding.Model {
		return fmt.Errorf("%w: index built with %q, configured %q",
			knowledge.ErrModelMismatch, meta.EmbeddingModel, cfg.Embedding.Model)
	}

	count, err := s.index.CountPoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to count index points: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: collection %s has no points", knowledge.ErrEmptyIndex, cfg.Qdrant.Collection)
	}

	embedder, generator := s.newClients(cfg)

	a := &Assistant{
		embedder:  embedder,
		generator: generator,
		index:     s.index,
		prompt:    NewPromptBuilder(s.tokens, cfg.LLM.MaxContextTokens),
		memory:    s.memory,
		chatRepo:  s.chatRepo,
		topK:      cfg.Retrieval.TopK,
		logger:    log.NewModuleLogger("assistant", "assistant"),
	}

	s.current.Store(a)

	s.logger.Info("assistant ready",
		"embedding_model", embedder.Model(),
		"llm_model", generator.Model(),
		"top_k", a.topK,
		"indexed_chunks", count,
	)

	if s.bus != nil {
		s.bus.Publish(&events.AssistantReloadedEvent{
			EmbeddingModel: embedder.Model(),
			ChunkCount:     int(count),
			EventTime:      time.Now(),
		})
	}

	return nil
}

// EffectiveConfig 返回叠加运行时设置后的生效配置
func (s *AssistantService) EffectiveConfig() *config.Config {
	return effectiveConfig(s.cfg, s.store, s.logger)
}

// effectiveConfig 读取运行时设置并叠加到基础配置上
// 设置读取失败时退回基础配置
func effectiveConfig(cfg *config.Config, store *settings.Store, logger *slog.Logger) *config.Config {
	if store == nil {
		return cfg
	}

	st, err := store.Read()
	if err != nil {
		logger.Warn("failed to read runtime settings, using base config", "error", err)
		return cfg
	}

	return st.Apply(cfg)
}
