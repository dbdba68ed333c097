package assistant

import (
	"github.com/google/wire"

	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/llm"
)

// ProvideChunker 按摄取配置创建切分器
func ProvideChunker(cfg *config.Config) *Chunker {
	return NewChunker(
		WithChunkSize(cfg.Ingest.ChunkSize),
		WithChunkOverlap(cfg.Ingest.ChunkOverlap),
	)
}

// ProvideDocumentLoader 创建文档加载器
func ProvideDocumentLoader() *DocumentLoader {
	return NewDocumentLoader(nil)
}

// ProvideTokenCounter 提供共享的 token 计数器
func ProvideTokenCounter() (TokenCounter, error) {
	return llm.GetTokenCounter()
}

// ProviderSet 助手应用层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideChunker,
	ProvideDocumentLoader,
	ProvideTokenCounter,
	NewAssistantService,
	NewIngestService,
	NewScanScheduler,
)
