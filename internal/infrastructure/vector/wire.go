package vector

import (
	"github.com/google/wire"

	"github.com/automentor/backend/internal/infrastructure/config"
)

// ProvideQdrantManager 创建 Qdrant 管理器
func ProvideQdrantManager(cfg *config.Config) *QdrantManager {
	return NewQdrantManager(&cfg.Qdrant)
}

// ProviderSet 向量索引模块的依赖注入集合
var ProviderSet = wire.NewSet(
	ProvideQdrantManager,
	NewChunkIndex,
)
