//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/automentor/backend/internal/application"
	appAssistant "github.com/automentor/backend/internal/application/assistant"
	"github.com/automentor/backend/internal/infrastructure"
	"github.com/automentor/backend/internal/infrastructure/vector"
	"github.com/automentor/backend/internal/interfaces"
)

// InitializeAll 初始化所有服务（HTTP + MCP）
// 返回的 cleanup 关闭数据库等需要释放的资源
func InitializeAll() (*App, func(), error) {
	wire.Build(
		// 按层组合 ProviderSet
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		interfaces.ProviderSet,     // 接口层
		// 接口绑定：应用层的向量索引端口由 Qdrant 实现
		wire.Bind(
			new(appAssistant.VectorIndex),
			new(*vector.ChunkIndex),
		),
		NewApp, // 组合所有服务的应用结构
	)
	return nil, nil, nil
}
