package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	NewDB,                  // 数据库连接与表结构
	NewDocumentRepository,  // 源文件索引状态仓储
	NewChatRepository,      // 问答历史仓储
	NewIndexMetaRepository, // 索引元信息仓储
)
