package knowledge

import "errors"

// 领域哨兵错误
// 各层通过 errors.Is 判断错误类别，再映射到各自的错误表达
var (
	// ErrNotInitialized 助手尚未初始化（索引未就绪）
	ErrNotInitialized = errors.New("assistant not initialized")

	// ErrUnsupportedSourceType 文件类型不受支持
	// 包装时必须附带文件名
	ErrUnsupportedSourceType = errors.New("unsupported source type")

	// ErrNoDocuments 摄取时没有加载到任何文档
	ErrNoDocuments = errors.New("no documents loaded")

	// ErrEmptyIndex 向量索引为空，无法检索
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrModelMismatch 索引记录的向量模型与当前配置不一致
	ErrModelMismatch = errors.New("embedding model mismatch with existing index")
)
