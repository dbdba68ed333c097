// Package assistant 实现问答管线的应用层：
// 文档加载、切分、向量化摄取、检索和回答生成
package assistant

import (
	"context"

	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/llm"
)

// Embedder 向量化客户端接口
// 由 infrastructure/embedding 的 HTTP 客户端实现
type Embedder interface {
	// EmbedTexts 批量向量化文本，结果顺序与输入一致
	EmbedTexts(texts []string) ([][]float32, error)
	// GetVectorDimension 探测向量维度
	GetVectorDimension() (int, error)
	// Model 返回向量模型名称
	Model() string
}

// Generator 回答生成客户端接口
// 由 infrastructure/llm 的 HTTP 客户端实现
type Generator interface {
	// Chat 发送对话消息并返回回答文本
	Chat(messages []llm.Message) (string, error)
	// Model 返回对话模型名称
	Model() string
}

// VectorIndex 向量索引接口
// 由 infrastructure/vector 的 ChunkIndex 实现
type VectorIndex interface {
	// EnsureCollection 确保集合存在
	EnsureCollection(ctx context.Context, vectorSize uint64) error
	// RecreateCollection 删除并重建集合
	RecreateCollection(ctx context.Context, vectorSize uint64) error
	// DropCollection 删除集合
	DropCollection(ctx context.Context) error
	// CountPoints 统计集合中的点数量
	CountPoints(ctx context.Context) (uint64, error)
	// UpsertChunks 写入片段及其向量
	UpsertChunks(ctx context.Context, chunks []*knowledge.Chunk, vectors [][]float32) error
	// QueryNearest 按余弦相似度检索最近的片段
	QueryNearest(ctx context.Context, vector []float32, limit int) ([]*knowledge.ScoredChunk, error)
	// DeleteBySourcePath 删除某个源文件的全部片段
	DeleteBySourcePath(ctx context.Context, sourcePath string) error
}

// TokenCounter token 计数接口
// 由 infrastructure/llm 的 tiktoken 计数器实现
type TokenCounter interface {
	// CountTokens 统计文本的 token 数量
	CountTokens(text string) int
}

// CommandRunner 外部命令执行接口
// 生产实现使用 exec.CommandContext，测试中可替换
type CommandRunner interface {
	// Run 执行命令并返回标准输出
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
