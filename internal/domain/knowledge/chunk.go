package knowledge

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
)

// chunkNamespace 片段 ID 的 UUID 命名空间
// 固定不变，保证同一来源在不同进程中生成相同的片段 ID
var chunkNamespace = uuid.MustParse("9f2c1a47-5a83-4f6e-9b11-6d3af0c8e2b4")

// Chunk 知识片段
// 切分器的输出，是向量索引和检索的最小单位
type Chunk struct {
	ID       string       // 确定性 UUID，同时作为 Qdrant point_id
	Text     string       // 片段文本
	Meta     DocumentMeta // 源文档元数据
	Position int          // 在源文档中的序号（从 0 开始）
}

// NewChunkID 生成确定性片段 ID
// 同一来源路径、同一位置、同一内容哈希始终生成相同的 UUID，
// 重复摄取时 Qdrant upsert 会覆盖而不是累积重复点
func NewChunkID(sourcePath string, position int, contentHash string) string {
	name := fmt.Sprintf("%s#%d#%s", sourcePath, position, contentHash)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// HashText 计算文本内容哈希
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

// NewChunk 创建知识片段并生成确定性 ID
func NewChunk(text string, meta DocumentMeta, position int) *Chunk {
	return &Chunk{
		ID:       NewChunkID(meta.SourcePath, position, HashText(text)),
		Text:     text,
		Meta:     meta,
		Position: position,
	}
}

// ScoredChunk 带相似度分数的检索结果
type ScoredChunk struct {
	Chunk *Chunk  // 片段内容
	Score float32 // 余弦相似度分数
}

// SourceLabel 返回用于提示词引用的来源标签
// CSV 片段附带行号
func (c *Chunk) SourceLabel() string {
	name := c.SourceName()
	if c.Meta.SourceType == SourceTypeCSV && c.Meta.Row > 0 {
		return fmt.Sprintf("%s (row %d)", name, c.Meta.Row)
	}
	return name
}

// SourceName 返回来源文件名
func (c *Chunk) SourceName() string {
	doc := Document{Meta: c.Meta}
	return doc.SourceName()
}
