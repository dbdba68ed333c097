package assistant

import (
	"strings"
	"unicode/utf8"

	"github.com/automentor/backend/internal/domain/knowledge"
)

const (
	// DefaultChunkSize 片段目标大小（字符数）
	DefaultChunkSize = 1000
	// DefaultChunkOverlap 相邻片段重叠大小（字符数）
	DefaultChunkOverlap = 100
)

// ChunkerOption 切分器配置选项
type ChunkerOption func(*Chunker)

// WithChunkSize 设置片段目标大小
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithChunkOverlap 设置相邻片段重叠大小
func WithChunkOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		c.chunkOverlap = overlap
	}
}

// Chunker 文本切分器
// 把文档切成最长 chunkSize 个字符的片段，相邻片段之间重叠 chunkOverlap 个字符。
// 切分点优先落在自然边界上：段落、换行、空格，最后才按字符硬切。
// 同样的输入和参数产出完全相同的片段序列
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建切分器
// 重叠大小不合法（负数或不小于片段大小）时回退为片段大小的十分之一
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		c.chunkSize = DefaultChunkSize
	}
	if c.chunkOverlap < 0 || c.chunkOverlap >= c.chunkSize {
		c.chunkOverlap = c.chunkSize / 10
	}
	return c
}

// ChunkSize 返回片段目标大小
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// ChunkOverlap 返回相邻片段重叠大小
func (c *Chunker) ChunkOverlap() int {
	return c.chunkOverlap
}

// Split 切分单个文档
// 片段继承文档元数据，位置从 0 开始编号
func (c *Chunker) Split(doc *knowledge.Document) []*knowledge.Chunk {
	pieces := c.splitText(doc.Text)
	chunks := make([]*knowledge.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, knowledge.NewChunk(piece, doc.Meta, i))
	}
	return chunks
}

// SplitAll 切分一组文档
// 同一来源文件的片段位置连续编号，CSV 多行文档共享同一来源时不会产生位置冲突
func (c *Chunker) SplitAll(docs []*knowledge.Document) []*knowledge.Chunk {
	positions := make(map[string]int)
	var chunks []*knowledge.Chunk

	for _, doc := range docs {
		for _, piece := range c.splitText(doc.Text) {
			pos := positions[doc.Meta.SourcePath]
			chunks = append(chunks, knowledge.NewChunk(piece, doc.Meta, pos))
			positions[doc.Meta.SourcePath] = pos + 1
		}
	}

	return chunks
}

// splitText 把文本切成重叠窗口
// 窗口结束位置向前吸附到最近的自然边界，下一窗口从结束位置回退 chunkOverlap 开始
func (c *Chunker) splitText(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.chunkSize {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < n {
		end := start + c.chunkSize
		if end >= n {
			pieces = append(pieces, string(runes[start:n]))
			break
		}

		end = c.snapToBoundary(runes, start, end)
		pieces = append(pieces, string(runes[start:end]))
		start = end - c.chunkOverlap
	}

	return pieces
}

// snapToBoundary 在窗口内向后寻找最近的自然边界
// 依次尝试段落、换行、空格；边界必须保证窗口推进超过重叠区，否则按字符硬切
func (c *Chunker) snapToBoundary(runes []rune, start, end int) int {
	minEnd := start + c.chunkOverlap + 1
	window := string(runes[start:end])

	for _, sep := range []string{"\n\n", "\n", " "} {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		// 分隔符归属前一个片段
		boundary := start + utf8.RuneCountInString(window[:idx+len(sep)])
		if boundary >= minEnd {
			return boundary
		}
	}

	return end
}
