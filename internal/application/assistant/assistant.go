package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/automentor/backend/internal/domain/knowledge"
)

// 助手状态
const (
	// StateNotReady 索引未就绪，助手尚未构建
	StateNotReady = "not_ready"
	// StateReady 可以接受提问
	StateReady = "ready"
	// StateAnswering 正在生成回答
	StateAnswering = "answering"
)

// Answer 一次提问的结果
type Answer struct {
	// Answer 回答文本
	Answer string `json:"answer"`
	// Sources 检索片段的去重来源标签，按相关度排序
	Sources []string `json:"sources"`
}

// Assistant 问答助手
// 持有一次初始化产出的完整管线：向量化客户端、索引、提示词模板和生成客户端。
// 并发提问安全；重载不会修改已存在的实例，而是整体替换
type Assistant struct {
	embedder  Embedder
	generator Generator
	index     VectorIndex
	prompt    *PromptBuilder
	memory    *ConversationMemory
	chatRepo  knowledge.ChatRepository
	topK      int
	inFlight  atomic.Int32
	logger    *slog.Logger
}

// State 返回当前状态
// 只要有提问在生成回答中就是 answering
func (a *Assistant) State() string {
	if a.inFlight.Load() > 0 {
		return StateAnswering
	}
	return StateReady
}

// Ask 回答一个问题
// 检索 top-K 片段、构建提示词、调用生成模型；成功后把问答写入对话记忆。
// 生成失败时记忆保持不变，状态总是恢复为 ready
func (a *Assistant) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	a.inFlight.Add(1)
	defer a.inFlight.Add(-1)

	start := time.Now()

	hits, err := a.retrieve(ctx, question, a.topK)
	if err != nil {
		return nil, err
	}

	messages := a.prompt.BuildMessages(question, a.memory.History(), hits)

	answer, err := a.generator.Chat(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	sources := sourceLabels(hits)
	a.memory.Append(question, answer)
	a.persistTurn(question, answer, sources)

	a.logger.Info("question answered",
		"question_length", len(question),
		"sources", len(sources),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Answer{Answer: answer, Sources: sources}, nil
}

// Search 只做检索，不生成回答
// 供语义搜索接口使用
func (a *Assistant) Search(ctx context.Context, query string, limit int) ([]*knowledge.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if limit <= 0 {
		limit = a.topK
	}

	return a.retrieve(ctx, query, limit)
}

// retrieve 向量化查询并检索最近的片段
func (a *Assistant) retrieve(ctx context.Context, query string, limit int) ([]*knowledge.ScoredChunk, error) {
	vectors, err := a.embedder.EmbedTexts([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("invalid embedding result")
	}

	hits, err := a.index.QueryNearest(ctx, vectors[0], limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("%w: no chunks found", knowledge.ErrEmptyIndex)
	}

	return hits, nil
}

// persistTurn 把问答写入历史库
// 历史库是审计记录，写入失败不影响本次回答
func (a *Assistant) persistTurn(question, answer string, sources []string) {
	if a.chatRepo == nil {
		return
	}

	turn := &knowledge.ChatTurn{
		ID:        uuid.New().String(),
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		CreatedAt: time.Now().Unix(),
	}
	if err := a.chatRepo.SaveTurn(turn); err != nil {
		a.logger.Warn("failed to persist chat turn", "error", err)
	}
}

// Memory 返回对话记忆
func (a *Assistant) Memory() *ConversationMemory {
	return a.memory
}

// EmbeddingModel 返回向量模型名称
func (a *Assistant) EmbeddingModel() string {
	return a.embedder.Model()
}

// GeneratorModel 返回对话模型名称
func (a *Assistant) GeneratorModel() string {
	return a.generator.Model()
}

// sourceLabels 提取检索片段的去重来源标签，保持相关度顺序
func sourceLabels(hits []*knowledge.ScoredChunk) []string {
	seen := make(map[string]bool, len(hits))
	labels := make([]string, 0, len(hits))
	for _, hit := range hits {
		label := hit.Chunk.SourceLabel()
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}
