package assistant

import (
	"fmt"
	"strings"

	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/llm"
)

// personaPrompt 系统提示词，定义助手的角色和回答规范
const personaPrompt = "You are AutoMentor, a knowledgeable and precise automotive AI assistant. " +
	"Use the following pieces of context to answer the user's question. " +
	"If you don't know the answer from the context provided, state that you don't have enough information, don't try to make up an answer. " +
	"Always provide step-by-step instructions in a clear, numbered list if the query involves a procedure. " +
	"Cite the source document if its metadata is available in the context."

// noContextPlaceholder 没有检索到任何上下文时的占位内容
const noContextPlaceholder = "(no relevant context found)"

// PromptBuilder 提示词构建器
// 按固定模板组装消息：系统角色提示、历史轮次、携带检索上下文的用户消息
type PromptBuilder struct {
	tokens           TokenCounter
	maxContextTokens int
}

// NewPromptBuilder 创建提示词构建器
func NewPromptBuilder(tokens TokenCounter, maxContextTokens int) *PromptBuilder {
	if maxContextTokens <= 0 {
		maxContextTokens = 3000
	}
	return &PromptBuilder{
		tokens:           tokens,
		maxContextTokens: maxContextTokens,
	}
}

// BuildMessages 组装一次提问的完整消息序列
// 历史轮次按时间顺序展开为 user/assistant 交替消息
func (b *PromptBuilder) BuildMessages(question string, history []Turn, hits []*knowledge.ScoredChunk) []llm.Message {
	messages := make([]llm.Message, 0, len(history)*2+2)

	messages = append(messages, llm.Message{Role: "system", Content: personaPrompt})

	for _, turn := range history {
		messages = append(messages, llm.Message{Role: "user", Content: turn.Question})
		messages = append(messages, llm.Message{Role: "assistant", Content: turn.Answer})
	}

	messages = append(messages, llm.Message{Role: "user", Content: b.buildUserContent(question, hits)})

	return messages
}

// buildUserContent 组装携带检索上下文的用户消息
// 沿用 Context/Question/Answer 的模板形状
func (b *PromptBuilder) buildUserContent(question string, hits []*knowledge.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(b.buildContext(hits))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}

// buildContext 把检索片段按相关度顺序拼成上下文块
// 超出 token 预算时丢弃后续片段；排名最高的片段即使超预算也会保留
func (b *PromptBuilder) buildContext(hits []*knowledge.ScoredChunk) string {
	if len(hits) == 0 {
		return noContextPlaceholder
	}

	var blocks []string
	used := 0
	for _, hit := range hits {
		block := fmt.Sprintf("[Source: %s]\n%s", hit.Chunk.SourceLabel(), hit.Chunk.Text)
		cost := b.tokens.CountTokens(block)
		if len(blocks) > 0 && used+cost > b.maxContextTokens {
			break
		}
		blocks = append(blocks, block)
		used += cost
	}

	return strings.Join(blocks, "\n\n---\n\n")
}
