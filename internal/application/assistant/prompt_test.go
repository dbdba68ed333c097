package assistant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automentor/backend/internal/domain/knowledge"
)

func scoredChunk(text, sourcePath string, sourceType knowledge.SourceType, row int, score float32) *knowledge.ScoredChunk {
	return &knowledge.ScoredChunk{
		Chunk: &knowledge.Chunk{
			ID:   knowledge.NewChunkID(sourcePath, 0, knowledge.HashText(text)),
			Text: text,
			Meta: knowledge.DocumentMeta{SourcePath: sourcePath, SourceType: sourceType, Row: row},
		},
		Score: score,
	}
}

// TestPromptBuilder_MessageLayout 测试消息结构
func TestPromptBuilder_MessageLayout(t *testing.T) {
	b := NewPromptBuilder(wordCounter{}, 3000)

	hits := []*knowledge.ScoredChunk{
		scoredChunk("Recommended tire pressure is 32 psi.", "/docs/manual.txt", knowledge.SourceTypeTXT, 0, 0.9),
	}

	messages := b.BuildMessages("What is the tire pressure?", nil, hits)

	require.Len(t, messages, 2)

	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, personaPrompt, messages[0].Content)
	assert.Contains(t, messages[0].Content, "AutoMentor")

	assert.Equal(t, "user", messages[1].Role)
	content := messages[1].Content
	assert.True(t, strings.HasPrefix(content, "Context:\n"))
	assert.Contains(t, content, "[Source: manual.txt]")
	assert.Contains(t, content, "Recommended tire pressure is 32 psi.")
	assert.Contains(t, content, "\n\nQuestion: What is the tire pressure?")
	assert.True(t, strings.HasSuffix(content, "\nAnswer:"))
}

// TestPromptBuilder_HistoryAlternation 测试历史轮次展开为交替消息
func TestPromptBuilder_HistoryAlternation(t *testing.T) {
	b := NewPromptBuilder(wordCounter{}, 3000)

	history := []Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}
	hits := []*knowledge.ScoredChunk{
		scoredChunk("context text", "/docs/manual.txt", knowledge.SourceTypeTXT, 0, 0.8),
	}

	messages := b.BuildMessages("q3", history, hits)

	require.Len(t, messages, 6)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "q1", messages[1].Content)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "a1", messages[2].Content)
	assert.Equal(t, "user", messages[3].Role)
	assert.Equal(t, "q2", messages[3].Content)
	assert.Equal(t, "assistant", messages[4].Role)
	assert.Equal(t, "a2", messages[4].Content)
	assert.Equal(t, "user", messages[5].Role)
	assert.Contains(t, messages[5].Content, "Question: q3")
}

// TestPromptBuilder_SourceAnnotations 测试来源标注
func TestPromptBuilder_SourceAnnotations(t *testing.T) {
	b := NewPromptBuilder(wordCounter{}, 3000)

	hits := []*knowledge.ScoredChunk{
		scoredChunk("pressure table", "/docs/cars.csv", knowledge.SourceTypeCSV, 3, 0.9),
		scoredChunk("general advice", "/docs/guide.txt", knowledge.SourceTypeTXT, 0, 0.7),
	}

	messages := b.BuildMessages("q", nil, hits)
	content := messages[len(messages)-1].Content

	assert.Contains(t, content, "[Source: cars.csv (row 3)]")
	assert.Contains(t, content, "[Source: guide.txt]")
	// 片段之间用分隔线隔开
	assert.Contains(t, content, "\n\n---\n\n")
}

// TestPromptBuilder_ContextBudget 测试 token 预算截断
func TestPromptBuilder_ContextBudget(t *testing.T) {
	first := scoredChunk("AAAA", "/docs/a.txt", knowledge.SourceTypeTXT, 0, 0.9)
	second := scoredChunk("BBBB", "/docs/b.txt", knowledge.SourceTypeTXT, 0, 0.8)

	firstCost := len(fmt.Sprintf("[Source: %s]\n%s", "a.txt", "AAAA"))
	secondCost := len(fmt.Sprintf("[Source: %s]\n%s", "b.txt", "BBBB"))

	// 预算刚好容不下第二个片段
	b := NewPromptBuilder(charCounter{}, firstCost+secondCost-1)
	content := b.buildContext([]*knowledge.ScoredChunk{first, second})
	assert.Contains(t, content, "AAAA")
	assert.NotContains(t, content, "BBBB")

	// 预算足够时两个片段都保留
	b = NewPromptBuilder(charCounter{}, firstCost+secondCost)
	content = b.buildContext([]*knowledge.ScoredChunk{first, second})
	assert.Contains(t, content, "AAAA")
	assert.Contains(t, content, "BBBB")
}

// TestPromptBuilder_FirstHitAlwaysKept 测试排名最高的片段即使超预算也保留
func TestPromptBuilder_FirstHitAlwaysKept(t *testing.T) {
	b := NewPromptBuilder(charCounter{}, 1)

	hits := []*knowledge.ScoredChunk{
		scoredChunk(strings.Repeat("long context ", 50), "/docs/a.txt", knowledge.SourceTypeTXT, 0, 0.9),
	}

	content := b.buildContext(hits)
	assert.Contains(t, content, "long context")
}

// TestPromptBuilder_NoHits 测试无检索结果时的占位上下文
func TestPromptBuilder_NoHits(t *testing.T) {
	b := NewPromptBuilder(wordCounter{}, 3000)

	messages := b.BuildMessages("anything", nil, nil)
	content := messages[len(messages)-1].Content

	assert.Contains(t, content, noContextPlaceholder)
}
