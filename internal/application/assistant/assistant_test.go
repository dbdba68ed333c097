package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/log"
)

// newTestAssistant 组装接入内存实现的助手
func newTestAssistant(embedder *fakeEmbedder, index *fakeIndex, gen *fakeGenerator, chatRepo knowledge.ChatRepository) *Assistant {
	return &Assistant{
		embedder:  embedder,
		generator: gen,
		index:     index,
		prompt:    NewPromptBuilder(wordCounter{}, 3000),
		memory:    NewConversationMemory(0),
		chatRepo:  chatRepo,
		topK:      5,
		logger:    log.NewModuleLogger("assistant", "assistant"),
	}
}

// seedChunk 向索引写入一个片段及其向量
func seedChunk(t *testing.T, embedder *fakeEmbedder, index *fakeIndex, sourcePath, text string) {
	t.Helper()

	meta := knowledge.DocumentMeta{SourcePath: sourcePath, SourceType: knowledge.SourceTypeTXT}
	chunk := knowledge.NewChunk(text, meta, 0)

	vectors, err := embedder.EmbedTexts([]string{text})
	require.NoError(t, err)
	require.NoError(t, index.UpsertChunks(context.Background(), []*knowledge.Chunk{chunk}, vectors))
}

// TestAssistant_Search_RanksRelevantChunkFirst 测试共享词最多的片段排名最高
func TestAssistant_Search_RanksRelevantChunkFirst(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	a := newTestAssistant(embedder, index, &fakeGenerator{reply: "ok"}, nil)

	seedChunk(t, embedder, index, "/docs/tire.txt", "Recommended tire pressure for this vehicle is 32 psi")
	seedChunk(t, embedder, index, "/docs/oil.txt", "Change engine oil every 10000 kilometers")
	seedChunk(t, embedder, index, "/docs/brake.txt", "Inspect brake pads during scheduled maintenance")

	hits, err := a.Search(context.Background(), "what is the recommended tire pressure", 3)

	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "/docs/tire.txt", hits[0].Chunk.Meta.SourcePath)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

// TestAssistant_Ask_TirePressureEndToEnd 测试从提问到回答的完整管线
func TestAssistant_Ask_TirePressureEndToEnd(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	chatRepo := newMemChatRepo()
	// 回显最后一条用户消息，回答即组装出的提示词内容
	gen := &fakeGenerator{echo: true}
	a := newTestAssistant(embedder, index, gen, chatRepo)

	seedChunk(t, embedder, index, "/docs/manual.txt", "Recommended tire pressure: 32 psi front and rear")
	seedChunk(t, embedder, index, "/docs/manual.txt", "Rotate tires every 8000 kilometers")
	seedChunk(t, embedder, index, "/docs/wipers.txt", "Replace wiper blades once a year")

	answer, err := a.Ask(context.Background(), "What tire pressure is recommended?")

	require.NoError(t, err)
	// 检索到的片段进入上下文，回答携带手册中的数值
	assert.Contains(t, answer.Answer, "32 psi")
	assert.Contains(t, answer.Answer, "Context:")
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "manual.txt", answer.Sources[0])

	// 人设固定在第一条 system 消息
	messages := gen.lastMessages()
	require.NotEmpty(t, messages)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, personaPrompt, messages[0].Content)

	// 成功的问答写入记忆和历史库
	assert.Equal(t, 1, a.Memory().Len())
	count, err := chatRepo.CountTurns()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestAssistant_Ask_EmptyQuestion 测试空问题直接拒绝
func TestAssistant_Ask_EmptyQuestion(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	a := newTestAssistant(embedder, index, &fakeGenerator{reply: "ok"}, nil)

	for _, question := range []string{"", "   ", "\n\t"} {
		_, err := a.Ask(context.Background(), question)
		require.Error(t, err)
	}

	assert.Equal(t, 0, a.Memory().Len())
	assert.Equal(t, 0, embedder.calls, "empty question should not reach the embedder")
}

// TestAssistant_Ask_EmptyIndex 测试空索引返回 ErrEmptyIndex
func TestAssistant_Ask_EmptyIndex(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	a := newTestAssistant(embedder, index, &fakeGenerator{reply: "ok"}, nil)

	_, err := a.Ask(context.Background(), "anything at all")

	require.Error(t, err)
	assert.ErrorIs(t, err, knowledge.ErrEmptyIndex)
	assert.Equal(t, 0, a.Memory().Len())
}

// TestAssistant_Ask_GeneratorFailure 测试生成失败后记忆不变、状态恢复
func TestAssistant_Ask_GeneratorFailure(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	chatRepo := newMemChatRepo()
	gen := &fakeGenerator{err: assert.AnError}
	a := newTestAssistant(embedder, index, gen, chatRepo)

	seedChunk(t, embedder, index, "/docs/manual.txt", "Recommended tire pressure: 32 psi")

	_, err := a.Ask(context.Background(), "what is the tire pressure")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate answer")
	assert.Equal(t, 0, a.Memory().Len(), "memory must stay untouched on failure")
	count, _ := chatRepo.CountTurns()
	assert.Equal(t, 0, count)
	assert.Equal(t, StateReady, a.State())

	// 失败后助手可以继续回答
	gen.err = nil
	gen.reply = "32 psi"
	answer, err := a.Ask(context.Background(), "what is the tire pressure")
	require.NoError(t, err)
	assert.Equal(t, "32 psi", answer.Answer)
	assert.Equal(t, 1, a.Memory().Len())
}

// TestAssistant_Ask_EmbedderFailure 测试向量化失败
func TestAssistant_Ask_EmbedderFailure(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.err = assert.AnError
	index := newFakeIndex()
	a := newTestAssistant(embedder, index, &fakeGenerator{reply: "ok"}, nil)

	_, err := a.Ask(context.Background(), "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed query")
	assert.Equal(t, 0, a.Memory().Len())
	assert.Equal(t, StateReady, a.State())
}

// TestAssistant_Ask_CarriesHistory 测试后续提问携带历史轮次
func TestAssistant_Ask_CarriesHistory(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	gen := &fakeGenerator{reply: "first answer"}
	a := newTestAssistant(embedder, index, gen, nil)

	seedChunk(t, embedder, index, "/docs/manual.txt", "Recommended tire pressure: 32 psi")

	_, err := a.Ask(context.Background(), "first question about tire pressure")
	require.NoError(t, err)

	gen.reply = "second answer"
	_, err = a.Ask(context.Background(), "follow-up question about tire pressure")
	require.NoError(t, err)

	messages := gen.lastMessages()
	require.Len(t, messages, 4)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "first question about tire pressure", messages[1].Content)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "first answer", messages[2].Content)
}

// TestAssistant_Ask_PersistFailureTolerated 测试历史库写入失败不影响回答
func TestAssistant_Ask_PersistFailureTolerated(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	chatRepo := newMemChatRepo()
	chatRepo.saveErr = assert.AnError
	a := newTestAssistant(embedder, index, &fakeGenerator{reply: "ok"}, chatRepo)

	seedChunk(t, embedder, index, "/docs/manual.txt", "Recommended tire pressure: 32 psi")

	answer, err := a.Ask(context.Background(), "what is the tire pressure")

	require.NoError(t, err)
	assert.Equal(t, "ok", answer.Answer)
	assert.Equal(t, 1, a.Memory().Len())
}

// TestAssistant_State 测试回答生成期间的状态切换
func TestAssistant_State(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	release := make(chan struct{})
	gen := &fakeGenerator{reply: "ok", block: release}
	a := newTestAssistant(embedder, index, gen, nil)

	seedChunk(t, embedder, index, "/docs/manual.txt", "Recommended tire pressure: 32 psi")

	assert.Equal(t, StateReady, a.State())

	done := make(chan error, 1)
	go func() {
		_, err := a.Ask(context.Background(), "what is the tire pressure")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return a.State() == StateAnswering
	}, 2*time.Second, 10*time.Millisecond)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, a.State())
}

// TestAssistant_Search_ZeroLimitUsesTopK 测试检索数量回退为 top-K
func TestAssistant_Search_ZeroLimitUsesTopK(t *testing.T) {
	embedder := newFakeEmbedder()
	index := newFakeIndex()
	a := newTestAssistant(embedder, index, &fakeGenerator{reply: "ok"}, nil)
	a.topK = 2

	seedChunk(t, embedder, index, "/docs/a.txt", "tire pressure reference")
	seedChunk(t, embedder, index, "/docs/b.txt", "tire rotation schedule")
	seedChunk(t, embedder, index, "/docs/c.txt", "tire sidewall markings")

	hits, err := a.Search(context.Background(), "tire", 0)

	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

// TestSourceLabels_DedupKeepsRankOrder 测试来源标签去重且保持相关度顺序
func TestSourceLabels_DedupKeepsRankOrder(t *testing.T) {
	hits := []*knowledge.ScoredChunk{
		scoredChunk("a", "/docs/manual.txt", knowledge.SourceTypeTXT, 0, 0.9),
		scoredChunk("b", "/docs/cars.csv", knowledge.SourceTypeCSV, 2, 0.8),
		scoredChunk("c", "/docs/manual.txt", knowledge.SourceTypeTXT, 0, 0.7),
	}

	labels := sourceLabels(hits)

	assert.Equal(t, []string{"manual.txt", "cars.csv (row 2)"}, labels)
}
