package assistant

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/automentor/backend/internal/domain/events"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/llm"
)

// fakeEmbedder 确定性向量化实现
// 把文本按词哈希到固定维度的词袋向量并归一化，
// 共享词越多的文本余弦相似度越高
type fakeEmbedder struct {
	mu    sync.Mutex
	model string
	dim   int
	calls int
	err   error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{model: "fake-embed", dim: 64}
}

func (e *fakeEmbedder) EmbedTexts(texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return nil, e.err
	}

	e.calls++
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *fakeEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,:;!?()[]\"'")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[int(h.Sum32())%e.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func (e *fakeEmbedder) GetVectorDimension() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return 0, e.err
	}
	return e.dim, nil
}

func (e *fakeEmbedder) Model() string {
	return e.model
}

// fakeGenerator 可编程的回答生成实现
// echo 为 true 时回显最后一条用户消息，便于验证提示词内容；
// block 非 nil 时 Chat 阻塞直到通道关闭
type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	echo  bool
	block chan struct{}
	calls [][]llm.Message
}

func (g *fakeGenerator) Chat(messages []llm.Message) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, messages)
	block := g.block
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if g.err != nil {
		return "", g.err
	}
	if g.echo {
		return messages[len(messages)-1].Content, nil
	}
	return g.reply, nil
}

func (g *fakeGenerator) Model() string {
	return "fake-llm"
}

func (g *fakeGenerator) lastMessages() []llm.Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.calls) == 0 {
		return nil
	}
	return g.calls[len(g.calls)-1]
}

// fakeIndex 内存向量索引
// 余弦相似度检索，语义与 Qdrant 集合保持一致
type fakeIndex struct {
	mu        sync.Mutex
	points    map[string]*indexedPoint
	created   bool
	recreated int
	deleted   []string
	upsertErr error
	queryErr  error
	deleteErr error
}

type indexedPoint struct {
	chunk  *knowledge.Chunk
	vector []float32
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string]*indexedPoint)}
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = true
	return nil
}

func (f *fakeIndex) RecreateCollection(ctx context.Context, vectorSize uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = make(map[string]*indexedPoint)
	f.created = true
	f.recreated++
	return nil
}

func (f *fakeIndex) DropCollection(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = make(map[string]*indexedPoint)
	f.created = false
	return nil
}

func (f *fakeIndex) CountPoints(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.points)), nil
}

func (f *fakeIndex) UpsertChunks(ctx context.Context, chunks []*knowledge.Chunk, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upsertErr != nil {
		return f.upsertErr
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	for i, chunk := range chunks {
		f.points[chunk.ID] = &indexedPoint{chunk: chunk, vector: vectors[i]}
	}
	return nil
}

func (f *fakeIndex) QueryNearest(ctx context.Context, vector []float32, limit int) ([]*knowledge.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	var hits []*knowledge.ScoredChunk
	for _, point := range f.points {
		hits = append(hits, &knowledge.ScoredChunk{
			Chunk: point.chunk,
			Score: cosineSimilarity(vector, point.vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeIndex) DeleteBySourcePath(ctx context.Context, sourcePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}

	for id, point := range f.points {
		if point.chunk.Meta.SourcePath == sourcePath {
			delete(f.points, id)
		}
	}
	f.deleted = append(f.deleted, sourcePath)
	return nil
}

func (f *fakeIndex) chunksOf(sourcePath string) []*knowledge.Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()

	var chunks []*knowledge.Chunk
	for _, point := range f.points {
		if point.chunk.Meta.SourcePath == sourcePath {
			chunks = append(chunks, point.chunk)
		}
	}
	return chunks
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// memDocumentRepo 内存文档状态仓储
type memDocumentRepo struct {
	mu      sync.Mutex
	records map[string]*knowledge.DocumentRecord
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{records: make(map[string]*knowledge.DocumentRecord)}
}

func (r *memDocumentRepo) SaveRecord(record *knowledge.DocumentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *record
	r.records[record.SourcePath] = &saved
	return nil
}

func (r *memDocumentRepo) GetRecord(sourcePath string) (*knowledge.DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[sourcePath]
	if !ok {
		return nil, nil
	}
	found := *record
	return &found, nil
}

func (r *memDocumentRepo) ListRecords() ([]*knowledge.DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make([]*knowledge.DocumentRecord, 0, len(r.records))
	for _, record := range r.records {
		listed := *record
		records = append(records, &listed)
	}
	return records, nil
}

func (r *memDocumentRepo) DeleteRecord(sourcePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, sourcePath)
	return nil
}

func (r *memDocumentRepo) UpdateFileMtime(sourcePath string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[sourcePath]; ok {
		record.FileMtime = mtime
	}
	return nil
}

func (r *memDocumentRepo) ClearAllRecords() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]*knowledge.DocumentRecord)
	return nil
}

func (r *memDocumentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// memMetaRepo 内存索引元信息仓储
type memMetaRepo struct {
	mu    sync.Mutex
	metas map[string]*knowledge.IndexMeta
}

func newMemMetaRepo() *memMetaRepo {
	return &memMetaRepo{metas: make(map[string]*knowledge.IndexMeta)}
}

func (r *memMetaRepo) SaveMeta(meta *knowledge.IndexMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *meta
	r.metas[meta.Collection] = &saved
	return nil
}

func (r *memMetaRepo) GetMeta(collection string) (*knowledge.IndexMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.metas[collection]
	if !ok {
		return nil, nil
	}
	found := *meta
	return &found, nil
}

func (r *memMetaRepo) DeleteMeta(collection string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.metas, collection)
	return nil
}

// memChatRepo 内存问答历史仓储
type memChatRepo struct {
	mu      sync.Mutex
	turns   []*knowledge.ChatTurn
	saveErr error
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{}
}

func (r *memChatRepo) SaveTurn(turn *knowledge.ChatTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	saved := *turn
	r.turns = append(r.turns, &saved)
	return nil
}

func (r *memChatRepo) ListTurns(offset, limit int) ([]*knowledge.ChatTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.turns) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.turns) {
		end = len(r.turns)
	}
	return r.turns[offset:end], nil
}

func (r *memChatRepo) CountTurns() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns), nil
}

func (r *memChatRepo) ClearAllTurns() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = nil
	return nil
}

// fakeBus 捕获已发布事件的同步事件总线
type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *fakeBus) Subscribe(eventType events.EventType, handler events.Handler) func() {
	return func() {}
}

func (b *fakeBus) SubscribeMultiple(eventTypes []events.EventType, handler events.Handler) func() {
	return func() {}
}

func (b *fakeBus) Publish(event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *fakeBus) Close() {}

func (b *fakeBus) byType(eventType events.EventType) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []events.Event
	for _, event := range b.published {
		if event.Type() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// wordCounter 按空白分词计数的测试用 token 计数器
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// charCounter 按字节计数的测试用 token 计数器
// 预算断言时计数完全可控
type charCounter struct{}

func (charCounter) CountTokens(text string) int {
	return len(text)
}

// fakeRunner 可编程的外部命令执行器
type fakeRunner struct {
	output   []byte
	err      error
	lastName string
	lastArgs []string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.lastName = name
	r.lastArgs = args
	if r.err != nil {
		return nil, r.err
	}
	return r.output, nil
}

// newTestConfig 构造测试用配置
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Ingest: config.IngestConfig{
			SourceDocsDir:  t.TempDir(),
			ChunkSize:      200,
			ChunkOverlap:   20,
			MaxUploadBytes: 1 << 20,
		},
		Embedding: config.EmbeddingConfig{Model: "fake-embed", BatchSize: 16},
		LLM:       config.LLMConfig{Model: "fake-llm", MaxContextTokens: 3000},
		Retrieval: config.RetrievalConfig{TopK: 5},
		Qdrant:    config.QdrantConfig{Collection: "test_chunks"},
	}
}

// newTestIngestService 构造接入内存实现的摄取服务
func newTestIngestService(t *testing.T, cfg *config.Config) (*IngestService, *fakeEmbedder, *fakeIndex, *memDocumentRepo, *memMetaRepo) {
	t.Helper()

	embedder := newFakeEmbedder()
	index := newFakeIndex()
	docRepo := newMemDocumentRepo()
	metaRepo := newMemMetaRepo()

	chunker := NewChunker(
		WithChunkSize(cfg.Ingest.ChunkSize),
		WithChunkOverlap(cfg.Ingest.ChunkOverlap),
	)

	svc := NewIngestService(cfg, nil, NewDocumentLoader(nil), chunker, index, docRepo, metaRepo, wordCounter{}, nil)
	svc.newClients = func(*config.Config) (Embedder, Generator) {
		return embedder, &fakeGenerator{reply: "ok"}
	}

	return svc, embedder, index, docRepo, metaRepo
}

// writeSourceFile 在目录下写一个源文档
func writeSourceFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
