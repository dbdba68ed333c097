package handler

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/automentor/backend/internal/application/assistant"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig 每个测试用独立数据目录，避免读到真实配置
func testConfig(t *testing.T) *config.Config {
	t.Setenv(config.EnvDataDir, t.TempDir())
	return config.NewConfig()
}

// fakeMetaRepo 内存索引元信息仓库
type fakeMetaRepo struct {
	meta    *knowledge.IndexMeta
	deleted []string
}

func (r *fakeMetaRepo) SaveMeta(meta *knowledge.IndexMeta) error {
	r.meta = meta
	return nil
}

func (r *fakeMetaRepo) GetMeta(collection string) (*knowledge.IndexMeta, error) {
	if r.meta == nil || r.meta.Collection != collection {
		return nil, nil
	}
	return r.meta, nil
}

func (r *fakeMetaRepo) DeleteMeta(collection string) error {
	r.deleted = append(r.deleted, collection)
	r.meta = nil
	return nil
}

// fakeChatRepo 内存问答历史仓库
type fakeChatRepo struct {
	turns []*knowledge.ChatTurn
}

func (r *fakeChatRepo) SaveTurn(turn *knowledge.ChatTurn) error {
	r.turns = append(r.turns, turn)
	return nil
}

func (r *fakeChatRepo) ListTurns(offset, limit int) ([]*knowledge.ChatTurn, error) {
	if offset >= len(r.turns) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.turns) {
		end = len(r.turns)
	}
	return r.turns[offset:end], nil
}

func (r *fakeChatRepo) CountTurns() (int, error) {
	return len(r.turns), nil
}

func (r *fakeChatRepo) ClearAllTurns() error {
	r.turns = nil
	return nil
}

// fakeDocRepo 内存源文件状态仓库
type fakeDocRepo struct {
	records []*knowledge.DocumentRecord
	cleared bool
}

func (r *fakeDocRepo) SaveRecord(record *knowledge.DocumentRecord) error {
	r.records = append(r.records, record)
	return nil
}

func (r *fakeDocRepo) GetRecord(sourcePath string) (*knowledge.DocumentRecord, error) {
	for _, record := range r.records {
		if record.SourcePath == sourcePath {
			return record, nil
		}
	}
	return nil, nil
}

func (r *fakeDocRepo) ListRecords() ([]*knowledge.DocumentRecord, error) {
	return r.records, nil
}

func (r *fakeDocRepo) DeleteRecord(sourcePath string) error {
	return nil
}

func (r *fakeDocRepo) UpdateFileMtime(sourcePath string, mtime int64) error {
	return nil
}

func (r *fakeDocRepo) ClearAllRecords() error {
	r.cleared = true
	r.records = nil
	return nil
}

// fakeIndex 内存向量索引
type fakeIndex struct {
	points  uint64
	dropped bool
}

func (x *fakeIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error { return nil }

func (x *fakeIndex) RecreateCollection(ctx context.Context, vectorSize uint64) error { return nil }

func (x *fakeIndex) DropCollection(ctx context.Context) error {
	x.dropped = true
	x.points = 0
	return nil
}

func (x *fakeIndex) CountPoints(ctx context.Context) (uint64, error) {
	return x.points, nil
}

func (x *fakeIndex) UpsertChunks(ctx context.Context, chunks []*knowledge.Chunk, vectors [][]float32) error {
	return nil
}

func (x *fakeIndex) QueryNearest(ctx context.Context, vector []float32, limit int) ([]*knowledge.ScoredChunk, error) {
	return nil, nil
}

func (x *fakeIndex) DeleteBySourcePath(ctx context.Context, sourcePath string) error { return nil }

// newTestService 构建未初始化的助手服务
// 索引元信息为空，懒初始化会返回 ErrEmptyIndex
func newTestService(cfg *config.Config, metaRepo knowledge.IndexMetaRepository, chatRepo knowledge.ChatRepository, index assistant.VectorIndex) *assistant.AssistantService {
	return assistant.NewAssistantService(cfg, nil, index, metaRepo, chatRepo, nil, nil)
}
