package vector

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/log"
)

// ChunkIndex 知识片段的向量索引
// 封装片段与 Qdrant 点之间的双向映射，上层只操作领域类型
type ChunkIndex struct {
	manager *QdrantManager
	logger  *slog.Logger
}

// NewChunkIndex 创建片段索引
func NewChunkIndex(manager *QdrantManager) *ChunkIndex {
	return &ChunkIndex{
		manager: manager,
		logger:  log.NewModuleLogger("vector", "chunk_index"),
	}
}

// EnsureCollection 确保集合存在
func (x *ChunkIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	return x.manager.EnsureCollection(ctx, vectorSize)
}

// RecreateCollection 删除并重建集合
func (x *ChunkIndex) RecreateCollection(ctx context.Context, vectorSize uint64) error {
	return x.manager.RecreateCollection(ctx, vectorSize)
}

// DropCollection 删除集合
func (x *ChunkIndex) DropCollection(ctx context.Context) error {
	return x.manager.DropCollection(ctx)
}

// CountPoints 统计集合中的点数量
func (x *ChunkIndex) CountPoints(ctx context.Context) (uint64, error) {
	return x.manager.CountPoints(ctx)
}

// UpsertChunks 将片段及其向量写入集合
// 片段 ID 是确定性的，重复写入相同内容会覆盖已有的点
func (x *ChunkIndex) UpsertChunks(ctx context.Context, chunks []*knowledge.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	client := x.manager.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	points := buildChunkPoints(chunks, vectors)

	_, err := client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.manager.Collection(),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	x.logger.Debug("chunks upserted", "count", len(points))

	return nil
}

// QueryNearest 按余弦相似度检索最近的片段
func (x *ChunkIndex) QueryNearest(ctx context.Context, vector []float32, limit int) ([]*knowledge.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	client := x.manager.GetClient()
	if client == nil {
		return nil, fmt.Errorf("qdrant client not initialized")
	}

	queryLimit := uint64(limit)
	hits, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.manager.Collection(),
		Query:          qdrant.NewQuery(vector...),
		Limit:          &queryLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	results := make([]*knowledge.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		if chunk := hitToChunk(hit); chunk != nil {
			results = append(results, &knowledge.ScoredChunk{
				Chunk: chunk,
				Score: hit.GetScore(),
			})
		}
	}

	return results, nil
}

// DeleteBySourcePath 删除某个源文件的全部片段
func (x *ChunkIndex) DeleteBySourcePath(ctx context.Context, sourcePath string) error {
	client := x.manager.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	_, err := client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.manager.Collection(),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("source_path", sourcePath),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks by source path: %w", err)
	}

	return nil
}

// buildChunkPoints 构建 Qdrant 点
// Qdrant 客户端要求所有字符串必须是有效的 UTF-8
func buildChunkPoints(chunks []*knowledge.Chunk, vectors [][]float32) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, len(chunks))

	for i, chunk := range chunks {
		vectorArgs := make([]float32, len(vectors[i]))
		copy(vectorArgs, vectors[i])

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ID),
			Vectors: qdrant.NewVectors(vectorArgs...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"chunk_id":    chunk.ID,
				"text":        sanitizeUTF8(chunk.Text),
				"source_path": sanitizeUTF8(chunk.Meta.SourcePath),
				"source_type": string(chunk.Meta.SourceType),
				"row":         int64(chunk.Meta.Row),
				"position":    int64(chunk.Position),
			}),
		}
	}

	return points
}

// hitToChunk 将检索命中还原为片段
func hitToChunk(hit *qdrant.ScoredPoint) *knowledge.Chunk {
	payload := hit.GetPayload()
	if payload == nil {
		return nil
	}

	chunk := &knowledge.Chunk{}
	if val, ok := payload["chunk_id"]; ok {
		chunk.ID = extractStringValue(val)
	}
	if val, ok := payload["text"]; ok {
		chunk.Text = extractStringValue(val)
	}
	if val, ok := payload["source_path"]; ok {
		chunk.Meta.SourcePath = extractStringValue(val)
	}
	if val, ok := payload["source_type"]; ok {
		chunk.Meta.SourceType = knowledge.SourceType(extractStringValue(val))
	}
	if val, ok := payload["row"]; ok {
		chunk.Meta.Row = int(extractIntValue(val))
	}
	if val, ok := payload["position"]; ok {
		chunk.Position = int(extractIntValue(val))
	}

	return chunk
}

// sanitizeUTF8 清理字符串中的无效 UTF-8 字符
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// extractStringValue 从 qdrant.Value 提取字符串值
func extractStringValue(val *qdrant.Value) string {
	if val == nil {
		return ""
	}
	return val.GetStringValue()
}

// extractIntValue 从 qdrant.Value 提取整数值
func extractIntValue(val *qdrant.Value) int64 {
	if val == nil {
		return 0
	}
	if intVal := val.GetIntegerValue(); intVal != 0 {
		return intVal
	}
	if dblVal := val.GetDoubleValue(); dblVal != 0 {
		return int64(dblVal)
	}
	return 0
}
