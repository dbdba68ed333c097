package storage

import (
	"database/sql"

	"github.com/automentor/backend/internal/domain/knowledge"
)

// 确保 IndexMetaRepository 实现了 knowledge.IndexMetaRepository 接口
var _ knowledge.IndexMetaRepository = (*IndexMetaRepository)(nil)

// IndexMetaRepository 索引元信息仓库实现
type IndexMetaRepository struct {
	db *sql.DB
}

// NewIndexMetaRepository 创建索引元信息仓库实例
func NewIndexMetaRepository(db *sql.DB) knowledge.IndexMetaRepository {
	return &IndexMetaRepository{db: db}
}

// SaveMeta 保存索引元信息
func (r *IndexMetaRepository) SaveMeta(meta *knowledge.IndexMeta) error {
	query := `
		INSERT OR REPLACE INTO index_meta (
			collection, embedding_model, vector_dim,
			document_count, chunk_count, built_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(
		query,
		meta.Collection,
		meta.EmbeddingModel,
		meta.VectorDim,
		meta.DocumentCount,
		meta.ChunkCount,
		meta.BuiltAt,
	)

	return err
}

// GetMeta 获取索引元信息，不存在时返回 nil
func (r *IndexMetaRepository) GetMeta(collection string) (*knowledge.IndexMeta, error) {
	query := `
		SELECT collection, embedding_model, vector_dim,
		       document_count, chunk_count, built_at
		FROM index_meta
		WHERE collection = ?`

	var meta knowledge.IndexMeta
	err := r.db.QueryRow(query, collection).Scan(
		&meta.Collection,
		&meta.EmbeddingModel,
		&meta.VectorDim,
		&meta.DocumentCount,
		&meta.ChunkCount,
		&meta.BuiltAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &meta, nil
}

// DeleteMeta 删除索引元信息
func (r *IndexMetaRepository) DeleteMeta(collection string) error {
	query := `DELETE FROM index_meta WHERE collection = ?`
	_, err := r.db.Exec(query, collection)
	return err
}
