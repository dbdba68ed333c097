package storage

import (
	"database/sql"

	"github.com/automentor/backend/internal/domain/knowledge"
)

// 确保 DocumentRepository 实现了 knowledge.DocumentRepository 接口
var _ knowledge.DocumentRepository = (*DocumentRepository)(nil)

// DocumentRepository 源文件索引状态仓库实现
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository 创建源文件仓库实例
func NewDocumentRepository(db *sql.DB) knowledge.DocumentRepository {
	return &DocumentRepository{db: db}
}

// SaveRecord 保存源文件记录
func (r *DocumentRepository) SaveRecord(record *knowledge.DocumentRecord) error {
	query := `
		INSERT OR REPLACE INTO documents (
			source_path, source_type, content_hash,
			chunk_count, file_mtime, last_ingested_at, status
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(
		query,
		record.SourcePath,
		string(record.SourceType),
		record.ContentHash,
		record.ChunkCount,
		record.FileMtime,
		record.LastIngestedAt,
		record.Status,
	)

	return err
}

// GetRecord 获取源文件记录，不存在时返回 nil
func (r *DocumentRepository) GetRecord(sourcePath string) (*knowledge.DocumentRecord, error) {
	query := `
		SELECT source_path, source_type, content_hash,
		       chunk_count, file_mtime, last_ingested_at, status
		FROM documents
		WHERE source_path = ?`

	var record knowledge.DocumentRecord
	var sourceType string
	err := r.db.QueryRow(query, sourcePath).Scan(
		&record.SourcePath,
		&sourceType,
		&record.ContentHash,
		&record.ChunkCount,
		&record.FileMtime,
		&record.LastIngestedAt,
		&record.Status,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record.SourceType = knowledge.SourceType(sourceType)
	return &record, nil
}

// ListRecords 获取所有源文件记录
func (r *DocumentRepository) ListRecords() ([]*knowledge.DocumentRecord, error) {
	query := `
		SELECT source_path, source_type, content_hash,
		       chunk_count, file_mtime, last_ingested_at, status
		FROM documents
		ORDER BY source_path`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*knowledge.DocumentRecord
	for rows.Next() {
		var record knowledge.DocumentRecord
		var sourceType string
		err := rows.Scan(
			&record.SourcePath,
			&sourceType,
			&record.ContentHash,
			&record.ChunkCount,
			&record.FileMtime,
			&record.LastIngestedAt,
			&record.Status,
		)
		if err != nil {
			return nil, err
		}
		record.SourceType = knowledge.SourceType(sourceType)
		results = append(results, &record)
	}

	return results, rows.Err()
}

// DeleteRecord 删除源文件记录
func (r *DocumentRepository) DeleteRecord(sourcePath string) error {
	query := `DELETE FROM documents WHERE source_path = ?`
	_, err := r.db.Exec(query, sourcePath)
	return err
}

// UpdateFileMtime 更新文件修改时间
func (r *DocumentRepository) UpdateFileMtime(sourcePath string, mtime int64) error {
	query := `UPDATE documents SET file_mtime = ? WHERE source_path = ?`
	_, err := r.db.Exec(query, mtime, sourcePath)
	return err
}

// ClearAllRecords 清空所有源文件记录
func (r *DocumentRepository) ClearAllRecords() error {
	_, err := r.db.Exec("DELETE FROM documents")
	return err
}
