package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/automentor/backend/internal/infrastructure/config"
)

// OpenDB 打开 SQLite 数据库连接
// 目录不存在时自动创建，并启用 WAL 模式
func OpenDB(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// InitDatabase 初始化表结构
func InitDatabase(db *sql.DB) error {
	// 源文件索引状态表
	createDocumentsSQL := `
	CREATE TABLE IF NOT EXISTS documents (
		source_path TEXT PRIMARY KEY,
		source_type TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		file_mtime INTEGER NOT NULL,
		last_ingested_at INTEGER NOT NULL,
		status TEXT NOT NULL
	);`

	if _, err := db.Exec(createDocumentsSQL); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	createDocumentsIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);`

	if _, err := db.Exec(createDocumentsIndexSQL); err != nil {
		return fmt.Errorf("failed to create documents index: %w", err)
	}

	// 问答历史表
	createChatHistorySQL := `
	CREATE TABLE IF NOT EXISTS chat_history (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		sources TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createChatHistorySQL); err != nil {
		return fmt.Errorf("failed to create chat_history table: %w", err)
	}

	createChatHistoryIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_chat_history_created_at ON chat_history(created_at);`

	if _, err := db.Exec(createChatHistoryIndexSQL); err != nil {
		return fmt.Errorf("failed to create chat_history index: %w", err)
	}

	// 向量索引元信息表
	createIndexMetaSQL := `
	CREATE TABLE IF NOT EXISTS index_meta (
		collection TEXT PRIMARY KEY,
		embedding_model TEXT NOT NULL,
		vector_dim INTEGER NOT NULL,
		document_count INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		built_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createIndexMetaSQL); err != nil {
		return fmt.Errorf("failed to create index_meta table: %w", err)
	}

	return nil
}

// NewDB 打开数据库并初始化表结构（wire 提供者）
func NewDB(cfg *config.DatabaseConfig) (*sql.DB, func(), error) {
	db, err := OpenDB(cfg.Path)
	if err != nil {
		return nil, nil, err
	}

	if err := InitDatabase(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cleanup := func() {
		db.Close()
	}

	return db, cleanup, nil
}
