package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/automentor/backend/internal/domain/knowledge"
)

// 确保 ChatRepository 实现了 knowledge.ChatRepository 接口
var _ knowledge.ChatRepository = (*ChatRepository)(nil)

// ChatRepository 问答历史仓库实现
type ChatRepository struct {
	db *sql.DB
}

// NewChatRepository 创建问答历史仓库实例
func NewChatRepository(db *sql.DB) knowledge.ChatRepository {
	return &ChatRepository{db: db}
}

// SaveTurn 保存一轮问答
func (r *ChatRepository) SaveTurn(turn *knowledge.ChatTurn) error {
	sourcesJSON, err := json.Marshal(turn.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO chat_history (
			id, question, answer, sources, created_at
		) VALUES (?, ?, ?, ?, ?)`

	_, err = r.db.Exec(
		query,
		turn.ID,
		turn.Question,
		turn.Answer,
		string(sourcesJSON),
		turn.CreatedAt,
	)

	return err
}

// ListTurns 按时间升序分页获取问答历史
func (r *ChatRepository) ListTurns(offset, limit int) ([]*knowledge.ChatTurn, error) {
	query := `
		SELECT id, question, answer, sources, created_at
		FROM chat_history
		ORDER BY created_at, id
		LIMIT ? OFFSET ?`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*knowledge.ChatTurn
	for rows.Next() {
		var turn knowledge.ChatTurn
		var sourcesJSON string
		err := rows.Scan(
			&turn.ID,
			&turn.Question,
			&turn.Answer,
			&sourcesJSON,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(sourcesJSON), &turn.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}

		results = append(results, &turn)
	}

	return results, rows.Err()
}

// CountTurns 统计问答轮数
func (r *ChatRepository) CountTurns() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM chat_history").Scan(&count)
	return count, err
}

// ClearAllTurns 清空问答历史
func (r *ChatRepository) ClearAllTurns() error {
	_, err := r.db.Exec("DELETE FROM chat_history")
	return err
}
