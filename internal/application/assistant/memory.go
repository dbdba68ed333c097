package assistant

import (
	"sync"
	"time"
)

// Turn 一轮对话
type Turn struct {
	Question string
	Answer   string
	AskedAt  time.Time
}

// ConversationMemory 进程内对话记忆
// 保存当前会话的问答轮次，供后续提问携带上下文；进程重启后清空。
// 助手重载时记忆实例不变，对话跨重载延续
type ConversationMemory struct {
	mu       sync.Mutex
	turns    []Turn
	maxTurns int
}

// NewConversationMemory 创建对话记忆
// maxTurns 大于 0 时只保留最近的若干轮，超出后丢弃最旧的
func NewConversationMemory(maxTurns int) *ConversationMemory {
	return &ConversationMemory{maxTurns: maxTurns}
}

// Append 追加一轮问答
func (m *ConversationMemory) Append(question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, Turn{
		Question: question,
		Answer:   answer,
		AskedAt:  time.Now(),
	})

	if m.maxTurns > 0 && len(m.turns) > m.maxTurns {
		m.turns = m.turns[len(m.turns)-m.maxTurns:]
	}
}

// History 返回全部轮次的副本
func (m *ConversationMemory) History() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := make([]Turn, len(m.turns))
	copy(history, m.turns)
	return history
}

// Len 返回当前轮数
func (m *ConversationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

// Clear 清空记忆
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}
