package assistant

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConversationMemory_AppendAndHistory 测试追加和读取
func TestConversationMemory_AppendAndHistory(t *testing.T) {
	m := NewConversationMemory(0)

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.History())

	m.Append("What oil should I use?", "Use 5W-30 synthetic oil.")
	m.Append("How often to change it?", "Every 10000 km.")

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, "What oil should I use?", history[0].Question)
	assert.Equal(t, "Use 5W-30 synthetic oil.", history[0].Answer)
	assert.False(t, history[0].AskedAt.IsZero())
	assert.Equal(t, "How often to change it?", history[1].Question)
}

// TestConversationMemory_HistoryIsCopy 测试返回的历史是副本
func TestConversationMemory_HistoryIsCopy(t *testing.T) {
	m := NewConversationMemory(0)
	m.Append("q1", "a1")

	history := m.History()
	history[0].Question = "tampered"

	assert.Equal(t, "q1", m.History()[0].Question)
}

// TestConversationMemory_Clear 测试清空
func TestConversationMemory_Clear(t *testing.T) {
	m := NewConversationMemory(0)
	m.Append("q1", "a1")
	m.Append("q2", "a2")

	m.Clear()

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.History())
}

// TestConversationMemory_MaxTurns 测试超过上限时丢弃最旧的轮次
func TestConversationMemory_MaxTurns(t *testing.T) {
	m := NewConversationMemory(2)

	for i := 1; i <= 3; i++ {
		m.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, "q2", history[0].Question)
	assert.Equal(t, "q3", history[1].Question)
}

// TestConversationMemory_Unlimited 测试零上限不限制轮数
func TestConversationMemory_Unlimited(t *testing.T) {
	m := NewConversationMemory(0)

	for i := 0; i < 50; i++ {
		m.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	assert.Equal(t, 50, m.Len())
}
