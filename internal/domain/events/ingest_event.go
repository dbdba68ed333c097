package events

import "time"

// IngestEvent 摄取流程事件
// 摄取开始、完成和失败时发布，WebSocket 推送层订阅后广播给前端
type IngestEvent struct {
	// EventType 事件类型（started/completed/failed）
	EventType EventType
	// Mode 摄取模式（rebuild/append）
	Mode string
	// ChunksIndexed 完成事件携带的片段数量
	ChunksIndexed int
	// Error 失败事件携带的错误描述
	Error string
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *IngestEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *IngestEvent) Timestamp() time.Time {
	return e.EventTime
}

// AssistantReloadedEvent 助手重载完成事件
type AssistantReloadedEvent struct {
	// EmbeddingModel 重载后生效的向量模型
	EmbeddingModel string
	// ChunkCount 重载时索引中的片段数量
	ChunkCount int
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *AssistantReloadedEvent) Type() EventType {
	return AssistantReloaded
}

// Timestamp 实现 Event 接口
func (e *AssistantReloadedEvent) Timestamp() time.Time {
	return e.EventTime
}
