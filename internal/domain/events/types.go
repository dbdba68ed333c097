// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 源文档文件相关事件类型
const (
	// SourceFileCreated 源文档文件创建事件
	SourceFileCreated EventType = "document.file.created"
	// SourceFileModified 源文档文件修改事件
	SourceFileModified EventType = "document.file.modified"
	// SourceFileDeleted 源文档文件删除事件
	SourceFileDeleted EventType = "document.file.deleted"
)

// 摄取流程相关事件类型
const (
	// IngestStarted 摄取开始事件
	IngestStarted EventType = "ingest.started"
	// IngestCompleted 摄取完成事件
	IngestCompleted EventType = "ingest.completed"
	// IngestFailed 摄取失败事件
	IngestFailed EventType = "ingest.failed"
)

// 助手生命周期事件类型
const (
	// AssistantReloaded 助手管线重载完成事件
	AssistantReloaded EventType = "assistant.reloaded"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
