package events

import "time"

// SourceFileEvent 源文档文件变更事件
// 当文档目录下受支持的文件发生变更时由文件监听器触发
type SourceFileEvent struct {
	// EventType 事件类型（created/modified/deleted）
	EventType EventType
	// SourcePath 文件完整路径
	SourcePath string
	// ModTime 文件最后修改时间
	ModTime time.Time
	// FileSize 文件大小（字节）
	FileSize int64
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *SourceFileEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *SourceFileEvent) Timestamp() time.Time {
	return e.EventTime
}
