package knowledge

// IngestMode 摄取模式
type IngestMode string

const (
	// IngestModeRebuild 全量重建：清空集合后重新索引全部文档
	IngestModeRebuild IngestMode = "rebuild"

	// IngestModeAppend 增量追加：只索引新增或变更的文档
	IngestModeAppend IngestMode = "append"
)

// ParseIngestMode 解析摄取模式，空值默认为增量追加
func ParseIngestMode(s string) (IngestMode, bool) {
	switch s {
	case "", string(IngestModeAppend):
		return IngestModeAppend, true
	case string(IngestModeRebuild):
		return IngestModeRebuild, true
	default:
		return "", false
	}
}

// IngestReport 一次摄取的结果汇总
type IngestReport struct {
	Mode               IngestMode `json:"mode"`                          // 摄取模式
	DocumentsFound     int        `json:"documents_found"`               // 发现的受支持文件数
	DocumentsRead      int        `json:"documents_read"`                // 成功读取的文件数
	DocumentsSkipped   []string   `json:"documents_skipped,omitempty"`   // 读取失败被跳过的文件及原因
	DocumentsUnchanged int        `json:"documents_unchanged"`           // 增量模式下内容未变化的文件数
	RejectedUploads    []string   `json:"rejected_uploads,omitempty"`    // 上传时被拒绝的文件及原因
	ChunksIndexed      int        `json:"chunks_indexed"`                // 写入索引的片段总数
	TokensIndexed      int        `json:"tokens_indexed"`                // 写入片段的 token 总数
	DurationMs         int64      `json:"duration_ms"`                   // 摄取耗时（毫秒）
}
