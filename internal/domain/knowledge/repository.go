package knowledge

// DocumentRecord 已摄取源文件的索引状态
// 记录在 SQLite 中，用于增量摄取时的变更检测
type DocumentRecord struct {
	SourcePath    string     // 源文件路径（主键）
	SourceType    SourceType // 来源类型
	ContentHash   string     // 文件内容哈希
	ChunkCount    int        // 生成的片段数量
	FileMtime     int64      // 文件修改时间（Unix 秒）
	LastIngestedAt int64     // 最后摄取时间（Unix 秒）
	Status        string     // ingested/ingesting/failed
}

// 摄取状态常量
const (
	IngestStatusIngested  = "ingested"
	IngestStatusIngesting = "ingesting"
	IngestStatusFailed    = "failed"
)

// NeedsReingest 判断文件是否需要重新摄取
// mtime 和内容哈希都变化时才重新摄取
func (r *DocumentRecord) NeedsReingest(newMtime int64, newHash string) bool {
	return r.FileMtime != newMtime && r.ContentHash != newHash
}

// NeedsMtimeUpdate 判断是否只需刷新 mtime
func (r *DocumentRecord) NeedsMtimeUpdate(newMtime int64, newHash string) bool {
	return r.FileMtime != newMtime && r.ContentHash == newHash
}

// DocumentRepository 源文件索引状态仓库
type DocumentRepository interface {
	SaveRecord(record *DocumentRecord) error
	GetRecord(sourcePath string) (*DocumentRecord, error)
	ListRecords() ([]*DocumentRecord, error)
	DeleteRecord(sourcePath string) error
	UpdateFileMtime(sourcePath string, mtime int64) error
	ClearAllRecords() error
}

// ChatTurn 一轮问答记录
type ChatTurn struct {
	ID        string   // UUID
	Question  string   // 用户问题
	Answer    string   // 助手回答
	Sources   []string // 引用的来源标签
	CreatedAt int64    // 创建时间（Unix 秒）
}

// ChatRepository 问答历史仓库
type ChatRepository interface {
	SaveTurn(turn *ChatTurn) error
	ListTurns(offset, limit int) ([]*ChatTurn, error)
	CountTurns() (int, error)
	ClearAllTurns() error
}

// IndexMeta 向量索引元信息
// 记录索引构建时使用的向量模型，重载时校验一致性
type IndexMeta struct {
	Collection     string // Qdrant 集合名称
	EmbeddingModel string // 构建索引使用的向量模型
	VectorDim      int    // 向量维度
	DocumentCount  int    // 已索引源文件数量
	ChunkCount     int    // 已索引片段总数
	BuiltAt        int64  // 最近一次构建时间（Unix 秒）
}

// IndexMetaRepository 索引元信息仓库
type IndexMetaRepository interface {
	SaveMeta(meta *IndexMeta) error
	GetMeta(collection string) (*IndexMeta, error)
	DeleteMeta(collection string) error
}
