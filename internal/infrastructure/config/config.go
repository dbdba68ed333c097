package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Memory    MemoryConfig    `yaml:"memory"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Scan      ScanConfig      `yaml:"scan"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTPPort 固定端口，同时用于单例锁
	HTTPPort string `yaml:"http_port"`
	// DiscoveryEnabled 是否通过 mDNS 广播服务
	DiscoveryEnabled bool `yaml:"discovery_enabled"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path SQLite 数据库文件路径，空表示 <datadir>/automentor.db
	Path string `yaml:"path"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`
}

// IngestConfig 文档摄取配置
type IngestConfig struct {
	// SourceDocsDir 源文档目录，空表示 <datadir>/source_docs
	SourceDocsDir string `yaml:"source_docs_dir"`
	// ChunkSize 片段目标大小（字符数）
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap 相邻片段重叠大小（字符数）
	ChunkOverlap int `yaml:"chunk_overlap"`
	// MaxUploadBytes 单个上传文件的大小上限
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// EmbeddingConfig 向量化服务配置
type EmbeddingConfig struct {
	// BaseURL OpenAI 兼容向量接口地址
	BaseURL string `yaml:"base_url"`
	// APIKey 可选的 API Key
	APIKey string `yaml:"api_key"`
	// Model 向量模型名称
	Model string `yaml:"model"`
	// BatchSize 单次请求的最大文本数量
	BatchSize int `yaml:"batch_size"`
}

// LLMConfig 对话模型配置
type LLMConfig struct {
	// BaseURL OpenAI 兼容对话接口地址
	BaseURL string `yaml:"base_url"`
	// APIKey 可选的 API Key
	APIKey string `yaml:"api_key"`
	// Model 对话模型名称
	Model string `yaml:"model"`
	// MaxContextTokens 上下文片段的 token 预算
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	// TopK 每次检索返回的片段数量
	TopK int `yaml:"top_k"`
}

// MemoryConfig 对话记忆配置
type MemoryConfig struct {
	// MaxTurns 保留的最大对话轮数，0 表示不限制
	MaxTurns int `yaml:"max_turns"`
}

// QdrantConfig Qdrant 配置
type QdrantConfig struct {
	// Host Qdrant 地址
	Host string `yaml:"host"`
	// GRPCPort gRPC 端口
	GRPCPort int `yaml:"grpc_port"`
	// HTTPPort HTTP 端口
	HTTPPort int `yaml:"http_port"`
	// Collection 集合名称
	Collection string `yaml:"collection"`
	// Managed 是否由本服务下载并托管 Qdrant 进程
	Managed bool `yaml:"managed"`
	// BinaryPath 二进制存放目录，空表示 <datadir>/qdrant/bin
	BinaryPath string `yaml:"binary_path"`
	// DataPath 存储目录，空表示 <datadir>/qdrant/storage
	DataPath string `yaml:"data_path"`
}

// ScanConfig 定时扫描配置
type ScanConfig struct {
	// Enabled 是否启用定时扫描
	Enabled bool `yaml:"enabled"`
	// Interval 扫描间隔
	Interval time.Duration `yaml:"interval"`
	// Watch 是否启用文件系统监听
	Watch bool `yaml:"watch"`
}

const (
	// ConfigFileName 配置文件名，位于数据目录下
	ConfigFileName = "config.yaml"
	// EnvHTTPPort HTTP 端口环境变量名，优先级高于配置文件
	EnvHTTPPort = "AUTOMENTOR_HTTP_PORT"
)

// NewConfig 创建配置
// 先填充默认值，再用 <datadir>/config.yaml 覆盖（文件不存在时跳过），
// 最后应用环境变量覆盖
func NewConfig() *Config {
	cfg := defaultConfig()

	path := filepath.Join(GetDataDir(), ConfigFileName)
	if err := cfg.loadFile(path); err != nil && !os.IsNotExist(err) {
		// 配置文件损坏时继续使用默认值，由调用方日志提示
		fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
	}

	if port := os.Getenv(EnvHTTPPort); port != "" {
		cfg.Server.HTTPPort = port
	}

	cfg.applyDefaults()
	return cfg
}

// defaultConfig 返回默认配置
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:         ":8000",
			DiscoveryEnabled: false,
		},
		Database: DatabaseConfig{
			Path: "",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Ingest: IngestConfig{
			SourceDocsDir:  "",
			ChunkSize:      1000,
			ChunkOverlap:   100,
			MaxUploadBytes: 32 << 20,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "http://localhost:11434",
			Model:     "sentence-transformers/all-MiniLM-L6-v2",
			BatchSize: 64,
		},
		LLM: LLMConfig{
			BaseURL:          "http://localhost:11434",
			Model:            "llama3:latest",
			MaxContextTokens: 3000,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Memory: MemoryConfig{
			MaxTurns: 0,
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			GRPCPort:   6334,
			HTTPPort:   6333,
			Collection: "automentor_chunks",
			Managed:    true,
		},
		Scan: ScanConfig{
			Enabled:  false,
			Interval: time.Hour,
			Watch:    false,
		},
	}
}

// loadFile 从 yaml 文件覆盖配置
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyDefaults 填充依赖数据目录的派生路径
func (c *Config) applyDefaults() {
	dataDir := GetDataDir()
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dataDir, "automentor.db")
	}
	if c.Ingest.SourceDocsDir == "" {
		c.Ingest.SourceDocsDir = filepath.Join(dataDir, "source_docs")
	}
	if c.Qdrant.BinaryPath == "" {
		c.Qdrant.BinaryPath = filepath.Join(dataDir, "qdrant", "bin")
	}
	if c.Qdrant.DataPath == "" {
		c.Qdrant.DataPath = filepath.Join(dataDir, "qdrant", "storage")
	}
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewIngestConfig 创建摄取配置
func NewIngestConfig(cfg *Config) *IngestConfig {
	return &cfg.Ingest
}

// NewQdrantConfig 创建 Qdrant 配置
func NewQdrantConfig(cfg *Config) *QdrantConfig {
	return &cfg.Qdrant
}
