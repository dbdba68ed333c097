package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/automentor/backend/internal/infrastructure/config"
)

// SettingsFileName 设置文件名，位于数据目录下
const SettingsFileName = "assistant_config.json"

// EndpointSettings 模型服务端点设置
type EndpointSettings struct {
	BaseURL string `json:"base_url"`
	// APIKey 落盘时加密存储
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// ScanSettings 定时扫描设置
type ScanSettings struct {
	Enabled bool `json:"enabled"`
	// Interval 扫描间隔：30m/1h/2h/6h/24h
	Interval string `json:"interval"`
}

// AssistantSettings 运行时可调的助手设置
// 未设置的字段（零值）表示沿用 config.yaml 中的配置
type AssistantSettings struct {
	Embedding EndpointSettings `json:"embedding"`
	LLM       EndpointSettings `json:"llm"`
	TopK      int              `json:"top_k"`
	Scan      ScanSettings     `json:"scan"`
	UpdatedAt int64            `json:"updated_at"`
}

// Store 助手设置存储
// JSON 文件持久化，API Key 加密落盘
type Store struct {
	path       string
	encryptKey *EncryptionKey
	mu         sync.Mutex
}

// NewStore 创建设置存储
func NewStore() (*Store, error) {
	dataDir := config.GetDataDir()

	encryptKey, err := NewEncryptionKey(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption key: %w", err)
	}

	return &Store{
		path:       filepath.Join(dataDir, SettingsFileName),
		encryptKey: encryptKey,
	}, nil
}

// Read 读取设置
// 文件不存在时返回空设置，API Key 已解密
func (s *Store) Read() (*AssistantSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Store) readLocked() (*AssistantSettings, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return &AssistantSettings{}, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings AssistantSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if settings.Embedding.APIKey != "" {
		if decrypted, err := s.encryptKey.Decrypt(settings.Embedding.APIKey); err == nil {
			settings.Embedding.APIKey = decrypted
		}
	}
	if settings.LLM.APIKey != "" {
		if decrypted, err := s.encryptKey.Decrypt(settings.LLM.APIKey); err == nil {
			settings.LLM.APIKey = decrypted
		}
	}

	return &settings, nil
}

// Write 写入设置，API Key 加密后落盘
func (s *Store) Write(settings *AssistantSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(settings)
}

func (s *Store) writeLocked(settings *AssistantSettings) error {
	// 写副本，避免把加密后的 Key 回写到调用方
	settingsCopy := *settings

	if settingsCopy.Embedding.APIKey != "" {
		if encrypted, err := s.encryptKey.Encrypt(settingsCopy.Embedding.APIKey); err == nil {
			settingsCopy.Embedding.APIKey = encrypted
		}
	}
	if settingsCopy.LLM.APIKey != "" {
		if encrypted, err := s.encryptKey.Encrypt(settingsCopy.LLM.APIKey); err == nil {
			settingsCopy.LLM.APIKey = encrypted
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settingsCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// Update 读取、修改并写回设置
func (s *Store) Update(fn func(*AssistantSettings)) (*AssistantSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	fn(settings)

	if err := s.writeLocked(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Apply 将设置中非零的字段合并到配置上，返回生效配置
// 原配置不会被修改
func (s *AssistantSettings) Apply(cfg *config.Config) *config.Config {
	effective := *cfg

	if s.Embedding.BaseURL != "" {
		effective.Embedding.BaseURL = s.Embedding.BaseURL
	}
	if s.Embedding.APIKey != "" {
		effective.Embedding.APIKey = s.Embedding.APIKey
	}
	if s.Embedding.Model != "" {
		effective.Embedding.Model = s.Embedding.Model
	}

	if s.LLM.BaseURL != "" {
		effective.LLM.BaseURL = s.LLM.BaseURL
	}
	if s.LLM.APIKey != "" {
		effective.LLM.APIKey = s.LLM.APIKey
	}
	if s.LLM.Model != "" {
		effective.LLM.Model = s.LLM.Model
	}

	if s.TopK > 0 {
		effective.Retrieval.TopK = s.TopK
	}

	return &effective
}
