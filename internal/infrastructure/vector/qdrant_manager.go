package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/log"
)

// DefaultQdrantVersion 托管模式下载的 Qdrant 版本
const DefaultQdrantVersion = "v1.16.3"

// QdrantManager Qdrant 管理器
// 托管模式下负责下载、启动和停止本地 Qdrant 进程；
// 外部模式下只维护到已有实例的 gRPC 连接
type QdrantManager struct {
	cfg        *config.QdrantConfig
	downloader *HTTPDownloader
	extractor  *ArchiveExtractor
	cmd        *exec.Cmd
	client     *qdrant.Client
	mu         sync.Mutex
	logger     *slog.Logger
}

// QdrantStatus Qdrant 运行状态
type QdrantStatus struct {
	Managed    bool   `json:"managed"`
	Installed  bool   `json:"installed"`
	Running    bool   `json:"running"`
	Host       string `json:"host"`
	GRPCPort   int    `json:"grpc_port"`
	Collection string `json:"collection"`
	BinaryPath string `json:"binary_path,omitempty"`
}

// NewQdrantManager 创建 Qdrant 管理器
func NewQdrantManager(cfg *config.QdrantConfig) *QdrantManager {
	return &QdrantManager{
		cfg:        cfg,
		downloader: NewHTTPDownloader(),
		extractor:  NewArchiveExtractor(),
		logger:     log.NewModuleLogger("vector", "qdrant_manager"),
	}
}

// Collection 返回配置的集合名称
func (q *QdrantManager) Collection() string {
	return q.cfg.Collection
}

// BinaryFile 返回 Qdrant 二进制文件完整路径
func (q *QdrantManager) BinaryFile() string {
	binaryName := "qdrant"
	if runtime.GOOS == "windows" {
		binaryName = "qdrant.exe"
	}
	return filepath.Join(q.cfg.BinaryPath, binaryName)
}

// IsInstalled 检查二进制是否已安装
func (q *QdrantManager) IsInstalled() bool {
	_, err := os.Stat(q.BinaryFile())
	return err == nil
}

// IsRunning 检查是否已连接（托管模式下同时意味着进程存活）
func (q *QdrantManager) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.client != nil
}

// GetClient 获取 Qdrant 客户端
func (q *QdrantManager) GetClient() *qdrant.Client {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.client
}

// Status 返回当前状态快照
func (q *QdrantManager) Status() QdrantStatus {
	return QdrantStatus{
		Managed:    q.cfg.Managed,
		Installed:  q.IsInstalled(),
		Running:    q.IsRunning(),
		Host:       q.cfg.Host,
		GRPCPort:   q.cfg.GRPCPort,
		Collection: q.cfg.Collection,
		BinaryPath: q.BinaryFile(),
	}
}

// EnsureInstalled 确保 Qdrant 二进制已安装
// 未安装时从 GitHub Releases 下载并解压，返回二进制路径
func (q *QdrantManager) EnsureInstalled(ctx context.Context, progress ProgressCallback) (string, error) {
	installPath := q.BinaryFile()
	if _, err := os.Stat(installPath); err == nil {
		return installPath, nil
	}

	osName, arch := GetPlatformInfo()
	downloadURL, err := buildDownloadURL(DefaultQdrantVersion, osName, arch)
	if err != nil {
		return "", fmt.Errorf("failed to build download URL: %w", err)
	}

	q.logger.Info("downloading qdrant",
		"version", DefaultQdrantVersion,
		"url", downloadURL,
	)

	tmpDir, err := os.MkdirTemp("", "qdrant-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// 尝试获取校验和（某些版本可能没有 checksum 文件）
	opts := DefaultDownloadOptions()
	opts.OnProgress = progress
	if checksum, err := q.downloader.FetchChecksum(ctx, downloadURL+".sha256"); err == nil {
		opts.ExpectedChecksum = checksum
	} else {
		q.logger.Warn("checksum file not available, skipping verification", "error", err)
	}

	archivePath := filepath.Join(tmpDir, filepath.Base(downloadURL))
	if err := q.downloader.Download(ctx, downloadURL, archivePath, opts); err != nil {
		return "", fmt.Errorf("failed to download qdrant: %w", err)
	}

	extractDir := filepath.Join(tmpDir, "extracted")
	if err := q.extractor.Extract(archivePath, extractDir); err != nil {
		return "", fmt.Errorf("failed to extract archive: %w", err)
	}

	binaryName := filepath.Base(installPath)
	binaryPath, err := q.extractor.FindBinary(extractDir, binaryName)
	if err != nil {
		return "", fmt.Errorf("binary not found in extracted archive: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(installPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create install directory: %w", err)
	}

	if err := copyFile(binaryPath, installPath); err != nil {
		return "", fmt.Errorf("failed to copy binary: %w", err)
	}

	if osName != "windows" {
		if err := os.Chmod(installPath, 0755); err != nil {
			return "", fmt.Errorf("failed to set executable permission: %w", err)
		}
	}

	if err := verifyInstallation(installPath); err != nil {
		return "", fmt.Errorf("failed to verify installation: %w", err)
	}

	q.logger.Info("qdrant installed", "path", installPath)

	return installPath, nil
}

// Start 启动托管的 Qdrant 进程并建立连接
func (q *QdrantManager) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client != nil {
		return nil
	}

	// 确保数据目录存在
	if err := os.MkdirAll(q.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	binaryFile := q.BinaryFile()
	if _, err := os.Stat(binaryFile); os.IsNotExist(err) {
		return fmt.Errorf("qdrant binary not found at %s", binaryFile)
	}

	args := []string{
		"--storage-path", q.cfg.DataPath,
		"--grpc-port", fmt.Sprintf("%d", q.cfg.GRPCPort),
		"--http-port", fmt.Sprintf("%d", q.cfg.HTTPPort),
	}

	q.cmd = exec.Command(binaryFile, args...)
	q.cmd.Stdout = os.Stdout
	q.cmd.Stderr = os.Stderr

	if err := q.cmd.Start(); err != nil {
		q.cmd = nil
		return fmt.Errorf("failed to start qdrant: %w", err)
	}

	q.logger.Info("qdrant process started",
		"pid", q.cmd.Process.Pid,
		"grpc_port", q.cfg.GRPCPort,
	)

	// 等待服务就绪
	if err := q.waitForReady(15 * time.Second); err != nil {
		q.stopLocked()
		return fmt.Errorf("qdrant failed to become ready: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: q.cfg.Host,
		Port: q.cfg.GRPCPort,
	})
	if err != nil {
		q.stopLocked()
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	q.client = client

	return nil
}

// Connect 连接到外部 Qdrant 实例（非托管模式）
func (q *QdrantManager) Connect() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client != nil {
		return nil
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: q.cfg.Host,
		Port: q.cfg.GRPCPort,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	// 探测连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.ListCollections(ctx); err != nil {
		client.Close()
		return fmt.Errorf("qdrant not reachable at %s:%d: %w", q.cfg.Host, q.cfg.GRPCPort, err)
	}

	q.client = client

	q.logger.Info("connected to external qdrant",
		"host", q.cfg.Host,
		"grpc_port", q.cfg.GRPCPort,
	)

	return nil
}

// EnsureReady 确保 Qdrant 可用
// 托管模式：安装并启动本地进程；外部模式：直接连接
func (q *QdrantManager) EnsureReady(ctx context.Context) error {
	if q.IsRunning() {
		return nil
	}

	if !q.cfg.Managed {
		return q.Connect()
	}

	if _, err := q.EnsureInstalled(ctx, nil); err != nil {
		return err
	}
	return q.Start()
}

// Stop 停止 Qdrant（托管模式杀掉进程，所有模式关闭连接）
func (q *QdrantManager) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopLocked()
}

// stopLocked 停止进程和连接，调用方需持有锁
func (q *QdrantManager) stopLocked() error {
	if q.cmd != nil && q.cmd.Process != nil {
		if err := q.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill qdrant process: %w", err)
		}
		q.cmd.Wait()
		q.cmd = nil
		q.logger.Info("qdrant process stopped")
	}

	if q.client != nil {
		q.client.Close()
		q.client = nil
	}

	return nil
}

// Close 释放资源
func (q *QdrantManager) Close() error {
	return q.Stop()
}

// waitForReady 等待 Qdrant 服务就绪
func (q *QdrantManager) waitForReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host: q.cfg.Host,
			Port: q.cfg.GRPCPort,
		})
		if err == nil {
			// 测试连接：尝试列出集合
			_, err = client.ListCollections(context.Background())
			if err == nil {
				client.Close()
				return nil
			}
			client.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for qdrant to be ready")
}

// EnsureCollection 确保集合存在，不存在时按给定向量维度创建
func (q *QdrantManager) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	client := q.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	exists, err := q.collectionExists(ctx, client)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.cfg.Collection, err)
	}

	q.logger.Info("collection created",
		"collection", q.cfg.Collection,
		"vector_size", vectorSize,
	)

	return nil
}

// RecreateCollection 删除并重建集合（全量重建摄取时使用）
func (q *QdrantManager) RecreateCollection(ctx context.Context, vectorSize uint64) error {
	client := q.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	exists, err := q.collectionExists(ctx, client)
	if err != nil {
		return err
	}
	if exists {
		if err := client.DeleteCollection(ctx, q.cfg.Collection); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", q.cfg.Collection, err)
		}
	}

	return q.EnsureCollection(ctx, vectorSize)
}

// DropCollection 删除集合（清空索引时使用）
func (q *QdrantManager) DropCollection(ctx context.Context) error {
	client := q.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	exists, err := q.collectionExists(ctx, client)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := client.DeleteCollection(ctx, q.cfg.Collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", q.cfg.Collection, err)
	}

	q.logger.Info("collection dropped", "collection", q.cfg.Collection)

	return nil
}

// CollectionExists 检查集合是否存在
func (q *QdrantManager) CollectionExists(ctx context.Context) (bool, error) {
	client := q.GetClient()
	if client == nil {
		return false, fmt.Errorf("qdrant client not initialized")
	}
	return q.collectionExists(ctx, client)
}

// collectionExists 通过集合列表检查存在性
func (q *QdrantManager) collectionExists(ctx context.Context, client *qdrant.Client) (bool, error) {
	existing, err := client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range existing {
		if name == q.cfg.Collection {
			return true, nil
		}
	}
	return false, nil
}

// CountPoints 统计集合中的点数量
func (q *QdrantManager) CountPoints(ctx context.Context) (uint64, error) {
	client := q.GetClient()
	if client == nil {
		return 0, fmt.Errorf("qdrant client not initialized")
	}

	count, err := client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.cfg.Collection,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}

	return count, nil
}

// HealthCheck 检查 Qdrant 连接是否健康
func (q *QdrantManager) HealthCheck(ctx context.Context) error {
	client := q.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}
	if _, err := client.ListCollections(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// GetPlatformInfo 获取平台信息（用于下载）
func GetPlatformInfo() (osName, arch string) {
	osName = runtime.GOOS
	arch = runtime.GOARCH

	// 标准化 OS 名称
	switch osName {
	case "darwin":
		osName = "macos"
	case "windows":
		osName = "windows"
	case "linux":
		osName = "linux"
	}

	// 标准化架构名称
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}

	return osName, arch
}

// buildDownloadURL 构建下载 URL
// Qdrant GitHub Releases 资产命名：qdrant-<target>.<ext>，
// Windows 为 zip，其余平台为 tar.gz
func buildDownloadURL(version, osName, arch string) (string, error) {
	baseURL := "https://github.com/qdrant/qdrant/releases/download"

	var target, ext string
	switch osName {
	case "windows":
		if arch != "x86_64" {
			return "", fmt.Errorf("unsupported architecture for Windows: %s", arch)
		}
		target = "x86_64-pc-windows-msvc"
		ext = "zip"
	case "macos":
		switch arch {
		case "x86_64":
			target = "x86_64-apple-darwin"
		case "aarch64":
			target = "aarch64-apple-darwin"
		default:
			return "", fmt.Errorf("unsupported architecture for macOS: %s", arch)
		}
		ext = "tar.gz"
	case "linux":
		switch arch {
		case "x86_64":
			target = "x86_64-unknown-linux-musl"
		case "aarch64":
			target = "aarch64-unknown-linux-musl"
		default:
			return "", fmt.Errorf("unsupported architecture for Linux: %s", arch)
		}
		ext = "tar.gz"
	default:
		return "", fmt.Errorf("unsupported OS: %s", osName)
	}

	return fmt.Sprintf("%s/%s/qdrant-%s.%s", baseURL, version, target, ext), nil
}

// verifyInstallation 验证安装
func verifyInstallation(binaryPath string) error {
	cmd := exec.Command(binaryPath, "--version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to verify installation: %w", err)
	}

	// 检查输出是否包含版本信息
	if !strings.Contains(strings.ToLower(string(output)), "qdrant") {
		return fmt.Errorf("unexpected version output: %s", string(output))
	}

	return nil
}
