package vector

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automentor/backend/internal/infrastructure/config"
)

func testQdrantConfig(t *testing.T) *config.QdrantConfig {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.QdrantConfig{
		Managed:    true,
		Host:       "localhost",
		GRPCPort:   6334,
		HTTPPort:   6333,
		Collection: "automentor_chunks",
		BinaryPath: filepath.Join(tmpDir, "bin"),
		DataPath:   filepath.Join(tmpDir, "storage"),
	}
}

// TestBuildDownloadURL 测试下载 URL 构建
func TestBuildDownloadURL(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		osName   string
		arch     string
		wantErr  bool
		contains string
	}{
		{
			name:     "Windows x86_64",
			version:  "v1.16.3",
			osName:   "windows",
			arch:     "x86_64",
			wantErr:  false,
			contains: "qdrant-x86_64-pc-windows-msvc.zip",
		},
		{
			name:     "Linux x86_64",
			version:  "v1.16.3",
			osName:   "linux",
			arch:     "x86_64",
			wantErr:  false,
			contains: "qdrant-x86_64-unknown-linux-musl.tar.gz",
		},
		{
			name:     "Linux aarch64",
			version:  "v1.16.3",
			osName:   "linux",
			arch:     "aarch64",
			wantErr:  false,
			contains: "qdrant-aarch64-unknown-linux-musl.tar.gz",
		},
		{
			name:     "macOS aarch64",
			version:  "v1.16.3",
			osName:   "macos",
			arch:     "aarch64",
			wantErr:  false,
			contains: "qdrant-aarch64-apple-darwin.tar.gz",
		},
		{
			name:    "Unsupported OS",
			version: "v1.16.3",
			osName:  "unsupported",
			arch:    "x86_64",
			wantErr: true,
		},
		{
			name:    "Unsupported Windows arch",
			version: "v1.16.3",
			osName:  "windows",
			arch:    "aarch64",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := buildDownloadURL(tt.version, tt.osName, tt.arch)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, url, tt.contains)
			assert.Contains(t, url, tt.version)
			assert.Contains(t, url, "github.com/qdrant/qdrant/releases/download")
		})
	}
}

// TestGetPlatformInfo 测试平台信息标准化
func TestGetPlatformInfo(t *testing.T) {
	osName, arch := GetPlatformInfo()

	assert.NotEmpty(t, osName)
	assert.NotEmpty(t, arch)

	switch runtime.GOOS {
	case "darwin":
		assert.Equal(t, "macos", osName)
	case "windows":
		assert.Equal(t, "windows", osName)
	case "linux":
		assert.Equal(t, "linux", osName)
	}

	switch runtime.GOARCH {
	case "amd64":
		assert.Equal(t, "x86_64", arch)
	case "arm64":
		assert.Equal(t, "aarch64", arch)
	}
}

func TestQdrantManager_BinaryFile(t *testing.T) {
	cfg := testQdrantConfig(t)
	manager := NewQdrantManager(cfg)

	binaryFile := manager.BinaryFile()
	assert.Equal(t, cfg.BinaryPath, filepath.Dir(binaryFile))

	if runtime.GOOS == "windows" {
		assert.Equal(t, "qdrant.exe", filepath.Base(binaryFile))
	} else {
		assert.Equal(t, "qdrant", filepath.Base(binaryFile))
	}
}

func TestQdrantManager_IsInstalled(t *testing.T) {
	cfg := testQdrantConfig(t)
	manager := NewQdrantManager(cfg)

	assert.False(t, manager.IsInstalled(), "新目录不应该有已安装的二进制")

	// 放置一个假的二进制文件
	require.NoError(t, os.MkdirAll(cfg.BinaryPath, 0755))
	require.NoError(t, os.WriteFile(manager.BinaryFile(), []byte("fake binary"), 0755))

	assert.True(t, manager.IsInstalled())
}

func TestQdrantManager_Status(t *testing.T) {
	cfg := testQdrantConfig(t)
	manager := NewQdrantManager(cfg)

	status := manager.Status()
	assert.True(t, status.Managed)
	assert.False(t, status.Installed)
	assert.False(t, status.Running)
	assert.Equal(t, "localhost", status.Host)
	assert.Equal(t, 6334, status.GRPCPort)
	assert.Equal(t, "automentor_chunks", status.Collection)
}

func TestQdrantManager_Start_BinaryMissing(t *testing.T) {
	cfg := testQdrantConfig(t)
	manager := NewQdrantManager(cfg)

	err := manager.Start()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "binary not found")
}

func TestQdrantManager_OperationsWithoutClient(t *testing.T) {
	cfg := testQdrantConfig(t)
	manager := NewQdrantManager(cfg)
	ctx := context.Background()

	err := manager.EnsureCollection(ctx, 384)
	assert.Error(t, err)

	err = manager.HealthCheck(ctx)
	assert.Error(t, err)

	_, err = manager.CountPoints(ctx)
	assert.Error(t, err)

	_, err = manager.CollectionExists(ctx)
	assert.Error(t, err)
}

func TestQdrantManager_StopWithoutStart(t *testing.T) {
	cfg := testQdrantConfig(t)
	manager := NewQdrantManager(cfg)

	// 未启动时 Stop 应该是幂等的
	assert.NoError(t, manager.Stop())
	assert.NoError(t, manager.Close())
}

func TestQdrantManager_EnsureInstalled_AlreadyInstalled(t *testing.T) {
	cfg := testQdrantConfig(t)
	manager := NewQdrantManager(cfg)

	require.NoError(t, os.MkdirAll(cfg.BinaryPath, 0755))
	require.NoError(t, os.WriteFile(manager.BinaryFile(), []byte("fake binary"), 0755))

	// 已安装时不应触发下载
	path, err := manager.EnsureInstalled(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, manager.BinaryFile(), path)
}

func TestQdrantManager_Connect_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("跳过需要网络超时的测试")
	}

	cfg := testQdrantConfig(t)
	cfg.Managed = false
	cfg.GRPCPort = 1 // 不可用端口
	manager := NewQdrantManager(cfg)

	err := manager.Connect()
	assert.Error(t, err)
}

func TestQdrantManager_FullLifecycle(t *testing.T) {
	t.Skip("需要真实的 Qdrant 二进制，集成环境手动执行")
}
