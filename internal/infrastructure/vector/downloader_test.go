package vector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDownloader_Download_Success(t *testing.T) {
	content := []byte("test file content for download")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)))
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "test-download")
	downloader := NewHTTPDownloader()

	err := downloader.Download(context.Background(), server.URL, destPath, DefaultDownloadOptions())
	require.NoError(t, err)

	downloadedContent, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, content, downloadedContent)
}

func TestHTTPDownloader_Download_WithProgress(t *testing.T) {
	content := []byte("test file content for progress tracking")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)))
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "test-download-progress")
	downloader := NewHTTPDownloader()

	var progressCalled bool
	opts := DefaultDownloadOptions()
	opts.OnProgress = func(downloaded, total int64) {
		progressCalled = true
		assert.True(t, downloaded >= 0)
		assert.True(t, total > 0)
	}

	err := downloader.Download(context.Background(), server.URL, destPath, opts)
	require.NoError(t, err)
	assert.True(t, progressCalled, "应该调用进度回调")
}

func TestHTTPDownloader_Download_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "test-download-cancel")
	downloader := NewHTTPDownloader()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := downloader.Download(ctx, server.URL, destPath, DefaultDownloadOptions())
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrDownloadCanceled)
}

func TestHTTPDownloader_Download_404Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "test-download-404")
	downloader := NewHTTPDownloader()

	// 404 不应重试
	opts := DefaultDownloadOptions()
	opts.MaxRetries = 1
	err := downloader.Download(context.Background(), server.URL, destPath, opts)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrHTTPStatusNotOK)
}

func TestHTTPDownloader_Download_ChecksumMismatch(t *testing.T) {
	content := []byte("test file content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)))
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "test-download-checksum")
	downloader := NewHTTPDownloader()

	opts := DefaultDownloadOptions()
	opts.ExpectedChecksum = "wrongchecksum123456789"

	err := downloader.Download(context.Background(), server.URL, destPath, opts)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	// 临时文件应已清理，目标文件不应存在
	_, err = os.Stat(destPath)
	assert.True(t, os.IsNotExist(err))
}

func TestHTTPDownloader_Download_RetryOnServerError(t *testing.T) {
	// 前两次返回 500，第三次成功
	attempts := 0
	content := []byte("success after retry")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)))
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "test-download-retry")
	downloader := NewHTTPDownloader()

	opts := DefaultDownloadOptions()
	opts.MaxRetries = 3
	opts.RetryDelay = 10 * time.Millisecond

	err := downloader.Download(context.Background(), server.URL, destPath, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "应该重试直到成功")

	downloadedContent, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, content, downloadedContent)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "checksum mismatch - not retryable",
			err:      ErrChecksumMismatch,
			expected: false,
		},
		{
			name:     "download canceled - not retryable",
			err:      ErrDownloadCanceled,
			expected: false,
		},
		{
			name:     "404 error - not retryable",
			err:      fmt.Errorf("%w: 404 Not Found", ErrHTTPStatusNotOK),
			expected: false,
		},
		{
			name:     "500 error - retryable",
			err:      fmt.Errorf("%w: 500 Internal Server Error", ErrHTTPStatusNotOK),
			expected: true,
		},
		{
			name:     "network error - retryable",
			err:      fmt.Errorf("network error: connection refused"),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryableError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFetchChecksum(t *testing.T) {
	checksum := "abc123def456"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(checksum + "  qdrant-x86_64-unknown-linux-musl.tar.gz"))
	}))
	defer server.Close()

	downloader := NewHTTPDownloader()
	result, err := downloader.FetchChecksum(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, checksum, result)
}

func TestFetchChecksum_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	downloader := NewHTTPDownloader()
	_, err := downloader.FetchChecksum(context.Background(), server.URL)
	assert.Error(t, err)
}
