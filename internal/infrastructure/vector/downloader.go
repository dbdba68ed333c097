package vector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/automentor/backend/internal/infrastructure/log"
)

// 下载相关错误
var (
	ErrDownloadCanceled = errors.New("download canceled")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrFileSizeMismatch = errors.New("file size mismatch")
	ErrDownloadFailed   = errors.New("download failed")
	ErrHTTPStatusNotOK  = errors.New("HTTP status not OK")
)

// ProgressCallback 下载进度回调
// downloaded: 已下载字节数，total: 总字节数（未知时为 -1）
type ProgressCallback func(downloaded, total int64)

// DownloadOptions 下载选项
type DownloadOptions struct {
	// OnProgress 进度回调，约每秒调用一次
	OnProgress ProgressCallback
	// ExpectedChecksum SHA256 校验和（空字符串表示不校验）
	ExpectedChecksum string
	// MaxRetries 最大重试次数（默认 3）
	MaxRetries int
	// RetryDelay 重试延迟基数（默认 1s，指数退避）
	RetryDelay time.Duration
}

// DefaultDownloadOptions 返回默认下载选项
func DefaultDownloadOptions() DownloadOptions {
	return DownloadOptions{
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Downloader 文件下载器接口
type Downloader interface {
	Download(ctx context.Context, url, destPath string, opts DownloadOptions) error
}

// HTTPDownloader HTTP 文件下载器实现
type HTTPDownloader struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPDownloader 创建新的 HTTP 下载器
func NewHTTPDownloader() *HTTPDownloader {
	// 分离各阶段超时，整体超时由 context 控制
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &HTTPDownloader{
		client: &http.Client{
			Transport: transport,
		},
		logger: log.NewModuleLogger("vector", "downloader"),
	}
}

// Download 实现 Downloader 接口
func (d *HTTPDownloader) Download(ctx context.Context, url, destPath string, opts DownloadOptions) error {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrDownloadCanceled, ctx.Err())
		default:
		}

		if attempt > 1 {
			d.logger.Info("retrying download",
				"attempt", attempt,
				"max_retries", opts.MaxRetries,
				"url", url)

			// 指数退避等待
			waitTime := opts.RetryDelay * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrDownloadCanceled, ctx.Err())
			case <-time.After(waitTime):
			}
		}

		err := d.downloadOnce(ctx, url, destPath, opts)
		if err == nil {
			return nil
		}

		lastErr = err
		d.logger.Warn("download attempt failed",
			"attempt", attempt,
			"error", err)

		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrDownloadFailed, opts.MaxRetries, lastErr)
}

// downloadOnce 执行单次下载尝试
// 先写入临时文件，校验通过后重命名为目标文件
func (d *HTTPDownloader) downloadOnce(ctx context.Context, url, destPath string, opts DownloadOptions) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "automentor-downloader/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d %s", ErrHTTPStatusNotOK, resp.StatusCode, resp.Status)
	}

	contentLength := resp.ContentLength
	if contentLength > 0 {
		d.logger.Info("downloading file",
			"url", url,
			"size_mb", float64(contentLength)/(1024*1024))
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	var reader io.Reader = resp.Body
	if opts.OnProgress != nil {
		reader = &progressReader{
			reader:     resp.Body,
			total:      contentLength,
			onProgress: opts.OnProgress,
		}
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrDownloadCanceled, ctx.Err())
		}
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if contentLength > 0 && written != contentLength {
		return fmt.Errorf("%w: expected %d bytes, got %d bytes",
			ErrFileSizeMismatch, contentLength, written)
	}

	if opts.ExpectedChecksum != "" {
		checksum, err := calculateFileChecksum(tmpPath)
		if err != nil {
			return fmt.Errorf("failed to calculate checksum: %w", err)
		}
		if !strings.EqualFold(checksum, opts.ExpectedChecksum) {
			return fmt.Errorf("%w: expected %s, got %s",
				ErrChecksumMismatch, opts.ExpectedChecksum, checksum)
		}
		d.logger.Info("checksum verified", "checksum", checksum)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	success = true
	d.logger.Info("download completed",
		"path", destPath,
		"size_bytes", written)

	return nil
}

// FetchChecksum 从远程获取校验和文件内容
// 支持 "hash  filename" 或纯 hash 两种格式
func (d *HTTPDownloader) FetchChecksum(ctx context.Context, checksumURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checksumURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "automentor-downloader/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checksum file not available: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parts := strings.Fields(strings.TrimSpace(string(data)))
	if len(parts) == 0 {
		return "", fmt.Errorf("invalid checksum format")
	}

	return parts[0], nil
}

// progressReader 包装 io.Reader 以报告下载进度
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	onProgress ProgressCallback
	lastReport time.Time
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	pr.downloaded += int64(n)

	now := time.Now()
	if now.Sub(pr.lastReport) >= time.Second || err == io.EOF {
		pr.onProgress(pr.downloaded, pr.total)
		pr.lastReport = now
	}

	return n, err
}

// calculateFileChecksum 计算文件的 SHA256 校验和
func calculateFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// isRetryableError 判断下载错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrDownloadCanceled) {
		return false
	}

	// HTTP 状态错误只有服务器端（5xx）可重试
	if errors.Is(err, ErrHTTPStatusNotOK) {
		errStr := err.Error()
		if strings.Contains(errStr, "400") ||
			strings.Contains(errStr, "401") ||
			strings.Contains(errStr, "403") ||
			strings.Contains(errStr, "404") {
			return false
		}
	}

	return true
}
