//go:build integration
// +build integration

// TestDaemon 管理独立 automentor-daemon 进程的启动与关闭
package framework

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// TestDaemon 测试守护进程
type TestDaemon struct {
	Name     string // 角色名称
	HTTPPort int    // HTTP 端口
	DataDir  string // 数据目录（隔离）

	cmd     *exec.Cmd
	baseURL string
}

// NewTestDaemon 创建测试守护进程
// 测试用配置关闭托管 Qdrant 和定时扫描，避免下载二进制和后台任务干扰断言
func NewTestDaemon(binaryPath, name string) (*TestDaemon, error) {
	// 分配空闲端口
	httpPort, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate HTTP port: %w", err)
	}

	// 创建隔离的数据目录
	dataDir, err := os.MkdirTemp("", fmt.Sprintf("automentor-test-%s-", name))
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	configYAML := "qdrant:\n  managed: false\nscan:\n  enabled: false\n  watch: false\n"
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		return nil, fmt.Errorf("failed to write test config: %w", err)
	}

	d := &TestDaemon{
		Name:     name,
		HTTPPort: httpPort,
		DataDir:  dataDir,
		baseURL:  fmt.Sprintf("http://localhost:%d", httpPort),
	}

	// 构建进程命令
	d.cmd = exec.Command(binaryPath)
	d.cmd.Env = append(os.Environ(),
		fmt.Sprintf("AUTOMENTOR_DATA_DIR=%s", dataDir),
		fmt.Sprintf("AUTOMENTOR_HTTP_PORT=:%d", httpPort),
		"GIN_MODE=test",
	)
	d.cmd.Stdout = os.Stdout
	d.cmd.Stderr = os.Stderr

	return d, nil
}

// NewTestDaemonOnPort 在指定端口创建守护进程（用于单例锁场景）
func NewTestDaemonOnPort(binaryPath, name string, httpPort int) (*TestDaemon, error) {
	dataDir, err := os.MkdirTemp("", fmt.Sprintf("automentor-test-%s-", name))
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	d := &TestDaemon{
		Name:     name,
		HTTPPort: httpPort,
		DataDir:  dataDir,
		baseURL:  fmt.Sprintf("http://localhost:%d", httpPort),
	}

	d.cmd = exec.Command(binaryPath)
	d.cmd.Env = append(os.Environ(),
		fmt.Sprintf("AUTOMENTOR_DATA_DIR=%s", dataDir),
		fmt.Sprintf("AUTOMENTOR_HTTP_PORT=:%d", httpPort),
		"GIN_MODE=test",
	)
	d.cmd.Stdout = os.Stdout
	d.cmd.Stderr = os.Stderr

	return d, nil
}

// RunToCompletion 启动进程并等待其自行退出
// 退出码非 0 时返回错误
func (d *TestDaemon) RunToCompletion() error {
	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon %s: %w", d.Name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- d.cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(15 * time.Second):
		_ = d.cmd.Process.Kill()
		<-done
		return fmt.Errorf("daemon %s did not exit within 15s", d.Name)
	}
}

// Cleanup 删除数据目录（进程已结束的场景）
func (d *TestDaemon) Cleanup() error {
	return os.RemoveAll(d.DataDir)
}

// Start 启动守护进程并等待就绪
func (d *TestDaemon) Start() error {
	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon %s: %w", d.Name, err)
	}

	// 等待 health 端点就绪
	return d.waitForReady(30 * time.Second)
}

// Stop 停止守护进程并清理数据目录
func (d *TestDaemon) Stop() error {
	if d.cmd.Process != nil {
		// 发送关闭信号
		_ = d.cmd.Process.Signal(os.Interrupt)

		// 等待进程退出（最多 5 秒）
		done := make(chan error, 1)
		go func() {
			done <- d.cmd.Wait()
		}()

		select {
		case <-done:
			// 正常退出
		case <-time.After(5 * time.Second):
			// 强制杀进程
			_ = d.cmd.Process.Kill()
			<-done
		}
	}

	return os.RemoveAll(d.DataDir)
}

// BaseURL 返回 HTTP 基础 URL
func (d *TestDaemon) BaseURL() string {
	return d.baseURL
}

// SourceDocsDir 返回源文档目录，测试可直接往里放文件
func (d *TestDaemon) SourceDocsDir() string {
	return filepath.Join(d.DataDir, "source_docs")
}

// waitForReady 等待守护进程 health 端点就绪
func (d *TestDaemon) waitForReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(d.baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(200 * time.Millisecond)
	}

	return fmt.Errorf("daemon %s failed to become ready within %v", d.Name, timeout)
}

// getFreePort 获取一个空闲的 TCP 端口
func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
