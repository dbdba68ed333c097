package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/log"
)

const (
	// ServiceType mDNS 服务类型
	ServiceType = "_automentor._tcp"
	// ServiceDomain mDNS 域
	ServiceDomain = "local."
	// ServiceVersion 通过 TXT 记录广播的服务版本
	ServiceVersion = "1.0.0"
)

// Advertiser mDNS 服务广播器
// 局域网内的客户端可以通过 _automentor._tcp 发现本服务
type Advertiser struct {
	mu      sync.RWMutex
	cfg     *config.Config
	server  *zeroconf.Server
	running bool
	logger  *slog.Logger
}

// NewAdvertiser 创建 mDNS 广播器
func NewAdvertiser(cfg *config.Config) *Advertiser {
	return &Advertiser{
		cfg:    cfg,
		logger: log.NewModuleLogger("discovery", "advertiser"),
	}
}

// Start 开始广播服务
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("advertiser is already running")
	}

	port, err := parsePort(a.cfg.Server.HTTPPort)
	if err != nil {
		return fmt.Errorf("failed to parse http port: %w", err)
	}

	instance := instanceName()
	txtRecords := []string{
		"version=" + ServiceVersion,
		"api=/api/v1",
	}

	a.logger.Info("starting mDNS advertiser",
		"instance", instance,
		"port", port,
		"txt_records", txtRecords,
	)

	server, err := zeroconf.Register(
		instance,
		ServiceType,
		ServiceDomain,
		port,
		txtRecords,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = server
	a.running = true

	a.logger.Info("mDNS advertiser started", "instance", instance)

	return nil
}

// Stop 停止广播
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	a.running = false

	a.logger.Info("mDNS advertiser stopped")

	return nil
}

// IsRunning 是否正在广播
func (a *Advertiser) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// instanceName 实例名称，形如 automentor@<hostname>
func instanceName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "automentor"
	}
	return "automentor@" + hostname
}

// parsePort 从 ":8000" 或 "host:8000" 形式的监听地址解析端口号
func parsePort(addr string) (int, error) {
	portStr := strings.TrimPrefix(addr, ":")
	if strings.Contains(portStr, ":") {
		_, p, err := net.SplitHostPort(addr)
		if err != nil {
			return 0, err
		}
		portStr = p
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", addr, err)
	}
	return port, nil
}
