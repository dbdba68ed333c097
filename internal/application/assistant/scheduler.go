package assistant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/automentor/backend/internal/domain/events"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/log"
	"github.com/automentor/backend/internal/infrastructure/settings"
	"github.com/automentor/backend/internal/infrastructure/watcher"
)

// ParseScanInterval 解析扫描间隔字符串
func ParseScanInterval(interval string) time.Duration {
	switch interval {
	case "30m":
		return 30 * time.Minute
	case "1h":
		return 1 * time.Hour
	case "2h":
		return 2 * time.Hour
	case "6h":
		return 6 * time.Hour
	case "24h":
		return 24 * time.Hour
	case "manual":
		return 0 // 手动模式，不自动扫描
	default:
		return 1 * time.Hour // 默认 1 小时
	}
}

// ScanScheduler 扫描调度器
// 定期对源文档目录做增量摄取，同时消费文件监听器的变更事件
type ScanScheduler struct {
	cfg      *config.Config
	store    *settings.Store
	ingest   *IngestService
	metadata *watcher.ScanMetadata

	mu       sync.Mutex
	ticker   *time.Ticker
	stopChan chan struct{}
	started  bool
	scanning atomic.Bool
	logger   *slog.Logger
}

// NewScanScheduler 创建扫描调度器
func NewScanScheduler(
	cfg *config.Config,
	store *settings.Store,
	ingest *IngestService,
	metadata *watcher.ScanMetadata,
) *ScanScheduler {
	return &ScanScheduler{
		cfg:      cfg,
		store:    store,
		ingest:   ingest,
		metadata: metadata,
		stopChan: make(chan struct{}),
		logger:   log.NewModuleLogger("assistant", "scheduler"),
	}
}

// Start 启动定时扫描
// 禁用或手动模式时直接返回
func (s *ScanScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	enabled, interval := s.effectiveScan()
	if !enabled || interval <= 0 {
		s.logger.Info("periodic scan disabled")
		return nil
	}

	s.ticker = time.NewTicker(interval)
	s.started = true
	go s.runPeriodicScan()

	s.logger.Info("periodic scan started", "interval", interval)
	return nil
}

// Stop 停止定时扫描
func (s *ScanScheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.ticker.Stop()
	close(s.stopChan)
	s.started = false
	return nil
}

// Restart 按最新设置重启定时器
// 扫描设置变更后由接口层调用
func (s *ScanScheduler) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.ticker.Stop()
		close(s.stopChan)
		s.stopChan = make(chan struct{})
		s.started = false
	}

	enabled, interval := s.effectiveScan()
	if !enabled || interval <= 0 {
		s.logger.Info("periodic scan disabled")
		return
	}

	s.ticker = time.NewTicker(interval)
	s.started = true
	go s.runPeriodicScan()

	s.logger.Info("periodic scan restarted", "interval", interval)
}

// TriggerScan 手动触发一次扫描
func (s *ScanScheduler) TriggerScan() {
	go s.scanOnce()
}

// LastScanTime 返回最近一次扫描完成时间
func (s *ScanScheduler) LastScanTime() time.Time {
	if s.metadata == nil {
		return time.Time{}
	}
	return s.metadata.GetLastScanTime()
}

// runPeriodicScan 运行定时扫描
func (s *ScanScheduler) runPeriodicScan() {
	for {
		select {
		case <-s.ticker.C:
			s.scanOnce()
		case <-s.stopChan:
			return
		}
	}
}

// scanOnce 执行一次增量扫描
// 上一次扫描尚未结束时跳过本次
func (s *ScanScheduler) scanOnce() {
	if !s.scanning.CompareAndSwap(false, true) {
		s.logger.Debug("previous scan still running, skipping")
		return
	}
	defer s.scanning.Store(false)

	report, err := s.ingest.IngestDirectory(context.Background(), "", knowledge.IngestModeAppend)
	if err != nil && !errors.Is(err, knowledge.ErrNoDocuments) {
		s.logger.Error("periodic scan failed", "error", err)
		return
	}

	if s.metadata != nil {
		s.metadata.SetLastScanTime(time.Now())
	}

	if report != nil && report.ChunksIndexed > 0 {
		s.logger.Info("periodic scan indexed new content",
			"files_read", report.DocumentsRead,
			"chunks_indexed", report.ChunksIndexed,
		)
	}
}

// HandleEvent 实现 events.Handler 接口
// 消费文件监听器发布的源文档变更事件
func (s *ScanScheduler) HandleEvent(event events.Event) error {
	fileEvent, ok := event.(*events.SourceFileEvent)
	if !ok {
		return nil
	}

	ctx := context.Background()

	switch fileEvent.EventType {
	case events.SourceFileDeleted:
		if err := s.ingest.RemoveSource(ctx, fileEvent.SourcePath); err != nil {
			s.logger.Error("failed to remove deleted source", "path", fileEvent.SourcePath, "error", err)
			return err
		}
	case events.SourceFileCreated, events.SourceFileModified:
		if _, err := s.ingest.IngestFiles(ctx, []string{fileEvent.SourcePath}); err != nil {
			if errors.Is(err, knowledge.ErrNoDocuments) {
				return nil
			}
			s.logger.Error("failed to ingest changed source", "path", fileEvent.SourcePath, "error", err)
			return err
		}
	}

	return nil
}

// effectiveScan 返回叠加运行时设置后的扫描开关和间隔
// 设置中配置了扫描间隔时整块生效，否则沿用基础配置
func (s *ScanScheduler) effectiveScan() (bool, time.Duration) {
	enabled := s.cfg.Scan.Enabled
	interval := s.cfg.Scan.Interval

	if s.store == nil {
		return enabled, interval
	}

	st, err := s.store.Read()
	if err != nil {
		s.logger.Warn("failed to read runtime settings, using base scan config", "error", err)
		return enabled, interval
	}

	if st.Scan.Interval != "" {
		enabled = st.Scan.Enabled
		interval = ParseScanInterval(st.Scan.Interval)
	}

	return enabled, interval
}
