package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/automentor/backend/internal/domain/events"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/log"
)

// WatchConfig SourceWatcher 配置
type WatchConfig struct {
	// SourceDir 源文档目录
	SourceDir string
	// DebounceDelay 防抖延迟
	DebounceDelay time.Duration
}

// DefaultWatchConfig 返回默认配置
func DefaultWatchConfig(sourceDir string) WatchConfig {
	return WatchConfig{
		SourceDir:     sourceDir,
		DebounceDelay: 500 * time.Millisecond,
	}
}

// SourceWatcher 源文档目录监听器
// 监听受支持的文档文件变更，经防抖后发布领域事件
type SourceWatcher struct {
	config   WatchConfig
	eventBus events.EventBus
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// 防抖：同一路径的连续事件合并为一次，保留最后一个
	debounceTimers map[string]*time.Timer
	pendingEvents  map[string]fsnotify.Event
	debounceMu     sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSourceWatcher 创建源文档监听器
func NewSourceWatcher(config WatchConfig, eventBus events.EventBus) (*SourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if config.DebounceDelay <= 0 {
		config.DebounceDelay = 500 * time.Millisecond
	}

	return &SourceWatcher{
		config:         config,
		eventBus:       eventBus,
		watcher:        watcher,
		logger:         log.NewModuleLogger("watcher", "source_watcher"),
		debounceTimers: make(map[string]*time.Timer),
		pendingEvents:  make(map[string]fsnotify.Event),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 启动文件监听
// 源文档目录不存在时自动创建
func (sw *SourceWatcher) Start() error {
	if err := os.MkdirAll(sw.config.SourceDir, 0755); err != nil {
		return fmt.Errorf("failed to create source directory: %w", err)
	}

	if err := sw.watcher.Add(sw.config.SourceDir); err != nil {
		return fmt.Errorf("failed to watch source directory: %w", err)
	}

	sw.logger.Info("source watcher started",
		"source_dir", sw.config.SourceDir,
		"debounce", sw.config.DebounceDelay,
	)

	sw.wg.Add(1)
	go sw.watchLoop()

	return nil
}

// Stop 停止文件监听
func (sw *SourceWatcher) Stop() {
	close(sw.stopCh)
	sw.watcher.Close()
	sw.wg.Wait()

	sw.debounceMu.Lock()
	for _, timer := range sw.debounceTimers {
		timer.Stop()
	}
	sw.debounceMu.Unlock()

	sw.logger.Info("source watcher stopped")
}

// watchLoop 事件监听循环
func (sw *SourceWatcher) watchLoop() {
	defer sw.wg.Done()

	for {
		select {
		case <-sw.stopCh:
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.handleFsEvent(event)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("watcher error", "error", err)
		}
	}
}

// handleFsEvent 处理文件系统事件（带防抖）
// 不受支持的扩展名直接忽略
func (sw *SourceWatcher) handleFsEvent(fsEvent fsnotify.Event) {
	if !knowledge.IsSupportedSource(fsEvent.Name) {
		return
	}
	if !fsEvent.Has(fsnotify.Create) && !fsEvent.Has(fsnotify.Write) &&
		!fsEvent.Has(fsnotify.Remove) && !fsEvent.Has(fsnotify.Rename) {
		return
	}

	sw.debounceMu.Lock()
	defer sw.debounceMu.Unlock()

	if timer, exists := sw.debounceTimers[fsEvent.Name]; exists {
		timer.Stop()
	}

	// 保留最后一个事件
	sw.pendingEvents[fsEvent.Name] = fsEvent

	sw.debounceTimers[fsEvent.Name] = time.AfterFunc(sw.config.DebounceDelay, func() {
		sw.debounceMu.Lock()
		pending, ok := sw.pendingEvents[fsEvent.Name]
		delete(sw.pendingEvents, fsEvent.Name)
		delete(sw.debounceTimers, fsEvent.Name)
		sw.debounceMu.Unlock()

		if ok {
			sw.emitSourceFileEvent(pending)
		}
	})
}

// emitSourceFileEvent 发布源文档变更事件
func (sw *SourceWatcher) emitSourceFileEvent(fsEvent fsnotify.Event) {
	var eventType events.EventType
	switch {
	case fsEvent.Has(fsnotify.Create):
		eventType = events.SourceFileCreated
	case fsEvent.Has(fsnotify.Write):
		eventType = events.SourceFileModified
	case fsEvent.Has(fsnotify.Remove), fsEvent.Has(fsnotify.Rename):
		eventType = events.SourceFileDeleted
	default:
		return
	}

	var modTime time.Time
	var fileSize int64
	if fileInfo, err := os.Stat(fsEvent.Name); err == nil {
		modTime = fileInfo.ModTime()
		fileSize = fileInfo.Size()
	} else if eventType != events.SourceFileDeleted {
		// 防抖窗口内文件又被删除了
		eventType = events.SourceFileDeleted
	}

	sw.eventBus.Publish(&events.SourceFileEvent{
		EventType:  eventType,
		SourcePath: fsEvent.Name,
		ModTime:    modTime,
		FileSize:   fileSize,
		EventTime:  time.Now(),
	})

	sw.logger.Debug("source file event emitted",
		"type", eventType,
		"path", fsEvent.Name,
	)
}
