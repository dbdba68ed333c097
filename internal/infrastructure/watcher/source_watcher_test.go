package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automentor/backend/internal/domain/events"
)

func TestSourceWatcher_Debounce(t *testing.T) {
	tmpDir := t.TempDir()

	bus := NewEventBus()
	defer bus.Close()

	var eventCount atomic.Int32
	bus.SubscribeMultiple(
		[]events.EventType{events.SourceFileCreated, events.SourceFileModified},
		events.HandlerFunc(func(event events.Event) error {
			eventCount.Add(1)
			return nil
		}),
	)

	config := WatchConfig{
		SourceDir:     tmpDir,
		DebounceDelay: 100 * time.Millisecond,
	}

	sw, err := NewSourceWatcher(config, bus)
	require.NoError(t, err)

	require.NoError(t, sw.Start())
	defer sw.Stop()

	// 等待监听就绪
	time.Sleep(50 * time.Millisecond)

	// 快速多次写入，应被防抖合并
	testFile := filepath.Join(tmpDir, "manual.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("initial"), 0644))
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, os.WriteFile(testFile, []byte("update"), 0644))
	}

	// 等待防抖完成
	time.Sleep(300 * time.Millisecond)

	count := eventCount.Load()
	assert.GreaterOrEqual(t, count, int32(1), "防抖后应至少收到一个事件")
	assert.LessOrEqual(t, count, int32(2), "连续写入应被防抖合并")
}

func TestSourceWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	tmpDir := t.TempDir()

	bus := NewEventBus()
	defer bus.Close()

	var eventCount atomic.Int32
	bus.SubscribeMultiple(
		[]events.EventType{
			events.SourceFileCreated,
			events.SourceFileModified,
			events.SourceFileDeleted,
		},
		events.HandlerFunc(func(event events.Event) error {
			eventCount.Add(1)
			return nil
		}),
	)

	sw, err := NewSourceWatcher(WatchConfig{
		SourceDir:     tmpDir,
		DebounceDelay: 50 * time.Millisecond,
	}, bus)
	require.NoError(t, err)

	require.NoError(t, sw.Start())
	defer sw.Stop()

	time.Sleep(50 * time.Millisecond)

	// 不受支持的扩展名不应产生事件
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "image.png"), []byte("png"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notes.md"), []byte("md"), 0644))

	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, int32(0), eventCount.Load(), "不受支持的文件不应产生事件")
}

func TestSourceWatcher_DeleteEvent(t *testing.T) {
	tmpDir := t.TempDir()

	// 先放置文件再启动监听，避免创建事件干扰
	testFile := filepath.Join(tmpDir, "manual.pdf")
	require.NoError(t, os.WriteFile(testFile, []byte("pdf content"), 0644))

	bus := NewEventBus()
	defer bus.Close()

	var deleted atomic.Bool
	var deletedPath string
	var mu sync.Mutex
	bus.Subscribe(events.SourceFileDeleted, events.HandlerFunc(func(event events.Event) error {
		fileEvent, ok := event.(*events.SourceFileEvent)
		if ok {
			mu.Lock()
			deletedPath = fileEvent.SourcePath
			mu.Unlock()
			deleted.Store(true)
		}
		return nil
	}))

	sw, err := NewSourceWatcher(WatchConfig{
		SourceDir:     tmpDir,
		DebounceDelay: 50 * time.Millisecond,
	}, bus)
	require.NoError(t, err)

	require.NoError(t, sw.Start())
	defer sw.Stop()

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.Remove(testFile))

	time.Sleep(300 * time.Millisecond)

	assert.True(t, deleted.Load(), "删除文件应产生删除事件")
	mu.Lock()
	assert.Equal(t, testFile, deletedPath)
	mu.Unlock()
}

func TestSourceWatcher_CreatesSourceDir(t *testing.T) {
	tmpDir := t.TempDir()
	sourceDir := filepath.Join(tmpDir, "source_docs")

	bus := NewEventBus()
	defer bus.Close()

	sw, err := NewSourceWatcher(DefaultWatchConfig(sourceDir), bus)
	require.NoError(t, err)

	require.NoError(t, sw.Start())
	defer sw.Stop()

	info, err := os.Stat(sourceDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "启动时应自动创建源文档目录")
}

func TestScanMetadata_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	sm := &ScanMetadata{
		filePath: filepath.Join(tmpDir, "scan_metadata.json"),
	}

	testTime := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	sm.SetLastScanTime(testTime)

	// 新实例应加载同一时间
	sm2 := &ScanMetadata{
		filePath: filepath.Join(tmpDir, "scan_metadata.json"),
	}
	sm2.load()

	loaded := sm2.GetLastScanTime()
	assert.True(t, loaded.Equal(testTime), "加载的时间应与保存的一致")
}
