package watcher

import (
	"github.com/google/wire"

	"github.com/automentor/backend/internal/domain/events"
	"github.com/automentor/backend/internal/infrastructure/config"
)

// ProvideSourceWatcher 提供源文档监听器实例
func ProvideSourceWatcher(cfg *config.Config, eventBus events.EventBus) (*SourceWatcher, error) {
	return NewSourceWatcher(DefaultWatchConfig(cfg.Ingest.SourceDocsDir), eventBus)
}

// ProviderSet Watcher 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	NewEventBus,
	ProvideSourceWatcher,
	NewScanMetadata,
)
