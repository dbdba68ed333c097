package infrastructure

import (
	"github.com/google/wire"

	"github.com/automentor/backend/internal/infrastructure/config"
	"github.com/automentor/backend/internal/infrastructure/discovery"
	"github.com/automentor/backend/internal/infrastructure/settings"
	"github.com/automentor/backend/internal/infrastructure/storage"
	"github.com/automentor/backend/internal/infrastructure/vector"
	"github.com/automentor/backend/internal/infrastructure/watcher"
	"github.com/automentor/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	vector.ProviderSet,
	watcher.ProviderSet,
	websocket.ProviderSet,
	settings.ProviderSet,
	discovery.ProviderSet,
)
