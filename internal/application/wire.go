package application

import (
	"github.com/google/wire"

	"github.com/automentor/backend/internal/application/assistant"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	assistant.ProviderSet,
)
