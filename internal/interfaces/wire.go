package interfaces

import (
	"github.com/google/wire"

	"github.com/automentor/backend/internal/interfaces/http"
	"github.com/automentor/backend/internal/interfaces/mcp"
)

// ProviderSet Interfaces 层总 ProviderSet
var ProviderSet = wire.NewSet(
	http.ProviderSet,
	mcp.ProviderSet,
)
