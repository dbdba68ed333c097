package settings

import "github.com/google/wire"

// ProviderSet 运行时设置 ProviderSet
var ProviderSet = wire.NewSet(
	NewStore,
)
