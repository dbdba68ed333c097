package config

import "github.com/google/wire"

// ProviderSet 配置 ProviderSet
// 只暴露注入器实际消费的配置切片，wire 会拒绝未使用的 provider
var ProviderSet = wire.NewSet(
	NewConfig,
	NewDatabaseConfig,
)
