package config

import "go.uber.org/fx"

// Module supplies cfg and each of its sections to the fx graph.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
		fx.Provide(
			func(c *Config) *ServerConfig { return &c.Server },
			func(c *Config) *LoggingConfig { return &c.Logging },
			func(c *Config) *WorkerConfig { return &c.Worker },
			func(c *Config) *CacheConfig { return &c.Cache },
			func(c *Config) *NetworkConfig { return &c.Network },
			func(c *Config) *BackendConfig { return &c.Backend },
			func(c *Config) *DatabaseConfig { return &c.Database },
		),
	)
}
