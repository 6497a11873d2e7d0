package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Version returns the release version.
func Version() string { return version }

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("civic-match version %s, commit %s, built at %s", version, commit, date)
}

// DefaultPrecache is the application shell installed by the caching worker.
var DefaultPrecache = []string{
	"/",
	"/offline",
	"/manifest.webmanifest",
	"/icon.svg",
	"/favicon.ico",
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Network  NetworkConfig  `mapstructure:"network"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
}

// AuthType represents the type of authentication to use
type AuthType string

const (
	AuthTypeNone        AuthType = "none"
	AuthTypeBasic       AuthType = "basic"
	AuthTypeBearer      AuthType = "bearer"
	AuthTypeAPIKey      AuthType = "api_key"
	AuthTypeServiceRole AuthType = "service_role"
)

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	Host              string        `mapstructure:"host"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	Name              string        `mapstructure:"name"`
	AllowOrigins      []string      `mapstructure:"allow_origins"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// WorkerConfig configures the caching worker placed in front of the origin.
type WorkerConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	CacheVersion string   `mapstructure:"cache_version"`
	Origin       string   `mapstructure:"origin"`
	OfflinePath  string   `mapstructure:"offline_path"`
	Precache     []string `mapstructure:"precache"`
	PrecacheFile string   `mapstructure:"precache_file"`
}

type CacheConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or memory
	Path   string `mapstructure:"path"`
}

// NetworkConfig configures how the worker reaches the origin.
type NetworkConfig struct {
	Upstream         string            `mapstructure:"upstream"` // empty: serve the origin in-process
	Timeout          time.Duration     `mapstructure:"timeout"`
	PassthroughHosts []string          `mapstructure:"passthrough_hosts"`
	Headers          map[string]string `mapstructure:"headers"`
}

// BackendConfig holds the managed backend (auth, Postgres, storage) credentials.
type BackendConfig struct {
	URL            string   `mapstructure:"url"`
	AnonKey        string   `mapstructure:"anon_key"`
	ServiceRoleKey string   `mapstructure:"service_role_key"`
	JWTSecret      string   `mapstructure:"jwt_secret"`
	JWTAudience    string   `mapstructure:"jwt_audience"`
	AuthType       AuthType `mapstructure:"auth_type"`
}

type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	MaxConns    int32  `mapstructure:"max_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the config file")
	fs.Int("server.port", 8080, "Port to listen on")
	fs.String("worker.cache_version", "", "Cache store version identifier")
	fs.String("database.url", "", "Postgres connection string")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.name", "Civic Match")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.cache_version", "cm-cache-v1")
	v.SetDefault("worker.offline_path", "/offline")
	v.SetDefault("worker.precache", DefaultPrecache)

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "data/cache.db")

	v.SetDefault("network.timeout", 30*time.Second)

	v.SetDefault("backend.jwt_audience", "authenticated")
	v.SetDefault("backend.auth_type", string(AuthTypeServiceRole))

	v.SetDefault("database.max_conns", 10)
}

// Load reads configuration from ./config.yaml (or /etc/civic-match), a .env file,
// CIVIC_MATCH_* environment variables and the given flags, in increasing precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CIVIC_MATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/civic-match")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finalize() error {
	if c.Worker.CacheVersion == "" {
		return fmt.Errorf("worker.cache_version is required, please adjust the config or pass --worker.cache_version or CIVIC_MATCH_WORKER_CACHE_VERSION environment variable")
	}
	if c.Worker.Origin == "" {
		host := c.Server.Host
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		c.Worker.Origin = fmt.Sprintf("http://%s:%d", host, c.Server.Port)
	}
	if _, err := url.Parse(c.Worker.Origin); err != nil {
		return fmt.Errorf("invalid worker.origin %q: %w", c.Worker.Origin, err)
	}
	if c.Network.Upstream != "" {
		if _, err := url.Parse(c.Network.Upstream); err != nil {
			return fmt.Errorf("invalid network.upstream %q: %w", c.Network.Upstream, err)
		}
	}
	switch c.Cache.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported cache driver: %s", c.Cache.Driver)
	}
	return nil
}
