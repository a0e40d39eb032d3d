package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/yamlutil"
)

// Type aliases so callers don't need to import configtypes alongside config.
type (
	Config         = configtypes.Config
	ServerConfig   = configtypes.ServerConfig
	RedisConfig    = configtypes.RedisConfig
	DatabaseConfig = configtypes.DatabaseConfig
	SiteConfig     = configtypes.SiteConfig
	SitemapConfig  = configtypes.SitemapConfig
	NewsmapConfig  = configtypes.NewsmapConfig
	LogConfig      = configtypes.LogConfig
)

// Manager loads and holds the daemon configuration. The configuration is
// read once at startup; a changed file requires a restart, which also
// regenerates the cache generation token (see Token).
type Manager struct {
	config     *Config
	configPath string
	logger     *zap.Logger
}

func NewManager(configPath string, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		configPath: configPath,
		logger:     logger,
	}
	if err := m.load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", m.configPath, err)
	}

	cfg := &Config{}
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", m.configPath, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", m.configPath, err)
	}

	m.config = cfg
	m.logger.Debug("Configuration loaded",
		zap.String("path", m.configPath),
		zap.String("site_url", cfg.Site.URL),
		zap.Bool("sitemap_enabled", cfg.Sitemap.Enabled),
		zap.Bool("newsmap_enabled", cfg.Newsmap.Enabled))

	return nil
}

// GetConfig returns the loaded configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Validate parses and validates a configuration file without building a
// manager; used by the -t command line mode.
func Validate(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}
	cfg := &Config{}
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
