package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validYAML = `
server:
  listen: ":8080"
  timeout: 10s
redis:
  addr: "localhost:6379"
database:
  dsn: "user:pass@tcp(localhost:3306)/wordpress"
site:
  url: "https://example.com"
  gmt_offset: 1
sitemap:
  enabled: true
  post_types: [page, post]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sitetreed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewManagerLoadsAndDefaults(t *testing.T) {
	manager, err := NewManager(writeConfig(t, validYAML), zap.NewNop())
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, "https://example.com", cfg.Site.URL)
	assert.True(t, cfg.Sitemap.Enabled)

	// Defaults fill what the file leaves out.
	assert.Equal(t, "wp_", cfg.Database.TablePrefix)
	assert.Equal(t, "author", cfg.Site.AuthorPath)
	assert.Equal(t, "lz4", cfg.Redis.Compression)
	assert.Equal(t, "/site-tree", cfg.SiteTree.Path)
	assert.Equal(t, 100, cfg.SiteTree.ItemsPerPage)
}

func TestNewManagerRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, validYAML+"\nsitemaps:\n  enabled: true\n")

	_, err := NewManager(path, zap.NewNop())
	assert.Error(t, err)
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing site url",
			yaml: "redis:\n  addr: localhost:6379\ndatabase:\n  dsn: x\n",
		},
		{
			name: "trailing slash on site url",
			yaml: "site:\n  url: https://example.com/\nredis:\n  addr: localhost:6379\ndatabase:\n  dsn: x\n",
		},
		{
			name: "newsmap without publication name",
			yaml: validYAML + "newsmap:\n  enabled: true\n",
		},
		{
			name: "bad compression",
			yaml: "redis:\n  addr: localhost:6379\n  compression: gzip\ndatabase:\n  dsn: x\nsite:\n  url: https://example.com\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(writeConfig(t, tt.yaml), zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestNewManagerMissingFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
	assert.Error(t, err)
}

func TestValidateStandalone(t *testing.T) {
	cfg, err := Validate(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.Site.URL)
}
