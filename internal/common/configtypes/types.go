package configtypes

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// Blob compression algorithms
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
)

// Sitemap slug constants. Every cached blob, metrics record and ping state
// is keyed by one of these.
const (
	SlugSitemap  = "sitemap"
	SlugNewsmap  = "newsmap"
	SlugSiteTree = "site_tree"
)

// Duration wraps time.Duration so YAML values like "30s" decode naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for the sitetree daemon.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Site     SiteConfig     `yaml:"site"`
	Sitemap  SitemapConfig  `yaml:"sitemap"`
	Newsmap  NewsmapConfig  `yaml:"newsmap"`
	SiteTree SiteTreeConfig `yaml:"site_tree"`
	Ping     PingConfig     `yaml:"ping"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Listen  string   `yaml:"listen"`
	Timeout Duration `yaml:"timeout"`
}

// RedisConfig configures the key-value store holding index blobs,
// metrics records and ping state.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	// Compression applied to stored blobs: "lz4", "snappy" or "none".
	Compression string `yaml:"compression,omitempty"`
}

// DatabaseConfig configures the MySQL content store.
type DatabaseConfig struct {
	DSN             string   `yaml:"dsn"`
	TablePrefix     string   `yaml:"table_prefix,omitempty"`
	MaxOpenConns    int      `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int      `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime,omitempty"`
}

// SiteConfig describes the website the sitemaps are generated for.
type SiteConfig struct {
	// URL is the site root, no trailing slash (e.g. "https://example.com").
	URL string `yaml:"url"`
	// GMTOffset is the site timezone offset in whole hours.
	GMTOffset int `yaml:"gmt_offset"`
	// TemplateDir holds theme templates whose mtimes can bump a page's lastmod.
	TemplateDir string `yaml:"template_dir,omitempty"`
	// FrontPageID is the page designated as the static front page; 0 = none.
	FrontPageID int64 `yaml:"front_page_id"`
	// PostsPageID is the page serving as the blog index; 0 = none.
	PostsPageID int64 `yaml:"posts_page_id"`
	// AuthorPath is the path segment of author archives (default "author").
	AuthorPath string `yaml:"author_path,omitempty"`
	// TaxonomyPaths maps taxonomy names to their URL path segment
	// (default {"category": "category", "post_tag": "tag"}).
	TaxonomyPaths map[string]string `yaml:"taxonomy_paths,omitempty"`
}

// SitemapConfig configures the general Google sitemap.
type SitemapConfig struct {
	Enabled bool `yaml:"enabled"`
	// MaxPermalinks caps the number of URL elements per sitemap file.
	MaxPermalinks int `yaml:"max_permalinks,omitempty"`
	// PostTypes included in the sitemap, e.g. ["page", "post"].
	PostTypes []string `yaml:"post_types"`
	// Taxonomies included in the sitemap, e.g. ["category", "post_tag"].
	Taxonomies []string `yaml:"taxonomies,omitempty"`
	// IncludeAuthors adds author archive pages to the sitemap.
	IncludeAuthors bool `yaml:"include_authors"`
	// ExcludedTermIDs lists term ids to leave out, keyed by taxonomy.
	ExcludedTermIDs map[string][]int64 `yaml:"excluded_term_ids,omitempty"`
	// ExcludedAuthors lists author nicenames to leave out.
	ExcludedAuthors []string `yaml:"excluded_authors,omitempty"`
}

// NewsmapConfig configures the Google News sitemap.
type NewsmapConfig struct {
	Enabled       bool     `yaml:"enabled"`
	MaxPermalinks int      `yaml:"max_permalinks,omitempty"`
	PostTypes     []string `yaml:"post_types,omitempty"`
	// PublicationName and PublicationLanguage fill the news metadata of
	// every URL element.
	PublicationName     string `yaml:"publication_name"`
	PublicationLanguage string `yaml:"publication_language,omitempty"`
}

// SiteTreeSection is one content block of the HTML site tree.
type SiteTreeSection struct {
	// Type is a post type, a taxonomy name, or "authors".
	Type  string `yaml:"type"`
	Title string `yaml:"title,omitempty"`
	// Limit caps the items listed for this section (default 100).
	Limit int `yaml:"limit,omitempty"`
	// ExcludeIDs removes specific items from the listing.
	ExcludeIDs []int64 `yaml:"exclude_ids,omitempty"`
}

// SiteTreeConfig configures the in-page HTML hyperlink listing.
type SiteTreeConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path the site tree is served at (default "/site-tree").
	Path string `yaml:"path,omitempty"`
	// ItemsPerPage splits the listing into pages (default 100).
	ItemsPerPage int               `yaml:"items_per_page,omitempty"`
	Sections     []SiteTreeSection `yaml:"sections,omitempty"`
}

// PingConfig configures search engine pings.
type PingConfig struct {
	Enabled bool `yaml:"enabled"`
	// OnInvalidation sends an automatic ping whenever cached data is flushed.
	OnInvalidation bool `yaml:"on_invalidation"`
	// Local suppresses outbound pings for sites not reachable publicly.
	Local bool `yaml:"local,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level   string           `yaml:"level,omitempty"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format,omitempty"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path,omitempty"`
	Format   string         `yaml:"format,omitempty"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation,omitempty"`
}

// RotationConfig controls log file rotation via lumberjack.
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size,omitempty"`    // megabytes
	MaxAge     int  `yaml:"max_age,omitempty"`     // days
	MaxBackups int  `yaml:"max_backups,omitempty"` // files
	Compress   bool `yaml:"compress,omitempty"`
}
