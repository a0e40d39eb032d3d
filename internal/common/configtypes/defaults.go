package configtypes

import (
	"fmt"
	"strings"
	"time"
)

// Default values applied by ApplyDefaults.
const (
	DefaultListen        = ":8080"
	DefaultTimeout       = 30 * time.Second
	DefaultTablePrefix   = "wp_"
	DefaultAuthorPath    = "author"
	DefaultSiteTreePath  = "/site-tree"
	DefaultItemsPerPage  = 100
	DefaultSectionLimit  = 100
	DefaultMetricsPath   = "/metrics"
	DefaultMetricsListen = ":9091"
	DefaultNamespace     = "sitetree"
	DefaultCompression   = CompressionLZ4
)

// ApplyDefaults fills zero values with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = Duration(DefaultTimeout)
	}
	if c.Database.TablePrefix == "" {
		c.Database.TablePrefix = DefaultTablePrefix
	}
	if c.Redis.Compression == "" {
		c.Redis.Compression = DefaultCompression
	}
	if c.Site.AuthorPath == "" {
		c.Site.AuthorPath = DefaultAuthorPath
	}
	if c.Site.TaxonomyPaths == nil {
		c.Site.TaxonomyPaths = map[string]string{
			"category": "category",
			"post_tag": "tag",
		}
	}
	if len(c.Sitemap.PostTypes) == 0 {
		c.Sitemap.PostTypes = []string{"page", "post"}
	}
	if len(c.Newsmap.PostTypes) == 0 {
		c.Newsmap.PostTypes = []string{"post"}
	}
	if c.SiteTree.Path == "" {
		c.SiteTree.Path = DefaultSiteTreePath
	}
	if c.SiteTree.ItemsPerPage <= 0 {
		c.SiteTree.ItemsPerPage = DefaultItemsPerPage
	}
	for i := range c.SiteTree.Sections {
		if c.SiteTree.Sections[i].Limit <= 0 {
			c.SiteTree.Sections[i].Limit = DefaultSectionLimit
		}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if !c.Log.Console.Enabled && !c.Log.File.Enabled {
		c.Log.Console.Enabled = true
		c.Log.Console.Format = LogFormatConsole
	}
}

// Validate reports configuration errors that would make the daemon
// unable to serve anything meaningful.
func (c *Config) Validate() error {
	if c.Site.URL == "" {
		return fmt.Errorf("site.url is required")
	}
	if strings.HasSuffix(c.Site.URL, "/") {
		return fmt.Errorf("site.url must not end with a slash")
	}
	if !strings.HasPrefix(c.Site.URL, "http://") && !strings.HasPrefix(c.Site.URL, "https://") {
		return fmt.Errorf("site.url must be an absolute http(s) URL")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	switch c.Redis.Compression {
	case CompressionLZ4, CompressionSnappy, CompressionNone:
	default:
		return fmt.Errorf("redis.compression must be one of lz4, snappy, none")
	}
	if c.Newsmap.Enabled && c.Newsmap.PublicationName == "" {
		return fmt.Errorf("newsmap.publication_name is required when the newsmap is enabled")
	}
	if c.Sitemap.MaxPermalinks < 0 || c.Newsmap.MaxPermalinks < 0 {
		return fmt.Errorf("max_permalinks must not be negative")
	}
	for _, section := range c.SiteTree.Sections {
		if section.Type == "" {
			return fmt.Errorf("site_tree.sections entries need a type")
		}
	}
	if c.Metrics.Enabled && c.Metrics.Listen == c.Server.Listen {
		return fmt.Errorf("metrics.listen must differ from server.listen")
	}
	return nil
}

// SlugEnabled reports whether a sitemap family is active.
func (c *Config) SlugEnabled(slug string) bool {
	switch slug {
	case SlugSitemap:
		return c.Sitemap.Enabled
	case SlugNewsmap:
		return c.Newsmap.Enabled
	case SlugSiteTree:
		return c.SiteTree.Enabled
	default:
		return false
	}
}
