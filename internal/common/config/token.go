package config

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/sitetree/engine/internal/common/configtypes"
)

// Token derives a cache generation token for a sitemap slug from the parts
// of the configuration that shape its content. Index and metrics blobs embed
// the token in their keys, so changing the configuration orphans stale blobs
// instead of serving an index built under different settings.
func (m *Manager) Token(slug string) string {
	cfg := m.config

	var snapshot interface{}
	switch slug {
	case configtypes.SlugNewsmap:
		snapshot = struct {
			Newsmap configtypes.NewsmapConfig
			Site    configtypes.SiteConfig
		}{cfg.Newsmap, cfg.Site}
	case configtypes.SlugSiteTree:
		snapshot = struct {
			SiteTree configtypes.SiteTreeConfig
			Site     configtypes.SiteConfig
		}{cfg.SiteTree, cfg.Site}
	default:
		snapshot = struct {
			Sitemap configtypes.SitemapConfig
			Site    configtypes.SiteConfig
		}{cfg.Sitemap, cfg.Site}
	}

	encoded, err := yaml.Marshal(snapshot)
	if err != nil {
		// Marshalling plain config structs cannot fail; fall back to a
		// constant token rather than aborting the request.
		return "0"
	}
	return fmt.Sprintf("%012x", xxhash.Sum64(encoded)&0xffffffffffff)
}
