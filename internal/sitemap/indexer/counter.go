package indexer

import (
	"context"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/content"
)

// newsWindowDays bounds how far back the news sitemap reaches.
const newsWindowDays = 2

// ContentCounter runs the per-family category count queries an index build
// is made of. Each method returns one batch of counters, already ordered
// the way the index wants them folded.
type ContentCounter struct {
	cfg   *configtypes.Config
	store content.Querier
}

func NewContentCounter(cfg *configtypes.Config, store content.Querier) *ContentCounter {
	return &ContentCounter{
		cfg:   cfg,
		store: store,
	}
}

// ExclusionMetaKeys returns the post meta flags that hide a post from the
// given sitemap. Ghost pages only ever concern the general sitemap.
func (c *ContentCounter) ExclusionMetaKeys(slug string) []string {
	keys := []string{"sitetree_exclude_from_" + slug}
	if slug == configtypes.SlugSitemap {
		keys = append(keys, "sitetree_is_ghost_page")
	}
	return keys
}

// PostTypes returns the post types included in the given sitemap.
func (c *ContentCounter) PostTypes(slug string) []string {
	if slug == configtypes.SlugNewsmap {
		return c.cfg.Newsmap.PostTypes
	}
	return c.cfg.Sitemap.PostTypes
}

// PostCounts counts permalinks per included post type. For the general
// sitemap the "page" category is ordered first; for the news sitemap only
// recently published posts count.
func (c *ContentCounter) PostCounts(ctx context.Context, slug string) ([]content.CategoryCount, error) {
	params := content.CountPostsParams{
		PostTypes:       c.PostTypes(slug),
		ExcludeMetaKeys: c.ExclusionMetaKeys(slug),
	}

	if slug == configtypes.SlugNewsmap {
		params.NewsWindowDays = newsWindowDays
	} else {
		params.PageFirst = containsString(params.PostTypes, "page")
	}

	return c.store.CountPosts(ctx, params)
}

// AuthorCounts counts author archive pages. The bool reports whether the
// family is part of the sitemap at all: an excluded family must not be
// folded into the index, while an included family that counts to zero
// still is.
func (c *ContentCounter) AuthorCounts(ctx context.Context) ([]content.CategoryCount, bool, error) {
	if !c.cfg.Sitemap.IncludeAuthors {
		return nil, false, nil
	}
	counts, err := c.store.CountAuthors(ctx, c.cfg.Sitemap.ExcludedAuthors)
	return counts, true, err
}

// TaxonomyCounts counts term archive pages per included taxonomy. The bool
// reports whether any taxonomy is included, as with AuthorCounts.
func (c *ContentCounter) TaxonomyCounts(ctx context.Context) ([]content.CategoryCount, bool, error) {
	if len(c.cfg.Sitemap.Taxonomies) == 0 {
		return nil, false, nil
	}

	var excludedIDs []int64
	for _, taxonomy := range c.cfg.Sitemap.Taxonomies {
		excludedIDs = append(excludedIDs, c.cfg.Sitemap.ExcludedTermIDs[taxonomy]...)
	}

	counts, err := c.store.CountTerms(ctx, content.CountTermsParams{
		Taxonomies:  c.cfg.Sitemap.Taxonomies,
		ExcludedIDs: excludedIDs,
	})
	return counts, true, err
}

func containsString(values []string, wanted string) bool {
	for _, value := range values {
		if value == wanted {
			return true
		}
	}
	return false
}
