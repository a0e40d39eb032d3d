package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/content"
	"github.com/sitetree/engine/internal/content/contenttest"
	"github.com/sitetree/engine/internal/sitemap/indexer"
)

func testConfig() *configtypes.Config {
	return &configtypes.Config{
		Site: configtypes.SiteConfig{
			URL:        "https://example.com",
			GMTOffset:  2,
			AuthorPath: "author",
			TaxonomyPaths: map[string]string{
				"category": "category",
				"post_tag": "tag",
			},
		},
		Sitemap: configtypes.SitemapConfig{
			Enabled:        true,
			MaxPermalinks:  1000,
			PostTypes:      []string{"page", "post"},
			Taxonomies:     []string{"category"},
			IncludeAuthors: true,
		},
		Newsmap: configtypes.NewsmapConfig{
			Enabled:         true,
			PostTypes:       []string{"post"},
			PublicationName: "Example News",
		},
	}
}

func testIndexer(cfg *configtypes.Config, store content.Querier, slug, category string) *indexer.Indexer {
	counter := indexer.NewContentCounter(cfg, store)
	ix := indexer.NewIndexer(cfg, counter, nil, nil, zap.NewNop(), nil, slug, category)
	if category != indexer.CategoryIndex {
		ix.ClassifyRequest()
	}
	return ix
}

func TestSitemapBuilderSynthesizesHomeElement(t *testing.T) {
	cfg := testConfig()
	store := contenttest.New()
	store.LastModified = "2025-03-01 10:00:00"

	ix := testIndexer(cfg, store, configtypes.SlugSitemap, "page")
	b := NewSitemapBuilder(cfg, ix, store, NewSiteURLs(&cfg.Site), zap.NewNop())

	body, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, body, "<url><loc>https://example.com/</loc>")
	assert.Contains(t, body, "<lastmod>2025-03-01T10:00:00+02:00</lastmod>")
	assert.Equal(t, 1, b.Metrics().NumItems)
}

func TestSitemapBuilderFrontPageReplacesRegularElement(t *testing.T) {
	cfg := testConfig()
	cfg.Site.FrontPageID = 9

	store := contenttest.New()
	store.AddPost(content.Post{ID: 9, Name: "front", Type: "page", Modified: "2025-02-01 08:00:00"})
	store.AddPost(content.Post{ID: 5, Name: "about", Type: "page", Modified: "2025-02-02 08:00:00"})

	ix := testIndexer(cfg, store, configtypes.SlugSitemap, "page")
	b := NewSitemapBuilder(cfg, ix, store, NewSiteURLs(&cfg.Site), zap.NewNop())

	body, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, body, "<loc>https://example.com/</loc>")
	assert.Contains(t, body, "<loc>https://example.com/about/</loc>")
	assert.NotContains(t, body, "/front/")
	assert.Equal(t, 2, b.Metrics().NumItems)
}

func TestSitemapBuilderBlogPageUsesLatestPostTime(t *testing.T) {
	cfg := testConfig()
	cfg.Site.PostsPageID = 7

	store := contenttest.New()
	store.LastModified = "2025-06-01 12:00:00"
	store.AddPost(content.Post{ID: 7, Name: "blog", Type: "page", Modified: "2025-01-01 00:00:00"})

	ix := testIndexer(cfg, store, configtypes.SlugSitemap, "page")
	b := NewSitemapBuilder(cfg, ix, store, NewSiteURLs(&cfg.Site), zap.NewNop())

	body, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, body, "<loc>https://example.com/blog/</loc><lastmod>2025-06-01T12:00:00+02:00</lastmod>")
	assert.NotContains(t, body, "2025-01-01")
}

func TestSitemapBuilderEmitsImageElements(t *testing.T) {
	cfg := testConfig()
	store := contenttest.New()
	store.AddPost(content.Post{ID: 21, Name: "gallery", Type: "post", Modified: "2025-05-05 09:00:00"})
	store.Images[21] = []content.Attachment{
		{ID: 100, Parent: 21, URL: "https://example.com/a.jpg", Title: "First"},
		{ID: 101, Parent: 21, URL: "https://example.com/b.jpg", Caption: "Second <b>shot</b>"},
	}

	ix := testIndexer(cfg, store, configtypes.SlugSitemap, "post")
	b := NewSitemapBuilder(cfg, ix, store, NewSiteURLs(&cfg.Site), zap.NewNop())

	body, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, body, "<image:loc>https://example.com/a.jpg</image:loc>")
	assert.Contains(t, body, "<image:title>First</image:title>")
	assert.Contains(t, body, "<image:caption>Second shot</image:caption>")
	assert.Equal(t, int64(2), b.Metrics().NumImages)
}

func TestSitemapBuilderSkipsMalformedLastmod(t *testing.T) {
	cfg := testConfig()
	store := contenttest.New()
	store.AddPost(content.Post{ID: 3, Name: "broken", Type: "post", Modified: "not a time"})

	ix := testIndexer(cfg, store, configtypes.SlugSitemap, "post")
	b := NewSitemapBuilder(cfg, ix, store, NewSiteURLs(&cfg.Site), zap.NewNop())

	body, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, body, "<loc>https://example.com/broken/</loc>")
	assert.NotContains(t, body, "<lastmod>")
}

func TestSitemapBuilderTaxonomyElements(t *testing.T) {
	cfg := testConfig()
	store := contenttest.New()
	store.Terms["category"] = []content.Term{
		{ID: 1, Slug: "news", Name: "News", Taxonomy: "category", LastModified: "2025-04-01 00:00:00"},
		{ID: 2, Slug: "tech", Name: "Tech", Taxonomy: "category"},
	}

	ix := testIndexer(cfg, store, configtypes.SlugSitemap, "category")
	b := NewSitemapBuilder(cfg, ix, store, NewSiteURLs(&cfg.Site), zap.NewNop())

	body, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, body, "<loc>https://example.com/category/news/</loc>")
	assert.Contains(t, body, "<lastmod>2025-04-01T00:00:00+02:00</lastmod>")
	assert.Contains(t, body, "<loc>https://example.com/category/tech/</loc>")
	assert.Equal(t, 2, b.Metrics().NumItems)
}

func TestSitemapBuilderAuthorElements(t *testing.T) {
	cfg := testConfig()
	store := contenttest.New()
	store.Authors = []content.Author{
		{ID: 1, Nicename: "jane", DisplayName: "Jane", LastPostModified: "2025-04-02 00:00:00"},
	}

	ix := testIndexer(cfg, store, configtypes.SlugSitemap, indexer.CategoryAuthors)
	b := NewSitemapBuilder(cfg, ix, store, NewSiteURLs(&cfg.Site), zap.NewNop())

	body, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, body, "<loc>https://example.com/author/jane/</loc>")
	assert.Contains(t, body, "<lastmod>2025-04-02T00:00:00+02:00</lastmod>")
}

func TestNewsmapBuilderEmitsNewsElements(t *testing.T) {
	cfg := testConfig()
	store := contenttest.New()
	store.AddPost(content.Post{
		ID: 31, Name: "breaking", Type: "post", Title: "Breaking news story",
		Date: "2025-08-28 06:00:00", Modified: "2025-08-28 07:00:00",
	})

	ix := testIndexer(cfg, store, configtypes.SlugNewsmap, "post")
	b := NewNewsmapBuilder(cfg, ix, store, NewSiteURLs(&cfg.Site), zap.NewNop())

	body, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, body, "<loc>https://example.com/breaking/</loc>")
	assert.Contains(t, body, "<news:name>Example News</news:name>")
	assert.Contains(t, body, "<news:language>en</news:language>")
	assert.Contains(t, body, "<news:publication_date>2025-08-28T06:00:00+02:00</news:publication_date>")
	assert.Contains(t, body, "<news:title>Breaking news story</news:title>")
}
