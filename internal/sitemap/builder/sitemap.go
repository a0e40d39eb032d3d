package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/content"
	"github.com/sitetree/engine/internal/sitemap/indexer"
)

// SitemapBuilder assembles the body of one general sitemap file: the URL
// elements of the requested category slice, with image sub-elements and
// the home/blog page substitutions on the first page file.
type SitemapBuilder struct {
	Core

	cfg     *configtypes.Config
	indexer *indexer.Indexer
	urls    *SiteURLs
	logger  *zap.Logger

	location        *time.Location
	timezoneSuffix  string
	timezoneSeconds int64

	posts     []content.Post
	postsByID map[int64]content.Post
	images    map[int64][]ImageElement
	skipIDs   map[int64]bool
}

func NewSitemapBuilder(
	cfg *configtypes.Config,
	ix *indexer.Indexer,
	store content.Querier,
	urls *SiteURLs,
	logger *zap.Logger,
) *SitemapBuilder {
	return &SitemapBuilder{
		Core:            newCore(ix.Slug(), ix.MaxPermalinks(), store),
		cfg:             cfg,
		indexer:         ix,
		urls:            urls,
		logger:          logger,
		location:        time.FixedZone("site", cfg.Site.GMTOffset*3600),
		timezoneSuffix:  fmt.Sprintf("%+03d:00", cfg.Site.GMTOffset),
		timezoneSeconds: int64(cfg.Site.GMTOffset) * 3600,
		skipIDs:         make(map[int64]bool),
	}
}

func (b *SitemapBuilder) Build(ctx context.Context) (string, error) {
	return b.run(ctx, b.process)
}

func (b *SitemapBuilder) process(ctx context.Context) error {
	switch b.indexer.Family() {
	case indexer.FamilyPost:
		built, err := b.buildPostsElements(ctx)
		if err != nil {
			return err
		}
		if !built {
			return b.buildHomePageElement(ctx)
		}
		return nil

	case indexer.FamilyTaxonomy:
		return b.buildTaxonomyElements(ctx)

	case indexer.FamilyAuthor:
		return b.buildAuthorElements(ctx)

	default:
		return fmt.Errorf("unknown content family %q", b.indexer.Family())
	}
}

func (b *SitemapBuilder) buildPostsElements(ctx context.Context) (bool, error) {
	if err := b.queryPosts(ctx); err != nil {
		return false, err
	}
	if len(b.posts) == 0 {
		return false, nil
	}

	if err := b.queryImages(ctx); err != nil {
		return false, err
	}
	if err := b.buildHomePageElement(ctx); err != nil {
		return false, err
	}
	if err := b.buildBlogPageElement(ctx); err != nil {
		return false, err
	}

	isPage := b.indexer.ContentType() == "page"

	for _, post := range b.posts {
		if b.skipIDs[post.ID] {
			continue
		}

		lastmod := b.lastmodFromDB(post.Modified)
		if isPage {
			templates := []string{
				fmt.Sprintf("page-%s.php", post.Name),
				fmt.Sprintf("page-%d.php", post.ID),
			}
			lastmod = b.templateLastmod(templates, post.Modified)
		}

		b.buildURLElement(b.urls.Permalink(post), lastmod, b.images[post.ID])
	}

	b.posts = nil
	b.postsByID = nil
	b.images = nil

	return true, nil
}

func (b *SitemapBuilder) queryPosts(ctx context.Context) error {
	posts, err := b.store.QueryPosts(ctx, content.PostsParams{
		PostType: b.indexer.ContentType(),
		ExcludeMetaKeys: []string{
			"sitetree_exclude_from_sitemap",
			"sitetree_is_ghost_page",
		},
		Limit:  b.capacityLeft(),
		Offset: b.indexer.Offset(),
	})
	if err != nil {
		return fmt.Errorf("failed to query posts: %w", err)
	}

	b.posts = posts
	b.postsByID = make(map[int64]content.Post, len(posts))
	for _, post := range posts {
		b.postsByID[post.ID] = post
	}
	return nil
}

func (b *SitemapBuilder) queryImages(ctx context.Context) error {
	ids := make([]int64, 0, len(b.posts))
	for _, post := range b.posts {
		ids = append(ids, post.ID)
	}

	attachments, err := b.store.QueryAttachedImages(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to query attached images: %w", err)
	}

	b.images = make(map[int64][]ImageElement, len(attachments))
	for parentID, list := range attachments {
		for _, attachment := range list {
			b.images[parentID] = append(b.images[parentID], ImageFromAttachment(attachment))
		}
	}
	return nil
}

// buildHomePageElement emits the home URL element on the canonical first
// file of the page category. With a designated front page its element
// replaces the page's regular one; without, an element is synthesized from
// the site's latest content change. The front page never appears as a
// regular element in any file.
func (b *SitemapBuilder) buildHomePageElement(ctx context.Context) error {
	frontPageID := b.cfg.Site.FrontPageID

	if b.indexer.ContentType() == "page" && b.indexer.RequestedNumber() == 0 {
		if frontPageID > 0 {
			frontPage, ok := b.postsByID[frontPageID]
			if !ok {
				fetched, err := b.store.GetPost(ctx, frontPageID)
				if err != nil {
					return fmt.Errorf("failed to fetch front page: %w", err)
				}
				if fetched != nil {
					frontPage = *fetched
				}
			}

			lastmod := b.templateLastmod([]string{"front-page.php"}, frontPage.Modified)
			b.buildURLElement(b.urls.Home(), lastmod, b.images[frontPageID])
		} else {
			lastPostModified, err := b.store.LastPostModified(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch last post modification time: %w", err)
			}
			b.buildURLElement(b.urls.Home(), b.lastmodFromDB(lastPostModified), nil)
		}
	}

	if frontPageID > 0 {
		b.skipIDs[frontPageID] = true
	}
	return nil
}

// buildBlogPageElement emits the blog index page with the modification
// time of its most recent post rather than its own.
func (b *SitemapBuilder) buildBlogPageElement(ctx context.Context) error {
	blogPageID := b.cfg.Site.PostsPageID

	blogPage, ok := b.postsByID[blogPageID]
	if !ok {
		return nil
	}

	lastmod := blogPage.Modified
	lastPostModified, err := b.store.LastPostModified(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch last post modification time: %w", err)
	}
	if lastPostModified != "" {
		lastmod = lastPostModified
	}

	b.buildURLElement(b.urls.Permalink(blogPage), b.lastmodFromDB(lastmod), b.images[blogPageID])
	b.skipIDs[blogPageID] = true

	return nil
}

func (b *SitemapBuilder) buildTaxonomyElements(ctx context.Context) error {
	taxonomy := b.indexer.ContentType()

	terms, err := b.store.QueryTerms(ctx, content.TermsParams{
		Taxonomy:    taxonomy,
		ExcludedIDs: b.cfg.Sitemap.ExcludedTermIDs[taxonomy],
		Limit:       b.capacityLeft(),
		Offset:      b.indexer.Offset(),
	})
	if err != nil {
		return fmt.Errorf("failed to query terms: %w", err)
	}

	for _, term := range terms {
		b.buildURLElement(b.urls.Term(term.Taxonomy, term.Slug), b.lastmodFromDB(term.LastModified), nil)
	}
	return nil
}

func (b *SitemapBuilder) buildAuthorElements(ctx context.Context) error {
	authors, err := b.store.QueryAuthors(ctx, content.AuthorsParams{
		ExcludedNicenames: b.cfg.Sitemap.ExcludedAuthors,
		Limit:             b.capacityLeft(),
		Offset:            b.indexer.Offset(),
	})
	if err != nil {
		return fmt.Errorf("failed to query authors: %w", err)
	}

	for _, author := range authors {
		b.buildURLElement(b.urls.Author(author.Nicename), b.lastmodFromDB(author.LastPostModified), nil)
	}
	return nil
}

// buildURLElement serializes one URL element. lastmod is already formatted
// and omitted when empty; at most imagesPerURLElement image sub-elements
// are emitted.
func (b *SitemapBuilder) buildURLElement(url, lastmod string, images []ImageElement) {
	b.countItem()

	b.write("<url><loc>")
	b.write(escapeXML(url))
	b.write("</loc>")

	if lastmod != "" {
		b.write("<lastmod>")
		b.write(lastmod)
		b.write("</lastmod>")
	}

	imageCount := 0
	for _, image := range images {
		if image.URL == "" {
			continue
		}

		b.write("<image:image><image:loc>")
		b.write(escapeXML(image.URL))
		b.write("</image:loc>")

		if image.Title != "" {
			b.write("<image:title>")
			b.write(PrepareAttribute(image.Title, MaxTitleLength))
			b.write("</image:title>")
		}
		if image.Caption != "" {
			b.write("<image:caption>")
			b.write(PrepareAttribute(image.Caption, MaxCaptionLength))
			b.write("</image:caption>")
		}

		b.write("</image:image>")

		imageCount++
		if imageCount >= imagesPerURLElement {
			break
		}
	}
	b.metrics.NumImages += int64(imageCount)

	b.write("</url>")
}

// lastmodFromDB converts a database timestamp into the serialized lastmod
// form, empty when the timestamp is absent or malformed.
func (b *SitemapBuilder) lastmodFromDB(dbTime string) string {
	if dbTime == "" {
		return ""
	}
	parsed, err := time.ParseInLocation(dbTimeLayout, dbTime, b.location)
	if err != nil {
		return ""
	}
	return parsed.Format(lastmodLayout) + b.timezoneSuffix
}

// templateLastmod prefers the modification time of the first matching
// theme template over the content's own, whichever is newer.
func (b *SitemapBuilder) templateLastmod(templateNames []string, dbTime string) string {
	if b.cfg.Site.TemplateDir == "" {
		return b.lastmodFromDB(dbTime)
	}

	for _, name := range templateNames {
		info, err := os.Stat(filepath.Join(b.cfg.Site.TemplateDir, name))
		if err != nil {
			continue
		}

		templateTime := info.ModTime()
		contentTime, parseErr := time.ParseInLocation(dbTimeLayout, dbTime, b.location)
		if parseErr != nil || templateTime.After(contentTime) {
			// The timestamp is shifted so the serialized wall clock reads
			// in site-local time like every other lastmod.
			shifted := templateTime.UTC().Add(time.Duration(b.timezoneSeconds) * time.Second)
			return shifted.Format(lastmodLayout) + b.timezoneSuffix
		}
		break
	}

	return b.lastmodFromDB(dbTime)
}
