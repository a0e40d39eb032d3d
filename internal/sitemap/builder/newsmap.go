package builder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/content"
	"github.com/sitetree/engine/internal/sitemap/indexer"
)

// newsWindowDays bounds how far back news elements reach; Google only
// considers articles published in the last two days.
const newsWindowDays = 2

// NewsmapBuilder assembles the body of one news sitemap file. News
// elements carry publication metadata instead of images and only cover
// recently published posts.
type NewsmapBuilder struct {
	Core

	cfg     *configtypes.Config
	indexer *indexer.Indexer
	urls    *SiteURLs
	logger  *zap.Logger

	location       *time.Location
	timezoneSuffix string
}

func NewNewsmapBuilder(
	cfg *configtypes.Config,
	ix *indexer.Indexer,
	store content.Querier,
	urls *SiteURLs,
	logger *zap.Logger,
) *NewsmapBuilder {
	return &NewsmapBuilder{
		Core:           newCore(ix.Slug(), ix.MaxPermalinks(), store),
		cfg:            cfg,
		indexer:        ix,
		urls:           urls,
		logger:         logger,
		location:       time.FixedZone("site", cfg.Site.GMTOffset*3600),
		timezoneSuffix: fmt.Sprintf("%+03d:00", cfg.Site.GMTOffset),
	}
}

func (b *NewsmapBuilder) Build(ctx context.Context) (string, error) {
	return b.run(ctx, b.process)
}

func (b *NewsmapBuilder) process(ctx context.Context) error {
	posts, err := b.store.QueryPosts(ctx, content.PostsParams{
		PostType:        b.indexer.ContentType(),
		ExcludeMetaKeys: []string{"sitetree_exclude_from_newsmap"},
		NewsWindowDays:  newsWindowDays,
		Limit:           b.capacityLeft(),
		Offset:          b.indexer.Offset(),
	})
	if err != nil {
		return fmt.Errorf("failed to query news posts: %w", err)
	}

	for _, post := range posts {
		b.buildNewsElement(post)
	}
	return nil
}

func (b *NewsmapBuilder) buildNewsElement(post content.Post) {
	b.countItem()

	b.write("<url><loc>")
	b.write(escapeXML(b.urls.Permalink(post)))
	b.write("</loc>")

	b.write("<news:news><news:publication><news:name>")
	b.write(escapeXML(b.cfg.Newsmap.PublicationName))
	b.write("</news:name><news:language>")
	b.write(escapeXML(b.publicationLanguage()))
	b.write("</news:language></news:publication>")

	if date := b.formatPublicationDate(post.Date); date != "" {
		b.write("<news:publication_date>")
		b.write(date)
		b.write("</news:publication_date>")
	}

	b.write("<news:title>")
	b.write(PrepareAttribute(post.Title, MaxTitleLength))
	b.write("</news:title></news:news></url>")
}

func (b *NewsmapBuilder) publicationLanguage() string {
	if b.cfg.Newsmap.PublicationLanguage != "" {
		return b.cfg.Newsmap.PublicationLanguage
	}
	return "en"
}

func (b *NewsmapBuilder) formatPublicationDate(dbTime string) string {
	if dbTime == "" {
		return ""
	}
	parsed, err := time.ParseInLocation(dbTimeLayout, dbTime, b.location)
	if err != nil {
		return ""
	}
	return parsed.Format(lastmodLayout) + b.timezoneSuffix
}
