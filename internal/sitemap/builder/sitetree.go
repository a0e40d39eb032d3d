package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/content"
	"github.com/sitetree/engine/internal/sitemap/paginator"
)

// ErrPageNotFound is returned by a site tree build whose requested page
// number falls outside the listing.
var ErrPageNotFound = errors.New("requested site tree page is out of range")

// treeItem is one hyperlink of the site tree listing, flattened across
// sections for pagination.
type treeItem struct {
	section int
	label   string
	url     string
}

// SiteTreeBuilder renders the paginated HTML hyperlink listing of the
// site's content, section by section.
type SiteTreeBuilder struct {
	Core

	cfg    *configtypes.Config
	urls   *SiteURLs
	pager  *paginator.Paginator
	logger *zap.Logger
}

func NewSiteTreeBuilder(
	cfg *configtypes.Config,
	store content.Querier,
	urls *SiteURLs,
	pager *paginator.Paginator,
	logger *zap.Logger,
) *SiteTreeBuilder {
	return &SiteTreeBuilder{
		Core:   newCore(configtypes.SlugSiteTree, pagerCapacity(cfg), store),
		cfg:    cfg,
		urls:   urls,
		pager:  pager,
		logger: logger,
	}
}

func pagerCapacity(cfg *configtypes.Config) int {
	return cfg.SiteTree.ItemsPerPage
}

// Paginator exposes the page accounting for the metrics record.
func (b *SiteTreeBuilder) Paginator() *paginator.Paginator {
	return b.pager
}

func (b *SiteTreeBuilder) Build(ctx context.Context) (string, error) {
	return b.run(ctx, b.process)
}

func (b *SiteTreeBuilder) process(ctx context.Context) error {
	items, err := b.loadItems(ctx)
	if err != nil {
		return err
	}

	b.pager.SetTotalItems(len(items))
	if !b.pager.RequestedPageExists() {
		return ErrPageNotFound
	}

	start, end := b.pager.Window()
	b.render(items[start:end])

	if b.pager.NumberOfPages() > 1 {
		b.renderPagination()
	}
	return nil
}

// loadItems gathers every section's hyperlinks in configured order. The
// per-section limits keep this bounded; pagination slices the flat list.
func (b *SiteTreeBuilder) loadItems(ctx context.Context) ([]treeItem, error) {
	var items []treeItem

	for idx, section := range b.sections() {
		sectionItems, err := b.loadSection(ctx, idx, section)
		if err != nil {
			return nil, err
		}
		items = append(items, sectionItems...)
	}
	return items, nil
}

// sections returns the configured sections, defaulting to one page list
// and one post list when the configuration names none.
func (b *SiteTreeBuilder) sections() []configtypes.SiteTreeSection {
	if len(b.cfg.SiteTree.Sections) > 0 {
		return b.cfg.SiteTree.Sections
	}
	return []configtypes.SiteTreeSection{
		{Type: "page", Title: "Pages", Limit: configtypes.DefaultSectionLimit},
		{Type: "post", Title: "Posts", Limit: configtypes.DefaultSectionLimit},
	}
}

func (b *SiteTreeBuilder) loadSection(ctx context.Context, idx int, section configtypes.SiteTreeSection) ([]treeItem, error) {
	switch {
	case section.Type == "authors":
		authors, err := b.store.QueryAuthors(ctx, content.AuthorsParams{
			ExcludedNicenames: b.cfg.Sitemap.ExcludedAuthors,
			Limit:             section.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load authors section: %w", err)
		}

		items := make([]treeItem, 0, len(authors))
		for _, author := range authors {
			items = append(items, treeItem{
				section: idx,
				label:   author.DisplayName,
				url:     b.urls.Author(author.Nicename),
			})
		}
		return items, nil

	case b.isTaxonomy(section.Type):
		terms, err := b.store.QueryTerms(ctx, content.TermsParams{
			Taxonomy:    section.Type,
			ExcludedIDs: section.ExcludeIDs,
			OrderBy:     "name",
			Limit:       section.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load %s section: %w", section.Type, err)
		}

		items := make([]treeItem, 0, len(terms))
		for _, term := range terms {
			items = append(items, treeItem{
				section: idx,
				label:   term.Name,
				url:     b.urls.Term(term.Taxonomy, term.Slug),
			})
		}
		return items, nil

	default:
		orderBy := "date"
		if section.Type == "page" {
			orderBy = "title"
		}

		posts, err := b.store.QueryPosts(ctx, content.PostsParams{
			PostType:   section.Type,
			ExcludeIDs: section.ExcludeIDs,
			OrderBy:    orderBy,
			Limit:      section.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load %s section: %w", section.Type, err)
		}

		items := make([]treeItem, 0, len(posts))
		for _, post := range posts {
			label := post.Title
			if label == "" {
				label = post.Name
			}
			items = append(items, treeItem{
				section: idx,
				label:   label,
				url:     b.urls.Permalink(post),
			})
		}
		return items, nil
	}
}

func (b *SiteTreeBuilder) isTaxonomy(name string) bool {
	for _, taxonomy := range b.cfg.Sitemap.Taxonomies {
		if name == taxonomy {
			return true
		}
	}
	_, ok := b.cfg.Site.TaxonomyPaths[name]
	return ok
}

// render writes the page's items grouped under their section headings.
func (b *SiteTreeBuilder) render(items []treeItem) {
	sections := b.sections()
	currentSection := -1

	for _, item := range items {
		if item.section != currentSection {
			if currentSection >= 0 {
				b.write("</ul>\n")
			}
			currentSection = item.section

			title := sections[currentSection].Title
			if title == "" {
				title = titleCase(sections[currentSection].Type)
			}
			b.write(`<h3 class="sitetree-section">`)
			b.write(escapeXML(title))
			b.write("</h3>\n<ul class=\"sitetree-list\">\n")
		}

		b.countItem()
		b.write(`<li><a href="`)
		b.write(escapeXML(item.url))
		b.write(`">`)
		b.write(escapeXML(item.label))
		b.write("</a></li>\n")
	}

	if currentSection >= 0 {
		b.write("</ul>\n")
	}
}

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (b *SiteTreeBuilder) renderPagination() {
	b.write(`<nav class="sitetree-pagination">`)
	for page := 1; page <= b.pager.NumberOfPages(); page++ {
		if page == b.pager.RequestedPage() {
			b.write(fmt.Sprintf(`<span class="current">%d</span>`, page))
			continue
		}
		b.write(fmt.Sprintf(`<a href="%s">%d</a>`,
			escapeXML(b.urls.SiteTree(b.cfg.SiteTree.Path, page)), page))
	}
	b.write("</nav>\n")
}
