package builder

import (
	"fmt"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/content"
)

// SiteURLs derives every public URL of the site from the configured root.
type SiteURLs struct {
	base          string
	authorPath    string
	taxonomyPaths map[string]string
}

func NewSiteURLs(site *configtypes.SiteConfig) *SiteURLs {
	return &SiteURLs{
		base:          site.URL,
		authorPath:    site.AuthorPath,
		taxonomyPaths: site.TaxonomyPaths,
	}
}

// Home is the site root with a trailing slash.
func (u *SiteURLs) Home() string {
	return u.base + "/"
}

// Permalink is the canonical URL of a post.
func (u *SiteURLs) Permalink(post content.Post) string {
	return u.base + "/" + post.Name + "/"
}

// Author is the archive URL of an author.
func (u *SiteURLs) Author(nicename string) string {
	return u.base + "/" + u.authorPath + "/" + nicename + "/"
}

// Term is the archive URL of a taxonomy term.
func (u *SiteURLs) Term(taxonomy, slug string) string {
	path, ok := u.taxonomyPaths[taxonomy]
	if !ok {
		path = taxonomy
	}
	return u.base + "/" + path + "/" + slug + "/"
}

// Sitemap is the canonical URL of a sitemap file. Category "index" or
// empty addresses the slug root; file number 1 maps to the un-numbered
// form.
func (u *SiteURLs) Sitemap(slug, category string, number int) string {
	if category == "" || category == "index" {
		return fmt.Sprintf("%s/%s.xml", u.base, slug)
	}
	if number > 1 {
		return fmt.Sprintf("%s/%s-%s-%d.xml", u.base, slug, category, number)
	}
	return fmt.Sprintf("%s/%s-%s.xml", u.base, slug, category)
}

// Stylesheet is the URL of a slug's XSL stylesheet.
func (u *SiteURLs) Stylesheet(slug string, forIndex bool) string {
	if forIndex {
		return fmt.Sprintf("%s/%s-index-template.xsl", u.base, slug)
	}
	return fmt.Sprintf("%s/%s-template.xsl", u.base, slug)
}

// SiteTree is the URL of the HTML site tree, optionally paged.
func (u *SiteURLs) SiteTree(path string, page int) string {
	if page > 1 {
		return fmt.Sprintf("%s%s?page=%d", u.base, path, page)
	}
	return u.base + path
}
