package builder

import (
	"strings"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/sitemap/indexer"
)

// GeneratorName appears in the comment atop every generated document.
const GeneratorName = "SiteTree Engine"

const (
	sitemapNamespace = `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`
	imageNamespace   = `xmlns:image="http://www.google.com/schemas/sitemap-image/1.1"`
	newsNamespace    = `xmlns:news="http://www.google.com/schemas/sitemap-news/0.9"`
)

// WrapSitemap wraps a built body into a complete urlset document with the
// XML declaration, the stylesheet reference and the slug's namespaces.
func WrapSitemap(slug, body string, urls *SiteURLs) string {
	extraNamespace := imageNamespace
	if slug == configtypes.SlugNewsmap {
		extraNamespace = newsNamespace
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<?xml-stylesheet type="text/xsl" href="`)
	b.WriteString(urls.Stylesheet(slug, false))
	b.WriteString(`"?>` + "\n")
	b.WriteString("<!-- Sitemap generated by " + GeneratorName + " -->\n")
	b.WriteString("<urlset " + sitemapNamespace + " " + extraNamespace + ">")
	b.WriteString(body)
	b.WriteString("</urlset>")
	return b.String()
}

// BuildIndexDocument lists every sitemap file of the slug's index as a
// sitemapindex document.
func BuildIndexDocument(slug string, entries []indexer.Entry, urls *SiteURLs) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<?xml-stylesheet type="text/xsl" href="`)
	b.WriteString(urls.Stylesheet(slug, true))
	b.WriteString(`"?>` + "\n")
	b.WriteString("<!-- Sitemap Index generated by " + GeneratorName + " -->\n")
	b.WriteString("<sitemapindex " + sitemapNamespace + ">\n")

	for _, entry := range entries {
		for n := 1; n <= entry.Files; n++ {
			b.WriteString("<sitemap><loc>")
			b.WriteString(escapeXML(urls.Sitemap(slug, entry.Category, n)))
			b.WriteString("</loc></sitemap>\n")
		}
	}

	b.WriteString("</sitemapindex>")
	return b.String()
}
