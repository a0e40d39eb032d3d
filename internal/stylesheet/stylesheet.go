// Package stylesheet renders the XSL documents that make sitemaps human
// readable in a browser: a table of locations and modification times, with
// per-slug extras (image counts, news titles).
package stylesheet

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/sitetree/engine/internal/common/configtypes"
)

// Params selects the stylesheet variant to render.
type Params struct {
	Slug string
	// ForIndex renders the sitemapindex variant instead of the urlset one.
	ForIndex bool
	// PartOfCollection adds a back link to the index document when the
	// sitemap is one file of many.
	PartOfCollection bool
	// IndexURL is the href of that back link.
	IndexURL string
}

// Builder renders XSL stylesheets from parsed templates.
type Builder struct {
	sitemap *template.Template
	index   *template.Template
}

func NewBuilder() (*Builder, error) {
	sitemap, err := template.New("sitemap").Parse(sitemapTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sitemap stylesheet template: %w", err)
	}
	index, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index stylesheet template: %w", err)
	}
	return &Builder{
		sitemap: sitemap,
		index:   index,
	}, nil
}

type templateData struct {
	Title            string
	ExtraNamespace   string
	ShowImages       bool
	ShowNews         bool
	PartOfCollection bool
	IndexURL         string
}

// Build renders the stylesheet for the given variant.
func (b *Builder) Build(params Params) (string, error) {
	data := templateData{
		Title:            titleCase(params.Slug),
		PartOfCollection: params.PartOfCollection,
		IndexURL:         params.IndexURL,
	}

	switch params.Slug {
	case configtypes.SlugNewsmap:
		data.ExtraNamespace = `xmlns:news="http://www.google.com/schemas/sitemap-news/0.9"`
		data.ShowNews = true
	default:
		data.ExtraNamespace = `xmlns:image="http://www.google.com/schemas/sitemap-image/1.1"`
		data.ShowImages = true
	}

	tmpl := b.sitemap
	if params.ForIndex {
		tmpl = b.index
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render stylesheet: %w", err)
	}
	return out.String(), nil
}

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
