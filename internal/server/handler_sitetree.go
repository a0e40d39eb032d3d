package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/sitemap/builder"
	"github.com/sitetree/engine/internal/sitemap/indexer"
	"github.com/sitetree/engine/internal/sitemap/paginator"
	"github.com/sitetree/engine/internal/sitemap/tracker"
	"github.com/sitetree/engine/internal/stylesheet"
)

// handleSiteTree serves one page of the HTML hyperlink listing.
func (s *Server) handleSiteTree(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	start := time.Now()
	s.collector.RequestStarted()
	defer s.collector.RequestFinished()

	status := fasthttp.StatusOK
	defer func() {
		s.collector.RecordRequest(configtypes.SlugSiteTree, statusLabel(status), time.Since(start))
	}()

	if !s.cfg.SiteTree.Enabled {
		status = fasthttp.StatusNotFound
		s.writeError(ctx, status, "Not found")
		return
	}

	page := 0
	if raw := ctx.QueryArgs().Peek("page"); len(raw) > 0 {
		parsed, err := strconv.Atoi(string(raw))
		if err != nil || parsed < 1 {
			status = fasthttp.StatusNotFound
			s.writeError(ctx, status, "Not found")
			return
		}
		page = parsed
	}

	// An explicit ?page=1 duplicates the canonical bare path.
	if page == 1 {
		status = fasthttp.StatusMovedPermanently
		ctx.Redirect(s.urls.SiteTree(s.cfg.SiteTree.Path, 0), status)
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	pager := paginator.New(s.cfg.SiteTree.ItemsPerPage, page)
	b := builder.NewSiteTreeBuilder(s.cfg, s.store, s.urls, pager, logger)

	body, err := b.Build(reqCtx)
	if err != nil {
		if errors.Is(err, builder.ErrPageNotFound) {
			status = fasthttp.StatusNotFound
			s.writeError(ctx, status, "Not found")
			return
		}
		logger.Error("Failed to build site tree", zap.Error(err))
		status = fasthttp.StatusInternalServerError
		s.writeError(ctx, status, "Internal server error")
		return
	}

	ctx.Response.Header.Set("Content-Type", "text/html; charset=UTF-8")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString(wrapSiteTreePage(body))

	buildMetrics := b.Metrics()
	s.collector.RecordBuild(configtypes.SlugSiteTree, buildMetrics.Runtime, buildMetrics.NumQueries)

	update := tracker.Update{
		Slug:     configtypes.SlugSiteTree,
		UID:      strconv.Itoa(pager.RequestedPage()),
		Metrics:  buildMetrics,
		TotItems: int64(pager.TotalItems()),
		TotPages: pager.NumberOfPages(),
	}
	if _, err := s.tracker.Update(reqCtx, update); err != nil {
		logger.Warn("Failed to update metrics record",
			zap.String("slug", configtypes.SlugSiteTree),
			zap.Error(err))
	}
}

func wrapSiteTreePage(body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Site Tree</title>
</head>
<body>
<div class="sitetree">
%s</div>
</body>
</html>
`, body)
}

// handleStylesheet serves the XSL document that renders a sitemap readable
// in a browser.
func (s *Server) handleStylesheet(ctx *fasthttp.RequestCtx, logger *zap.Logger, slug string, forIndex bool) {
	if !s.slugEnabled(slug) {
		s.writeError(ctx, fasthttp.StatusNotFound, "Not found")
		return
	}

	params := stylesheet.Params{Slug: slug, ForIndex: forIndex}
	if !forIndex {
		reqCtx, cancel := s.requestContext()
		params.PartOfCollection = s.isPartOfCollection(reqCtx, slug)
		cancel()
		params.IndexURL = s.urls.Sitemap(slug, "", 0)
	}

	document, err := s.stylesheets.Build(params)
	if err != nil {
		logger.Error("Failed to render stylesheet",
			zap.String("slug", slug),
			zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, "Internal server error")
		return
	}

	ctx.Response.Header.Set("Content-Type", "text/xsl; charset=UTF-8")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString(document)
}

// isPartOfCollection peeks at the cached index to decide whether the
// stylesheet should link back to the index document. Absent or unreadable
// blobs just mean no link.
func (s *Server) isPartOfCollection(reqCtx context.Context, slug string) bool {
	var cached struct {
		Entries []indexer.Entry `json:"entries"`
	}
	found, err := s.blobs.GetBlob(reqCtx, s.keys.IndexKey(slug), &cached)
	if err != nil || !found {
		return false
	}

	total := 0
	for _, entry := range cached.Entries {
		total += entry.Files
	}
	return total > 1
}
