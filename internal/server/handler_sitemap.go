package server

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/sitemap/builder"
	"github.com/sitetree/engine/internal/sitemap/indexer"
	"github.com/sitetree/engine/internal/sitemap/tracker"
)

// handleSitemap serves one sitemap route: the index document, the sole
// sitemap of a small site, or one numbered file of a category.
func (s *Server) handleSitemap(ctx *fasthttp.RequestCtx, logger *zap.Logger, slug, category string, number int) {
	start := time.Now()
	s.collector.RequestStarted()
	defer s.collector.RequestFinished()

	status := fasthttp.StatusOK
	defer func() {
		s.collector.RecordRequest(slug, statusLabel(status), time.Since(start))
	}()

	if !s.slugEnabled(slug) {
		status = fasthttp.StatusNotFound
		s.writeError(ctx, status, "Not found")
		return
	}

	// A file number of 1 duplicates the un-numbered form; the canonical URL
	// wins.
	if number == 1 {
		status = fasthttp.StatusMovedPermanently
		ctx.Redirect(s.urls.Sitemap(slug, category, 0), status)
		return
	}

	if category == "" {
		category = indexer.CategoryIndex
	} else if number > 0 && category == indexer.CategoryIndex {
		// "index" is a pseudo-category, it has no numbered files.
		status = fasthttp.StatusNotFound
		s.writeError(ctx, status, "Not found")
		return
	}

	counter := indexer.NewContentCounter(s.cfg, s.store)
	ix := indexer.NewIndexer(s.cfg, counter, s.blobs, s.keys, logger,
		s.collector.RecordTruncation, slug, category)
	ix.SetRequestedNumber(number)

	if category != indexer.CategoryIndex && !ix.ClassifyRequest() {
		status = fasthttp.StatusNotFound
		s.writeError(ctx, status, "Not found")
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	if err := ix.BuildIndex(reqCtx); err != nil {
		logger.Error("Failed to build sitemap index",
			zap.String("slug", slug),
			zap.Error(err))
		status = fasthttp.StatusInternalServerError
		s.writeError(ctx, status, "Internal server error")
		return
	}

	if ix.JustBuilt() {
		s.collector.RecordIndexCacheMiss(slug)
	} else {
		s.collector.RecordIndexCacheHit(slug)
	}

	if category == indexer.CategoryIndex {
		if number > 0 {
			status = fasthttp.StatusNotFound
			s.writeError(ctx, status, "Not found")
			return
		}
		if ix.TotalFiles() > 1 {
			s.serveIndexDocument(ctx, logger, reqCtx, ix)
			return
		}
		// The whole sitemap fits in one file; the bare slug serves it
		// directly.
	} else if !ix.Exists() {
		status = fasthttp.StatusNotFound
		s.writeError(ctx, status, "Not found")
		return
	}

	s.serveSitemapFile(ctx, logger, reqCtx, ix, &status)
}

func (s *Server) serveIndexDocument(ctx *fasthttp.RequestCtx, logger *zap.Logger, reqCtx context.Context, ix *indexer.Indexer) {
	slug := ix.Slug()
	document := builder.BuildIndexDocument(slug, ix.Entries(), s.urls)

	s.writeXML(ctx, document)

	s.updateTracker(reqCtx, logger, ix, tracker.Update{
		Slug:            slug,
		IsIndexDocument: true,
	})

	s.pingAfterServe(logger, slug)
}

func (s *Server) serveSitemapFile(ctx *fasthttp.RequestCtx, logger *zap.Logger, reqCtx context.Context, ix *indexer.Indexer, status *int) {
	slug := ix.Slug()

	var b builder.Builder
	if slug == configtypes.SlugNewsmap {
		b = builder.NewNewsmapBuilder(s.cfg, ix, s.store, s.urls, logger)
	} else {
		b = builder.NewSitemapBuilder(s.cfg, ix, s.store, s.urls, logger)
	}

	body, err := b.Build(reqCtx)
	if err != nil {
		logger.Error("Failed to build sitemap",
			zap.String("slug", slug),
			zap.String("category", ix.Category()),
			zap.Error(err))
		*status = fasthttp.StatusInternalServerError
		s.writeError(ctx, *status, "Internal server error")
		return
	}

	s.writeXML(ctx, builder.WrapSitemap(slug, body, s.urls))

	buildMetrics := b.Metrics()
	s.collector.RecordBuild(slug, buildMetrics.Runtime, buildMetrics.NumQueries)

	uid := ix.RequestedUID()
	if uid == "" {
		// A bare slug collapsed onto its sole sitemap file.
		uid = ix.ContentType() + "-1"
	}

	s.updateTracker(reqCtx, logger, ix, tracker.Update{
		Slug:    slug,
		UID:     uid,
		Metrics: buildMetrics,
	})

	s.pingAfterServe(logger, slug)
}

// updateTracker merges the build into the slug's metrics record, attaching
// the index totals when the index was just computed. Tracking failures never
// fail the request.
func (s *Server) updateTracker(reqCtx context.Context, logger *zap.Logger, ix *indexer.Indexer, u tracker.Update) {
	if ix.JustBuilt() {
		u.IndexJustBuilt = true
		u.TotSitemaps = ix.TotalFiles()
		u.TotItems = ix.TotalPermalinks()

		if u.Slug == configtypes.SlugSitemap {
			u.TotImages = s.countSitemapImages(reqCtx, logger)
		}
	}

	if _, err := s.tracker.Update(reqCtx, u); err != nil {
		logger.Warn("Failed to update metrics record",
			zap.String("slug", u.Slug),
			zap.Error(err))
	}
}

// countSitemapImages totals the attached images across the sitemap's post
// types, -1 when no post types are configured.
func (s *Server) countSitemapImages(reqCtx context.Context, logger *zap.Logger) *int64 {
	unknown := int64(-1)
	if len(s.cfg.Sitemap.PostTypes) == 0 {
		return &unknown
	}

	counter := indexer.NewContentCounter(s.cfg, s.store)
	total, err := s.store.CountAttachedImages(reqCtx, s.cfg.Sitemap.PostTypes,
		counter.ExclusionMetaKeys(configtypes.SlugSitemap))
	if err != nil {
		logger.Warn("Failed to count attached images", zap.Error(err))
		return &unknown
	}
	return &total
}

// pingAfterServe fires the throttled on-request ping without delaying the
// response.
func (s *Server) pingAfterServe(logger *zap.Logger, slug string) {
	if !s.cfg.Ping.Enabled {
		return
	}

	go func() {
		sent, err := s.pinger.Ping(context.Background(), slug, false)
		if err != nil {
			logger.Warn("On-request ping failed",
				zap.String("slug", slug),
				zap.Error(err))
			return
		}
		if sent {
			s.recordPingState(context.Background(), slug)
		}
	}()
}

func (s *Server) recordPingState(reqCtx context.Context, slug string) {
	state, err := s.pinger.GetState(reqCtx, slug)
	if err != nil {
		return
	}
	s.collector.RecordPing(slug, state.Code)
}

func (s *Server) writeXML(ctx *fasthttp.RequestCtx, document string) {
	ctx.Response.Header.Set("Content-Type", "application/xml; charset=UTF-8")
	ctx.Response.Header.Set("Last-Modified", time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString(document)
}

func statusLabel(status int) string {
	switch status {
	case fasthttp.StatusOK:
		return "200"
	case fasthttp.StatusMovedPermanently:
		return "301"
	case fasthttp.StatusNotFound:
		return "404"
	case fasthttp.StatusInternalServerError:
		return "500"
	}
	return "other"
}
