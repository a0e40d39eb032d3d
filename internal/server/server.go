// Package server is the public HTTP surface of the daemon: the sitemap,
// stylesheet and site tree routes plus the JSON control endpoints.
package server

import (
	"context"
	"regexp"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/redis"
	"github.com/sitetree/engine/internal/common/requestid"
	"github.com/sitetree/engine/internal/content"
	"github.com/sitetree/engine/internal/ping"
	"github.com/sitetree/engine/internal/server/metrics"
	"github.com/sitetree/engine/internal/sitemap/builder"
	"github.com/sitetree/engine/internal/sitemap/tracker"
	"github.com/sitetree/engine/internal/stylesheet"
)

// Sitemap file routes: "/sitemap.xml", "/sitemap-post.xml",
// "/newsmap-post-2.xml". The category starts with a letter so a trailing
// file number is never swallowed.
var (
	sitemapPath    = regexp.MustCompile(`^/(sitemap|newsmap)(?:-([a-z_][a-z0-9_]*))?(?:-([0-9]+))?\.xml$`)
	stylesheetPath = regexp.MustCompile(`^/(sitemap|newsmap)(-index)?-template\.xsl$`)
)

type Server struct {
	cfg    *configtypes.Config
	store  content.Querier
	redis  *redis.Client
	blobs  *redis.BlobStore
	keys   *redis.KeyGenerator
	urls   *builder.SiteURLs
	logger *zap.Logger

	tracker     *tracker.Tracker
	pinger      *ping.Controller
	stylesheets *stylesheet.Builder
	collector   *metrics.MetricsCollector
}

func NewServer(
	cfg *configtypes.Config,
	store content.Querier,
	redisClient *redis.Client,
	blobs *redis.BlobStore,
	keys *redis.KeyGenerator,
	trk *tracker.Tracker,
	pinger *ping.Controller,
	stylesheets *stylesheet.Builder,
	collector *metrics.MetricsCollector,
	logger *zap.Logger,
) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		redis:       redisClient,
		blobs:       blobs,
		keys:        keys,
		urls:        builder.NewSiteURLs(&cfg.Site),
		logger:      logger,
		tracker:     trk,
		pinger:      pinger,
		stylesheets: stylesheets,
		collector:   collector,
	}
}

func (s *Server) HandleRequest(ctx *fasthttp.RequestCtx) {
	customRequestID := string(ctx.Request.Header.Peek("X-Request-ID"))
	requestID := requestid.Generate(customRequestID)
	ctx.Response.Header.Set("X-Request-ID", requestID)

	logger := s.logger.With(zap.String("request_id", requestID))
	path := string(ctx.Path())

	switch path {
	case "/health":
		s.handleHealth(ctx)
		return
	case "/ready":
		s.handleReady(ctx)
		return
	case "/invalidate":
		s.handleInvalidate(ctx, logger)
		return
	case "/ping":
		s.handlePing(ctx, logger)
		return
	}

	if !ctx.IsGet() && !ctx.IsHead() {
		logger.Warn("Method not allowed",
			zap.String("method", string(ctx.Method())),
			zap.String("path", path))
		s.writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if match := sitemapPath.FindStringSubmatch(path); match != nil {
		number := 0
		if match[3] != "" {
			number, _ = strconv.Atoi(match[3])
		}
		s.handleSitemap(ctx, logger, match[1], match[2], number)
		return
	}

	if match := stylesheetPath.FindStringSubmatch(path); match != nil {
		s.handleStylesheet(ctx, logger, match[1], match[2] != "")
		return
	}

	if path == s.cfg.SiteTree.Path {
		s.handleSiteTree(ctx, logger)
		return
	}

	logger.Debug("Not found", zap.String("path", path))
	s.writeError(ctx, fasthttp.StatusNotFound, "Not found")
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString("OK")
}

func (s *Server) handleReady(ctx *fasthttp.RequestCtx) {
	reqCtx := context.Background()

	if err := s.redis.HealthCheck(reqCtx); err != nil {
		s.writeError(ctx, fasthttp.StatusServiceUnavailable, "Redis not available")
		return
	}
	if err := s.store.HealthCheck(reqCtx); err != nil {
		s.writeError(ctx, fasthttp.StatusServiceUnavailable, "Database not available")
		return
	}

	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString("OK")
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(statusCode)
	ctx.Response.SetBodyString(message)
}

// requestContext bounds one request's build work by the configured server
// timeout.
func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	timeout := s.cfg.Server.Timeout.Std()
	if timeout <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (s *Server) slugEnabled(slug string) bool {
	switch slug {
	case configtypes.SlugSitemap:
		return s.cfg.Sitemap.Enabled
	case configtypes.SlugNewsmap:
		return s.cfg.Newsmap.Enabled
	case configtypes.SlugSiteTree:
		return s.cfg.SiteTree.Enabled
	}
	return false
}
