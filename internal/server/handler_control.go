package server

import (
	"context"
	"fmt"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/httputil"
)

// handleInvalidate flushes a slug's cached index and marks its metrics
// record stale, so the next requests rebuild both. Without a slug argument
// every slug is flushed. POST /invalidate?slug=sitemap
func (s *Server) handleInvalidate(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	if !ctx.IsPost() {
		httputil.JSONError(ctx, "Method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}

	slugs, err := s.resolveSlugs(string(ctx.QueryArgs().Peek("slug")))
	if err != nil {
		httputil.JSONError(ctx, err.Error(), fasthttp.StatusBadRequest)
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	for _, slug := range slugs {
		if err := s.invalidateSlug(reqCtx, slug); err != nil {
			logger.Error("Invalidation failed",
				zap.String("slug", slug),
				zap.Error(err))
			httputil.JSONError(ctx, fmt.Sprintf("failed to invalidate %s", slug), fasthttp.StatusInternalServerError)
			return
		}

		s.collector.RecordInvalidation(slug)
		logger.Info("Cached data invalidated", zap.String("slug", slug))

		if s.cfg.Ping.OnInvalidation && slug != configtypes.SlugSiteTree {
			s.pingAutomatic(logger, slug)
		}
	}

	httputil.JSONSuccess(ctx, "invalidated", fasthttp.StatusOK)
}

func (s *Server) invalidateSlug(reqCtx context.Context, slug string) error {
	if err := s.blobs.DeleteBlob(reqCtx, s.keys.IndexKey(slug)); err != nil {
		return fmt.Errorf("failed to delete index blob: %w", err)
	}
	if err := s.tracker.MarkStale(reqCtx, slug); err != nil {
		return fmt.Errorf("failed to mark metrics stale: %w", err)
	}
	return nil
}

// pingAutomatic sends the content-changed ping in the background; it skips
// the on-request throttle.
func (s *Server) pingAutomatic(logger *zap.Logger, slug string) {
	go func() {
		sent, err := s.pinger.Ping(context.Background(), slug, true)
		if err != nil {
			logger.Warn("Automatic ping failed",
				zap.String("slug", slug),
				zap.Error(err))
			return
		}
		if sent {
			s.recordPingState(context.Background(), slug)
		}
	}()
}

// handlePing triggers an on-request ping round for one slug.
// POST /ping?slug=sitemap
func (s *Server) handlePing(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	if !ctx.IsPost() {
		httputil.JSONError(ctx, "Method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}

	slug := string(ctx.QueryArgs().Peek("slug"))
	if slug != configtypes.SlugSitemap && slug != configtypes.SlugNewsmap {
		httputil.JSONError(ctx, "slug must be sitemap or newsmap", fasthttp.StatusBadRequest)
		return
	}
	if !s.slugEnabled(slug) {
		httputil.JSONError(ctx, fmt.Sprintf("%s is disabled", slug), fasthttp.StatusNotFound)
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	sent, err := s.pinger.Ping(reqCtx, slug, false)
	if err != nil {
		logger.Error("Ping failed",
			zap.String("slug", slug),
			zap.Error(err))
		httputil.JSONError(ctx, "ping failed", fasthttp.StatusInternalServerError)
		return
	}

	state, err := s.pinger.GetState(reqCtx, slug)
	if err != nil {
		logger.Warn("Failed to load ping state",
			zap.String("slug", slug),
			zap.Error(err))
		httputil.JSONData(ctx, map[string]interface{}{"sent": sent}, fasthttp.StatusOK)
		return
	}

	if sent {
		s.collector.RecordPing(slug, state.Code)
	}

	httputil.JSONData(ctx, map[string]interface{}{
		"sent":        sent,
		"code":        state.Code,
		"latest_time": state.LatestTime,
	}, fasthttp.StatusOK)
}

func (s *Server) resolveSlugs(slug string) ([]string, error) {
	if slug == "" {
		return []string{
			configtypes.SlugSitemap,
			configtypes.SlugNewsmap,
			configtypes.SlugSiteTree,
		}, nil
	}

	switch slug {
	case configtypes.SlugSitemap, configtypes.SlugNewsmap, configtypes.SlugSiteTree:
		return []string{slug}, nil
	}
	return nil, fmt.Errorf("unknown slug %q", slug)
}
