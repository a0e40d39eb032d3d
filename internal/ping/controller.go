// Package ping notifies search engines when a sitemap's content changed,
// throttled per slug and resuming from partial failures.
package ping

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/redis"
	"github.com/sitetree/engine/internal/sitemap/builder"
)

const (
	engineGoogle = "google"
	engineBing   = "bing"

	requestTimeout = 10 * time.Second
)

var pingTargets = map[string]string{
	engineGoogle: "https://www.google.com/ping?sitemap=",
	engineBing:   "https://www.bing.com/ping?sitemap=",
}

// Controller sends sitemap pings and persists each slug's ping state.
type Controller struct {
	cfg    *configtypes.Config
	blobs  *redis.BlobStore
	keys   *redis.KeyGenerator
	urls   *builder.SiteURLs
	client *fasthttp.Client
	logger *zap.Logger

	minInterval map[string]time.Duration
	now         func() time.Time
}

func NewController(
	cfg *configtypes.Config,
	blobs *redis.BlobStore,
	keys *redis.KeyGenerator,
	urls *builder.SiteURLs,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		cfg:    cfg,
		blobs:  blobs,
		keys:   keys,
		urls:   urls,
		client: &fasthttp.Client{Name: "SiteTree-Ping"},
		logger: logger,
		minInterval: map[string]time.Duration{
			configtypes.SlugSitemap: 30 * time.Minute,
			configtypes.SlugNewsmap: 5 * time.Minute,
		},
		now: time.Now,
	}
}

// GetState returns the slug's persisted ping state, a fresh one when none
// exists yet.
func (c *Controller) GetState(ctx context.Context, slug string) (*State, error) {
	var state State
	found, err := c.blobs.GetBlob(ctx, c.keys.PingStateKey(slug), &state)
	if err != nil {
		return nil, fmt.Errorf("failed to load ping state for %s: %w", slug, err)
	}
	if !found || state.SitemapSlug != slug {
		return NewState(slug), nil
	}
	return &state, nil
}

// Ping sends the slug's pings if allowed. On-request pings are throttled
// while the previous round succeeded recently; automatic pings (content
// just changed) always go through. Returns false when nothing was sent.
func (c *Controller) Ping(ctx context.Context, slug string, automatic bool) (bool, error) {
	if !c.cfg.Ping.Enabled || c.cfg.Ping.Local {
		return false, nil
	}

	state, err := c.GetState(ctx, slug)
	if err != nil {
		return false, err
	}

	if !automatic && !c.canPingOnRequest(state, slug) {
		return false, nil
	}

	statusCode := state.Code
	if automatic {
		statusCode = CodeAutomaticPing
	}

	var responses []Response
	switch statusCode {
	case CodeNoGoogle:
		responses = append(responses, c.sendPing(slug, engineGoogle))
	case CodeNoBing:
		responses = append(responses, c.sendPing(slug, engineBing))
	default:
		responses = append(responses, c.sendPing(slug, engineGoogle))
		if slug == configtypes.SlugSitemap {
			responses = append(responses, c.sendPing(slug, engineBing))
		}
	}

	state.Update(responses)

	if err := c.blobs.SetBlob(ctx, c.keys.PingStateKey(slug), state); err != nil {
		return false, fmt.Errorf("failed to persist ping state for %s: %w", slug, err)
	}

	c.logger.Info("Pings sent",
		zap.String("slug", slug),
		zap.String("code", state.Code),
		zap.Bool("automatic", automatic))

	return true, nil
}

func (c *Controller) canPingOnRequest(state *State, slug string) bool {
	if state.Code != CodeSucceeded {
		return true
	}
	elapsed := c.now().Unix() - state.LatestTime
	return elapsed > int64(c.minInterval[slug].Seconds())
}

func (c *Controller) sendPing(slug, engine string) Response {
	pingURL := pingTargets[engine] + url.QueryEscape(c.urls.Sitemap(slug, "", 0))

	response := Response{
		Engine: engine,
		Time:   c.now().Unix(),
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(pingURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.client.DoTimeout(req, resp, requestTimeout); err != nil {
		response.Status = err.Error()
		c.logger.Warn("Ping request failed",
			zap.String("engine", engine),
			zap.String("slug", slug),
			zap.Error(err))
		return response
	}

	response.Status = strconv.Itoa(resp.StatusCode())
	return response
}
