package server_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/redis"
	"github.com/sitetree/engine/internal/content"
	"github.com/sitetree/engine/internal/content/contenttest"
	"github.com/sitetree/engine/internal/ping"
	"github.com/sitetree/engine/internal/server"
	"github.com/sitetree/engine/internal/server/metrics"
	"github.com/sitetree/engine/internal/sitemap/builder"
	"github.com/sitetree/engine/internal/sitemap/tracker"
	"github.com/sitetree/engine/internal/stylesheet"
)

var testEnv *TestEnvironment

func TestServerAcceptance(t *testing.T) {
	RegisterFailHandler(Fail)

	// Specs share one daemon instance, so run them sequentially.
	suiteConfig, reporterConfig := GinkgoConfiguration()
	suiteConfig.ParallelTotal = 1
	suiteConfig.Timeout = 5 * time.Minute
	reporterConfig.Succinct = true

	RunSpecs(t, "Server Acceptance Test Suite", suiteConfig, reporterConfig)
}

// TestEnvironment boots the full serving stack against an embedded Redis
// and an in-memory content store, reachable over real HTTP.
type TestEnvironment struct {
	cfg     *configtypes.Config
	store   *contenttest.Fake
	redis   *miniredis.Miniredis
	client  *redis.Client
	httpSrv *fasthttp.Server
	baseURL string
}

func NewTestEnvironment() (*TestEnvironment, error) {
	env := &TestEnvironment{
		store: contenttest.New(),
		cfg: &configtypes.Config{
			Site: configtypes.SiteConfig{URL: "https://example.com"},
			Sitemap: configtypes.SitemapConfig{
				Enabled:       true,
				MaxPermalinks: 2,
				PostTypes:     []string{"page", "post"},
			},
			Newsmap: configtypes.NewsmapConfig{
				Enabled:         true,
				PostTypes:       []string{"post"},
				PublicationName: "Example News",
			},
			SiteTree: configtypes.SiteTreeConfig{Enabled: true},
		},
	}
	env.cfg.ApplyDefaults()

	mr, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded redis: %w", err)
	}
	env.redis = mr

	logger := zap.NewNop()
	client, err := redis.NewClient(&configtypes.RedisConfig{Addr: mr.Addr()}, logger)
	if err != nil {
		return nil, err
	}
	env.client = client

	blobs := redis.NewBlobStore(client, configtypes.CompressionNone, logger)
	keys := redis.NewKeyGenerator(map[string]string{
		configtypes.SlugSitemap:  "aaaa",
		configtypes.SlugNewsmap:  "bbbb",
		configtypes.SlugSiteTree: "cccc",
	})
	urls := builder.NewSiteURLs(&env.cfg.Site)

	stylesheets, err := stylesheet.NewBuilder()
	if err != nil {
		return nil, err
	}

	pm := metrics.NewPrometheusMetricsWithRegistry("sitetree_acceptance", prometheus.NewRegistry(), logger)
	srv := server.NewServer(
		env.cfg,
		env.store,
		client,
		blobs,
		keys,
		tracker.NewTracker(blobs, keys, logger),
		ping.NewController(env.cfg, blobs, keys, urls, logger),
		stylesheets,
		metrics.NewMetricsCollector(pm, logger),
		logger,
	)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	env.baseURL = "http://" + listener.Addr().String()
	env.httpSrv = &fasthttp.Server{Handler: srv.HandleRequest}

	go func() {
		_ = env.httpSrv.Serve(listener)
	}()

	return env, nil
}

func (env *TestEnvironment) CheckHealth() bool {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Reset empties the content fixtures and every cached blob, giving each
// spec a clean site.
func (env *TestEnvironment) Reset() {
	env.store.PostsByType = make(map[string][]content.Post)
	env.store.Images = make(map[int64][]content.Attachment)
	env.store.Terms = make(map[string][]content.Term)
	env.store.MetaFlags = make(map[int64][]string)
	env.store.Authors = nil
	env.store.LastModified = ""
	env.store.Err = nil
	env.redis.FlushAll()
}

func (env *TestEnvironment) Stop() {
	if env.httpSrv != nil {
		_ = env.httpSrv.Shutdown()
	}
	if env.client != nil {
		_ = env.client.Close()
	}
	if env.redis != nil {
		env.redis.Close()
	}
}

func (env *TestEnvironment) get(path string) (int, string) {
	resp, err := http.Get(env.baseURL + path)
	Expect(err).ToNot(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	Expect(err).ToNot(HaveOccurred())
	return resp.StatusCode, string(body)
}

func (env *TestEnvironment) post(path string) (int, string) {
	resp, err := http.Post(env.baseURL+path, "application/json", nil)
	Expect(err).ToNot(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	Expect(err).ToNot(HaveOccurred())
	return resp.StatusCode, string(body)
}

var _ = BeforeSuite(func() {
	By("Booting the serving stack")
	var err error
	testEnv, err = NewTestEnvironment()
	Expect(err).ToNot(HaveOccurred())

	By("Waiting for the listener")
	Eventually(testEnv.CheckHealth, 5*time.Second, 100*time.Millisecond).Should(BeTrue())
})

var _ = AfterSuite(func() {
	if testEnv != nil {
		testEnv.Stop()
	}
})

var _ = BeforeEach(func() {
	testEnv.Reset()
})
