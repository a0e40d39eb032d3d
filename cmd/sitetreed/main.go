package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/config"
	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/logger"
	"github.com/sitetree/engine/internal/common/metricsserver"
	"github.com/sitetree/engine/internal/common/redis"
	"github.com/sitetree/engine/internal/content"
	"github.com/sitetree/engine/internal/ping"
	"github.com/sitetree/engine/internal/server"
	"github.com/sitetree/engine/internal/server/metrics"
	"github.com/sitetree/engine/internal/sitemap/builder"
	"github.com/sitetree/engine/internal/sitemap/tracker"
	"github.com/sitetree/engine/internal/stylesheet"
)

const serverName = "SiteTree/1.0"

func main() {
	configPath := flag.String("c", "configs/sitetreed.yaml", "path to configuration file")
	testMode := flag.Bool("t", false, "test configuration and exit")
	flag.Parse()

	if *testMode {
		os.Exit(runConfigTest(*configPath))
	}

	initialLogger, err := logger.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	initialLogger.Info("Starting SiteTree daemon", zap.String("config_path", *configPath))

	configManager, err := config.NewManager(*configPath, initialLogger)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	cfg := configManager.GetConfig()

	appLogger, err := logger.NewLogger(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	defer appLogger.Sync()

	redisClient, err := redis.NewClient(&cfg.Redis, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := content.NewStore(&cfg.Database, content.Filters{}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to content database", zap.Error(err))
	}
	defer store.Close()

	keyGenerator := redis.NewKeyGenerator(map[string]string{
		configtypes.SlugSitemap:  configManager.Token(configtypes.SlugSitemap),
		configtypes.SlugNewsmap:  configManager.Token(configtypes.SlugNewsmap),
		configtypes.SlugSiteTree: configManager.Token(configtypes.SlugSiteTree),
	})
	blobStore := redis.NewBlobStore(redisClient, cfg.Redis.Compression, appLogger)

	siteURLs := builder.NewSiteURLs(&cfg.Site)
	metricsTracker := tracker.NewTracker(blobStore, keyGenerator, appLogger)
	pingController := ping.NewController(cfg, blobStore, keyGenerator, siteURLs, appLogger)

	stylesheetBuilder, err := stylesheet.NewBuilder()
	if err != nil {
		appLogger.Fatal("Failed to parse stylesheet templates", zap.Error(err))
	}

	prometheusMetrics := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, appLogger)
	metricsCollector := metrics.NewMetricsCollector(prometheusMetrics, appLogger)

	metricsServer, err := metricsserver.Start(
		cfg.Metrics.Enabled,
		cfg.Metrics.Listen,
		cfg.Metrics.Path,
		metricsCollector,
		appLogger,
	)
	if err != nil {
		appLogger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	srv := server.NewServer(
		cfg,
		store,
		redisClient,
		blobStore,
		keyGenerator,
		metricsTracker,
		pingController,
		stylesheetBuilder,
		metricsCollector,
		appLogger,
	)

	serverErrors := make(chan error, 1)
	httpLifecycle := &serverLifecycle{
		server:  newFastHTTPServer(srv.HandleRequest, cfg.Server.Timeout.Std()),
		name:    "HTTP",
		address: cfg.Server.Listen,
		logger:  appLogger,
	}
	httpLifecycle.StartWithErrorChan(serverErrors)

	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-serverErrors:
		appLogger.Fatal("Server failed to start", zap.Error(err))
	default:
	}

	appLogger.Info("SiteTree daemon started",
		zap.String("http_addr", cfg.Server.Listen),
		zap.String("site_url", cfg.Site.URL))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down SiteTree daemon...")
	case err := <-serverErrors:
		appLogger.Error("Server failed, initiating shutdown", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		appLogger.Info("Shutting down metrics server")
		if err := metricsServer.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	httpLifecycle.Shutdown(shutdownCtx)
	appLogger.Info("SiteTree daemon stopped")
}

func newFastHTTPServer(handler fasthttp.RequestHandler, timeout time.Duration) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      handler,
		Name:                         serverName,
		ReadTimeout:                  timeout,
		WriteTimeout:                 timeout,
		IdleTimeout:                  timeout,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultDate:                true,
	}
}

type serverLifecycle struct {
	server  *fasthttp.Server
	name    string
	address string
	logger  *zap.Logger
}

func (s *serverLifecycle) StartWithErrorChan(errChan chan<- error) {
	go func() {
		if err := s.server.ListenAndServe(s.address); err != nil {
			s.logger.Error("Server error", zap.String("name", s.name), zap.Error(err))
			if errChan != nil {
				errChan <- fmt.Errorf("%s server failed: %w", s.name, err)
			}
		}
	}()
	s.logger.Info("Server started", zap.String("name", s.name), zap.String("address", s.address))
}

func (s *serverLifecycle) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server", zap.String("name", s.name))
	err := s.server.ShutdownWithContext(ctx)
	if err != nil {
		s.logger.Error("Server shutdown error", zap.String("name", s.name), zap.Error(err))
	}
	return err
}

// runConfigTest validates the configuration file and reports the outcome
// the way "nginx -t" does.
func runConfigTest(configPath string) int {
	if _, err := config.Validate(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "configuration test failed: %v\n", err)
		return 1
	}
	fmt.Printf("configuration file %s syntax is ok\n", configPath)
	fmt.Println("configuration test is successful")
	return 0
}
