// Package main wires together the crawl and serve binaries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/api"
	"github.com/stridewatch/stridewatch/internal/artifacts"
	"github.com/stridewatch/stridewatch/internal/config"
	"github.com/stridewatch/stridewatch/internal/crawl"
	"github.com/stridewatch/stridewatch/internal/extract"
	"github.com/stridewatch/stridewatch/internal/logging"
	"github.com/stridewatch/stridewatch/internal/metrics"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
	"github.com/stridewatch/stridewatch/internal/probe"
	"github.com/stridewatch/stridewatch/internal/publish"
	"github.com/stridewatch/stridewatch/internal/store"
	"github.com/stridewatch/stridewatch/internal/tracker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	mode := flag.String("mode", "crawl", "Run mode: crawl or serve")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	switch *mode {
	case "crawl":
		if err := runCrawl(ctx, cfg, m, logger); err != nil {
			logger.Error("crawl run failed", zap.Error(err))
			os.Exit(1)
		}
	case "serve":
		if err := runServe(ctx, cfg, logger); err != nil {
			logger.Error("serve failed", zap.Error(err))
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(1)
	}
}

func runCrawl(ctx context.Context, cfg config.Config, m *metrics.Metrics, logger *zap.Logger) error {
	prober := probe.New(cfg.Probe, logger.Named("probe"))
	if err := prober.CheckListing(ctx, cfg.Crawl.ListingURL); err != nil {
		return err
	}

	gateway, err := store.NewGateway(ctx, cfg.Database, logger.Named("store"), m)
	if err != nil {
		return err
	}
	defer gateway.Close()
	if err := gateway.EnsureSchema(ctx); err != nil {
		return err
	}

	sink, err := newArtifactStore(ctx, cfg.Artifacts)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(ctx, cfg.PubSub)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	browser, err := pagedriver.NewChrome(pagedriver.ChromeConfig{
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
	})
	if err != nil {
		return err
	}
	defer browser.Close()

	baseURL, err := listingBase(cfg.Crawl.ListingURL)
	if err != nil {
		return err
	}

	sel := cfg.Selectors
	lazy := crawl.NewLazyLoader(crawl.LazyLoadConfig{
		MaxAttempts:   cfg.Scroll.MaxAttempts,
		IdleThreshold: cfg.Scroll.IdleThreshold,
		SettleEvery:   cfg.Scroll.SettleEvery,
		ScrollDelay:   cfg.Scroll.ScrollDelay,
		SettleDelay:   cfg.Scroll.SettleDelay,
		CardCeiling:   cfg.Scroll.CardCeiling,
	}, logger.Named("lazyload"))

	worker := crawl.NewWorker(
		extract.NewFitExtractor(sel, logger.Named("fits")),
		extract.NewColorExtractor(sel, baseURL, logger.Named("colors")),
		extract.NewSizeExtractor(sel, logger.Named("sizes")),
		extract.NewPricingExtractor(sel, logger.Named("pricing")),
		sel,
		crawl.WorkerConfig{
			PageSettle:      cfg.Crawl.PageSettle,
			SizeGridTimeout: cfg.Crawl.SizeGridTimeout,
		},
		logger.Named("worker"),
	)

	orchestrator := crawl.NewOrchestrator(
		browser,
		lazy,
		extract.NewProductExtractor(sel, baseURL, logger.Named("products")),
		worker,
		sel,
		sink,
		m,
		crawl.OrchestratorConfig{
			ListingURL:    cfg.Crawl.ListingURL,
			MaxConcurrent: cfg.Crawl.MaxConcurrent,
			ProductLimit:  cfg.Crawl.ProductLimit,
			PageSettle:    cfg.Crawl.PageSettle,
		},
		logger.Named("orchestrator"),
	)

	result, runErr := orchestrator.Run(ctx)
	if runErr != nil && len(result.Products) == 0 {
		return runErr
	}
	if runErr != nil {
		logger.Warn("run interrupted, persisting what was collected", zap.Error(runErr))
	}

	// The signal context is already canceled on an interrupted run;
	// persistence of the collected data gets its own bounded window.
	persistCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		persistCtx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}

	if err := gateway.SaveEntities(persistCtx, result.Products, result.Fits, result.Colors, result.Sizes); err != nil {
		logger.Warn("entity persistence incomplete", zap.Error(err))
	}

	prior, err := gateway.LatestStates(persistCtx)
	if err != nil {
		return err
	}
	captureTime := time.Now().UTC()
	observations := tracker.New(logger.Named("tracker"), m).Diff(prior, result.Snapshots, captureTime)
	inserted, failed := gateway.SaveObservations(persistCtx, observations)

	published := 0
	for _, obs := range observations {
		if _, err := publisher.Publish(persistCtx, obs); err != nil {
			logger.Warn("publish failed", zap.String("size_id", obs.SizeID), zap.Error(err))
			continue
		}
		published++
	}

	logger.Info("crawl run complete",
		zap.Int("products", len(result.Products)),
		zap.Int("fits", len(result.Fits)),
		zap.Int("colors", len(result.Colors)),
		zap.Int("sizes", len(result.Sizes)),
		zap.Int("snapshots", len(result.Snapshots)),
		zap.Int("changes", len(observations)),
		zap.Int("observations_inserted", inserted),
		zap.Int("observations_failed", failed),
		zap.Int("published", published),
		zap.Time("capture_time", captureTime),
	)
	return runErr
}

func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	gateway, err := store.NewGateway(ctx, cfg.Database, logger.Named("store"), nil)
	if err != nil {
		return err
	}
	defer gateway.Close()

	apiServer := api.NewServer(gateway, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func newArtifactStore(ctx context.Context, cfg artifacts.Config) (artifacts.Store, error) {
	switch cfg.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		return artifacts.NewGCSStore(client, cfg.Bucket)
	case "local":
		return artifacts.NewLocalStore(cfg.BaseDir)
	default:
		return artifacts.NoOp{}, nil
	}
}

func newPublisher(ctx context.Context, cfg publish.Config) (publish.Publisher, error) {
	if !cfg.Enabled {
		return publish.NoOp{}, nil
	}
	return publish.NewPubSub(ctx, cfg)
}

// listingBase extracts scheme://host from the listing URL for resolving
// root-relative hrefs.
func listingBase(listing string) (string, error) {
	u, err := url.Parse(listing)
	if err != nil {
		return "", fmt.Errorf("parse listing url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("listing url %q must be absolute", listing)
	}
	return u.Scheme + "://" + u.Host, nil
}
