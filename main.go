package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"sjsage522/listingscout/config"
	"sjsage522/listingscout/helpers"
	"sjsage522/listingscout/internal/crawler"
	"sjsage522/listingscout/internal/dedup"
	"sjsage522/listingscout/internal/fetch"
	"sjsage522/listingscout/internal/scoring"
	"sjsage522/listingscout/logger"
	"sjsage522/listingscout/services/cache"
	"sjsage522/listingscout/services/exporter"
	"sjsage522/listingscout/services/metrics"
	"sjsage522/listingscout/services/publisher"
	"sjsage522/listingscout/services/worker"
)

const usage = `usage: listingscout [run|schedule|test|ui]

  run       crawl every enabled source once (default)
  schedule  run now, then on SCHEDULE_SPEC until interrupted
  test      fetch page 1 of each source and report what was found
  ui        press Enter to run a pass, q to quit
`

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	command := "run"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "run", "schedule", "test", "ui":
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("command", command).
		Strs("sources", cfg.EnabledSources).
		Msg("Starting application")

	// Cancel on interrupt; a run in flight stops without committing
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	w, err := buildWorker(cfg, services)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker")
	}

	switch command {
	case "run":
		result, err := w.RunOnce(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Run failed")
		}
		printSummary(os.Stdout, result)
	case "schedule":
		stop := serveMetrics(cfg.MetricsAddr, services.Metrics)
		defer stop()
		if err := w.Start(ctx, cfg.ScheduleSpec); err != nil {
			log.Fatal().Err(err).Msg("Scheduler failed")
		}
	case "test":
		if !printSmoke(os.Stdout, w.SmokeTest(ctx)) {
			os.Exit(1)
		}
	case "ui":
		runUI(ctx, w, os.Stdin, os.Stdout)
	}

	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Redis     *redis.Client
	Publisher publisher.Publisher
	Store     *dedup.Store
	Metrics   *metrics.Metrics
	Journal   *helpers.Logger
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	} else if s.Redis != nil {
		s.Redis.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{
		Metrics: metrics.New(),
		Journal: helpers.NewLogger(cfg.JournalPath()),
	}

	// Rate limit cooldowns survive restarts only with memcache
	services.Cache = cache.NewMemoryCache()
	if cfg.MemcacheAddr != "" {
		memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := memcacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unavailable, keeping cooldowns in process: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = memcacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.UseRedis() {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		services.Redis = client
		logger.Info("Connected to Redis at %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)
	}

	if cfg.RedisStream != "" {
		services.Publisher = publisher.NewRedisPublisher(ctx, services.Redis, cfg.RedisStream, cfg.RedisStreamMaxLength)
		logger.Info("Publishing new listings to stream %s", cfg.RedisStream)
	}

	var backend dedup.Backend
	switch cfg.StateBackend {
	case config.StateBackendRedis:
		backend = dedup.NewRedisBackend(services.Redis, cfg.RedisStatePrefix)
	default:
		backend = dedup.NewFileBackend(cfg.StatePath)
	}
	services.Store = dedup.NewStore(backend)

	return services, nil
}

// buildWorker wires the crawlers, the scoring engine and the sinks
func buildWorker(cfg *config.Config, services *Services) (*worker.Worker, error) {
	crawlCfg, err := cfg.CrawlConfig()
	if err != nil {
		return nil, err
	}
	fetcher := fetch.NewClient(crawlCfg.Fetch,
		fetch.WithCache(services.Cache),
		fetch.WithObserver(services.Metrics),
	)
	crawlers, err := crawler.CreateCrawlers(crawlCfg, fetcher)
	if err != nil {
		return nil, err
	}
	sources := make([]worker.SourceCrawler, 0, len(crawlers))
	for _, c := range crawlers {
		sources = append(sources, c)
	}

	opts := []worker.Option{
		worker.WithFilter(cfg.Filter()),
		worker.WithExporter(exporter.NewCSVExporter(cfg.OutputDir)),
		worker.WithMetrics(services.Metrics),
	}
	if services.Publisher != nil {
		opts = append(opts, worker.WithPublisher(services.Publisher))
	}
	return worker.NewWorker(sources, scoring.DefaultEngine(), services.Store, services.Journal, opts...), nil
}

// serveMetrics exposes /metrics when addr is set. The returned func shuts it down.
func serveMetrics(addr string, m *metrics.Metrics) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
