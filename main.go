package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"eshopscout/aggregator"
	"eshopscout/cache"
	"eshopscout/catalog"
	"eshopscout/config"
	"eshopscout/currency"
	"eshopscout/database"
	"eshopscout/errs"
	"eshopscout/events"
	"eshopscout/handlers"
	"eshopscout/logger"
	"eshopscout/matcher"
	"eshopscout/metrics"
	"eshopscout/models"
	"eshopscout/regions"
	"eshopscout/repository"
	"eshopscout/resolver"
	"eshopscout/scheduler"
	"eshopscout/scraper"
	"eshopscout/services"
)

var version = "dev"

const lookupTimeout = 2 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	if len(os.Args) > 1 && os.Args[1] == "issue-key" {
		if err := issueKey(cfg, log, os.Args[2:]); err != nil {
			log.Error("Failed to issue API key", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Error("❌ Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()

	store, err := cache.OpenStore(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	priceCache, err := cache.New[*models.PriceQuoteSet]("prices", cfg.Aggregation.PriceTTL, cfg.Cache.MaxKeys, store, log)
	if err != nil {
		return err
	}
	idCache, err := cache.New[map[models.RegionTag]string]("identifiers", cfg.Aggregation.IdentifierTTL, cfg.Cache.MaxKeys, store, log)
	if err != nil {
		return err
	}
	rateCache, err := cache.New[currency.Table]("rates", cfg.Aggregation.RatesTTL, 16, store, log)
	if err != nil {
		return err
	}
	regionCache, err := cache.New[[]models.RegionProfile]("regions", cfg.Regions.LiveTTL, 4, store, log)
	if err != nil {
		return err
	}
	snapshotCache, err := cache.New[[]models.CatalogEntry]("catalog-snapshots", cfg.Search.CatalogSnapshotTTL, 4, nil, log)
	if err != nil {
		return err
	}
	priceCache.WithObserver(reg)
	idCache.WithObserver(reg)
	rateCache.WithObserver(reg)
	regionCache.WithObserver(reg)

	// Upstream storefront adapters
	client := scraper.NewClient(cfg.Storefront, log)
	priceAPI := scraper.NewPriceAPI(client, cfg.Storefront)
	europe := scraper.NewEuropeCatalog(client, cfg.Storefront)
	searchable, all := catalogSources(cfg, client, europe, snapshotCache)

	var probe regions.ShopProbe
	if cfg.Regions.LiveRefresh {
		probe = scraper.NewActiveShopProbe(priceAPI, log)
	}
	directory := regions.NewDirectory(probe, cfg.Regions.ExtraCodes, regionCache, log)
	converter := currency.NewConverter(cfg.Aggregation.CommonCurrency, scraper.NewRatesAPI(client, cfg.Storefront), rateCache, log)

	scorer := matcher.DefaultScorer()
	policy := matcher.Policy{MinScore: cfg.Search.MinScore, DominanceRatio: cfg.Search.DominanceRatio, TopK: cfg.Search.AmbiguousTopK}
	search := catalog.NewSearch(searchable, scorer, policy, catalog.DefaultFallbacks, log)
	ids := resolver.New(all, scorer, resolver.Options{
		MinScore:       cfg.Search.ResolverMinScore,
		NativeMinScore: cfg.Search.MinScore,
		MaxWords:       cfg.Search.ResolverMaxWords,
	}, resolver.DefaultOverrides, resolver.NativeNames, idCache, log)
	agg := aggregator.New(priceAPI, directory, converter, priceCache, aggregator.Options{
		BatchSize:  cfg.Aggregation.BatchSize,
		BatchDelay: cfg.Aggregation.BatchDelay,
	}, log).WithRecorder(reg)

	opts := []services.Option{services.WithIDLookup(europe), services.WithSearchRecorder(reg)}

	var (
		db      *sql.DB
		titles  *repository.TitleRepository
		popular scheduler.PopularTitles
		listing handlers.PopularTitles
	)
	if cfg.Database.URL != "" {
		if db, err = openDatabase(ctx, cfg.Database.URL, log); err != nil {
			return err
		}
		defer db.Close()
		titles = repository.NewTitleRepository(db)
		popular, listing = titles, titles
		opts = append(opts, services.WithTitleStore(titles))
	} else {
		log.Warn("DATABASE_URL not set, lookup statistics and client keys are disabled")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Events.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, log)
		log.Info("📣 Publishing price sets", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
	}
	publisher = events.Observed(publisher, reg)
	defer publisher.Close()
	opts = append(opts, services.WithPublisher(publisher))

	prices := services.NewPriceService(search, ids, agg, log, opts...)

	// Background work
	tasks := scheduler.NewTaskManager(prices.SearchTitle, prices.SearchByRegionalID, scheduler.TaskManagerOptions{
		Workers:   cfg.Scheduler.TaskWorkers,
		QueueSize: cfg.Scheduler.TaskQueueSize,
		Timeout:   lookupTimeout,
		Retention: cfg.Scheduler.TaskRetention,
		Observer:  reg.LookupQueueLength,
	}, log)
	tasks.Start()
	defer tasks.Stop()

	refresher := scheduler.NewRefresher(prices, popular, reg, scheduler.RefresherOptions{
		Spec:          cfg.Scheduler.RefreshSpec,
		PopularLimit:  cfg.Scheduler.PopularLimit,
		DefaultTitles: cfg.Scheduler.PopularTitles,
		RunTimeout:    10 * time.Minute,
	}, log)
	if err := refresher.Start(); err != nil {
		return err
	}
	defer refresher.Stop()

	warmer := scheduler.NewWarmer(cfg.Scheduler.RatesInterval, reg, log,
		scheduler.WarmJob{Name: "rates", Run: func(ctx context.Context) error {
			_, err := converter.Refresh(ctx)
			return err
		}},
		scheduler.WarmJob{Name: "regions", Run: func(ctx context.Context) error {
			if n := len(directory.ListActiveRegions(ctx)); n == 0 {
				return errs.New("no active regions")
			}
			return nil
		}},
	)
	warmer.Start()
	defer warmer.Stop()

	keys, err := services.NewAPIKeyService(cfg.Server.APIKeys)
	if err != nil {
		return err
	}
	if db != nil {
		keys.WithKeyStore(repository.NewAPIKeyRepository(db), log)
	}
	if !keys.Enabled() {
		log.Warn("API_KEYS not set, the API is open")
	}

	h := handlers.NewHandlers(prices, tasks, directory, converter, listing, version, log)
	router := handlers.NewRouter(h, handlers.RouterOptions{
		Logger:       log,
		Metrics:      reg,
		Keys:         keys,
		RateLimitRPS: cfg.Server.RateLimitRPS,
		RateBurst:    int(cfg.Server.RateLimitRPS) * 2,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      lookupTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("🚀 eshopscout listening", "addr", srv.Addr, "version", version,
			"sources", len(searchable), "live_regions", cfg.Regions.LiveRefresh)
		if err := srv.ListenAndServe(); err != nil && !errs.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDatabase(ctx context.Context, url string, log *slog.Logger) (*sql.DB, error) {
	db, err := database.Open(ctx, url, log)
	if err != nil {
		return nil, err
	}
	if err := database.CreateTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// issueKey handles "issue-key <client> [max-daily]" and prints the new key.
func issueKey(cfg config.Config, log *slog.Logger, args []string) error {
	if len(args) == 0 {
		return errs.Mark(errs.New("usage: issue-key <client> [max-daily]"), errs.ErrInvalidInput)
	}
	maxDaily := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return errs.Mark(errs.Wrap(err, "max-daily"), errs.ErrInvalidInput)
		}
		maxDaily = n
	}
	if cfg.Database.URL == "" {
		return errs.New("DATABASE_URL is required to issue keys")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := openDatabase(ctx, cfg.Database.URL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	key, ck, err := repository.NewAPIKeyRepository(db).CreateAPIKey(ctx, args[0], maxDaily)
	if err != nil {
		return err
	}
	log.Info("🔑 API key issued", "client", ck.Client, "prefix", ck.Prefix, "max_daily", ck.MaxDaily)
	fmt.Println(key)
	return nil
}

// catalogSources returns the catalogs named in SEARCH_SOURCES, and every
// partition the resolver may look identifiers up in.
func catalogSources(cfg config.Config, client *scraper.Client, europe *scraper.EuropeCatalog,
	snapshots *cache.ResultCache[[]models.CatalogEntry]) (searchable, all []catalog.Source) {
	byName := map[string]catalog.Source{
		"europe": europe,
		"japan":  scraper.NewJapanCatalog(client, cfg.Storefront, snapshots),
	}
	if cfg.Storefront.IsAlgoliaConfigured() {
		byName["americas"] = scraper.NewAmericasCatalog(client, cfg.Storefront)
	}

	for _, name := range cfg.Search.Sources {
		src, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			slog.Warn("Unknown or unconfigured catalog source ignored", "source", name)
			continue
		}
		searchable = append(searchable, src)
	}
	for _, name := range []string{"europe", "americas", "japan"} {
		if src, ok := byName[name]; ok {
			all = append(all, src)
		}
	}
	return searchable, all
}
