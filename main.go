package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/cardscope/cardscope/cardscope"
	"github.com/cardscope/cardscope/cardscope/cache"
	"github.com/cardscope/cardscope/cardscope/comps"
	"github.com/cardscope/cardscope/cardscope/database"
	"github.com/cardscope/cardscope/cardscope/database/repositories"
	"github.com/cardscope/cardscope/cardscope/ebay"
	"github.com/cardscope/cardscope/cardscope/handlers"
	"github.com/cardscope/cardscope/cardscope/identity"
	"github.com/cardscope/cardscope/cardscope/logger"
	"github.com/cardscope/cardscope/cardscope/middleware"
	"github.com/cardscope/cardscope/cardscope/ratelimit"
	"github.com/cardscope/cardscope/cardscope/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldInitDB := flag.Bool("init-db", false, "initialize database schema")
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	customHandler := logger.NewHandler("CardScope")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting CardScope",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := cardscope.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional scan-history persistence.
	var db *database.DB
	var scanRepo repositories.ScanRepository
	if cfg.DB.Enabled() {
		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err = database.New(dbCtx, database.DBConfig{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			Database: cfg.DB.Database,
			PoolSize: cfg.DB.PoolSize,
		})
		dbCancel()
		if err != nil {
			slog.Error("Failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()

		if *shouldInitDB {
			if err := db.InitializeSchema(ctx); err != nil {
				slog.Error("Failed to initialize schema", slog.String("error", err.Error()))
				os.Exit(1)
			}
			slog.Info("Database schema initialized")
		}
		scanRepo = repositories.NewScanRepository(db.BunDB())
	}

	limiter := ratelimit.New(cfg.Pipeline.RateMaxRequests, cfg.Pipeline.RateWindow.Std())
	store := cache.New(cfg.Pipeline.CacheSize, cfg.Pipeline.QueryCacheTTL.Std(), cfg.Pipeline.TextCacheTTL.Std())
	store.StartSweep(ctx, cfg.Pipeline.SweepInterval.Std())

	httpClient := &http.Client{Timeout: 15 * time.Second}
	tokens := ebay.NewTokenProvider(cfg.Ebay.ClientID, cfg.Ebay.ClientSecret, cfg.Ebay.TokenURL, httpClient)
	client := ebay.NewClient(ebay.Config{
		AppID:          cfg.Ebay.AppID,
		FindingURL:     cfg.Ebay.FindingURL,
		BrowseURL:      cfg.Ebay.BrowseURL,
		MarketplaceID:  cfg.Ebay.MarketplaceID,
		CategoryID:     cfg.Ebay.CategoryID,
		EntriesPerPage: cfg.Ebay.EntriesPerPage,
		Cooldown:       time.Duration(cfg.Ebay.CooldownMin) * time.Minute,
	}, httpClient, limiter, store, tokens)

	aggregator := comps.NewAggregator(
		func(sctx context.Context, q string, opts comps.SearchOptions) ([]comps.Listing, error) {
			sctx, scancel := context.WithTimeout(sctx, cfg.Pipeline.SearchTimeout.Std())
			defer scancel()
			return client.SearchSold(sctx, q, opts)
		},
		comps.Config{
			SparsityThreshold: cfg.Pipeline.SparsityThreshold,
			MaxListings:       cfg.Pipeline.MaxListings,
			CategoryID:        cfg.Ebay.CategoryID,
			Rates:             cfg.Pipeline.CurrencyRates,
		},
	)

	scanService := services.NewScanService(
		identity.NewExtractor(),
		nil,
		aggregator,
		store,
		client,
		scanRepo,
	)

	app := fiber.New(fiber.Config{
		AppName:      "CardScope API",
		ServerHeader: "CardScope",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(middleware.LoggingMiddleware())

	api := &handlers.API{
		Scans:   scanService,
		Limiter: limiter,
		Cache:   store,
		Ebay:    client,
		DB:      db,
		Version: version,
	}
	api.Register(app)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("Starting server", slog.String("address", address))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-c
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	slog.Info("Shutdown complete")
}
