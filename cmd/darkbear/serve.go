package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/darkbear/internal/api"
	"github.com/mtlprog/darkbear/internal/classify"
	"github.com/mtlprog/darkbear/internal/config"
	"github.com/mtlprog/darkbear/internal/database"
	"github.com/mtlprog/darkbear/internal/export"
	"github.com/mtlprog/darkbear/internal/indicator"
	"github.com/mtlprog/darkbear/internal/journal"
	"github.com/mtlprog/darkbear/internal/portfolio"
	"github.com/mtlprog/darkbear/internal/quote"
	"github.com/mtlprog/darkbear/internal/snapshot"
	"github.com/mtlprog/darkbear/internal/valuation"
	"github.com/mtlprog/darkbear/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// openDatabase connects to Postgres and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return pool, nil
}

// quoteService builds the quote service with every configured provider.
// CoinGecko prices in USD and is converted at the flat FX rate; Gemini is
// asked for reporting-currency prices directly.
func quoteService(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) *quote.Service {
	var coingecko quote.Provider = quote.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax)
	if cfg.ReportingCurrency != "USD" {
		coingecko = quote.Converting(coingecko, cfg.FXRate)
	}
	providers := []quote.Provider{coingecko}

	if cfg.GeminiAPIKey != "" {
		gemini, err := quote.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ReportingCurrency)
		if err != nil {
			slog.Error("Gemini provider disabled", "error", err)
		} else {
			providers = append(providers, gemini)
		}
	} else {
		slog.Warn("GEMINI_API_KEY not set, stocks will not be priced")
	}

	return quote.NewService(quote.NewPgRepository(pool), classify.Default(), cfg.QuoteCacheTTL, providers...)
}

func serveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API with quote and snapshot workers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "HTTP port", Value: cfg.HTTPPort},
		},
		Action: func(c *cli.Context) error {
			engine, err := engineFrom(c)
			if err != nil {
				return err
			}
			return serve(c.Context, cfg, engine, c.String("port"))
		},
	}
}

func serve(ctx context.Context, cfg config.Config, engine *portfolio.Engine, port string) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Create services
	journalSvc := journal.NewService(journal.NewPgRepository(pool), engine)
	quoteSvc := quoteService(ctx, cfg, pool)
	valuationSvc := valuation.NewService(journalSvc, quoteSvc, engine, cfg.QuoteStaleThreshold)

	// Snapshot service
	snapshotSvc := snapshot.NewService(valuationSvc, snapshot.NewPgRepository(pool))
	if _, err := snapshotSvc.EnsurePortfolio(ctx, cfg.PortfolioSlug, "Portfolio"); err != nil {
		return fmt.Errorf("ensuring portfolio: %w", err)
	}
	indicatorSvc := indicator.NewService(snapshotSvc)

	// Optional Google Sheets export after each snapshot
	var hook worker.AfterSnapshotHook
	if cfg.GoogleSheetsID != "" && cfg.GoogleCredentialsJSON != "" {
		writer, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			slog.Error("Google Sheets export disabled", "error", err)
		} else {
			hook = export.NewService(writer, indicatorSvc, cfg.PortfolioSlug)
			slog.Info("Google Sheets export enabled", "spreadsheet", cfg.GoogleSheetsID)
		}
	}

	// Start workers
	quoteWorker := worker.NewQuoteWorker(quoteSvc, journalSvc, cfg.Watchlist, cfg.QuoteWorkerInterval)
	go quoteWorker.Run(ctx)

	reportWorker := worker.NewReportWorker(snapshotSvc, cfg.PortfolioSlug, cfg.ReportWorkerInterval, hook)
	go reportWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, write endpoints are unprotected")
	}

	// Start HTTP server
	srv := api.NewServer(port, api.Services{
		Slug:      cfg.PortfolioSlug,
		Valuation: valuationSvc,
		Journal:   journalSvc,
		Quotes:    quoteSvc,
		Refresher: quoteWorker,
		Snapshots: snapshotSvc,
		Risk:      indicatorSvc,
		DB:        pool,
	}, cfg.AdminAPIKey)

	go func() {
		slog.Info("HTTP server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
	return nil
}

func quotesCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "quotes",
		Usage: "manage stored market quotes",
		Subcommands: []*cli.Command{
			{
				Name:  "refresh",
				Usage: "fetch quotes for journal and watchlist symbols once",
				Action: func(c *cli.Context) error {
					engine, err := engineFrom(c)
					if err != nil {
						return err
					}
					pool, err := openDatabase(c.Context, cfg)
					if err != nil {
						return err
					}
					defer pool.Close()

					quoteSvc := quoteService(c.Context, cfg, pool)
					journalSvc := journal.NewService(journal.NewPgRepository(pool), engine)
					w := worker.NewQuoteWorker(quoteSvc, journalSvc, cfg.Watchlist, cfg.QuoteWorkerInterval)
					if err := w.Tick(c.Context); err != nil {
						return fmt.Errorf("refreshing quotes: %w", err)
					}

					quotes, err := quoteSvc.Quotes(c.Context)
					if err != nil {
						return err
					}
					return printQuotes(c, quotes)
				},
			},
		},
	}
}
