package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/darkbear/internal/config"
	"github.com/mtlprog/darkbear/internal/portfolio"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	setupLogger(cfg)

	if err := newApp(cfg).RunContext(ctx, os.Args); err != nil {
		log.Fatalf("darkbear: %v", err)
	}
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newApp(cfg config.Config) *cli.App {
	return &cli.App{
		Name:  "darkbear",
		Usage: "personal portfolio tracker for stocks, gold and crypto",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sell-policy",
				Usage: "how to treat sells larger than the holding: ignore, clamp or reject",
				Value: cfg.SellPolicy,
			},
			&cli.StringFlag{
				Name:  "currency",
				Usage: "reporting currency used for display",
				Value: cfg.ReportingCurrency,
			},
			&cli.BoolFlag{
				Name:  "private",
				Usage: "hide absolute amounts in output",
			},
		},
		Commands: []*cli.Command{
			serveCommand(cfg),
			positionsCommand(),
			statsCommand(),
			exportCommand(),
			quotesCommand(cfg),
			txCommand(),
		},
	}
}

// engineFrom builds the position engine for the --sell-policy flag.
func engineFrom(c *cli.Context) (*portfolio.Engine, error) {
	policy, err := portfolio.ParseSellPolicy(c.String("sell-policy"))
	if err != nil {
		return nil, err
	}
	return portfolio.New(portfolio.WithSellPolicy(policy)), nil
}
