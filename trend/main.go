package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/DeafMist/headline-pulse/internal/align"
	"github.com/DeafMist/headline-pulse/internal/config"
	"github.com/DeafMist/headline-pulse/internal/corpus"
	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/market"
	"github.com/DeafMist/headline-pulse/internal/models"
	"github.com/DeafMist/headline-pulse/internal/report"
	"github.com/DeafMist/headline-pulse/internal/sentiment"
	"github.com/DeafMist/headline-pulse/internal/trend"
)

type options struct {
	Keywords []string `short:"w" long:"keyword" description:"Keyword to chart, repeatable (defaults to the catalog targets)"`
	Ticker   string   `short:"t" long:"ticker" description:"Ticker to overlay when exactly one keyword is given"`
	NoPrice  bool     `long:"no-price" description:"Only draw sentiment trend charts"`
}

type priceSource interface {
	MonthlyClose(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error)
}

func main() {
	log := logger.New("trend")

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Error("parse flags", slog.Any("err", err))
		os.Exit(1)
	}
	if opts == nil {
		return
	}

	cfg, err := config.LoadTrend()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Error("load catalog", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	normalizer := corpus.New(corpus.Options{Start: cfg.Start, End: cfg.End}, log)
	articles, _, err := normalizer.Load(cfg.DataPath)
	if err != nil {
		log.Error("load corpus", slog.Any("err", err))
		os.Exit(1)
	}

	a := &app{
		log:      log,
		articles: articles,
		scorer:   sentiment.NewVader(),
		renderer: report.NewRenderer(cfg.OutputDir, log),
		start:    cfg.Start,
		end:      cfg.End,
	}
	switch {
	case opts.NoPrice:
	case cfg.APIKey == "":
		log.Warn("EODHD_API_KEY not set, skipping price overlays")
	default:
		a.prices = market.NewClient(cfg.APIKey,
			market.WithBaseURL(cfg.BaseURL),
			market.WithRateLimit(cfg.RateLimit),
			market.WithLogger(log),
		)
	}

	targets := resolveTargets(opts, catalog)
	if failed := a.runAll(ctx, targets); failed > 0 {
		log.Warn("some keywords failed", slog.Int("failed", failed), slog.Int("total", len(targets)))
	}
}

func parseArgs(args []string) (*options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	if opts.Ticker != "" && len(opts.Keywords) != 1 {
		return nil, errors.New("--ticker needs exactly one --keyword")
	}
	return &opts, nil
}

// resolveTargets picks keywords from the flags, falling back to the catalog.
func resolveTargets(opts *options, catalog *config.Catalog) []config.Target {
	if len(opts.Keywords) == 0 {
		return catalog.Targets
	}

	targets := make([]config.Target, 0, len(opts.Keywords))
	for _, kw := range opts.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		ticker := opts.Ticker
		if ticker == "" {
			ticker, _ = catalog.TickerFor(kw)
		}
		targets = append(targets, config.Target{Keyword: kw, Ticker: ticker})
	}
	return targets
}

type app struct {
	log      *slog.Logger
	articles []models.Article
	scorer   sentiment.Scorer
	renderer *report.Renderer
	prices   priceSource
	start    time.Time
	end      time.Time
}

// runAll charts each target independently and returns how many failed.
func (a *app) runAll(ctx context.Context, targets []config.Target) int {
	failed := 0
	for i, t := range targets {
		if ctx.Err() != nil {
			a.log.Info("interrupted", slog.Int("remaining", len(targets)-i))
			return failed
		}
		if err := a.handle(ctx, t); err != nil {
			failed++
			a.log.Error("keyword failed", slog.String("keyword", t.Keyword), slog.Any("err", err))
		}
	}
	return failed
}

func (a *app) handle(ctx context.Context, t config.Target) error {
	buckets := trend.Keyword(a.articles, t.Keyword, a.scorer)
	if len(buckets) == 0 {
		return fmt.Errorf("no headlines mention %q: %w", t.Keyword, report.ErrNoData)
	}

	if _, err := a.renderer.Trend(t.Keyword, buckets); err != nil {
		return fmt.Errorf("render trend: %w", err)
	}
	a.log.Info("trend charted", slog.String("keyword", t.Keyword), slog.Int("months", len(buckets)))

	if a.prices == nil || t.Ticker == "" {
		return nil
	}

	prices, err := a.prices.MonthlyClose(ctx, t.Ticker, a.start, a.end)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}
	if len(prices) == 0 {
		a.log.Warn("no price data", slog.String("ticker", t.Ticker))
		return nil
	}

	rows := align.Align(buckets, prices)
	if _, err := a.renderer.Overlay(t.Keyword, t.Ticker, rows); err != nil {
		return fmt.Errorf("render overlay: %w", err)
	}
	return nil
}
