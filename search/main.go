package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/DeafMist/headline-pulse/internal/config"
	"github.com/DeafMist/headline-pulse/internal/corpus"
	"github.com/DeafMist/headline-pulse/internal/elasticsearch"
	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
	"github.com/DeafMist/headline-pulse/internal/processing"
	"github.com/DeafMist/headline-pulse/internal/query"
	"github.com/DeafMist/headline-pulse/internal/report"
	"github.com/DeafMist/headline-pulse/internal/sentiment"
	"github.com/DeafMist/headline-pulse/internal/trend"
)

type options struct {
	Query   string `short:"q" long:"query" description:"Run a single query instead of prompting"`
	TopK    int    `short:"k" long:"top-k" description:"Hits per query (overrides SEARCH_TOP_K)"`
	Batch   bool   `long:"batch" description:"Run every query of the catalog"`
	NoTrend bool   `long:"no-trend" description:"Skip the per-query keyword trend chart"`
}

func main() {
	log := logger.New("search")

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Error("parse flags", slog.Any("err", err))
		os.Exit(1)
	}
	if opts == nil {
		return
	}

	cfg, err := config.LoadSearch()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	if opts.TopK > 0 {
		cfg.TopK = opts.TopK
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	var articles []models.Article
	if !opts.NoTrend {
		normalizer := corpus.New(corpus.Options{Start: cfg.Start, End: cfg.End}, log)
		articles, _, err = normalizer.Load(cfg.DataPath)
		if err != nil {
			log.Error("load corpus", slog.Any("err", err))
			os.Exit(1)
		}
	}

	scorer := sentiment.NewVader()
	a := &app{
		log:      log,
		runner:   query.NewRunner(esClient, esClient, scorer, log),
		renderer: report.NewRenderer(cfg.OutputDir, log),
		scorer:   scorer,
		articles: articles,
		topK:     cfg.TopK,
		bins:     cfg.HistBins,
		trend:    !opts.NoTrend,
		out:      os.Stdout,
	}

	queries, err := pickQueries(opts, cfg.CatalogPath, os.Stdin, os.Stdout)
	if err != nil {
		log.Error("read queries", slog.Any("err", err))
		os.Exit(1)
	}

	if failed := a.runAll(ctx, queries); failed > 0 {
		log.Warn("some queries failed", slog.Int("failed", failed), slog.Int("total", len(queries)))
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
	if opts.Batch && opts.Query != "" {
		return nil, errors.New("--batch and --query are mutually exclusive")
	}
	return &opts, nil
}

// pickQueries resolves the query list: the catalog in batch mode, the -q
// flag, or one line read from in.
func pickQueries(opts *options, catalogPath string, in io.Reader, prompt io.Writer) ([]string, error) {
	switch {
	case opts.Batch:
		catalog, err := config.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
		return catalog.Queries, nil
	case strings.TrimSpace(opts.Query) != "":
		return []string{opts.Query}, nil
	}

	fmt.Fprint(prompt, "Enter your search query: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, query.ErrEmptyQuery
	}
	return []string{line}, nil
}

type app struct {
	log      *slog.Logger
	runner   *query.Runner
	renderer *report.Renderer
	scorer   sentiment.Scorer
	articles []models.Article
	topK     int
	bins     int
	trend    bool
	out      io.Writer

	// keywords whose trend chart was already written in this run
	charted map[string]bool
}

// runAll handles queries one after another and returns how many failed.
func (a *app) runAll(ctx context.Context, queries []string) int {
	failed := 0
	for i, q := range queries {
		if ctx.Err() != nil {
			a.log.Info("interrupted", slog.Int("remaining", len(queries)-i))
			return failed
		}
		if err := a.handle(ctx, q); err != nil {
			failed++
			a.log.Error("query failed", slog.String("query", q), slog.Any("err", err))
		}
	}
	return failed
}

func (a *app) handle(ctx context.Context, q string) error {
	outcome, err := a.runner.Run(ctx, q, a.topK)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nQuery: %s\n", outcome.Query)
	for i, r := range outcome.Results {
		if !r.OK() {
			fmt.Fprintf(a.out, "%2d. [%s] skipped: %v\n", i+1, r.Hit.DocID, r.Err)
			continue
		}
		fmt.Fprintf(a.out, "%2d. %.3f  polarity %+.3f  %s\n",
			i+1, r.Hit.Score, r.Polarity, processing.Truncate(r.Hit.Text, 100))
	}

	polarities := outcome.Polarities()
	if len(polarities) == 0 {
		return fmt.Errorf("no retrievable hits for %q: %w", q, query.ErrEmptyResult)
	}

	summary := query.Summarize(polarities)
	fmt.Fprintf(a.out, "Average sentiment: %.3f\n", summary.Mean)
	fmt.Fprintf(a.out, "Positive: %d, Negative: %d, Neutral: %d\n", summary.Positive, summary.Negative, summary.Neutral)

	if _, err := a.renderer.Histogram(q, polarities, a.bins); err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}

	if !a.trend {
		return nil
	}

	keyword := strings.ToLower(processing.MainKeyword(q))
	if a.charted[keyword] {
		return nil
	}
	buckets := trend.Keyword(a.articles, keyword, a.scorer)
	if len(buckets) == 0 {
		a.log.Warn("no headlines for trend keyword", slog.String("keyword", keyword))
		return nil
	}
	if _, err := a.renderer.Trend(keyword, buckets); err != nil {
		return fmt.Errorf("render trend: %w", err)
	}
	if a.charted == nil {
		a.charted = map[string]bool{}
	}
	a.charted[keyword] = true
	return nil
}
