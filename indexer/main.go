package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/headline-pulse/internal/config"
	"github.com/DeafMist/headline-pulse/internal/elasticsearch"
	"github.com/DeafMist/headline-pulse/internal/emitter"
	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
)

type indexWriter interface {
	EnsureIndex(ctx context.Context, settings elasticsearch.IndexSettings, recreate bool) (bool, error)
	BulkIndex(ctx context.Context, docs []models.Document) (elasticsearch.BulkResult, error)
	Refresh(ctx context.Context) error
}

type buildReport struct {
	Created bool
	Batches int
	Indexed int
	Failed  int
}

func main() {
	log := logger.New("indexer")
	cfg, err := config.LoadIndexer()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	docs, stats, err := emitter.ReadStaging(cfg.StagingDir, log)
	if err != nil {
		log.Error("read staging", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("staging loaded",
		slog.String("dir", cfg.StagingDir),
		slog.Int("files", stats.Files),
		slog.Int("docs", len(docs)),
		slog.Int("malformed", stats.Malformed),
	)

	esClient, err := connect(ctx, log, cfg)
	if err != nil {
		log.Error("connect elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	report, err := build(ctx, log, esClient, cfg, docs)
	if err != nil {
		log.Error("build index", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("index built",
		slog.String("index", cfg.ElasticsearchIndex),
		slog.Bool("created", report.Created),
		slog.Int("batches", report.Batches),
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
	)
}

// connect retries until Elasticsearch answers a ping.
func connect(ctx context.Context, log *slog.Logger, cfg *config.Indexer) (*elasticsearch.Client, error) {
	maxRetries := 10
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Warn("failed to create elasticsearch client, retrying",
				slog.Any("err", err),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
			)
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			pingErr := esClient.Ping(pingCtx)
			cancel()
			if pingErr == nil {
				log.Info("connected to elasticsearch")
				return esClient, nil
			}
			log.Warn("elasticsearch ping failed, retrying",
				slog.Any("err", pingErr),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
				slog.Duration("retry_in", retryDelay),
			)
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		retryDelay *= 2
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}

	return nil, fmt.Errorf("elasticsearch unreachable after %d attempts", maxRetries)
}

// build creates the index and loads docs in sequential batches.
func build(ctx context.Context, log *slog.Logger, idx indexWriter, cfg *config.Indexer, docs []models.Document) (buildReport, error) {
	var report buildReport

	if !cfg.StoreRaw {
		log.Warn("raw source disabled, documents cannot be fetched for scoring")
	}

	created, err := idx.EnsureIndex(ctx, elasticsearch.IndexSettings{
		Shards:          cfg.Shards,
		K1:              cfg.K1,
		B:               cfg.B,
		StorePositions:  cfg.StorePositions,
		StoreDocvectors: cfg.StoreDocvectors,
		StoreRaw:        cfg.StoreRaw,
	}, cfg.Recreate)
	if err != nil {
		return report, fmt.Errorf("ensure index: %w", err)
	}
	report.Created = created

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(docs)
	}

	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))

		res, err := idx.BulkIndex(ctx, docs[start:end])
		if err != nil {
			return report, fmt.Errorf("bulk batch at %d: %w", start, err)
		}
		report.Batches++
		report.Indexed += res.Indexed
		report.Failed += res.Failed

		if res.Failed > 0 {
			log.Warn("bulk batch had failures",
				slog.Int("offset", start),
				slog.Int("failed", res.Failed),
				slog.String("first_reason", res.FirstReason),
			)
		}
		log.Debug("bulk batch indexed", slog.Int("offset", start), slog.Int("indexed", res.Indexed))
	}

	if err := idx.Refresh(ctx); err != nil {
		return report, fmt.Errorf("refresh: %w", err)
	}
	return report, nil
}
