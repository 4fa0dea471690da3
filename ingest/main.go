package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DeafMist/headline-pulse/internal/config"
	"github.com/DeafMist/headline-pulse/internal/corpus"
	"github.com/DeafMist/headline-pulse/internal/emitter"
	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
)

func main() {
	log := logger.New("ingest")
	cfg, err := config.LoadIngest()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sink, err := openSink(cfg, log)
	if err != nil {
		log.Error("open sink", slog.Any("err", err))
		os.Exit(1)
	}

	normalizer := corpus.New(corpus.Options{Start: cfg.Start, End: cfg.End}, log)
	runErr := run(ctx, log, normalizer, sink, cfg.DataPath)
	if err := sink.Close(); err != nil {
		log.Error("close sink", slog.Any("err", err))
		os.Exit(1)
	}
	if runErr != nil {
		log.Error("ingest failed", slog.Any("err", runErr))
		os.Exit(1)
	}
}

type loader interface {
	Load(path string) ([]models.Article, corpus.Stats, error)
}

func openSink(cfg *config.Ingest, log *slog.Logger) (emitter.Sink, error) {
	switch cfg.Sink {
	case "kafka":
		log.Info("publishing to kafka",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic),
		)
		return emitter.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, log), nil
	default:
		sink, err := emitter.NewDirSink(cfg.StagingDir)
		if err != nil {
			return nil, err
		}
		log.Info("writing staging dir", slog.String("path", sink.Path()))
		return sink, nil
	}
}

func run(ctx context.Context, log *slog.Logger, src loader, sink emitter.Sink, path string) error {
	articles, stats, err := src.Load(path)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	log.Info("corpus normalized",
		slog.String("path", path),
		slog.Int("rows", stats.Rows),
		slog.Int("kept", stats.Kept),
		slog.Int("missing_title", stats.MissingTitle),
		slog.Int("bad_date", stats.BadDate),
		slog.Int("duplicate", stats.Duplicate),
		slog.Int("out_of_range", stats.OutOfRange),
		slog.Int("malformed", stats.Malformed),
	)

	docs := emitter.FromArticles(articles)
	written, err := sink.Emit(ctx, docs)
	if err != nil {
		return fmt.Errorf("emit documents: %w", err)
	}

	log.Info("documents emitted", slog.Int("count", written))
	return nil
}
