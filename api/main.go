package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/headline-pulse/internal/align"
	"github.com/DeafMist/headline-pulse/internal/config"
	"github.com/DeafMist/headline-pulse/internal/corpus"
	"github.com/DeafMist/headline-pulse/internal/elasticsearch"
	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/market"
	"github.com/DeafMist/headline-pulse/internal/models"
	"github.com/DeafMist/headline-pulse/internal/query"
	"github.com/DeafMist/headline-pulse/internal/sentiment"
	"github.com/DeafMist/headline-pulse/internal/trend"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

type priceSource interface {
	MonthlyClose(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error)
}

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Error("load catalog", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	articles, stats, err := corpus.New(corpus.Options{Start: cfg.Start, End: cfg.End}, log).Load(cfg.DataPath)
	if err != nil {
		log.Error("load corpus", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("corpus loaded", slog.Int("articles", stats.Kept))

	scorer := sentiment.NewVader()
	srv := &server{
		log:      log,
		cfg:      cfg,
		es:       esClient,
		runner:   query.NewRunner(esClient, esClient, scorer, log),
		scorer:   scorer,
		articles: articles,
		catalog:  catalog,
	}
	if cfg.APIKey != "" {
		srv.prices = market.NewClient(cfg.APIKey,
			market.WithBaseURL(cfg.BaseURL),
			market.WithRateLimit(cfg.RateLimit),
			market.WithLogger(log),
		)
	} else {
		log.Warn("EODHD_API_KEY not set, /overlay disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log      *slog.Logger
	cfg      *config.API
	es       healthChecker
	runner   *query.Runner
	scorer   sentiment.Scorer
	prices   priceSource
	articles []models.Article
	catalog  *config.Catalog
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleSearch)
	r.Get("/trend", s.handleTrend)
	r.Get("/overlay", s.handleOverlay)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchItem struct {
	DocID    string   `json:"doc_id"`
	Score    float64  `json:"score"`
	Text     string   `json:"text,omitempty"`
	Polarity *float64 `json:"polarity,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type searchResponse struct {
	Query   string        `json:"query"`
	Summary query.Summary `json:"summary"`
	Results []searchItem  `json:"results"`
}

type trendResponse struct {
	Keyword string                 `json:"keyword"`
	Buckets []models.MonthlyBucket `json:"buckets"`
}

type overlayResponse struct {
	Keyword string              `json:"keyword"`
	Ticker  string              `json:"ticker"`
	Rows    []models.AlignedRow `json:"rows"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.es.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	k := clampInt(r.URL.Query().Get("k"), s.cfg.DefaultK, s.cfg.MaxK)

	outcome, err := s.runner.Run(ctx, q, k)
	switch {
	case errors.Is(err, query.ErrEmptyQuery):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query parameter q"})
		return
	case errors.Is(err, query.ErrEmptyResult):
		writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: []searchItem{}})
		return
	case err != nil:
		s.log.Error("search failed", slog.String("query", q), slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	items := make([]searchItem, 0, len(outcome.Results))
	for _, res := range outcome.Results {
		item := searchItem{DocID: res.Hit.DocID, Score: res.Hit.Score, Text: res.Hit.Text}
		if res.OK() {
			p := res.Polarity
			item.Polarity = &p
		} else {
			item.Error = res.Err.Error()
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:   outcome.Query,
		Summary: query.Summarize(outcome.Polarities()),
		Results: items,
	})
}

func (s *server) handleTrend(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query parameter keyword"})
		return
	}

	buckets := trend.Keyword(s.articles, keyword, s.scorer)
	if buckets == nil {
		buckets = []models.MonthlyBucket{}
	}
	writeJSON(w, http.StatusOK, trendResponse{Keyword: keyword, Buckets: buckets})
}

func (s *server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if keyword == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query parameter keyword"})
		return
	}
	if ticker == "" {
		var ok bool
		if ticker, ok = s.catalog.TickerFor(keyword); !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no ticker configured for keyword, pass ticker"})
			return
		}
	}
	if s.prices == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "price data not configured"})
		return
	}

	buckets := trend.Keyword(s.articles, keyword, s.scorer)
	if len(buckets) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no headlines mention keyword"})
		return
	}

	from, to := s.cfg.Start, s.cfg.End
	if from.IsZero() {
		from = buckets[0].Month.Start()
	}
	if to.IsZero() {
		to = buckets[len(buckets)-1].Month.Start().AddDate(0, 1, -1)
	}

	prices, err := s.prices.MonthlyClose(ctx, ticker, from, to)
	if err != nil {
		s.log.Error("price fetch failed", slog.String("ticker", ticker), slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, overlayResponse{
		Keyword: keyword,
		Ticker:  ticker,
		Rows:    align.Align(buckets, prices),
	})
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
