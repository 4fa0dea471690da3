package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/headline-pulse/internal/config"
	"github.com/DeafMist/headline-pulse/internal/models"
	"github.com/DeafMist/headline-pulse/internal/query"
	"github.com/DeafMist/headline-pulse/internal/sentiment"
)

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }

type stubIndex struct{}

func (stubIndex) Search(_ context.Context, q string, k int) ([]models.Hit, error) {
	switch q {
	case "down":
		return nil, errors.New("connection refused")
	case "bitcoin":
		hits := []models.Hit{{DocID: "1", Score: 2.5}, {DocID: "gone", Score: 1.5}}
		return hits[:min(k, len(hits))], nil
	}
	return nil, nil
}

func (stubIndex) Fetch(_ context.Context, id string) (string, error) {
	if id == "1" {
		return "Bitcoin rally is great", nil
	}
	return "", errors.New("not found")
}

type stubPrices struct {
	from, to time.Time
}

func (s *stubPrices) MonthlyClose(_ context.Context, _ string, from, to time.Time) ([]models.PricePoint, error) {
	s.from, s.to = from, to
	return []models.PricePoint{
		{Month: models.Month{Year: 2023, Month: time.January}, Close: 100},
		{Month: models.Month{Year: 2023, Month: time.February}, Close: 110},
		{Month: models.Month{Year: 2023, Month: time.March}, Close: 90},
	}, nil
}

func newTestServer(prices priceSource, health error) *server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	scorer := sentiment.NewVader()
	jan := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	return &server{
		log:    log,
		cfg:    &config.API{DefaultK: 10, MaxK: 1},
		es:     stubHealth{err: health},
		runner: query.NewRunner(stubIndex{}, stubIndex{}, scorer, log),
		scorer: scorer,
		prices: prices,
		articles: []models.Article{
			{Title: "Bitcoin surges", PublishedAt: jan},
			{Title: "Ethereum falls", PublishedAt: jan},
			{Title: "bitcoin crash", PublishedAt: jan.AddDate(0, 2, 0)},
		},
		catalog: config.DefaultCatalog(),
	}
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, newTestServer(nil, nil).routes(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])

	rec, _ = get(t, newTestServer(nil, errors.New("red")).routes(), "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearch(t *testing.T) {
	h := newTestServer(nil, nil).routes()

	rec, body := get(t, h, "/search?q=bitcoin&k=5")
	require.Equal(t, http.StatusOK, rec.Code)
	results := body["results"].([]any)
	require.Len(t, results, 1, "k is clamped to MaxK")
	first := results[0].(map[string]any)
	require.Equal(t, "1", first["doc_id"])
	require.Greater(t, first["polarity"].(float64), 0.0)

	rec, _ = get(t, h, "/search?q=%20")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = get(t, h, "/search?q=nothing")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, body["results"])

	rec, _ = get(t, h, "/search?q=down")
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearchReportsRetrievalFailures(t *testing.T) {
	s := newTestServer(nil, nil)
	s.cfg.MaxK = 10

	_, body := get(t, s.routes(), "/search?q=bitcoin")
	results := body["results"].([]any)
	require.Len(t, results, 2)
	failed := results[1].(map[string]any)
	require.Equal(t, "gone", failed["doc_id"])
	require.NotEmpty(t, failed["error"])
	_, hasPolarity := failed["polarity"]
	require.False(t, hasPolarity)

	summary := body["summary"].(map[string]any)
	require.Equal(t, 1.0, summary["count"])
}

func TestTrend(t *testing.T) {
	h := newTestServer(nil, nil).routes()

	rec, body := get(t, h, "/trend?keyword=BITCOIN")
	require.Equal(t, http.StatusOK, rec.Code)
	buckets := body["buckets"].([]any)
	require.Len(t, buckets, 2)
	require.Equal(t, "2023-01", buckets[0].(map[string]any)["month"])

	rec, body = get(t, h, "/trend?keyword=solana")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, body["buckets"])

	rec, _ = get(t, h, "/trend")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverlay(t *testing.T) {
	prices := &stubPrices{}
	h := newTestServer(prices, nil).routes()

	rec, body := get(t, h, "/overlay?keyword=bitcoin")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "BTC-USD.CC", body["ticker"])
	rows := body["rows"].([]any)
	require.Len(t, rows, 3)
	feb := rows[1].(map[string]any)
	require.Equal(t, "2023-02", feb["month"])
	require.Equal(t, 1.0, feb["close_norm"])

	require.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), prices.from)
	require.Equal(t, time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), prices.to)

	rec, _ = get(t, h, "/overlay?keyword=solana")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, h, "/overlay?keyword=solana&ticker=SOL-USD.CC")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, newTestServer(nil, nil).routes(), "/overlay?keyword=bitcoin")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClampInt(t *testing.T) {
	require.Equal(t, 10, clampInt("", 10, 100))
	require.Equal(t, 10, clampInt("abc", 10, 100))
	require.Equal(t, 10, clampInt("-3", 10, 100))
	require.Equal(t, 100, clampInt("500", 10, 100))
	require.Equal(t, 42, clampInt("42", 10, 100))
}
