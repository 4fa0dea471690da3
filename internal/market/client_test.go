package market_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DeafMist/headline-pulse/internal/market"
	"github.com/stretchr/testify/require"
)

func TestMonthlyClose(t *testing.T) {
	var gotPath, gotToken, gotFrom, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("api_token")
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2023-01-02","close":100},
			{"date":"2023-01-31","close":105},
			{"date":"2023-02-15","close":110},
			{"date":"bogus","close":1},
			{"date":"2023-03-31","close":90}
		]`))
	}))
	defer srv.Close()

	client := market.NewClient("key", market.WithBaseURL(srv.URL+"/"), market.WithRateLimit(100))
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)

	points, err := client.MonthlyClose(context.Background(), "BTC-USD.CC", from, to)
	require.NoError(t, err)

	require.Equal(t, "/eod/BTC-USD.CC", gotPath)
	require.Equal(t, "key", gotToken)
	require.Equal(t, "2023-01-01", gotFrom)
	require.Equal(t, "2023-03-31", gotTo)

	require.Len(t, points, 3)
	require.Equal(t, "2023-01", points[0].Month.String())
	require.Equal(t, 105.0, points[0].Close)
	require.Equal(t, "2023-02", points[1].Month.String())
	require.Equal(t, 110.0, points[1].Close)
	require.Equal(t, "2023-03", points[2].Month.String())
	require.Equal(t, 90.0, points[2].Close)
}

func TestMonthlyCloseAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := market.NewClient("bad", market.WithBaseURL(srv.URL))
	_, err := client.MonthlyClose(context.Background(), "ETH-USD.CC", time.Time{}, time.Time{})
	require.Error(t, err)

	var apiErr *market.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "/eod/ETH-USD.CC", apiErr.Endpoint)
	require.Contains(t, apiErr.Message, "invalid api token")
}

func TestGetEODCanceled(t *testing.T) {
	client := market.NewClient("key", market.WithBaseURL("http://127.0.0.1:1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetEOD(ctx, "BTC-USD.CC", time.Time{}, time.Time{})
	require.Error(t, err)
}

func TestLastCloseByMonth(t *testing.T) {
	require.Empty(t, market.LastCloseByMonth(nil))

	bars := []market.EODBar{
		{Date: time.Date(2022, 12, 30, 0, 0, 0, 0, time.UTC), Close: 1},
		{Date: time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), Close: 2},
		{Date: time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC), Close: 3},
	}
	points := market.LastCloseByMonth(bars)
	require.Len(t, points, 2)
	require.Equal(t, 1.0, points[0].Close)
	require.Equal(t, 3.0, points[1].Close)
}
