package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// Client is an EODHD API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log:     logger.Discard(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{Err: err}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	c.log.Debug("EODHD API request", slog.String("url", c.baseURL+path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// GetEOD retrieves daily bars for symbol between from and to, ascending.
// Symbol format: TICKER.EXCHANGE (e.g. "BTC-USD.CC").
func (c *Client) GetEOD(ctx context.Context, symbol string, from, to time.Time) ([]EODBar, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	if !from.IsZero() {
		params.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		params.Set("to", to.Format("2006-01-02"))
	}

	var bars []EODBar
	if err := c.get(ctx, "/eod/"+url.PathEscape(symbol), params, &bars); err != nil {
		return nil, err
	}

	out := bars[:0]
	for _, b := range bars {
		t, err := time.Parse("2006-01-02", b.DateStr)
		if err != nil {
			c.log.Warn("skip bar with bad date", slog.String("symbol", symbol), slog.String("date", b.DateStr))
			continue
		}
		b.Date = t
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// MonthlyClose returns the last daily close of every calendar month in range.
func (c *Client) MonthlyClose(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error) {
	bars, err := c.GetEOD(ctx, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly close %s: %w", ticker, err)
	}
	return LastCloseByMonth(bars), nil
}

// LastCloseByMonth reduces ascending daily bars to one closing price per month.
func LastCloseByMonth(bars []EODBar) []models.PricePoint {
	var out []models.PricePoint
	for _, b := range bars {
		m := models.MonthOf(b.Date)
		if n := len(out); n > 0 && out[n-1].Month == m {
			out[n-1].Close = b.Close
			continue
		}
		out = append(out, models.PricePoint{Month: m, Close: b.Close})
	}
	return out
}
