// Package market fetches asset prices from the EODHD end-of-day API.
package market

import (
	"fmt"
	"time"
)

// EODBar is one day of end-of-day price data.
type EODBar struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        float64   `json:"volume"`
}

// APIError represents a non-200 answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError is returned when the local limiter gives up waiting.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("EODHD rate limit wait: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}
