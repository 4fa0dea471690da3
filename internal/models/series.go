package models

import (
	"fmt"
	"strconv"
	"time"
)

// Month is a calendar year-month key such as 2023-05.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month key of t using t's own calendar fields.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Before reports whether m sorts before other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText encodes the month as YYYY-MM.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Value is a float that may be missing.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) Value {
	return Value{V: v, Valid: true}
}

// MarshalJSON renders missing values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.V, 'g', -1, 64)), nil
}

// MonthlyBucket is the mean polarity of one month.
type MonthlyBucket struct {
	Month        Month   `json:"month"`
	MeanPolarity float64 `json:"mean_polarity"`
	Count        int     `json:"count"`
}

// PricePoint is the closing price of one month.
type PricePoint struct {
	Month Month   `json:"month"`
	Close float64 `json:"close"`
}

// AlignedRow joins sentiment and price for one month.
type AlignedRow struct {
	Month         Month `json:"month"`
	Sentiment     Value `json:"sentiment"`
	Close         Value `json:"close"`
	SentimentNorm Value `json:"sentiment_norm"`
	CloseNorm     Value `json:"close_norm"`
}
