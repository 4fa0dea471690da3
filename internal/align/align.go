// Package align joins a monthly sentiment series with a monthly price series
// so the two can be drawn on one normalized scale.
package align

import (
	"sort"

	"github.com/DeafMist/headline-pulse/internal/models"
)

// Degenerate is the normalized value of a side without spread.
const Degenerate = 0.5

// Align outer-joins buckets and prices on month, forward-fills each side and
// min-max normalizes each side onto [0, 1]. Both inputs must be sorted with
// unique months. Rows before a side's first value keep that side missing,
// except in the normalized column of a side without spread.
func Align(buckets []models.MonthlyBucket, prices []models.PricePoint) []models.AlignedRow {
	sent := make(map[models.Month]float64, len(buckets))
	for _, b := range buckets {
		sent[b.Month] = b.MeanPolarity
	}
	closes := make(map[models.Month]float64, len(prices))
	for _, p := range prices {
		closes[p.Month] = p.Close
	}

	months := make([]models.Month, 0, len(sent)+len(closes))
	for m := range sent {
		months = append(months, m)
	}
	for m := range closes {
		if _, dup := sent[m]; !dup {
			months = append(months, m)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	sv := make([]models.Value, len(months))
	cv := make([]models.Value, len(months))
	for i, m := range months {
		if v, ok := sent[m]; ok {
			sv[i] = models.Some(v)
		}
		if v, ok := closes[m]; ok {
			cv[i] = models.Some(v)
		}
	}

	sv = ForwardFill(sv)
	cv = ForwardFill(cv)
	sn := MinMax(sv)
	cn := MinMax(cv)

	rows := make([]models.AlignedRow, len(months))
	for i, m := range months {
		rows[i] = models.AlignedRow{
			Month:         m,
			Sentiment:     sv[i],
			Close:         cv[i],
			SentimentNorm: sn[i],
			CloseNorm:     cn[i],
		}
	}
	return rows
}

// ForwardFill replaces each missing value with the latest earlier present
// value. Leading missing values stay missing.
func ForwardFill(values []models.Value) []models.Value {
	out := make([]models.Value, len(values))
	var last models.Value
	for i, v := range values {
		if v.Valid {
			last = v
			out[i] = v
			continue
		}
		out[i] = last
	}
	return out
}

// MinMax rescales the present values onto [0, 1]. Missing values stay
// missing unless the present values have no spread (or none are present),
// in which case every position becomes Degenerate.
func MinMax(values []models.Value) []models.Value {
	out := make([]models.Value, len(values))

	var lo, hi float64
	seen := false
	for _, v := range values {
		if !v.Valid {
			continue
		}
		if !seen || v.V < lo {
			lo = v.V
		}
		if !seen || v.V > hi {
			hi = v.V
		}
		seen = true
	}

	span := hi - lo
	if !seen || span == 0 {
		for i := range out {
			out[i] = models.Some(Degenerate)
		}
		return out
	}

	for i, v := range values {
		if !v.Valid {
			continue
		}
		out[i] = models.Some((v.V - lo) / span)
	}
	return out
}
