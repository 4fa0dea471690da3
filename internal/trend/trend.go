// Package trend turns scored headlines into a monthly sentiment series.
package trend

import (
	"sort"

	"github.com/DeafMist/headline-pulse/internal/models"
	"github.com/DeafMist/headline-pulse/internal/processing"
	"github.com/DeafMist/headline-pulse/internal/sentiment"
)

// FilterKeyword keeps the articles whose title contains keyword, ignoring case.
func FilterKeyword(articles []models.Article, keyword string) []models.Article {
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if processing.ContainsKeyword(a.Title, keyword) {
			out = append(out, a)
		}
	}
	return out
}

// Score attaches a polarity to each article title.
func Score(articles []models.Article, scorer sentiment.Scorer) []models.Observation {
	out := make([]models.Observation, 0, len(articles))
	for _, a := range articles {
		out = append(out, models.Observation{
			Timestamp: a.PublishedAt,
			Polarity:  scorer.Polarity(a.Title),
			Text:      a.Title,
		})
	}
	return out
}

// Monthly groups observations by calendar month and averages their polarity.
// Buckets come back in ascending month order; an empty input yields an empty
// series.
func Monthly(observations []models.Observation) []models.MonthlyBucket {
	type acc struct {
		sum   float64
		count int
	}

	groups := make(map[models.Month]*acc)
	for _, o := range observations {
		key := models.MonthOf(o.Timestamp)
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
		}
		g.sum += o.Polarity
		g.count++
	}

	buckets := make([]models.MonthlyBucket, 0, len(groups))
	for month, g := range groups {
		buckets = append(buckets, models.MonthlyBucket{
			Month:        month,
			MeanPolarity: g.sum / float64(g.count),
			Count:        g.count,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month.Before(buckets[j].Month)
	})
	return buckets
}

// Keyword runs filter, score and monthly aggregation for one keyword.
func Keyword(articles []models.Article, keyword string, scorer sentiment.Scorer) []models.MonthlyBucket {
	return Monthly(Score(FilterKeyword(articles, keyword), scorer))
}
