// Package sentiment scores text polarity with the VADER lexicon.
package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
)

// Scorer maps text to a polarity in [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

// Vader scores text with the VADER compound score. It is safe for concurrent
// use.
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader loads the VADER lexicon.
func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns the compound score of text, or 0 for blank text.
func (v *Vader) Polarity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return clamp(v.analyzer.PolarityScores(text).Compound)
}

func clamp(p float64) float64 {
	switch {
	case p > 1:
		return 1
	case p < -1:
		return -1
	default:
		return p
	}
}
