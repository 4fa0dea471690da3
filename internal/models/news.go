package models

import "time"

// Article is one normalized row of the headline dataset.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}

// Document is the record handed to the search index.
type Document struct {
	ID       string `json:"id"`
	Contents string `json:"contents"`
}

// Hit is a single ranked search result.
type Hit struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	Text  string  `json:"text,omitempty"`
}

// Observation is a polarity score attached to a point in time.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Polarity  float64   `json:"polarity"`
	Text      string    `json:"text,omitempty"`
}
