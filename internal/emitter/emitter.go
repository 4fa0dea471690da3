// Package emitter turns normalized articles into index documents and writes
// them to a staging sink.
package emitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DeafMist/headline-pulse/internal/models"
	"github.com/DeafMist/headline-pulse/internal/processing"
)

// Sink receives a snapshot of documents.
type Sink interface {
	Emit(ctx context.Context, docs []models.Document) (int, error)
	Close() error
}

// FromArticles maps every article to its index document, preserving order.
func FromArticles(articles []models.Article) []models.Document {
	docs := make([]models.Document, 0, len(articles))
	for _, a := range articles {
		docs = append(docs, models.Document{
			ID:       a.ID,
			Contents: processing.NormalizeSpace(a.Title),
		})
	}
	return docs
}

func marshalDocument(doc models.Document) ([]byte, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal doc %s: %w", doc.ID, err)
	}
	return payload, nil
}
