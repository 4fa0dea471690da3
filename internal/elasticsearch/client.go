package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
)

// ErrNotFound is returned by Fetch when the document does not exist.
var ErrNotFound = errors.New("document not found")

// Client wraps go-elasticsearch with helpers tailored to this project.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// IndexSettings control how the headline index is created.
type IndexSettings struct {
	Shards          int
	K1              float64
	B               float64
	StorePositions  bool
	StoreDocvectors bool
	StoreRaw        bool
}

// BulkResult summarizes one bulk request.
type BulkResult struct {
	Indexed     int
	Failed      int
	FirstReason string
}

// New instantiates the Elasticsearch client.
func New(addr, index string, log *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Client{es: es, index: index, log: log}, nil
}

// Index is the name of the index the client works on.
func (c *Client) Index() string {
	return c.index
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Health checks cluster health.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}

// EnsureIndex creates the index with BM25 similarity unless it exists.
// With recreate an existing index is dropped first. It reports whether the
// index was created.
func (c *Client) EnsureIndex(ctx context.Context, settings IndexSettings, recreate bool) (bool, error) {
	exists, err := c.indexExists(ctx)
	if err != nil {
		return false, err
	}

	if exists && recreate {
		if err := c.deleteIndex(ctx); err != nil {
			return false, err
		}
		c.log.Info("dropped existing index", slog.String("index", c.index))
		exists = false
	}
	if exists {
		return false, nil
	}

	payload, err := json.Marshal(indexBody(settings))
	if err != nil {
		return false, fmt.Errorf("marshal index body: %w", err)
	}

	res, err := c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return false, fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return false, fmt.Errorf("create index failed: %s", strings.TrimSpace(string(body)))
	}

	return true, nil
}

func indexBody(s IndexSettings) map[string]any {
	shards := s.Shards
	if shards <= 0 {
		shards = 1
	}

	contents := map[string]any{"type": "text"}
	if s.StorePositions {
		contents["index_options"] = "positions"
	} else {
		contents["index_options"] = "freqs"
	}
	if s.StoreDocvectors {
		contents["term_vector"] = "with_positions_offsets"
	}

	return map[string]any{
		"settings": map[string]any{
			"index": map[string]any{
				"number_of_shards": shards,
				"similarity": map[string]any{
					"default": map[string]any{
						"type": "BM25",
						"k1":   s.K1,
						"b":    s.B,
					},
				},
			},
		},
		"mappings": map[string]any{
			"_source": map[string]any{"enabled": s.StoreRaw},
			"properties": map[string]any{
				"id":       map[string]any{"type": "keyword"},
				"contents": contents,
			},
		},
	}
}

func (c *Client) indexExists(ctx context.Context) (bool, error) {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check index failed: %s", res.Status())
	}
}

func (c *Client) deleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete index failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

// BulkIndex writes docs with a single _bulk request. Item failures are
// counted, not returned as an error.
func (c *Client) BulkIndex(ctx context.Context, docs []models.Document) (BulkResult, error) {
	if len(docs) == 0 {
		return BulkResult{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]any{"index": map[string]any{"_index": c.index, "_id": doc.ID}}
		if err := enc.Encode(meta); err != nil {
			return BulkResult{}, fmt.Errorf("marshal bulk meta: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return BulkResult{}, fmt.Errorf("marshal doc %s: %w", doc.ID, err)
		}
	}

	res, err := c.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(c.index),
	)
	if err != nil {
		return BulkResult{}, fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return BulkResult{}, fmt.Errorf("bulk index failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return BulkResult{}, fmt.Errorf("decode bulk response: %w", err)
	}

	var out BulkResult
	for _, item := range parsed.Items {
		for _, r := range item {
			if r.Error != nil || r.Status >= http.StatusBadRequest {
				out.Failed++
				if out.FirstReason == "" && r.Error != nil {
					out.FirstReason = fmt.Sprintf("%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
				}
				continue
			}
			out.Indexed++
		}
	}
	return out, nil
}

// Refresh makes recently indexed documents searchable.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return fmt.Errorf("refresh index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("refresh index failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

// Search returns up to k hits for query ordered by descending BM25 score.
// Hit text is left empty; use Fetch to load it.
func (c *Client) Search(ctx context.Context, query string, k int) ([]models.Hit, error) {
	if k <= 0 {
		k = 10
	}

	body := map[string]any{
		"size":    k,
		"_source": false,
		"query": map[string]any{
			"match": map[string]any{
				"contents": map[string]any{"query": query},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]models.Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, models.Hit{DocID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Fetch loads the stored contents of one document.
func (c *Client) Fetch(ctx context.Context, docID string) (string, error) {
	res, err := c.es.Get(c.index, docID, c.es.Get.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("get doc: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("get doc failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Found  bool             `json:"found"`
		Source *models.Document `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode doc: %w", err)
	}
	if !parsed.Found {
		return "", ErrNotFound
	}
	if parsed.Source == nil {
		return "", errors.New("document has no stored source")
	}
	return parsed.Source.Contents, nil
}
