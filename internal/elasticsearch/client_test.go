package elasticsearch_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/headline-pulse/internal/elasticsearch"
	"github.com/DeafMist/headline-pulse/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	exists   bool
	created  map[string]any
	deleted  int
	bulkBody string
	docs     map[string]string
}

func newFakeES() *fakeES {
	return &fakeES{docs: map[string]string{}}
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodHead && path == "news":
		if f.exists {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodDelete && path == "news":
		f.deleted++
		f.exists = false
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case r.Method == http.MethodPut && path == "news":
		body := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = body
		f.exists = true
		_, _ = io.WriteString(w, `{"acknowledged":true,"index":"news"}`)
	case strings.HasSuffix(path, "_bulk"):
		data, _ := io.ReadAll(r.Body)
		f.bulkBody = string(data)
		f.writeBulkResponse(w)
	case strings.HasSuffix(path, "_search"):
		_, _ = io.WriteString(w, `{"hits":{"hits":[
			{"_id":"a","_score":3.5},
			{"_id":"b","_score":1.25}
		]}}`)
	case strings.HasPrefix(path, "news/_doc/"):
		id := strings.TrimPrefix(path, "news/_doc/")
		contents, ok := f.docs[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"_index":"news","_id":"`+id+`","found":false}`)
			return
		}
		payload, _ := json.Marshal(map[string]any{
			"_index":  "news",
			"_id":     id,
			"found":   true,
			"_source": map[string]string{"id": id, "contents": contents},
		})
		_, _ = w.Write(payload)
	case strings.HasSuffix(path, "_refresh"):
		_, _ = io.WriteString(w, `{"_shards":{"total":1,"successful":1,"failed":0}}`)
	case path == "_cluster/health":
		_, _ = io.WriteString(w, `{"status":"green"}`)
	case path == "" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func (f *fakeES) writeBulkResponse(w http.ResponseWriter) {
	type item struct {
		ID     string         `json:"_id"`
		Status int            `json:"status"`
		Error  map[string]any `json:"error,omitempty"`
	}
	var items []map[string]item
	sc := bufio.NewScanner(strings.NewReader(f.bulkBody))
	line := 0
	for sc.Scan() {
		line++
		if line%2 == 0 {
			var doc models.Document
			_ = json.Unmarshal(sc.Bytes(), &doc)
			if doc.Contents == "" {
				items = append(items, map[string]item{"index": {
					ID:     doc.ID,
					Status: http.StatusBadRequest,
					Error:  map[string]any{"type": "mapper_parsing_exception", "reason": "empty contents"},
				}})
				continue
			}
			f.docs[doc.ID] = doc.Contents
			items = append(items, map[string]item{"index": {ID: doc.ID, Status: http.StatusCreated}})
		}
	}
	payload, _ := json.Marshal(map[string]any{"errors": true, "items": items})
	_, _ = w.Write(payload)
}

func newClient(t *testing.T, f *fakeES) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.New(srv.URL, "news", nil)
	require.NoError(t, err)
	return client
}

func TestEnsureIndexCreatesBM25Index(t *testing.T) {
	f := newFakeES()
	client := newClient(t, f)

	created, err := client.EnsureIndex(context.Background(), elasticsearch.IndexSettings{
		Shards:          2,
		K1:              0.9,
		B:               0.4,
		StorePositions:  true,
		StoreDocvectors: true,
		StoreRaw:        true,
	}, false)
	require.NoError(t, err)
	require.True(t, created)

	settings := f.created["settings"].(map[string]any)["index"].(map[string]any)
	require.Equal(t, 2.0, settings["number_of_shards"])
	sim := settings["similarity"].(map[string]any)["default"].(map[string]any)
	require.Equal(t, "BM25", sim["type"])
	require.Equal(t, 0.9, sim["k1"])
	require.Equal(t, 0.4, sim["b"])

	mappings := f.created["mappings"].(map[string]any)
	require.Equal(t, true, mappings["_source"].(map[string]any)["enabled"])
	contents := mappings["properties"].(map[string]any)["contents"].(map[string]any)
	require.Equal(t, "positions", contents["index_options"])
	require.Equal(t, "with_positions_offsets", contents["term_vector"])

	created, err = client.EnsureIndex(context.Background(), elasticsearch.IndexSettings{K1: 0.9, B: 0.4}, false)
	require.NoError(t, err)
	require.False(t, created)
	require.Zero(t, f.deleted)
}

func TestEnsureIndexRecreate(t *testing.T) {
	f := newFakeES()
	f.exists = true
	client := newClient(t, f)

	created, err := client.EnsureIndex(context.Background(), elasticsearch.IndexSettings{K1: 1.2, B: 0.75}, true)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 1, f.deleted)

	mappings := f.created["mappings"].(map[string]any)
	require.Equal(t, false, mappings["_source"].(map[string]any)["enabled"])
	contents := mappings["properties"].(map[string]any)["contents"].(map[string]any)
	require.Equal(t, "freqs", contents["index_options"])
	_, hasVectors := contents["term_vector"]
	require.False(t, hasVectors)
}

func TestBulkIndexCountsItemFailures(t *testing.T) {
	f := newFakeES()
	client := newClient(t, f)

	res, err := client.BulkIndex(context.Background(), []models.Document{
		{ID: "a", Contents: "Bitcoin hits record high"},
		{ID: "b", Contents: ""},
		{ID: "c", Contents: "Ethereum upgrade ships"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Indexed)
	require.Equal(t, 1, res.Failed)
	require.Contains(t, res.FirstReason, "mapper_parsing_exception")

	lines := strings.Split(strings.TrimSpace(f.bulkBody), "\n")
	require.Len(t, lines, 6)
	require.JSONEq(t, `{"index":{"_index":"news","_id":"a"}}`, lines[0])
	require.JSONEq(t, `{"id":"a","contents":"Bitcoin hits record high"}`, lines[1])

	empty, err := client.BulkIndex(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, empty.Indexed)
}

func TestSearchAndFetch(t *testing.T) {
	f := newFakeES()
	f.docs["a"] = "Bitcoin rallies"
	client := newClient(t, f)

	hits, err := client.Search(context.Background(), "bitcoin", 2)
	require.NoError(t, err)
	require.Equal(t, []models.Hit{{DocID: "a", Score: 3.5}, {DocID: "b", Score: 1.25}}, hits)

	text, err := client.Fetch(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "Bitcoin rallies", text)

	_, err = client.Fetch(context.Background(), "b")
	require.True(t, errors.Is(err, elasticsearch.ErrNotFound))
}

func TestHealthAndRefresh(t *testing.T) {
	client := newClient(t, newFakeES())
	require.NoError(t, client.Health(context.Background()))
	require.NoError(t, client.Refresh(context.Background()))
	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, "news", client.Index())
}
