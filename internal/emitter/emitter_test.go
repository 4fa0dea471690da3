package emitter_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/headline-pulse/internal/emitter"
	"github.com/DeafMist/headline-pulse/internal/models"
)

func TestFromArticles(t *testing.T) {
	ts := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	docs := emitter.FromArticles([]models.Article{
		{ID: "1", Title: "Bitcoin  rallies\tagain", PublishedAt: ts},
		{ID: "2", Title: "Ether dips", PublishedAt: ts},
	})
	require.Equal(t, []models.Document{
		{ID: "1", Contents: "Bitcoin rallies again"},
		{ID: "2", Contents: "Ether dips"},
	}, docs)
	require.Empty(t, emitter.FromArticles(nil))
}

func TestDirSinkRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")
	sink, err := emitter.NewDirSink(dir)
	require.NoError(t, err)
	defer sink.Close()

	docs := []models.Document{
		{ID: "a", Contents: "Bitcoin hits record"},
		{ID: "b", Contents: "Ethereum merge done"},
	}
	n, err := sink.Emit(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"id":"a","contents":"Bitcoin hits record"}`, lines[0])

	got, stats, err := emitter.ReadStaging(dir, nil)
	require.NoError(t, err)
	require.Equal(t, docs, got)
	require.Equal(t, 1, stats.Files)
	require.Zero(t, stats.Malformed)

	// a second emit replaces the snapshot
	_, err = sink.Emit(context.Background(), docs[:1])
	require.NoError(t, err)
	got, _, err = emitter.ReadStaging(dir, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestReadStagingSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jsonl"),
		[]byte(`{"id":"3","contents":"third"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"),
		[]byte(`{"id":"1","contents":"first"}`+"\n\n"+`{broken`+"\n"+`{"contents":"no id"}`+"\n"+`{"id":"2","contents":"second"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	docs, stats, err := emitter.ReadStaging(dir, nil)
	require.NoError(t, err)

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	require.Equal(t, []string{"1", "2", "3"}, ids)
	require.Equal(t, emitter.StagingStats{Files: 2, Lines: 5, Malformed: 2}, stats)
}

func TestReadStagingMissingDir(t *testing.T) {
	_, _, err := emitter.ReadStaging(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
}

type stubWriter struct {
	batches [][]kafka.Message
	failAt  int
	closed  bool
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.failAt > 0 && len(s.batches)+1 == s.failAt {
		return errors.New("broker unavailable")
	}
	s.batches = append(s.batches, msgs)
	return nil
}

func (s *stubWriter) Close() error {
	s.closed = true
	return nil
}

func TestKafkaSinkBatches(t *testing.T) {
	w := &stubWriter{}
	sink := emitter.NewKafkaSinkWithWriter(w, "news_documents", 2, nil)

	docs := []models.Document{{ID: "a", Contents: "x"}, {ID: "b", Contents: "y"}, {ID: "c", Contents: "z"}}
	n, err := sink.Emit(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Len(t, w.batches, 2)
	require.Len(t, w.batches[1], 1)

	msg := w.batches[0][1]
	require.Equal(t, "b", string(msg.Key))
	var decoded models.Document
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, docs[1], decoded)

	require.NoError(t, sink.Close())
	require.True(t, w.closed)
}

func TestKafkaSinkStopsOnFailure(t *testing.T) {
	w := &stubWriter{failAt: 2}
	sink := emitter.NewKafkaSinkWithWriter(w, "news_documents", 1, nil)

	n, err := sink.Emit(context.Background(), []models.Document{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "news_documents")
	require.Equal(t, 1, n)
}
