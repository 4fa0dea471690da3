package emitter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
)

// StagingFile is the file name DirSink writes into its directory.
const StagingFile = "documents.jsonl"

// DirSink writes documents as JSON lines into a staging directory.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Path is the full path of the staging file.
func (s *DirSink) Path() string {
	return filepath.Join(s.dir, StagingFile)
}

// Emit replaces the staging file with docs, one JSON object per line.
func (s *DirSink) Emit(ctx context.Context, docs []models.Document) (int, error) {
	tmp, err := os.CreateTemp(s.dir, StagingFile+".*")
	if err != nil {
		return 0, fmt.Errorf("create staging file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	written := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return written, err
		}
		if err := enc.Encode(doc); err != nil {
			tmp.Close()
			return written, fmt.Errorf("encode doc %s: %w", doc.ID, err)
		}
		written++
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return written, fmt.Errorf("flush staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return written, fmt.Errorf("close staging file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return written, fmt.Errorf("publish staging file: %w", err)
	}
	return written, nil
}

// Close is a no-op; Emit closes its file.
func (s *DirSink) Close() error {
	return nil
}

// StagingStats counts what ReadStaging saw.
type StagingStats struct {
	Files     int
	Lines     int
	Malformed int
}

// ReadStaging loads every *.jsonl and *.json file in dir in lexical order.
// Lines that do not decode to a document with an id are skipped and counted.
func ReadStaging(dir string, log *slog.Logger) ([]models.Document, StagingStats, error) {
	if log == nil {
		log = logger.Discard()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, StagingStats{}, fmt.Errorf("read staging dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jsonl" || ext == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var (
		docs  []models.Document
		stats StagingStats
	)
	for _, name := range names {
		if err := readStagingFile(filepath.Join(dir, name), log, &docs, &stats); err != nil {
			return nil, stats, err
		}
		stats.Files++
	}
	return docs, stats, nil
}

func readStagingFile(path string, log *slog.Logger, docs *[]models.Document, stats *StagingStats) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open staging file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		var doc models.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil || doc.ID == "" {
			stats.Malformed++
			log.Warn("skip malformed staging line",
				slog.String("file", filepath.Base(path)),
				slog.Int("line", lineNo),
			)
			continue
		}
		*docs = append(*docs, doc)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", filepath.Base(path), err)
	}
	return nil
}
