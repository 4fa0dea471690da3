// Package corpus loads the headline dataset and normalizes it into articles.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/DeafMist/headline-pulse/internal/dedupe"
	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
	"github.com/DeafMist/headline-pulse/internal/processing"
)

// Column aliases in precedence order.
var (
	TitleAliases = []string{"title", "headline", "text", "summary", "content"}
	DateAliases  = []string{"date", "published", "time", "pubDate", "datetime"}
)

// ErrMissingColumn is matched by every MissingColumnError.
var ErrMissingColumn = errors.New("missing column")

// MissingColumnError reports that no alias for a required column is present.
type MissingColumnError struct {
	Role    string
	Aliases []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing %s column (tried %s)", e.Role, strings.Join(e.Aliases, ", "))
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Options narrows the loaded corpus. Zero bounds are open.
type Options struct {
	Start time.Time
	End   time.Time
}

// Stats counts what happened to each input row.
type Stats struct {
	Rows         int
	Kept         int
	Malformed    int
	MissingTitle int
	BadDate      int
	Duplicate    int
	OutOfRange   int
}

// Normalizer turns tabular rows into deduplicated articles.
type Normalizer struct {
	opts Options
	log  *slog.Logger
}

// New builds a Normalizer.
func New(opts Options, log *slog.Logger) *Normalizer {
	if log == nil {
		log = logger.Discard()
	}
	return &Normalizer{opts: opts, log: log}
}

// Load reads and normalizes the CSV file at path.
func (n *Normalizer) Load(path string) ([]models.Article, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	articles, stats, err := n.Read(f)
	if err != nil {
		return nil, stats, fmt.Errorf("load %s: %w", path, err)
	}
	return articles, stats, nil
}

// Read normalizes CSV rows from r. The first row is the header.
func (n *Normalizer) Read(r io.Reader) ([]models.Article, Stats, error) {
	var stats Stats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, errors.New("empty dataset")
		}
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	titleCol, err := resolveColumn(header, "title", TitleAliases)
	if err != nil {
		return nil, stats, err
	}
	dateCol, err := resolveColumn(header, "date", DateAliases)
	if err != nil {
		return nil, stats, err
	}

	seen := dedupe.NewSet(1024)
	var out []models.Article

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		stats.Rows++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Malformed++
				n.log.Debug("skip malformed row", slog.Int("line", perr.Line), slog.Any("err", err))
				continue
			}
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows, err)
		}
		if len(rec) != len(header) {
			stats.Malformed++
			n.log.Debug("skip malformed row", slog.Int("row", stats.Rows),
				slog.Int("fields", len(rec)), slog.Int("want", len(header)))
			continue
		}

		title := strings.TrimSpace(field(rec, titleCol))
		if title == "" {
			stats.MissingTitle++
			continue
		}

		ts, ok := ParseTimestamp(field(rec, dateCol))
		if !ok {
			stats.BadDate++
			continue
		}

		if !seen.MarkSeen(title) {
			stats.Duplicate++
			continue
		}

		if !n.inRange(ts) {
			stats.OutOfRange++
			continue
		}

		out = append(out, models.Article{
			ID:          processing.BuildDocumentID(title, ts),
			Title:       title,
			PublishedAt: ts,
		})
	}

	stats.Kept = len(out)
	n.log.Info("corpus normalized",
		slog.Int("rows", stats.Rows),
		slog.Int("kept", stats.Kept),
		slog.Int("distinct_titles", seen.Len()),
		slog.Int("duplicates", stats.Duplicate),
		slog.Int("malformed", stats.Malformed),
		slog.Int("bad_date", stats.BadDate),
		slog.Int("missing_title", stats.MissingTitle),
		slog.Int("out_of_range", stats.OutOfRange),
	)
	return out, stats, nil
}

func (n *Normalizer) inRange(ts time.Time) bool {
	if !n.opts.Start.IsZero() && ts.Before(n.opts.Start) {
		return false
	}
	if !n.opts.End.IsZero() && ts.After(n.opts.End) {
		return false
	}
	return true
}

func resolveColumn(header []string, role string, aliases []string) (int, error) {
	for _, alias := range aliases {
		for i, name := range header {
			if name == alias {
				return i, nil
			}
		}
	}
	return -1, &MissingColumnError{Role: role, Aliases: aliases}
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// ParseTimestamp parses the date formats seen in news datasets. Timestamps
// without an offset are read as UTC; ones with an offset keep it.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts, true
		}
	}

	ts, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
