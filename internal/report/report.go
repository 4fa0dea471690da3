// Package report draws sentiment charts into PDF files.
package report

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/processing"
)

// ErrNoData is returned when a chart would have nothing to draw.
var ErrNoData = errors.New("nothing to plot")

// Renderer writes charts into Dir.
type Renderer struct {
	Dir string
	log *slog.Logger
}

// NewRenderer builds a Renderer. A nil logger discards output.
func NewRenderer(dir string, log *slog.Logger) *Renderer {
	if log == nil {
		log = logger.Discard()
	}
	return &Renderer{Dir: dir, log: log}
}

// FileName derives the artifact name for a query or keyword.
func FileName(name, suffix string) string {
	slug := processing.Slug(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '-'
		}
		return r
	}, slug)
	return slug + "_" + suffix + ".pdf"
}

func (r *Renderer) save(pdf *fpdf.Fpdf, name string) (string, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(r.Dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	r.log.Info("chart written", slog.String("path", path))
	return path, nil
}

func newPage(title string) (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("headline-pulse", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(title), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(20, 20, tr(title))
	pdf.SetFont("Helvetica", "", 9)
	return pdf, tr
}
