package report

import (
	"fmt"
	"math"

	"github.com/DeafMist/headline-pulse/internal/models"
)

const (
	polarityMin = -1.0
	polarityMax = 1.0
)

// Bins counts values into n equal-width bins over [lo, hi]. Values outside
// the range land in the nearest edge bin.
func Bins(values []float64, n int, lo, hi float64) []int {
	if n <= 0 {
		n = 1
	}
	counts := make([]int, n)
	width := (hi - lo) / float64(n)
	for _, v := range values {
		idx := 0
		if width > 0 {
			idx = int(math.Floor((v - lo) / width))
		}
		idx = max(0, min(idx, n-1))
		counts[idx]++
	}
	return counts
}

// Segments returns the [start, end) index runs of consecutive valid values.
func Segments(values []models.Value) [][2]int {
	var out [][2]int
	start := -1
	for i, v := range values {
		switch {
		case v.Valid && start < 0:
			start = i
		case !v.Valid && start >= 0:
			out = append(out, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, [2]int{start, len(values)})
	}
	return out
}

// Histogram plots the polarity distribution of one query's hits with the
// mean marked.
func (r *Renderer) Histogram(query string, values []float64, bins int) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("histogram %q: %w", query, ErrNoData)
	}

	counts := Bins(values, bins, polarityMin, polarityMax)
	peak := 0
	sum := 0.0
	for _, c := range counts {
		peak = max(peak, c)
	}
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	pdf, tr := newPage("Sentiment distribution: " + query)
	f := newFrame(pdf, tr, polarityMin, polarityMax, 0, float64(peak)*1.1)

	var ticks []float64
	for t := 0; t <= peak; t += max(1, peak/5) {
		ticks = append(ticks, float64(t))
	}
	f.yAxis(ticks, "headlines")

	width := (polarityMax - polarityMin) / float64(len(counts))
	f.setFill(colorSentiment)
	f.setDraw(colorAxis)
	f.pdf.SetLineWidth(0.1)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		lo := polarityMin + float64(i)*width
		x0, x1 := f.px(lo), f.px(lo+width)
		y := f.py(float64(c))
		f.pdf.Rect(x0, y, x1-x0, f.py(0)-y, "FD")
	}

	f.setDraw(colorMean)
	f.pdf.SetLineWidth(0.4)
	f.pdf.SetDashPattern([]float64{2, 1}, 0)
	f.pdf.Line(f.px(mean), f.y, f.px(mean), f.y+f.h)
	f.pdf.SetDashPattern([]float64{}, 0)

	labels := []string{"-1", "-0.5", "0", "0.5", "1"}
	f.xLabels(labels, []float64{-1, -0.5, 0, 0.5, 1}, "polarity")
	f.legend([]string{fmt.Sprintf("mean %.3f (n=%d)", mean, len(values))}, []rgb{colorMean})
	f.border()

	return r.save(pdf, FileName(query, "hist"))
}

// Trend plots mean monthly polarity for a keyword.
func (r *Renderer) Trend(keyword string, buckets []models.MonthlyBucket) (string, error) {
	if len(buckets) == 0 {
		return "", fmt.Errorf("trend %q: %w", keyword, ErrNoData)
	}

	pdf, tr := newPage("Monthly sentiment: " + keyword)
	f := newFrame(pdf, tr, 0, float64(len(buckets)-1), polarityMin, polarityMax)
	f.yAxis([]float64{-1, -0.5, 0, 0.5, 1}, "mean polarity")

	xs := make([]float64, len(buckets))
	ys := make([]float64, len(buckets))
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		xs[i] = float64(i)
		ys[i] = b.MeanPolarity
		labels[i] = b.Month.String()
	}
	f.polyline(xs, ys, colorSentiment)
	f.xLabels(labels, xs, "month")
	f.border()

	return r.save(pdf, FileName(keyword, "trend"))
}

// Overlay plots normalized sentiment against normalized price. Undefined
// values break the line.
func (r *Renderer) Overlay(keyword, ticker string, rows []models.AlignedRow) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("overlay %q: %w", keyword, ErrNoData)
	}

	pdf, tr := newPage(fmt.Sprintf("%s sentiment vs %s price (normalized)", keyword, ticker))
	f := newFrame(pdf, tr, 0, float64(len(rows)-1), 0, 1)
	f.yAxis([]float64{0, 0.25, 0.5, 0.75, 1}, "normalized")

	xs := make([]float64, len(rows))
	labels := make([]string, len(rows))
	sentiment := make([]models.Value, len(rows))
	price := make([]models.Value, len(rows))
	for i, row := range rows {
		xs[i] = float64(i)
		labels[i] = row.Month.String()
		sentiment[i] = row.SentimentNorm
		price[i] = row.CloseNorm
	}

	f.series(xs, sentiment, colorSentiment)
	f.series(xs, price, colorPrice)
	f.xLabels(labels, xs, "month")
	f.legend([]string{"sentiment", ticker + " close"}, []rgb{colorSentiment, colorPrice})
	f.border()

	return r.save(pdf, FileName(keyword, "trend_vs_price"))
}

func (f *frame) series(xs []float64, values []models.Value, c rgb) {
	for _, seg := range Segments(values) {
		ys := make([]float64, 0, seg[1]-seg[0])
		for _, v := range values[seg[0]:seg[1]] {
			ys = append(ys, v.V)
		}
		f.polyline(xs[seg[0]:seg[1]], ys, c)
	}
}
