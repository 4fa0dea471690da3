package report

import (
	"fmt"

	"github.com/go-pdf/fpdf"
)

type rgb struct{ r, g, b int }

var (
	colorAxis      = rgb{60, 60, 60}
	colorGrid      = rgb{210, 210, 210}
	colorSentiment = rgb{31, 119, 180}
	colorPrice     = rgb{255, 127, 14}
	colorMean      = rgb{214, 39, 40}
)

// frame maps data coordinates onto a rectangle of the page.
type frame struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	x, y, w, h float64
	xmin, xmax float64
	ymin, ymax float64
}

func newFrame(pdf *fpdf.Fpdf, tr func(string) string, xmin, xmax, ymin, ymax float64) *frame {
	return &frame{
		pdf: pdf, tr: tr,
		x: 30, y: 30, w: 245, h: 140,
		xmin: xmin, xmax: xmax, ymin: ymin, ymax: ymax,
	}
}

func (f *frame) px(v float64) float64 {
	if f.xmax == f.xmin {
		return f.x + f.w/2
	}
	return f.x + (v-f.xmin)/(f.xmax-f.xmin)*f.w
}

func (f *frame) py(v float64) float64 {
	if f.ymax == f.ymin {
		return f.y + f.h/2
	}
	return f.y + f.h - (v-f.ymin)/(f.ymax-f.ymin)*f.h
}

func (f *frame) setDraw(c rgb) {
	f.pdf.SetDrawColor(c.r, c.g, c.b)
}

func (f *frame) setFill(c rgb) {
	f.pdf.SetFillColor(c.r, c.g, c.b)
}

// yAxis draws horizontal grid lines with labels at each tick.
func (f *frame) yAxis(ticks []float64, label string) {
	f.pdf.SetLineWidth(0.1)
	for _, t := range ticks {
		f.setDraw(colorGrid)
		f.pdf.Line(f.x, f.py(t), f.x+f.w, f.py(t))
		s := fmt.Sprintf("%.2g", t)
		f.pdf.Text(f.x-2-f.pdf.GetStringWidth(s), f.py(t)+1, s)
	}
	f.pdf.TransformBegin()
	f.pdf.TransformRotate(90, 15, f.y+f.h/2)
	f.pdf.Text(15, f.y+f.h/2, f.tr(label))
	f.pdf.TransformEnd()
}

// xLabels writes category labels under the plot, thinning them to fit.
func (f *frame) xLabels(labels []string, positions []float64, axis string) {
	step := 1
	if len(labels) > 12 {
		step = (len(labels) + 11) / 12
	}
	for i := 0; i < len(labels); i += step {
		s := f.tr(labels[i])
		f.pdf.Text(f.px(positions[i])-f.pdf.GetStringWidth(s)/2, f.y+f.h+6, s)
	}
	f.pdf.Text(f.x+f.w/2-f.pdf.GetStringWidth(axis)/2, f.y+f.h+13, f.tr(axis))
}

func (f *frame) border() {
	f.setDraw(colorAxis)
	f.pdf.SetLineWidth(0.3)
	f.pdf.Rect(f.x, f.y, f.w, f.h, "D")
}

// polyline connects consecutive points with one colored line and marks each.
func (f *frame) polyline(xs, ys []float64, c rgb) {
	f.setDraw(c)
	f.setFill(c)
	f.pdf.SetLineWidth(0.5)
	for i := range xs {
		if i > 0 {
			f.pdf.Line(f.px(xs[i-1]), f.py(ys[i-1]), f.px(xs[i]), f.py(ys[i]))
		}
		f.pdf.Circle(f.px(xs[i]), f.py(ys[i]), 0.8, "F")
	}
}

func (f *frame) legend(items []string, colors []rgb) {
	x := f.x + 4
	for i, item := range items {
		f.setFill(colors[i])
		f.pdf.Rect(x, f.y+3, 4, 2.5, "F")
		f.pdf.Text(x+6, f.y+5.5, f.tr(item))
		x += 12 + f.pdf.GetStringWidth(item)
	}
}
