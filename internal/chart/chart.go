// Package chart computes the geometry of the dashboard's inline SVG charts.
//
// Nothing here renders markup; templates consume the returned shapes.
package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Datum is one category of a chart.
type Datum struct {
	Label string
	Value float64
	Color string
}

// Arc is a pie slice. When the slice covers the whole circle Full is set and
// Path is empty, since an SVG arc cannot describe a closed circle.
type Arc struct {
	Datum
	Percent float64
	Path    string
	Full    bool
	// LabelX and LabelY place the percentage label at mid-radius.
	LabelX float64
	LabelY float64
}

// Bar is a rectangle of a bar chart in viewBox coordinates.
type Bar struct {
	Datum
	X, Y, W, H float64
}

// Tick is an axis graduation.
type Tick struct {
	Value float64
	Pos   float64
	Text  string
}

// Pie lays out data as slices of a circle centred at (cx, cy), clockwise from
// twelve o'clock. Non-positive values are skipped.
func Pie(data []Datum, cx, cy, r float64) []Arc {
	total := 0.0
	for _, d := range data {
		if d.Value > 0 {
			total += d.Value
		}
	}
	if total == 0 {
		return nil
	}

	arcs := make([]Arc, 0, len(data))
	angle := -math.Pi / 2
	for _, d := range data {
		if d.Value <= 0 {
			continue
		}
		frac := d.Value / total
		sweep := frac * 2 * math.Pi
		mid := angle + sweep/2
		a := Arc{
			Datum:   d,
			Percent: frac * 100,
			LabelX:  round(cx + r*0.6*math.Cos(mid)),
			LabelY:  round(cy + r*0.6*math.Sin(mid)),
		}
		if frac >= 1 {
			a.Full = true
			a.LabelX, a.LabelY = cx, cy
		} else {
			a.Path = slicePath(cx, cy, r, angle, angle+sweep)
		}
		arcs = append(arcs, a)
		angle += sweep
	}
	return arcs
}

func slicePath(cx, cy, r, from, to float64) string {
	x1, y1 := cx+r*math.Cos(from), cy+r*math.Sin(from)
	x2, y2 := cx+r*math.Cos(to), cy+r*math.Sin(to)
	large := 0
	if to-from > math.Pi {
		large = 1
	}
	return fmt.Sprintf("M %s %s L %s %s A %s %s 0 %d 1 %s %s Z",
		num(cx), num(cy), num(x1), num(y1), num(r), num(r), large, num(x2), num(y2))
}

// VerticalBars lays out data as columns inside a plot of the given size. The
// value axis runs from zero to the niced maximum.
func VerticalBars(data []Datum, width, height float64) ([]Bar, []Tick) {
	if len(data) == 0 {
		return nil, nil
	}
	top, ticks := axis(maxValue(data), height, true)
	slot := width / float64(len(data))
	bw := slot * 0.6

	bars := make([]Bar, len(data))
	for i, d := range data {
		h := 0.0
		if top > 0 {
			h = math.Max(d.Value, 0) / top * height
		}
		bars[i] = Bar{
			Datum: d,
			X:     round(float64(i)*slot + (slot-bw)/2),
			Y:     round(height - h),
			W:     round(bw),
			H:     round(h),
		}
	}
	return bars, ticks
}

// HorizontalBars lays out data as rows of fixed height, top to bottom in the
// given order.
func HorizontalBars(data []Datum, width, rowHeight float64) ([]Bar, []Tick) {
	if len(data) == 0 {
		return nil, nil
	}
	top, ticks := axis(maxValue(data), width, false)
	bh := rowHeight * 0.7

	bars := make([]Bar, len(data))
	for i, d := range data {
		w := 0.0
		if top > 0 {
			w = math.Max(d.Value, 0) / top * width
		}
		bars[i] = Bar{
			Datum: d,
			X:     0,
			Y:     round(float64(i)*rowHeight + (rowHeight-bh)/2),
			W:     round(w),
			H:     round(bh),
		}
	}
	return bars, ticks
}

func maxValue(data []Datum) float64 {
	m := 0.0
	for _, d := range data {
		if d.Value > m {
			m = d.Value
		}
	}
	return m
}

const tickCount = 5

// axis returns the niced axis maximum and its ticks positioned along length.
// Vertical axes grow upwards.
func axis(maxV, length float64, vertical bool) (float64, []Tick) {
	step := NiceStep(maxV, tickCount)
	top := step * math.Ceil(maxV/step)
	if top == 0 {
		top = step
	}
	n := int(math.Round(top / step))
	ticks := make([]Tick, 0, n+1)
	for i := 0; i <= n; i++ {
		v := float64(i) * step
		pos := v / top * length
		if vertical {
			pos = length - pos
		}
		ticks = append(ticks, Tick{Value: v, Pos: round(pos), Text: num(v)})
	}
	return top, ticks
}

// NiceStep returns a 1, 2 or 5 times power-of-ten step that splits [0, maxV]
// into at most n intervals. It is 1 for non-positive input.
func NiceStep(maxV float64, n int) float64 {
	if maxV <= 0 || n <= 0 {
		return 1
	}
	raw := maxV / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * mag; step >= raw {
			if step < 1 && maxV >= 1 {
				return 1
			}
			return step
		}
	}
	return 10 * mag
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

// num formats v with at most two decimals and no trailing zeros.
func num(v float64) string {
	s := strconv.FormatFloat(round(v), 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
