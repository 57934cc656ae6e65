package dashboard

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/okian/feedlens/internal/chart"
	"github.com/okian/feedlens/internal/domain/feedback"
)

// State of the dashboard page.
type State string

// Page states.
const (
	StateError  State = "error"
	StateEmpty  State = "empty"
	StateLoaded State = "loaded"
)

// Messages shown for the non-loaded states.
const (
	FallbackMessage = "Failed to load dashboard data"
	EmptyMessage    = "No data available. Please upload feedback data first."
)

// Display limits.
const (
	MaxKeywords    = 10
	DefaultRows    = 20
	TextPreviewLen = 100
)

// Chart geometry in viewBox units.
const (
	PieSize          = 240
	pieRadius        = 100
	BarPlotWidth     = 360
	BarPlotHeight    = 220
	KeywordWidth     = 360
	KeywordRowHeight = 28
)

// Card is one metric card.
type Card struct {
	Title   string
	Count   string
	Percent string
	Color   string
}

// Row is one line of the sample table.
type Row struct {
	ID    string
	Text  string
	Label string
	Color string
	Score string
}

// View is everything the dashboard template needs.
type View struct {
	State   State
	Message string

	Cards []Card

	Pie          []chart.Arc
	Bars         []chart.Bar
	BarTicks     []chart.Tick
	Keywords     []chart.Bar
	KeywordTicks []chart.Tick

	Rows []Row
	Note string
}

// HasKeywords reports whether the keyword chart is shown.
func (v View) HasKeywords() bool {
	return len(v.Keywords) > 0
}

// KeywordChartHeight is the viewBox height of the keyword chart.
func (v View) KeywordChartHeight() int {
	return len(v.Keywords) * KeywordRowHeight
}

// ErrorView builds the error state for err.
func ErrorView(err error) View {
	return View{State: StateError, Message: feedback.Message(err, FallbackMessage)}
}

// BuildView builds the empty or loaded state from d, showing at most rows
// sample rows. rows <= 0 means DefaultRows.
func BuildView(d Data, rows int) View {
	if d.Summary.Empty() {
		return View{State: StateEmpty, Message: EmptyMessage}
	}
	if rows <= 0 {
		rows = DefaultRows
	}

	s := d.Summary
	v := View{
		State: StateLoaded,
		Cards: []Card{{Title: "Total Feedback", Count: humanize.Comma(int64(s.Total))}},
	}
	for _, l := range feedback.Labels {
		v.Cards = append(v.Cards, Card{
			Title:   string(l),
			Count:   humanize.Comma(int64(s.Count(l))),
			Percent: fmt.Sprintf("%.1f%%", s.Percentage(l)),
			Color:   l.Color(),
		})
	}

	v.Pie = chart.Pie(categoryData(s, feedback.Positive, feedback.Negative, feedback.Neutral),
		PieSize/2, PieSize/2, pieRadius)
	v.Bars, v.BarTicks = chart.VerticalBars(categoryData(s, feedback.Positive, feedback.Neutral, feedback.Negative),
		BarPlotWidth, BarPlotHeight)

	kws := d.Keywords
	if len(kws) > MaxKeywords {
		kws = kws[:MaxKeywords]
	}
	if len(kws) > 0 {
		data := make([]chart.Datum, len(kws))
		for i, k := range kws {
			data[i] = chart.Datum{Label: k.Word, Value: float64(k.Count), Color: feedback.ColorNegative}
		}
		v.Keywords, v.KeywordTicks = chart.HorizontalBars(data, KeywordWidth, KeywordRowHeight)
	}

	shown := d.Samples
	if len(shown) > rows {
		shown = shown[:rows]
		v.Note = fmt.Sprintf("Showing %d of %s feedback entries", rows, humanize.Comma(int64(len(d.Samples))))
	}
	v.Rows = make([]Row, len(shown))
	for i, smp := range shown {
		v.Rows[i] = Row{
			ID:    string(smp.ID),
			Text:  feedback.Truncate(smp.FeedbackText, TextPreviewLen),
			Label: string(smp.SentimentLabel),
			Color: smp.SentimentLabel.Color(),
			Score: fmt.Sprintf("%.3f", smp.SentimentScore),
		}
	}
	return v
}

func categoryData(s feedback.Summary, order ...feedback.Label) []chart.Datum {
	out := make([]chart.Datum, len(order))
	for i, l := range order {
		out[i] = chart.Datum{Label: string(l), Value: float64(s.Count(l)), Color: l.Color()}
	}
	return out
}
