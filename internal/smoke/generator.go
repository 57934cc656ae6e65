package smoke

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/jonreiter/govader"

	"github.com/okian/feedlens/internal/domain/feedback"
)

// VADER compound thresholds used by the backend.
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

var analyzer = govader.NewSentimentIntensityAnalyzer() //nolint:gochecknoglobals // lexicon is loaded once

var (
	positivePhrases = []string{ //nolint:gochecknoglobals // phrase pool
		"I love this product",
		"Excellent service and friendly staff",
		"Great quality, very happy with it",
		"Amazing experience, highly recommend",
	}
	negativePhrases = []string{ //nolint:gochecknoglobals // phrase pool
		"Terrible service, very disappointed",
		"Awful support, I hate waiting",
		"Horrible quality, the product broke",
		"Worst purchase ever, totally useless",
		"Rude staff and a bad experience",
	}
	neutralPhrases = []string{ //nolint:gochecknoglobals // phrase pool
		"The package arrived on Tuesday",
		"The order number is on the receipt",
		"I picked it up at the store",
	}
)

// LabelFor maps a VADER compound score to a label.
func LabelFor(compound float64) feedback.Label {
	switch {
	case compound >= positiveThreshold:
		return feedback.Positive
	case compound <= negativeThreshold:
		return feedback.Negative
	default:
		return feedback.Neutral
	}
}

// Predict scores text with VADER and labels it.
func Predict(text string) (feedback.Label, float64) {
	compound := analyzer.PolarityScores(text).Compound
	return LabelFor(compound), compound
}

// Generate returns n rows cycling through the positive, negative and neutral
// pools. Each row is tagged with runID so runs can be told apart.
func Generate(n int, runID string) []Row {
	pools := [][]string{positivePhrases, negativePhrases, neutralPhrases}
	rows := make([]Row, n)
	for i := range rows {
		pool := pools[i%len(pools)]
		text := pool[(i/len(pools))%len(pool)]
		if runID != "" {
			text = fmt.Sprintf("%s (ref %s-%d)", text, runID, i+1)
		}
		label, compound := Predict(text)
		rows[i] = Row{Text: text, Expected: label, Compound: compound}
	}
	return rows
}

// Tally counts rows per expected label.
func Tally(rows []Row) map[string]int {
	out := make(map[string]int, len(feedback.Labels))
	for _, l := range feedback.Labels {
		out[string(l)] = 0
	}
	for _, r := range rows {
		out[string(r.Expected)]++
	}
	return out
}

// EncodeCSV writes rows as a CSV with a single feedback_text column.
func EncodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"feedback_text"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Text}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
