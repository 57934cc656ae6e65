// Package feedback contains the read-only projections of backend-owned
// feedback data rendered by the frontend.
package feedback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrInconsistentSummary is returned by Summary.Check when counts or
// percentages do not add up.
var ErrInconsistentSummary = errors.New("inconsistent sentiment summary")

// percentageTolerance absorbs the backend's rounding of each percentage.
const percentageTolerance = 1.0

// Label is the categorical outcome of analysis.
type Label string

// Known labels.
const (
	Positive Label = "Positive"
	Negative Label = "Negative"
	Neutral  Label = "Neutral"
)

// Labels lists the known labels in display order.
var Labels = []Label{Positive, Negative, Neutral} //nolint:gochecknoglobals // fixed enumeration

// Fixed colour mapping used by cards, charts and badges.
const (
	ColorPositive = "#86BC25"
	ColorNegative = "#DC2626"
	ColorNeutral  = "#6B7280"
)

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	switch l {
	case Positive, Negative, Neutral:
		return true
	}
	return false
}

// Color returns the display colour of l. Unknown labels use the neutral colour.
func (l Label) Color() string {
	switch l {
	case Positive:
		return ColorPositive
	case Negative:
		return ColorNegative
	default:
		return ColorNeutral
	}
}

// Summary is the overall sentiment distribution.
type Summary struct {
	Total              int     `json:"total"`
	Positive           int     `json:"positive"`
	Negative           int     `json:"negative"`
	Neutral            int     `json:"neutral"`
	PositivePercentage float64 `json:"positive_percentage"`
	NegativePercentage float64 `json:"negative_percentage"`
	NeutralPercentage  float64 `json:"neutral_percentage"`
}

// Empty reports whether no feedback has been analysed yet.
func (s Summary) Empty() bool {
	return s.Total == 0
}

// Count returns the count for label l.
func (s Summary) Count(l Label) int {
	switch l {
	case Positive:
		return s.Positive
	case Negative:
		return s.Negative
	case Neutral:
		return s.Neutral
	}
	return 0
}

// Percentage returns the percentage for label l.
func (s Summary) Percentage(l Label) float64 {
	switch l {
	case Positive:
		return s.PositivePercentage
	case Negative:
		return s.NegativePercentage
	case Neutral:
		return s.NeutralPercentage
	}
	return 0
}

// Check verifies that the three counts add up to Total and, for a non-empty
// summary, that the percentages add up to ~100.
func (s Summary) Check() error {
	if s.Total < 0 || s.Positive < 0 || s.Negative < 0 || s.Neutral < 0 {
		return fmt.Errorf("%w: negative count", ErrInconsistentSummary)
	}
	if sum := s.Positive + s.Negative + s.Neutral; sum != s.Total {
		return fmt.Errorf("%w: counts sum to %d, total is %d", ErrInconsistentSummary, sum, s.Total)
	}
	if s.Total == 0 {
		return nil
	}
	pct := s.PositivePercentage + s.NegativePercentage + s.NeutralPercentage
	if math.Abs(pct-100) > percentageTolerance {
		return fmt.Errorf("%w: percentages sum to %.2f", ErrInconsistentSummary, pct)
	}
	return nil
}

// Keyword is a term extracted from negative feedback with its occurrence count.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// SampleID is the backend's opaque row identifier. It accepts JSON numbers
// and strings and keeps the textual form.
type SampleID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *SampleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = SampleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("sample id: %w", err)
	}
	*id = SampleID(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler. Numeric ids are written back as numbers.
func (id SampleID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Sample is one analysed feedback entry.
type Sample struct {
	ID             SampleID `json:"id"`
	FeedbackText   string   `json:"feedback_text"`
	SentimentLabel Label    `json:"sentiment_label"`
	SentimentScore float64  `json:"sentiment_score"`
}

// UploadResult is the backend's answer to a CSV upload.
type UploadResult struct {
	RowsProcessed int    `json:"rows_processed"`
	Filename      string `json:"filename,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Truncate shortens text to at most n runes, appending "..." when it cuts.
func Truncate(text string, n int) string {
	if n < 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	var b strings.Builder
	b.Grow(n + 3)
	i := 0
	for _, r := range text {
		if i == n {
			break
		}
		b.WriteRune(r)
		i++
	}
	b.WriteString("...")
	return b.String()
}
