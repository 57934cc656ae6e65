// Package smoke runs an end-to-end check of the analysis backend through the
// same client and dashboard loader the web frontend uses.
package smoke

import (
	"time"

	"github.com/okian/feedlens/internal/domain/feedback"
)

// Config holds configuration for a smoke run.
type Config struct {
	BackendURL string        // Base URL of the analysis backend
	Rows       int           // Number of feedback rows to generate
	Timeout    time.Duration // Per-request HTTP timeout
	ReportFile string        // YAML report path; empty disables the report
	Verbose    bool          // Enable verbose logging
}

// Row is one generated feedback entry with its locally predicted label.
type Row struct {
	Text     string
	Expected feedback.Label
	Compound float64
}

// Check is the outcome of one verification. A failed soft check is reported
// but does not fail the run.
type Check struct {
	Name   string `yaml:"name"`
	Passed bool   `yaml:"passed"`
	Soft   bool   `yaml:"soft,omitempty"`
	Detail string `yaml:"detail,omitempty"`
}

// Report summarises a smoke run.
type Report struct {
	RunID         string         `yaml:"run_id"`
	BackendURL    string         `yaml:"backend_url"`
	StartedAt     time.Time      `yaml:"started_at"`
	Duration      time.Duration  `yaml:"duration"`
	RowsGenerated int            `yaml:"rows_generated"`
	RowsProcessed int            `yaml:"rows_processed"`
	Expected      map[string]int `yaml:"expected_labels"`
	Summary       SummaryReport  `yaml:"summary"`
	Keywords      []string       `yaml:"keywords"`
	Samples       int            `yaml:"samples"`
	Checks        []Check        `yaml:"checks"`
	Passed        bool           `yaml:"passed"`
}

// SummaryReport is the backend summary as written to the report.
type SummaryReport struct {
	Total    int `yaml:"total"`
	Positive int `yaml:"positive"`
	Negative int `yaml:"negative"`
	Neutral  int `yaml:"neutral"`
}
