package smoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/feedlens/internal/adapters/backend"
	service "github.com/okian/feedlens/internal/app"
	"github.com/okian/feedlens/internal/domain/upload"
	"github.com/okian/feedlens/pkg/logger"
)

// ErrChecksFailed is returned by Run when at least one verification failed.
var ErrChecksFailed = errors.New("smoke checks failed")

const runIDLength = 8

// Run executes the complete smoke test and returns its report. The report is
// also returned alongside ErrChecksFailed.
func Run(ctx context.Context, config *Config) (*Report, error) {
	lg := logger.Get().Named("smoke")
	runID := uuid.NewString()[:runIDLength]
	report := &Report{
		RunID:      runID,
		BackendURL: config.BackendURL,
		StartedAt:  time.Now().UTC(),
	}

	lg.Info(ctx, "starting smoke run",
		logger.String("runID", runID),
		logger.String("backendURL", config.BackendURL),
		logger.Int("rows", config.Rows),
		logger.Duration("timeout", config.Timeout))

	opts := []backend.Option{backend.WithHTTPClient(&http.Client{Timeout: config.Timeout})}
	if config.Verbose {
		opts = append(opts, backend.WithLogger(lg))
	}
	client, err := backend.New(config.BackendURL, opts...)
	if err != nil {
		return nil, err
	}

	svc := service.New(client, service.WithLogger(lg))

	// Step 1: Check backend and take the baseline
	if err := svc.Ping(ctx); err != nil {
		return nil, fmt.Errorf("backend ping failed: %w", err)
	}
	before, err := svc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("baseline load failed: %w", err)
	}

	// Step 2: Generate feedback
	rows := Generate(config.Rows, runID)
	report.RowsGenerated = len(rows)
	report.Expected = Tally(rows)
	body, err := EncodeCSV(rows)
	if err != nil {
		return nil, fmt.Errorf("csv encoding failed: %w", err)
	}
	if config.Verbose {
		for _, r := range rows {
			lg.Debug(ctx, "generated row",
				logger.String("text", r.Text),
				logger.String("expected", string(r.Expected)),
				logger.Float64("compound", r.Compound))
		}
	}

	// Step 3: Upload through the same path as the upload page
	sel := upload.Selection{Filename: "smoke-" + runID + ".csv", ContentType: upload.CSVMediaType, Size: int64(len(body))}
	res, err := svc.Upload(ctx, svc.IssueToken(ctx), sel, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	report.RowsProcessed = res.RowsProcessed

	// Step 4: Load the dashboard data
	data, err := svc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard load failed: %w", err)
	}
	report.Summary = SummaryReport{
		Total:    data.Summary.Total,
		Positive: data.Summary.Positive,
		Negative: data.Summary.Negative,
		Neutral:  data.Summary.Neutral,
	}
	report.Keywords = make([]string, len(data.Keywords))
	for i, k := range data.Keywords {
		report.Keywords[i] = k.Word
	}
	report.Samples = len(data.Samples)

	// Step 5: Verify
	report.Checks = append(Verify(data, len(rows), res.RowsProcessed),
		VerifyLabels(before.Summary, data.Summary, report.Expected))
	report.Passed = Passed(report.Checks)
	report.Duration = time.Since(report.StartedAt)

	for _, c := range report.Checks {
		fields := []logger.Field{logger.String("check", c.Name), logger.Any("passed", c.Passed), logger.Any("soft", c.Soft)}
		if c.Detail != "" {
			fields = append(fields, logger.String("detail", c.Detail))
		}
		lg.Info(ctx, "verification", fields...)
	}

	// Step 6: Save report
	if config.ReportFile != "" {
		if err := WriteReport(config.ReportFile, report); err != nil {
			lg.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			lg.Info(ctx, "report saved", logger.String("file", config.ReportFile))
		}
	}

	lg.Info(ctx, "smoke run finished",
		logger.Any("passed", report.Passed),
		logger.Duration("duration", report.Duration))
	if !report.Passed {
		return report, ErrChecksFailed
	}
	return report, nil
}
