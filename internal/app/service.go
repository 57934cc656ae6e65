// Package service composes the backend client, the submission guard and the
// dashboard loader into the operations the HTTP layer serves.
package service

import (
	"context"
	"io"

	"github.com/okian/feedlens/internal/domain/dashboard"
	"github.com/okian/feedlens/internal/domain/feedback"
	"github.com/okian/feedlens/internal/domain/submission"
	"github.com/okian/feedlens/internal/domain/upload"
	"github.com/okian/feedlens/pkg/logger"
	"github.com/okian/feedlens/pkg/metrics"
)

// Backend is what the service needs from the analysis API.
type Backend interface {
	dashboard.Fetcher
	UploadFeedback(ctx context.Context, filename string, r io.Reader) (feedback.UploadResult, error)
	Ping(ctx context.Context) error
}

// Service serves uploads and dashboard views.
type Service struct {
	backend Backend
	guard   submission.Guard
	loader  *dashboard.Loader

	// Configuration
	guardSize    int
	keywordLimit int
	sampleLimit  int
	sampleRows   int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGuard replaces the in-memory submission guard.
func WithGuard(g submission.Guard) Option {
	return func(s *Service) {
		s.guard = g
	}
}

// WithSubmissionCacheSize bounds the default guard.
func WithSubmissionCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.guardSize = n
		}
	}
}

// WithKeywordLimit sets the number of keywords requested for the dashboard.
func WithKeywordLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.keywordLimit = n
		}
	}
}

// WithSampleLimit sets the number of sample rows requested for the dashboard.
func WithSampleLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sampleLimit = n
		}
	}
}

// WithSampleRows sets how many sample rows the dashboard table shows.
func WithSampleRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sampleRows = n
		}
	}
}

// New constructs a Service over b.
func New(b Backend, opts ...Option) *Service {
	s := &Service{
		backend:      b,
		guardSize:    10_000,
		keywordLimit: dashboard.MaxKeywords,
		sampleLimit:  dashboard.DefaultSampleLimit,
		sampleRows:   dashboard.DefaultRows,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = submission.NewInMemoryGuard(submission.WithMaxSize(s.guardSize))
	}
	s.loader = dashboard.NewLoader(b,
		dashboard.WithKeywordLimit(s.keywordLimit),
		dashboard.WithSampleLimit(s.sampleLimit),
		dashboard.WithLogger(s.logger),
	)
	return s
}

// IssueToken returns a fresh submission token for an upload form.
func (s *Service) IssueToken(ctx context.Context) string {
	return s.guard.Issue(ctx)
}

// Upload validates sel, claims token and forwards r to the backend once.
// Tokens that were never issued by the guard (empty or malformed) are not
// tracked. A failed backend call releases the token.
func (s *Service) Upload(ctx context.Context, token string, sel upload.Selection, r io.Reader) (feedback.UploadResult, error) {
	if err := upload.Validate(sel); err != nil {
		metrics.RecordUploadRejection(upload.RejectionReason(err))
		return feedback.UploadResult{}, err
	}

	tracked := submission.Valid(token)
	if tracked && !s.guard.Claim(ctx, token) {
		metrics.RecordDuplicateSubmission()
		metrics.RecordUploadRejection(upload.RejectionReason(upload.ErrDuplicate))
		s.logger.Warn(ctx, "duplicate upload submission", logger.String("token", token))
		return feedback.UploadResult{}, upload.ErrDuplicate
	}

	res, err := s.backend.UploadFeedback(ctx, sel.Filename, r)
	if err != nil {
		if tracked {
			s.guard.Release(ctx, token)
		}
		metrics.RecordUpload("error", 0)
		s.logger.Error(ctx, "upload failed",
			logger.String("filename", sel.Filename),
			logger.Error(err))
		return feedback.UploadResult{}, err
	}

	metrics.RecordUpload("success", res.RowsProcessed)
	s.logger.Info(ctx, "upload processed",
		logger.String("filename", sel.Filename),
		logger.Int("rows", res.RowsProcessed))
	return res, nil
}

// Load returns the raw dashboard data.
func (s *Service) Load(ctx context.Context) (dashboard.Data, error) {
	return s.loader.Load(ctx)
}

// Dashboard loads the dashboard data and builds its view. Load failures are
// reported through the view's error state.
func (s *Service) Dashboard(ctx context.Context) dashboard.View {
	d, err := s.loader.Load(ctx)
	var v dashboard.View
	if err != nil {
		s.logger.Error(ctx, "dashboard load failed", logger.Error(err))
		v = dashboard.ErrorView(err)
	} else {
		v = dashboard.BuildView(d, s.sampleRows)
	}
	metrics.RecordDashboardLoad(string(v.State))
	return v
}

// Ping reports whether the backend answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// PendingSubmissions returns the number of claimed tokens held by the guard.
func (s *Service) PendingSubmissions() int {
	return s.guard.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	return map[string]any{
		"pendingSubmissions":  s.guard.Size(),
		"submissionCacheSize": s.guardSize,
		"keywordLimit":        s.keywordLimit,
		"sampleLimit":         s.sampleLimit,
		"sampleRows":          s.sampleRows,
	}
}
