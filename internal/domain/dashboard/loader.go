// Package dashboard loads the three dashboard datasets as one unit and turns
// them into the page's view model.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/okian/feedlens/internal/domain/feedback"
	"github.com/okian/feedlens/pkg/logger"
)

// Limits requested from the backend unless configured otherwise.
const (
	DefaultKeywordLimit = MaxKeywords
	DefaultSampleLimit  = 50
)

// Fetcher is the subset of the backend client the dashboard reads from.
type Fetcher interface {
	GetSentimentSummary(ctx context.Context) (feedback.Summary, error)
	GetKeywords(ctx context.Context, limit int) ([]feedback.Keyword, error)
	GetSampleFeedback(ctx context.Context, limit int) ([]feedback.Sample, error)
}

// Data is the joint result of one dashboard load.
type Data struct {
	Summary  feedback.Summary
	Keywords []feedback.Keyword
	Samples  []feedback.Sample
}

// Loader fetches dashboard data.
type Loader struct {
	fetcher      Fetcher
	keywordLimit int
	sampleLimit  int
	logger       logger.Logger
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithKeywordLimit sets the limit sent to the keywords endpoint.
func WithKeywordLimit(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.keywordLimit = n
		}
	}
}

// WithSampleLimit sets the limit sent to the sample endpoint.
func WithSampleLimit(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.sampleLimit = n
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader creates a Loader reading from f.
func NewLoader(f Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:      f,
		keywordLimit: DefaultKeywordLimit,
		sampleLimit:  DefaultSampleLimit,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load issues the three reads concurrently and returns all of them or the
// first error. The first failure cancels the others.
func (l *Loader) Load(ctx context.Context) (Data, error) {
	var (
		summary  feedback.Summary
		keywords []feedback.Keyword
		samples  []feedback.Sample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = l.fetcher.GetSentimentSummary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		keywords, err = l.fetcher.GetKeywords(gctx, l.keywordLimit)
		return err
	})
	g.Go(func() error {
		var err error
		samples, err = l.fetcher.GetSampleFeedback(gctx, l.sampleLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Data{}, err
	}

	if err := summary.Check(); err != nil {
		l.logger.Warn(ctx, "backend summary does not add up", logger.Error(err))
	}
	return Data{Summary: summary, Keywords: keywords, Samples: samples}, nil
}
