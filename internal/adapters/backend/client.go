// Package backend is the typed client of the feedback analysis REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/feedlens/internal/domain/feedback"
	"github.com/okian/feedlens/pkg/logger"
	"github.com/okian/feedlens/pkg/metrics"
)

// Default query limits used when callers pass a non-positive limit.
const (
	DefaultKeywordLimit = 10
	DefaultSampleLimit  = 50
)

// Endpoint paths.
const (
	pathUpload   = "/upload-feedback"
	pathSummary  = "/sentiment-summary"
	pathKeywords = "/keywords"
	pathSample   = "/sample-feedback"
	pathRoot     = "/"
)

const maxErrorBody = 64 << 10

// Client calls the analysis backend. It performs no retries and no caching;
// callers bound each call with their context.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for per-call debug lines.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type keywordsResponse struct {
	Keywords []feedback.Keyword `json:"keywords"`
	Count    int                `json:"count"`
}

type sampleResponse struct {
	Feedback []feedback.Sample `json:"feedback"`
	Count    int               `json:"count"`
}

// UploadFeedback sends the CSV as multipart form field "file".
func (c *Client) UploadFeedback(ctx context.Context, filename string, r io.Reader) (feedback.UploadResult, error) {
	const op = "backend.upload_feedback"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "text/csv")
	part, err := mw.CreatePart(h)
	if err != nil {
		return feedback.UploadResult{}, &RequestError{Op: op, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return feedback.UploadResult{}, &RequestError{Op: op, Err: fmt.Errorf("read upload: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return feedback.UploadResult{}, &RequestError{Op: op, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathUpload, nil, &body)
	if err != nil {
		return feedback.UploadResult{}, &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out feedback.UploadResult
	if err := c.do(req, op, "upload", &out); err != nil {
		return feedback.UploadResult{}, err
	}
	return out, nil
}

// GetSentimentSummary returns the overall sentiment distribution.
func (c *Client) GetSentimentSummary(ctx context.Context) (feedback.Summary, error) {
	const op = "backend.get_sentiment_summary"
	req, err := c.newRequest(ctx, http.MethodGet, pathSummary, nil, nil)
	if err != nil {
		return feedback.Summary{}, &RequestError{Op: op, Err: err}
	}
	var out feedback.Summary
	if err := c.do(req, op, "summary", &out); err != nil {
		return feedback.Summary{}, err
	}
	return out, nil
}

// GetKeywords returns the top keywords of negative feedback, ordered by count
// as the backend returns them. limit <= 0 means DefaultKeywordLimit.
func (c *Client) GetKeywords(ctx context.Context, limit int) ([]feedback.Keyword, error) {
	const op = "backend.get_keywords"
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	req, err := c.newRequest(ctx, http.MethodGet, pathKeywords, limitQuery(limit), nil)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	var out keywordsResponse
	if err := c.do(req, op, "keywords", &out); err != nil {
		return nil, err
	}
	if out.Keywords == nil {
		return []feedback.Keyword{}, nil
	}
	return out.Keywords, nil
}

// GetSampleFeedback returns analysed feedback rows. limit <= 0 means
// DefaultSampleLimit.
func (c *Client) GetSampleFeedback(ctx context.Context, limit int) ([]feedback.Sample, error) {
	const op = "backend.get_sample_feedback"
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	req, err := c.newRequest(ctx, http.MethodGet, pathSample, limitQuery(limit), nil)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	var out sampleResponse
	if err := c.do(req, op, "sample", &out); err != nil {
		return nil, err
	}
	if out.Feedback == nil {
		return []feedback.Sample{}, nil
	}
	return out.Feedback, nil
}

// Ping calls the backend banner endpoint.
func (c *Client) Ping(ctx context.Context) error {
	const op = "backend.ping"
	req, err := c.newRequest(ctx, http.MethodGet, pathRoot, nil, nil)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	return c.do(req, op, "ping", nil)
}

func limitQuery(limit int) url.Values {
	return url.Values{"limit": []string{strconv.Itoa(limit)}}
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and decodes a 2xx JSON body into out (skipped when out is
// nil). Non-2xx responses become a *RequestError carrying the detail message.
func (c *Client) do(req *http.Request, op, endpoint string, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		elapsed := time.Since(start)
		metrics.RecordBackendRequest(endpoint, outcome, float64(elapsed.Milliseconds()))
		c.logger.Debug(req.Context(), "backend call",
			logger.String("op", op),
			logger.String("url", req.URL.String()),
			logger.Int("status", status),
			logger.Duration("elapsed", elapsed),
			logger.Any("failed", err != nil))
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RequestError{Op: op, Status: resp.StatusCode, Detail: parseDetail(raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %w", ErrDecode, err)}
	}
	return nil
}

// parseDetail extracts the "detail" field of an error body. Non-string
// details (e.g. validation error lists) are returned as compact JSON.
func parseDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	if string(body.Detail) == "null" {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body.Detail); err != nil {
		return ""
	}
	return compact.String()
}
