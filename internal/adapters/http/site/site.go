// Package site serves the server-rendered pages: home, upload and dashboard.
package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/okian/feedlens/internal/domain/dashboard"
	"github.com/okian/feedlens/internal/domain/feedback"
	"github.com/okian/feedlens/internal/domain/upload"
	"github.com/okian/feedlens/pkg/logger"
)

// Dependencies required by the page handlers.
type Dependencies interface {
	IssueToken(ctx context.Context) string
	Upload(ctx context.Context, token string, sel upload.Selection, r io.Reader) (feedback.UploadResult, error)
	Dashboard(ctx context.Context) dashboard.View
}

// Page templates.
const (
	pageHome      = "home.html"
	pageUpload    = "upload.html"
	pageDashboard = "dashboard.html"
)

const (
	defaultRedirectDelay  = 1500 * time.Millisecond
	defaultMaxUploadBytes = 32 << 20
	multipartMemory       = 8 << 20
)

// Site renders the frontend pages.
type Site struct {
	deps  Dependencies
	pages map[string]*template.Template
	home  template.HTML

	redirectDelay  time.Duration
	maxUploadBytes int64

	logger logger.Logger
}

// Option applies a configuration option to the Site.
type Option func(*Site)

// WithRedirectDelay sets the delay before a successful upload navigates to
// the dashboard.
func WithRedirectDelay(d time.Duration) Option {
	return func(s *Site) {
		if d >= 0 {
			s.redirectDelay = d
		}
	}
}

// WithMaxUploadBytes bounds the size of an upload request body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Site) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for render failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Site) {
		if l != nil {
			s.logger = l
		}
	}
}

// New parses the embedded templates and renders the home content.
func New(deps Dependencies, opts ...Option) (*Site, error) {
	s := &Site{
		deps:           deps,
		redirectDelay:  defaultRedirectDelay,
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s.pages = pages

	var buf bytes.Buffer
	if err := goldmark.Convert(homeMarkdown, &buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContent, err)
	}
	s.home = template.HTML(buf.String()) //nolint:gosec // rendered from embedded markdown
	return s, nil
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	}
	base, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("%w: base: %w", ErrTemplate, err)
	}

	// Each page gets its own clone of the base so every page can define
	// "title" and "content".
	names := []string{pageHome, pageUpload, pageDashboard}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("%w: clone for %s: %w", ErrTemplate, name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, name, err)
		}
		pages[name] = clone
	}
	return pages, nil
}

// Register attaches the page and asset routes to r.
func (s *Site) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/", s.handleHome)
	r.Get("/upload", s.handleUploadForm)
	r.Post("/upload", s.handleUpload)
	r.Get("/dashboard", s.handleDashboard)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(FS())))
}

type navLink struct {
	Href   string
	Label  string
	Active bool
}

// navigation returns the nav bar links with the one matching path marked
// active. Matching is exact.
func navigation(path string) []navLink {
	links := []navLink{
		{Href: "/", Label: "Home"},
		{Href: "/upload", Label: "Upload"},
		{Href: "/dashboard", Label: "Dashboard"},
	}
	for i := range links {
		links[i].Active = links[i].Href == path
	}
	return links
}

// layout is the data passed to base.html.
type layout struct {
	Title string
	Nav   []navLink
	// Refresh is the content of a meta refresh tag; empty means none.
	Refresh string
	Page    any
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name, title string, page any) {
	const op = "site.render"

	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error(r.Context(), "template not found", logger.String("op", op), logger.String("page", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := layout{Title: title, Nav: navigation(r.URL.Path), Page: page}
	if rv, ok := page.(interface{ RefreshContent() string }); ok {
		data.Refresh = rv.RefreshContent()
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error(r.Context(), "render failed",
			logger.String("op", op),
			logger.String("page", name),
			logger.Error(fmt.Errorf("%w: %w", ErrRender, err)))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
