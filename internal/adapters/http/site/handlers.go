package site

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okian/feedlens/internal/domain/dashboard"
	"github.com/okian/feedlens/internal/domain/upload"
	"github.com/okian/feedlens/pkg/logger"
	"github.com/okian/feedlens/pkg/metrics"
)

const dashboardPath = "/dashboard"

// RedirectingMessage follows the success message while the redirect is pending.
const RedirectingMessage = "Redirecting to dashboard…"

type homeView struct {
	Content any
}

type uploadView struct {
	Token       string
	Columns     []string
	MaxSize     string
	Error       string
	Success     string
	Redirecting string
	Refresh     string
	RedirectURL string
	RedirectMS  int64
}

// RefreshContent returns the meta refresh value for a successful upload.
func (v uploadView) RefreshContent() string {
	return v.Refresh
}

func (s *Site) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageHome, "Home", homeView{Content: s.home})
}

func (s *Site) newUploadView(r *http.Request) uploadView {
	return uploadView{
		Token:   s.deps.IssueToken(r.Context()),
		Columns: upload.AcceptedColumns,
		MaxSize: humanize.IBytes(uint64(s.maxUploadBytes)),
	}
}

func (s *Site) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageUpload, "Upload", s.newUploadView(r))
}

func (s *Site) handleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "site.upload"
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		failure := parseFailure(err)
		metrics.RecordUploadRejection(upload.RejectionReason(failure))
		s.uploadFailed(w, r, failure)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	token := r.FormValue("token")
	sel, file, err := selection(r)
	if err != nil {
		s.logger.Warn(ctx, "read upload part", logger.String("op", op), logger.Error(err))
		s.uploadFailed(w, r, err)
		return
	}
	if file != nil {
		defer func() { _ = file.Close() }()
	}

	var body io.Reader = strings.NewReader("")
	if file != nil {
		body = file
	}
	res, err := s.deps.Upload(ctx, token, sel, body)
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}

	v := uploadView{
		Columns:     upload.AcceptedColumns,
		MaxSize:     humanize.IBytes(uint64(s.maxUploadBytes)),
		Success:     upload.SuccessMessage(res.RowsProcessed),
		Redirecting: RedirectingMessage,
		Refresh:     refreshValue(s.redirectDelay, dashboardPath),
		RedirectURL: dashboardPath,
		RedirectMS:  s.redirectDelay.Milliseconds(),
	}
	w.Header().Set("Refresh", v.Refresh)
	s.render(w, r, http.StatusOK, pageUpload, "Upload", v)
}

// selection extracts the "file" part. A missing part yields an empty
// selection so validation reports it.
func selection(r *http.Request) (upload.Selection, multipart.File, error) {
	file, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return upload.Selection{}, nil, nil
	}
	if err != nil {
		return upload.Selection{}, nil, err
	}
	return upload.Selection{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
	}, file, nil
}

// parseFailure maps multipart parse errors to upload errors.
func parseFailure(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		return upload.ErrTooLarge
	}
	return upload.ErrNoFile
}

func (s *Site) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	v := s.newUploadView(r)
	v.Error = upload.ErrorMessage(err, upload.FallbackMessage)
	s.render(w, r, uploadStatus(err), pageUpload, "Upload", v)
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, upload.ErrNoFile), errors.Is(err, upload.ErrNotCSV):
		return http.StatusBadRequest
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upload.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// refreshValue is the no-script fallback. Browsers only honour whole seconds
// in a refresh delay, so it is rounded up; upload.js redirects at the exact
// delay carried in data-redirect-ms.
func refreshValue(delay time.Duration, url string) string {
	return fmt.Sprintf("%d;url=%s", int64(math.Ceil(delay.Seconds())), url)
}

func (s *Site) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v := s.deps.Dashboard(r.Context())
	status := http.StatusOK
	if v.State == dashboard.StateError {
		status = http.StatusBadGateway
	}
	s.render(w, r, status, pageDashboard, "Dashboard", v)
}
