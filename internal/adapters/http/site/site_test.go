package site_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"

	"github.com/okian/feedlens/internal/adapters/backend"
	"github.com/okian/feedlens/internal/adapters/http/site"
	service "github.com/okian/feedlens/internal/app"
	"github.com/okian/feedlens/internal/domain/feedback"
	"github.com/okian/feedlens/internal/domain/submission"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeBackend struct {
	uploads   atomic.Int32
	uploadErr error
	summary   feedback.Summary
	keywords  []feedback.Keyword
	samples   []feedback.Sample
	readErr   error
}

func (f *fakeBackend) UploadFeedback(_ context.Context, _ string, r io.Reader) (feedback.UploadResult, error) {
	f.uploads.Add(1)
	if f.uploadErr != nil {
		return feedback.UploadResult{}, f.uploadErr
	}
	b, _ := io.ReadAll(r)
	return feedback.UploadResult{RowsProcessed: strings.Count(string(b), "\n") - 1}, nil
}

func (f *fakeBackend) GetSentimentSummary(context.Context) (feedback.Summary, error) {
	return f.summary, f.readErr
}

func (f *fakeBackend) GetKeywords(context.Context, int) ([]feedback.Keyword, error) {
	return f.keywords, f.readErr
}

func (f *fakeBackend) GetSampleFeedback(context.Context, int) ([]feedback.Sample, error) {
	return f.samples, f.readErr
}

func (f *fakeBackend) Ping(context.Context) error { return nil }

func newRouter(be *fakeBackend, opts ...site.Option) http.Handler {
	s, err := site.New(service.New(be), opts...)
	So(err, ShouldBeNil)
	r := chi.NewRouter()
	s.Register(context.Background(), r)
	return r
}

func get(h http.Handler, path string) (*httptest.ResponseRecorder, *goquery.Document) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	So(err, ShouldBeNil)
	return rec, doc
}

func postUpload(h http.Handler, token, filename, ctype, content string) (*httptest.ResponseRecorder, *goquery.Document) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("token", token)
	if filename != "" || content != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		hdr.Set("Content-Type", ctype)
		part, err := mw.CreatePart(hdr)
		So(err, ShouldBeNil)
		_, _ = io.WriteString(part, content)
	}
	So(mw.Close(), ShouldBeNil)

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	So(err, ShouldBeNil)
	return rec, doc
}

func formToken(doc *goquery.Document) string {
	tok, _ := doc.Find(`input[name="token"]`).Attr("value")
	return tok
}

const csvBody = "feedback_text\ngreat service\nterrible wait\n"

func TestLayout(t *testing.T) {
	Convey("Given the site router", t, func() {
		h := newRouter(&fakeBackend{})

		for _, path := range []string{"/", "/upload", "/dashboard"} {
			Convey("When requesting "+path, func() {
				_, doc := get(h, path)
				active := doc.Find("nav a.active")

				Convey("Then exactly its nav link is active", func() {
					So(active.Length(), ShouldEqual, 1)
					href, _ := active.Attr("href")
					So(href, ShouldEqual, path)
					current, _ := active.Attr("aria-current")
					So(current, ShouldEqual, "page")
					So(doc.Find("nav a[aria-current]").Length(), ShouldEqual, 1)
					So(doc.Find("nav a").Length(), ShouldEqual, 3)
				})
			})
		}

		Convey("When requesting a path outside the nav", func() {
			rec, _ := get(h, "/static/upload.js")

			Convey("Then the asset is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "Processing…")
			})
		})
	})
}

func TestHome(t *testing.T) {
	Convey("Given the home page", t, func() {
		rec, doc := get(newRouter(&fakeBackend{}), "/")

		Convey("Then the markdown content is rendered with a call to action", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(doc.Find("main h1").Text(), ShouldContainSubstring, "Sentiment Analysis")
			So(doc.Find(`main a[href="/upload"]`).Length(), ShouldEqual, 1)
			So(doc.Find("main li").Length(), ShouldEqual, 4)
		})
	})
}

func TestUploadPage(t *testing.T) {
	Convey("Given the upload form", t, func() {
		be := &fakeBackend{}
		h := newRouter(be)
		rec, doc := get(h, "/upload")

		Convey("Then it carries a token and the CSV requirements", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(submission.Valid(formToken(doc)), ShouldBeTrue)
			So(doc.Find(".requirements code").Length(), ShouldEqual, 5)
			So(doc.Find(".requirements").Text(), ShouldContainSubstring, "feedback_text")
			So(doc.Find("#upload-submit").Text(), ShouldEqual, "Upload and Analyze")
		})

		Convey("When a valid CSV is submitted", func() {
			tok := formToken(doc)
			rec, doc := postUpload(h, tok, "reviews.csv", "text/csv", csvBody)

			Convey("Then the success message and redirect are rendered", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(be.uploads.Load(), ShouldEqual, 1)
				So(doc.Find(".alert-success").Text(), ShouldContainSubstring, "Successfully processed 2 feedback entries!")
				So(doc.Find(".alert-success").Text(), ShouldContainSubstring, site.RedirectingMessage)
				So(rec.Header().Get("Refresh"), ShouldEqual, "2;url=/dashboard")
				content, _ := doc.Find(`meta[http-equiv="refresh"]`).Attr("content")
				So(content, ShouldEqual, "2;url=/dashboard")
				So(doc.Find("form").Length(), ShouldEqual, 0)
			})

			Convey("And the exact delay is handed to the redirect script", func() {
				ms, _ := doc.Find("#upload-success").Attr("data-redirect-ms")
				So(ms, ShouldEqual, "1500")
				target, _ := doc.Find("#upload-success").Attr("data-redirect-url")
				So(target, ShouldEqual, "/dashboard")
				So(doc.Find(`script[src="/static/upload.js"]`).Length(), ShouldEqual, 1)
			})

			Convey("And a replay of the same submission is refused", func() {
				rec, doc := postUpload(h, tok, "reviews.csv", "text/csv", csvBody)
				So(rec.Code, ShouldEqual, http.StatusConflict)
				So(doc.Find(".alert-error").Text(), ShouldEqual, "This upload was already submitted")
				So(be.uploads.Load(), ShouldEqual, 1)
			})
		})

		Convey("When a non-CSV file is submitted", func() {
			rec, doc := postUpload(h, formToken(doc), "notes.txt", "text/plain", "hello")

			Convey("Then it is blocked with an inline error", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(doc.Find(".alert-error").Text(), ShouldEqual, "Please select a valid CSV file")
				So(be.uploads.Load(), ShouldEqual, 0)
			})
		})

		Convey("When a file typed text/csv but not named .csv is submitted", func() {
			rec, _ := postUpload(h, formToken(doc), "export", "text/csv", csvBody)

			Convey("Then it is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(be.uploads.Load(), ShouldEqual, 1)
			})
		})

		Convey("When no file is submitted", func() {
			rec, doc := postUpload(h, formToken(doc), "", "", "")

			Convey("Then the missing-file error is shown", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(doc.Find(".alert-error").Text(), ShouldEqual, "Please select a CSV file to upload")
				So(be.uploads.Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a backend rejecting the CSV", t, func() {
		be := &fakeBackend{uploadErr: &backend.RequestError{
			Op: "backend.upload_feedback", Status: http.StatusBadRequest,
			Detail: "CSV file must contain a column named 'feedback_text'",
		}}
		h := newRouter(be)
		_, doc := get(h, "/upload")
		tok := formToken(doc)

		Convey("When uploading", func() {
			rec, doc := postUpload(h, tok, "reviews.csv", "text/csv", "a,b\n1,2\n")

			Convey("Then the detail is shown with a fresh form", func() {
				So(rec.Code, ShouldEqual, http.StatusBadGateway)
				So(doc.Find(".alert-error").Text(), ShouldContainSubstring, "feedback_text")
				So(formToken(doc), ShouldNotEqual, tok)
				So(rec.Header().Get("Refresh"), ShouldBeEmpty)
			})
		})
	})

	Convey("Given configured redirect delays", t, func() {
		cases := []struct {
			delay   time.Duration
			refresh string
			ms      string
		}{
			{0, "0;url=/dashboard", "0"},
			{2 * time.Second, "2;url=/dashboard", "2000"},
			{2100 * time.Millisecond, "3;url=/dashboard", "2100"},
		}
		for _, c := range cases {
			h := newRouter(&fakeBackend{}, site.WithRedirectDelay(c.delay))
			_, doc := get(h, "/upload")
			rec, doc := postUpload(h, formToken(doc), "reviews.csv", "text/csv", csvBody)

			So(rec.Header().Get("Refresh"), ShouldEqual, c.refresh)
			ms, _ := doc.Find("#upload-success").Attr("data-redirect-ms")
			So(ms, ShouldEqual, c.ms)
		}
	})

	Convey("Given a small upload limit", t, func() {
		be := &fakeBackend{}
		h := newRouter(be, site.WithMaxUploadBytes(64))

		Convey("When the upload exceeds it", func() {
			rec, doc := postUpload(h, "", "big.csv", "text/csv", strings.Repeat("x", 4096))

			Convey("Then it is rejected before reaching the backend", func() {
				So(rec.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(doc.Find(".alert-error").Text(), ShouldEqual, "The selected file is too large")
				So(be.uploads.Load(), ShouldEqual, 0)
			})
		})
	})
}

func TestDashboardPage(t *testing.T) {
	Convey("Given a backend with analysed feedback", t, func() {
		samples := make([]feedback.Sample, 25)
		for i := range samples {
			samples[i] = feedback.Sample{
				ID: feedback.SampleID(fmt.Sprint(i + 1)), FeedbackText: fmt.Sprintf("entry %d", i+1),
				SentimentLabel: feedback.Negative, SentimentScore: -0.4216,
			}
		}
		be := &fakeBackend{
			summary: feedback.Summary{Total: 100, Positive: 60, Negative: 25, Neutral: 15,
				PositivePercentage: 60, NegativePercentage: 25, NeutralPercentage: 15},
			keywords: []feedback.Keyword{{Word: "slow", Count: 9}, {Word: "rude", Count: 4}},
			samples:  samples,
		}

		Convey("When the dashboard is requested", func() {
			rec, doc := get(newRouter(be), "/dashboard")

			Convey("Then cards, charts and the table are rendered", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(doc.Find(".metric").Length(), ShouldEqual, 4)
				So(doc.Find(".metric-count").First().Text(), ShouldEqual, "100")
				So(doc.Find("#sentiment-pie path").Length(), ShouldEqual, 3)
				So(doc.Find("#sentiment-bars rect").Length(), ShouldEqual, 3)
				So(doc.Find("#keyword-bars rect").Length(), ShouldEqual, 2)
				So(doc.Find("#sample-feedback tbody tr").Length(), ShouldEqual, 20)
				So(doc.Find("#sample-feedback td.score").First().Text(), ShouldEqual, "-0.422")
				So(doc.Find(".note").Text(), ShouldEqual, "Showing 20 of 25 feedback entries")
			})
		})

		Convey("When there are no keywords", func() {
			be.keywords = nil
			_, doc := get(newRouter(be), "/dashboard")

			Convey("Then the keyword chart is hidden", func() {
				So(doc.Find("#keyword-bars").Length(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a backend with no data", t, func() {
		rec, doc := get(newRouter(&fakeBackend{}), "/dashboard")

		Convey("Then the empty state is shown without charts", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(doc.Find("main").Text(), ShouldContainSubstring, "No data available. Please upload feedback data first.")
			So(doc.Find("svg").Length(), ShouldEqual, 0)
			So(doc.Find(`main a[href="/upload"]`).Length(), ShouldEqual, 1)
		})
	})

	Convey("Given a failing backend", t, func() {
		be := &fakeBackend{readErr: &backend.RequestError{Op: "backend.get_sentiment_summary", Status: 500, Detail: "Error getting sentiment summary"}}
		rec, doc := get(newRouter(be), "/dashboard")

		Convey("Then the error and a retry action are shown", func() {
			So(rec.Code, ShouldEqual, http.StatusBadGateway)
			So(doc.Find(".alert-error").Text(), ShouldEqual, "Error getting sentiment summary")
			So(doc.Find(`main a[href="/dashboard"]`).Text(), ShouldEqual, "Retry")
			So(doc.Find("svg").Length(), ShouldEqual, 0)
		})
	})
}
