package backend_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/okian/feedlens/internal/adapters/backend"
	"github.com/okian/feedlens/internal/domain/feedback"
	. "github.com/smartystreets/goconvey/convey"
)

func newClient(url string) *backend.Client {
	c, err := backend.New(url)
	So(err, ShouldBeNil)
	return c
}

func TestNew(t *testing.T) {
	Convey("Given backend base URLs", t, func() {
		Convey("Then absolute URLs are accepted", func() {
			c, err := backend.New("http://127.0.0.1:8000/")
			So(err, ShouldBeNil)
			So(c, ShouldNotBeNil)
		})

		Convey("And relative URLs are rejected", func() {
			_, err := backend.New("127.0.0.1:8000")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestUploadFeedback(t *testing.T) {
	Convey("Given a backend accepting uploads", t, func() {
		var calls atomic.Int32
		var gotName, gotBody, gotType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.Method != http.MethodPost || r.URL.Path != "/upload-feedback" {
				http.NotFound(w, r)
				return
			}
			file, hdr, err := r.FormFile("file")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"detail":"no file"}`)
				return
			}
			defer file.Close()
			b, _ := io.ReadAll(file)
			gotName, gotBody, gotType = hdr.Filename, string(b), hdr.Header.Get("Content-Type")
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"message":"ok","filename":"reviews.csv","rows_processed":2,"preview":[]}`)
		}))
		defer srv.Close()
		c := newClient(srv.URL)

		Convey("When a CSV is uploaded once", func() {
			res, err := c.UploadFeedback(context.Background(), "reviews.csv", strings.NewReader("feedback_text\ngreat\nbad\n"))

			Convey("Then the backend is called exactly once with the file", func() {
				So(err, ShouldBeNil)
				So(calls.Load(), ShouldEqual, 1)
				So(gotName, ShouldEqual, "reviews.csv")
				So(gotBody, ShouldEqual, "feedback_text\ngreat\nbad\n")
				So(gotType, ShouldEqual, "text/csv")
				So(res.RowsProcessed, ShouldEqual, 2)
				So(res.Filename, ShouldEqual, "reviews.csv")
			})
		})
	})

	Convey("Given a backend rejecting the CSV", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"CSV file must contain a column named 'feedback_text'"}`)
		}))
		defer srv.Close()
		c := newClient(srv.URL)

		Convey("When uploading", func() {
			_, err := c.UploadFeedback(context.Background(), "x.csv", strings.NewReader("a\n1\n"))

			Convey("Then a RequestError carries status and detail", func() {
				So(errors.Is(err, backend.ErrRequest), ShouldBeTrue)
				var re *backend.RequestError
				So(errors.As(err, &re), ShouldBeTrue)
				So(re.Status, ShouldEqual, http.StatusBadRequest)
				So(re.Detail, ShouldContainSubstring, "feedback_text")
				So(backend.Detail(err), ShouldEqual, re.Detail)
				So(backend.Status(err), ShouldEqual, http.StatusBadRequest)
				So(feedback.Message(err, "fallback"), ShouldEqual, re.Detail)
			})
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given a backend with analysed feedback", t, func() {
		var lastQuery atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastQuery.Store(r.URL.RawQuery)
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/sentiment-summary":
				_, _ = io.WriteString(w, `{"total":100,"positive":60,"negative":25,"neutral":15,"positive_percentage":60.0,"negative_percentage":25.0,"neutral_percentage":15.0}`)
			case "/keywords":
				_, _ = io.WriteString(w, `{"keywords":[{"word":"slow","count":9},{"word":"rude","count":4}],"count":2}`)
			case "/sample-feedback":
				_, _ = io.WriteString(w, `{"feedback":[{"id":1,"feedback_text":"love it","sentiment_label":"Positive","sentiment_score":0.6369}],"count":1}`)
			case "/":
				_, _ = io.WriteString(w, `{"message":"Customer Feedback & Sentiment Analysis API"}`)
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()
		c := newClient(srv.URL)
		ctx := context.Background()

		Convey("When fetching the summary", func() {
			s, err := c.GetSentimentSummary(ctx)

			Convey("Then the exact counts are decoded", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, feedback.Summary{Total: 100, Positive: 60, Negative: 25, Neutral: 15,
					PositivePercentage: 60, NegativePercentage: 25, NeutralPercentage: 15})
			})
		})

		Convey("When fetching keywords with the default limit", func() {
			kws, err := c.GetKeywords(ctx, 0)

			Convey("Then limit=10 is sent and order is preserved", func() {
				So(err, ShouldBeNil)
				So(lastQuery.Load(), ShouldEqual, "limit=10")
				So(kws, ShouldResemble, []feedback.Keyword{{Word: "slow", Count: 9}, {Word: "rude", Count: 4}})
			})
		})

		Convey("When fetching samples with the default limit", func() {
			samples, err := c.GetSampleFeedback(ctx, -1)

			Convey("Then limit=50 is sent and rows decode", func() {
				So(err, ShouldBeNil)
				So(lastQuery.Load(), ShouldEqual, "limit=50")
				So(samples, ShouldHaveLength, 1)
				So(samples[0].ID, ShouldEqual, feedback.SampleID("1"))
				So(samples[0].SentimentLabel, ShouldEqual, feedback.Positive)
			})
		})

		Convey("When fetching samples with an explicit limit", func() {
			_, err := c.GetSampleFeedback(ctx, 7)

			Convey("Then that limit is sent", func() {
				So(err, ShouldBeNil)
				So(lastQuery.Load(), ShouldEqual, "limit=7")
			})
		})

		Convey("When pinging", func() {
			Convey("Then the banner endpoint answers", func() {
				So(c.Ping(ctx), ShouldBeNil)
			})
		})
	})
}

func TestFailures(t *testing.T) {
	Convey("Given failing backends", t, func() {
		ctx := context.Background()

		Convey("When the server errors without a detail", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, "oops")
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).GetSentimentSummary(ctx)

			Convey("Then the status is kept and detail is empty", func() {
				So(backend.Status(err), ShouldEqual, http.StatusInternalServerError)
				So(backend.Detail(err), ShouldEqual, "")
				So(err.Error(), ShouldContainSubstring, "status code 500")
			})
		})

		Convey("When the detail is a validation list", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = io.WriteString(w, `{"detail":[{"loc":["query","limit"],"msg":"not an int"}]}`)
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).GetKeywords(ctx, 5)

			Convey("Then the list is surfaced as compact JSON", func() {
				So(backend.Detail(err), ShouldEqual, `[{"loc":["query","limit"],"msg":"not an int"}]`)
			})
		})

		Convey("When a 2xx body is malformed", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"keywords": "nope"`)
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).GetKeywords(ctx, 5)

			Convey("Then it is a decode error", func() {
				So(errors.Is(err, backend.ErrDecode), ShouldBeTrue)
				So(errors.Is(err, backend.ErrRequest), ShouldBeTrue)
			})
		})

		Convey("When the backend is unreachable", func() {
			srv := httptest.NewServer(http.NotFoundHandler())
			url := srv.URL
			srv.Close()

			_, err := newClient(url).GetSampleFeedback(ctx, 5)

			Convey("Then a transport error with no status is returned", func() {
				So(errors.Is(err, backend.ErrRequest), ShouldBeTrue)
				So(backend.Status(err), ShouldEqual, 0)
				So(backend.Detail(err), ShouldEqual, "")
			})
		})

		Convey("When the context is cancelled", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			}))
			defer srv.Close()
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			err := newClient(srv.URL).Ping(cctx)

			Convey("Then the call fails with the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
