// Package upload holds the rules of the CSV upload flow: what counts as a
// valid selection and which message the user sees for each outcome.
package upload

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/okian/feedlens/internal/domain/feedback"
)

// Validation errors. They are raised before any network call and their text
// is shown to the user as is.
var ( //nolint:stylecheck // user-facing messages
	ErrNoFile    = errors.New("Please select a CSV file to upload")
	ErrNotCSV    = errors.New("Please select a valid CSV file")
	ErrTooLarge  = errors.New("The selected file is too large")
	ErrDuplicate = errors.New("This upload was already submitted")
)

// FallbackMessage is shown when a failure carries no usable text.
const FallbackMessage = "Failed to upload file"

// CSVMediaType is the MIME type accepted as CSV regardless of file name.
const CSVMediaType = "text/csv"

// AcceptedColumns lists the header names the backend recognises as the
// feedback column, in its lookup order.
var AcceptedColumns = []string{"feedback_text", "feedback", "text", "comment", "review"} //nolint:gochecknoglobals // fixed enumeration

// Selection is the file chosen by the user.
type Selection struct {
	Filename    string
	ContentType string
	Size        int64
}

// Validate accepts files named *.csv (case-insensitive) or typed text/csv.
func Validate(s Selection) error {
	if strings.TrimSpace(s.Filename) == "" && s.Size == 0 {
		return ErrNoFile
	}
	if strings.HasSuffix(strings.ToLower(s.Filename), ".csv") {
		return nil
	}
	if mt, _, err := mime.ParseMediaType(s.ContentType); err == nil && mt == CSVMediaType {
		return nil
	}
	return ErrNotCSV
}

// RejectionReason maps a validation error to a metrics label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNoFile):
		return "no_file"
	case errors.Is(err, ErrNotCSV):
		return "not_csv"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	default:
		return "other"
	}
}

// SuccessMessage is shown after the backend processed the upload.
func SuccessMessage(rowsProcessed int) string {
	return fmt.Sprintf("Successfully processed %d feedback entries!", rowsProcessed)
}

// ErrorMessage picks the text shown for a failed upload: the backend's detail
// if present, else the error's own message, else fallback.
func ErrorMessage(err error, fallback string) string {
	return feedback.Message(err, fallback)
}
