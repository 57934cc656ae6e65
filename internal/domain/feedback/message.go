package feedback

import (
	"errors"
	"strings"
)

// Detailer is implemented by errors that carry a message written for users,
// such as the detail field of an analysis API error response.
type Detailer interface {
	UserDetail() string
}

// Message picks the text shown to users for err: the first user detail found
// in its chain, else the error's own text, else fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var d Detailer
	if errors.As(err, &d) {
		if msg := strings.TrimSpace(d.UserDetail()); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
