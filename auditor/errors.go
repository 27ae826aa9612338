package auditor

import (
	"errors"

	"github.com/hazyhaar/designaudit/design"
)

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s).
	ErrInvalidURL = errors.New("auditor: url must be absolute http or https")

	// ErrNoHistory is returned by history lookups when no recorder is configured.
	ErrNoHistory = errors.New("auditor: audit history disabled")
)

// Failure kinds reported to callers.
const (
	KindCapture        = "capture"
	KindClassification = "classification"
)

// Kind names the collaborator responsible for err, or "" when neither
// capture nor classification failed.
func Kind(err error) string {
	switch {
	case errors.Is(err, design.ErrCaptureFailed):
		return KindCapture
	case errors.Is(err, design.ErrClassificationFailed):
		return KindClassification
	}
	return ""
}
