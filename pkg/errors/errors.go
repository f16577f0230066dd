package errors

import "fmt"

// Kind classifies the failures the scraper can run into
type Kind string

const (
	KindTransport   Kind = "transport"   // network failure or non-2xx status, retried up to the bound
	KindDecode      Kind = "decode"      // malformed API payload, never retried
	KindTransform   Kind = "transform"   // item document missing required blocks, skips the item
	KindPersistence Kind = "persistence" // filesystem read/write failure, fatal to the enclosing batch
	KindCorruption  Kind = "corruption"  // unparsable local state, downgraded and logged
	KindRotation    Kind = "rotation"    // identity rotation failure, fatal to the run
	KindUnknown     Kind = "unknown"
)

// Error carries the failure kind alongside the message and, for HTTP
// failures, the last status code observed.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	URL     string
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s error (code %d): %s [%s]", e.Kind, e.Code, e.Message, e.URL)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// New creates an Error with the given kind and message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether an error kind is worth another attempt.
func IsRetryable(kind Kind) bool {
	return kind == KindTransport
}

// IsRetryableStatusCode reports whether an HTTP status code indicates a
// retryable failure.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
