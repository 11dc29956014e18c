package stage

import (
	"context"
	"errors"
	"strings"
)

// ErrorKind is the closed set of failure classes a stage can report. The
// orchestrator's healing dispatch is a total match over this set, so adding a
// kind here means deciding its healing strategy there.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindRateLimit  ErrorKind = "rate_limit"
	KindComplexity ErrorKind = "complexity"
	KindFormat     ErrorKind = "format"
	KindUnknown    ErrorKind = "unknown"
)

// Error is a stage failure tagged with its kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError tags a failure with its kind.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Classify resolves the error kind for healing dispatch. Tagged errors answer
// directly; anything else goes through substring classification of the error
// text, kept as a fallback so foreign Processor implementations that only
// report strings still heal.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return ClassifyText(err.Error())
}

// ClassifyText maps an untagged error message onto the kind set by substring
// match. Deliberately coarse; unmatched text lands in KindUnknown.
func ClassifyText(message string) ErrorKind {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "timeout"):
		return KindTimeout
	case strings.Contains(msg, "rate limit"):
		return KindRateLimit
	case strings.Contains(msg, "complex"), strings.Contains(msg, "too large"):
		return KindComplexity
	case strings.Contains(msg, "format"), strings.Contains(msg, "syntax"):
		return KindFormat
	default:
		return KindUnknown
	}
}
