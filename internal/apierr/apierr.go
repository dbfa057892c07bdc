// Package apierr defines the error kinds surfaced to job records and to
// HTTP responses, following the sentinel-error-plus-wrapping discipline
// internal/jobs/errors.go uses for ErrJobNotFound: a small set of
// package-level sentinels checked with errors.Is, each carrying a status
// code and wrapped with call-site context via fmt.Errorf("%w: ...").
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies one of the error categories a job or response can carry.
type Kind string

const (
	KindBadRequest         Kind = "BadRequest"
	KindFetchFailed        Kind = "FetchFailed"
	KindEncoderUnavailable Kind = "EncoderUnavailable"
	KindTranscodeFailed    Kind = "TranscodeFailed"
	KindIOError            Kind = "IOError"
	KindNotReady           Kind = "NotReady"
	KindNotFound           Kind = "NotFound"
	KindCancelled          Kind = "Cancelled"
)

// Sentinel errors, one per kind, checkable with errors.Is.
var (
	ErrBadRequest         = errors.New(string(KindBadRequest))
	ErrFetchFailed        = errors.New(string(KindFetchFailed))
	ErrEncoderUnavailable = errors.New(string(KindEncoderUnavailable))
	ErrTranscodeFailed    = errors.New(string(KindTranscodeFailed))
	ErrIOError            = errors.New(string(KindIOError))
	ErrNotReady           = errors.New(string(KindNotReady))
	ErrNotFound           = errors.New(string(KindNotFound))
	ErrCancelled          = errors.New(string(KindCancelled))
)

var statusByKind = map[Kind]int{
	KindBadRequest:         http.StatusBadRequest,
	KindFetchFailed:        http.StatusUnprocessableEntity,
	KindEncoderUnavailable: http.StatusServiceUnavailable,
	KindTranscodeFailed:    http.StatusUnprocessableEntity,
	KindIOError:            http.StatusInternalServerError,
	KindNotReady:           http.StatusNotFound,
	KindNotFound:           http.StatusNotFound,
	KindCancelled:          http.StatusUnprocessableEntity,
}

var sentinelByKind = map[Kind]error{
	KindBadRequest:         ErrBadRequest,
	KindFetchFailed:        ErrFetchFailed,
	KindEncoderUnavailable: ErrEncoderUnavailable,
	KindTranscodeFailed:    ErrTranscodeFailed,
	KindIOError:            ErrIOError,
	KindNotReady:           ErrNotReady,
	KindNotFound:           ErrNotFound,
	KindCancelled:          ErrCancelled,
}

// New wraps a sentinel for the given kind with call-site context.
func New(kind Kind, format string, args ...any) error {
	sentinel, ok := sentinelByKind[kind]
	if !ok {
		sentinel = ErrIOError
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// Wrap attaches a kind to an existing error.
func Wrap(kind Kind, err error) error {
	sentinel, ok := sentinelByKind[kind]
	if !ok {
		sentinel = ErrIOError
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Status returns the HTTP status code for the first recognized kind the
// error wraps, defaulting to 500 if none match.
func Status(err error) int {
	for kind, sentinel := range sentinelByKind {
		if errors.Is(err, sentinel) {
			return statusByKind[kind]
		}
	}
	return http.StatusInternalServerError
}

// Message returns err's text with the leading kind prefix stripped, for
// HTTP error bodies where the status code already conveys the kind.
func Message(err error) string {
	msg := err.Error()
	if kind := KindOf(err); kind != "" {
		msg = strings.TrimPrefix(msg, string(kind)+": ")
	}
	return msg
}

// KindOf returns the matching Kind for err, or "" if none match.
func KindOf(err error) Kind {
	for kind, sentinel := range sentinelByKind {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}
