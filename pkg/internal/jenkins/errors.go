package jenkins

import (
	"fmt"
	"strings"
)

// ErrorKind classifies failures surfaced by the Jenkins client.
type ErrorKind string

const (
	// KindConnection means Jenkins could not be reached at all.
	KindConnection ErrorKind = "connection_error"
	// KindCrumbFetch means the crumb issuer failed or returned garbage.
	KindCrumbFetch ErrorKind = "crumb_fetch_error"
	// KindAuth means Jenkins rejected the credentials.
	KindAuth ErrorKind = "auth_error"
	// KindJobNotFound means Jenkins answered 404 for a job.
	KindJobNotFound ErrorKind = "job_not_found"
	// KindBuildNotFound means Jenkins answered 404 for a build.
	KindBuildNotFound ErrorKind = "build_not_found"
	// KindQueueItemNotFound means Jenkins answered 404 for a queue item.
	KindQueueItemNotFound ErrorKind = "queue_item_not_found"
	// KindAPI covers every other unexpected status.
	KindAPI ErrorKind = "api_error"
	// KindInvalidArgument is returned before any request is sent.
	KindInvalidArgument ErrorKind = "invalid_argument"
)

// Sentinels to be used with errors.Is, only the kind is compared.
var (
	ErrConnection        = &Error{Kind: KindConnection}
	ErrCrumbFetch        = &Error{Kind: KindCrumbFetch}
	ErrAuth              = &Error{Kind: KindAuth}
	ErrJobNotFound       = &Error{Kind: KindJobNotFound}
	ErrBuildNotFound     = &Error{Kind: KindBuildNotFound}
	ErrQueueItemNotFound = &Error{Kind: KindQueueItemNotFound}
	ErrAPI               = &Error{Kind: KindAPI}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
)

// bodyExcerptLimit caps how much of a response body ends up in messages.
const bodyExcerptLimit = 256

// Error is the typed failure returned by all Jenkins operations.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

func newError(kind ErrorKind, status int, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

func excerpt(body []byte) string {
	text := strings.TrimSpace(string(body))

	if len(text) > bodyExcerptLimit {
		return text[:bodyExcerptLimit] + "..."
	}

	return text
}

// statusError maps a non-2xx response to the generic part of the taxonomy.
// Callers handle 404 themselves since only they know what was missing.
func statusError(resp *Response, action string) *Error {
	switch resp.StatusCode {
	case 401, 403:
		return newError(KindAuth, resp.StatusCode, "%s rejected by Jenkins: %s", action, excerpt(resp.Body))
	default:
		return newError(KindAPI, resp.StatusCode, "%s failed: %s", action, excerpt(resp.Body))
	}
}
