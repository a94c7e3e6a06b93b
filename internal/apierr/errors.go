// Package apierr normalizes transport and server failures into a small
// taxonomy that callers branch on with errors.Is.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation    Kind = "validation"    // 4xx other than 401/403/404: payload rejected
	KindAuth          Kind = "auth"          // 401: credential invalid or expired
	KindAuthorization Kind = "authorization" // 403: valid credential, insufficient role
	KindNotFound      Kind = "not_found"     // 404: identity no longer exists
	KindNetwork       Kind = "network"       // no response received
	KindServer        Kind = "server"        // 5xx
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuth          = &Error{Kind: KindAuth}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrServer        = &Error{Kind: KindServer}
)

// Error is a classified API failure.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 for network failures
	Message string // human-readable, server supplied when available
	Op      string // operation that failed, e.g. "tasks.list"
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindForStatus maps an HTTP status to a Kind. 2xx/3xx return "".
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return ""
	}
}

// FromResponse builds an *Error from a non-2xx response. The message is taken
// from the body's "msg", "error" or "message" field, else fallback.
func FromResponse(op string, status int, body []byte, fallback string) *Error {
	msg := serverMessage(body)
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{
		Kind:    KindForStatus(status),
		Status:  status,
		Message: msg,
		Op:      op,
	}
}

// Network wraps a failure where no response was received.
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "network error: " + err.Error(), Err: err}
}

// WithFallback returns err with its message replaced by fallback when the
// server did not supply one. Non-*Error values are returned unchanged.
func WithFallback(err error, fallback string) error {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Kind == KindNetwork || apiErr.Message == "" || apiErr.Message == http.StatusText(apiErr.Status) {
		cp := *apiErr
		cp.Message = fallback
		return &cp
	}
	return err
}

// Message returns the text to show a user for err, or fallback when err
// carries nothing useful.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"msg", "error", "message"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
