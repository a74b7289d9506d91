// Package apperr is the error taxonomy of the registration API and its
// mapping onto HTTP responses.
//
// Every client-facing failure is an *Error with a Kind. The Kind decides the
// status code; Message and Code are safe to show to users; Details carries
// structured extras (field errors, conflicting values). Cause is for server
// logs only and is never written to the response.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Kind classifies an error for HTTP mapping.
type Kind int

const (
	Validation Kind = iota + 1
	Conflict
	PayloadTooLarge
	RateLimited
	Unavailable
	Upstream
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case RateLimited:
		return http.StatusTooManyRequests
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case PayloadTooLarge:
		return "payload_too_large"
	case RateLimited:
		return "rate_limited"
	case Unavailable:
		return "unavailable"
	default:
		return "upstream"
	}
}

// Error is a classified, client-presentable failure.
type Error struct {
	Kind    Kind
	Message string         // human-readable, shown to the user
	Code    string         // short machine-friendly label, e.g. "Duplicate team name"
	Details map[string]any // merged into the JSON body
	Headers http.Header    // extra response headers (e.g. Retry-After)
	Cause   error          // logged, never rendered
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Cause.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Cause }

// With returns a copy of e with key set in Details.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// New builds an *Error of the given kind.
func New(kind Kind, message, code string) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

// Wrap builds an *Error that records cause for the server log.
func Wrap(kind Kind, message, code string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Code: code, Cause: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Body is the JSON form of an *Error: {message, error, ...details}.
func (e *Error) Body() map[string]any {
	body := make(map[string]any, len(e.Details)+2)
	for k, v := range e.Details {
		body[k] = v
	}
	body["message"] = e.Message
	body["error"] = e.Code
	return body
}

// Write renders err as JSON. Errors that are not *Error are treated as
// upstream failures and rendered with a generic message. Upstream causes
// are logged with the given logger.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	e, ok := As(err)
	if !ok {
		e = Wrap(Upstream, "An error occurred while processing the request.", "Internal server error", err)
	}
	if e.Kind == Upstream || e.Kind == Unavailable {
		if log != nil {
			log.Error("request failed",
				zap.String("kind", e.Kind.String()),
				zap.String("code", e.Code),
				zap.Error(e.Cause))
		}
	}
	for k, vs := range e.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	WriteJSON(w, e.Kind.Status(), e.Body())
}

// WriteJSON writes v with the given status and a JSON content type.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
