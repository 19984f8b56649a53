package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed API call.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindServer     Kind = "server"
	KindDecode     Kind = "decode"
)

// Error is returned for every failed request. Message carries the server's
// own wording when the response had an error payload.
type Error struct {
	Kind       Kind
	StatusCode int
	Method     string
	Path       string
	Message    string
	Messages   []string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindNetwork:
		return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
	case e.Kind == KindDecode:
		return fmt.Sprintf("%s %s: decode response: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.Path, e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// UserMessage returns text suitable for an alert: the server message for
// validation failures, a generic line otherwise.
func UserMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "Something went wrong. Please try again."
	}
	switch apiErr.Kind {
	case KindNetwork:
		return "Could not reach the server. Check your connection and try again."
	case KindValidation, KindForbidden, KindNotFound:
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return "Something went wrong. Please try again."
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindForbidden
	default:
		return KindServer
	}
}

type errorPayload struct {
	Error  string          `json:"error"`
	Errors json.RawMessage `json:"errors"`
}

// parseErrorBody extracts messages from {"error": "..."} or {"errors": [...]}.
// The errors field may also be an object of field -> message.
func parseErrorBody(body []byte) []string {
	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil
	}

	var msgs []string
	if p.Error != "" {
		msgs = append(msgs, p.Error)
	}
	if len(p.Errors) == 0 {
		return msgs
	}

	var list []string
	if err := json.Unmarshal(p.Errors, &list); err == nil {
		return append(msgs, list...)
	}
	var fields map[string]string
	if err := json.Unmarshal(p.Errors, &fields); err == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msgs = append(msgs, k+": "+fields[k])
		}
	}
	return msgs
}

func newStatusError(method, path string, status int, body []byte) *Error {
	msgs := parseErrorBody(body)
	return &Error{
		Kind:       kindForStatus(status),
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    strings.Join(msgs, "; "),
		Messages:   msgs,
	}
}
