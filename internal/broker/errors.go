package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
)

// APIError reports a failed exchange with the broker.
type APIError struct {
	// Status is the HTTP status, or 0 when no response arrived.
	Status int

	// Code is Druid's "error" field, e.g. "Query timeout".
	Code string

	// Class is Druid's errorClass, when the body carried one.
	Class string

	// Message describes the failure.
	Message string

	Err error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Code != "" && e.Code != msg {
		msg = e.Code + ": " + msg
	}
	switch {
	case e.Status != 0 && e.Class != "":
		return fmt.Sprintf("druid: status %d: %s (%s)", e.Status, msg, e.Class)
	case e.Status != 0:
		return fmt.Sprintf("druid: status %d: %s", e.Status, msg)
	case e.Err != nil:
		return fmt.Sprintf("druid: %s: %v", e.Message, e.Err)
	}
	return "druid: " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Druid error codes that indicate an overloaded or slow cluster.
var transientCodes = []string{
	"Query capacity exceeded",
	"Query timeout",
	"Resource limit exceeded",
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	switch {
	case e.Status == 0:
		return e.Err != nil && !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	case e.Status == http.StatusTooManyRequests, e.Status >= 500 && e.Status != http.StatusNotImplemented:
		return true
	}
	for _, code := range transientCodes {
		if strings.EqualFold(e.Code, code) {
			return true
		}
	}
	return false
}

// IsTemporary reports whether err wraps a temporary APIError.
func IsTemporary(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Temporary()
}

// responseError builds an APIError from a non-2xx response. Druid error
// bodies look like {"error":"...","errorMessage":"...","errorClass":"..."}.
func responseError(status int, body []byte) *APIError {
	ae := &APIError{Status: status}
	if code, err := jsonparser.GetString(body, "error"); err == nil {
		ae.Code = code
	}
	if msg, err := jsonparser.GetString(body, "errorMessage"); err == nil {
		ae.Message = msg
	}
	if class, err := jsonparser.GetString(body, "errorClass"); err == nil {
		ae.Class = class
	}
	if ae.Message == "" {
		ae.Message = ae.Code
	}
	if ae.Message == "" {
		ae.Message = strings.TrimSpace(string(body))
	}
	if ae.Message == "" {
		ae.Message = http.StatusText(status)
	}
	return ae
}
