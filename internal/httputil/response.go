// Package httputil renders the JSON envelopes every endpoint responds with.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/sirupsen/logrus"
)

// Response is the success envelope.
type Response struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// ErrorResponse is the failure envelope. Data is always null.
type ErrorResponse struct {
	StatusCode int             `json:"statusCode"`
	Data       interface{}     `json:"data"`
	Message    string          `json:"message"`
	Errors     []apperr.Detail `json:"errors"`
	Success    bool            `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, Response{StatusCode: status, Data: data, Message: message, Success: status < 400})
}

// WriteError renders err. Domain errors keep their status, message and
// details; anything else becomes a generic 500. Causes are logged, never sent.
func WriteError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err)
	}

	entry := log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": e.Status,
		"kind":   e.Kind,
	})
	if e.Cause != nil {
		entry = entry.WithError(e.Cause)
	}
	if e.Status >= http.StatusInternalServerError {
		entry.Error(e.Message)
	} else {
		entry.Debug(e.Message)
	}

	details := e.Details
	if details == nil {
		details = []apperr.Detail{}
	}
	writeJSON(w, e.Status, ErrorResponse{
		StatusCode: e.Status,
		Message:    e.Message,
		Errors:     details,
		Success:    false,
	})
}

// DecodeJSON reads a JSON body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		// empty body with unknown length
		return nil
	}
	if err != nil {
		return apperr.Validation("Invalid request body", apperr.Detail{Message: err.Error()})
	}
	return nil
}
