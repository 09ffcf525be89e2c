package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/jonwraymond/entitycache/auth"
	"github.com/jonwraymond/entitycache/cache"
)

// Error codes carried in error responses.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeBadGateway         = "BAD_GATEWAY"
)

// Response is the envelope of every /cache response.
type Response struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Error    *APIError `json:"error,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
}

func metadata(r *http.Request) Metadata {
	return Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetReqID(r.Context()),
	}
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Response{Status: "success", Data: data, Metadata: metadata(r)})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, Response{
		Status:   "error",
		Error:    &APIError{Code: code, Message: message},
		Metadata: metadata(r),
	})
}

// writeCacheError maps a classified cache error to a response.
func writeCacheError(w http.ResponseWriter, r *http.Request, err error) {
	status := cache.StatusOf(err)
	writeError(w, r, status, codeFor(status), err.Error())
}

// writeAuthError adapts auth failures to the envelope.
func writeAuthError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := "authentication required"
	if err != nil && !errors.Is(err, auth.ErrMissingCredentials) {
		msg = err.Error()
	}
	writeError(w, r, status, codeFor(status), msg)
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	case http.StatusBadGateway:
		return CodeBadGateway
	default:
		return CodeInternal
	}
}
