package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/httpsys/pkg/httpsys"
)

// Problem represents an RFC 7807 "problem details" response.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// StatusCode and StatusText carry the native status of an HTTP Server
	// API failure.
	StatusCode uint32 `json:"status_code,omitempty"`
	StatusText string `json:"status_text,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, p *Problem) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// WriteError maps err to a problem response. Native status codes choose the
// HTTP status and are echoed in the body.
func WriteError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	p := &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
	}
	if code, ok := httpsys.StatusCode(err); ok {
		p.StatusCode = code
		p.StatusText = httpsys.StatusText(code)
	}
	writeProblem(w, p)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, httpsys.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, httpsys.ErrClosed):
		return http.StatusConflict
	}

	code, ok := httpsys.StatusCode(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case httpsys.ErrorFileNotFound, httpsys.ErrorNotFound:
		return http.StatusNotFound
	case httpsys.ErrorAlreadyExists:
		return http.StatusConflict
	case httpsys.ErrorAccessDenied:
		return http.StatusForbidden
	case httpsys.ErrorInvalidParameter, httpsys.ErrorInvalidName:
		return http.StatusBadRequest
	case httpsys.ErrorNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
