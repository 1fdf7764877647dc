// internal/httputil/response.go
package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
)

// Envelope wraps every successful response body.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json encode failed", "error", err.Error())
	}
}

func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Status: "success", Message: message, Data: data})
}

func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Envelope{Status: "success", Message: message, Data: data})
}

// Error maps err to its HTTP status. Internal errors are logged and hidden
// behind a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := appErrors.HTTPStatus(err)
	kind := appErrors.KindOf(err)
	message := err.Error()
	if kind == appErrors.KindInternal {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		message = "internal server error"
	}
	JSON(w, status, ErrorResponse{Status: "error", Kind: kind.String(), Message: message})
}

// BadRequest writes a 400 validation error.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, ErrorResponse{
		Status:  "error",
		Kind:    appErrors.KindValidation.String(),
		Message: message,
	})
}

// Decode reads a JSON body into dst. It returns false after writing a 400
// when the body cannot be parsed.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// QueryInt returns the named query parameter, or 0 when absent or not a
// number. Callers clamp it.
func QueryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
