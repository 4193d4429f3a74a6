package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/Formula-SAE/bugreport/internal/db"
)

// apiError is an error with the status and JSON body sent to the client.
type apiError struct {
	status int
	body   any
}

func (e *apiError) Error() string {
	if m, ok := e.body.(map[string]string); ok {
		if detail, ok := m["detail"]; ok {
			return detail
		}
	}
	return fmt.Sprintf("%d: %v", e.status, e.body)
}

func detailError(status int, msg string) *apiError {
	return &apiError{status: status, body: map[string]string{"detail": msg}}
}

// fieldErrors maps a request field to its validation messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) any() bool {
	return len(f) > 0
}

func validationError(fields fieldErrors) *apiError {
	return &apiError{status: http.StatusBadRequest, body: fields}
}

func forbiddenFields(fields fieldErrors) *apiError {
	return &apiError{status: http.StatusForbidden, body: fields}
}

var (
	errNotAuthenticated = detailError(http.StatusUnauthorized, "Authentication credentials were not provided.")
	errPermissionDenied = detailError(http.StatusForbidden, "You do not have permission to perform this action.")
	errNotFound         = detailError(http.StatusNotFound, "Not found.")
)

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.status, apiErr.body)
		return
	}

	if db.IsNotFound(err) {
		writeJSON(w, errNotFound.status, errNotFound.body)
		return
	}

	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, errNotFound)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, detailError(http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method)))
}
