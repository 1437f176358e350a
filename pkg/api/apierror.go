// Package api exposes the plan lifecycle over HTTP with RFC 7807
// Problem Detail error responses.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/allstar-forge/forge/pkg/contracts"
	"github.com/allstar-forge/forge/pkg/service"
)

// ProblemDetail is the RFC 7807 error body every endpoint returns on
// failure.
type ProblemDetail struct {
	Type     string `json:"type"`               // URI identifying the problem class
	Title    string `json:"title"`              // short summary of the problem class
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // explanation of this occurrence
	Instance string `json:"instance,omitempty"` // request path
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:     fmt.Sprintf("https://allstar-forge.dev/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteServiceError maps a service-layer error onto the right HTTP
// status. The raw error text of internal failures is never exposed.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case contracts.IsValidation(err):
		WriteError(w, r, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, contracts.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, contracts.ErrAlreadyPending), errors.Is(err, contracts.ErrExecutionExists):
		WriteError(w, r, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, service.ErrRateLimited):
		w.Header().Set("Retry-After", "5")
		WriteError(w, r, http.StatusTooManyRequests, "Too Many Requests",
			"Rate limit exceeded. Retry after the specified interval.")
	default:
		slog.Error("internal server error", "path", r.URL.Path, "error", err)
		WriteError(w, r, http.StatusInternalServerError, "Internal Server Error",
			"An unexpected error occurred. Please try again later.")
	}
}
