package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/allstar-forge/forge/pkg/audit"
	"github.com/allstar-forge/forge/pkg/contracts"
	"github.com/allstar-forge/forge/pkg/service"
)

// Server routes HTTP requests to the plan service.
type Server struct {
	service *service.Service
	events  *audit.EventStore
}

// NewServer creates the HTTP API around the plan service.
func NewServer(svc *service.Service) *Server {
	return &Server{service: svc}
}

// WithAuditStore enables the read-only audit endpoints.
func (s *Server) WithAuditStore(events *audit.EventStore) *Server {
	s.events = events
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/plans", s.handleSubmitPlan)
	mux.HandleFunc("GET /api/v1/plans/{id}", s.handlePlanStatus)
	mux.HandleFunc("GET /api/v1/approvals", s.handleListPending)
	mux.HandleFunc("POST /api/v1/approvals/{id}", s.handleResolveApproval)
	mux.HandleFunc("GET /api/v1/audit/events", s.handleAuditEvents)
	mux.HandleFunc("GET /api/v1/audit/summary", s.handleAuditSummary)
	mux.HandleFunc("GET /health", s.handleHealth)

	return WithAttribution(WithRequestLog(mux))
}

func (s *Server) handleSubmitPlan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req contracts.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}

	result, err := s.service.SubmitPlan(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.ApprovalRequired {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

func (s *Server) handlePlanStatus(w http.ResponseWriter, r *http.Request) {
	execution, err := s.service.GetPlanStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, execution)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.service.ListPending(r.Context())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"count":   len(pending),
	})
}

// decisionRequest is the body of an approval resolution.
type decisionRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment,omitempty"`
}

func (s *Server) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}

	execution, err := s.service.ResolveApproval(r.Context(), r.PathValue("id"), req.Approved, req.Comment)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, execution)
}

// auditFilter reads the shared query parameters of the audit endpoints.
func auditFilter(r *http.Request) audit.QueryFilter {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		Actor:      q.Get("actor"),
		Action:     q.Get("action"),
		ResourceID: q.Get("resource_id"),
	}
	if start, err := time.Parse(time.RFC3339, q.Get("start")); err == nil {
		filter.Start = start
	}
	if end, err := time.Parse(time.RFC3339, q.Get("end")); err == nil {
		filter.End = end
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	return filter
}

func (s *Server) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		WriteError(w, r, http.StatusNotFound, "Not Found", "audit store is not configured")
		return
	}
	events, err := s.events.Query(r.Context(), auditFilter(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleAuditSummary(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		WriteError(w, r, http.StatusNotFound, "Not Found", "audit store is not configured")
		return
	}
	summary, err := s.events.Summarize(r.Context(), auditFilter(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
