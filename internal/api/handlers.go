package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"socsim/internal/report"
	"socsim/internal/store"
	"socsim/pkg/models"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
	relatedLimit       = 5
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Streaming bool   `json:"streaming"`
}

type streamResponse struct {
	Message string             `json:"message"`
	Status  models.StreamStats `json:"status"`
}

type patternRequest struct {
	Pattern string `json:"pattern" validate:"required"`
}

type incidentQuery struct {
	Severity   string `validate:"omitempty,oneof=Low Medium High Critical"`
	AttackType string `validate:"omitempty,oneof=DDoS Phishing Malware SQLInjection XSS"`
	Status     string `validate:"omitempty,oneof=Open Investigating Resolved Closed"`
	Search     string `validate:"max=64"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=Open Investigating Resolved Closed"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Streaming: s.stream.Stats().IsRunning,
	})
}

func (s *Server) streamStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stream.Stats())
}

func (s *Server) streamStart(w http.ResponseWriter, r *http.Request) {
	if !s.stream.Start() {
		writeError(w, http.StatusBadRequest, "Attack stream is already running")
		return
	}
	writeJSON(w, http.StatusOK, streamResponse{Message: "Attack stream started", Status: s.stream.Stats()})
}

func (s *Server) streamStop(w http.ResponseWriter, r *http.Request) {
	if !s.stream.Stop() {
		writeError(w, http.StatusBadRequest, "Attack stream is not running")
		return
	}
	writeJSON(w, http.StatusOK, streamResponse{Message: "Attack stream stopped", Status: s.stream.Stats()})
}

func (s *Server) streamPattern(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Pattern is required", ValidPatterns: s.patterns})
		return
	}
	if !s.stream.SetPattern(req.Pattern) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid pattern", ValidPatterns: s.patterns})
		return
	}
	writeJSON(w, http.StatusOK, streamResponse{Message: "Attack pattern changed to " + req.Pattern, Status: s.stream.Stats()})
}

// listIncidents pages through stored incidents. page and limit are clamped
// rather than rejected.
func (s *Server) listIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := incidentQuery{
		Severity:   q.Get("severity"),
		AttackType: q.Get("attackType"),
		Status:     q.Get("status"),
		Search:     q.Get("search"),
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter: "+err.Error())
		return
	}

	page, err := s.store.Query(r.Context(), store.Filter{
		Severity:   models.Severity(req.Severity),
		AttackType: models.AttackType(req.AttackType),
		Status:     req.Status,
		Search:     req.Search,
		Page:       atoiOr(q.Get("page"), 1),
		Limit:      atoiOr(q.Get("limit"), 10),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.store.Summary(r.Context(), s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "status must be one of Open, Investigating, Resolved, Closed")
		return
	}

	id := mux.Vars(r)["id"]
	row, err := s.store.UpdateStatus(r.Context(), id, req.Status, s.now())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Incident "+id+" not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func atoiOr(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) recentIncidents(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}
	rows, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []*models.EnrichedIncident{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getIncident(w http.ResponseWriter, r *http.Request) {
	row, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) incidentReport(w http.ResponseWriter, r *http.Request) {
	row, ok := s.lookup(w, r)
	if !ok {
		return
	}

	relatedRows, err := s.store.Related(r.Context(), row.Incident, relatedLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	related := make([]*models.Incident, 0, len(relatedRows))
	for _, rr := range relatedRows {
		related = append(related, rr.Incident)
	}

	rep, err := s.reports.Build(row.Incident, related)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body, contentType, err := report.Render(rep, r.URL.Query().Get("format"))
	if errors.Is(err, report.ErrUnknownFormat) {
		writeError(w, http.StatusBadRequest, "format must be markdown or json")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*models.EnrichedIncident, bool) {
	id := mux.Vars(r)["id"]
	row, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Incident "+id+" not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return row, true
}
