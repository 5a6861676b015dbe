package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/destination-search/internal/destination"
	"github.com/neexbeast/destination-search/internal/search"
	"github.com/neexbeast/destination-search/internal/session"
)

const maxBodyBytes = 64 << 10

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	sessions SessionStore
	log      *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(sessions SessionStore, log *slog.Logger) *Handlers {
	return &Handlers{
		sessions: sessions,
		log:      log,
	}
}

type createSessionRequest struct {
	Page string `json:"page"`
}

type inputRequest struct {
	Text string `json:"text"`
}

type selectionRequest struct {
	ID string `json:"id"`
}

// neighborView is a closest destination with its distance from the detail.
type neighborView struct {
	destination.Destination
	DistanceKm float64 `json:"distance_km"`
}

// sessionView is the JSON shape of a session. Its Closest field shadows the
// snapshot's plain list.
type sessionView struct {
	ID   string `json:"id"`
	Link string `json:"link"`
	search.Snapshot
	Closest []neighborView `json:"closest"`
}

func newSessionView(s *session.Session) sessionView {
	snap := s.Coordinator.Snapshot()

	ref := snap.Detail
	if ref == nil {
		ref = snap.Selected
	}

	closest := make([]neighborView, 0, len(snap.Closest))
	for _, d := range snap.Closest {
		n := neighborView{Destination: d}
		if ref != nil {
			n.DistanceKm = search.Distance(*ref, d)
		}
		closest = append(closest, n)
	}

	return sessionView{
		ID:       s.ID,
		Link:     s.Link(),
		Snapshot: snap,
		Closest:  closest,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return s, ok
}

// writeSessionError maps coordinator errors to responses.
func (h *Handlers) writeSessionError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, search.ErrUnknownOption):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, search.ErrClosed):
		writeError(w, http.StatusGone, "session is closed")
	default:
		h.log.Error("session operation failed", "session", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// CreateSession handles POST /api/v1/sessions.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := h.sessions.Create(req.Page)
	if err != nil {
		if errors.Is(err, session.ErrInvalidPage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("create session failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": s.ID})
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(s))
}

// SetInput handles PUT /api/v1/sessions/{id}/input.
// A cache hit is reflected in the response; a miss is answered while the
// debounced search is still pending.
func (h *Handlers) SetInput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req inputRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.Coordinator.SetInput(r.Context(), req.Text); err != nil {
		h.writeSessionError(w, s.ID, err)
		return
	}

	writeJSON(w, http.StatusAccepted, newSessionView(s))
}

// Select handles POST /api/v1/sessions/{id}/selection.
func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req selectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.Coordinator.Select(req.ID); err != nil {
		h.writeSessionError(w, s.ID, err)
		return
	}

	writeJSON(w, http.StatusAccepted, newSessionView(s))
}

// DeleteSession handles DELETE /api/v1/sessions/{id}.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthHandlerFunc returns an http.HandlerFunc that pings every named
// dependency. It answers 200 when all respond and 503 otherwise.
func HealthHandlerFunc(checks map[string]Pinger, log *slog.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}

		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				log.Error("health check: ping failed", "dependency", name, "err", err)
				body[name] = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}

		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		writeJSON(w, status, body)
	}
}
