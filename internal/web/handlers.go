package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/pns-society/membership-api/internal/ingest"
	"github.com/pns-society/membership-api/internal/logging"
	"github.com/pns-society/membership-api/internal/registration"
)

// registerResponse acknowledges a created registration.
type registerResponse struct {
	ID uuid.UUID `json:"id"`
	OK bool      `json:"ok"`
}

// errorResponse is the JSON body of every non-2xx response. Detail carries
// the underlying cause for server faults, for diagnostics.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// handleRegister processes a membership registration submission.
//
// Response contract:
//
//	201 {"id": ..., "ok": true}        registration created
//	400 {"error": ...}                 missing/invalid email or password
//	409 {"error": ...}                 email already registered
//	500 {"error": ..., "detail": ...}  ingestion, storage or store fault
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	form, err := ingest.Parse(r, ingest.Options{
		TempDir:     s.cfg.Upload.TempDir,
		MaxFileSize: s.cfg.Upload.MaxFileSize,
	})
	if err != nil {
		logger.Error("multipart ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error", err.Error())
		return
	}

	id, err := s.registrar.Register(r.Context(), form)
	if err != nil {
		s.respondRegisterError(w, r, err)
		return
	}

	logger.Info("registration created", "id", id)
	writeJSON(w, http.StatusCreated, registerResponse{ID: id, OK: true})
}

// respondRegisterError maps a registration failure onto the HTTP error
// contract.
func (s *Server) respondRegisterError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	var verr *registration.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message, "")

	case errors.Is(err, registration.ErrEmailExists):
		writeError(w, http.StatusConflict, "Email already exists", "")

	default:
		logger.Error("registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error", err.Error())
	}
}

// handleHealth reports liveness, and store reachability when a pinger is
// wired.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "store unreachable", "")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMethodNotAllowed rejects non-POST requests to the registration
// endpoint (and any other verb mismatch) with an Allow header.
func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing to do but log.
		slog.Error("json encode failed", "error", err)
	}
}

// writeError writes the standard JSON error body.
func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, errorResponse{Error: message, Detail: detail})
}
