// Package httpapi serves the session registry and the operator operations
// over REST.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/logging"
	"github.com/bnema/sessiond/internal/ports"
)

const (
	maxRequestBytes         = 1 << 16
	defaultOlderThanMinutes = 10
	readHeaderTimeout       = 5 * time.Second
	shutdownTimeout         = 5 * time.Second
)

// Service is everything the API exposes. application.Monitor satisfies it.
type Service interface {
	ports.Registry
	ports.Dashboard
}

type handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler returns the REST routes for service.
func NewHandler(service Service, logger *slog.Logger) http.Handler {
	h := &handler{service: service, logger: logging.OrDiscard(logger).With("component", "httpapi")}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions", h.listSessions)
	mux.HandleFunc("DELETE /sessions/stale", h.cleanupStale)
	mux.HandleFunc("DELETE /sessions/{id}", h.deleteSession)
	mux.HandleFunc("POST /sessions/{id}/heartbeat", h.heartbeat)
	mux.HandleFunc("PUT /sessions/{id}/status", h.updateStatus)
	mux.HandleFunc("POST /sessions/{id}/kill", h.killSession)
	mux.HandleFunc("POST /apps/{app}/kill", h.killApp)

	return h.logRequests(mux)
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.service.Register(r.Context(), req.AppName, req.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: string(id)})
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	out := SessionList{Sessions: make([]Session, 0, len(views))}
	for _, view := range views {
		out.Sessions = append(out.Sessions, FromView(view))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) cleanupStale(w http.ResponseWriter, r *http.Request) {
	minutes := defaultOlderThanMinutes
	if raw := r.URL.Query().Get("older_than_minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "older_than_minutes must be an integer")
			return
		}
		minutes = parsed
	}

	deleted, err := h.service.SweepStale(r.Context(), time.Duration(minutes)*time.Minute)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CleanupResponse{DeletedCount: deleted})
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.Remove(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

func (h *handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	kill, err := h.service.Heartbeat(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HeartbeatResponse{KillRequested: kill})
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.service.SetStatus(r.Context(), sessionID(r), domain.Status(req.Status), req.CurrentTask)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

func (h *handler) killSession(w http.ResponseWriter, r *http.Request) {
	marked, err := h.service.RequestKill(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !marked {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "kill_requested"})
}

func (h *handler) killApp(w http.ResponseWriter, r *http.Request) {
	affected, err := h.service.RequestKillForApp(r.Context(), r.PathValue("app"))
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AppKillResponse{Affected: affected})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, domain.ErrInvalidSession), errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func sessionID(r *http.Request) domain.SessionID {
	return domain.SessionID(r.PathValue("id"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// Server is a running REST listener.
type Server struct {
	listener net.Listener
	server   *http.Server
	errCh    chan error
}

// Start listens on addr and serves handler in the background.
func Start(addr string, handler http.Handler) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	s := &Server{
		listener: listener,
		server:   &http.Server{Handler: handler, ReadHeaderTimeout: readHeaderTimeout},
		errCh:    make(chan error, 1),
	}

	go func() {
		if serveErr := s.server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.errCh <- serveErr
		}
		close(s.errCh)
	}()

	return s, nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Err yields a serve failure, or is closed after a clean shutdown.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown drains in-flight requests, bounded by ctx or a short default.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	return s.server.Shutdown(ctx)
}
