// Package webapi exposes the conversation controller over HTTP. One
// endpoint carries the whole protocol: the caller posts its transcript plus
// the new message and gets the next assistant turn back.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"director/pkg/config"
	"director/pkg/director"
	"director/pkg/logx"
)

// TurnHandler is the controller-side contract the server depends on.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req *director.Request) (*director.Response, error)
}

// Server hosts the HTTP API.
type Server struct {
	handler    TurnHandler
	logger     *logx.Logger
	httpServer *http.Server
}

// NewServer creates an HTTP server over the given turn handler.
func NewServer(handler TurnHandler) *Server {
	return &Server{
		handler: handler,
		logger:  logx.NewLogger("webapi"),
	}
}

// requireAuth wraps an HTTP handler with Basic Authentication. Username is
// always "director"; the password comes from the secrets file or the
// DIRECTOR_PASSWORD env var.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expectedPassword := config.GetServerPassword()
		if expectedPassword == "" {
			s.logger.Error("server password not set, denying access")
			w.Header().Set("WWW-Authenticate", `Basic realm="Director API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Director API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if username != "director" || password != expectedPassword {
			s.logger.Warn("failed authentication attempt from %s (username: %s)", r.RemoteAddr, username)
			w.Header().Set("WWW-Authenticate", `Basic realm="Director API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// RegisterRoutes sets up the HTTP routes. /healthz and /metrics are
// unauthenticated so probes and scrapers work without credentials.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/director/turn", s.requireAuth(s.handleTurn))
	mux.HandleFunc("/api/logs", s.requireAuth(s.handleLogs))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
}

// errorBody is the JSON shape for all error responses.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleTurn implements POST /api/director/turn.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()[:8]

	var req director.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("[%s] bad request body: %v", requestID, err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}

	start := time.Now()
	resp, err := s.handler.HandleTurn(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, director.ErrUnknownTool), errors.Is(err, director.ErrBadTranscript):
			s.logger.Warn("[%s] rejected turn: %v", requestID, err)
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		default:
			s.logger.Error("[%s] turn failed: %v", requestID, err)
			writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		}
		return
	}

	s.logger.Info("[%s] turn ok: provider=%s duration=%s", requestID, resp.Provider, time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, resp)
}

// handleLogs implements GET /api/logs?component=<tag>.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, logx.Recent(r.URL.Query().Get("component")))
}

// handleHealth implements GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully. Blocks until shutdown completes.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:contextcheck // Parent context is cancelled; shutdown needs a fresh one.
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
