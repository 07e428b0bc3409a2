package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cosmicvault/locker/internal/accounts"
	"github.com/cosmicvault/locker/internal/config"
	"github.com/cosmicvault/locker/internal/events"
	"github.com/cosmicvault/locker/internal/services/vault"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
)

// Server exposes the vault over an HTTP JSON API. Every protected
// route carries a bearer session token naming the user, and vault
// routes additionally re-verify the account password from the form.
type Server struct {
	cfg      *config.ServerConfig
	mux      *http.ServeMux
	accounts *accounts.Store
	vault    *vault.Service
	sessions *SessionSigner
	loginLim *clientLimiter
	logger   *events.Logger
}

// New creates a server around an account store and vault service.
func New(cfg *config.ServerConfig, accts *accounts.Store, svc *vault.Service, logger *events.Logger) (*Server, error) {
	sessions, err := NewSessionSigner(cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	perSecond := rate.Limit(float64(cfg.LoginRatePerMin) / 60.0)

	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		accounts: accts,
		vault:    svc,
		sessions: sessions,
		loginLim: newClientLimiter(perSecond, cfg.LoginBurst, 10*time.Minute),
		logger:   logger.WithField("component", "http_server"),
	}
	s.routes()

	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.WithField("addr", s.cfg.Addr).Info("HTTP server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Middleware

// withRequestID tags every request with an ID for log correlation.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession validates the bearer token and stores the user ID in
// the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "

		header := r.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			s.writeError(w, http.StatusUnauthorized, "Login required")
			return
		}

		userID, err := s.sessions.Verify(header[len(prefix):])
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "Login required")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// sessionUser returns the authenticated user for a request.
func sessionUser(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// requestLogger returns a logger tagged with the request's ID.
func (s *Server) requestLogger(r *http.Request) *events.Logger {
	reqID, _ := r.Context().Value(requestIDKey).(string)
	return s.logger.WithField("request_id", reqID)
}

// Response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": msg,
	})
}

func (s *Server) writeSuccess(w http.ResponseWriter, extra map[string]interface{}) {
	payload := map[string]interface{}{"status": "success"}
	for k, v := range extra {
		payload[k] = v
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// requirePOST rejects other methods.
func (s *Server) requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
		return false
	}
	return true
}
