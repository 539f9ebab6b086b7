package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rentbook/internal/ratelimit"
	"rentbook/internal/util"
	"rentbook/services/rental/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	PublicLimiter  ratelimit.Limiter
	LoginLimiter   ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Server exposes the rental API.
type Server struct {
	app            *app.App
	publicLimiter  ratelimit.Limiter
	loginLimiter   ratelimit.Limiter
	trusted        *util.TrustedProxies
	corsOrigins    []string
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	s := &Server{
		app:            cfg.App,
		publicLimiter:  cfg.PublicLimiter,
		loginLimiter:   cfg.LoginLimiter,
		trusted:        cfg.TrustedProxies,
		corsOrigins:    cfg.CORSOrigins,
		maxUploadBytes: maxUploadBytes,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("rental", util.WithSecurityHeaders(util.WithCORS(s.corsOrigins, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/login", s.limited(s.loginLimiter, "login", s.handleLogin))
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)

	// public tenant lookup
	s.mux.HandleFunc("/api/consulta", s.limited(s.publicLimiter, "consulta", s.handleConsulta))

	// tunnelled calls and everything else under /api/
	s.mux.HandleFunc("/api/exec", s.handleExec)
	s.mux.Handle("/api/", s.withOperator(s.dispatch))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type operatorHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withOperator(next operatorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, operator)
	})
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return "", false
	}
	operator, err := s.app.OperatorFromToken(token)
	if err != nil {
		return "", false
	}
	return operator, true
}

// limited wraps next with a per-client quota. A nil limiter disables it.
func (s *Server) limited(limiter ratelimit.Limiter, scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil && !limiter.Allow(r.Context(), scope+":"+util.ClientIP(r, s.trusted)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, expires, err := s.app.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires}, "")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nil, "Sesión cerrada")
}

// GET /api/consulta?habitacionId= or ?inquilinoId=
func (s *Server) handleConsulta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	roomID, tenantID := strings.TrimSpace(q.Get("habitacionId")), strings.TrimSpace(q.Get("inquilinoId"))
	if roomID == "" && tenantID == "" {
		writeError(w, http.StatusBadRequest, "habitacionId or inquilinoId required")
		return
	}
	st, err := s.app.Statement(r.Context(), roomID, tenantID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, st, "")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		util.LoggerFromContext(r.Context()).Warn("empty bearer token", "path", r.URL.Path)
		return "", false
	}
	return token, true
}

// period reads mes/anio from the query, defaulting each to the current month.
func (s *Server) period(r *http.Request) (int, int) {
	month, year := s.app.CurrentPeriod()
	q := r.URL.Query()
	if m, err := strconv.Atoi(q.Get("mes")); err == nil && m >= 1 && m <= 12 {
		month = m
	}
	if y, err := strconv.Atoi(q.Get("anio")); err == nil && y > 0 {
		year = y
	}
	return month, year
}
