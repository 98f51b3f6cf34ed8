// Package server exposes a persistence backend over HTTP.
//
// Routes:
//
//	POST /agreements                create an empty agreement
//	GET  /agreements/{id}           full agreement
//	PUT  /agreements/{id}/signers   replace signers, reply with server ids
//	PUT  /agreements/{id}/fields    replace fields, reply with server ids
//	PUT  /agreements/{id}/title     set the title
//	PUT  /agreements/{id}/dates     set deadlines and the sequential flag
//	GET  /healthz                   liveness
//
// Errors are JSON: {"error": {"code": "...", "message": "..."}}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/signflow/internal/identity"
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/remote"
	"github.com/roach88/signflow/internal/store"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Error codes in the JSON envelope.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeTooLarge         = "PAYLOAD_TOO_LARGE"
	CodeInternal         = "INTERNAL"
)

// Backend is what the server persists to. *store.Store implements it.
type Backend interface {
	remote.Service
	CreateAgreement(ctx context.Context, title string, pages int) (string, error)
}

// Server serves a Backend over HTTP.
type Server struct {
	backend  Backend
	logger   *slog.Logger
	maxBody  int64
	router   *mux.Router
	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New builds a server and its routes.
func New(backend Backend, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		logger:  slog.Default(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/agreements", s.handleCreate).Methods(http.MethodPost)

	a := r.PathPrefix("/agreements/{id}").Subrouter()
	a.HandleFunc("", s.handleGet).Methods(http.MethodGet)
	a.HandleFunc("/signers", s.handleSigners).Methods(http.MethodPut)
	a.HandleFunc("/fields", s.handleFields).Methods(http.MethodPut)
	a.HandleFunc("/title", s.handleTitle).Methods(http.MethodPut)
	a.HandleFunc("/dates", s.handleDates).Methods(http.MethodPut)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, r.Method+" not allowed")
	})
	r.Use(s.logRequests)

	s.router = r
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds addr and serves in the background. Use Addr to learn the
// bound address when addr has port 0.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server: already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listener, s.http = ln, srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "error", err)
		}
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http == nil {
		return nil
	}
	err := s.http.Shutdown(ctx)
	s.http, s.listener = nil, nil
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req remote.CreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Pages == 0 {
		req.Pages = 1
	}
	id, err := s.backend.CreateAgreement(r.Context(), req.Title, req.Pages)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, remote.CreateResponse{ID: id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := s.backend.GetAgreement(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSigners(w http.ResponseWriter, r *http.Request) {
	var signers []model.Signer
	if !s.decode(w, r, &signers) {
		return
	}
	ids, err := s.backend.SyncSigners(r.Context(), mux.Vars(r)["id"], signers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.IDsResponse{IDs: nonNilIDs(ids)})
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	var fields []model.FieldPlacement
	if !s.decode(w, r, &fields) {
		return
	}
	ids, err := s.backend.SyncInputFields(r.Context(), mux.Vars(r)["id"], fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.IDsResponse{IDs: nonNilIDs(ids)})
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	var req remote.TitleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.backend.UpdateAgreementTitle(r.Context(), mux.Vars(r)["id"], req.Title); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	var dates model.DateSequence
	if !s.decode(w, r, &dates) {
		return
	}
	if err := s.backend.UpdateAgreementDateSequence(r.Context(), mux.Vars(r)["id"], dates); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v. It writes the error response itself and
// reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, "payload exceeds limit")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, CodeBadRequest, "empty body")
		default:
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON: "+err.Error())
		}
		return false
	}
	return true
}

// fail maps a backend error to a status and code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, remote.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "agreement not found")
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
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

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, remote.ErrorBody{Error: remote.ErrorDetail{Code: code, Message: message}})
}

func nonNilIDs(ids identity.IDMap) identity.IDMap {
	if ids == nil {
		return identity.IDMap{}
	}
	return ids
}
