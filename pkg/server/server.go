// Package server exposes one editor store over HTTP and WebSocket: a
// JSON API for graph mutation and session management, and a live
// channel that pushes state snapshots to connected clients.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JimmyLeeSnow/xyflow/pkg/cache"
	"github.com/JimmyLeeSnow/xyflow/pkg/errors"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
	"github.com/JimmyLeeSnow/xyflow/pkg/session"
)

// snapshotTTL bounds snapshot cache growth; entries are revision-keyed
// and never stale, so the value only controls storage.
const snapshotTTL = time.Hour

// Options configures a Server.
type Options struct {
	Store    *store.Store
	Sessions session.Store
	Cache    cache.Cache // snapshot cache; nil disables caching

	Logger *log.Logger
}

// Server serves one editor store.
type Server struct {
	store     *store.Store
	sessions  session.Store
	snapshots cache.Cache
	log       *log.Logger
	hub       *hub
	router    chi.Router
}

// New builds the server and its routes. The store is required;
// Sessions defaults to an in-memory backend and Cache to a null cache.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}

	s := &Server{
		store:     opts.Store,
		sessions:  opts.Sessions,
		snapshots: cache.Instrument(opts.Cache),
		log:       opts.Logger,
	}
	s.hub = newHub(s)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins pushing live updates to WebSocket clients. It returns a
// stop function that detaches from the store and disconnects clients.
func (s *Server) Start() (stop func()) {
	unsub := s.store.OnChange(s.hub.notify)
	return func() {
		unsub()
		s.hub.closeAll()
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/flow", s.handleGetFlow)
		r.Put("/flow", s.handlePutFlow)
		r.Post("/flow/edges", s.handleConnect)
		r.Delete("/flow/selection", s.handleDeleteSelection)
		r.Get("/flow/viewport", s.handleGetViewport)
		r.Put("/flow/viewport", s.handlePutViewport)
		r.Post("/flow/fitview", s.handleFitView)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleSaveSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/restore", s.handleRestoreSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
	})

	r.Get("/ws", s.hub.handleWS)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"revision": s.store.Revision(),
	})
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	data, err := s.encodeSnapshot(r.Context())
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// putFlowRequest replaces the whole document.
type putFlowRequest struct {
	Nodes    []*flow.Node   `json:"nodes"`
	Edges    []*flow.Edge   `json:"edges"`
	Viewport *flow.Viewport `json:"viewport,omitempty"`
}

func (s *Server) handlePutFlow(w http.ResponseWriter, r *http.Request) {
	var req putFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode flow document"))
		return
	}
	s.store.SetNodes(req.Nodes)
	s.store.SetEdges(req.Edges)
	if req.Viewport != nil {
		s.store.SetViewport(*req.Viewport)
	}
	writeJSON(w, http.StatusOK, map[string]any{"revision": s.store.Revision()})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var conn flow.Connection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode connection"))
		return
	}
	edge, err := s.store.Connect(conn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (s *Server) handleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	nodes, edges, err := s.store.DeleteSelected(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"removedNodes": len(nodes),
		"removedEdges": len(edges),
	})
}

func (s *Server) handleGetViewport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Viewport())
}

func (s *Server) handlePutViewport(w http.ResponseWriter, r *http.Request) {
	var vp flow.Viewport
	if err := json.NewDecoder(r.Body).Decode(&vp); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode viewport"))
		return
	}
	if vp.Zoom <= 0 {
		writeError(w, errors.New(errors.ErrCodeInvalidViewport, "zoom must be positive"))
		return
	}
	s.store.SetViewport(vp)
	writeJSON(w, http.StatusOK, s.store.Viewport())
}

func (s *Server) handleFitView(w http.ResponseWriter, r *http.Request) {
	var opts store.FitViewOptions
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode fit-view options"))
			return
		}
	}
	accepted := s.store.FitView(opts)
	writeJSON(w, http.StatusOK, map[string]any{
		"accepted": accepted,
		"viewport": s.store.Viewport(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "list sessions"))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

type saveSessionRequest struct {
	Name string `json:"name"`
	TTL  string `json:"ttl,omitempty"`
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode session request"))
		return
	}
	var ttl time.Duration
	if req.TTL != "" {
		var err error
		if ttl, err = time.ParseDuration(req.TTL); err != nil {
			writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse ttl"))
			return
		}
	}

	sess := session.New(req.Name, ttl)
	sess.Capture(s.store)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "store session"))
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRestoreSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	sess.Restore(s.store)
	writeJSON(w, http.StatusOK, map[string]any{"revision": s.store.Revision()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "delete session"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadSession(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	switch {
	case err == nil:
		return sess, nil
	case stderrors.Is(err, session.ErrNotFound):
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	case stderrors.Is(err, session.ErrExpired):
		return nil, errors.New(errors.ErrCodeSessionExpired, "session %s expired", id)
	default:
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load session %s", id)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConnection,
		errors.ErrCodeInvalidNode, errors.ErrCodeInvalidEdge,
		errors.ErrCodeInvalidViewport, errors.ErrCodeInvalidConfig:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeNodeNotFound,
		errors.ErrCodeEdgeNotFound, errors.ErrCodeSessionNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeSessionExpired:
		status = http.StatusGone
	case errors.ErrCodeEngineNotAttached, errors.ErrCodeUnsupported:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
