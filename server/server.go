// Package server exposes Wayfarer sessions over HTTP and WebSocket so
// remote front ends can play.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/state"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

const (
	msgSaveFailed   = "Something went wrong saving your progress. Please try again."
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server routes player requests to the engine.
type Server struct {
	Engine *engine.Engine
	Logger *zap.Logger

	sessions *sessions
	upgrader websocket.Upgrader
}

// New creates a server backed by eng.
func New(eng *engine.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Engine:   eng,
		Logger:   logger,
		sessions: newSessions(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  zap.NewStdLog(s.Logger.Named("http")),
		NoColor: true,
	}))
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// WebSocket play is long-lived and stays outside the request timeout.
	router.Get("/sessions/{id}/ws", s.handleWebSocket)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/players", s.handleListPlayers)
		r.Post("/players", s.handleCreatePlayer)
		r.Delete("/players/{name}", s.handleDeletePlayer)

		r.Post("/sessions", s.handleOpenSession)
		r.Post("/sessions/{id}/commands", s.handleCommand)
		r.Delete("/sessions/{id}", s.handleCloseSession)
	})

	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("starting HTTP server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

type playerSummary struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Level int    `json:"level"`
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	Player    playerSummary `json:"player"`
	Output    []string      `json:"output"`
}

type commandResponse struct {
	Output []string `json:"output"`
	Combat bool     `json:"combat"`
	Quit   bool     `json:"quit"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func summarize(p *types.Player) playerSummary {
	return playerSummary{Name: p.Name, Class: string(p.Class), Level: p.Level}
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.Engine.ListPlayers(r.Context())
	if err != nil {
		s.Logger.Error("failed to list players", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list players")
		return
	}
	out := make([]playerSummary, 0, len(players))
	for _, p := range players {
		out = append(out, summarize(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Class string `json:"class"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	sess, err := s.Engine.CreatePlayer(r.Context(), req.Name, req.Class)
	switch {
	case errors.Is(err, engine.ErrInvalidClass):
		writeError(w, http.StatusBadRequest, "Choose a class: warrior, mage, rogue.")
		return
	case errors.Is(err, engine.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "A name needs between 1 and 32 characters.")
		return
	case errors.Is(err, engine.ErrNameTaken):
		writeError(w, http.StatusConflict, fmt.Sprintf("There is already a character named %s.", req.Name))
		return
	case err != nil:
		s.Logger.Error("failed to create player", zap.String("player", req.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create player")
		return
	}

	s.Logger.Info("player created", zap.String("player", sess.Player.Name), zap.String("class", string(sess.Player.Class)))
	s.start(w, r, sess, http.StatusCreated)
}

func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.Engine.DeletePlayer(r.Context(), name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("No character named %s.", name))
		return
	case err != nil:
		s.Logger.Error("failed to delete player", zap.String("player", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete player")
		return
	}
	s.sessions.closePlayer(name)
	s.Logger.Info("player deleted", zap.String("player", name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	// An open session is resumed rather than loaded twice.
	if e, ok := s.sessions.lookupPlayer(req.Name); ok {
		s.describe(w, r, e, http.StatusOK)
		return
	}

	sess, err := s.Engine.LoadSession(r.Context(), req.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("No character named %s.", req.Name))
		return
	case err != nil:
		s.Logger.Error("failed to load player", zap.String("player", req.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load player")
		return
	}
	s.start(w, r, sess, http.StatusCreated)
}

// start registers sess and replies with the opening description.
func (s *Server) start(w http.ResponseWriter, r *http.Request, sess *state.Session, status int) {
	e, created := s.sessions.open(sess)
	if created {
		s.Logger.Info("session opened", zap.String("session_id", e.id), zap.String("player", sess.Player.Name))
	} else {
		status = http.StatusOK
	}
	s.describe(w, r, e, status)
}

func (s *Server) describe(w http.ResponseWriter, r *http.Request, e *entry, status int) {
	res, ok, err := s.step(r.Context(), e, "look")
	if !ok {
		writeError(w, http.StatusNotFound, "Session closed")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}
	e.mu.Lock()
	p := summarize(e.session.Player)
	e.mu.Unlock()
	writeJSON(w, status, sessionResponse{SessionID: e.id, Player: p, Output: res.Output})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	e, ok := s.sessions.get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown session")
		return
	}
	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	res, ok, err := s.step(r.Context(), e, req.Input)
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "Unknown session")
	case err != nil:
		writeError(w, http.StatusInternalServerError, msgSaveFailed)
	default:
		writeJSON(w, http.StatusOK, commandResponse{Output: res.Output, Combat: res.Combat, Quit: res.Quit})
	}
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.close(id) {
		writeError(w, http.StatusNotFound, "Unknown session")
		return
	}
	s.Logger.Info("session closed", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.sessions.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown session")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("failed to upgrade connection", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.Close()
	s.Logger.Info("websocket connected", zap.String("session_id", id))

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Logger.Warn("websocket read failed", zap.String("session_id", id), zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		res, ok, err := s.step(r.Context(), e, string(message))
		var reply any
		switch {
		case !ok:
			conn.WriteJSON(errorResponse{Error: "Session closed"})
			return
		case err != nil:
			reply = errorResponse{Error: msgSaveFailed}
		default:
			reply = commandResponse{Output: res.Output, Combat: res.Combat, Quit: res.Quit}
		}
		if err := conn.WriteJSON(reply); err != nil {
			s.Logger.Warn("websocket write failed", zap.String("session_id", id), zap.Error(err))
			return
		}
		if res.Quit {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
			return
		}
	}
}

// step runs one command on e under its lock. ok is false when the session
// was closed. A quit result closes the session.
func (s *Server) step(ctx context.Context, e *entry, input string) (res types.Result, ok bool, err error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return res, false, nil
	}
	res, err = s.Engine.Step(ctx, e.session, input)
	player := e.session.Player.Name
	e.mu.Unlock()

	if err != nil {
		s.Logger.Error("command failed",
			zap.String("session_id", e.id),
			zap.String("player", player),
			zap.String("input", input),
			zap.Error(err))
		return res, true, err
	}
	if res.Quit {
		s.sessions.close(e.id)
		s.Logger.Info("session ended by player", zap.String("session_id", e.id), zap.String("player", player))
	}
	return res, true, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
