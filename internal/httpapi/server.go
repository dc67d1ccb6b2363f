package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"nhooyr.io/websocket"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/restfile"
	"github.com/unkn0wn-root/httpoutline/internal/session"
)

const (
	changedFrame = "changed"
	writeTimeout = 5 * time.Second
)

// Server serves a session's outline over HTTP and pushes rebuild
// notifications over a websocket.
type Server struct {
	router  chi.Router
	session *session.Session
	hub     *Hub
	logger  *log.Logger
	unsub   func()
}

func NewServer(sess *session.Session, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		session: sess,
		hub:     NewHub(),
		logger:  logger,
	}
	s.unsub = sess.Subscribe(func() {
		if dropped := s.hub.Broadcast(); dropped > 0 {
			s.logger.Printf("httpapi: %d websocket subscriber(s) lagging, notification dropped", dropped)
		}
	})
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops notifications and disconnects websocket subscribers.
func (s *Server) Close() {
	s.unsub()
	s.hub.Close()
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/outline", s.handleOutline)
		r.Get("/outline/node", s.handleNode)
		r.Post("/events", s.handleEvent)
		r.Get("/events/ws", s.handleEventsWS)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	if !s.activate(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.session.Outline().Document())
}

type nodeResponse struct {
	Path string        `json:"path"`
	Node *outline.Node `json:"node"`
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	line, err := strconv.Atoi(q.Get("line"))
	if err != nil || line < 1 {
		jsonError(w, "line query parameter must be a positive integer", http.StatusBadRequest)
		return
	}
	col := 0
	if raw := q.Get("col"); raw != "" {
		col, err = strconv.Atoi(raw)
		if err != nil || col < 0 {
			jsonError(w, "col query parameter must be a non-negative integer", http.StatusBadRequest)
			return
		}
	}
	if !s.activate(w, r) {
		return
	}

	path := s.session.Current()
	pos := restfile.Position{Line: line, Column: col}
	if err := s.session.Handle(r.Context(), session.SelectionMoved(path, pos)); err != nil {
		s.fail(w, err)
		return
	}
	n, _ := s.session.Selected()
	writeJSON(w, http.StatusOK, nodeResponse{Path: path, Node: n})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev session.Event
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		jsonError(w, "invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.session.Handle(r.Context(), ev); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Printf("httpapi: websocket accept: %v", err)
		return
	}
	id, ch := s.hub.Add()
	defer s.hub.Remove(id)

	// Clients never send; CloseRead surfaces their disconnect as ctx.Done.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case _, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server closing")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, []byte(changedFrame))
			cancel()
			if err != nil {
				s.logger.Printf("httpapi: websocket %s write: %v", id, err)
				return
			}
		}
	}
}

// activate switches the session to the path query parameter when given.
func (s *Server) activate(w http.ResponseWriter, r *http.Request) bool {
	path := r.URL.Query().Get("path")
	if path == "" || path == s.session.Current() {
		return true
	}
	if err := s.session.Handle(r.Context(), session.ActiveFileChanged(path)); err != nil {
		s.fail(w, err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrClosed):
		status = http.StatusServiceUnavailable
	case errdef.Is(err, errdef.CodeProtocol):
		status = http.StatusBadRequest
	}
	jsonError(w, errdef.Message(err), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
