// Package server exposes the negotiation engine over HTTP: a JSON API
// for session lifecycle operations and a WebSocket endpoint for live
// session events.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
	"github.com/dealsense/negotiator/internal/engine"
	"github.com/dealsense/negotiator/internal/transport/ws"
)

const defaultRequestTimeout = 60 * time.Second

// Server wires the engine and websocket hub into an http.Handler.
type Server struct {
	engine *engine.Engine
	hub    *ws.Hub
	logger *slog.Logger
}

// New builds a server. hub may be nil when live events are not needed.
func New(eng *engine.Engine, hub *ws.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: eng, hub: hub, logger: logger}
}

// Handler assembles the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(TimeoutMiddleware(defaultRequestTimeout))
		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleEndSession)
				r.Post("/start", s.handleStart)
				r.Post("/messages", s.handleSellerMessage)
				r.Get("/summary", s.handleSummary)
			})
		})
	})

	if s.hub != nil {
		r.Get("/ws/{sessionID}", s.handleWebSocket)
	}

	return otelhttp.NewHandler(r, "negotiator")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionRequest struct {
	ProductURL string              `json:"product_url,omitempty"`
	Product    *domain.ProductData `json:"product,omitempty"`
	Params     struct {
		TargetPrice int    `json:"target_price"`
		MaxBudget   int    `json:"max_budget"`
		Approach    string `json:"approach"`
		Timeline    string `json:"timeline"`
	} `json:"params"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, domain.ErrValidation("invalid JSON body").Wrap(err))
		return
	}

	session, err := s.engine.CreateSession(r.Context(), engine.CreateSessionRequest{
		ProductURL: req.ProductURL,
		Product:    req.Product,
		Params: domain.NegotiationParams{
			TargetPrice: req.Params.TargetPrice,
			MaxBudget:   req.Params.MaxBudget,
			Approach:    domain.Approach(req.Params.Approach),
			Timeline:    domain.Timeline(req.Params.Timeline),
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	AddLogField(r.Context(), "session_id", session.ID)
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	opts := ports.ListOptions{Status: r.URL.Query().Get("status")}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	sessions, err := s.engine.ListSessions(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Summarize())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	AddLogField(r.Context(), "session_id", id)

	result, err := s.engine.StartNegotiation(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type sellerMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSellerMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	AddLogField(r.Context(), "session_id", id)

	var req sellerMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, domain.ErrValidation("invalid JSON body").Wrap(err))
		return
	}

	result, err := s.engine.ProcessSellerMessage(r.Context(), id, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	AddLogField(r.Context(), "session_id", id)

	session, err := s.engine.EndSession(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := s.engine.GetSession(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.ServeSession(w, r, id)
}

type errorResponse struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	status := http.StatusInternalServerError
	kind := string(domain.KindTerminal)
	message := "internal error"

	var ee *domain.EngineError
	if errors.As(err, &ee) {
		status = ee.HTTPStatusCode()
		kind = string(ee.Kind)
		message = ee.Message
	}

	var resp errorResponse
	resp.Error.Kind = kind
	resp.Error.Message = message
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
