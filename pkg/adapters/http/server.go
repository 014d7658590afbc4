package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/statebridge"
	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodySize caps action payloads.
const maxBodySize = 1 << 20

// Server exposes one state system over HTTP.
// Every access to the system is scheduled on the host loop.
type Server struct {
	ctrl    bridge.Controller
	host    ports.Host
	streams *StreamManager
	logger  *slog.Logger
	router  chi.Router
	remove  func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request failures and stream activity.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer builds the router and starts mirroring "stateupdate" events of host
// to SSE clients. Call Close to stop mirroring.
//
// NewServer registers a listener on host, so it must be called on the host loop
// or before the loop starts.
func NewServer(ctrl bridge.Controller, host ports.Host, opts ...Option) *Server {
	s := &Server{
		ctrl:   ctrl,
		host:   host,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)

	s.remove = host.AddEventListener(domain.EventStateUpdate, s.onStateUpdate)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/state", s.GetState)
	r.Get("/actions", s.ListActions)
	r.Post("/actions/{name}", s.DispatchAction)
	r.Get("/events", s.SubscribeEvents)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops mirroring events and disconnects every SSE client.
func (s *Server) Close() {
	if s.remove != nil {
		s.remove()
	}
	s.streams.CloseAll()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StateResponse is the body of GET /state and of a successful dispatch.
type StateResponse struct {
	System string `json:"system"`
	Action string `json:"action,omitempty"`
	State  any    `json:"state"`
}

// UpdateMessage is the data of every "stateupdate" SSE event.
type UpdateMessage struct {
	domain.StateUpdate
	State any `json:"state"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "statebridge-http",
		"version": strings.TrimSpace(statebridge.Version),
		"system":  s.ctrl.Name(),
	})
}

// GetState handles the GET /state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	var resp StateResponse
	err := s.host.Do(r.Context(), func(context.Context) {
		resp = StateResponse{System: s.ctrl.Name(), State: s.ctrl.Current()}
	})
	if err != nil {
		s.fail(w, "GetState", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListActions handles the GET /actions request.
func (s *Server) ListActions(w http.ResponseWriter, r *http.Request) {
	var actions []string
	err := s.host.Do(r.Context(), func(context.Context) {
		actions = s.ctrl.Actions()
	})
	if err != nil {
		s.fail(w, "ListActions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

// DispatchAction handles the POST /actions/{name} request.
// The body, if any, is the JSON payload of the action.
func (s *Server) DispatchAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	payload, err := decodePayload(http.MaxBytesReader(w, r.Body, maxBodySize))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		s.logger.Warn("DispatchAction: Request body too large", "action", name, "limit", tooLarge.Limit)
		return
	}
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("DispatchAction: Invalid request body", "action", name, "err", err)
		return
	}

	var (
		resp        StateResponse
		dispatchErr error
	)
	err = s.host.Do(r.Context(), func(ctx context.Context) {
		dispatchErr = s.ctrl.Dispatch(ctx, name, payload)
		resp = StateResponse{System: s.ctrl.Name(), Action: name, State: s.ctrl.Current()}
	})
	if err == nil {
		err = dispatchErr
	}
	if err != nil {
		s.fail(w, "DispatchAction", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubscribeEvents handles the GET /events request (SSE).
// The optional "action" query parameter is a comma separated filter.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	watch := map[string]bool{}
	if q := r.URL.Query().Get("action"); q != "" {
		for _, a := range strings.Split(q, ",") {
			if a = strings.TrimSpace(a); a != "" {
				watch[a] = true
			}
		}
	}

	ch, cancel := s.streams.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected", "filter", len(watch))

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !watch[msg.Action] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", domain.EventStateUpdate, msg.Data)
			flusher.Flush()
		}
	}
}

// onStateUpdate runs on the host loop, so reading the state here is safe.
func (s *Server) onStateUpdate(_ context.Context, evt domain.Event) {
	update, ok := evt.Detail.(domain.StateUpdate)
	if !ok {
		return
	}
	if s.streams.Len() == 0 {
		return
	}
	data, err := json.Marshal(UpdateMessage{StateUpdate: update, State: s.ctrl.Current()})
	if err != nil {
		s.logger.Warn("SSE: encode update failed", "action", update.Action, "err", err)
		return
	}
	s.streams.Broadcast(Message{Action: update.Action, Data: data})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrDestroyed),
		errors.Is(err, domain.ErrElementClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}

func decodePayload(body io.Reader) (any, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
