package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/statebridge"
	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StateURI is the resource exposing the live state.
const StateURI = "statebridge://state"

// StateResponse is the JSON body returned by the state tools.
type StateResponse struct {
	System string `json:"system"`
	Action string `json:"action,omitempty"`
	State  any    `json:"state"`
}

// Server exposes one state system as an MCP server.
type Server struct {
	ctrl      bridge.Controller
	host      ports.Scheduler
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(ctrl bridge.Controller, host ports.Scheduler, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		host:      host,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("statebridge-mcp", strings.TrimSpace(statebridge.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: dispatch_action
	dispatchTool := mcp.NewTool("dispatch_action",
		mcp.WithDescription("Dispatch an action to the shared state and return the resulting state."),
		mcp.WithString("action", mcp.Required(), mcp.Description("Registered action name")),
		mcp.WithString("payload", mcp.Description("JSON encoded payload (optional)")),
	)
	s.mcpServer.AddTool(dispatchTool, s.handleDispatch)

	// TOOL: get_state
	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the current shared state."),
	), s.handleGetState)

	// TOOL: list_actions
	s.mcpServer.AddTool(mcp.NewTool("list_actions",
		mcp.WithDescription("List the actions the state accepts."),
	), s.handleListActions)
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	action, _ := args["action"].(string)
	if action == "" {
		return mcp.NewToolResultError("action is required"), nil
	}

	payload, err := decodePayload(args["payload"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid payload: %v", err)), nil
	}

	var (
		resp        StateResponse
		dispatchErr error
	)
	err = s.host.Do(ctx, func(ctx context.Context) {
		dispatchErr = s.ctrl.Dispatch(ctx, action, payload)
		resp = StateResponse{System: s.ctrl.Name(), Action: action, State: s.ctrl.Current()}
	})
	if err == nil {
		err = dispatchErr
	}
	if err != nil {
		s.logger.Warn("MCP dispatch failed", "action", action, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("dispatch failed: %v", err)), nil
	}
	return textResult(resp)
}

func (s *Server) handleGetState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get state failed: %v", err)), nil
	}
	return textResult(resp)
}

func (s *Server) handleListActions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var actions []string
	if err := s.host.Do(ctx, func(context.Context) { actions = s.ctrl.Actions() }); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list actions failed: %v", err)), nil
	}
	return textResult(actions)
}

func (s *Server) registerResources() {
	// EXPOSE: statebridge://state
	s.mcpServer.AddResource(mcp.NewResource(StateURI, "Current Shared State",
		mcp.WithMIMEType("application/json"),
	), s.handleStateResource)
}

func (s *Server) handleStateResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	resp, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StateURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func (s *Server) snapshot(ctx context.Context) (StateResponse, error) {
	var resp StateResponse
	err := s.host.Do(ctx, func(context.Context) {
		resp = StateResponse{System: s.ctrl.Name(), State: s.ctrl.Current()}
	})
	return resp, err
}

// decodePayload accepts a JSON string (the declared tool schema) or an already
// structured value sent by lenient clients.
func decodePayload(raw any) (any, error) {
	str, ok := raw.(string)
	if !ok {
		return raw, nil
	}
	if strings.TrimSpace(str) == "" {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal([]byte(str), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func textResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
