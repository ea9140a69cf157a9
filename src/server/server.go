// Package server exposes the security engine over MCP so orchestrators
// and agents can call it as a tool, on stdio or streamable HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Easy-Infra-Ltd/easy-content-guard/src/config"
	"github.com/Easy-Infra-Ltd/easy-content-guard/src/engine"
)

// Server wraps an MCP server with the engine's tools registered.
type Server struct {
	engine *engine.Engine
	cfg    config.ServerConfig
	mcp    *mcp.Server
	logger *slog.Logger
}

// SanitizeInput is the input schema for the sanitize_content tool.
type SanitizeInput struct {
	Content string `json:"content" jsonschema:"The text to scan and sanitize"`
	Depth   int    `json:"depth,omitempty" jsonschema:"Nesting level of the caller; top-level callers pass 0"`
}

// SanitizeOutput is the output schema for the sanitize_content tool.
// SanitizedContent is only populated when State is "completed".
type SanitizeOutput struct {
	RequestID        string             `json:"request_id"`
	State            string             `json:"state"`
	ThreatLevel      string             `json:"threat_level"`
	SanitizedContent string             `json:"sanitized_content,omitempty"`
	Metrics          engine.Metrics      `json:"metrics"`
	Errors           []engine.ErrorEntry `json:"errors,omitempty"`
}

// HealthInput is the (empty) input schema for the get_health tool.
type HealthInput struct{}

// New creates a server for the given engine and transport config.
func New(eng *engine.Engine, cfg config.ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		engine: eng,
		cfg:    cfg,
		logger: logger.With("area", "server"),
	}

	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "easy-content-guard",
			Version: engine.Version,
		},
		&mcp.ServerOptions{Logger: s.logger},
	)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "sanitize_content",
		Description: "Scan text for injection attacks, secrets, and PII, redact what is found, and certify the result safe for downstream use. Treat any state other than \"completed\" as: do not trust the sanitized content.",
	}, s.handleSanitize)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_health",
		Description: "Report engine status, configured limits, and loaded pattern categories.",
	}, s.handleHealth)

	s.mcp = srv
	return s
}

func (s *Server) handleSanitize(ctx context.Context, req *mcp.CallToolRequest, in SanitizeInput) (*mcp.CallToolResult, SanitizeOutput, error) {
	sc := s.engine.Process(ctx, in.Content, in.Depth)

	out := SanitizeOutput{
		RequestID:   sc.RequestID,
		State:       sc.State.String(),
		ThreatLevel: sc.ThreatLevel.String(),
		Metrics:     sc.Metrics,
		Errors:      sc.ErrorTrace,
	}

	if sc.State != engine.StateCompleted {
		reason := sc.LastError()
		if reason == "" {
			reason = "content rejected by security processing"
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: reason}},
			IsError: true,
		}, out, nil
	}

	out.SanitizedContent = *sc.SanitizedContent
	return nil, out, nil
}

func (s *Server) handleHealth(ctx context.Context, req *mcp.CallToolRequest, in HealthInput) (*mcp.CallToolResult, engine.Health, error) {
	return nil, s.engine.Health(), nil
}

// Run starts the server on the configured transport and blocks until
// SIGINT/SIGTERM or ctx cancellation.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch s.cfg.Transport {
	case config.TransportStdio:
		return s.runStdio(ctx)
	case config.TransportHTTP:
		return s.runHTTP(ctx)
	default:
		return fmt.Errorf("unsupported transport: %s", s.cfg.Transport)
	}
}

func (s *Server) runStdio(ctx context.Context) error {
	s.logger.Info("starting stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) runHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{Logger: s.logger},
	)

	mux := http.NewServeMux()
	mux.Handle(s.cfg.HTTP.Path, handler)

	ln, err := net.Listen("tcp", s.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.HTTP.Addr, err)
	}
	s.logger.Info("starting HTTP transport", "addr", ln.Addr(), "path", s.cfg.HTTP.Path)

	srv := &http.Server{Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP transport")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
