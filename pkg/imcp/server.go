// Package imcp exposes the Jenkins operations as MCP tools.
package imcp

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kjozsa/jenkins-mcp/pkg/internal/jenkins"
	"github.com/kjozsa/jenkins-mcp/pkg/internal/storage"
	"github.com/kjozsa/jenkins-mcp/pkg/version"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
)

const instructions = `Tools for a single Jenkins controller. Use list_jobs to discover job names,
trigger_build to queue a build, get_queue_item to follow a queued build until it
got a build number, and get_build_status to check on a build. Jobs inside folders
are addressed as "folder/job".`

// Server wraps the MCP server and the Jenkins client it exposes.
type Server struct {
	mcp      *server.MCPServer
	client   *jenkins.Client
	history  *storage.TriggerRepo
	logger   *slog.Logger
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Option configures the server.
type Option func(*Server)

// WithClient sets the Jenkins client used by all tools.
func WithClient(value *jenkins.Client) Option {
	return func(s *Server) {
		s.client = value
	}
}

// WithHistory enables the trigger history and its tool.
func WithHistory(value *storage.TriggerRepo) Option {
	return func(s *Server) {
		s.history = value
	}
}

// WithLogger sets the logger.
func WithLogger(value *slog.Logger) Option {
	return func(s *Server) {
		s.logger = value
	}
}

// WithMetrics records failures and durations of tool calls.
func WithMetrics(failures *prometheus.CounterVec, duration *prometheus.HistogramVec) Option {
	return func(s *Server) {
		s.failures = failures
		s.duration = duration
	}
}

// NewServer creates the MCP server with all tools registered.
func NewServer(opts ...Option) *Server {
	s := &Server{}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s.logger = s.logger.With("component", "mcp")

	s.mcp = server.NewMCPServer(
		"jenkins-mcp",
		version.String,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
		server.WithToolHandlerMiddleware(s.observe),
	)

	s.mcp.AddTool(listJobsTool(), s.handleListJobs)
	s.mcp.AddTool(triggerBuildTool(), s.handleTriggerBuild)
	s.mcp.AddTool(buildStatusTool(), s.handleBuildStatus)
	s.mcp.AddTool(queueItemTool(), s.handleQueueItem)

	if s.history != nil {
		s.mcp.AddTool(recentTriggersTool(), s.handleRecentTriggers)
	}

	return s
}

// MCP returns the underlying server for the transports.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

type loggerKey struct{}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}

	return fallback
}

// observe tags every tool call with a correlation id and records metrics.
func (s *Server) observe(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tool := req.Params.Name
		logger := s.logger.With(
			"tool", tool,
			"call", uuid.NewString(),
		)

		logger.Debug("tool call started")

		now := time.Now()
		result, err := next(context.WithValue(ctx, loggerKey{}, logger), req)
		elapsed := time.Since(now)

		if s.duration != nil {
			s.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
		}

		failed := err != nil || (result != nil && result.IsError)

		if failed && s.failures != nil {
			s.failures.WithLabelValues(tool).Inc()
		}

		if failed {
			logger.Info("tool call failed",
				"duration", elapsed,
				"err", err,
			)
		} else {
			logger.Debug("tool call finished",
				"duration", elapsed,
			)
		}

		return result, err
	}
}
