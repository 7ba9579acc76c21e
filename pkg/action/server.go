package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kjozsa/jenkins-mcp/pkg/config"
	"github.com/kjozsa/jenkins-mcp/pkg/exporter"
	"github.com/kjozsa/jenkins-mcp/pkg/imcp"
	"github.com/kjozsa/jenkins-mcp/pkg/internal/jenkins"
	"github.com/kjozsa/jenkins-mcp/pkg/internal/storage"
	"github.com/kjozsa/jenkins-mcp/pkg/middleware"
	"github.com/kjozsa/jenkins-mcp/pkg/version"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/exporter-toolkit/web"
)

// Server handles the server sub-command.
func Server(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Launching Jenkins MCP server",
		"version", version.String,
		"revision", version.Revision,
		"date", version.Date,
		"go", version.Go,
		"transport", cfg.Server.Transport,
	)

	client, err := newClient(cfg, logger)

	if err != nil {
		return err
	}

	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close jenkins session",
				"err", err,
			)
		}
	}()

	opts := []imcp.Option{
		imcp.WithClient(client),
		imcp.WithLogger(logger),
		imcp.WithMetrics(toolFailures, toolDuration),
	}

	if cfg.History.File != "" {
		db, err := storage.NewSQLite(cfg.History.File, logger)

		if err != nil {
			logger.Error("Failed to open history database",
				"file", cfg.History.File,
				"err", err,
			)

			return err
		}

		defer db.Close()

		opts = append(opts, imcp.WithHistory(
			storage.NewTriggerRepo(db, logger, cfg.History.Retain),
		))
	}

	mcp := imcp.NewServer(opts...)

	var gr run.Group

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		addHTTP(&gr, cfg, logger, client, mcp)
	default:
		addStdio(&gr, logger, mcp)
	}

	{
		stop := make(chan os.Signal, 1)

		gr.Add(func() error {
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			<-stop

			return nil
		}, func(_ error) {
			signal.Stop(stop)
			close(stop)
		})
	}

	return gr.Run()
}

func newClient(cfg *config.Config, logger *slog.Logger) (*jenkins.Client, error) {
	username, err := config.Value(cfg.Target.Username)

	if err != nil {
		logger.Error("Failed to load username from file",
			"err", err,
		)

		return nil, err
	}

	password, err := config.Value(cfg.Target.Password)

	if err != nil {
		logger.Error("Failed to load password from file",
			"err", err,
		)

		return nil, err
	}

	mode := jenkins.PasswordCrumb

	if cfg.Target.UseAPIToken {
		mode = jenkins.APIToken
	}

	session, err := jenkins.NewSession(cfg.Target.Address, username, password, mode)

	if err != nil {
		logger.Error("Failed to prepare jenkins session",
			"address", cfg.Target.Address,
			"err", err,
		)

		return nil, err
	}

	client, err := jenkins.NewClient(
		jenkins.WithSession(session),
		jenkins.WithTimeout(cfg.Target.Timeout),
		jenkins.WithLogger(logger),
		jenkins.WithObserver(requestObserver{}),
		jenkins.WithCrumbSignatures(cfg.Target.CrumbSignatures),
		jenkins.WithCrumbStatusFallback(cfg.Target.CrumbStatusFallback),
	)

	if err != nil {
		logger.Error("Failed to create jenkins client",
			"address", cfg.Target.Address,
			"err", err,
		)

		return nil, err
	}

	logger.Info("Prepared jenkins session",
		"address", session.Endpoint(),
		"mode", mode.String(),
		"timeout", cfg.Target.Timeout,
	)

	return client, nil
}

func addStdio(gr *run.Group, logger *slog.Logger, mcp *imcp.Server) {
	ctx, cancel := context.WithCancel(context.Background())

	gr.Add(func() error {
		logger.Info("Serving MCP on stdio")

		stdio := server.NewStdioServer(mcp.MCP())
		stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio transport failed: %w", err)
		}

		logger.Info("Stdio transport closed")
		return nil
	}, func(_ error) {
		cancel()
	})
}

func addHTTP(gr *run.Group, cfg *config.Config, logger *slog.Logger, client *jenkins.Client, mcp *imcp.Server) {
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler(cfg, logger, client, mcp),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Server.Timeout,
	}

	gr.Add(func() error {
		logger.Info("Starting MCP server",
			"addr", cfg.Server.Addr,
			"path", cfg.Server.Path,
		)

		return web.ListenAndServe(
			srv,
			&web.FlagConfig{
				WebListenAddresses: sliceP([]string{cfg.Server.Addr}),
				WebSystemdSocket:   boolP(false),
				WebConfigFile:      stringP(cfg.Server.Web),
			},
			logger,
		)
	}, func(reason error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown MCP server gracefully",
				"err", err,
			)

			return
		}

		logger.Info("Shutdown MCP server gracefully",
			"reason", reason,
		)
	})
}

func handler(cfg *config.Config, logger *slog.Logger, client *jenkins.Client, mcp *imcp.Server) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer(logger))
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Cache)

	if cfg.Server.Pprof {
		mux.Mount("/debug", middleware.Profiler())
	}

	if cfg.Collector.Jobs {
		logger.Info("Job collector registered",
			"builds", cfg.Collector.Builds,
		)

		registry.MustRegister(exporter.NewJobCollector(
			logger,
			client,
			requestFailures,
			requestDuration,
			cfg.Target.Timeout,
			cfg.Collector.Builds,
		))
	}

	reg := promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{
			ErrorLog: promLogger{logger},
		},
	)

	// Stateless, every tool call is a single POST without a session.
	mux.Handle(cfg.Server.Path, server.NewStreamableHTTPServer(
		mcp.MCP(),
		server.WithEndpointPath(cfg.Server.Path),
		server.WithStateLess(true),
		server.WithLogger(mcpLogger{logger}),
	))

	mux.Group(func(root chi.Router) {
		root.Use(middleware.Timeout)

		root.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			reg.ServeHTTP(w, r)
		})

		root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)

			_, _ = io.WriteString(w, http.StatusText(http.StatusOK))
		})

		root.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)

			_, _ = io.WriteString(w, http.StatusText(http.StatusOK))
		})
	})

	return mux
}

// mcpLogger routes the transport logs of mcp-go into slog.
type mcpLogger struct {
	logger *slog.Logger
}

func (l mcpLogger) Infof(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l mcpLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}
