package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kjozsa/jenkins-mcp/pkg/config"
	"github.com/kjozsa/jenkins-mcp/pkg/version"
	"github.com/urfave/cli/v3"
)

// Run parses the command line arguments and executes the program.
func Run() error {
	cfg := config.Load()

	app := &cli.Command{
		Name:    "jenkins_mcp",
		Version: version.String,
		Usage:   "MCP server for Jenkins jobs and builds",
		Flags:   RootFlags(cfg),
		Commands: []*cli.Command{
			Health(cfg),
			Server(cfg),
		},
	}

	cli.HelpFlag = &cli.BoolFlag{
		Name:    "help",
		Aliases: []string{"h"},
		Usage:   "Show the help, so what you see now",
	}

	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "Print the current version of that tool",
	}

	return app.Run(context.Background(), os.Args)
}

// RootFlags defines the available root flags.
func RootFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log.level",
			Value:       "info",
			Usage:       "Only log messages with given severity",
			Sources:     cli.EnvVars("JENKINS_MCP_LOG_LEVEL"),
			Destination: &cfg.Logs.Level,
		},
		&cli.BoolFlag{
			Name:        "log.pretty",
			Value:       false,
			Usage:       "Enable pretty messages for logging",
			Sources:     cli.EnvVars("JENKINS_MCP_LOG_PRETTY"),
			Destination: &cfg.Logs.Pretty,
		},
	}
}

// setupLogger builds the logger. It always writes to stderr, stdout belongs
// to the stdio transport.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch strings.ToLower(cfg.Logs.Level) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	}

	if cfg.Logs.Pretty {
		return slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}),
		)
	}

	return slog.New(
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
}

func validateLevel(level string) error {
	switch strings.ToLower(level) {
	case "error", "warn", "info", "debug":
		return nil
	}

	return fmt.Errorf("unsupported log level %q", level)
}
