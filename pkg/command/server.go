package command

import (
	"context"
	"time"

	"github.com/kjozsa/jenkins-mcp/pkg/action"
	"github.com/kjozsa/jenkins-mcp/pkg/config"
	"github.com/kjozsa/jenkins-mcp/pkg/internal/jenkins"
	"github.com/urfave/cli/v3"
)

// Server provides the sub-command to start the server.
func Server(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Start integrated server",
		Flags: ServerFlags(cfg),
		Action: func(_ context.Context, _ *cli.Command) error {
			logger := setupLogger(cfg)

			if err := validateLevel(cfg.Logs.Level); err != nil {
				logger.Error("Invalid log level",
					"err", err,
				)

				return err
			}

			if err := cfg.Validate(); err != nil {
				logger.Error("Invalid configuration",
					"err", err,
				)

				return err
			}

			return action.Server(cfg, logger)
		},
	}
}

// ServerFlags defines the available server flags.
func ServerFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "server.transport",
			Value:       config.TransportStdio,
			Usage:       "MCP transport, either stdio or http",
			Sources:     cli.EnvVars("JENKINS_MCP_TRANSPORT"),
			Destination: &cfg.Server.Transport,
		},
		&cli.StringFlag{
			Name:        "server.address",
			Value:       "0.0.0.0:8000",
			Usage:       "Address to bind the http transport",
			Sources:     cli.EnvVars("JENKINS_MCP_SERVER_ADDRESS"),
			Destination: &cfg.Server.Addr,
		},
		&cli.StringFlag{
			Name:        "server.path",
			Value:       "/mcp",
			Usage:       "Path to serve MCP on the http transport",
			Sources:     cli.EnvVars("JENKINS_MCP_SERVER_PATH"),
			Destination: &cfg.Server.Path,
		},
		&cli.DurationFlag{
			Name:        "server.timeout",
			Value:       90 * time.Second,
			Usage:       "Write timeout of the http transport",
			Sources:     cli.EnvVars("JENKINS_MCP_SERVER_TIMEOUT"),
			Destination: &cfg.Server.Timeout,
		},
		&cli.StringFlag{
			Name:        "server.web-config",
			Value:       "",
			Usage:       "Path to web-config file for TLS and basic auth",
			Sources:     cli.EnvVars("JENKINS_MCP_SERVER_WEB_CONFIG"),
			Destination: &cfg.Server.Web,
		},
		&cli.BoolFlag{
			Name:        "server.pprof",
			Value:       false,
			Usage:       "Enable pprof debugging on the http transport",
			Sources:     cli.EnvVars("JENKINS_MCP_SERVER_PPROF"),
			Destination: &cfg.Server.Pprof,
		},
		&cli.StringFlag{
			Name:        "jenkins.url",
			Value:       "",
			Usage:       "URL to access the Jenkins controller",
			Sources:     cli.EnvVars("JENKINS_MCP_URL", "JENKINS_URL"),
			Destination: &cfg.Target.Address,
		},
		&cli.StringFlag{
			Name:        "jenkins.username",
			Value:       "",
			Usage:       "Username for the Jenkins API, also file:// and base64://",
			Sources:     cli.EnvVars("JENKINS_MCP_USERNAME", "JENKINS_USERNAME"),
			Destination: &cfg.Target.Username,
		},
		&cli.StringFlag{
			Name:        "jenkins.password",
			Value:       "",
			Usage:       "Password or API token for the Jenkins API, also file:// and base64://",
			Sources:     cli.EnvVars("JENKINS_MCP_PASSWORD", "JENKINS_PASSWORD"),
			Destination: &cfg.Target.Password,
		},
		&cli.BoolFlag{
			Name:        "jenkins.use-api-token",
			Value:       false,
			Usage:       "Treat the password as API token and skip the crumb handling",
			Sources:     cli.EnvVars("JENKINS_MCP_USE_API_TOKEN", "JENKINS_USE_API_TOKEN"),
			Destination: &cfg.Target.UseAPIToken,
		},
		&cli.DurationFlag{
			Name:        "jenkins.timeout",
			Value:       jenkins.DefaultTimeout,
			Usage:       "Timeout for every request to the Jenkins API",
			Sources:     cli.EnvVars("JENKINS_MCP_TIMEOUT"),
			Destination: &cfg.Target.Timeout,
		},
		&cli.StringSliceFlag{
			Name:        "jenkins.crumb-signature",
			Value:       jenkins.DefaultCrumbSignatures,
			Usage:       "Response body fragments identifying a rejected crumb",
			Sources:     cli.EnvVars("JENKINS_MCP_CRUMB_SIGNATURES"),
			Destination: &cfg.Target.CrumbSignatures,
		},
		&cli.BoolFlag{
			Name:        "jenkins.crumb-status-fallback",
			Value:       false,
			Usage:       "Treat every 403 on a build trigger as a rejected crumb",
			Sources:     cli.EnvVars("JENKINS_MCP_CRUMB_STATUS_FALLBACK"),
			Destination: &cfg.Target.CrumbStatusFallback,
		},
		&cli.StringFlag{
			Name:        "history.file",
			Value:       "",
			Usage:       "SQLite file to record triggered builds, disabled if empty",
			Sources:     cli.EnvVars("JENKINS_MCP_HISTORY_FILE"),
			Destination: &cfg.History.File,
		},
		&cli.IntFlag{
			Name:        "history.retain",
			Value:       1000,
			Usage:       "Number of trigger records to keep, 0 keeps all",
			Sources:     cli.EnvVars("JENKINS_MCP_HISTORY_RETAIN"),
			Destination: &cfg.History.Retain,
		},
		&cli.BoolFlag{
			Name:        "collector.jobs",
			Value:       false,
			Usage:       "Enable the job metrics collector on the http transport",
			Sources:     cli.EnvVars("JENKINS_MCP_COLLECTOR_JOBS"),
			Destination: &cfg.Collector.Jobs,
		},
		&cli.BoolFlag{
			Name:        "collector.builds",
			Value:       false,
			Usage:       "Fetch the last build of every job on each scrape",
			Sources:     cli.EnvVars("JENKINS_MCP_COLLECTOR_BUILDS"),
			Destination: &cfg.Collector.Builds,
		},
	}
}
