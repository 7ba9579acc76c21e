package command

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kjozsa/jenkins-mcp/pkg/config"
	"github.com/urfave/cli/v3"
)

// Health provides the sub-command to perform a health check.
func Health(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Perform health checks against the http transport",
		Flags: HealthFlags(cfg),
		Action: func(ctx context.Context, _ *cli.Command) error {
			logger := setupLogger(cfg)

			if err := probe(ctx, cfg.Server.Addr); err != nil {
				logger.Error("Health seems to be in bad state",
					"err", err,
				)

				return err
			}

			logger.Debug("Health got a good state")
			return nil
		},
	}
}

// HealthFlags defines the available health flags.
func HealthFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "server.address",
			Value:       "0.0.0.0:8000",
			Usage:       "Address of the running http transport",
			Sources:     cli.EnvVars("JENKINS_MCP_SERVER_ADDRESS"),
			Destination: &cfg.Server.Addr,
		},
	}
}

func probe(ctx context.Context, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/healthz", addr), nil)

	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)

	if err != nil {
		return fmt.Errorf("failed to request health check: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
