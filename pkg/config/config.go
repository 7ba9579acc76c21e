package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// TransportStdio serves MCP on stdin and stdout.
	TransportStdio = "stdio"

	// TransportHTTP serves MCP as streamable HTTP.
	TransportHTTP = "http"
)

// Server defines the general server configuration.
type Server struct {
	Transport string
	Addr      string
	Path      string
	Timeout   time.Duration
	Web       string
	Pprof     bool
}

// Logs defines the level and color for log configuration.
type Logs struct {
	Level  string
	Pretty bool
}

// Target defines the target specific configuration.
type Target struct {
	Address             string
	Username            string
	Password            string
	UseAPIToken         bool
	Timeout             time.Duration
	CrumbSignatures     []string
	CrumbStatusFallback bool
}

// History defines the trigger history configuration.
type History struct {
	File   string
	Retain int
}

// Collector defines the collector specific configuration.
type Collector struct {
	Jobs   bool
	Builds bool
}

// Config is a combination of all available configurations.
type Config struct {
	Server    Server
	Logs      Logs
	Target    Target
	History   History
	Collector Collector
}

// Load initializes a default configuration struct.
func Load() *Config {
	return &Config{}
}

// Validate checks the combination of all options.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport %q", c.Server.Transport)
	}

	if strings.TrimSpace(c.Target.Address) == "" {
		return fmt.Errorf("missing jenkins url")
	}

	if c.Collector.Jobs && c.Server.Transport != TransportHTTP {
		return fmt.Errorf("job collector requires the http transport")
	}

	return nil
}

// Value returns the config value based on a DSN.
func Value(val string) (string, error) {
	if strings.HasPrefix(val, "file://") {
		content, err := os.ReadFile(
			strings.TrimPrefix(val, "file://"),
		)

		if err != nil {
			return "", fmt.Errorf("failed to parse secret file: %w", err)
		}

		return strings.TrimSpace(string(content)), nil
	}

	if strings.HasPrefix(val, "base64://") {
		content, err := base64.StdEncoding.DecodeString(
			strings.TrimPrefix(val, "base64://"),
		)

		if err != nil {
			return "", fmt.Errorf("failed to parse base64 value: %w", err)
		}

		return string(content), nil
	}

	return val, nil
}
