package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kjozsa/jenkins-mcp/pkg/command"
)

func main() {
	if env := os.Getenv("JENKINS_MCP_ENV_FILE"); env != "" {
		_ = godotenv.Load(env)
	} else {
		_ = godotenv.Load()
	}

	if err := command.Run(); err != nil {
		os.Exit(1)
	}
}
