package imcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kjozsa/jenkins-mcp/pkg/internal/jenkins"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolError is the structured payload of a failed tool call.
type ToolError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func structuredResult(v any) *mcp.CallToolResult {
	text, err := json.Marshal(v)

	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to encode result", err)
	}

	return mcp.NewToolResultStructured(v, string(text))
}

// errorResult maps any error onto a tool error carrying kind and message.
func errorResult(err error) *mcp.CallToolResult {
	payload := ToolError{
		Kind:    string(jenkins.KindAPI),
		Message: err.Error(),
	}

	var typed *jenkins.Error

	switch {
	case errors.As(err, &typed):
		payload.Kind = string(typed.Kind)
		payload.Message = strings.TrimPrefix(typed.Error(), payload.Kind+": ")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		payload.Kind = string(jenkins.KindConnection)
	}

	result := mcp.NewToolResultStructured(payload, fmt.Sprintf("%s: %s", payload.Kind, payload.Message))
	result.IsError = true

	return result
}
