package imcp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kjozsa/jenkins-mcp/pkg/internal/jenkins"
	"github.com/kjozsa/jenkins-mcp/pkg/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// JobList is the payload of list_jobs.
type JobList struct {
	Count int                  `json:"count"`
	Jobs  []jenkins.JenkinsJob `json:"jobs"`
}

// TriggerList is the payload of list_recent_triggers.
type TriggerList struct {
	Count    int               `json:"count"`
	Triggers []storage.Trigger `json:"triggers"`
}

func (s *Server) handleListJobs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.client.Job.List(ctx)

	if err != nil {
		return errorResult(err), nil
	}

	loggerFrom(ctx, s.logger).Debug("listed jobs",
		"count", len(jobs),
	)

	return structuredResult(JobList{
		Count: len(jobs),
		Jobs:  jobs,
	}), nil
}

func (s *Server) handleTriggerBuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	jobName, err := requireString(args, "job_name")

	if err != nil {
		return errorResult(err), nil
	}

	params, err := parameters(args["parameters"])

	if err != nil {
		return errorResult(err), nil
	}

	queued, err := s.client.Job.Trigger(ctx, jenkins.BuildRequest{
		JobName:    jobName,
		Parameters: params,
	})

	s.record(ctx, jobName, params, queued, err)

	if err != nil {
		return errorResult(err), nil
	}

	loggerFrom(ctx, s.logger).Info("queued build",
		"job", jobName,
		"queue_id", queued.QueueID,
	)

	return structuredResult(queued), nil
}

func (s *Server) handleBuildStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	jobName, err := requireString(args, "job_name")

	if err != nil {
		return errorResult(err), nil
	}

	number, err := buildNumber(args["build_number"])

	if err != nil {
		return errorResult(err), nil
	}

	status, err := s.client.Job.Status(ctx, jobName, number)

	if err != nil {
		return errorResult(err), nil
	}

	return structuredResult(status), nil
}

func (s *Server) handleQueueItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("queue_id")

	if err != nil {
		return errorResult(invalidArgument("queue_id: %s", err)), nil
	}

	item, err := s.client.Queue.Item(ctx, int64(id))

	if err != nil {
		return errorResult(err), nil
	}

	return structuredResult(item), nil
}

func (s *Server) handleRecentTriggers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobName := strings.Trim(strings.TrimSpace(req.GetString("job_name", "")), "/")
	limit := req.GetInt("limit", storage.DefaultRecent)

	triggers, err := s.history.Recent(ctx, jobName, limit)

	if err != nil {
		loggerFrom(ctx, s.logger).Error("failed to read trigger history",
			"err", err,
		)

		return errorResult(fmt.Errorf("failed to read trigger history: %w", err)), nil
	}

	return structuredResult(TriggerList{
		Count:    len(triggers),
		Triggers: triggers,
	}), nil
}

// record stores the trigger attempt, failures only get logged.
func (s *Server) record(ctx context.Context, jobName string, params map[string]string, queued *jenkins.QueuedBuild, err error) {
	if s.history == nil {
		return
	}

	names := make([]string, 0, len(params))

	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	trigger := storage.Trigger{
		JobName:    strings.Trim(strings.TrimSpace(jobName), "/"),
		Parameters: names,
	}

	if err != nil {
		var typed *jenkins.Error

		if errors.As(err, &typed) {
			trigger.ErrorKind = string(typed.Kind)
		}

		trigger.Message = err.Error()
	}

	if queued != nil {
		trigger.Queued = queued.Queued
		trigger.QueueID = queued.QueueID
		trigger.Location = queued.Location
	}

	if _, recordErr := s.history.Record(context.WithoutCancel(ctx), trigger); recordErr != nil {
		loggerFrom(ctx, s.logger).Warn("failed to record trigger",
			"job", trigger.JobName,
			"err", recordErr,
		)
	}
}

func invalidArgument(format string, args ...any) error {
	return &jenkins.Error{
		Kind:    jenkins.KindInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

func requireString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]

	if !ok || raw == nil {
		return "", invalidArgument("%s is required", key)
	}

	value, ok := raw.(string)

	if !ok {
		return "", invalidArgument("%s must be a string", key)
	}

	return value, nil
}

// parameters flattens the parameters object into the form values Jenkins
// expects. Only scalar values are accepted.
func parameters(raw any) (map[string]string, error) {
	if raw == nil {
		return nil, nil
	}

	values, ok := raw.(map[string]any)

	if !ok {
		return nil, invalidArgument("parameters must be an object")
	}

	result := make(map[string]string, len(values))

	for name, value := range values {
		if strings.TrimSpace(name) == "" {
			return nil, invalidArgument("parameter names must not be empty")
		}

		switch v := value.(type) {
		case nil:
			result[name] = ""
		case string:
			result[name] = v
		case bool:
			result[name] = strconv.FormatBool(v)
		case float64:
			result[name] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, invalidArgument("parameter %q must be a string, number or boolean", name)
		}
	}

	return result, nil
}

// buildNumber accepts a permalink, a numeric string or a JSON number.
func buildNumber(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		if v != math.Trunc(v) || v < 1 || v >= math.MaxInt64 {
			return "", invalidArgument("build_number must be a positive integer")
		}

		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", invalidArgument("build_number must be a string or number")
	}
}
