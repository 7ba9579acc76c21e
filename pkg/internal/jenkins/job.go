package jenkins

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// JobClient is a client for the jobs API.
type JobClient struct {
	client *Client
	logger *slog.Logger
}

// jobPath converts "folder/sub/job" into "/job/folder/job/sub/job/job".
func jobPath(name string) string {
	var b strings.Builder

	for _, part := range strings.Split(name, "/") {
		if part == "" {
			continue
		}

		b.WriteString("/job/")
		b.WriteString(url.PathEscape(part))
	}

	return b.String()
}

func validateJobName(name string) (string, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")

	if name == "" {
		return "", newError(KindInvalidArgument, 0, "job name must not be empty")
	}

	return name, nil
}

// List returns all jobs of the root view.
func (c *JobClient) List(ctx context.Context) ([]JenkinsJob, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "/api/json?tree=jobs[name,url,buildable]", nil)

	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req, "list_jobs")

	if err != nil {
		return nil, err
	}

	if !resp.Success() {
		return nil, statusError(resp, "listing jobs")
	}

	result := Hudson{}

	if err := decode(resp, &result, "listing jobs"); err != nil {
		return nil, err
	}

	if result.Jobs == nil {
		return []JenkinsJob{}, nil
	}

	return result.Jobs, nil
}

// Trigger queues a build, with parameters if any are given.
func (c *JobClient) Trigger(ctx context.Context, build BuildRequest) (*QueuedBuild, error) {
	name, err := validateJobName(build.JobName)

	if err != nil {
		return nil, err
	}

	path := jobPath(name) + "/build"
	form := url.Values{}

	if len(build.Parameters) > 0 {
		path = jobPath(name) + "/buildWithParameters"

		for key, value := range build.Parameters {
			form.Set(key, value)
		}
	}

	resp, err := c.client.Crumbs.Do(ctx, "trigger_build", func(ctx context.Context) (*http.Request, error) {
		req, err := c.client.NewRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))

		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})

	if err != nil {
		return nil, err
	}

	location := resp.Header.Get("Location")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, newError(KindJobNotFound, resp.StatusCode, "job %q does not exist", name)
	case resp.Success():
	case resp.StatusCode >= 300 && resp.StatusCode < 400 && location != "":
	default:
		return nil, statusError(resp, "triggering "+name)
	}

	c.logger.Info("triggered jenkins build",
		"job", name,
		"parameters", parameterNames(build.Parameters),
		"location", location,
	)

	return &QueuedBuild{
		Queued:   true,
		JobName:  name,
		Location: location,
		QueueID:  queueID(location),
	}, nil
}

// Status returns the state of a build, number is either numeric or a
// permalink like lastBuild. An empty number means lastBuild.
func (c *JobClient) Status(ctx context.Context, jobName, number string) (*BuildStatus, error) {
	name, err := validateJobName(jobName)

	if err != nil {
		return nil, err
	}

	number = strings.TrimSpace(number)

	if number == "" {
		number = LastBuild
	}

	if !permalinks[number] {
		n, err := strconv.Atoi(number)

		if err != nil || n <= 0 {
			return nil, newError(KindInvalidArgument, 0, "build number %q must be a positive integer or a permalink like %s", number, LastBuild)
		}
	}

	req, err := c.client.NewRequest(ctx, http.MethodGet, jobPath(name)+"/"+number+"/api/json", nil)

	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req, "get_build_status")

	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, newError(KindBuildNotFound, resp.StatusCode, "build %s of job %q does not exist", number, name)
	}

	if !resp.Success() {
		return nil, statusError(resp, "fetching build "+number+" of "+name)
	}

	result := BuildStatus{}

	if err := decode(resp, &result, "fetching build status"); err != nil {
		return nil, err
	}

	if result.Result != nil && *result.Result == "" {
		result.Result = nil
	}

	return &result, nil
}

// queueID extracts the id of ".../queue/item/{id}/", zero if absent.
func queueID(location string) int64 {
	parts := strings.Split(strings.TrimRight(location, "/"), "/")

	if len(parts) < 2 || parts[len(parts)-2] != "item" {
		return 0
	}

	id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)

	if err != nil {
		return 0
	}

	return id
}

// parameterNames lists only the keys, values might be secrets.
func parameterNames(params map[string]string) []string {
	names := make([]string, 0, len(params))

	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
