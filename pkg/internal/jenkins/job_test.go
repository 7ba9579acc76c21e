package jenkins

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobPath(t *testing.T) {
	tests := map[string]string{
		"deploy-app":         "/job/deploy-app",
		"team/api":           "/job/team/job/api",
		"/team//api/":        "/job/team/job/api",
		"with space":         "/job/with%20space",
		"folder/sub/job":     "/job/folder/job/sub/job/job",
		"release?candidate":  "/job/release%3Fcandidate",
		"percent%encoded":    "/job/percent%25encoded",
		"nested/deeper/most": "/job/nested/job/deeper/job/most",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, jobPath(input), input)
	}
}

func TestQueueID(t *testing.T) {
	assert.Equal(t, int64(123), queueID("http://localhost:8080/queue/item/123/"))
	assert.Equal(t, int64(7), queueID("http://localhost:8080/queue/item/7"))
	assert.Zero(t, queueID(""))
	assert.Zero(t, queueID("http://localhost:8080/job/x/"))
	assert.Zero(t, queueID("http://localhost:8080/queue/item/abc/"))
}

func TestListJobs(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	jobs, err := client.Job.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []JenkinsJob{
		{Name: "deploy-app", URL: "http://jenkins/job/deploy-app/", Buildable: true},
		{Name: "nightly", URL: "http://jenkins/job/nightly/", Buildable: false},
	}, jobs)

	again, err := client.Job.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jobs, again)

	calls, _ := mock.snapshot()
	assert.Zero(t, calls, "listing must not fetch a crumb")
}

func TestListJobsEmpty(t *testing.T) {
	mock := newMockJenkins(t)
	mock.set(func(m *mockJenkins) {
		m.jobs = nil
	})

	client := newTestClient(t, mock.URL, APIToken)

	jobs, err := client.Job.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestListJobsUnauthorized(t *testing.T) {
	mock := newMockJenkins(t)

	session, err := NewSession(mock.URL, testUser, "wrong", APIToken)
	require.NoError(t, err)

	client, err := NewClient(WithSession(session))
	require.NoError(t, err)

	_, err = client.Job.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, http.StatusUnauthorized, typed.Status)
}

func TestListJobsConnectionError(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, APIToken)
	mock.Close()

	_, err := client.Job.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestTriggerWithParameters(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	params := map[string]string{
		"branch":  "main",
		"comment": "a & b = c",
		"empty":   "",
	}

	queued, err := client.Job.Trigger(context.Background(), BuildRequest{
		JobName:    "deploy-app",
		Parameters: params,
	})
	require.NoError(t, err)

	assert.True(t, queued.Queued)
	assert.Equal(t, "deploy-app", queued.JobName)
	assert.Contains(t, queued.Location, "/queue/item/")
	assert.Equal(t, int64(101), queued.QueueID)

	_, posts := mock.snapshot()
	require.Len(t, posts, 1)
	assert.Equal(t, "/job/deploy-app/buildWithParameters", posts[0].Path)

	expected := url.Values{}

	for key, value := range params {
		expected.Set(key, value)
	}

	assert.Equal(t, expected, posts[0].Form)
}

func TestTriggerWithoutParameters(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	queued, err := client.Job.Trigger(context.Background(), BuildRequest{JobName: "deploy-app"})
	require.NoError(t, err)
	assert.True(t, queued.Queued)

	_, posts := mock.snapshot()
	require.Len(t, posts, 1)
	assert.Equal(t, "/job/deploy-app/build", posts[0].Path)
	assert.Empty(t, posts[0].Form)
}

func TestTriggerAPITokenSkipsCrumb(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, APIToken)

	for i := 0; i < 3; i++ {
		_, err := client.Job.Trigger(context.Background(), BuildRequest{
			JobName:    "deploy-app",
			Parameters: map[string]string{"branch": "main"},
		})
		require.NoError(t, err)
	}

	calls, posts := mock.snapshot()
	assert.Zero(t, calls)
	require.Len(t, posts, 3)

	for _, post := range posts {
		assert.Empty(t, post.Crumb)
	}

	_, ok := client.Session().Crumb()
	assert.False(t, ok)
}

func TestTriggerAPITokenForbiddenIsAuthError(t *testing.T) {
	mock := newMockJenkins(t)
	mock.set(func(m *mockJenkins) {
		m.rejectPosts = 5
	})

	client := newTestClient(t, mock.URL, APIToken)

	_, err := client.Job.Trigger(context.Background(), BuildRequest{JobName: "deploy-app"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)

	calls, posts := mock.snapshot()
	assert.Zero(t, calls)
	assert.Len(t, posts, 1)
}

func TestTriggerUnknownJob(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	queued, err := client.Job.Trigger(context.Background(), BuildRequest{
		JobName:    "nonexistent-job",
		Parameters: map[string]string{},
	})
	require.Error(t, err)
	assert.Nil(t, queued)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.Contains(t, err.Error(), "nonexistent-job")
}

func TestTriggerEmptyJobName(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	for _, name := range []string{"", "   ", "/"} {
		_, err := client.Job.Trigger(context.Background(), BuildRequest{JobName: name})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}

	calls, posts := mock.snapshot()
	assert.Zero(t, calls)
	assert.Empty(t, posts)
}

func TestTriggerCancelledContext(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, APIToken)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Job.Trigger(ctx, BuildRequest{JobName: "deploy-app"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildStatusInProgress(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	status, err := client.Job.Status(context.Background(), "deploy-app", LastBuild)
	require.NoError(t, err)

	assert.Equal(t, 42, status.Number)
	assert.True(t, status.Building)
	assert.Nil(t, status.Result)
	assert.Equal(t, "http://jenkins/job/deploy-app/42/", status.URL)
}

func TestBuildStatusDefaultsToLastBuild(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	status, err := client.Job.Status(context.Background(), "deploy-app", "")
	require.NoError(t, err)
	assert.Equal(t, 42, status.Number)
}

func TestBuildStatusFinished(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	status, err := client.Job.Status(context.Background(), "deploy-app", "41")
	require.NoError(t, err)

	require.NotNil(t, status.Result)
	assert.Equal(t, ResultFailure, *status.Result)
	assert.False(t, status.Building)
	assert.Equal(t, int64(1200), status.Duration)
	assert.Equal(t, int64(1700000000000), status.Timestamp)
}

func TestBuildStatusInFolder(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, APIToken)

	status, err := client.Job.Status(context.Background(), "team/api", "12")
	require.NoError(t, err)
	require.NotNil(t, status.Result)
	assert.Equal(t, ResultSuccess, *status.Result)
}

func TestBuildStatusNotFound(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	_, err := client.Job.Status(context.Background(), "deploy-app", "999")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildNotFound)
	assert.Contains(t, err.Error(), "999")
	assert.Contains(t, err.Error(), "deploy-app")
}

func TestBuildStatusInvalidNumber(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	for _, number := range []string{"0", "-1", "latest", "1.5"} {
		_, err := client.Job.Status(context.Background(), "deploy-app", number)
		require.Error(t, err, number)
		assert.ErrorIs(t, err, ErrInvalidArgument, number)
	}

	_, err := client.Job.Status(context.Background(), "", LastBuild)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
