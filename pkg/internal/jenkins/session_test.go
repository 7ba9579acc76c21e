package jenkins

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	session, err := NewSession(" http://localhost:8080/ ", "user", "secret", PasswordCrumb)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", session.Endpoint())
	assert.Equal(t, "user", session.Username())
	assert.Equal(t, PasswordCrumb, session.Mode())
	assert.NotNil(t, session.Jar())

	_, ok := session.Crumb()
	assert.False(t, ok)
}

func TestNewSessionInvalid(t *testing.T) {
	for _, endpoint := range []string{"", "   ", "ftp://jenkins", "://broken"} {
		_, err := NewSession(endpoint, "user", "secret", APIToken)
		assert.Error(t, err, endpoint)
	}
}

func TestAuthModeString(t *testing.T) {
	assert.Equal(t, "password-crumb", PasswordCrumb.String())
	assert.Equal(t, "api-token", APIToken.String())
}

func TestSessionCloseDropsState(t *testing.T) {
	mock := newMockJenkins(t)
	client := newTestClient(t, mock.URL, PasswordCrumb)

	_, err := client.Crumbs.Ensure(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(mock.URL)
	require.NoError(t, err)

	assert.NotEmpty(t, client.Session().Jar().Cookies(u))

	require.NoError(t, client.Close())

	_, ok := client.Session().Crumb()
	assert.False(t, ok)
	assert.Empty(t, client.Session().Jar().Cookies(u))

	// A closed session starts over with a fresh crumb and cookie.
	_, err = client.Job.Trigger(context.Background(), BuildRequest{JobName: "deploy-app"})
	require.NoError(t, err)

	calls, posts := mock.snapshot()
	assert.Equal(t, 2, calls)
	require.Len(t, posts, 1)
	assert.Equal(t, "session-2", posts[0].Cookie)
}

func TestClientRequiresSession(t *testing.T) {
	_, err := NewClient(WithTimeout(time.Second))
	assert.Error(t, err)
}

func TestClientDefaults(t *testing.T) {
	session, err := NewSession("http://localhost:8080", "user", "secret", APIToken)
	require.NoError(t, err)

	client, err := NewClient(WithSession(session), WithTimeout(0))
	require.NoError(t, err)

	assert.Equal(t, DefaultTimeout, client.HTTPClient().Timeout)
	assert.NotNil(t, client.HTTPClient().Jar)
}

func TestNewRequestAttachesCredentials(t *testing.T) {
	session, err := NewSession("http://localhost:8080", "user", "secret", APIToken)
	require.NoError(t, err)

	client, err := NewClient(WithSession(session), WithTimeout(5*time.Second))
	require.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/api/json", nil)
	require.NoError(t, err)

	user, pass, ok := req.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "http://localhost:8080/api/json", req.URL.String())
	assert.Equal(t, 5*time.Second, client.HTTPClient().Timeout)
}

type recordingObserver struct {
	actions []string
	errors  int
}

func (o *recordingObserver) Observe(action string, _ time.Duration, err error) {
	o.actions = append(o.actions, action)

	if err != nil {
		o.errors++
	}
}

func TestObserverSeesEveryRequest(t *testing.T) {
	mock := newMockJenkins(t)
	observer := &recordingObserver{}
	client := newTestClient(t, mock.URL, PasswordCrumb, WithObserver(observer))

	_, err := client.Job.Trigger(context.Background(), BuildRequest{JobName: "deploy-app"})
	require.NoError(t, err)

	_, err = client.Job.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"crumb", "trigger_build", "list_jobs"}, observer.actions)
	assert.Zero(t, observer.errors)
}
