package jenkins

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testUser     = "testuser"
	testPassword = "testpassword"
	crumbField   = "Jenkins-Crumb"
	crumbInvalid = "<html><body>Error 403 No valid crumb was included in the request</body></html>"
)

// recordedPost is a mutating request as seen by the mock.
type recordedPost struct {
	Path   string
	Crumb  string
	Cookie string
	Form   url.Values
}

// mockJenkins emulates the few endpoints the client talks to.
type mockJenkins struct {
	*httptest.Server

	mu           sync.Mutex
	jobs         []JenkinsJob
	builds       map[string]string
	crumbCalls   int
	crumbStatus  int
	posts        []recordedPost
	rejectPosts  int
	forbidPosts  bool
	currentCrumb string
	currentToken string
	queue        int
}

func newMockJenkins(t *testing.T) *mockJenkins {
	t.Helper()

	m := &mockJenkins{
		jobs: []JenkinsJob{
			{Name: "deploy-app", URL: "http://jenkins/job/deploy-app/", Buildable: true},
			{Name: "nightly", URL: "http://jenkins/job/nightly/", Buildable: false},
		},
		builds: map[string]string{
			"/job/deploy-app/lastBuild/api/json": `{"_class":"hudson.model.FreeStyleBuild","number":42,"result":null,"building":true,"url":"http://jenkins/job/deploy-app/42/"}`,
			"/job/deploy-app/41/api/json":        `{"number":41,"result":"FAILURE","building":false,"duration":1200,"timestamp":1700000000000}`,
			"/job/team/job/api/12/api/json":      `{"number":12,"result":"SUCCESS","building":false}`,
		},
		crumbStatus: http.StatusOK,
		queue:       100,
	}

	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)

	return m
}

func (m *mockJenkins) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, pass, ok := r.BasicAuth()

	if !ok || user != testUser || (pass != testPassword && pass != "api-token-123") {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/crumbIssuer/api/json":
		m.crumbCalls++

		if m.crumbStatus != http.StatusOK {
			http.Error(w, "crumb issuer broken", m.crumbStatus)
			return
		}

		m.currentCrumb = fmt.Sprintf("crumb-%d", m.crumbCalls)
		m.currentToken = fmt.Sprintf("session-%d", m.crumbCalls)

		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: m.currentToken, Path: "/"})
		writeJSON(w, map[string]string{
			"_class":            "hudson.security.csrf.DefaultCrumbIssuer",
			"crumb":             m.currentCrumb,
			"crumbRequestField": crumbField,
		})
	case r.Method == http.MethodGet && r.URL.Path == "/api/json":
		w.Header().Set("X-Jenkins", "2.440")

		if r.URL.Query().Get("tree") == "" {
			writeJSON(w, map[string]any{"mode": "NORMAL", "numExecutors": 2})
			return
		}

		writeJSON(w, Hudson{Jobs: m.jobs})
	case r.Method == http.MethodGet && m.builds[r.URL.Path] != "":
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, m.builds[r.URL.Path])
	case r.Method == http.MethodPost && (strings.HasSuffix(r.URL.Path, "/build") || strings.HasSuffix(r.URL.Path, "/buildWithParameters")):
		m.handlePost(w, r)
	default:
		http.Error(w, "Not Found", http.StatusNotFound)
	}
}

func (m *mockJenkins) handlePost(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	post := recordedPost{
		Path:  r.URL.Path,
		Crumb: r.Header.Get(crumbField),
		Form:  r.PostForm,
	}

	if cookie, err := r.Cookie("JSESSIONID"); err == nil {
		post.Cookie = cookie.Value
	}

	m.posts = append(m.posts, post)

	if strings.HasPrefix(r.URL.Path, "/job/nonexistent-job/") {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if m.forbidPosts {
		http.Error(w, "user is missing the Job/Build permission", http.StatusForbidden)
		return
	}

	if m.rejectPosts > 0 {
		m.rejectPosts--
		http.Error(w, crumbInvalid, http.StatusForbidden)
		return
	}

	if pass := basicPassword(r); pass == testPassword {
		if post.Crumb != m.currentCrumb || post.Cookie != m.currentToken {
			http.Error(w, crumbInvalid, http.StatusForbidden)
			return
		}
	}

	m.queue++
	w.Header().Set("Location", fmt.Sprintf("%s/queue/item/%d/", m.URL, m.queue))
	w.WriteHeader(http.StatusCreated)
}

func (m *mockJenkins) snapshot() (int, []recordedPost) {
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := make([]recordedPost, len(m.posts))
	copy(posts, m.posts)

	return m.crumbCalls, posts
}

func (m *mockJenkins) set(fn func(m *mockJenkins)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(m)
}

func basicPassword(r *http.Request) string {
	_, pass, _ := r.BasicAuth()
	return pass
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, endpoint string, mode AuthMode, opts ...Option) *Client {
	t.Helper()

	credential := testPassword

	if mode == APIToken {
		credential = "api-token-123"
	}

	session, err := NewSession(endpoint, testUser, credential, mode)
	require.NoError(t, err)

	client, err := NewClient(
		append([]Option{
			WithSession(session),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		}, opts...)...,
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
