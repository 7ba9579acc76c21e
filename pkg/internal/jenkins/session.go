package jenkins

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// AuthMode defines how requests are authenticated against Jenkins.
type AuthMode int

const (
	// PasswordCrumb authenticates with a password and needs a crumb plus
	// session cookies on every mutating request.
	PasswordCrumb AuthMode = iota

	// APIToken authenticates with an API token, Jenkins exempts those
	// requests from CSRF protection.
	APIToken
)

// String implements fmt.Stringer.
func (m AuthMode) String() string {
	switch m {
	case APIToken:
		return "api-token"
	default:
		return "password-crumb"
	}
}

// Session holds the authentication state for a single Jenkins target.
type Session struct {
	endpoint   string
	username   string
	credential string
	mode       AuthMode

	mu    sync.Mutex
	jar   http.CookieJar
	crumb *Crumb
}

// NewSession creates the session state for a Jenkins target.
func NewSession(endpoint, username, credential string, mode AuthMode) (*Session, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")

	if endpoint == "" {
		return nil, fmt.Errorf("missing jenkins endpoint")
	}

	u, err := url.Parse(endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to parse jenkins endpoint: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported jenkins endpoint scheme %q", u.Scheme)
	}

	jar, err := newJar()

	if err != nil {
		return nil, err
	}

	return &Session{
		endpoint:   endpoint,
		username:   username,
		credential: credential,
		mode:       mode,
		jar:        jar,
	}, nil
}

func newJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return jar, nil
}

// Endpoint returns the base URL without trailing slash.
func (s *Session) Endpoint() string {
	return s.endpoint
}

// Username returns the configured user.
func (s *Session) Username() string {
	return s.username
}

// Mode returns the authentication mode.
func (s *Session) Mode() AuthMode {
	return s.mode
}

// Jar returns the cookie jar bound to this session. The jar is swapped on
// Close, so it must not be cached by callers across a teardown.
func (s *Session) Jar() http.CookieJar {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.jar
}

// SetBasicAuth attaches the session credentials to a request.
func (s *Session) SetBasicAuth(req *http.Request) {
	if s.username == "" && s.credential == "" {
		return
	}

	req.SetBasicAuth(s.username, s.credential)
}

// Crumb returns a copy of the cached crumb, if any.
func (s *Session) Crumb() (Crumb, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crumb == nil {
		return Crumb{}, false
	}

	return *s.crumb, true
}

func (s *Session) storeCrumb(crumb Crumb) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.crumb = &crumb
}

func (s *Session) clearCrumb() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.crumb = nil
}

// clearCrumbIf drops the cached crumb only if it equals the given one.
func (s *Session) clearCrumbIf(crumb Crumb) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crumb == nil || *s.crumb != crumb {
		return false
	}

	s.crumb = nil
	return true
}

// Close drops the cached crumb and all session cookies.
func (s *Session) Close() error {
	jar, err := newJar()

	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.crumb = nil
	s.jar = jar

	return nil
}

// sessionJar resolves the current jar on every call, so an http.Client
// built once keeps working after Close swapped the jar.
type sessionJar struct {
	session *Session
}

func (j sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.session.Jar().SetCookies(u, cookies)
}

func (j sessionJar) Cookies(u *url.URL) []*http.Cookie {
	return j.session.Jar().Cookies(u)
}
