package jenkins

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// DefaultCrumbSignatures are the 403 body fragments Jenkins uses for a
// missing or expired crumb.
var DefaultCrumbSignatures = []string{
	"No valid crumb",
	"Invalid crumb",
}

// Matcher detects responses rejecting the attached crumb.
type Matcher struct {
	signatures []string
	statusOnly bool
}

// NewMatcher creates a matcher. Without any signature it falls back to the
// status code alone.
func NewMatcher(signatures []string, statusFallback bool) Matcher {
	lowered := make([]string, 0, len(signatures))

	for _, signature := range signatures {
		if s := strings.ToLower(strings.TrimSpace(signature)); s != "" {
			lowered = append(lowered, s)
		}
	}

	return Matcher{
		signatures: lowered,
		statusOnly: statusFallback || len(lowered) == 0,
	}
}

// Match reports whether the response rejected the crumb.
func (m Matcher) Match(resp *Response) bool {
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		return false
	}

	if m.statusOnly {
		return true
	}

	body := strings.ToLower(string(resp.Body))

	for _, signature := range m.signatures {
		if strings.Contains(body, signature) {
			return true
		}
	}

	return false
}

// RequestBuilder creates a fresh request for every attempt, request bodies
// can only be read once.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// CrumbManager owns acquisition, caching and invalidation of crumbs.
type CrumbManager struct {
	client  *Client
	session *Session
	matcher Matcher
	logger  *slog.Logger

	// fetch serializes issuer calls, a crumb is only valid together with
	// the cookies set by the same response.
	fetch sync.Mutex
}

// Ensure returns the cached crumb or fetches a new one. In API token mode
// it returns nil without touching the crumb issuer.
func (m *CrumbManager) Ensure(ctx context.Context) (*Crumb, error) {
	if m.session.Mode() == APIToken {
		return nil, nil
	}

	m.fetch.Lock()
	defer m.fetch.Unlock()

	if crumb, ok := m.session.Crumb(); ok {
		return &crumb, nil
	}

	crumb, err := m.issue(ctx)

	if err != nil {
		return nil, err
	}

	m.session.storeCrumb(crumb)

	m.logger.Info("fetched jenkins crumb",
		"field", crumb.Field,
		"crumb", "<masked>",
	)

	return &crumb, nil
}

func (m *CrumbManager) issue(ctx context.Context) (Crumb, error) {
	result := Crumb{}
	req, err := m.client.NewRequest(ctx, http.MethodGet, "/crumbIssuer/api/json", nil)

	if err != nil {
		return result, &Error{Kind: KindCrumbFetch, Message: "failed to prepare crumb request", Err: err}
	}

	resp, err := m.client.Do(req, "crumb")

	if err != nil {
		return result, &Error{Kind: KindCrumbFetch, Message: "crumb issuer unreachable", Err: err}
	}

	if !resp.Success() {
		return result, newError(KindCrumbFetch, resp.StatusCode, "crumb issuer refused: %s", excerpt(resp.Body))
	}

	if err := decode(resp, &result, "crumb issuer"); err != nil {
		return result, &Error{Kind: KindCrumbFetch, Status: resp.StatusCode, Message: "crumb issuer returned invalid JSON", Err: err}
	}

	if result.Field == "" || result.Value == "" {
		return result, newError(KindCrumbFetch, resp.StatusCode, "crumb issuer returned an incomplete crumb")
	}

	return result, nil
}

// Invalidate drops the cached crumb if it is still the rejected one. A crumb
// fetched meanwhile by a concurrent call stays, nil drops any cached crumb.
func (m *CrumbManager) Invalidate(used *Crumb) {
	m.fetch.Lock()
	defer m.fetch.Unlock()

	if used == nil {
		m.session.clearCrumb()
		return
	}

	if !m.session.clearCrumbIf(*used) {
		m.logger.Debug("kept newer jenkins crumb",
			"field", used.Field,
		)
	}
}

// Attach sets the crumb header on a mutating request, nil attaches nothing.
func (m *CrumbManager) Attach(req *http.Request, crumb *Crumb) {
	if crumb == nil {
		return
	}

	req.Header.Set(crumb.Field, crumb.Value)
}

type attempt int

const (
	attemptFirst attempt = iota
	attemptRefreshed
)

// Do sends a mutating request. A rejected crumb gets invalidated and the
// request is sent once more with a fresh one, a second rejection is final.
func (m *CrumbManager) Do(ctx context.Context, action string, build RequestBuilder) (*Response, error) {
	state := attemptFirst

	for {
		resp, used, err := m.send(ctx, action, build)

		if err != nil {
			return nil, err
		}

		if used == nil || !m.matcher.Match(resp) {
			return resp, nil
		}

		m.Invalidate(used)

		switch state {
		case attemptFirst:
			m.logger.Info("jenkins rejected crumb, refreshing",
				"action", action,
			)

			state = attemptRefreshed
		default:
			m.logger.Warn("jenkins rejected refreshed crumb",
				"action", action,
			)

			return nil, newError(KindAuth, resp.StatusCode, "%s rejected: crumb still invalid after refresh", action)
		}
	}
}

// send returns the response together with the crumb it carried.
func (m *CrumbManager) send(ctx context.Context, action string, build RequestBuilder) (*Response, *Crumb, error) {
	crumb, err := m.Ensure(ctx)

	if err != nil {
		return nil, nil, err
	}

	req, err := build(ctx)

	if err != nil {
		return nil, nil, err
	}

	m.Attach(req, crumb)

	resp, err := m.client.Do(req, action)

	if err != nil {
		return nil, nil, err
	}

	return resp, crumb, nil
}
