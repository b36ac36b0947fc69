// Package httpapi implements the cookie/CSRF HTTP session the client
// authenticates and issues REST calls over, and the retry policy for
// idempotent requests (spec.md §4.4).
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	defaultConnectTimeout = 30 * time.Second
	csrfHeaderName        = "X-CSRF-Token"
	csrfCookieName        = "csrf_token"
	apiKeyHeaderName      = "X-API-KEY"
)

// AuthError reports an authentication failure: bad credentials, or a
// 401 surviving the one-shot re-auth retry.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("httpapi: auth failed: status %d: %s", e.StatusCode, e.Body)
}

// Credentials selects the session's auth mode: username/password
// (private API, cookie+CSRF) or a static API key (public API).
type Credentials struct {
	Username string
	Password string
	APIKey   string
}

func (c Credentials) usesAPIKey() bool { return c.APIKey != "" }

// SetAPIKey replaces the session's API key in place, for the
// fsnotify-driven hot-reload path (spec.md §4.4.1): rotating the key on
// disk updates subsequent requests without a reconnect or restart.
func (s *Session) SetAPIKey(key string) {
	s.creds.APIKey = key
}

// Session is an authenticated HTTP client against one controller's base
// URL, holding the cookie jar and CSRF token the controller issued.
type Session struct {
	BaseURL *url.URL
	creds   Credentials

	client    *http.Client
	csrf      string
	userAgent string
}

// NewSession builds a Session against baseURL. insecureSkipVerify
// mirrors UFP_SSL_VERIFY=false for self-signed controller certs.
func NewSession(baseURL string, creds Credentials, insecureSkipVerify bool) (*Session, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpapi: invalid base URL: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("httpapi: build cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig(insecureSkipVerify)

	return &Session{
		BaseURL: u,
		creds:   creds,
		client: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   defaultConnectTimeout,
		},
		userAgent: "protectclient/1.0",
	}, nil
}

// Login performs the username/password auth flow (spec.md §4.4 step 1).
// A no-op when the session is configured for API-key auth, since the
// public API needs no login call.
func (s *Session) Login(ctx context.Context) error {
	if s.creds.usesAPIKey() {
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"username":   s.creds.Username,
		"password":   s.creds.Password,
		"rememberMe": true,
	})
	if err != nil {
		return err
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpapi: login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return &AuthError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	s.extractCSRF(resp)
	return nil
}

// extractCSRF honors both the modern response-header path and the
// older controller behavior of setting a CSRF cookie instead (spec.md
// §4.4: "both paths must be accepted").
func (s *Session) extractCSRF(resp *http.Response) {
	if tok := resp.Header.Get(csrfHeaderName); tok != "" {
		s.csrf = tok
		return
	}
	for _, c := range resp.Cookies() {
		if c.Name == csrfCookieName {
			s.csrf = c.Value
			return
		}
	}
}

func (s *Session) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	if s.creds.usesAPIKey() {
		req.Header.Set(apiKeyHeaderName, s.creds.APIKey)
	}
	if isMutating(method) && s.csrf != "" {
		req.Header.Set(csrfHeaderName, s.csrf)
	}
	return req, nil
}

// FetchBootstrap retrieves the raw bootstrap document, handed to
// internal/model.ParseBootstrap by the caller rather than decoded here
// (spec.md §4.1).
func (s *Session) FetchBootstrap(ctx context.Context) ([]byte, error) {
	return s.GetBytes(ctx, "/api/bootstrap")
}

// CookieJar exposes the session's cookie jar so internal/wsconn can
// reuse it on the WebSocket dial (spec.md §4.3: "with subprotocol and
// cookies from the HTTP session").
func (s *Session) CookieJar() http.CookieJar { return s.client.Jar }

// WebSocketURL builds the update-stream URL for the given resume
// checkpoint (spec.md §6: `GET /api/ws/updates?lastUpdateId=…`).
// lastUpdateID may be empty for a fresh connection.
func (s *Session) WebSocketURL(lastUpdateID string) string {
	ref, _ := url.Parse("/api/ws/updates")
	u := s.BaseURL.ResolveReference(ref)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if lastUpdateID != "" {
		q := u.Query()
		q.Set("lastUpdateId", lastUpdateID)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return false
	default:
		return true
	}
}

// Do issues one request, applying the idempotent-GET retry policy from
// spec.md §7 and re-authenticating exactly once on a 401 for
// cookie-mode sessions.
func (s *Session) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reauthed bool

	for {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := s.newRequest(ctx, method, path, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		var resp *http.Response
		if !isMutating(method) {
			resp, err = s.doWithRetry(req, func() (*http.Request, error) { return s.newRequest(ctx, method, path, nil) })
		} else {
			resp, err = s.client.Do(req)
		}
		if err != nil {
			return nil, AsTransportError(path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && !s.creds.usesAPIKey() && !reauthed {
			resp.Body.Close()
			reauthed = true
			if err := s.Login(ctx); err != nil {
				return nil, err
			}
			continue
		}
		return resp, nil
	}
}

// retryPolicy controls the idempotent-GET backoff (spec.md §7): base
// 0.5s, cap 30s, doubling, maximum 5 attempts including the first.
var retryPolicy = struct {
	base       time.Duration
	cap        time.Duration
	maxAttempt int
}{base: 500 * time.Millisecond, cap: 30 * time.Second, maxAttempt: 5}

// doWithRetry retries transport-level failures and 5xx responses on
// GET/HEAD requests, rebuilding the request body via newReq each
// attempt since http.Request bodies aren't reusable.
func (s *Session) doWithRetry(req *http.Request, newReq func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	backoff := retryPolicy.base

	for attempt := 1; attempt <= retryPolicy.maxAttempt; attempt++ {
		resp, err := s.client.Do(req)
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}
		if err == nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("httpapi: status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt == retryPolicy.maxAttempt {
			break
		}
		log.Printf("httpapi: retrying %s %s (attempt %d/%d): %v", req.Method, req.URL.Path, attempt, retryPolicy.maxAttempt, lastErr)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > retryPolicy.cap {
			backoff = retryPolicy.cap
		}

		next, err := newReq()
		if err != nil {
			return nil, err
		}
		req = next
	}
	return nil, lastErr
}
