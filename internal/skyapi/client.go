// Package skyapi is the REST client for the Vivint Sky cloud.
package skyapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/metrics"
)

const (
	DefaultBaseURL  = "https://www.vivintsky.com"
	DefaultTokenURL = "https://id.vivint.com/oauth2/token"
	DefaultClientID = "ios"

	apiPath = "/api/"
	mfaPath = "/platform-user-api/v0/platformusers/2fa/validate"

	sessionCookie = "s"

	msgKey         = "msg"
	mfaMessageKey  = "message"
	mfaRequiredMsg = "Multi-factor authentication required"
)

type Options struct {
	Username string
	Password string
	// RefreshToken, when set, authenticates with a bearer token instead of
	// the password login.
	RefreshToken   string
	PersistSession bool

	BaseURL  string
	TokenURL string
	ClientID string

	HTTPClient *http.Client
	// RequestsPerSecond limits outgoing calls. Zero means 5.
	RequestsPerSecond float64
	Burst             int

	// SideChannel carries camera commands that the REST API does not
	// expose. Without it those commands fail with ErrSideChannelUnavailable.
	SideChannel SideChannel
	Log         *log.Logger
}

// SideChannel executes camera commands outside the REST API. It is given the
// session cookie value for authentication.
type SideChannel interface {
	SetCameraPrivacyMode(ctx context.Context, session string, panelID, deviceID int, on bool) error
	SetCameraDeterMode(ctx context.Context, session string, panelID, deviceID int, on bool) error
	SetCameraAsDoorbellChimeExtender(ctx context.Context, session string, panelID, deviceID int, on bool) error
	RebootCamera(ctx context.Context, session string, panelID, deviceID int, deviceType string) error
}

// Client talks to the Vivint Sky API. It is safe for concurrent use.
type Client struct {
	opts     Options
	base     *url.URL
	http     *http.Client
	noFollow *http.Client
	log      *log.Logger
	breaker  *gobreaker.CircuitBreaker[*response]
	limiter  *rate.Limiter

	mu         sync.Mutex
	mfaPending bool
	closed     bool
	tokens     oauth2.TokenSource
	token      *oauth2.Token
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func New(opts Options) (*Client, error) {
	if opts.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidArgument)
	}
	if opts.Password == "" && opts.RefreshToken == "" {
		return nil, fmt.Errorf("%w: password or refresh token is required", ErrInvalidArgument)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		cp := *httpClient
		cp.Jar = jar
		httpClient = &cp
	}
	noFollow := *httpClient
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	c := &Client{
		opts:     opts,
		base:     base,
		http:     httpClient,
		noFollow: &noFollow,
		log:      log.OrNop(opts.Log).With("component", "skyapi"),
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
	}
	c.breaker = newBreaker(c.log)
	if opts.RefreshToken != "" {
		c.token = &oauth2.Token{RefreshToken: opts.RefreshToken}
	}
	return c, nil
}

func newBreaker(l *log.Logger) *gobreaker.CircuitBreaker[*response] {
	metrics.BreakerState.Set(0)
	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "vivint-sky",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker %s: %s -> %s", name, from, to)
			metrics.BreakerState.Set(breakerState(to))
		},
	})
}

func breakerState(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// SessionValid reports whether the client holds a session cookie or a
// bearer token.
func (c *Client) SessionValid() bool {
	c.mu.Lock()
	bearer := c.tokens != nil
	c.mu.Unlock()
	return bearer || c.sessionCookie() != ""
}

func (c *Client) sessionCookie() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == sessionCookie {
			return ck.Value
		}
	}
	return ""
}

// RefreshToken returns the most recent refresh token, or "" when the client
// logs in with a password.
func (c *Client) RefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens != nil {
		if tok, err := c.tokens.Token(); err == nil && tok.RefreshToken != "" {
			c.token = tok
		}
	}
	if c.token == nil {
		return ""
	}
	return c.token.RefreshToken
}

// Connect establishes the session and returns the auth user snapshot.
func (c *Client) Connect(ctx context.Context) (map[string]any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, &APIError{Op: "connect", Err: ErrSessionClosed}
	}
	token := c.token
	c.mu.Unlock()

	if token != nil {
		cfg := &oauth2.Config{ClientID: c.opts.ClientID, Endpoint: oauth2.Endpoint{TokenURL: c.opts.TokenURL}}
		src := cfg.TokenSource(c.oauthContext(), token)
		if _, err := src.Token(); err != nil {
			return nil, &APIError{Op: "refresh token", Message: err.Error(), Err: ErrAuthentication}
		}
		c.mu.Lock()
		c.tokens = src
		c.mu.Unlock()
		return c.GetAuthUserData(ctx)
	}
	return c.login(ctx)
}

// oauthContext carries the client's HTTP client to the token source. It is
// not tied to any request so the source can keep refreshing.
func (c *Client) oauthContext() context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient, c.http)
}

func (c *Client) login(ctx context.Context) (map[string]any, error) {
	body := map[string]any{
		"username":        c.opts.Username,
		"password":        c.opts.Password,
		"persist_session": c.opts.PersistSession,
	}
	data, err := c.call(ctx, "login", http.MethodPost, c.apiURL("login", nil), body, false)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &APIError{Op: "login", Message: "unable to login to Vivint", Err: ErrAuthentication}
	}
	return data, nil
}

// Disconnect closes the session. Later calls fail with ErrSessionClosed.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.tokens = nil
	c.mu.Unlock()
	c.http.CloseIdleConnections()
	return nil
}

// VerifyMFA submits a second factor code.
func (c *Client) VerifyMFA(ctx context.Context, code string) error {
	u := *c.base
	u.Path = mfaPath
	if _, err := c.call(ctx, "verify mfa", http.MethodPost, u.String(), map[string]any{"code": code}, false); err != nil {
		return err
	}
	c.mu.Lock()
	c.mfaPending = false
	c.mu.Unlock()
	return nil
}

func (c *Client) apiURL(path string, query url.Values) string {
	u := *c.base
	u.Path = apiPath + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) (map[string]any, error) {
	return c.call(ctx, op, http.MethodGet, c.apiURL(path, query), nil, false)
}

func (c *Client) put(ctx context.Context, op, path string, body any) (map[string]any, error) {
	return c.call(ctx, op, http.MethodPut, c.apiURL(path, nil), body, false)
}

func (c *Client) post(ctx context.Context, op, path string, body any) (map[string]any, error) {
	return c.call(ctx, op, http.MethodPost, c.apiURL(path, nil), body, false)
}

// call performs one request. A 302 response yields {"location": ...}; an
// empty 2xx body yields an empty map.
func (c *Client) call(ctx context.Context, op, method, target string, body any, noRedirect bool) (map[string]any, error) {
	isMFA := strings.HasSuffix(target, mfaPath)
	isLogin := op == "login"

	c.mu.Lock()
	closed, pending := c.closed, c.mfaPending
	c.mu.Unlock()
	if closed {
		return nil, &APIError{Op: op, Err: ErrSessionClosed}
	}
	if pending && !isMFA {
		return nil, &APIError{Op: op, Message: mfaRequiredMsg, Err: ErrMFARequired}
	}
	if !isLogin && !isMFA && !c.SessionValid() {
		if _, err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &APIError{Op: op, Message: err.Error(), Err: ErrRequestFailed}
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.roundTrip(ctx, method, target, body, noRedirect)
	})
	metrics.APILatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APICalls.WithLabelValues(op, "error").Inc()
		c.log.Debug("%s %s failed: %v", method, op, err)
		return nil, &APIError{Op: op, Message: err.Error(), Err: ErrRequestFailed}
	}

	data, err := c.interpret(op, isMFA, resp)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.APICalls.WithLabelValues(op, result).Inc()
	return data, err
}

// roundTrip returns an error only for transport failures and 5xx
// responses, which are what the breaker counts.
func (c *Client) roundTrip(ctx context.Context, method, target string, body any, noRedirect bool) (*response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	hc := c.http
	if noRedirect {
		hc = c.noFollow
	}
	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	out := &response{status: res.StatusCode, header: res.Header, body: raw}
	if res.StatusCode >= http.StatusInternalServerError {
		return out, fmt.Errorf("server error: status %d", res.StatusCode)
	}
	return out, nil
}

func (c *Client) authorize(req *http.Request) error {
	c.mu.Lock()
	src := c.tokens
	c.mu.Unlock()
	if src == nil {
		return nil
	}
	tok, err := src.Token()
	if err != nil {
		return &APIError{Op: "refresh token", Message: err.Error(), Err: ErrAuthentication}
	}
	tok.SetAuthHeader(req)
	return nil
}

func (c *Client) interpret(op string, isMFA bool, resp *response) (map[string]any, error) {
	var data map[string]any
	mediaType, _, _ := mime.ParseMediaType(resp.header.Get("Content-Type"))
	switch {
	case len(bytes.TrimSpace(resp.body)) == 0:
		data = map[string]any{}
	case mediaType == "application/json":
		if err := json.Unmarshal(resp.body, &data); err != nil {
			// Some endpoints answer with a bare JSON value.
			data = map[string]any{msgKey: string(resp.body)}
		}
	default:
		data = map[string]any{msgKey: string(resp.body)}
	}

	switch status := resp.status; {
	case status >= 200 && status < 300:
		return data, nil
	case status == http.StatusFound:
		return map[string]any{"location": resp.header.Get("Location")}, nil
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		key := msgKey
		if isMFA {
			key = mfaMessageKey
		}
		message, _ := data[key].(string)
		if message == mfaRequiredMsg || isMFA {
			c.mu.Lock()
			c.mfaPending = true
			c.mu.Unlock()
			return nil, &APIError{Op: op, Status: status, Message: message, Err: ErrMFARequired}
		}
		if status == http.StatusBadRequest {
			return nil, &APIError{Op: op, Status: status, Message: message, Err: ErrRequestFailed}
		}
		return nil, &APIError{Op: op, Status: status, Message: message, Err: ErrAuthentication}
	default:
		return nil, &APIError{Op: op, Status: resp.status, Message: http.StatusText(resp.status), Err: ErrRequestFailed}
	}
}

// side returns the side channel and session cookie for a camera command.
func (c *Client) side(op string) (SideChannel, string, error) {
	if c.opts.SideChannel == nil {
		return nil, "", &APIError{Op: op, Err: ErrSideChannelUnavailable}
	}
	session := c.sessionCookie()
	if session == "" {
		return nil, "", &APIError{Op: op, Message: "no session cookie", Err: ErrAuthentication}
	}
	return c.opts.SideChannel, session, nil
}

func wrapSide(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &APIError{Op: op, Message: err.Error(), Err: ErrRequestFailed}
}
