// Transport for the MediaWiki action API (api.php)
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/google/go-querystring/query"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "wikimirror/0.1"

// APIService performs raw calls against one api.php endpoint.
//
// It does not interpret API-level error payloads; callers decode [APIResponse.Body] themselves.
type APIService struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// Option configures an [APIService].
type Option func(*APIService)

// WithHTTPClient sets the client used for requests. Its Timeout acts as the per-call timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(a *APIService) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithRateLimit spaces requests to at most rps per second. Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(a *APIService) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			a.limiter = rate.NewLimiter(rate.Inf, 0)
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(a *APIService) {
		if ua != "" {
			a.userAgent = ua
		}
	}
}

// NewAPIService creates a transport for the given api.php URL.
func NewAPIService(endpoint string, opts ...Option) *APIService {
	a := &APIService{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Endpoint returns the api.php URL this service talks to.
func (a *APIService) Endpoint() string {
	return a.endpoint
}

// APIResponse is a raw api.php response.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Cookies    []*http.Cookie // cookies set by this response, in header order
}

// Decode unmarshals the JSON body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: unexpected response shape: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Get sends params in the query string of a GET request, attaching cookies in order.
//
// params is a struct tagged for go-querystring or a [url.Values].
func (a *APIService) Get(ctx context.Context, params any, cookies []*http.Cookie) (*APIResponse, error) {
	values, err := encodeParams(params)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(a.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint %q: %v", shared.ErrNetwork, a.endpoint, err)
	}
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrNetwork, err)
	}
	return a.do(req, cookies)
}

// Post sends params as an application/x-www-form-urlencoded body, attaching cookies in order.
func (a *APIService) Post(ctx context.Context, params any, cookies []*http.Cookie) (*APIResponse, error) {
	values, err := encodeParams(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, cookies)
}

func (a *APIService) do(req *http.Request, cookies []*http.Cookie) (*APIResponse, error) {
	if err := a.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrNetwork, a.endpoint, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrNetwork, req.Method, a.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s returned %s: %s", shared.ErrNetwork, req.Method, a.endpoint, resp.Status, snippet(body))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s %s returned non-JSON body: %s", shared.ErrNetwork, req.Method, a.endpoint, snippet(body))
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Cookies:    resp.Cookies(),
	}, nil
}

// encodeParams flattens params and forces format=json unless the caller chose a format.
func encodeParams(params any) (url.Values, error) {
	var values url.Values
	switch p := params.(type) {
	case nil:
		values = url.Values{}
	case url.Values:
		values = make(url.Values, len(p)+1)
		for k, v := range p {
			values[k] = append([]string(nil), v...)
		}
	default:
		v, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("%w: couldn't encode parameters: %v", shared.ErrInvalidArgument, err)
		}
		values = v
	}

	if !values.Has("format") {
		values.Set("format", "json")
	}
	return values, nil
}

func snippet(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > 200 {
		return string(body[:200]) + "..."
	}
	return string(body)
}
