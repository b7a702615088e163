package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/wikimirror/internal/shared"
)

// Credentials is a bot password pair.
type Credentials struct {
	Username string
	Password string
}

// Session is the cookie set issued by one endpoint's login.
//
// A Session is only valid for [Session.Endpoint]. It is safe for concurrent use; cookies the server sets on later
// calls are merged in with [Session.Absorb].
type Session struct {
	Endpoint   string
	User       string
	AcquiredAt time.Time

	mu      sync.RWMutex
	cookies []*http.Cookie
}

// NewSession builds a session from already-issued cookies.
func NewSession(endpoint, user string, cookies []*http.Cookie) *Session {
	return &Session{
		Endpoint:   endpoint,
		User:       user,
		AcquiredAt: time.Now(),
		cookies:    MergeCookies(nil, cookies),
	}
}

// Cookies returns a copy of the session cookies in order.
func (s *Session) Cookies() []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*http.Cookie(nil), s.cookies...)
}

// Absorb merges cookies from a later response into the session.
func (s *Session) Absorb(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = MergeCookies(s.cookies, cookies)
}

// MergeCookies combines two cookie lists by name. Values from later win, the order of first appearance is kept,
// and cookies the server expired are dropped.
func MergeCookies(earlier, later []*http.Cookie) []*http.Cookie {
	merged := make([]*http.Cookie, 0, len(earlier)+len(later))
	index := make(map[string]int, len(earlier)+len(later))

	for _, c := range append(append([]*http.Cookie(nil), earlier...), later...) {
		if c == nil || c.Name == "" {
			continue
		}
		if i, ok := index[c.Name]; ok {
			merged[i] = c
			continue
		}
		index[c.Name] = len(merged)
		merged = append(merged, c)
	}

	out := merged[:0]
	for _, c := range merged {
		if c.MaxAge < 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Login runs the two-step bot-password login against the endpoint.
//
//  1. GET a login token anonymously, keeping the cookies it sets.
//  2. POST action=login with those cookies.
//
// The returned session carries the merged cookies of both steps. There is no retry.
func (w *WikiService) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Username == "" {
		return nil, fmt.Errorf("%w: username is empty", shared.ErrMissingCredentials)
	}

	step1, err := w.api.Get(ctx, loginTokenQuery(), nil)
	if err != nil {
		return nil, err
	}
	if apiErr := apiError(step1); apiErr != nil {
		return nil, &LoginError{Endpoint: w.Endpoint(), Result: apiErr.Code, Reason: apiErr.Info}
	}

	var tokens TokensResponse
	if err := step1.Decode(&tokens); err != nil {
		return nil, err
	}
	token := tokens.Query.Tokens.LoginToken
	if token == "" {
		return nil, &LoginError{Endpoint: w.Endpoint(), Result: "NoToken", Reason: "no login token returned"}
	}

	params := LoginParams{Action: "login", Name: creds.Username, Password: creds.Password, Token: token}
	step2, err := w.api.Post(ctx, params, step1.Cookies)
	if err != nil {
		return nil, err
	}
	if apiErr := apiError(step2); apiErr != nil {
		return nil, &LoginError{Endpoint: w.Endpoint(), Result: apiErr.Code, Reason: apiErr.Info}
	}

	var login LoginResponse
	if err := step2.Decode(&login); err != nil {
		return nil, err
	}
	if login.Login.Result != "Success" {
		result := login.Login.Result
		if result == "" {
			result = "NoResult"
		}
		return nil, &LoginError{Endpoint: w.Endpoint(), Result: result, Reason: rawText(login.Login.Reason)}
	}

	user := login.Login.UserName
	if user == "" {
		user = creds.Username
	}

	return &Session{
		Endpoint:   w.Endpoint(),
		User:       user,
		AcquiredAt: time.Now(),
		cookies:    MergeCookies(step1.Cookies, step2.Cookies),
	}, nil
}
