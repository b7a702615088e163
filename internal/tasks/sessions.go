package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/wikimirror/internal/services"
)

// Authenticator logs into one endpoint.
type Authenticator interface {
	Endpoint() string
	Login(ctx context.Context, creds services.Credentials) (*services.Session, error)
}

// SessionCache holds at most one session per target for the duration of a run.
//
// Entries are keyed by [Target.SessionKey], so two targets sharing an endpoint still log in separately. Logins for
// the same key are serialised, so concurrent workers share a single login. When disabled, every
// Acquire performs a fresh login and nothing is kept.
type SessionCache struct {
	enabled bool

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	mu   sync.Mutex
	sess *services.Session
}

// NewSessionCache creates an empty cache.
func NewSessionCache(enabled bool) *SessionCache {
	return &SessionCache{enabled: enabled, entries: map[string]*sessionEntry{}}
}

// Enabled reports whether sessions are reused.
func (c *SessionCache) Enabled() bool {
	return c.enabled
}

// Acquire returns the session stored under key, logging in through auth when there is none. cached is true when the session came from an
// earlier login rather than this call.
func (c *SessionCache) Acquire(ctx context.Context, key string, auth Authenticator, creds services.Credentials) (sess *services.Session, cached bool, err error) {
	if !c.enabled {
		sess, err = auth.Login(ctx, creds)
		return sess, false, err
	}

	entry := c.entry(key)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.sess != nil {
		return entry.sess, true, nil
	}

	sess, err = auth.Login(ctx, creds)
	if err != nil {
		return nil, false, err
	}
	entry.sess = sess
	return sess, false, nil
}

// Invalidate drops sess from the cache. A newer session stored by another worker is kept.
func (c *SessionCache) Invalidate(key string, sess *services.Session) {
	if !c.enabled {
		return
	}

	entry := c.entry(key)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if sess == nil || entry.sess == sess {
		entry.sess = nil
	}
}

// Len counts the keys that currently hold a session.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	entries := make([]*sessionEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.Unlock()

	n := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.sess != nil {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

func (c *SessionCache) entry(key string) *sessionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &sessionEntry{}
		c.entries[key] = e
	}
	return e
}
