package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/wikimirror/internal/services"
)

type countingAuth struct {
	endpoint string
	logins   atomic.Int32
	err      error
}

func (a *countingAuth) Endpoint() string { return a.endpoint }

func (a *countingAuth) Login(ctx context.Context, creds services.Credentials) (*services.Session, error) {
	a.logins.Add(1)
	time.Sleep(5 * time.Millisecond)
	if a.err != nil {
		return nil, a.err
	}
	return services.NewSession(a.endpoint, creds.Username, nil), nil
}

func TestSessionCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Concurrent Acquire Logs In Once", func(t *testing.T) {
		cache := NewSessionCache(true)
		auth := &countingAuth{endpoint: "https://fr.example.org/api.php"}

		var wg sync.WaitGroup
		sessions := make([]*services.Session, 8)
		for i := range sessions {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sess, _, err := cache.Acquire(ctx, auth.endpoint, auth, testCreds)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				sessions[i] = sess
			}()
		}
		wg.Wait()

		if got := auth.logins.Load(); got != 1 {
			t.Errorf("expected 1 login, got %d", got)
		}
		for _, s := range sessions[1:] {
			if s != sessions[0] {
				t.Fatal("all workers should share one session")
			}
		}
	})

	t.Run("Cached Flag", func(t *testing.T) {
		cache := NewSessionCache(true)
		auth := &countingAuth{endpoint: "fr"}

		_, cached, _ := cache.Acquire(ctx, auth.endpoint, auth, testCreds)
		if cached {
			t.Error("first acquire should log in")
		}
		_, cached, _ = cache.Acquire(ctx, auth.endpoint, auth, testCreds)
		if !cached {
			t.Error("second acquire should reuse the session")
		}
	})

	t.Run("Failed Login Is Not Cached", func(t *testing.T) {
		cache := NewSessionCache(true)
		auth := &countingAuth{endpoint: "fr", err: errors.New("boom")}

		if _, _, err := cache.Acquire(ctx, auth.endpoint, auth, testCreds); err == nil {
			t.Fatal("expected error")
		}
		if cache.Len() != 0 {
			t.Errorf("expected empty cache, got %d", cache.Len())
		}
	})

	t.Run("Stale Invalidate Keeps Newer Session", func(t *testing.T) {
		cache := NewSessionCache(true)
		auth := &countingAuth{endpoint: "fr"}

		old, _, _ := cache.Acquire(ctx, auth.endpoint, auth, testCreds)
		cache.Invalidate("fr", old)
		fresh, _, _ := cache.Acquire(ctx, auth.endpoint, auth, testCreds)

		cache.Invalidate("fr", old)
		got, cached, _ := cache.Acquire(ctx, auth.endpoint, auth, testCreds)
		if got != fresh || !cached {
			t.Error("invalidating a stale session must not drop the newer one")
		}
		if auth.logins.Load() != 2 {
			t.Errorf("expected 2 logins, got %d", auth.logins.Load())
		}
	})

	t.Run("Endpoints Are Independent", func(t *testing.T) {
		cache := NewSessionCache(true)
		fr := &countingAuth{endpoint: "fr"}
		de := &countingAuth{endpoint: "de"}

		frSess, _, _ := cache.Acquire(ctx, fr.endpoint, fr, testCreds)
		deSess, _, _ := cache.Acquire(ctx, de.endpoint, de, testCreds)
		if frSess == deSess || frSess.Endpoint != "fr" || deSess.Endpoint != "de" {
			t.Error("each endpoint needs its own session")
		}
		if cache.Len() != 2 {
			t.Errorf("expected 2 sessions, got %d", cache.Len())
		}
	})

	t.Run("Keys Sharing An Endpoint Are Independent", func(t *testing.T) {
		cache := NewSessionCache(true)
		auth := &countingAuth{endpoint: "https://shared.example.org/api.php"}

		first, _, _ := cache.Acquire(ctx, "fr@"+auth.endpoint, auth, testCreds)
		second, cached, _ := cache.Acquire(ctx, "fr-alt@"+auth.endpoint, auth, testCreds)
		if cached || first == second {
			t.Error("each key needs its own session")
		}

		cache.Invalidate("fr-alt@"+auth.endpoint, second)
		if got, cached, _ := cache.Acquire(ctx, "fr@"+auth.endpoint, auth, testCreds); got != first || !cached {
			t.Error("invalidating one key must not drop another")
		}
		if auth.logins.Load() != 2 {
			t.Errorf("expected 2 logins, got %d", auth.logins.Load())
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		cache := NewSessionCache(false)
		auth := &countingAuth{endpoint: "fr"}

		for range 3 {
			if _, cached, _ := cache.Acquire(ctx, auth.endpoint, auth, testCreds); cached {
				t.Error("disabled cache must never report a cached session")
			}
		}
		if auth.logins.Load() != 3 || cache.Len() != 0 || cache.Enabled() {
			t.Errorf("expected 3 logins and nothing kept, got %d logins and %d entries", auth.logins.Load(), cache.Len())
		}
	})
}
