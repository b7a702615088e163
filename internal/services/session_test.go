package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/desertthunder/wikimirror/internal/shared"
	tu "github.com/desertthunder/wikimirror/internal/testing"
)

func cookieNames(cookies []*http.Cookie) []string {
	names := make([]string, len(cookies))
	for i, c := range cookies {
		names[i] = c.Name + "=" + c.Value
	}
	return names
}

func TestMergeCookies(t *testing.T) {
	t.Run("Later Value Wins, First Order Kept", func(t *testing.T) {
		earlier := []*http.Cookie{{Name: "session", Value: "1"}, {Name: "lang", Value: "en"}}
		later := []*http.Cookie{{Name: "user", Value: "Bot"}, {Name: "session", Value: "2"}}

		got := cookieNames(MergeCookies(earlier, later))
		want := []string{"session=2", "lang=en", "user=Bot"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
			}
		}
	})

	t.Run("Expired Cookies Are Dropped", func(t *testing.T) {
		earlier := []*http.Cookie{{Name: "session", Value: "1"}, {Name: "token", Value: "x"}}
		later := []*http.Cookie{{Name: "token", Value: "deleted", MaxAge: -1}}

		got := cookieNames(MergeCookies(earlier, later))
		if len(got) != 1 || got[0] != "session=1" {
			t.Errorf("expected only session cookie, got %v", got)
		}
	})

	t.Run("Inputs Are Not Modified", func(t *testing.T) {
		earlier := []*http.Cookie{{Name: "a", Value: "1"}}
		MergeCookies(earlier, []*http.Cookie{{Name: "a", Value: "2"}})
		if earlier[0].Value != "1" {
			t.Error("earlier slice was modified")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := MergeCookies(nil, nil); len(got) != 0 {
			t.Errorf("expected no cookies, got %v", got)
		}
	})
}

func TestSession(t *testing.T) {
	sess := NewSession("https://fr.example.org/api.php", "Bot", []*http.Cookie{{Name: "s", Value: "1"}})
	sess.Absorb([]*http.Cookie{{Name: "s", Value: "2"}, {Name: "t", Value: "3"}})
	sess.Absorb(nil)

	got := cookieNames(sess.Cookies())
	if len(got) != 2 || got[0] != "s=2" || got[1] != "t=3" {
		t.Errorf("unexpected cookies %v", got)
	}

	copied := sess.Cookies()
	copied[0] = &http.Cookie{Name: "x", Value: "y"}
	if sess.Cookies()[0].Name != "s" {
		t.Error("Cookies should return a copy")
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		fake := tu.NewFakeWiki(t)
		fake.AddUser("Bot@Sync", "secret")

		wiki := NewWikiService(fake.Endpoint())
		sess, err := wiki.Login(ctx, Credentials{Username: "Bot@Sync", Password: "secret"})
		if err != nil {
			t.Fatalf("expected login to succeed, got %v", err)
		}

		if sess.Endpoint != fake.Endpoint() {
			t.Errorf("session bound to wrong endpoint %s", sess.Endpoint)
		}
		if sess.User != "Bot" {
			t.Errorf("expected user Bot, got %s", sess.User)
		}
		if sess.AcquiredAt.IsZero() {
			t.Error("acquisition time should be set")
		}

		got := cookieNames(sess.Cookies())
		want := []string{"fakewiki_session=s2", "fakewiki_lang=en", "fakewikiUserName=Bot"}
		if len(got) != len(want) {
			t.Fatalf("expected cookies %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("cookie %d: expected %s, got %s", i, want[i], got[i])
			}
		}

		reqs := fake.Requests()
		if len(reqs) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(reqs))
		}
		if reqs[0].Method != http.MethodGet || len(reqs[0].Cookies) != 0 {
			t.Errorf("token request should be an anonymous GET, got %+v", reqs[0])
		}
		if reqs[1].Method != http.MethodPost || len(reqs[1].Cookies) != 2 {
			t.Errorf("login should POST with step-1 cookies, got %+v", reqs[1])
		}
		if reqs[1].Params.Get("lgtoken") == "" {
			t.Error("login token not sent")
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		fake := tu.NewFakeWiki(t)
		fake.AddUser("Bot@Sync", "secret")

		_, err := NewWikiService(fake.Endpoint()).Login(ctx, Credentials{Username: "Bot@Sync", Password: "wrong"})
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}

		var loginErr *LoginError
		if !errors.As(err, &loginErr) {
			t.Fatalf("expected *LoginError, got %T", err)
		}
		if loginErr.Result != "Failed" || loginErr.Reason == "" || loginErr.Endpoint != fake.Endpoint() {
			t.Errorf("unexpected login error %+v", loginErr)
		}
	})

	t.Run("Forced Result", func(t *testing.T) {
		fake := tu.NewFakeWiki(t)
		fake.AddUser("Bot@Sync", "secret")
		fake.SetLoginResult("Aborted")

		_, err := NewWikiService(fake.Endpoint()).Login(ctx, Credentials{Username: "Bot@Sync", Password: "secret"})
		var loginErr *LoginError
		if !errors.As(err, &loginErr) || loginErr.Result != "Aborted" {
			t.Errorf("expected Aborted login error, got %v", err)
		}
	})

	t.Run("Missing Login Token", func(t *testing.T) {
		server := newJSONServer(t, `{"query":{"tokens":{}}}`)

		_, err := NewWikiService(server.URL).Login(ctx, Credentials{Username: "Bot", Password: "pw"})
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Empty Username", func(t *testing.T) {
		_, err := NewWikiService("http://unused.invalid/api.php").Login(ctx, Credentials{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Unreachable Endpoint", func(t *testing.T) {
		fake := tu.NewFakeWiki(t)
		endpoint := fake.Endpoint()
		fake.Server.Close()

		_, err := NewWikiService(endpoint).Login(ctx, Credentials{Username: "Bot", Password: "pw"})
		if !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})
}
