package shared

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

const redacted = "[REDACTED]"

// NewHTTPClient returns the client used for all wiki API calls.
//
// It has no cookie jar: sessions are carried explicitly per endpoint.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewRecordingClient wraps the HTTP transport in a go-vcr recorder that writes every exchange to the named cassette.
//
// Requests always reach the wiki and an existing cassette is overwritten, never replayed. Credentials and cookies are
// scrubbed only when the cassette is saved. Call stop to flush the cassette.
func NewRecordingClient(cassetteName string, timeout time.Duration) (client *http.Client, stop func() error, err error) {
	opts := &recorder.Options{
		CassetteName:       cassetteName,
		Mode:               recorder.ModeRecordOnly,
		SkipRequestLatency: true,
		RealTransport:      http.DefaultTransport,
	}
	r, err := recorder.NewWithOptions(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't set up go-vcr recording: %w", err)
	}

	r.AddHook(ScrubInteraction, recorder.BeforeSaveHook)

	client = r.GetDefaultClient()
	client.Timeout = timeout
	return client, r.Stop, nil
}

// ScrubInteraction removes session cookies and bot passwords from a recorded interaction.
func ScrubInteraction(i *cassette.Interaction) error {
	delete(i.Request.Headers, "Cookie")
	delete(i.Request.Headers, "Authorization")
	delete(i.Response.Headers, "Set-Cookie")

	if i.Request.Form.Has("lgpassword") {
		i.Request.Form.Set("lgpassword", redacted)
	}

	if i.Request.Body != "" {
		if form, err := url.ParseQuery(i.Request.Body); err == nil && form.Has("lgpassword") {
			form.Set("lgpassword", redacted)
			i.Request.Body = form.Encode()
		}
	}
	return nil
}
