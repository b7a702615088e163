package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/wikimirror/internal/shared"
)

// anonymousToken is the CSRF token MediaWiki hands out to logged-out clients.
const anonymousToken = `+\`

// EditRequest is a whole-content overwrite of one page.
type EditRequest struct {
	Title   string
	Text    string
	Summary string
	Token   string
}

// EditResult reports what a successful edit did.
type EditResult struct {
	Title    string
	PageID   int
	NewRevID int
	New      bool // the page was created
	NoChange bool // the server found nothing to change
}

// CSRFToken fetches a write token for the session.
//
// An empty token or the anonymous token means the session is not logged in and fails with [shared.ErrAuthFailed].
func (w *WikiService) CSRFToken(ctx context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("%w: csrf token on %s", shared.ErrNotAuthenticated, w.Endpoint())
	}
	resp, err := w.api.Get(ctx, csrfTokenQuery(), sess.Cookies())
	if err != nil {
		return "", err
	}
	sess.Absorb(resp.Cookies)

	if apiErr := apiError(resp); apiErr != nil {
		return "", fmt.Errorf("%w: csrf token on %s: %w", shared.ErrAuthFailed, w.Endpoint(), apiErr)
	}

	var tokens TokensResponse
	if err := resp.Decode(&tokens); err != nil {
		return "", err
	}

	token := tokens.Query.Tokens.CSRFToken
	if token == "" || token == anonymousToken {
		return "", fmt.Errorf("%w: %s issued an anonymous csrf token; session is not logged in", shared.ErrAuthFailed, w.Endpoint())
	}
	return token, nil
}

// EditPage writes req.Text as the full content of req.Title.
//
// Only edit.result == "Success" counts as success; every other response is an [*EditError]. There is no retry.
func (w *WikiService) EditPage(ctx context.Context, sess *Session, req EditRequest) (*EditResult, error) {
	if sess == nil {
		return nil, fmt.Errorf("%w: edit %q on %s", shared.ErrNotAuthenticated, req.Title, w.Endpoint())
	}

	params := EditParams{
		Action:  "edit",
		Title:   req.Title,
		Text:    req.Text,
		Summary: req.Summary,
		Assert:  "user",
		Token:   req.Token,
	}

	resp, err := w.api.Post(ctx, params, sess.Cookies())
	if err != nil {
		return nil, err
	}
	sess.Absorb(resp.Cookies)

	if apiErr := apiError(resp); apiErr != nil {
		return nil, &EditError{Endpoint: w.Endpoint(), Title: req.Title, Code: apiErr.Code, Info: apiErr.Info}
	}

	var out EditResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}

	switch {
	case out.Edit == nil:
		return nil, &EditError{Endpoint: w.Endpoint(), Title: req.Title, Result: "missing edit result"}
	case out.Edit.Result != "Success":
		return nil, &EditError{
			Endpoint: w.Endpoint(),
			Title:    req.Title,
			Result:   out.Edit.Result,
			Info:     rawText(out.Edit.Captcha),
		}
	}

	return &EditResult{
		Title:    out.Edit.Title,
		PageID:   out.Edit.PageID,
		NewRevID: out.Edit.NewRevID,
		New:      bool(out.Edit.New),
		NoChange: bool(out.Edit.NoChange),
	}, nil
}
