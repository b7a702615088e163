package services

import (
	"context"
	"fmt"
	"iter"

	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/shared"
)

// WikiService reads and writes pages on one wiki through its action API.
type WikiService struct {
	api *APIService
}

// NewWikiService creates a [WikiService] for the api.php URL.
func NewWikiService(endpoint string, opts ...Option) *WikiService {
	return &WikiService{api: NewAPIService(endpoint, opts...)}
}

// Endpoint returns the api.php URL of the wiki.
func (w *WikiService) Endpoint() string {
	return w.api.Endpoint()
}

// PageContent reads the latest wikitext of a page.
//
// A page the wiki reports as missing is [models.Missing], not an error. Transport failures, invalid titles and
// API error payloads are returned as errors.
func (w *WikiService) PageContent(ctx context.Context, title string) (models.Lookup, error) {
	resp, err := w.api.Get(ctx, revisionsQuery(title), nil)
	if err != nil {
		return models.Lookup{}, err
	}
	if apiErr := apiError(resp); apiErr != nil {
		return models.Lookup{}, fmt.Errorf("reading %q: %w", title, apiErr)
	}

	var out RevisionsResponse
	if err := resp.Decode(&out); err != nil {
		return models.Lookup{}, err
	}

	if len(out.Query.Pages) == 0 {
		return models.Lookup{}, fmt.Errorf("%w: reading %q: no pages in response", shared.ErrAPIRequest, title)
	}

	page := out.Query.Pages[0]
	switch {
	case bool(page.Invalid):
		return models.Lookup{}, fmt.Errorf("%w: invalid title %q: %s", shared.ErrInvalidArgument, title, page.InvalidReason)
	case bool(page.Missing):
		return models.Missing, nil
	case len(page.Revisions) == 0:
		return models.Found(""), nil
	}

	content, ok := page.Revisions[0].Text()
	if !ok {
		return models.Lookup{}, fmt.Errorf("%w: reading %q: latest revision has no readable content", shared.ErrAPIRequest, title)
	}
	return models.Found(content), nil
}

// AllPages enumerates every page title in server order, following apcontinue until the server stops returning it.
//
// Each range over the sequence starts a fresh listing. Enumeration stops at the first error, which is yielded.
func (w *WikiService) AllPages(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		q := allPagesQuery()
		for {
			resp, err := w.api.Get(ctx, q, nil)
			if err != nil {
				yield("", fmt.Errorf("listing pages: %w", err))
				return
			}
			if apiErr := apiError(resp); apiErr != nil {
				yield("", fmt.Errorf("listing pages: %w", apiErr))
				return
			}

			var out AllPagesResponse
			if err := resp.Decode(&out); err != nil {
				yield("", fmt.Errorf("listing pages: %w", err))
				return
			}

			for _, p := range out.Query.AllPages {
				if !yield(p.Title, nil) {
					return
				}
			}

			next := out.Continue.APContinue
			if next == "" {
				return
			}
			if next == q.APContinue {
				yield("", fmt.Errorf("%w: listing pages: continuation %q did not advance", shared.ErrAPIRequest, next))
				return
			}
			q.APContinue = next
			q.Continue = out.Continue.Continue
		}
	}
}

// ListPages collects [WikiService.AllPages].
func (w *WikiService) ListPages(ctx context.Context) ([]string, error) {
	var titles []string
	for title, err := range w.AllPages(ctx) {
		if err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, nil
}

// apiError extracts an {"error": ...} payload, if any.
func apiError(resp *APIResponse) *APIError {
	var env errorEnvelope
	if err := resp.Decode(&env); err != nil {
		return nil
	}
	return env.Error
}
