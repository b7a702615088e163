// package services defines the interfaces for talking to a MediaWiki action API
package services

import (
	"context"
	"iter"

	"github.com/desertthunder/wikimirror/internal/models"
)

// Reader reads page content from one wiki.
type Reader interface {
	// Endpoint returns the api.php URL of the wiki.
	Endpoint() string

	// PageContent returns the latest wikitext of a page, or [models.Missing].
	PageContent(ctx context.Context, title string) (models.Lookup, error)
}

// Lister enumerates the pages of a wiki.
type Lister interface {
	AllPages(ctx context.Context) iter.Seq2[string, error]
}

// Writer authenticates and writes pages.
type Writer interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
	CSRFToken(ctx context.Context, sess *Session) (string, error)
	EditPage(ctx context.Context, sess *Session, req EditRequest) (*EditResult, error)
}

// Wiki is a full read/write wiki client.
type Wiki interface {
	Reader
	Lister
	Writer
}

var _ Wiki = (*WikiService)(nil)
