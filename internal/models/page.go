package models

import "strings"

// ToSlug converts a page title to its slug: surrounding whitespace trimmed and spaces replaced by underscores.
//
// ToSlug is idempotent.
func ToSlug(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// Normalize converts CRLF line endings to LF and trims surrounding whitespace.
//
// Two contents are equal for sync purposes iff their normalized forms are byte-equal.
func Normalize(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
}

// Page is a titled body of wikitext.
type Page struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Content string `json:"content"`
}

// NewPage builds a [Page], deriving its slug from title.
func NewPage(title, content string) Page {
	return Page{Title: title, Slug: ToSlug(title), Content: content}
}

// Lookup is the result of reading a page that may not exist.
type Lookup struct {
	Exists  bool
	Content string
}

// Missing is the [Lookup] for a page the wiki reports as absent.
var Missing = Lookup{}

// Found returns a [Lookup] for an existing page, which may be empty.
func Found(content string) Lookup {
	return Lookup{Exists: true, Content: content}
}

// TargetMapping names a target wiki and the slug translations applied when writing to it.
type TargetMapping struct {
	Name    string
	SlugMap map[string]string
}

// Resolve returns the target title for a source title.
//
// The source title is slugged first. Unmapped slugs, and slugs mapped to an empty string, are used as-is.
func (m TargetMapping) Resolve(sourceTitle string) string {
	slug := ToSlug(sourceTitle)
	if title := m.SlugMap[slug]; title != "" {
		return title
	}
	return slug
}
