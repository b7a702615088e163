package services

// TokensQuery defines the query parameters for action=query&meta=tokens.
// https://www.mediawiki.org/wiki/API:Tokens
type TokensQuery struct {
	Action string `url:"action"`
	Meta   string `url:"meta"`
	Type   string `url:"type,omitempty"` // "login" for a login token; csrf when empty
}

// LoginParams defines the body of action=login for bot passwords.
// https://www.mediawiki.org/wiki/API:Login
type LoginParams struct {
	Action   string `url:"action"`
	Name     string `url:"lgname"`
	Password string `url:"lgpassword"`
	Token    string `url:"lgtoken"`
}

// RevisionsQuery defines the query parameters for reading the latest revision of a page.
// https://www.mediawiki.org/wiki/API:Revisions
type RevisionsQuery struct {
	Action        string `url:"action"`
	Prop          string `url:"prop"`
	RVProp        string `url:"rvprop"`
	RVSlots       string `url:"rvslots"`
	Titles        string `url:"titles"`
	FormatVersion int    `url:"formatversion"`
}

// AllPagesQuery defines the query parameters for list=allpages.
// https://www.mediawiki.org/wiki/API:Allpages
type AllPagesQuery struct {
	Action string `url:"action"`
	List   string `url:"list"`
	Limit  string `url:"aplimit"` // "max" or a number

	// Continuation values echoed back from the previous batch.
	APContinue string `url:"apcontinue,omitempty"`
	Continue   string `url:"continue,omitempty"`
}

// EditParams defines the body of action=edit. Text is always sent, so an empty page can be created.
// https://www.mediawiki.org/wiki/API:Edit
type EditParams struct {
	Action  string `url:"action"`
	Title   string `url:"title"`
	Text    string `url:"text"`
	Summary string `url:"summary"`
	Assert  string `url:"assert,omitempty"` // "user" makes the server refuse anonymous edits
	Token   string `url:"token"`            // sent last so truncated bodies fail token checks
}

func loginTokenQuery() TokensQuery {
	return TokensQuery{Action: "query", Meta: "tokens", Type: "login"}
}

func csrfTokenQuery() TokensQuery {
	return TokensQuery{Action: "query", Meta: "tokens"}
}

func revisionsQuery(title string) RevisionsQuery {
	return RevisionsQuery{
		Action:        "query",
		Prop:          "revisions",
		RVProp:        "content",
		RVSlots:       "main",
		Titles:        title,
		FormatVersion: 2,
	}
}

func allPagesQuery() AllPagesQuery {
	return AllPagesQuery{Action: "query", List: "allpages", Limit: "max"}
}
