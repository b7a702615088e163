package services

import (
	"bytes"
	"encoding/json"
)

// Flag decodes MediaWiki boolean markers. formatversion=1 signals true with an empty string
// ("missing": ""), formatversion=2 with a JSON boolean.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "false", "null":
		*f = false
	default:
		*f = true
	}
	return nil
}

// errorEnvelope is present on every api.php response that failed at the API level.
type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// TokensResponse is the shape of meta=tokens.
type TokensResponse struct {
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
			CSRFToken  string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
}

// LoginResponse is the shape of action=login.
type LoginResponse struct {
	Login struct {
		Result   string          `json:"result"`
		Reason   json.RawMessage `json:"reason"`
		UserID   int             `json:"lguserid"`
		UserName string          `json:"lgusername"`
	} `json:"login"`
}

// RevisionsResponse is the formatversion=2 shape of prop=revisions.
type RevisionsResponse struct {
	Query struct {
		Pages []RevisionsPage `json:"pages"`
	} `json:"query"`
}

// RevisionsPage is one entry of query.pages.
type RevisionsPage struct {
	PageID        int        `json:"pageid"`
	Title         string     `json:"title"`
	Missing       Flag       `json:"missing"`
	Invalid       Flag       `json:"invalid"`
	InvalidReason string     `json:"invalidreason"`
	Revisions     []Revision `json:"revisions"`
}

// Revision holds content either in the main slot or, for older servers, directly on the revision.
type Revision struct {
	Slots struct {
		Main *struct {
			Content *string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
	Content *string `json:"content"`
	Legacy  *string `json:"*"`
}

// Text returns the revision content, preferring the main slot.
func (r Revision) Text() (string, bool) {
	switch {
	case r.Slots.Main != nil && r.Slots.Main.Content != nil:
		return *r.Slots.Main.Content, true
	case r.Content != nil:
		return *r.Content, true
	case r.Legacy != nil:
		return *r.Legacy, true
	}
	return "", false
}

// AllPagesResponse is the shape of list=allpages.
type AllPagesResponse struct {
	Continue struct {
		APContinue string `json:"apcontinue"`
		Continue   string `json:"continue"`
	} `json:"continue"`
	Query struct {
		AllPages []struct {
			PageID    int    `json:"pageid"`
			Namespace int    `json:"ns"`
			Title     string `json:"title"`
		} `json:"allpages"`
	} `json:"query"`
}

// EditResponse is the shape of action=edit.
type EditResponse struct {
	Edit *struct {
		Result   string          `json:"result"`
		PageID   int             `json:"pageid"`
		Title    string          `json:"title"`
		New      Flag            `json:"new"`
		NoChange Flag            `json:"nochange"`
		OldRevID int             `json:"oldrevid"`
		NewRevID int             `json:"newrevid"`
		Captcha  json.RawMessage `json:"captcha"`
	} `json:"edit"`
}

// rawText renders a JSON value for error messages: strings unquoted, anything else as-is.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
