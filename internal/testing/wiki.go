package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

const (
	fakeSessionCookie = "fakewiki_session"
	anonymousCSRF     = `+\`
)

// FakeEdit is an edit accepted by [FakeWiki].
type FakeEdit struct {
	Title   string
	Text    string
	Summary string
	User    string
}

// FakeRequest is an api.php call received by [FakeWiki].
type FakeRequest struct {
	Method    string
	Params    url.Values
	Cookies   []string
	UserAgent string
}

type fakeSession struct {
	id         string
	loginToken string
	csrf       string
	user       string
}

// FakeWiki is an in-process MediaWiki action API.
//
// It implements the calls used by the mirror: login and csrf tokens, action=login, prop=revisions, list=allpages
// with continuation, and action=edit. Titles are stored with underscores folded to spaces, as MediaWiki does.
type FakeWiki struct {
	Server *httptest.Server

	mu        sync.Mutex
	titles    []string
	pages     map[string]string
	users     map[string]string
	sessions  map[string]*fakeSession
	seq       int
	edits     []FakeEdit
	logins    int
	requests  []FakeRequest
	batchSize int

	loginResult   string
	anonymousCSRF bool
	rejectEdits   string
	failReads     map[string]bool
	failListing   bool
}

// NewFakeWiki starts a fake wiki that is shut down when the test ends.
func NewFakeWiki(t *testing.T) *FakeWiki {
	t.Helper()
	f := &FakeWiki{
		pages:     map[string]string{},
		users:     map[string]string{},
		sessions:  map[string]*fakeSession{},
		failReads: map[string]bool{},
		batchSize: 500,
	}
	f.Server = httptest.NewServer(f)
	t.Cleanup(f.Server.Close)
	return f
}

// Endpoint is the api.php URL of the fake.
func (f *FakeWiki) Endpoint() string {
	return f.Server.URL + "/api.php"
}

// AddPage stores a page, appending it to the listing order when new.
func (f *FakeWiki) AddPage(title, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putPage(title, content)
}

// AddUser registers a bot password.
func (f *FakeWiki) AddUser(name, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[name] = password
}

// Page returns the stored content of a page.
func (f *FakeWiki) Page(title string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.pages[fold(title)]
	return content, ok
}

// Titles returns the page titles in listing order.
func (f *FakeWiki) Titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.titles...)
}

// Edits returns the accepted edits in order.
func (f *FakeWiki) Edits() []FakeEdit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeEdit(nil), f.edits...)
}

// Logins counts successful logins.
func (f *FakeWiki) Logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

// Requests returns every call received so far.
func (f *FakeWiki) Requests() []FakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeRequest(nil), f.requests...)
}

// SetBatchSize sets how many titles each list=allpages call returns.
func (f *FakeWiki) SetBatchSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchSize = n
}

// SetLoginResult forces every login to answer with result.
func (f *FakeWiki) SetLoginResult(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginResult = result
}

// SetAnonymousCSRF makes every csrf token request return the anonymous token.
func (f *FakeWiki) SetAnonymousCSRF(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anonymousCSRF = on
}

// RejectEdits makes every edit fail with the API error code. An empty code accepts edits again.
func (f *FakeWiki) RejectEdits(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectEdits = code
}

// FailRead makes reads of title answer with HTTP 500.
func (f *FakeWiki) FailRead(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads[fold(title)] = true
}

// FailListing makes list=allpages answer with an API error.
func (f *FakeWiki) FailListing(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failListing = on
}

// ExpireSessions forgets every session, as if the server restarted.
func (f *FakeWiki) ExpireSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = map[string]*fakeSession{}
}

func (f *FakeWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api.php" {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	params := r.Form
	var cookies []string
	for _, c := range r.Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}
	f.requests = append(f.requests, FakeRequest{
		Method:    r.Method,
		Params:    cloneValues(params),
		Cookies:   cookies,
		UserAgent: r.UserAgent(),
	})

	if params.Get("format") != "json" {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>MediaWiki API help</body></html>")
		return
	}

	var sess *fakeSession
	if c, err := r.Cookie(fakeSessionCookie); err == nil {
		sess = f.sessions[c.Value]
	}

	switch params.Get("action") {
	case "query":
		switch {
		case params.Get("meta") == "tokens":
			f.tokens(w, params, sess)
		case params.Get("list") == "allpages":
			f.allPages(w, params)
		case params.Get("prop") == "revisions":
			f.revisions(w, params)
		default:
			writeAPIError(w, "badvalue", "unsupported query")
		}
	case "login":
		if r.Method != http.MethodPost {
			writeAPIError(w, "mustbeposted", "The \"login\" module requires a POST request.")
			return
		}
		f.login(w, params, sess)
	case "edit":
		if r.Method != http.MethodPost {
			writeAPIError(w, "mustbeposted", "The \"edit\" module requires a POST request.")
			return
		}
		f.edit(w, params, sess)
	default:
		writeAPIError(w, "badvalue", fmt.Sprintf("Unrecognized value for parameter \"action\": %s.", params.Get("action")))
	}
}

func (f *FakeWiki) tokens(w http.ResponseWriter, params url.Values, sess *fakeSession) {
	if params.Get("type") == "login" {
		sess = f.newSession("")
		http.SetCookie(w, &http.Cookie{Name: fakeSessionCookie, Value: sess.id, Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "fakewiki_lang", Value: "en", Path: "/"})
		writeJSON(w, map[string]any{"query": map[string]any{"tokens": map[string]string{"logintoken": sess.loginToken}}})
		return
	}

	token := anonymousCSRF
	if sess != nil && sess.user != "" && !f.anonymousCSRF {
		token = sess.csrf
	}
	writeJSON(w, map[string]any{"query": map[string]any{"tokens": map[string]string{"csrftoken": token}}})
}

func (f *FakeWiki) login(w http.ResponseWriter, params url.Values, sess *fakeSession) {
	if f.loginResult != "" {
		writeJSON(w, map[string]any{"login": map[string]string{"result": f.loginResult, "reason": "forced by test"}})
		return
	}
	if sess == nil || params.Get("lgtoken") != sess.loginToken {
		writeJSON(w, map[string]any{"login": map[string]string{"result": "WrongToken"}})
		return
	}

	name := params.Get("lgname")
	if password, ok := f.users[name]; !ok || password != params.Get("lgpassword") {
		writeJSON(w, map[string]any{"login": map[string]string{
			"result": "Failed",
			"reason": "Incorrect username or password entered. Please try again.",
		}})
		return
	}

	delete(f.sessions, sess.id)
	user, _, _ := strings.Cut(name, "@")
	next := f.newSession(user)
	f.logins++

	http.SetCookie(w, &http.Cookie{Name: fakeSessionCookie, Value: next.id, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "fakewikiUserName", Value: user, Path: "/"})
	writeJSON(w, map[string]any{"login": map[string]any{"result": "Success", "lguserid": f.logins, "lgusername": user}})
}

func (f *FakeWiki) revisions(w http.ResponseWriter, params url.Values) {
	title := params.Get("titles")
	key := fold(title)

	if f.failReads[key] {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page := map[string]any{"ns": 0, "title": key}
	content, ok := f.pages[key]
	switch {
	case key == "" || strings.ContainsAny(key, "[]{}|#<>"):
		page["invalid"] = true
		page["invalidreason"] = "The requested page title contains invalid characters."
	case !ok:
		page["missing"] = true
	default:
		page["pageid"] = f.pageID(key)
		page["revisions"] = []any{map[string]any{
			"slots": map[string]any{"main": map[string]any{
				"contentmodel":  "wikitext",
				"contentformat": "text/x-wiki",
				"content":       content,
			}},
		}}
	}
	writeJSON(w, map[string]any{"batchcomplete": true, "query": map[string]any{"pages": []any{page}}})
}

func (f *FakeWiki) allPages(w http.ResponseWriter, params url.Values) {
	if f.failListing {
		writeAPIError(w, "internal_api_error_DBQueryError", "A database query error has occurred.")
		return
	}

	start := 0
	if from := params.Get("apcontinue"); from != "" {
		start = len(f.titles)
		for i, t := range f.titles {
			if dbKey(t) == from {
				start = i
				break
			}
		}
	}

	end := min(start+max(f.batchSize, 1), len(f.titles))
	batch := make([]map[string]any, 0, end-start)
	for _, t := range f.titles[start:end] {
		batch = append(batch, map[string]any{"pageid": f.pageID(t), "ns": 0, "title": t})
	}

	out := map[string]any{"query": map[string]any{"allpages": batch}}
	if end < len(f.titles) {
		out["continue"] = map[string]string{"apcontinue": dbKey(f.titles[end]), "continue": "-||"}
	} else {
		out["batchcomplete"] = ""
	}
	writeJSON(w, out)
}

func (f *FakeWiki) edit(w http.ResponseWriter, params url.Values, sess *fakeSession) {
	loggedIn := sess != nil && sess.user != ""
	switch {
	case params.Get("assert") == "user" && !loggedIn:
		writeAPIError(w, "assertuserfailed", "You are no longer logged in, so the action could not be completed.")
		return
	case !loggedIn || params.Get("token") != sess.csrf:
		writeAPIError(w, "badtoken", "Invalid CSRF token.")
		return
	case f.rejectEdits != "":
		writeAPIError(w, f.rejectEdits, "rejected by test")
		return
	case !params.Has("text"):
		writeAPIError(w, "missingparam", "One of the parameters \"text\", \"appendtext\" and \"prependtext\" is required.")
		return
	}

	title := params.Get("title")
	key := fold(title)
	old, existed := f.pages[key]
	text := params.Get("text")

	f.edits = append(f.edits, FakeEdit{Title: title, Text: text, Summary: params.Get("summary"), User: sess.user})

	result := map[string]any{"result": "Success", "title": key, "contentmodel": "wikitext"}
	if existed && old == text {
		result["nochange"] = ""
	} else {
		f.putPage(key, text)
		result["newrevid"] = len(f.edits)
		if !existed {
			result["new"] = ""
		}
	}
	result["pageid"] = f.pageID(key)
	writeJSON(w, map[string]any{"edit": result})
}

func (f *FakeWiki) putPage(title, content string) {
	key := fold(title)
	if _, ok := f.pages[key]; !ok {
		f.titles = append(f.titles, key)
	}
	f.pages[key] = content
}

func (f *FakeWiki) pageID(title string) int {
	for i, t := range f.titles {
		if t == title {
			return i + 1
		}
	}
	return 0
}

func (f *FakeWiki) newSession(user string) *fakeSession {
	f.seq++
	s := &fakeSession{
		id:         fmt.Sprintf("s%d", f.seq),
		loginToken: fmt.Sprintf("lt%d+\\", f.seq),
		csrf:       fmt.Sprintf("csrf%d+\\", f.seq),
		user:       user,
	}
	f.sessions[s.id] = s
	return s
}

func fold(title string) string {
	return strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
}

func dbKey(title string) string {
	return strings.ReplaceAll(title, " ", "_")
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code, info string) {
	writeJSON(w, map[string]any{"error": map[string]string{"code": code, "info": info}})
}
