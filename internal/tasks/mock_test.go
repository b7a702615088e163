package tasks

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/services"
	"github.com/desertthunder/wikimirror/internal/shared"
)

// mockWiki is an in-memory Source and TargetWiki.
type mockWiki struct {
	endpoint string

	mu      sync.Mutex
	titles  []string
	pages   map[string]string
	readErr map[string]error
	listErr error

	loginErr      error
	tokenErr      error
	tokenErrTimes int // tokenErr is returned this many times, then tokens succeed; 0 means always
	editErr       error
	editErrTimes  int

	logins   int
	tokens   int
	edits    []services.EditRequest
	sessions []*services.Session
	reads    []string
}

func newMockWiki(endpoint string) *mockWiki {
	return &mockWiki{endpoint: endpoint, pages: map[string]string{}, readErr: map[string]error{}}
}

func (m *mockWiki) add(title, content string) *mockWiki {
	m.titles = append(m.titles, title)
	m.pages[title] = content
	return m
}

func (m *mockWiki) Endpoint() string { return m.endpoint }

func (m *mockWiki) PageContent(ctx context.Context, title string) (models.Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, title)

	if err := m.readErr[title]; err != nil {
		return models.Lookup{}, err
	}
	content, ok := m.pages[title]
	if !ok {
		return models.Missing, nil
	}
	return models.Found(content), nil
}

func (m *mockWiki) AllPages(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		m.mu.Lock()
		titles := append([]string(nil), m.titles...)
		listErr := m.listErr
		m.mu.Unlock()

		if listErr != nil {
			yield("", listErr)
			return
		}
		for _, t := range titles {
			if !yield(t, nil) {
				return
			}
		}
	}
}

func (m *mockWiki) Login(ctx context.Context, creds services.Credentials) (*services.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loginErr != nil {
		return nil, m.loginErr
	}
	m.logins++
	sess := services.NewSession(m.endpoint, creds.Username, nil)
	m.sessions = append(m.sessions, sess)
	return sess, nil
}

func (m *mockWiki) CSRFToken(ctx context.Context, sess *services.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess.Endpoint != m.endpoint {
		return "", fmt.Errorf("%w: session for %s used on %s", shared.ErrAuthFailed, sess.Endpoint, m.endpoint)
	}
	if m.tokenErr != nil {
		err := m.tokenErr
		if m.tokenErrTimes > 0 {
			m.tokenErrTimes--
			if m.tokenErrTimes == 0 {
				m.tokenErr = nil
			}
		}
		return "", err
	}
	m.tokens++
	return fmt.Sprintf("token-%d", m.tokens), nil
}

func (m *mockWiki) EditPage(ctx context.Context, sess *services.Session, req services.EditRequest) (*services.EditResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.editErr != nil {
		err := m.editErr
		if m.editErrTimes > 0 {
			m.editErrTimes--
			if m.editErrTimes == 0 {
				m.editErr = nil
			}
		}
		return nil, err
	}

	_, existed := m.pages[req.Title]
	if !existed {
		m.titles = append(m.titles, req.Title)
	}
	m.pages[req.Title] = req.Text
	m.edits = append(m.edits, req)
	return &services.EditResult{Title: req.Title, New: !existed}, nil
}

func (m *mockWiki) snapshot() (logins int, edits []services.EditRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins, append([]services.EditRequest(nil), m.edits...)
}

// recordingJournal captures journal calls.
type recordingJournal struct {
	mu        sync.Mutex
	started   int
	finished  int
	records   []models.SyncRecord
	failWrite bool
	last      *models.Run
}

func (j *recordingJournal) StartRun(run *models.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started++
	run.SetID(fmt.Sprintf("run-%d", j.started))
	return nil
}

func (j *recordingJournal) RecordOutcome(rec models.SyncRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failWrite {
		return fmt.Errorf("disk full")
	}
	j.records = append(j.records, rec)
	return nil
}

func (j *recordingJournal) FinishRun(run *models.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished++
	j.last = run
	return nil
}
