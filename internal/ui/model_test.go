package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakadesk/bakadesk/internal/auth"
	"github.com/bakadesk/bakadesk/internal/session"
)

type memStore struct {
	mu      sync.Mutex
	creds   auth.Credentials
	saves   int
	saveErr error
}

func (s *memStore) Load() auth.Credentials { return s.creds }

func (s *memStore) Save(creds auth.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.creds = creds
	return nil
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var acceptAll = session.AuthenticatorFunc(func(ctx context.Context, server, username, password string) (session.Session, error) {
	return "session", nil
})

func newTestModel(t *testing.T, store *memStore, authn session.Authenticator) Model {
	t.Helper()
	boot := session.New(store, authn, session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return New(boot, WithOutput(io.Discard), WithNoColor(true), WithTimeout(time.Second))
}

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func typeText(s string) []tea.Msg {
	msgs := make([]tea.Msg, 0, len(s))
	for _, r := range s {
		msgs = append(msgs, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return msgs
}

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyQ     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	keyCtrlC = tea.KeyMsg{Type: tea.KeyCtrlC}
)

// runLogin executes the command returned when a login starts and returns the
// login outcome, ignoring spinner and cursor messages.
func runLogin(t *testing.T, cmd tea.Cmd) loginResultMsg {
	t.Helper()
	require.NotNil(t, cmd)

	results := make(chan loginResultMsg, 1)
	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			for _, sub := range msg {
				go run(sub)
			}
		case loginResultMsg:
			results <- msg
		}
	}
	go run(cmd)

	select {
	case res := <-results:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("login command did not finish")
		return loginResultMsg{}
	}
}

func TestNewPrefillsStoredCredentials(t *testing.T) {
	store := &memStore{creds: auth.Credentials{Server: "skola.example.cz", Username: "novak", Password: "tajne", Remember: true}}
	m := newTestModel(t, store, acceptAll)

	assert.Equal(t, PageLogin, m.Page())
	assert.Equal(t, store.creds, m.Credentials())

	view := m.View()
	assert.Contains(t, view, "Welcome to Bakadesk")
	assert.Contains(t, view, "skola.example.cz")
	assert.Contains(t, view, "novak")
	assert.Contains(t, view, "[x] Remember credentials")
	assert.NotContains(t, view, "tajne")
}

func TestLoginFormEditing(t *testing.T) {
	m := newTestModel(t, &memStore{}, acceptAll)

	msgs := typeText("skola.example.cz")
	msgs = append(msgs, keyTab)
	msgs = append(msgs, typeText("novak")...)
	msgs = append(msgs, keyTab)
	msgs = append(msgs, typeText("tajne")...)
	msgs = append(msgs, keyTab, keySpace)
	m, _ = send(t, m, msgs...)

	assert.Equal(t, auth.Credentials{Server: "skola.example.cz", Username: "novak", Password: "tajne", Remember: true}, m.Credentials())
	assert.Contains(t, m.View(), "[x] Remember credentials")

	m, _ = send(t, m, keySpace)
	assert.False(t, m.Credentials().Remember)
}

func TestLoginSuccessNavigatesToMenu(t *testing.T) {
	store := &memStore{creds: auth.Credentials{Server: "s1", Username: "u1", Password: "p1", Remember: true}}
	m := newTestModel(t, store, acceptAll)

	m, cmd := send(t, m, keyEnter)
	assert.True(t, m.Authenticating())
	assert.Contains(t, m.View(), "Logging in...")

	m, _ = send(t, m, runLogin(t, cmd))

	assert.False(t, m.Authenticating())
	assert.Equal(t, PageMenu, m.Page())
	assert.Equal(t, 1, store.saveCount())
	view := m.View()
	for _, p := range FeaturePages {
		assert.Contains(t, view, string(p))
	}
}

func TestLoginWithoutRememberDoesNotSave(t *testing.T) {
	store := &memStore{creds: auth.Credentials{Server: "s1", Username: "u1", Password: "p1"}}
	m := newTestModel(t, store, acceptAll)

	m, cmd := send(t, m, keyEnter)
	m, _ = send(t, m, runLogin(t, cmd))

	assert.Equal(t, PageMenu, m.Page())
	assert.Zero(t, store.saveCount())
}

func TestLoginFailureStaysOnForm(t *testing.T) {
	store := &memStore{creds: auth.Credentials{Server: "s1", Username: "u1", Password: "wrong", Remember: true}}
	authn := session.AuthenticatorFunc(func(ctx context.Context, server, username, password string) (session.Session, error) {
		return nil, errors.New("bad password")
	})
	m := newTestModel(t, store, authn)

	m, cmd := send(t, m, keyEnter)
	m, _ = send(t, m, runLogin(t, cmd))

	assert.Equal(t, PageLogin, m.Page())
	assert.Equal(t, "bad password", m.LoginError())
	assert.Contains(t, m.View(), "Login failed: bad password")
	assert.Equal(t, store.creds, m.Credentials())
	assert.Zero(t, store.saveCount())
}

func TestLoginCancelWithEscape(t *testing.T) {
	authn := session.AuthenticatorFunc(func(ctx context.Context, server, username, password string) (session.Session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	m := newTestModel(t, &memStore{creds: auth.Credentials{Server: "s", Username: "u", Password: "p"}}, authn)

	m, cmd := send(t, m, keyEnter)
	m, _ = send(t, m, keyEsc)
	m, _ = send(t, m, runLogin(t, cmd))

	assert.Equal(t, PageLogin, m.Page())
	assert.False(t, m.Authenticating())
	assert.Contains(t, m.LoginError(), "login cancelled")
}

func TestInputFrozenWhileAuthenticating(t *testing.T) {
	release := make(chan struct{})
	authn := session.AuthenticatorFunc(func(ctx context.Context, server, username, password string) (session.Session, error) {
		<-release
		return "session", nil
	})
	store := &memStore{creds: auth.Credentials{Server: "s", Username: "u", Password: "p"}}
	m := newTestModel(t, store, authn)

	m, cmd := send(t, m, keyEnter)
	m, _ = send(t, m, typeText("xyz")...)
	m, _ = send(t, m, keyTab, keySpace)

	assert.Equal(t, store.creds, m.Credentials())

	close(release)
	m, _ = send(t, m, runLogin(t, cmd))
	assert.Equal(t, PageMenu, m.Page())
}

func TestSaveFailureShowsWarning(t *testing.T) {
	store := &memStore{
		creds:   auth.Credentials{Server: "s", Username: "u", Password: "p", Remember: true},
		saveErr: errors.New("read-only file system"),
	}
	m := newTestModel(t, store, acceptAll)

	m, cmd := send(t, m, keyEnter)
	m, _ = send(t, m, runLogin(t, cmd))

	assert.Equal(t, PageMenu, m.Page())
	assert.Contains(t, m.View(), "Credentials were not saved: read-only file system")
}

func TestMenuNavigation(t *testing.T) {
	m := newTestModel(t, &memStore{creds: auth.Credentials{Server: "s", Username: "u", Password: "p"}}, acceptAll)
	m, cmd := send(t, m, keyEnter)
	m, _ = send(t, m, runLogin(t, cmd))
	require.Equal(t, PageMenu, m.Page())

	m, _ = send(t, m, keyDown, keyDown, keyEnter)
	assert.Equal(t, PageMarks, m.Page())
	assert.Contains(t, m.View(), "Page: Marks")
	assert.Contains(t, m.View(), "Back")

	m, _ = send(t, m, keyEsc)
	assert.Equal(t, PageMenu, m.Page())

	for range FeaturePages {
		m, _ = send(t, m, keyDown)
	}
	m, _ = send(t, m, keyEnter)
	assert.Equal(t, PageHomework, m.Page())

	m, _ = send(t, m, keyEnter)
	assert.Equal(t, PageMenu, m.Page())

	_, cmd = send(t, m, keyQ)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestQuitKeyTypesOnLoginPage(t *testing.T) {
	m := newTestModel(t, &memStore{}, acceptAll)

	m, _ = send(t, m, keyQ)

	assert.Equal(t, PageLogin, m.Page())
	assert.Equal(t, "q", m.Credentials().Server)
}

func TestCtrlCQuitsAndCancels(t *testing.T) {
	authn := session.AuthenticatorFunc(func(ctx context.Context, server, username, password string) (session.Session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	m := newTestModel(t, &memStore{creds: auth.Credentials{Server: "s", Username: "u", Password: "p"}}, authn)

	m, loginCmd := send(t, m, keyEnter)
	_, cmd := send(t, m, keyCtrlC)

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	res := runLogin(t, loginCmd)
	assert.ErrorIs(t, res.err, context.Canceled)
}
