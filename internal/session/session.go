// Package session drives the transition from an anonymous start-up to an
// authenticated session and decides when stored credentials are refreshed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bakadesk/bakadesk/internal/auth"
)

// State is the position of the login state machine.
type State int

const (
	LoggedOut State = iota
	Authenticating
	LoggedIn
	LoginFailed
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case Authenticating:
		return "authenticating"
	case LoggedIn:
		return "logged in"
	case LoginFailed:
		return "login failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrLoginInProgress is returned when Login is called while another
	// attempt has not finished.
	ErrLoginInProgress = errors.New("login already in progress")
	// ErrAlreadyLoggedIn is returned when Login is called after a session
	// has been established.
	ErrAlreadyLoggedIn = errors.New("already logged in")
)

// Session is the opaque handle produced by an Authenticator.
type Session any

// Authenticator performs the login exchange with the school server.
type Authenticator interface {
	Authenticate(ctx context.Context, server, username, password string) (Session, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, server, username, password string) (Session, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, server, username, password string) (Session, error) {
	return f(ctx, server, username, password)
}

// CredentialStore is the persistence the bootstrap reads at start-up and
// writes after a remembered login.
type CredentialStore interface {
	Load() auth.Credentials
	Save(creds auth.Credentials) error
}

// Bootstrap owns the login state machine. It is safe for concurrent use;
// the UI runs Login off its event loop and polls the accessors.
type Bootstrap struct {
	store  CredentialStore
	authn  Authenticator
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	creds   auth.Credentials
	session Session
	lastErr error
	saveErr error
}

// Option configures a Bootstrap.
type Option func(*Bootstrap)

// WithLogger sets the logger used for login attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bootstrap) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New loads the stored credentials and returns a bootstrap in LoggedOut.
func New(store CredentialStore, authn Authenticator, opts ...Option) *Bootstrap {
	b := &Bootstrap{
		store:  store,
		authn:  authn,
		logger: slog.Default(),
		state:  LoggedOut,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.creds = store.Load()
	return b
}

// Login authenticates with a snapshot of creds. It blocks until the
// Authenticator returns or ctx is done. On success the credentials are
// saved when creds.Remember is set; a failed save is reported by SaveError
// and does not fail the login.
func (b *Bootstrap) Login(ctx context.Context, creds auth.Credentials) (Session, error) {
	b.mu.Lock()
	switch b.state {
	case Authenticating:
		b.mu.Unlock()
		return nil, ErrLoginInProgress
	case LoggedIn:
		b.mu.Unlock()
		return nil, ErrAlreadyLoggedIn
	}
	attemptID := uuid.NewString()
	b.state = Authenticating
	b.creds = creds
	b.lastErr = nil
	b.saveErr = nil
	b.mu.Unlock()

	logger := b.logger.With("attempt", attemptID, "server", creds.Server, "username", creds.Username)
	logger.Info("login started")

	sess, err := b.authenticate(ctx, creds)
	if err != nil {
		b.mu.Lock()
		b.state = LoginFailed
		b.lastErr = err
		b.mu.Unlock()
		logger.Warn("login failed", "error", err)
		return nil, err
	}

	var saveErr error
	if creds.Remember {
		if saveErr = b.store.Save(creds); saveErr != nil {
			logger.Warn("failed to remember credentials", "error", saveErr)
		}
	}

	b.mu.Lock()
	b.state = LoggedIn
	b.session = sess
	b.saveErr = saveErr
	b.mu.Unlock()
	logger.Info("login succeeded", "remembered", creds.Remember && saveErr == nil)

	return sess, nil
}

func (b *Bootstrap) authenticate(ctx context.Context, creds auth.Credentials) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, loginAborted(err)
	}
	sess, err := b.authn.Authenticate(ctx, creds.Server, creds.Username, creds.Password)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, loginAborted(ctxErr)
		}
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("authenticator returned no session")
	}
	if err := ctx.Err(); err != nil {
		return nil, loginAborted(err)
	}
	return sess, nil
}

func loginAborted(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("login timed out: %w", err)
	}
	return fmt.Errorf("login cancelled: %w", err)
}

// State returns the current state.
func (b *Bootstrap) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Credentials returns the credentials loaded at start-up, or the snapshot of
// the most recent attempt.
func (b *Bootstrap) Credentials() auth.Credentials {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creds
}

// Session returns the established session, or nil before LoggedIn.
func (b *Bootstrap) Session() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// LastError returns the message of the most recent failed attempt, or "".
func (b *Bootstrap) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastErr == nil {
		return ""
	}
	return b.lastErr.Error()
}

// SaveError returns the error from remembering credentials after the last
// successful login, if any.
func (b *Bootstrap) SaveError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saveErr
}

// CanEnterMenu reports whether navigation past the login page is allowed.
func (b *Bootstrap) CanEnterMenu() bool {
	return b.State() == LoggedIn
}
