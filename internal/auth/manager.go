// Package auth is the client-side session manager. It tracks who is
// signed in, drives sign-in, sign-up, sign-out and password reset through
// an identity provider, and publishes navigation, notice and state events
// to subscribers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"agentmarket/internal/identity"
	"agentmarket/internal/models"
)

var (
	// ErrOperationInProgress is returned when a sign-in, sign-up or
	// sign-out is issued while another one is still in flight.
	ErrOperationInProgress = errors.New("another authentication operation is in progress")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("session manager already started")
)

// Manager owns one client session. Create it with New, call Start once,
// and Close at shutdown.
type Manager struct {
	provider      identity.Provider
	resetRedirect string

	mu          sync.Mutex
	state       State
	user        *models.User
	busy        bool
	signingOut  bool
	started     bool
	closed      bool
	subs        map[*subscriber]struct{}
	unsubscribe func()
	watchDone   chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithResetRedirect sets the page recovery emails link back to.
func WithResetRedirect(url string) Option {
	return func(m *Manager) { m.resetRedirect = url }
}

// New creates a Manager in the loading state.
func New(provider identity.Provider, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		state:    StateLoading,
		subs:     make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start listens for provider session changes and restores any existing
// session. A restored session does not trigger routing. If the lookup
// fails the manager settles as unauthenticated and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	events, unsubscribe := m.provider.Subscribe()
	m.unsubscribe = unsubscribe
	m.watchDone = make(chan struct{})
	m.mu.Unlock()

	go m.watch(events)

	sess, err := m.provider.GetSession(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	// A provider event may already have settled the state.
	if m.state != StateLoading {
		return err
	}
	if err != nil {
		m.setState(StateUnauthenticated, nil)
		return fmt.Errorf("restore session: %w", err)
	}
	if sess == nil {
		m.setState(StateUnauthenticated, nil)
		return nil
	}
	user := sess.User
	m.setState(StateAuthenticated, &user)
	return nil
}

// Close stops listening to the provider and closes every subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubscribe, done := m.unsubscribe, m.watchDone
	subs := m.subs
	m.subs = make(map[*subscriber]struct{})
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		<-done
	}
	for s := range subs {
		s.stop()
	}
}

// Subscribe returns a channel of manager events and a function that ends
// the subscription. Events are delivered in publication order.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	s := newSubscriber()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.stop()
		return s.out, func() {}
	}
	m.subs[s] = struct{}{}
	m.mu.Unlock()

	return s.out, func() {
		m.mu.Lock()
		delete(m.subs, s)
		m.mu.Unlock()
		s.stop()
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns a copy of the signed-in identity, or nil.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Loading reports whether the start-up session lookup is still pending.
func (m *Manager) Loading() bool {
	return m.State() == StateLoading
}

// SignIn authenticates with a password. A provider rejection is returned
// as identity.ErrInvalidCredentials carrying the provider's message.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	prev, err := m.begin(true)
	if err != nil {
		return err
	}

	sess, err := m.provider.SignInWithPassword(ctx, email, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	if err != nil {
		err = credentialsError(err)
		slog.Error("sign in failed", "error", err)
		m.fail(prev)
		m.notice(NoticeError, noticeText(err, msgSignInFailed))
		return err
	}
	m.establish(sess, true)
	m.notice(NoticeSuccess, msgSignedIn)
	return nil
}

// SignUp registers an account. When the provider withholds the session
// until the email address is confirmed, the manager stays unauthenticated.
func (m *Manager) SignUp(ctx context.Context, email, password string, meta models.UserMetadata) error {
	prev, err := m.begin(true)
	if err != nil {
		return err
	}

	res, err := m.provider.SignUp(ctx, email, password, meta)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	if err != nil {
		slog.Error("sign up failed", "error", err)
		m.fail(prev)
		m.notice(NoticeError, noticeText(err, msgSignUpFailed))
		return err
	}
	if res.Session != nil {
		m.establish(res.Session, true)
	} else {
		m.fail(prev)
	}
	m.notice(NoticeSuccess, msgSignedUp)
	return nil
}

// SignOut ends the session. Every failure is returned and announced. On
// success the identity is cleared and exactly one navigation home is
// published.
func (m *Manager) SignOut(ctx context.Context) error {
	if _, err := m.begin(false); err != nil {
		return err
	}

	err := m.provider.SignOut(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	m.signingOut = false
	if err != nil {
		slog.Error("sign out failed", "error", err)
		m.notice(NoticeError, noticeText(err, msgSignOutFail))
		return err
	}
	if m.state != StateUnauthenticated || m.user != nil {
		m.setState(StateUnauthenticated, nil)
	}
	m.navigate(PathHome)
	m.notice(NoticeSuccess, msgSignedOut)
	return nil
}

// ResetPassword asks the provider to email a recovery link. The outcome
// is announced as a notice; the error is returned for callers that need
// to keep a form open.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	err := m.provider.ResetPasswordForEmail(ctx, email, m.resetRedirect)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		slog.Error("password reset request failed", "error", err)
		m.notice(NoticeError, noticeText(err, msgResetFailed))
		return err
	}
	m.notice(NoticeSuccess, msgResetSent)
	return nil
}

// begin claims the single in-flight operation slot. Sign-in and sign-up
// move to Authenticating; the previous state is returned for rollback.
func (m *Manager) begin(authenticating bool) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return m.state, ErrOperationInProgress
	}
	m.busy = true
	prev := m.state
	if authenticating {
		m.setState(StateAuthenticating, m.user)
	} else {
		m.signingOut = true
	}
	return prev, nil
}

// fail leaves Authenticating after an unsuccessful or session-less call.
// A provider event that landed meanwhile wins.
func (m *Manager) fail(prev State) {
	if m.state != StateAuthenticating {
		return
	}
	if prev == StateAuthenticated && m.user != nil {
		m.setState(StateAuthenticated, m.user)
		return
	}
	m.setState(StateUnauthenticated, nil)
}

// establish moves to Authenticated with sess's identity. Routing fires
// only when route is set and the identity differs from the current one,
// so an explicit sign-in and its provider event route once between them.
func (m *Manager) establish(sess *identity.Session, route bool) {
	user := sess.User
	same := m.user != nil && m.user.ID == user.ID && m.state == StateAuthenticated
	m.setState(StateAuthenticated, &user)
	if route && !same {
		m.navigate(Destination(user.Role()))
	}
}

func (m *Manager) watch(events <-chan identity.Event) {
	defer close(m.watchDone)
	for ev := range events {
		m.handle(ev)
	}
}

func (m *Manager) handle(ev identity.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case identity.SessionEstablished:
		if ev.Session != nil {
			m.establish(ev.Session, true)
		}
	case identity.TokenRefreshed:
		// A refresh for the signed-in identity keeps the user where they
		// are. One that lands on another identity, or on none, is a sign-in.
		if ev.Session != nil {
			m.establish(ev.Session, m.state != StateLoading)
		}
	case identity.SessionCleared:
		wasSignedIn := m.user != nil
		if m.state == StateUnauthenticated && !wasSignedIn {
			return
		}
		m.setState(StateUnauthenticated, nil)
		// An explicit sign-out publishes its own navigation.
		if wasSignedIn && !m.signingOut {
			m.navigate(PathHome)
		}
	default:
		slog.Debug("ignoring session event", "kind", ev.Kind)
	}
}

func (m *Manager) setState(s State, user *models.User) {
	m.state = s
	m.user = user
	var snapshot *models.User
	if user != nil {
		u := *user
		snapshot = &u
	}
	m.publish(Event{Kind: EventStateChange, State: s, User: snapshot})
}

func (m *Manager) navigate(path string) {
	m.publish(Event{Kind: EventNavigate, Path: path})
}

func (m *Manager) notice(level NoticeLevel, msg string) {
	m.publish(Event{Kind: EventNotice, Level: level, Message: msg})
}

// publish must be called with m.mu held.
func (m *Manager) publish(e Event) {
	for s := range m.subs {
		s.push(e)
	}
}

// credentialsError files a provider rejection of a sign-in that carries
// no more specific code under identity.ErrInvalidCredentials.
func credentialsError(err error) error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) && pe.Unwrap() == nil && pe.Status >= 400 && pe.Status < 500 {
		return fmt.Errorf("%w: %w", identity.ErrInvalidCredentials, err)
	}
	return err
}

// noticeText prefers the provider's own message.
func noticeText(err error, fallback string) string {
	var pe *identity.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
