// Package session exposes the signed-in identity as observable state.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
	"github.com/Clark-Hu/movie-discovery/internal/identity"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
)

// ErrNotConfigured is returned by Login and Register without an identity provider.
var ErrNotConfigured = identity.ErrNotConfigured

// State is a copy of the session's observable fields.
type State struct {
	User    *domain.User `json:"user"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
}

// Manager tracks the current identity. The provider may change it at any time, not only in
// response to Login, Register or Logout.
type Manager struct {
	provider identity.Provider
	logger   *zap.Logger

	mu       sync.RWMutex
	user     *domain.User
	inflight int
	errMsg   string

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int

	unsubscribe func()
}

// NewManager wires the manager to provider's notifications. A nil provider leaves it unconfigured.
func NewManager(provider identity.Provider, logger *zap.Logger) *Manager {
	m := &Manager{
		provider: provider,
		logger:   logging.OrNop(logger),
		subs:     make(map[int]func(State)),
	}
	if provider != nil {
		m.unsubscribe = provider.OnAuthStateChanged(m.onProviderChange)
		// Pushes that landed before the subscription are not replayed.
		m.mu.Lock()
		m.user = cloneUser(provider.CurrentUser())
		m.mu.Unlock()
	}
	return m
}

// Configured reports whether an identity provider is attached.
func (m *Manager) Configured() bool {
	return m.provider != nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (domain.User, error) {
	return m.authenticate(ctx, "login", func(ctx context.Context) (domain.User, error) {
		return m.provider.SignIn(ctx, email, password)
	})
}

func (m *Manager) Register(ctx context.Context, email, password string) (domain.User, error) {
	return m.authenticate(ctx, "register", func(ctx context.Context) (domain.User, error) {
		return m.provider.SignUp(ctx, email, password)
	})
}

func (m *Manager) authenticate(ctx context.Context, op string, call func(context.Context) (domain.User, error)) (domain.User, error) {
	if m.provider == nil {
		m.setError(ErrNotConfigured.Error())
		return domain.User{}, ErrNotConfigured
	}
	m.begin()
	defer m.end()

	user, err := call(ctx)
	if err != nil {
		m.logger.Debug("session: "+op+" failed", zap.Error(err))
		m.setError(err.Error())
		return domain.User{}, err
	}
	m.setUser(&user)
	return user, nil
}

// Logout signs out. Without a provider it does nothing.
func (m *Manager) Logout(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	m.begin()
	defer m.end()

	if err := m.provider.SignOut(ctx); err != nil {
		m.setError(err.Error())
		return err
	}
	m.setUser(nil)
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (m *Manager) CurrentUser() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneUser(m.user)
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

// Subscribe registers fn for state changes and returns its unsubscribe handle.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// Close detaches from the provider.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Manager) onProviderChange(u *domain.User) {
	m.setUser(u)
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.inflight++
	m.errMsg = ""
	state := m.stateLocked()
	m.mu.Unlock()
	m.emit(state)
}

func (m *Manager) end() {
	m.mu.Lock()
	if m.inflight > 0 {
		m.inflight--
	}
	state := m.stateLocked()
	m.mu.Unlock()
	m.emit(state)
}

func (m *Manager) setUser(u *domain.User) {
	m.mu.Lock()
	m.user = cloneUser(u)
	state := m.stateLocked()
	m.mu.Unlock()
	m.emit(state)
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	m.errMsg = msg
	state := m.stateLocked()
	m.mu.Unlock()
	m.emit(state)
}

func (m *Manager) stateLocked() State {
	return State{User: cloneUser(m.user), Loading: m.inflight > 0, Error: m.errMsg}
}

func (m *Manager) emit(state State) {
	m.subMu.Lock()
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
