package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
	"github.com/Clark-Hu/movie-discovery/internal/validation"
)

// Options configures a CredentialProvider.
type Options struct {
	Users        UserStore
	Secret       string
	SessionTTL   time.Duration
	SessionFile  string
	Bus          EventBus // optional
	PasswordCost int      // bcrypt cost, defaults to bcrypt.DefaultCost
	Logger       *zap.Logger
}

type notification struct {
	user      *domain.User
	delivered chan struct{}
}

// CredentialProvider signs users in against a UserStore and keeps one current session.
// Listeners are called on a dedicated dispatcher goroutine, in the order changes happened.
// SignIn, SignUp and SignOut return only after listeners have seen their change.
type CredentialProvider struct {
	users  UserStore
	tokens TokenService
	file   sessionFile
	bus    EventBus
	cost   int
	logger *zap.Logger

	mu      sync.Mutex
	current *domain.User
	token   string

	subMu   sync.Mutex
	subs    map[int]func(*domain.User)
	nextSub int

	notify    chan notification
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	unsubBus  func()
}

// NewCredentialProvider starts the dispatcher. Call Start to restore a saved session.
func NewCredentialProvider(opts Options) (*CredentialProvider, error) {
	if opts.Users == nil || strings.TrimSpace(opts.Secret) == "" {
		return nil, ErrNotConfigured
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	cost := opts.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	p := &CredentialProvider{
		users:  opts.Users,
		tokens: TokenService{Secret: []byte(opts.Secret), TTL: ttl},
		file:   sessionFile{path: opts.SessionFile},
		bus:    opts.Bus,
		cost:   cost,
		logger: logging.OrNop(opts.Logger),
		subs:   make(map[int]func(*domain.User)),
		notify: make(chan notification, 32),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.dispatch()
	return p, nil
}

// Start restores a persisted session in the background and listens for revocations.
func (p *CredentialProvider) Start(ctx context.Context) error {
	if p.bus != nil {
		unsub, err := p.bus.Subscribe(p.handleEvent)
		if err != nil {
			return err
		}
		p.unsubBus = unsub
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.restore(ctx)
	}()
	return nil
}

func (p *CredentialProvider) SignIn(ctx context.Context, email, password string) (domain.User, error) {
	if err := validation.Struct(Credentials{Email: strings.TrimSpace(email), Password: password}); err != nil {
		return domain.User{}, err
	}
	rec, err := p.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return p.establish(rec)
}

func (p *CredentialProvider) SignUp(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if err := validation.Struct(Credentials{Email: email, Password: password}); err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	rec, err := p.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, ErrEmailInUse) {
			return domain.User{}, ErrEmailInUse
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return p.establish(rec)
}

func (p *CredentialProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	prev := p.current
	p.current = nil
	p.token = ""
	p.mu.Unlock()

	if err := p.file.clear(); err != nil {
		p.logger.Warn("identity: error removing session file", zap.Error(err))
	}
	if prev != nil {
		p.publish(Event{Type: EventSignedOut, UID: prev.UID})
	}
	p.pushAndWait(nil)
	return nil
}

// OnAuthStateChanged registers fn for identity changes.
func (p *CredentialProvider) OnAuthStateChanged(fn func(*domain.User)) func() {
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			p.subMu.Unlock()
		})
	}
}

// CurrentUser returns the signed-in user, or nil.
func (p *CredentialProvider) CurrentUser() *domain.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	u := *p.current
	return &u
}

// Token returns the current session token, or "".
func (p *CredentialProvider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Close stops the dispatcher after pending notifications are delivered.
func (p *CredentialProvider) Close() {
	p.closeOnce.Do(func() {
		if p.unsubBus != nil {
			p.unsubBus()
		}
		close(p.done)
		p.wg.Wait()
	})
}

func (p *CredentialProvider) establish(rec UserRecord) (domain.User, error) {
	token, _, err := p.tokens.Issue(rec.ID, rec.Email, time.Now().UTC())
	if err != nil {
		return domain.User{}, fmt.Errorf("issue session token: %w", err)
	}
	user := domain.User{UID: rec.ID, Email: rec.Email}

	p.mu.Lock()
	p.current = &user
	p.token = token
	p.mu.Unlock()

	if err := p.file.save(token); err != nil {
		p.logger.Warn("identity: error persisting session", zap.Error(err))
	}
	p.publish(Event{Type: EventSignedIn, UID: user.UID})
	p.pushAndWait(&user)
	return user, nil
}

func (p *CredentialProvider) restore(ctx context.Context) {
	token, err := p.file.load()
	if err != nil {
		p.logger.Warn("identity: error loading saved session", zap.Error(err))
		return
	}
	if token == "" {
		return
	}
	claims, err := p.tokens.Parse(token)
	if err != nil {
		p.logger.Info("identity: discarding saved session", zap.Error(err))
		_ = p.file.clear()
		return
	}
	rec, err := p.users.FindByID(ctx, claims.Subject)
	if err != nil {
		p.logger.Info("identity: saved session user unavailable", zap.String("uid", claims.Subject), zap.Error(err))
		if errors.Is(err, ErrUserNotFound) {
			_ = p.file.clear()
		}
		return
	}

	user := domain.User{UID: rec.ID, Email: rec.Email}
	p.mu.Lock()
	if p.current != nil {
		// A local sign-in won the race.
		p.mu.Unlock()
		return
	}
	p.current = &user
	p.token = token
	p.mu.Unlock()
	p.logger.Info("identity: session restored", zap.String("uid", user.UID))
	p.push(&user)
}

func (p *CredentialProvider) handleEvent(ev Event) {
	if ev.Type != EventRevoked {
		return
	}
	p.mu.Lock()
	if p.current == nil || p.current.UID != ev.UID {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.token = ""
	p.mu.Unlock()

	if err := p.file.clear(); err != nil {
		p.logger.Warn("identity: error removing session file", zap.Error(err))
	}
	p.logger.Info("identity: session revoked", zap.String("uid", ev.UID))
	p.push(nil)
}

func (p *CredentialProvider) publish(ev Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ev); err != nil {
		p.logger.Warn("identity: error publishing event", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (p *CredentialProvider) push(u *domain.User) {
	p.enqueue(notification{user: u})
}

// pushAndWait keeps a stale queued notification from landing after the caller's own change.
func (p *CredentialProvider) pushAndWait(u *domain.User) {
	n := notification{user: u, delivered: make(chan struct{})}
	if !p.enqueue(n) {
		return
	}
	select {
	case <-n.delivered:
	case <-p.done:
	}
}

func (p *CredentialProvider) enqueue(n notification) bool {
	select {
	case p.notify <- n:
		return true
	case <-p.done:
		return false
	}
}

func (p *CredentialProvider) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case n := <-p.notify:
			p.deliver(n)
		case <-p.done:
			for {
				select {
				case n := <-p.notify:
					p.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (p *CredentialProvider) deliver(n notification) {
	if n.delivered != nil {
		defer close(n.delivered)
	}
	u := n.user
	p.subMu.Lock()
	fns := make([]func(*domain.User), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		var copyUser *domain.User
		if u != nil {
			c := *u
			copyUser = &c
		}
		fn(copyUser)
	}
}
