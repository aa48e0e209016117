// Package session owns the authentication state of one browser session (or
// one CLI process): the current credentials, the principal derived from
// them, and the navigation permission snapshot that follows every change.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nexus-console/nexus-console/internal/auth"
	"github.com/nexus-console/nexus-console/internal/identity"
	"github.com/nexus-console/nexus-console/internal/metrics"
	"github.com/nexus-console/nexus-console/internal/rbac"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// RefreshLeeway is how close to expiry an ID token may get before IDToken
// refreshes it.
const RefreshLeeway = time.Minute

// Change is published to subscribers after every auth state transition.
// Principal is nil when signed out.
type Change struct {
	Seq       uint64
	Principal *auth.Principal
	Err       error
}

type Listener func(Change)

type Options struct {
	Provider identity.Provider
	Store    CredentialStore
	Logger   *slog.Logger
	Now      func() time.Time
}

type Session struct {
	provider identity.Provider
	store    CredentialStore
	logger   *slog.Logger
	now      func() time.Time
	tracker  *rbac.Tracker

	initOnce sync.Once
	initErr  error
	ready    chan struct{}

	refreshGroup singleflight.Group

	mu        sync.Mutex
	creds     *identity.Credentials
	principal *auth.Principal
	seq       uint64
	closed    bool
	nextSub   int
	subs      map[int]Listener
}

// New returns a signed-out session. Call Init to restore persisted
// credentials.
func New(opts Options) *Session {
	s := &Session{
		provider: opts.Provider,
		store:    opts.Store,
		logger:   opts.Logger,
		now:      opts.Now,
		ready:    make(chan struct{}),
		subs:     make(map[int]Listener),
	}
	if s.provider == nil {
		s.provider = identity.Unavailable{}
	}
	if s.store == nil {
		s.store = &MemoryStore{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.tracker = rbac.NewTracker(s.logger)
	s.Subscribe(func(c Change) {
		u := rbac.Update{Seq: c.Seq, Authenticated: c.Principal != nil, Err: c.Err}
		if c.Principal != nil {
			u.Roles = c.Principal.Roles
		}
		s.tracker.Apply(u)
	})
	return s
}

// Init restores persisted credentials, refreshing and verifying them, and
// publishes the first change. It runs once; concurrent callers wait for the
// first to finish and share its result.
func (s *Session) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.restore(ctx)
		close(s.ready)
	})
	return s.initErr
}

func (s *Session) restore(ctx context.Context) error {
	refreshToken, err := s.store.Load(ctx)
	if err != nil {
		s.publish(nil, nil, err)
		return err
	}
	if refreshToken == "" {
		s.publish(nil, nil, nil)
		return nil
	}

	creds, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		if identity.CredentialRejected(err) {
			s.logger.Info("persisted credentials rejected; starting signed out", "code", identity.Code(err))
			_ = s.store.Clear(ctx)
			s.publish(nil, nil, nil)
			return nil
		}
		s.logger.Warn("restoring credentials failed; keeping them for a retry", "code", identity.Code(err), "error", err)
		s.publish(nil, nil, err)
		return err
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = refreshToken
	}
	principal, err := s.verify(ctx, creds)
	if err != nil {
		if identity.CredentialRejected(err) {
			_ = s.store.Clear(ctx)
			s.publish(nil, nil, nil)
			return nil
		}
		s.publish(nil, nil, err)
		return err
	}
	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	if err := s.store.Save(ctx, creds.RefreshToken); err != nil {
		s.logger.Warn("persisting refreshed credentials failed", "error", err)
	}
	s.publish(creds, principal, nil)
	return nil
}

// WaitReady blocks until the initial auth state is resolved.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) IsReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Subscribe registers l for every subsequent change and returns a function
// that removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Teardown publishes a signed-out change and drops every subscriber. The
// persisted credentials are left alone so a later session can restore them.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.seq++
	ch := Change{Seq: s.seq}
	s.creds, s.principal = nil, nil
	subs := s.listeners()
	s.subs = map[int]Listener{}
	s.mu.Unlock()

	for _, l := range subs {
		l(ch)
	}
}

func (s *Session) SignIn(ctx context.Context, email, password string) (*auth.Principal, error) {
	if err := s.Init(ctx); err != nil {
		s.logger.Warn("restoring credentials before sign-in failed", "error", err)
	}
	provider := s.provider.Name()
	creds, err := s.provider.SignIn(ctx, auth.NormalizeEmail(email), password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "failure").Inc()
		s.logger.Info("sign-in rejected", "provider", provider, "code", identity.Code(err))
		return nil, err
	}
	principal, err := s.verify(ctx, creds)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "failure").Inc()
		return nil, err
	}
	if principal.Disabled {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "failure").Inc()
		return nil, identity.NewError(identity.CodeUserDisabled, "", nil)
	}
	if err := s.store.Save(ctx, creds.RefreshToken); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "error").Inc()
		return nil, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(provider, "success").Inc()
	s.logger.Info("operator signed in", "uid", principal.UID, "roles", principal.Roles.Strings())
	s.publish(creds, principal, nil)
	return principal, nil
}

func (s *Session) SignOut(ctx context.Context) error {
	err := s.store.Clear(ctx)
	s.publish(nil, nil, nil)
	return err
}

// ResetPassword asks the provider to email a reset link.
func (s *Session) ResetPassword(ctx context.Context, email string) error {
	return s.provider.SendPasswordReset(ctx, auth.NormalizeEmail(email))
}

// ResendVerification sends a new verification email to the signed-in
// operator.
func (s *Session) ResendVerification(ctx context.Context) error {
	p := s.Principal()
	if p == nil {
		return identity.ErrNotAuthenticated
	}
	if p.EmailVerified {
		return identity.NewError(identity.CodeEmailAlreadyVerified, "", nil)
	}
	tok, err := s.IDToken(ctx)
	if err != nil {
		return err
	}
	return s.provider.SendVerification(ctx, tok)
}

// IDToken returns a bearer token for the Nexus API, refreshing it when it is
// within RefreshLeeway of expiry. Concurrent refreshes are collapsed.
func (s *Session) IDToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()
	if creds == nil {
		return "", identity.ErrNotAuthenticated
	}
	if !creds.Expired(s.now(), RefreshLeeway) {
		return creds.IDToken, nil
	}

	v, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Session) refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	creds, current := s.creds, s.principal
	s.mu.Unlock()
	if creds == nil {
		return "", identity.ErrNotAuthenticated
	}
	if !creds.Expired(s.now(), RefreshLeeway) {
		return creds.IDToken, nil
	}

	next, err := s.provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		if identity.CredentialRejected(err) {
			s.logger.Info("token refresh rejected; signing out", "code", identity.Code(err))
			_ = s.store.Clear(ctx)
			s.publish(nil, nil, nil)
			return "", err
		}
		s.logger.Warn("token refresh failed", "code", identity.Code(err), "error", err)
		s.publish(creds, current, err)
		return "", err
	}
	if next.RefreshToken == "" {
		next.RefreshToken = creds.RefreshToken
	}
	principal, err := s.verify(ctx, next)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		if identity.CredentialRejected(err) {
			_ = s.store.Clear(ctx)
			s.publish(nil, nil, err)
			return "", err
		}
		s.publish(creds, current, err)
		return "", err
	}
	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	if err := s.store.Save(ctx, next.RefreshToken); err != nil {
		s.logger.Warn("persisting refreshed credentials failed", "error", err)
	}
	s.publish(next, principal, nil)
	return next.IDToken, nil
}

// Roles re-verifies the current ID token and resolves the role set from its
// claims, so role changes made since sign-in are picked up.
func (s *Session) Roles(ctx context.Context) (rbac.RoleSet, error) {
	tok, err := s.IDToken(ctx)
	if err != nil {
		return rbac.RoleSet{}, err
	}
	user, err := s.provider.Verify(ctx, tok)
	if err != nil {
		return rbac.RoleSet{}, err
	}
	return rbac.ResolveRoles(user.Claims, s.logger), nil
}

// TokenSource detaches the current credentials into a self-refreshing
// oauth2 source. Refreshes through it are not published to subscribers;
// the CLI uses it for long batches of API calls.
func (s *Session) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()
	if creds == nil {
		return nil, identity.ErrNotAuthenticated
	}
	detached := *creds
	return identity.TokenSource(ctx, s.provider, &detached), nil
}

func (s *Session) Principal() *auth.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal
}

func (s *Session) IsAuthenticated() bool {
	return s.Principal() != nil
}

// NeedsEmailVerification is true for a signed-in operator whose email is
// not yet verified.
func (s *Session) NeedsEmailVerification() bool {
	p := s.Principal()
	return p != nil && !p.EmailVerified
}

// Permissions returns the current navigation permission snapshot.
func (s *Session) Permissions() rbac.Snapshot {
	return s.tracker.Snapshot()
}

func (s *Session) Navigator() rbac.Navigator {
	return rbac.NewNavigator(s.Permissions())
}

func (s *Session) verify(ctx context.Context, creds *identity.Credentials) (*auth.Principal, error) {
	if creds == nil {
		return nil, errors.New("session: provider returned no credentials")
	}
	user, err := s.provider.Verify(ctx, creds.IDToken)
	if err != nil {
		return nil, err
	}
	return user.Principal(auth.MethodPassword, s.logger), nil
}

// publish swaps the state under the lock and notifies subscribers after
// releasing it.
func (s *Session) publish(creds *identity.Credentials, principal *auth.Principal, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	s.creds, s.principal = creds, principal
	ch := Change{Seq: s.seq, Principal: principal, Err: err}
	subs := s.listeners()
	s.mu.Unlock()

	for _, l := range subs {
		l(ch)
	}
}

// listeners must be called with mu held; it returns subscribers in
// registration order.
func (s *Session) listeners() []Listener {
	out := make([]Listener, 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if l, ok := s.subs[id]; ok {
			out = append(out, l)
		}
	}
	return out
}
