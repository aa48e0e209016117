package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nexus-console/nexus-console/internal/identity"
	"github.com/nexus-console/nexus-console/internal/metrics"
)

// KeySession is the scs key holding the browser's registry key.
const KeySession = "auth_session_key"

const (
	DefaultCacheSize = 1024
	DefaultIdleTTL   = 30 * time.Minute
)

// Registry maps browser sessions onto live *Session values. Entries expire
// once unused for the idle TTL, or when the cache is full; eviction tears
// the session down and the next request restores it from the scs store.
type Registry struct {
	manager  *scs.SessionManager
	provider identity.Provider
	logger   *slog.Logger

	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
}

func NewRegistry(manager *scs.SessionManager, provider identity.Provider, size int, ttl time.Duration, logger *slog.Logger) *Registry {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{manager: manager, provider: provider, logger: logger}
	r.cache = expirable.NewLRU[string, *Session](size, func(key string, s *Session) {
		metrics.SessionsActive.Dec()
		s.Teardown()
	}, ttl)
	return r
}

// Get returns the session for the browser behind ctx, creating and
// initialising it on first use.
func (r *Registry) Get(ctx context.Context) (*Session, error) {
	key := r.manager.GetString(ctx, KeySession)
	if key == "" {
		key = uuid.NewString()
		r.manager.Put(ctx, KeySession, key)
	}

	r.mu.Lock()
	s, ok := r.cache.Get(key)
	if ok {
		// Add on a live key only pushes its expiry out.
		r.cache.Add(key, s)
	} else {
		// An expired entry may still be waiting for the purge; removing it
		// first runs the eviction callback.
		r.cache.Remove(key)
		s = New(Options{
			Provider: r.provider,
			Store:    NewSCSStore(r.manager),
			Logger:   r.logger.With("session", shortKey(key)),
		})
		r.cache.Add(key, s)
		metrics.SessionsActive.Inc()
	}
	r.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		r.logger.Error("restoring session failed", "error", err)
		r.drop(key, s)
		return s, err
	}
	return s, nil
}

// drop evicts s so the next request retries the restore, unless another
// session already replaced it.
func (r *Registry) drop(key string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.cache.Peek(key); ok && cur == s {
		r.cache.Remove(key)
	}
}

// Forget drops the browser's session from the cache, for example after the
// scs token was renewed on sign-in.
func (r *Registry) Forget(ctx context.Context) {
	key := r.manager.GetString(ctx, KeySession)
	if key == "" {
		return
	}
	r.mu.Lock()
	r.cache.Remove(key)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
