package session

import (
	"context"
	"sync"

	"github.com/alexedwards/scs/v2"
)

// CredentialStore persists the refresh token between requests. Load returns
// "" when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, refreshToken string) error
	Clear(ctx context.Context) error
}

const keyRefreshToken = "auth_refresh_token"

// SCSStore keeps the refresh token in the browser's scs session. ctx must
// come from a request wrapped by the manager's LoadAndSave.
type SCSStore struct {
	Manager *scs.SessionManager
}

func NewSCSStore(m *scs.SessionManager) *SCSStore {
	return &SCSStore{Manager: m}
}

func (s *SCSStore) Load(ctx context.Context) (string, error) {
	return s.Manager.GetString(ctx, keyRefreshToken), nil
}

func (s *SCSStore) Save(ctx context.Context, refreshToken string) error {
	s.Manager.Put(ctx, keyRefreshToken, refreshToken)
	return nil
}

func (s *SCSStore) Clear(ctx context.Context) error {
	s.Manager.Remove(ctx, keyRefreshToken)
	return nil
}

// MemoryStore keeps the token in process memory; the CLI uses it.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(_ context.Context, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = refreshToken
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
