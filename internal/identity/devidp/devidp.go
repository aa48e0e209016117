// Package devidp is a local identity provider for development and tests. It
// reads operators from a YAML file, checks argon2id password hashes and
// mints HS256 ID tokens carrying the same claims Firebase would.
package devidp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nexus-console/nexus-console/internal/auth"
	"github.com/nexus-console/nexus-console/internal/identity"
	"gopkg.in/yaml.v3"
)

const (
	Issuer   = "nexus-console-dev"
	Audience = "nexus-console"

	defaultTokenTTL = time.Hour
)

// User is one entry of the users file.
type User struct {
	UID           string   `yaml:"uid"`
	Email         string   `yaml:"email"`
	DisplayName   string   `yaml:"displayName"`
	EmailVerified bool     `yaml:"emailVerified"`
	Disabled      bool     `yaml:"disabled"`
	PasswordHash  string   `yaml:"passwordHash"`
	Roles         []string `yaml:"roles"`
}

type usersFile struct {
	Users []User `yaml:"users"`
}

// LoadUsers reads a users file.
func LoadUsers(path string) ([]User, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devidp: read users file: %w", err)
	}
	var f usersFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("devidp: parse users file %s: %w", path, err)
	}
	return f.Users, nil
}

// Claims is the ID-token payload.
type Claims struct {
	jwt.RegisteredClaims

	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	Name          string   `json:"name,omitempty"`
	Roles         []string `json:"roles"`
}

type Config struct {
	Users    []User
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// Message is an out-of-band email the provider would have sent.
type Message struct {
	Kind  string
	Email string
}

type Provider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	byEmail map[string]*User
	byUID   map[string]*User
	refresh map[string]string
	outbox  []Message
}

func New(cfg Config) (*Provider, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("devidp: DEV_TOKEN_SECRET must be at least 16 bytes")
	}
	p := &Provider{
		secret:  cfg.Secret,
		ttl:     cfg.TokenTTL,
		now:     cfg.Now,
		logger:  cfg.Logger,
		byEmail: make(map[string]*User, len(cfg.Users)),
		byUID:   make(map[string]*User, len(cfg.Users)),
		refresh: make(map[string]string),
	}
	if p.ttl <= 0 {
		p.ttl = defaultTokenTTL
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	for i := range cfg.Users {
		u := cfg.Users[i]
		u.Email = auth.NormalizeEmail(u.Email)
		if u.Email == "" {
			return nil, fmt.Errorf("devidp: user %d has no email", i)
		}
		if u.UID == "" {
			u.UID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+u.Email)).String()
		}
		if _, dup := p.byEmail[u.Email]; dup {
			return nil, fmt.Errorf("devidp: duplicate user %s", u.Email)
		}
		p.byEmail[u.Email] = &u
		p.byUID[u.UID] = &u
	}
	return p, nil
}

func (p *Provider) Name() string { return "dev" }

func (p *Provider) SignIn(_ context.Context, email, password string) (*identity.Credentials, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, identity.NewError(identity.CodeInvalidEmail, "", nil)
	}

	p.mu.Lock()
	u, ok := p.byEmail[email]
	p.mu.Unlock()
	if !ok {
		return nil, identity.NewError(identity.CodeUserNotFound, "", nil)
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, identity.NewError(identity.CodeWrongPassword, "", err)
		}
		return nil, identity.NewError(identity.CodeInternal, "", err)
	}
	if u.Disabled {
		return nil, identity.NewError(identity.CodeUserDisabled, "", nil)
	}
	return p.issue(u)
}

func (p *Provider) Refresh(_ context.Context, refreshToken string) (*identity.Credentials, error) {
	p.mu.Lock()
	uid, ok := p.refresh[refreshToken]
	if ok {
		delete(p.refresh, refreshToken)
	}
	u := p.byUID[uid]
	p.mu.Unlock()

	if !ok || u == nil {
		return nil, identity.NewError(identity.CodeRequiresRecentLogin, "INVALID_REFRESH_TOKEN", nil)
	}
	if u.Disabled {
		return nil, identity.NewError(identity.CodeUserDisabled, "", nil)
	}
	return p.issue(u)
}

func (p *Provider) Verify(_ context.Context, idToken string) (*identity.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, identity.NewError(identity.CodeRequiresRecentLogin, "ID token expired", err)
		}
		return nil, identity.NewError(identity.CodeInvalidCredential, "ID token verification failed", err)
	}

	p.mu.Lock()
	u := p.byUID[claims.Subject]
	p.mu.Unlock()
	if u == nil {
		return nil, identity.NewError(identity.CodeUserNotFound, "", nil)
	}

	roles := make([]any, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, r)
	}
	return &identity.User{
		UID:           claims.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		EmailVerified: claims.EmailVerified,
		Disabled:      u.Disabled,
		Claims: map[string]any{
			"sub":            claims.Subject,
			"email":          claims.Email,
			"email_verified": claims.EmailVerified,
			"name":           claims.Name,
			"roles":          roles,
		},
	}, nil
}

func (p *Provider) SendPasswordReset(_ context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byEmail[email]; !ok {
		return identity.NewError(identity.CodeUserNotFound, "", nil)
	}
	p.outbox = append(p.outbox, Message{Kind: "PASSWORD_RESET", Email: email})
	p.logger.Info("dev identity provider: password reset email suppressed", "email", email)
	return nil
}

func (p *Provider) SendVerification(ctx context.Context, idToken string) error {
	u, err := p.Verify(ctx, idToken)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outbox = append(p.outbox, Message{Kind: "VERIFY_EMAIL", Email: u.Email})
	p.logger.Info("dev identity provider: verification email suppressed", "email", u.Email)
	return nil
}

// Outbox returns the suppressed out-of-band emails.
func (p *Provider) Outbox() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.outbox))
	copy(out, p.outbox)
	return out
}

func (p *Provider) issue(u *User) (*identity.Credentials, error) {
	now := p.now()
	expiry := now.Add(p.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   u.UID,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.NewString(),
		},
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Name:          u.DisplayName,
		Roles:         u.Roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("devidp: sign token: %w", err)
	}

	refreshToken := uuid.NewString()
	p.mu.Lock()
	p.refresh[refreshToken] = u.UID
	p.mu.Unlock()

	return &identity.Credentials{
		UID:          u.UID,
		Email:        u.Email,
		IDToken:      signed,
		RefreshToken: refreshToken,
		Expiry:       expiry,
	}, nil
}
