// Package firebase signs operators in through the Firebase Identity Toolkit
// REST API and verifies the resulting ID tokens against Google's
// securetoken keys.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/nexus-console/nexus-console/internal/fault"
	"github.com/nexus-console/nexus-console/internal/identity"
)

const (
	DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"
	DefaultJWKSURL            = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

	issuerPrefix = "https://securetoken.google.com/"

	maxErrorBodyBytes = 64 << 10
)

// Config holds the web-app settings of a Firebase project. Only APIKey and
// ProjectID are needed server-side; the rest are exposed for completeness
// of the project configuration.
type Config struct {
	APIKey            string
	AuthDomain        string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string

	HTTPClient         *http.Client
	IdentityToolkitURL string
	SecureTokenURL     string
	JWKSURL            string

	// KeySet overrides the remote JWKS; tests use oidc.StaticKeySet.
	KeySet oidc.KeySet
	Now    func() time.Time
}

// Missing lists the settings required to talk to Firebase that are empty.
func (c Config) Missing() []string {
	var out []string
	if strings.TrimSpace(c.APIKey) == "" {
		out = append(out, "FIREBASE_API_KEY")
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		out = append(out, "FIREBASE_PROJECT_ID")
	}
	return out
}

type Provider struct {
	apiKey     string
	toolkitURL string
	secureURL  string
	client     *http.Client
	verifier   *oidc.IDTokenVerifier
	now        func() time.Time
}

// New builds the provider. It fails with a configuration fault when the API
// key or project id is missing.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fault.Configuration("firebase: missing " + strings.Join(missing, ", "))
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	keySet := cfg.KeySet
	if keySet == nil {
		jwks := strings.TrimSpace(cfg.JWKSURL)
		if jwks == "" {
			jwks = DefaultJWKSURL
		}
		keySet = oidc.NewRemoteKeySet(oidc.ClientContext(ctx, client), jwks)
	}

	projectID := strings.TrimSpace(cfg.ProjectID)
	verifier := oidc.NewVerifier(issuerPrefix+projectID, keySet, &oidc.Config{
		ClientID: projectID,
		Now:      now,
	})

	return &Provider{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		toolkitURL: strings.TrimRight(firstNonEmpty(cfg.IdentityToolkitURL, DefaultIdentityToolkitURL), "/"),
		secureURL:  strings.TrimRight(firstNonEmpty(cfg.SecureTokenURL, DefaultSecureTokenURL), "/"),
		client:     client,
		verifier:   verifier,
		now:        now,
	}, nil
}

func (p *Provider) Name() string { return "firebase" }

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.Credentials, error) {
	var out signInResponse
	err := p.postJSON(ctx, p.toolkitURL+"/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &identity.Credentials{
		UID:          out.LocalID,
		Email:        out.Email,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		Expiry:       p.expiry(out.ExpiresIn),
	}, nil
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*identity.Credentials, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, identity.ErrNotAuthenticated
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var out refreshResponse
	if err := p.do(ctx, p.secureURL+"/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out); err != nil {
		return nil, err
	}
	return &identity.Credentials{
		UID:          out.UserID,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		Expiry:       p.expiry(out.ExpiresIn),
	}, nil
}

type tokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Verify checks the signature, issuer, audience and expiry of idToken.
func (p *Provider) Verify(ctx context.Context, idToken string) (*identity.User, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, identity.ErrNotAuthenticated
	}
	tok, err := p.verifier.Verify(ctx, idToken)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, identity.NewError(identity.CodeRequiresRecentLogin, "ID token expired", err)
		}
		return nil, identity.NewError(identity.CodeInvalidCredential, "ID token verification failed", err)
	}

	var typed tokenClaims
	if err := tok.Claims(&typed); err != nil {
		return nil, identity.NewError(identity.CodeInvalidCredential, "ID token claims are malformed", err)
	}
	var raw map[string]any
	if err := tok.Claims(&raw); err != nil {
		return nil, identity.NewError(identity.CodeInvalidCredential, "ID token claims are malformed", err)
	}

	return &identity.User{
		UID:           tok.Subject,
		Email:         typed.Email,
		DisplayName:   typed.Name,
		EmailVerified: typed.EmailVerified,
		Claims:        raw,
	}, nil
}

func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	return p.postJSON(ctx, p.toolkitURL+"/accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

func (p *Provider) SendVerification(ctx context.Context, idToken string) error {
	if strings.TrimSpace(idToken) == "" {
		return identity.ErrNotAuthenticated
	}
	return p.postJSON(ctx, p.toolkitURL+"/accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}, nil)
}

func (p *Provider) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("firebase: encode request: %w", err)
	}
	return p.do(ctx, endpoint, "application/json", bytes.NewReader(payload), out)
}

func (p *Provider) do(ctx context.Context, endpoint, contentType string, body io.Reader, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("firebase: parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", p.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return fmt.Errorf("firebase: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return identity.NewError(identity.CodeNetworkRequestFailed, "network request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return identity.NewError(identity.CodeInternal, "unexpected identity provider response", err)
	}
	return nil
}

func (p *Provider) expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(strings.TrimSpace(expiresIn))
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return p.now().Add(time.Duration(secs) * time.Second)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
