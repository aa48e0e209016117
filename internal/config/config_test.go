package config

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
)

var configKeys = []string{
	"HTTP_ADDR", "METRICS_ADDR", "AUTH_COOKIE_SECURE", "SESSION_LIFETIME", "SESSION_STORE",
	"SESSION_CACHE_SIZE", "DATABASE_URL", "NEXUS_API_URL", "NEXUS_API_TIMEOUT", "IDENTITY_PROVIDER",
	"ALLOWED_EMAIL_DOMAINS", "LOGIN_RATE_LIMIT",
	"FIREBASE_API_KEY", "FIREBASE_AUTH_DOMAIN", "FIREBASE_PROJECT_ID", "FIREBASE_STORAGE_BUCKET",
	"FIREBASE_MESSAGING_SENDER_ID", "FIREBASE_APP_ID",
	"DEV_USERS_FILE", "DEV_TOKEN_SECRET",
	"VAULT_ADDR", "VAULT_TOKEN", "VAULT_NAMESPACE", "VAULT_FIREBASE_PATH",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.MetricsAddr != ":9090" {
		t.Fatalf("addrs = %q, %q", cfg.HTTPAddr, cfg.MetricsAddr)
	}
	if cfg.SessionStore != SessionStoreMemory || cfg.IdentityProvider != IdentityProviderFirebase {
		t.Fatalf("store/provider = %q/%q", cfg.SessionStore, cfg.IdentityProvider)
	}
	if cfg.SessionLifetime != 12*time.Hour || cfg.NexusAPITimeout != 30*time.Second {
		t.Fatalf("durations = %s, %s", cfg.SessionLifetime, cfg.NexusAPITimeout)
	}
	if cfg.SessionCacheSize != 1024 || cfg.LoginRateLimit != 10 {
		t.Fatalf("cache/rate = %d/%d", cfg.SessionCacheSize, cfg.LoginRateLimit)
	}
	if cfg.NexusAPIURL != "" {
		t.Fatalf("NexusAPIURL = %q; a missing URL must not fail loading", cfg.NexusAPIURL)
	}
	if cfg.VaultEnabled() {
		t.Fatal("VaultEnabled() = true without VAULT_ADDR")
	}
}

func TestLoadReadsNestedSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIREBASE_API_KEY", "key-1")
	t.Setenv("FIREBASE_PROJECT_ID", "nexus-prod")
	t.Setenv("ALLOWED_EMAIL_DOMAINS", " Example.com ,corp.example.org,")
	t.Setenv("AUTH_COOKIE_SECURE", "1")
	t.Setenv("NEXUS_API_URL", "https://api.example.com/api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Firebase.APIKey != "key-1" || cfg.Firebase.ProjectID != "nexus-prod" {
		t.Fatalf("Firebase = %+v", cfg.Firebase)
	}
	if want := []string{"example.com", "corp.example.org"}; !reflect.DeepEqual(cfg.AllowedEmailDomains, want) {
		t.Fatalf("AllowedEmailDomains = %v, want %v", cfg.AllowedEmailDomains, want)
	}
	if !cfg.AuthCookieSecure {
		t.Fatal("AuthCookieSecure = false")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "session store", env: map[string]string{"SESSION_STORE": "redis"}, want: "SESSION_STORE"},
		{name: "postgres without url", env: map[string]string{"SESSION_STORE": "postgres"}, want: "DATABASE_URL"},
		{name: "provider", env: map[string]string{"IDENTITY_PROVIDER": "okta"}, want: "IDENTITY_PROVIDER"},
		{name: "api url", env: map[string]string{"NEXUS_API_URL": "not a url"}, want: "NEXUS_API_URL"},
		{name: "dev without users", env: map[string]string{"IDENTITY_PROVIDER": "dev", "DEV_TOKEN_SECRET": "0123456789abcdef"}, want: "DEV_USERS_FILE"},
		{name: "dev short secret", env: map[string]string{"IDENTITY_PROVIDER": "dev", "DEV_USERS_FILE": "users.yaml", "DEV_TOKEN_SECRET": "short"}, want: "DEV_TOKEN_SECRET"},
		{name: "cache size", env: map[string]string{"SESSION_CACHE_SIZE": "0"}, want: "SESSION_CACHE_SIZE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load() error = %q, want it to name %s", err, tc.want)
			}
		})
	}
}

func TestLoadDevProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("IDENTITY_PROVIDER", "DEV")
	t.Setenv("DEV_USERS_FILE", "users.yaml")
	t.Setenv("DEV_TOKEN_SECRET", "0123456789abcdef")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.IdentityProvider != IdentityProviderDev || cfg.Dev.UsersFile != "users.yaml" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRequireDB(t *testing.T) {
	clearEnv(t)

	if _, err := LoadRequireDB(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("LoadRequireDB() error = %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/nexus")
	if _, err := LoadRequireDB(); err != nil {
		t.Fatalf("LoadRequireDB() error = %v", err)
	}
}

type fakeReader struct {
	path   string
	secret *vaultapi.Secret
	err    error
}

func (f *fakeReader) ReadWithContext(_ context.Context, path string) (*vaultapi.Secret, error) {
	f.path = path
	return f.secret, f.err
}

func TestApplyVaultSecretsKVv2(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Firebase: Firebase{APIKey: "from-env"},
		Vault:    Vault{FirebasePath: "/secret/data/nexus-console/firebase/"},
	}
	reader := &fakeReader{secret: &vaultapi.Secret{Data: map[string]any{
		"data": map[string]any{
			"FIREBASE_API_KEY": "from-vault",
			"project_id":       "nexus-prod",
			"authDomain":       "nexus-prod.firebaseapp.com",
		},
		"metadata": map[string]any{"version": 3},
	}}}

	filled, err := ApplyVaultSecrets(context.Background(), &cfg, reader)
	if err != nil {
		t.Fatalf("ApplyVaultSecrets() error = %v", err)
	}
	if reader.path != "secret/data/nexus-console/firebase" {
		t.Fatalf("path = %q", reader.path)
	}
	if cfg.Firebase.APIKey != "from-env" {
		t.Fatalf("APIKey = %q; the environment must win", cfg.Firebase.APIKey)
	}
	if cfg.Firebase.ProjectID != "nexus-prod" || cfg.Firebase.AuthDomain != "nexus-prod.firebaseapp.com" {
		t.Fatalf("Firebase = %+v", cfg.Firebase)
	}
	if want := []string{"FIREBASE_AUTH_DOMAIN", "FIREBASE_PROJECT_ID"}; !reflect.DeepEqual(filled, want) {
		t.Fatalf("filled = %v, want %v", filled, want)
	}
}

func TestApplyVaultSecretsKVv1AndErrors(t *testing.T) {
	t.Parallel()

	cfg := Config{Vault: Vault{FirebasePath: "kv/firebase"}}
	reader := &fakeReader{secret: &vaultapi.Secret{Data: map[string]any{"api_key": "k", "app_id": "a"}}}
	if _, err := ApplyVaultSecrets(context.Background(), &cfg, reader); err != nil {
		t.Fatalf("ApplyVaultSecrets() error = %v", err)
	}
	if cfg.Firebase.APIKey != "k" || cfg.Firebase.AppID != "a" {
		t.Fatalf("Firebase = %+v", cfg.Firebase)
	}

	missing := &fakeReader{}
	if _, err := ApplyVaultSecrets(context.Background(), &cfg, missing); err == nil {
		t.Fatal("missing secret accepted")
	}

	boom := errors.New("permission denied")
	if _, err := ApplyVaultSecrets(context.Background(), &cfg, &fakeReader{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
}
