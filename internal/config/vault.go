package config

import (
	"context"
	"fmt"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"
)

// SecretReader reads a Vault secret. *vaultapi.Logical satisfies it.
type SecretReader interface {
	ReadWithContext(ctx context.Context, path string) (*vaultapi.Secret, error)
}

// NewVaultReader builds a token-authenticated Vault client from v.
func NewVaultReader(v Vault) (SecretReader, error) {
	addr := strings.TrimSpace(v.Addr)
	if addr == "" {
		return nil, fmt.Errorf("VAULT_ADDR is required")
	}
	cfg := vaultapi.DefaultConfig()
	cfg.Address = addr
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client setup: %w", err)
	}
	if token := strings.TrimSpace(v.Token); token != "" {
		client.SetToken(token)
	}
	if ns := strings.TrimSpace(v.Namespace); ns != "" {
		client.SetNamespace(ns)
	}
	return client.Logical(), nil
}

// ApplyVaultSecrets fills empty Firebase settings from the secret at
// cfg.Vault.FirebasePath. Values already set in the environment win. Both
// KV v1 and KV v2 layouts are accepted. It returns the settings it filled.
func ApplyVaultSecrets(ctx context.Context, cfg *Config, reader SecretReader) ([]string, error) {
	path := strings.Trim(strings.TrimSpace(cfg.Vault.FirebasePath), "/")
	if path == "" {
		return nil, nil
	}
	secret, err := reader.ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read vault secret %q: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault secret %q not found", path)
	}
	data := secret.Data
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}

	fields := []struct {
		key string
		dst *string
	}{
		{"FIREBASE_API_KEY", &cfg.Firebase.APIKey},
		{"FIREBASE_AUTH_DOMAIN", &cfg.Firebase.AuthDomain},
		{"FIREBASE_PROJECT_ID", &cfg.Firebase.ProjectID},
		{"FIREBASE_STORAGE_BUCKET", &cfg.Firebase.StorageBucket},
		{"FIREBASE_MESSAGING_SENDER_ID", &cfg.Firebase.MessagingSenderID},
		{"FIREBASE_APP_ID", &cfg.Firebase.AppID},
	}

	var filled []string
	for _, f := range fields {
		if strings.TrimSpace(*f.dst) != "" {
			continue
		}
		v, ok := lookupSecret(data, f.key)
		if !ok {
			continue
		}
		*f.dst = v
		filled = append(filled, f.key)
	}
	return filled, nil
}

// lookupSecret accepts FIREBASE_API_KEY, api_key or apiKey style keys.
func lookupSecret(data map[string]any, envKey string) (string, bool) {
	short := strings.ToLower(strings.TrimPrefix(envKey, "FIREBASE_"))
	camel := snakeToCamel(short)
	for _, k := range []string{envKey, short, camel} {
		if v, ok := data[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
