package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"
	"github.com/nexus-console/nexus-console/internal/config"
	"github.com/nexus-console/nexus-console/internal/db"
	httpapp "github.com/nexus-console/nexus-console/internal/http"
	"github.com/nexus-console/nexus-console/internal/identity"
	"github.com/nexus-console/nexus-console/internal/identity/devidp"
	"github.com/nexus-console/nexus-console/internal/identity/firebase"
	"github.com/nexus-console/nexus-console/internal/metrics"
	"github.com/nexus-console/nexus-console/internal/nexusapi"
	"github.com/nexus-console/nexus-console/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the console HTTP server and the metrics listener.",
	Args:        cobra.NoArgs,
	Annotations: structuredLogAnnotations(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := overlayVault(ctx, &cfg, logger); err != nil {
		return err
	}

	provider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	store, closeStore, err := buildSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := httpapp.NewSessionManager(cfg, store)
	registry := session.NewRegistry(sessions, provider, cfg.SessionCacheSize, 0, logger.With("component", "sessions"))
	api := nexusapi.New(cfg.NexusAPIURL, nil, cfg.NexusAPITimeout, logger.With("component", "nexusapi"))

	srv, err := httpapp.NewEchoServer(cfg, httpapp.Deps{
		Sessions: sessions,
		Registry: registry,
		Provider: provider,
		API:      api,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr, "identity_provider", provider.Name(), "session_store", cfg.SessionStore)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.MetricsAddr, logger)
	})
	return g.Wait()
}

// overlayVault fills missing Firebase settings from Vault. Values already
// present in the environment win.
func overlayVault(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.VaultEnabled() {
		return nil
	}
	reader, err := config.NewVaultReader(cfg.Vault)
	if err != nil {
		return err
	}
	applied, err := config.ApplyVaultSecrets(ctx, cfg, reader)
	if err != nil {
		return fmt.Errorf("vault overlay: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("applied vault secrets", "keys", applied)
	}
	return nil
}

// buildProvider selects the identity provider. Incomplete Firebase settings
// do not stop the console; it starts with a provider that reports the
// configuration problem on every call.
func buildProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) (identity.Provider, error) {
	if cfg.IdentityProvider == config.IdentityProviderDev {
		users, err := devidp.LoadUsers(cfg.Dev.UsersFile)
		if err != nil {
			return nil, err
		}
		p, err := devidp.New(devidp.Config{
			Users:  users,
			Secret: []byte(cfg.Dev.TokenSecret),
			Logger: logger.With("component", "devidp"),
		})
		if err != nil {
			return nil, err
		}
		logger.Warn("using the development identity provider", "users", len(users))
		return p, nil
	}

	fb := firebase.Config{
		APIKey:            cfg.Firebase.APIKey,
		AuthDomain:        cfg.Firebase.AuthDomain,
		ProjectID:         cfg.Firebase.ProjectID,
		StorageBucket:     cfg.Firebase.StorageBucket,
		MessagingSenderID: cfg.Firebase.MessagingSenderID,
		AppID:             cfg.Firebase.AppID,
	}
	if missing := fb.Missing(); len(missing) > 0 {
		logger.Error("identity provider not initialized", "missing", missing)
		return identity.Unavailable{Reason: "Missing: " + strings.Join(missing, ", ") + "."}, nil
	}
	p, err := firebase.New(ctx, fb)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// buildSessionStore returns nil for the in-memory scs store.
func buildSessionStore(ctx context.Context, cfg config.Config) (scs.Store, func(), error) {
	if cfg.SessionStore != config.SessionStorePostgres {
		return nil, func() {}, nil
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := pgxstore.New(pool)
	return store, func() {
		store.StopCleanup()
		pool.Close()
	}, nil
}
