package main

import (
	"log/slog"

	"github.com/nexus-console/nexus-console/internal/config"
	"github.com/nexus-console/nexus-console/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:         "migrate",
	Short:       "Apply the session store database migrations",
	Args:        cobra.NoArgs,
	Annotations: structuredLogAnnotations(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRequireDB()
		if err != nil {
			return err
		}
		return db.Migrate(cfg.DatabaseURL, slog.Default())
	},
}
