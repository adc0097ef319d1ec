package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/payflow/internal/cli"
	"github.com/Veraticus/payflow/internal/config"
	"github.com/Veraticus/payflow/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on start; this one only reports or applies
the schema without touching workspaces.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	dbPath := config.LoadApp().DatabasePath
	ctx := cmd.Context()

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		cmd.Println(cli.FormatInfo(fmt.Sprintf("Database %s: schema version %d of %d", dbPath, current, storage.ExpectedSchemaVersion)))
		if current < storage.ExpectedSchemaVersion {
			cmd.Println(cli.FormatWarning("Pending migrations; run: payflow migrate"))
		}
		return nil
	}

	slog.Info("Running database migrations", "database", dbPath, "from_version", current)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Database at schema version %d", storage.ExpectedSchemaVersion)))
	return nil
}
