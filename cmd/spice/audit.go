package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-split/internal/cli"
	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/storage"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recently processed messages",
		Long: `List the newest entries of the audit journal. The journal records how
each message was answered (stage, model, response); it never holds
confirmed transactions.`,
		Args: cobra.NoArgs,
		RunE: runAudit,
	}
	cmd.Flags().Int("limit", 20, "number of entries to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the audit journal schema",
		Args:  cobra.NoArgs,
		RunE:  runAuditMigrate,
	})
	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	j, err := storage.Open(cmd.Context(), cfg.Audit.Path, logger())
	if err != nil {
		return fmt.Errorf("failed to open audit journal: %w", err)
	}
	defer func() { _ = j.Close() }()

	entries, err := j.Recent(cmd.Context(), limit)
	if err != nil {
		return common.NewUserError("Não foi possível ler o journal", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAudit(entries, cfg.Location))
	return err
}

func runAuditMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("🗄️  Running database migrations...", "database", cfg.Audit.Path)

	j, err := storage.NewJournal(cfg.Audit.Path, logger())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = j.Close() }()

	if err := j.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	version, err := j.SchemaVersion(cmd.Context())
	if err != nil {
		return err
	}

	slog.Info("✅ Database migrations completed successfully!", "version", version)
	return nil
}
