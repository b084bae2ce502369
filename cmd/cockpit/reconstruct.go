package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/auditlog"
	apperrors "github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/errors"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/logging"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/reconstruct"
)

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct <job-id>",
	Short: "Replay one job's graph changes and print the payload as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runReconstruct,
}

func init() {
	rootCmd.AddCommand(reconstructCmd)
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jobID := args[0]

	if cfg.AuditLog.PostgresDSN == "" {
		return apperrors.ConfigError("audit log DSN missing: set AUDIT_LOG_DSN")
	}

	store, err := auditlog.NewPostgresStore(ctx, cfg.AuditLog.PostgresDSN)
	if err != nil {
		return fmt.Errorf("audit log: %w", err)
	}
	defer store.Close()

	// One-shot runs skip the cache: the point is a fresh replay.
	service := reconstruct.NewService(store, nil, 0, logging.Get())
	result, err := service.Reconstruct(ctx, jobID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
