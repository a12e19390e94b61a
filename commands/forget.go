package commands

import (
	"fmt"

	apperrors "dialog-agent/errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewForgetCmd creates the forget command
func NewForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <player-id>",
		Short: "Delete every saved weariness snapshot of a player",
		Long: `Remove the stored snapshots of one player from Postgres, for every
partner. The player starts fresh on the next conversation.

Examples:
  dialog-agent forget 6f1c5a0e-2d7b-4b8e-9f55-0a3c1e2d4b6f`,
		Args: cobra.ExactArgs(1),
		RunE: runForget,
	}
}

func runForget(cmd *cobra.Command, args []string) error {
	cfg, logger := app.cfg, app.logger
	ctx := cmd.Context()

	playerID, err := uuid.Parse(args[0])
	if err != nil {
		return apperrors.WrapErrorf(apperrors.ErrInvalidInput, "player id %q: %v", args[0], err)
	}

	store, err := openPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.DeletePlayerSnapshots(ctx, playerID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d snapshots of %s\n", n, playerID)
	return nil
}
