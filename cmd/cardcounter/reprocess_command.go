package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"cardcounter/internal/config"
	"cardcounter/internal/ledger"
	"cardcounter/internal/reconcile"
)

func newReprocessRemovalsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess-removals",
		Short: "Replay the removal history against current evidence",
		Long: "Re-imported snapshots can resurrect cards that were removed earlier. " +
			"This pass retires them again without charging shinedust twice. " +
			"Running it repeatedly is safe.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *ledger.Store, cfg *config.Config, logger *slog.Logger) error {
				merger := reconcile.New(store, cfg, logger)
				summary, err := merger.ReprocessRemovals(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("Replayed %s removal records; %s cards re-removed.\n",
					ctx.count(int64(summary.RecordsProcessed)),
					ctx.count(int64(summary.CardsActuallyRemoved)))
				return nil
			})
		},
	}
}
