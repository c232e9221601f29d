package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"cardcounter/internal/config"
	"cardcounter/internal/dashboard"
	"cardcounter/internal/ledger"
	"cardcounter/internal/reconcile"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.csv>",
		Short: "Merge a re-exported account CSV snapshot into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *ledger.Store, cfg *config.Config, logger *slog.Logger) error {
				registry := dashboard.NewRegistry()
				taskID, taskCtx := registry.Begin(cmd.Context(), "import")

				merger := reconcile.New(store, cfg, logger)
				summary, err := merger.ImportSnapshot(taskCtx, args[0])
				if err != nil {
					registry.Finish(taskID, dashboard.TaskFailed)
					return err
				}
				registry.Progress(taskID, summary.PacksImported, summary.RowsRead, "")
				registry.Finish(taskID, dashboard.TaskCompleted)
				cmd.Printf("Imported %s packs (%s cards) from %s rows.\n",
					ctx.count(int64(summary.PacksImported)),
					ctx.count(int64(summary.NewCount)),
					ctx.count(int64(summary.RowsRead)))
				if summary.PacksImported == 0 {
					cmd.Println("Every pack in the snapshot was already known.")
				}
				return nil
			})
		},
	}
}
