package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"cardcounter/internal/config"
	"cardcounter/internal/dashboard"
	"cardcounter/internal/ledger"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show ledger totals and recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *ledger.Store, cfg *config.Config, logger *slog.Logger) error {
				stats, err := dashboard.NewAggregator(store).Stats(cmd.Context(), recent)
				if err != nil {
					return err
				}

				lastProcessed := "never"
				if stats.LastProcessed != nil {
					lastProcessed = stats.LastProcessed.Local().Format(time.RFC1123)
				}
				rows := [][]string{
					{"Accounts", ctx.count(stats.TotalAccounts)},
					{"Packs", ctx.count(stats.TotalPacks)},
					{"Cards", ctx.count(stats.TotalCards)},
					{"Unique cards", ctx.count(stats.UniqueCards)},
					{"Shinedust", ctx.count(stats.TotalShinedust)},
					{"Last processed", lastProcessed},
				}
				cmd.Println(renderTable([]column{{title: "Metric"}, {title: "Value", right: true}}, rows))

				if len(stats.RecentActivity) == 0 {
					return nil
				}
				activityRows := make([][]string, 0, len(stats.RecentActivity))
				for _, a := range stats.RecentActivity {
					when := ""
					if a.ProcessedAt != nil {
						when = a.ProcessedAt.Local().Format("2006-01-02 15:04")
					}
					activityRows = append(activityRows, []string{
						a.Filename,
						a.AccountName,
						a.PackType,
						string(a.Status),
						ctx.count(int64(a.CardCount)),
						when,
					})
				}
				cmd.Println(renderTable([]column{
					{title: "Screenshot"},
					{title: "Account"},
					{title: "Pack"},
					{title: "Status"},
					{title: "Cards", right: true},
					{title: "Processed"},
				}, activityRows))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 10, "How many recent screenshots to list")
	return cmd
}
