package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"cardcounter/internal/config"
	"cardcounter/internal/ledger"
	"cardcounter/internal/names"
)

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts with their balances and ages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *ledger.Store, cfg *config.Config, logger *slog.Logger) error {
				accounts, err := store.ListAccounts(cmd.Context())
				if err != nil {
					return err
				}
				if len(accounts) == 0 {
					cmd.Println("No accounts yet. Run an import or process screenshots first.")
					return nil
				}

				now := time.Now()
				rows := make([][]string, 0, len(accounts))
				for _, account := range accounts {
					holdings, err := store.Holdings(cmd.Context(), account.ID)
					if err != nil {
						return err
					}
					var cards int64
					for _, h := range holdings {
						cards += h.Count
					}
					age := ""
					if days := names.AccountAge(account.Name, now); days > 0 {
						age = ctx.count(int64(days)) + "d"
					}
					rows = append(rows, []string{
						account.Name,
						ctx.count(cards),
						ctx.count(account.Shinedust),
						age,
					})
				}
				cmd.Println(renderTable([]column{
					{title: "Account"},
					{title: "Cards", right: true},
					{title: "Shinedust", right: true},
					{title: "Age", right: true},
				}, rows))
				return nil
			})
		},
	}

	cmd.AddCommand(newAccountShowCommand(ctx))
	return cmd
}

func newAccountShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account>",
		Short: "Show one account's holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *ledger.Store, cfg *config.Config, logger *slog.Logger) error {
				account, err := store.AccountByName(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				holdings, err := store.Holdings(cmd.Context(), account.ID)
				if err != nil {
					return err
				}

				cmd.Printf("%s: %s shinedust\n", account.Name, ctx.count(account.Shinedust))
				if len(holdings) == 0 {
					cmd.Println("No cards recorded.")
					return nil
				}
				rows := make([][]string, 0, len(holdings))
				for _, h := range holdings {
					rows = append(rows, []string{
						names.SetName(h.Card.SetCode),
						h.Card.Number,
						h.Card.Name,
						h.Card.Rarity,
						ctx.count(h.Count),
					})
				}
				cmd.Println(renderTable([]column{
					{title: "Set"},
					{title: "Number"},
					{title: "Card"},
					{title: "Rarity"},
					{title: "Count", right: true},
				}, rows))
				return nil
			})
		},
	}
}
