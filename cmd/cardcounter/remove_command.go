package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"cardcounter/internal/config"
	"cardcounter/internal/ledger"
	"cardcounter/internal/reconcile"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var (
		tier  int64
		force bool
	)

	cmd := &cobra.Command{
		Use:   "remove <account> <card>",
		Short: "Remove one instance of a card from an account",
		Long: strings.TrimSpace(`
Remove a single copy of a card, charging the account's shinedust balance at
an explicitly chosen cost tier. The card may be given as "SET NUMBER"
(for example "A1 001") or by display name. The tier is never inferred;
--tier is required and must be one of 4000, 10000, 25000, or 30000.`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *ledger.Store, cfg *config.Config, logger *slog.Logger) error {
				card, err := resolveCard(cmd, store, args[1])
				if err != nil {
					return err
				}

				merger := reconcile.New(store, cfg, logger)
				err = merger.RemoveOne(cmd.Context(), args[0], card, tier, force)
				if errors.Is(err, reconcile.ErrInsufficientShinedust) && !force {
					return fmt.Errorf("%w (re-run with --force to drain the balance instead)", err)
				}
				if err != nil {
					return err
				}
				cmd.Printf("Removed one %s from %s at the %s tier.\n",
					card.Name, args[0], ctx.count(tier))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&tier, "tier", 0, "Shinedust cost tier (4000, 10000, 25000, or 30000)")
	cmd.Flags().BoolVar(&force, "force", false, "Remove even when the balance cannot cover the tier")
	_ = cmd.MarkFlagRequired("tier")
	return cmd
}

// resolveCard accepts "SET NUMBER" or a display name.
func resolveCard(cmd *cobra.Command, store *ledger.Store, spec string) (*ledger.Card, error) {
	parts := strings.Fields(spec)
	if len(parts) == 2 {
		if card, err := store.CardBySetNumber(cmd.Context(), parts[0], parts[1]); err == nil {
			return card, nil
		}
	}
	return store.CardByName(cmd.Context(), spec)
}
