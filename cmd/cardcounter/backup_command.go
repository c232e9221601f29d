package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cardcounter/internal/fileutil"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [destination]",
		Short: "Copy the ledger database to a backup file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			src := cfg.DatabasePath()
			if _, err := os.Stat(src); err != nil {
				return fmt.Errorf("no ledger database at %s", src)
			}

			dst := ""
			if len(args) > 0 {
				dst = args[0]
			}
			switch {
			case dst == "":
				stamp := time.Now().Format("20060102-150405")
				dst = filepath.Join(cfg.Paths.DataDir, fmt.Sprintf("cardcounter-%s.db", stamp))
			default:
				if info, err := os.Stat(dst); err == nil && info.IsDir() {
					dst = filepath.Join(dst, filepath.Base(src))
				}
			}

			if err := fileutil.CopyFileVerified(src, dst); err != nil {
				return fmt.Errorf("backup database: %w", err)
			}
			cmd.Printf("Backed up ledger database to %s\n", dst)
			return nil
		},
	}
}
