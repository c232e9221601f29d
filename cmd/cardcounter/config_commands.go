package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cardcounter/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.CreateSample(path); err != nil {
				return err
			}
			cmd.Printf("Wrote sample configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			cutoff := cfg.Processing.EraCutoff
			if cutoff == "" {
				cutoff = "disabled"
			}
			rows := [][]string{
				{"paths.data_dir", cfg.Paths.DataDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"paths.template_dir", cfg.Paths.TemplateDir},
				{"paths.screenshot_dir", cfg.Paths.ScreenshotDir},
				{"processing.max_workers", fmt.Sprintf("%d", cfg.Processing.MaxWorkers)},
				{"processing.confidence_threshold", fmt.Sprintf("%g", cfg.Processing.ConfidenceThreshold)},
				{"processing.quick_accept_threshold", fmt.Sprintf("%g", cfg.Processing.QuickAcceptThreshold)},
				{"processing.ambiguity_epsilon", fmt.Sprintf("%g", cfg.Processing.AmbiguityEpsilon)},
				{"processing.era_cutoff", cutoff},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			cmd.Println(renderTable([]column{{title: "Setting"}, {title: "Value"}}, rows))
			return nil
		},
	}
}
