package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cardcounter/internal/config"
	"cardcounter/internal/dashboard"
	"cardcounter/internal/ledger"
	"cardcounter/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [directory]",
		Short: "Process new screenshots into the ledger",
		Long: strings.TrimSpace(`
Scan a screenshot directory, identify the cards in every new image against
the template catalog, and record the results. Already-processed screenshots
are skipped by fingerprint; Ctrl-C cancels cooperatively after the images
in flight finish.`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *ledger.Store, cfg *config.Config, logger *slog.Logger) error {
				dir := cfg.Paths.ScreenshotDir
				if len(args) == 1 {
					dir = args[0]
				}
				if strings.TrimSpace(dir) == "" {
					return fmt.Errorf("no screenshot directory configured; pass one or set paths.screenshot_dir")
				}

				registry := dashboard.NewRegistry()
				taskID, taskCtx := registry.Begin(cmd.Context(), "process")

				runCtx, stop := signal.NotifyContext(taskCtx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				events := make(chan pipeline.Event, 16)
				done := make(chan struct{})
				go func() {
					defer close(done)
					for ev := range events {
						registry.Progress(taskID, ev.Processed, ev.Total, ev.Message)
						renderProgress(cmd, ev)
					}
				}()

				summary := pipeline.New(store, cfg, logger).Run(runCtx, dir, events)
				close(events)
				<-done
				registry.Finish(taskID, taskStatus(summary.Status))

				if task, ok := registry.Get(taskID); ok && task.EndedAt != nil {
					logger.Info("run finished",
						"task", task.ID.String(),
						"status", string(task.Status),
						"duration", task.EndedAt.Sub(task.StartedAt).Round(time.Millisecond).String())
				}

				return renderSummary(cmd, ctx, summary)
			})
		},
	}
	return cmd
}

func taskStatus(status pipeline.Status) dashboard.TaskStatus {
	switch status {
	case pipeline.StatusCompleted:
		return dashboard.TaskCompleted
	case pipeline.StatusCancelled:
		return dashboard.TaskCancelled
	default:
		return dashboard.TaskFailed
	}
}

func renderProgress(cmd *cobra.Command, ev pipeline.Event) {
	if ev.Message != "" {
		cmd.Printf("[%s] %s\n", ev.Stage, ev.Message)
		return
	}
	cmd.Printf("[%s] %d/%d\n", ev.Stage, ev.Processed, ev.Total)
}

func renderSummary(cmd *cobra.Command, ctx *commandContext, summary pipeline.Summary) error {
	rows := [][]string{
		{"Status", string(summary.Status)},
		{"Processed", ctx.count(int64(summary.Processed))},
		{"Matched", ctx.count(int64(summary.Matched))},
		{"Skipped (already processed)", ctx.count(int64(summary.SkippedAlreadyProcessed))},
		{"Skipped (pre-era)", ctx.count(int64(summary.SkippedPreEra))},
		{"Errors", ctx.count(int64(summary.Errors))},
	}
	cmd.Println(renderTable([]column{{title: "Result"}, {title: "Value", right: true}}, rows))

	if summary.Status == pipeline.StatusFailed {
		return summary.Err
	}
	return nil
}
