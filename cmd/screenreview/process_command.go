package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"screenreview/internal/config"
	"screenreview/internal/costs"
	"screenreview/internal/notifications"
	"screenreview/internal/pipeline"
	"screenreview/internal/queue"
	"screenreview/internal/recording"
	"screenreview/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var enqueueOnly bool

	cmd := &cobra.Command{
		Use:   "process <session-dir>",
		Short: "Enqueue a session's screens and drain the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionDir, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve session directory: %w", err)
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := buildLogger(cfg)
				if err != nil {
					return err
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				out := cmd.OutOrStdout()
				ledger := costs.NewLedger(cfg.Cost.BudgetLimitEuro, cfg.Cost.WarningAtEuro)
				providers := buildProviders(cfg, logger)
				manager := workflow.NewManager(cfg, store, logger, ledger,
					notifications.NewService(cfg), providers,
					workflow.WithProgress(func(itemID int64, ev pipeline.Event) {
						if ev.Status == "" {
							fmt.Fprintf(out, "[%d/%d] %s: %s\n", ev.Index, ev.Total, ev.Screen, ev.Message)
							return
						}
						if ev.Status != pipeline.StatusSuccess {
							fmt.Fprintf(out, "[%d/%d] %s: %s %s (%s)\n", ev.Index, ev.Total, ev.Screen, ev.Stage, ev.Status, ev.Message)
						}
					}))

				items, err := manager.EnqueueSession(runCtx, sessionDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Enqueued %d screens from %s\n", len(items), sessionDir)
				if estimate := estimateSessionCost(runCtx, cfg, providers.Media, items); estimate > 0 {
					fmt.Fprintf(out, "Estimated provider cost: %.4f EUR\n", estimate)
				}
				if enqueueOnly {
					return nil
				}
				if len(items) == 0 {
					health, err := store.Health(runCtx)
					if err != nil {
						return err
					}
					if health.Pending == 0 {
						fmt.Fprintln(out, "Nothing to process")
						return nil
					}
				}

				summary, err := manager.RunUntilDrained(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Done: %d processed, %d failed\n", summary.Processed, summary.Failed)
				if summary.CostEuro > 0 {
					fmt.Fprintf(out, "Provider cost: %.4f EUR\n", summary.CostEuro)
				}
				if summary.BudgetStopped {
					fmt.Fprintf(out, "Stopped early: cost budget of %.2f EUR reached\n", cfg.Cost.BudgetLimitEuro)
					if estimate, err := manager.EstimateRemaining(runCtx); err == nil && estimate > 0 {
						fmt.Fprintf(out, "Estimated cost to finish remaining screens: %.4f EUR\n", estimate)
					}
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d screens failed; see `screenreview queue list --status failed`", summary.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&enqueueOnly, "enqueue-only", false, "Enqueue screens without processing them")
	return cmd
}

// estimateSessionCost previews metered provider spend for freshly enqueued
// screens. Runs using only local providers estimate to zero.
func estimateSessionCost(ctx context.Context, cfg *config.Config, media pipeline.MediaService, items []*queue.Item) float64 {
	if media == nil || len(items) == 0 {
		return 0
	}
	speechModel := ""
	if cfg.Speech.Provider == "cloud" {
		speechModel = cfg.Speech.CloudModel
	}
	analysisModel := ""
	if cfg.Analysis.Enabled {
		analysisModel = cfg.Analysis.Model
	}
	if speechModel == "" && analysisModel == "" {
		return 0
	}

	var total float64
	for _, item := range items {
		screen := recording.Screen{
			Dir:      filepath.Join(item.SessionDir, "routes", item.Route, item.Viewport),
			Route:    item.Route,
			Viewport: item.Viewport,
		}
		var seconds float64
		if info, err := media.Probe(ctx, screen.AudioPath()); err == nil {
			seconds = info.DurationSeconds
		}
		total += costs.Estimate(seconds, speechModel, analysisModel)
	}
	return total
}
