package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screenreview/internal/config"
	"screenreview/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the screen queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if health.Total == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				rows := [][]string{
					{"pending", strconv.Itoa(health.Pending)},
					{"processing", strconv.Itoa(health.Processing)},
					{"completed", strconv.Itoa(health.Completed)},
					{"failed", strconv.Itoa(health.Failed)},
					{"cancelled", strconv.Itoa(health.Cancelled)},
					{"total", strconv.Itoa(health.Total)},
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued screens",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status := queue.Status(strings.ToLower(strings.TrimSpace(raw)))
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Label(),
						string(item.Status),
						itemDetail(item),
						formatCost(item.CostEuro),
						item.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Screen", "Status", "Detail", "Cost", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (pending, processing, completed, failed, cancelled)")
	return cmd
}

// itemDetail summarizes where an item stands: stage progress while it runs,
// result counts when finished, the error when it failed.
func itemDetail(item *queue.Item) string {
	switch item.Status {
	case queue.StatusProcessing:
		if item.ProgressStage != "" {
			return fmt.Sprintf("%s (%d/%d)", item.ProgressStage, item.ProgressIndex, item.ProgressTotal)
		}
		return "starting"
	case queue.StatusCompleted:
		return fmt.Sprintf("%d annotations", item.AnnotationCount)
	case queue.StatusFailed:
		return truncate(item.ErrorMessage, 60)
	default:
		return ""
	}
}

func formatCost(euro float64) string {
	if euro == 0 {
		return "-"
	}
	return fmt.Sprintf("%.4f", euro)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll, clearCompleted, clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished items from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			switch {
			case clearAll:
			case clearCompleted && clearFailed:
				statuses = []queue.Status{queue.StatusCompleted, queue.StatusFailed}
			case clearCompleted:
				statuses = []queue.Status{queue.StatusCompleted}
			case clearFailed:
				statuses = []queue.Status{queue.StatusFailed}
			default:
				statuses = []queue.Status{queue.StatusCompleted, queue.StatusFailed, queue.StatusCancelled}
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				removed, err := store.Clear(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every item, including pending ones")
	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove completed items only")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove failed items only")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Requeue failed and cancelled screens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				items, err := store.List(cmd.Context(), queue.StatusFailed, queue.StatusCancelled)
				if err != nil {
					return err
				}
				requeued := 0
				for _, item := range items {
					if _, err := store.Add(cmd.Context(), item.SessionDir, item.Route, item.Viewport); err != nil {
						return err
					}
					requeued++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d items\n", requeued)
				return nil
			})
		},
	}
}
