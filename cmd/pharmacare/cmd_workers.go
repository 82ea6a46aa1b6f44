package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/config"
	"github.com/pharmacare/pharmacare-api/internal/server"
)

var (
	queueWorkersFlag int
	retryAfterFlag   time.Duration
)

// pharmacare queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the outbox delivery workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := server.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())
		if config.QueueDriver() != "redis" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: QUEUE_DRIVER is not redis, this worker only sees jobs it dispatches itself")
		}

		workers := queueWorkersFlag
		if workers < 1 {
			workers = config.QueueWorkers()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		wg := a.Queue.StartWorkers(ctx, workers)

		<-ctx.Done()
		wg.Wait()
		fmt.Fprintln(cmd.OutOrStdout(), "Queue worker stopped.")
		return nil
	},
}

// pharmacare schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Start the task scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := server.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Registered scheduled tasks:")
		for _, t := range a.Scheduler.List() {
			fmt.Fprintln(out, "  •", t)
		}
		wg := a.Queue.StartWorkers(ctx, config.QueueWorkers())
		a.Scheduler.Start(ctx)

		<-ctx.Done()
		a.Scheduler.Wait()
		wg.Wait()
		fmt.Fprintln(out, "Scheduler stopped.")
		return nil
	},
}

// pharmacare stock:reconcile
var stockReconcileCmd = &cobra.Command{
	Use:     "stock:reconcile",
	Aliases: []string{"batches:refresh"},
	Short:   "Refresh batch statuses and recompute every product's stock",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := server.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		n, err := a.Services.Stock.ReconcileAll(ctx, services.TriggerManual)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reconciled %d products.\n", n)
		return nil
	},
}

// pharmacare outbox:retry
var outboxRetryCmd = &cobra.Command{
	Use:   "outbox:retry",
	Short: "Re-dispatch pending outbox messages and deliver them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := server.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		workCtx, cancel := context.WithCancel(ctx)
		wg := a.Queue.StartWorkers(workCtx, config.QueueWorkers())
		n, err := a.Services.Outbox.RetryStale(ctx, retryAfterFlag)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Re-dispatched %d messages.\n", n)

		// Give the workers a moment to drain the local queue.
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
		cancel()
		wg.Wait()
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
	outboxRetryCmd.Flags().DurationVar(&retryAfterFlag, "older-than", time.Minute, "Only messages untouched for at least this long")
}
