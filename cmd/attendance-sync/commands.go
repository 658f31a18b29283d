package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/septivank/attendance-sync-worker/internal/config"
	"github.com/septivank/attendance-sync-worker/internal/erp"
	"github.com/septivank/attendance-sync-worker/internal/event"
	"github.com/septivank/attendance-sync-worker/internal/mq"
	"github.com/septivank/attendance-sync-worker/internal/pipeline"
	"github.com/septivank/attendance-sync-worker/internal/repository"
	"github.com/septivank/attendance-sync-worker/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const dateFormat = "2006-01-02"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect events from every device and upload one batch",
	Long: `Polls each configured device in order, keeps events from the last --days
days and uploads them with the employee roster in a single request.

Example:
  attendance-sync run --days 30
  attendance-sync run --days 5 --unread`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlag(cmd, config.KeySyncDays, "days"); err != nil {
			return err
		}
		return bindFlag(cmd, config.KeyDeviceUnreadOnly, "unread")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var svc *service.SyncService
		return withApp(ctx, func(ctx context.Context) error {
			outcome, err := svc.Run(ctx, service.Request{Trigger: service.TriggerCLI})
			if err != nil {
				return err
			}
			return printOutcome(outcome)
		}, &svc)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a sync for every request on the trigger queue",
	Long: `Consumes sync requests such as {"request_id": "r-1", "days": 30} from
RABBITMQ_SYNC_QUEUE and runs them one at a time. Failed requests are
dead-lettered to RABBITMQ_DLQ_QUEUE.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlag(cmd, config.KeySyncDays, "days"); err != nil {
			return err
		}
		return bindFlag(cmd, config.KeyDeviceUnreadOnly, "unread")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var consumer *mq.Consumer
		app := newApp(fx.Provide(startConsumer), fx.Populate(&consumer))
		if err := app.Err(); err != nil {
			return err
		}

		startCtx, startCancel := context.WithTimeout(ctx, startTimeout)
		defer startCancel()
		if err := app.Start(startCtx); err != nil {
			if errors.Is(startCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("failed to start within %s, check that RabbitMQ and the database are reachable: %w", startTimeout, err)
			}
			return err
		}

		var runErr error
		select {
		case <-ctx.Done():
		case <-consumer.Done():
			runErr = errors.New("sync consumer stopped: message channel closed")
		}

		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		if err := app.Stop(stopCtx); err != nil && runErr == nil {
			return err
		}
		return runErr
	},
}

// startConsumer creates the trigger consumer and ties it to the app lifecycle
func startConsumer(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	svc *service.SyncService,
) (*mq.Consumer, error) {
	if conn == nil {
		return nil, errors.New("RABBITMQ_URL is required to serve sync requests")
	}

	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Exchange:      cfg.RabbitMQ.SyncExchange,
		Queue:         cfg.RabbitMQ.SyncQueue,
		RoutingKey:    cfg.RabbitMQ.SyncRoutingKey,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       svc.HandleSyncRequest,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting sync consumer",
				zap.String("queue", cfg.RabbitMQ.SyncQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

var (
	fetchDays int
	fetchLast int
	fetchFrom string
	fetchTo   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the events collected from every device without uploading",
	Long: `Polls each configured device and prints the resulting events.

Example:
  attendance-sync fetch --last 5
  attendance-sync fetch --from 2026-10-01 --to 2026-10-07 --json`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlag(cmd, config.KeyDeviceUnreadOnly, "unread")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(fetchFrom, fetchTo)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var (
			collector *pipeline.Collector
			cfg       *config.Config
		)
		return withApp(ctx, func(ctx context.Context) error {
			result, err := collector.Collect(ctx, cfg.Device.Targets, cfg.Device.UnreadOnly)
			if err != nil {
				return err
			}

			events := result.Events
			if fetchDays > 0 {
				events = event.FilterByDays(events, fetchDays)
			}
			events = event.Last(event.Between(events, from, to), fetchLast)

			fmt.Fprintf(os.Stderr, "Fetched %d transactions from %d devices, %d events selected\n",
				result.Rows, result.Devices, len(events))
			return printEvents(events)
		}, &collector, &cfg)
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync runs from the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		var repo *repository.Repository
		return withApp(cmd.Context(), func(ctx context.Context) error {
			if repo == nil {
				return errors.New("DATABASE_URL is required to read the run journal")
			}
			runs, err := repo.RecentRuns(ctx, historyLimit)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(runs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "STARTED\tTRIGGER\tDAYS\tDEVICES\tCOLLECTED\tUPLOADED\tSTATUS\tERROR")
			for _, run := range runs {
				errMsg := ""
				if run.ErrorMessage != nil {
					errMsg = *run.ErrorMessage
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Trigger, run.WindowDays, run.Devices,
					run.EventsCollected, run.EventsUploaded, run.Status, errMsg)
			}
			return w.Flush()
		}, &repo)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, serveCmd} {
		cmd.Flags().Int("days", 0, "upload events from the last N days (overrides SYNC_DAYS)")
		cmd.Flags().Bool("unread", false, "read only transactions not yet read from the device (overrides DEVICE_UNREAD_ONLY)")
	}

	fetchCmd.Flags().Bool("unread", false, "read only transactions not yet read from the device")
	fetchCmd.Flags().IntVar(&fetchDays, "days", 0, "keep events from the last N days")
	fetchCmd.Flags().IntVar(&fetchLast, "last", 0, "keep only the last N events")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "start date YYYY-MM-DD")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "end date YYYY-MM-DD, inclusive")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
}

// parseRange parses the --from/--to dates in local time. to covers the whole day.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	if fromStr != "" {
		t, err := time.ParseInLocation(dateFormat, fromStr, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("invalid --from date: %w", err)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.ParseInLocation(dateFormat, toStr, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("invalid --to date: %w", err)
		}
		to = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.New("--to is before --from")
	}
	return from, to, nil
}

func printOutcome(outcome *service.Outcome) error {
	if jsonOutput {
		return writeJSON(outcome.Response)
	}
	fmt.Printf("Uploaded %d of %d events from %d devices (run %s)\n",
		outcome.EventsUploaded, outcome.EventsCollected, outcome.Devices, outcome.RunID)
	fmt.Printf("Upload response:\n%s\n", erp.Summary(outcome.Response))
	return nil
}

func printEvents(events []event.Event) error {
	if jsonOutput {
		return writeJSON(events)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tCARD\tORIGIN")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%d\n", time.Unix(e.Timestamp, 0).Local().Format("2006-01-02 15:04:05"), e.Card, e.OriginID)
	}
	return w.Flush()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
