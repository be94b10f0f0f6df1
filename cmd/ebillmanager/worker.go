package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/bher20/ebillmanager/internal/alerting"
	"github.com/bher20/ebillmanager/internal/cron"
	"github.com/bher20/ebillmanager/internal/notification"
	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagWorkerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Send overdue bill reminders on the configured schedule",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&flagWorkerOnce, "once", false, "Run a single reminder pass and exit")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rc := a.cfg.Reminder
	if err := cron.ValidateSchedule(rc.Schedule); err != nil && !flagWorkerOnce {
		return fmt.Errorf("reminder.schedule: %w", err)
	}

	var notifier notification.Notifier = notification.NewLogNotifier(a.log)
	if rc.SendGridAPIKey != "" {
		sg, err := notification.NewSendGridNotifier(rc.SendGridAPIKey, rc.FromName, rc.FromAddress, notifier)
		if err != nil {
			return err
		}
		notifier = sg
	}

	ac := a.cfg.Alerting
	alerter := alerting.NewAlerter(alerting.NewAlertConfig(ac.WebhookURL, ac.WebhookType, ac.MinFailures, ac.Timeout), a.log)

	opts := []cron.Option{cron.WithAlerter(alerter)}
	if pg, ok := a.store.(*storage.PostgresPoolStorage); ok {
		opts = append(opts, cron.WithJobLocker(pg))
	}
	job := cron.NewReminderJob(a.store, notifier, a.engine.Policy().LateFine, a.log, opts...)

	if flagWorkerOnce {
		res, err := job.RunOnce(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "  overdue=%d sent=%d failed=%d skipped=%t\n", res.Overdue, res.Sent, res.Failed, res.Skipped)
		return err
	}

	a.log.Info("reminder worker starting", zap.String("schedule", rc.Schedule))
	if err := cron.Run(ctx, rc.Schedule, job, a.log); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
