package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/bher20/ebillmanager/internal/alerting"
	"github.com/bher20/ebillmanager/internal/metrics"
	"github.com/bher20/ebillmanager/internal/notification"
	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReminderJobName is the job_runs key and metrics label of the reminder job.
const ReminderJobName = "overdue_reminders"

// Store is the storage the reminder job reads and records to.
type Store interface {
	ListOverdueBills(ctx context.Context, now time.Time) ([]storage.Bill, error)
	FindHouseholdByID(ctx context.Context, id string) (*storage.Household, error)
	RecordJobRun(ctx context.Context, run storage.JobRun) error
}

// JobLocker lets only one replica run a job at a time.
// *storage.PostgresPoolStorage implements it with advisory locks.
type JobLocker interface {
	TryLockJob(ctx context.Context, name string) (release func(), ok bool, err error)
}

// Result counts what one reminder run did. Skipped is set when another
// worker held the job lock.
type Result struct {
	Overdue int
	Sent    int
	Failed  int
	Skipped bool
}

// ReminderJob notifies households whose bills are past due.
type ReminderJob struct {
	store    Store
	notifier notification.Notifier
	alerter  *alerting.Alerter
	locker   JobLocker
	lateFine decimal.Decimal
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*ReminderJob)

func WithJobLocker(l JobLocker) Option { return func(j *ReminderJob) { j.locker = l } }

func WithAlerter(a *alerting.Alerter) Option { return func(j *ReminderJob) { j.alerter = a } }

func WithClock(now func() time.Time) Option { return func(j *ReminderJob) { j.now = now } }

func NewReminderJob(store Store, notifier notification.Notifier, lateFine decimal.Decimal, log *zap.Logger, opts ...Option) *ReminderJob {
	if log == nil {
		log = zap.NewNop()
	}
	j := &ReminderJob{
		store:    store,
		notifier: notifier,
		lateFine: lateFine,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RunOnce performs a single reminder pass. A listing failure aborts the run;
// individual delivery failures are counted, alerted on and returned as one
// error after every reminder has been attempted.
func (j *ReminderJob) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()

	if j.locker != nil {
		release, ok, err := j.locker.TryLockJob(ctx, ReminderJobName)
		if err != nil {
			j.log.Error("cron: acquire job lock failed", zap.Error(err))
			metrics.UpdateJobMetrics(ReminderJobName, started, err)
			return res, err
		}
		if !ok {
			j.log.Info("cron: job lock held by another worker, skipping run")
			res.Skipped = true
			return res, nil
		}
		defer release()
	}

	failures, runErr := j.remind(ctx, &res)

	metrics.UpdateJobMetrics(ReminderJobName, started, runErr)
	dur := time.Since(started)
	run := storage.JobRun{
		Name:           ReminderJobName,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    runErr == nil,
	}
	if runErr != nil {
		run.LastError = runErr.Error()
	}
	if err := j.store.RecordJobRun(ctx, run); err != nil {
		j.log.Warn("cron: record job run failed", zap.Error(err))
	}

	if len(failures) > 0 && j.alerter != nil {
		alert := alerting.ReminderAlert{
			JobName:       ReminderJobName,
			TotalCount:    res.Overdue,
			SuccessCount:  res.Sent,
			FailedCount:   res.Failed,
			Duration:      dur,
			FailedDetails: failures,
			Timestamp:     j.now(),
		}
		if err := j.alerter.SendReminderAlert(ctx, alert); err != nil {
			j.log.Warn("cron: send alert failed", zap.Error(err))
		}
	}

	if runErr != nil {
		j.log.Error("cron: job completed with error",
			zap.String("job", ReminderJobName), zap.Duration("duration", dur), zap.Error(runErr))
	} else {
		j.log.Info("cron: job completed",
			zap.String("job", ReminderJobName), zap.Duration("duration", dur),
			zap.Int("overdue", res.Overdue), zap.Int("sent", res.Sent))
	}
	return res, runErr
}

func (j *ReminderJob) remind(ctx context.Context, res *Result) ([]alerting.ReminderFailure, error) {
	bills, err := j.store.ListOverdueBills(ctx, j.now())
	if err != nil {
		return nil, fmt.Errorf("list overdue bills: %w", err)
	}
	res.Overdue = len(bills)
	metrics.OverdueBills.Set(float64(len(bills)))

	emails := make(map[string]string)
	var failures []alerting.ReminderFailure
	for _, b := range bills {
		email, ok := emails[b.HouseholdID]
		if !ok {
			h, err := j.store.FindHouseholdByID(ctx, b.HouseholdID)
			if err != nil {
				j.log.Warn("cron: household lookup failed", zap.String("household_id", b.HouseholdID), zap.Error(err))
			} else if h != nil {
				email = h.Email
			}
			emails[b.HouseholdID] = email
		}

		err := j.notifier.Notify(ctx, notification.Reminder{
			BillID:        b.ID,
			HouseholdName: b.HouseholdName,
			ServiceNumber: b.ServiceNumber,
			Email:         email,
			TotalAmount:   b.TotalAmount,
			DueDate:       b.DueDate,
			LateFine:      j.lateFine,
		})
		if err != nil {
			res.Failed++
			metrics.RemindersSentTotal.WithLabelValues("failed").Inc()
			failures = append(failures, alerting.ReminderFailure{
				BillID:        b.ID,
				ServiceNumber: b.ServiceNumber,
				Error:         err.Error(),
			})
			continue
		}
		res.Sent++
		metrics.RemindersSentTotal.WithLabelValues("sent").Inc()
	}

	if res.Failed > 0 {
		return failures, fmt.Errorf("%d of %d reminders failed", res.Failed, res.Overdue)
	}
	return failures, nil
}

// Run schedules the job on spec (standard five-field cron or a descriptor
// such as "@daily") and blocks until ctx is cancelled. Overlapping runs are
// skipped.
func Run(ctx context.Context, spec string, job *ReminderJob, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		_, _ = job.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("cron spec %q: %w", spec, err)
	}

	log.Info("cron worker starting", zap.String("job", ReminderJobName), zap.String("schedule", spec))
	c.Start()
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	log.Info("cron worker stopped")
	return ctx.Err()
}

// ValidateSchedule reports whether spec parses as a cron schedule.
func ValidateSchedule(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}
