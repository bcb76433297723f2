package scheduler

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/domain/reconciliation"
	"github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/alerting"
	"github.com/restosuite/backend/internal/infrastructure/config"
)

// ---------------------------------------------------------------------------
// Background Task Scheduler
// ---------------------------------------------------------------------------
// The scheduler owns every recurring maintenance task: the hourly
// reconciliation pass, the agent health sweep, the dead-letter backlog alert,
// the daily retention purge and the weekly deep pass with event archival.
// Schedules are standard five-field cron expressions from configuration.

// Reconciler runs drift detection across all vendors.
type Reconciler interface {
	RunAll(ctx context.Context)
}

// HealthSweeper persists derived agent health and reports vendors that just
// went offline.
type HealthSweeper interface {
	SweepHealth(ctx context.Context) ([]uuid.UUID, error)
}

// Archiver moves aged reconciliation events to cold storage and returns how
// many were shipped.
type Archiver interface {
	ArchiveEvents(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler wires recurring tasks onto a cron runner.
type Scheduler struct {
	reconciler Reconciler
	health     HealthSweeper
	jobs       sync.JobRepository
	dlq        sync.DeadLetterRepository
	events     reconciliation.Repository
	archiver   Archiver // optional; nil disables archival
	alerts     alerting.Sink
	cfg        config.SchedulerConfig
	retention  time.Duration
	logger     *zap.Logger

	cron      *cron.Cron
	mu        stdsync.Mutex
	isRunning bool
}

// NewScheduler creates the background task scheduler. retention bounds how
// long reconciliation events are kept before purge and archival.
func NewScheduler(
	reconciler Reconciler,
	health HealthSweeper,
	jobs sync.JobRepository,
	dlq sync.DeadLetterRepository,
	events reconciliation.Repository,
	archiver Archiver,
	alerts alerting.Sink,
	cfg config.SchedulerConfig,
	retention time.Duration,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		reconciler: reconciler,
		health:     health,
		jobs:       jobs,
		dlq:        dlq,
		events:     events,
		archiver:   archiver,
		alerts:     alerts,
		cfg:        cfg,
		retention:  retention,
		logger:     logger,
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

// Start registers all tasks and starts the cron runner.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.cfg.Enabled {
		s.logger.Info("background scheduler disabled")
		return nil
	}

	tasks := []struct {
		name     string
		schedule string
		run      func(ctx context.Context)
	}{
		{"reconcile", s.cfg.ReconcileSchedule, s.runReconcile},
		{"health_sweep", s.cfg.HealthSweepSchedule, s.runHealthSweep},
		{"dlq_alert", s.cfg.DLQAlertSchedule, s.runDLQAlert},
		{"retention_purge", s.cfg.DailyPurgeSchedule, s.runPurge},
		{"deep_pass", s.cfg.WeeklyDeepSchedule, s.runDeepPass},
	}

	for _, task := range tasks {
		task := task
		if _, err := s.cron.AddFunc(task.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
			defer cancel()
			task.run(ctx)
		}); err != nil {
			return fmt.Errorf("invalid schedule for %s task (%q): %w", task.name, task.schedule, err)
		}
		s.logger.Info("registered background task",
			zap.String("task", task.name),
			zap.String("schedule", task.schedule))
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("background scheduler started")
	return nil
}

// Stop halts the cron runner and waits for in-flight tasks.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("background scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runReconcile runs a full drift-detection pass over every vendor.
func (s *Scheduler) runReconcile(ctx context.Context) {
	s.logger.Info("scheduled reconciliation starting")
	s.reconciler.RunAll(ctx)
}

// runHealthSweep persists derived agent statuses and raises a critical alert
// for every vendor whose agent just crossed into offline.
func (s *Scheduler) runHealthSweep(ctx context.Context) {
	wentOffline, err := s.health.SweepHealth(ctx)
	if err != nil {
		s.logger.Error("agent health sweep failed", zap.Error(err))
		return
	}
	for _, vendorID := range wentOffline {
		s.alerts.Notify(ctx, alerting.Alert{
			Severity: alerting.SeverityCritical,
			Title:    "agent offline",
			Message:  "vendor agent stopped sending heartbeats",
			Details:  map[string]any{"vendor_id": vendorID.String()},
		})
	}
}

// runDLQAlert reminds operators about unreviewed dead-letter entries once the
// backlog crosses the configured threshold.
func (s *Scheduler) runDLQAlert(ctx context.Context) {
	pending, err := s.dlq.CountPending(ctx)
	if err != nil {
		s.logger.Error("dead letter count failed", zap.Error(err))
		return
	}
	if pending <= s.cfg.DLQAlertThreshold {
		return
	}
	s.alerts.Notify(ctx, alerting.Alert{
		Severity: alerting.SeverityWarning,
		Title:    "dead letters pending",
		Message:  "sync jobs exhausted their retries and await manual review",
		Details:  map[string]any{"pending": pending},
	})
}

// runPurge enforces retention on expired jobs and resolved dead letters.
// Reconciliation events are handled by the weekly deep pass so they get
// archived before deletion.
func (s *Scheduler) runPurge(ctx context.Context) {
	now := time.Now()

	jobsPurged, err := s.jobs.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("job purge failed", zap.Error(err))
	}

	dlqPurged, err := s.dlq.DeleteResolvedBefore(ctx, now.Add(-s.cfg.DLQResolvedRetention))
	if err != nil {
		s.logger.Error("dead letter purge failed", zap.Error(err))
	}

	s.logger.Info("retention purge finished",
		zap.Int64("jobs", jobsPurged),
		zap.Int64("dead_letters", dlqPurged))
}

// runDeepPass archives then purges aged reconciliation events, and runs an
// unconditional full reconciliation. Archival failure keeps the events in
// place; they are only deleted once shipped (or if no archiver is wired).
func (s *Scheduler) runDeepPass(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)

	purgeOK := true
	if s.archiver != nil {
		shipped, err := s.archiver.ArchiveEvents(ctx, cutoff)
		if err != nil {
			s.logger.Error("event archival failed, skipping event purge", zap.Error(err))
			purgeOK = false
		} else if shipped > 0 {
			s.logger.Info("archived reconciliation events", zap.Int("count", shipped))
		}
	}

	if purgeOK {
		purged, err := s.events.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			s.logger.Error("reconciliation event purge failed", zap.Error(err))
		} else if purged > 0 {
			s.logger.Info("purged reconciliation events", zap.Int64("count", purged))
		}
	}

	s.logger.Info("weekly deep reconciliation starting")
	s.reconciler.RunAll(ctx)
}
