package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/service"
)

// Backfiller assigns missing identifiers
type Backfiller interface {
	BackfillUniqueIDs(ctx context.Context, actor service.Actor) (*models.BackfillReport, error)
	BackfillAccessCodes(ctx context.Context, actor service.Actor) (*models.BackfillReport, error)
}

// LeaderboardExporter publishes the leaderboard
type LeaderboardExporter interface {
	ExportLeaderboard(ctx context.Context) (int, error)
}

// Scheduler handles periodic tasks
type Scheduler struct {
	backfill Backfiller
	exporter LeaderboardExporter
	audit    *service.AuditService
	alerter  service.Alerter
	config   *config.SchedulerConfig

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler. exporter and alerter may be nil.
func NewScheduler(
	backfill Backfiller,
	exporter LeaderboardExporter,
	audit *service.AuditService,
	alerter service.Alerter,
	cfg *config.SchedulerConfig,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		backfill: backfill,
		exporter: exporter,
		audit:    audit,
		alerter:  alerter,
		config:   cfg,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler",
		"enabled", s.config.Enabled,
		"backfill_interval", s.config.BackfillInterval,
		"leaderboard_export_interval", s.config.LeaderboardExportInterval)

	if !s.config.Enabled {
		return
	}

	if s.config.BackfillInterval > 0 {
		s.startIntervalTask(s.config.BackfillInterval, "identifier_backfill", s.runBackfill)
	}

	if s.config.LeaderboardExportInterval > 0 {
		if s.exporter == nil {
			slog.Warn("Leaderboard export skipped - no exporter configured")
		} else {
			s.startIntervalTask(s.config.LeaderboardExportInterval, "leaderboard_export", s.exportLeaderboard)
		}
	}

	slog.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running tasks to return
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	close(s.stopChan)
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) startIntervalTask(interval time.Duration, taskName string, task func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scheduleIntervalTask(interval, taskName, task)
	}()
}

// scheduleIntervalTask runs a task at regular intervals
func (s *Scheduler) scheduleIntervalTask(interval time.Duration, taskName string, task func(context.Context)) {
	slog.Info("Starting interval task", "task", taskName, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	slog.Debug("Running interval task", "task", taskName)
	task(s.ctx)

	for {
		select {
		case <-ticker.C:
			slog.Debug("Running interval task", "task", taskName)
			task(s.ctx)
		case <-s.stopChan:
			return
		}
	}
}

// runBackfill assigns unique IDs and access codes that earlier requests
// failed to claim
func (s *Scheduler) runBackfill(ctx context.Context) {
	runs := []struct {
		name string
		run  func(context.Context, service.Actor) (*models.BackfillReport, error)
	}{
		{"unique_id", s.backfill.BackfillUniqueIDs},
		{"access_code", s.backfill.BackfillAccessCodes},
	}

	for _, r := range runs {
		report, err := r.run(ctx, service.System)
		if err != nil {
			slog.Error("Scheduled backfill failed", "field", r.name, "error", err)
			continue
		}
		if report.Scanned == 0 {
			continue
		}

		slog.Info("Scheduled backfill completed",
			"field", r.name,
			"scanned", report.Scanned,
			"assigned", report.Assigned,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
		if report.Failed > 0 {
			s.alert(ctx, fmt.Sprintf("Backfill of %s left %d of %d registrations unassigned", r.name, report.Failed, report.Scanned))
		}
	}
}

func (s *Scheduler) exportLeaderboard(ctx context.Context) {
	rows, err := s.exporter.ExportLeaderboard(ctx)
	if err != nil {
		slog.Error("Scheduled leaderboard export failed", "error", err)
		s.alert(ctx, "Leaderboard export failed: "+err.Error())
		return
	}

	s.audit.Log(ctx, service.System, service.ActionLeaderboardExport, "leaderboard", fmt.Sprintf("rows=%d scheduled=true", rows))
}

func (s *Scheduler) alert(ctx context.Context, message string) {
	if s.alerter != nil {
		s.alerter.Alert(ctx, message)
	}
}
