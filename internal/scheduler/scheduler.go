package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// Reporter is the part of the reporting service the scheduled jobs call.
type Reporter interface {
	GenerateStockReport(ctx context.Context) (*models.StockReport, error)
	RunReconcile(ctx context.Context, fix bool) ([]models.Drift, error)
}

// Options holds the job schedules in standard five-field cron syntax. An empty
// schedule disables the job.
type Options struct {
	ReportSchedule    string
	ReconcileSchedule string
	ReconcileFix      bool
	Location          *time.Location
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	opts     Options
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance and registers its jobs.
func NewScheduler(reporter Reporter, opts Options, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(opts.Location)),
		reporter: reporter,
		opts:     opts,
		logger:   logger,
	}

	if opts.ReportSchedule != "" {
		if _, err := s.cron.AddFunc(opts.ReportSchedule, s.generateReport); err != nil {
			return nil, fmt.Errorf("schedule stock report %q: %w", opts.ReportSchedule, err)
		}
	}
	if opts.ReconcileSchedule != "" {
		if _, err := s.cron.AddFunc(opts.ReconcileSchedule, s.reconcile); err != nil {
			return nil, fmt.Errorf("schedule reconcile %q: %w", opts.ReconcileSchedule, err)
		}
	}
	return s, nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		zap.String("report", s.opts.ReportSchedule),
		zap.String("reconcile", s.opts.ReconcileSchedule),
		zap.String("location", s.opts.Location.String()))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Jobs is the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) generateReport() {
	s.logger.Info("generating stock report")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.reporter.GenerateStockReport(ctx); err != nil {
		s.logger.Error("failed to generate stock report", zap.Error(err))
	}
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	drift, err := s.reporter.RunReconcile(ctx, s.opts.ReconcileFix)
	if err != nil {
		s.logger.Error("failed to reconcile stock", zap.Error(err))
		return
	}
	s.logger.Info("reconcile finished", zap.Int("drift", len(drift)), zap.Bool("fix", s.opts.ReconcileFix))
}
