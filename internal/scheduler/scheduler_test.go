package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

type fakeReporter struct {
	mu        sync.Mutex
	reports   int
	reconcile []bool
	err       error
}

func (f *fakeReporter) GenerateStockReport(context.Context) (*models.StockReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports++
	return &models.StockReport{}, f.err
}

func (f *fakeReporter) RunReconcile(_ context.Context, fix bool) ([]models.Drift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconcile = append(f.reconcile, fix)
	return nil, f.err
}

func TestNewSchedulerRegistersJobs(t *testing.T) {
	s, err := NewScheduler(&fakeReporter{}, Options{ReportSchedule: "0 20 * * *", ReconcileSchedule: "30 2 * * *"}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, s.Jobs())

	s, err = NewScheduler(&fakeReporter{}, Options{ReportSchedule: "0 20 * * *"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, s.Jobs())

	s.Start()
	s.Stop()
}

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler(&fakeReporter{}, Options{ReportSchedule: "every day"}, nil)
	require.ErrorContains(t, err, "schedule stock report")
}

func TestJobs(t *testing.T) {
	reporter := &fakeReporter{}
	s, err := NewScheduler(reporter, Options{ReconcileFix: true}, nil)
	require.NoError(t, err)

	s.generateReport()
	s.reconcile()
	require.Equal(t, 1, reporter.reports)
	require.Equal(t, []bool{true}, reporter.reconcile)

	reporter.err = errors.New("down")
	s.generateReport()
	s.reconcile()
	require.Equal(t, 2, reporter.reports)
}
