package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/repository/sheets"
	"github.com/mamadbah2/inventory/internal/service/whatsapp"
)

const (
	dateLayout      = "2006-01-02"
	stockSheetRange = "Stock!A:E"
)

// Source produces stock reports and reconciles the ledger.
type Source interface {
	Report(ctx context.Context) (*models.StockReport, error)
	Reconcile(ctx context.Context, fix bool) ([]models.Drift, error)
}

// Store keeps generated reports.
type Store interface {
	SaveStockReport(ctx context.Context, report *models.StockReport) error
}

// Options holds the optional outputs of the reporting service. Nil sheet or messenger
// disables the matching output.
type Options struct {
	Sheet          sheets.Repository
	Messenger      whatsapp.MessagingService
	AlertRecipient string
	Currency       string
}

// Service builds the periodic stock report and fans it out to storage, the
// spreadsheet and the operator.
type Service struct {
	source    Source
	store     Store
	sheet     sheets.Repository
	messenger whatsapp.MessagingService
	recipient string
	currency  string
	logger    *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(source Source, store Store, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := strings.ToUpper(opts.Currency)
	if money.GetCurrency(currency) == nil {
		currency = money.USD
	}
	return &Service{
		source:    source,
		store:     store,
		sheet:     opts.Sheet,
		messenger: opts.Messenger,
		recipient: opts.AlertRecipient,
		currency:  currency,
		logger:    logger,
	}
}

// GenerateStockReport builds a report and saves it. Exporting to the spreadsheet and
// alerting the operator are best effort: failures are logged, not returned.
func (s *Service) GenerateStockReport(ctx context.Context) (*models.StockReport, error) {
	report, err := s.source.Report(ctx)
	if err != nil {
		return nil, fmt.Errorf("build stock report: %w", err)
	}

	if err := s.store.SaveStockReport(ctx, report); err != nil {
		return nil, err
	}

	if s.sheet != nil {
		if err := s.sheet.AppendRows(ctx, stockSheetRange, SheetRows(report)); err != nil {
			s.logger.Warn("failed to export stock report", zap.Error(err))
		}
	}

	if len(report.LowStock) > 0 || len(report.Drift) > 0 {
		s.alert(ctx, report)
	}

	s.logger.Info("stock report generated",
		zap.Int("items", len(report.Items)),
		zap.Int("low_stock", len(report.LowStock)),
		zap.Int("drift", len(report.Drift)))
	return report, nil
}

// RunReconcile compares the ledger with the log and, with fix set, repairs it.
func (s *Service) RunReconcile(ctx context.Context, fix bool) ([]models.Drift, error) {
	drift, err := s.source.Reconcile(ctx, fix)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	for _, d := range drift {
		s.logger.Warn("ledger drift",
			zap.String("product", d.Product),
			zap.Int("ledger", d.Ledger),
			zap.Int("derived", d.Derived),
			zap.Bool("fixed", d.Fixed))
	}
	return drift, nil
}

// Summary renders a short plain-text version of the report.
func (s *Service) Summary(report *models.StockReport) string {
	title, lines := s.summaryLines(report)
	return strings.Join(append([]string{title}, lines...), "\n")
}

func (s *Service) summaryLines(report *models.StockReport) (string, []string) {
	title := "Stock report " + report.GeneratedAt.Format(dateLayout)
	lines := []string{
		"Sales: " + s.format(report.Totals.TotalSales),
		"Purchases: " + s.format(report.Totals.TotalPurchases),
	}

	if len(report.LowStock) > 0 {
		quantities := make(map[string]int, len(report.Items))
		for _, item := range report.Items {
			quantities[item.Product] = item.Quantity
		}
		parts := make([]string, 0, len(report.LowStock))
		for _, product := range report.LowStock {
			parts = append(parts, fmt.Sprintf("%s (%d)", product, quantities[product]))
		}
		lines = append(lines, "Low stock: "+strings.Join(parts, ", "))
	}

	for _, d := range report.Drift {
		lines = append(lines, fmt.Sprintf("Drift: %s ledger %d, log %d", d.Product, d.Ledger, d.Derived))
	}
	return title, lines
}

// SheetRows flattens the report into one spreadsheet row per product.
func SheetRows(report *models.StockReport) [][]interface{} {
	date := report.GeneratedAt.Format(dateLayout)
	rows := make([][]interface{}, 0, len(report.Items))
	for _, item := range report.Items {
		low := "no"
		if item.LowStock {
			low = "yes"
		}
		rows = append(rows, []interface{}{date, item.Product, item.Quantity, item.Balance, low})
	}
	return rows
}

func (s *Service) format(amount float64) string {
	cur := money.GetCurrency(s.currency)
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, s.currency).Display()
}

func (s *Service) alert(ctx context.Context, report *models.StockReport) {
	if s.messenger == nil || s.recipient == "" {
		return
	}
	title, lines := s.summaryLines(report)
	err := s.messenger.SendAlert(ctx, models.AlertRequest{To: s.recipient, Title: title, Lines: lines})
	if err != nil {
		s.logger.Warn("failed to send stock alert", zap.Error(err))
	}
}
