package stock

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// Reconcile compares every product's ledger quantity with the balance derived from the
// transaction log. With fix set, drifting quantities are overwritten with the derived
// balance, clamped at zero.
func (s *Service) Reconcile(ctx context.Context, fix bool) ([]models.Drift, error) {
	positions, err := s.positions(ctx)
	if err != nil {
		return nil, err
	}

	var drift []models.Drift
	for _, p := range positions {
		if p.ledger == p.derived {
			continue
		}

		d := models.Drift{Product: p.product, Ledger: p.ledger, Derived: p.derived}
		if fix {
			fixed, err := s.repair(ctx, p.product)
			if err != nil {
				return drift, err
			}
			if fixed != nil {
				d = *fixed
			}
		}
		drift = append(drift, d)
	}

	if len(drift) > 0 {
		s.logger.Warn("ledger drift detected", zap.Int("products", len(drift)), zap.Bool("fix", fix))
	}
	return drift, nil
}

// repair re-reads both sides under the product lock and writes the derived balance.
// It returns nil when the drift disappeared in the meantime.
func (s *Service) repair(ctx context.Context, product string) (*models.Drift, error) {
	unlock := s.locks.Lock(product)
	defer unlock()

	level, err := s.Level(ctx, product)
	if err != nil {
		return nil, err
	}
	ledger, err := s.onHand(ctx, product)
	if err != nil {
		return nil, err
	}
	if ledger == level.Balance() {
		return nil, nil
	}

	item, err := s.store.SetItemQuantity(ctx, product, max(level.Balance(), 0))
	if err != nil {
		return nil, fmt.Errorf("repair %s: %w", product, err)
	}

	s.logger.Info("ledger quantity repaired", zap.String("product", product), zap.Int("from", ledger), zap.Int("to", item.Quantity))
	s.publish(ctx, models.TransactionEvent{
		Type:        models.EventItemQuantityRepaired,
		Product:     product,
		StockOnHand: item.Quantity,
		Timestamp:   s.now().UTC(),
	})

	return &models.Drift{Product: product, Ledger: ledger, Derived: level.Balance(), Fixed: true}, nil
}

// Report builds a snapshot of the ledger, the derived levels and the totals.
func (s *Service) Report(ctx context.Context) (*models.StockReport, error) {
	positions, err := s.positions(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.Totals(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.StockReport{
		GeneratedAt: s.now().UTC(),
		Items:       make([]models.ItemStatus, 0, len(positions)),
		Totals:      totals,
		LowStock:    []string{},
		Drift:       []models.Drift{},
	}
	for _, p := range positions {
		low := p.ledger < s.threshold
		report.Items = append(report.Items, models.ItemStatus{
			Product:  p.product,
			Quantity: p.ledger,
			Balance:  p.derived,
			LowStock: low,
		})
		if low {
			report.LowStock = append(report.LowStock, p.product)
		}
		if p.ledger != p.derived {
			report.Drift = append(report.Drift, models.Drift{Product: p.product, Ledger: p.ledger, Derived: p.derived})
		}
	}
	return report, nil
}

type position struct {
	product string
	ledger  int
	derived int
}

// positions joins the items with the derived levels, sorted by product name.
func (s *Service) positions(ctx context.Context) ([]position, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := s.store.StockLevels(ctx)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*position, len(items)+len(levels))
	for _, item := range items {
		byProduct[item.Name] = &position{product: item.Name, ledger: item.Quantity}
	}
	for _, level := range levels {
		p, ok := byProduct[level.Product]
		if !ok {
			p = &position{product: level.Product}
			byProduct[level.Product] = p
		}
		p.derived = level.Balance()
	}

	out := make([]position, 0, len(byProduct))
	for _, p := range byProduct {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].product < out[j].product })
	return out, nil
}
