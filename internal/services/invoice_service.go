package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autonome/internal/core"
	"autonome/internal/ledger"
	"autonome/internal/log"
)

// RatesSource supplies the tax rates applied to new invoices.
type RatesSource interface {
	TaxRates(ctx context.Context) (core.TaxRates, error)
}

// InvoiceStore is the part of the record store invoicing touches.
type InvoiceStore interface {
	ledger.InvoiceStore
	ledger.ClientStore
}

type InvoiceService struct {
	store  InvoiceStore
	rates  RatesSource
	now    func() time.Time
	logger *log.Logger
}

func NewInvoiceService(store InvoiceStore, rates RatesSource, logger *log.Logger) *InvoiceService {
	if logger == nil {
		logger = log.Default(log.ComponentLedger)
	}
	return &InvoiceService{store: store, rates: rates, now: time.Now, logger: logger.WithComponent(log.ComponentLedger)}
}

// CreateInvoice fills defaults, computes totals with the current tax rates
// and stores inv. The client name is copied from the client record when the
// caller only gave an id.
func (s *InvoiceService) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if inv.Date.IsZero() {
		inv.Date = s.now()
	}
	if inv.Type == "" {
		inv.Type = core.InvoiceTypeInvoice
	}
	if inv.Status == "" {
		inv.Status = core.InvoiceDraft
	}
	if strings.TrimSpace(inv.Number) == "" {
		inv.Number = InvoiceNumber(inv.Date, s.now())
	}
	if inv.ClientID != nil && strings.TrimSpace(inv.ClientName) == "" {
		c, err := s.store.GetClient(ctx, *inv.ClientID)
		if err != nil {
			return core.Invoice{}, fmt.Errorf("load client: %w", err)
		}
		inv.ClientName = c.Name
	}

	rates, err := s.rates.TaxRates(ctx)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("load tax rates: %w", err)
	}
	inv.ComputeTotals(rates)

	saved, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}
	s.logger.InfoContext(ctx, "Invoice created",
		log.NewFields().WithRecord("invoice", saved.ID, saved.Total.Cents, "").ToSlice()...)
	return saved, nil
}

// UpdateInvoice recomputes totals with the current tax rates and stores inv.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	rates, err := s.rates.TaxRates(ctx)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("load tax rates: %w", err)
	}
	inv.ComputeTotals(rates)
	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	return inv, nil
}

// GetInvoice returns the invoice with its status evaluated at the current time.
func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return core.Invoice{}, err
	}
	inv.Status = inv.EffectiveStatus(s.now())
	return inv, nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, r ledger.Range) ([]core.Invoice, error) {
	invoices, err := s.store.ListInvoices(ctx, r)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range invoices {
		invoices[i].Status = invoices[i].EffectiveStatus(now)
	}
	return invoices, nil
}

// InvoiceNumber builds INV-YYYYMMDD-NNN from the invoice date; the suffix
// comes from the creation clock's milliseconds.
func InvoiceNumber(date, now time.Time) string {
	return fmt.Sprintf("INV-%s-%03d", date.Format("20060102"), now.Nanosecond()/int(time.Millisecond))
}
