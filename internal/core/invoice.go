package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceTypeInvoice InvoiceType = "invoice"
	InvoiceTypeQuote   InvoiceType = "quote"

	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrNoLineItems        = errors.New("invoice has no line items")
	ErrInvalidInvoiceType = errors.New("invalid invoice type")
)

type (
	InvoiceType   string
	InvoiceStatus string

	LineItem struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		Price       Money   `json:"price"`
	}

	// TaxRates are fractional rates, e.g. 0.05 for 5 %.
	TaxRates struct {
		TPS float64
		TVQ float64
	}

	Invoice struct {
		ID         int64         `json:"id"`
		Number     string        `json:"number"`
		Date       time.Time     `json:"date"`
		DueDate    *time.Time    `json:"dueDate,omitempty"`
		Type       InvoiceType   `json:"type"`
		Status     InvoiceStatus `json:"status"`
		ClientID   *int64        `json:"clientId,omitempty"`
		ClientName string        `json:"clientName"`
		Items      []LineItem    `json:"items"`
		IncludeTPS bool          `json:"includeTps"`
		IncludeTVQ bool          `json:"includeTvq"`
		Subtotal   Money         `json:"subtotal"`
		TPS        *Money        `json:"tps,omitempty"`
		TVQ        *Money        `json:"tvq,omitempty"`
		Total      Money         `json:"total"`
		Notes      string        `json:"notes,omitempty"`
		CreatedAt  time.Time     `json:"createdAt"`
		UpdatedAt  time.Time     `json:"updatedAt"`
	}
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

func (inv Invoice) Validate() error {
	if inv.Date.IsZero() {
		return ErrZeroDate
	}
	switch inv.Type {
	case InvoiceTypeInvoice, InvoiceTypeQuote:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidInvoiceType, inv.Type)
	}
	if !inv.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, inv.Status)
	}
	if strings.TrimSpace(inv.ClientName) == "" && inv.ClientID == nil {
		return ErrEmptyName
	}
	if len(inv.Items) == 0 {
		return ErrNoLineItems
	}
	for _, it := range inv.Items {
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if it.Price.Cents < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

// Amount is quantity x price rounded to cents.
func (it LineItem) Amount() Money {
	return MoneyFromDecimal(decimal.NewFromFloat(it.Quantity).Mul(it.Price.Decimal()))
}

// ComputeTotals fills Subtotal, the enabled tax components and Total.
func (inv *Invoice) ComputeTotals(rates TaxRates) {
	var subtotal Money
	for _, it := range inv.Items {
		subtotal = subtotal.Add(it.Amount())
	}
	inv.Subtotal = subtotal
	inv.TPS, inv.TVQ = nil, nil
	total := subtotal
	if inv.IncludeTPS {
		tps := applyRate(subtotal, rates.TPS)
		inv.TPS = &tps
		total = total.Add(tps)
	}
	if inv.IncludeTVQ {
		tvq := applyRate(subtotal, rates.TVQ)
		inv.TVQ = &tvq
		total = total.Add(tvq)
	}
	inv.Total = total
}

func applyRate(m Money, rate float64) Money {
	return MoneyFromDecimal(m.Decimal().Mul(decimal.NewFromFloat(rate)))
}

// EffectiveStatus is the status shown to readers: a draft or sent invoice
// whose due date has passed reads as overdue. It is never persisted.
func (inv Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if inv.DueDate == nil {
		return inv.Status
	}
	if (inv.Status == InvoiceDraft || inv.Status == InvoiceSent) && inv.DueDate.Before(now) {
		return InvoiceOverdue
	}
	return inv.Status
}
