package services

import (
	"context"

	"eventos-backend/internal/models"
	"eventos-backend/internal/store"

	"github.com/shopspring/decimal"
)

// PaymentLedger records payments and refunds. It never touches event state;
// callers own any lifecycle reaction to a payment.
type PaymentLedger struct{}

func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{}
}

func (l *PaymentLedger) Create(ctx context.Context, tx store.Payments, p *models.Payment) error {
	return tx.InsertPayment(ctx, p)
}

// Delete removes the row; Totals in the same transaction already reflect it
func (l *PaymentLedger) Delete(ctx context.Context, tx store.Payments, paymentID int) error {
	return tx.DeletePayment(ctx, paymentID)
}

func (l *PaymentLedger) Totals(ctx context.Context, tx store.Payments, eventID int) (models.PaymentTotals, error) {
	return tx.PaymentTotals(ctx, eventID)
}

func (l *PaymentLedger) TotalPaid(ctx context.Context, tx store.Payments, eventID int) (decimal.Decimal, error) {
	t, err := tx.PaymentTotals(ctx, eventID)
	return t.Pagado, err
}

func (l *PaymentLedger) TotalRefunded(ctx context.Context, tx store.Payments, eventID int) (decimal.Decimal, error) {
	t, err := tx.PaymentTotals(ctx, eventID)
	return t.Reembolsado, err
}
