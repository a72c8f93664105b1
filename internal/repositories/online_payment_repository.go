package repositories

import (
	"context"
	"errors"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type OnlinePaymentRepository struct {
	DB DBTX
}

func NewOnlinePaymentRepository(db DBTX) *OnlinePaymentRepository {
	return &OnlinePaymentRepository{DB: db}
}

const onlinePaymentColumns = `id, evento_id, razorpay_order_id, razorpay_payment_id, monto, moneda, estado, pago_id,
	motivo_fallo, created_at, updated_at`

func (r *OnlinePaymentRepository) CreateOnlineOrder(ctx context.Context, o *models.OnlinePayment) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO pagos_en_linea(evento_id, razorpay_order_id, monto, moneda, estado)
		 VALUES($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		o.EventoID, o.RazorpayOrderID, o.Monto, o.Moneda, o.Estado,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return mapErr("create online order", err)
}

// GetOnlineOrder returns the order without locking it
func (r *OnlinePaymentRepository) GetOnlineOrder(ctx context.Context, orderID string) (*models.OnlinePayment, error) {
	return r.getOrder(ctx, `SELECT `+onlinePaymentColumns+` FROM pagos_en_linea WHERE razorpay_order_id=$1`, orderID)
}

// LockOnlineOrder holds the order row so a verification is applied once
func (r *OnlinePaymentRepository) LockOnlineOrder(ctx context.Context, orderID string) (*models.OnlinePayment, error) {
	return r.getOrder(ctx, `SELECT `+onlinePaymentColumns+` FROM pagos_en_linea WHERE razorpay_order_id=$1 FOR UPDATE`, orderID)
}

func (r *OnlinePaymentRepository) getOrder(ctx context.Context, query, orderID string) (*models.OnlinePayment, error) {
	var o models.OnlinePayment
	err := r.DB.QueryRow(ctx, query, orderID).Scan(&o.ID, &o.EventoID, &o.RazorpayOrderID, &o.RazorpayPaymentID,
		&o.Monto, &o.Moneda, &o.Estado, &o.PagoID, &o.MotivoFallo, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundMsg("orden " + orderID + " no encontrada")
	}
	if err != nil {
		return nil, mapErr("get online order", err)
	}
	return &o, nil
}

func (r *OnlinePaymentRepository) MarkOnlineOrderPaid(ctx context.Context, id int, paymentID string, pagoID int) error {
	return execOne(ctx, r.DB, "orden", "mark order paid", id,
		`UPDATE pagos_en_linea SET estado='pagada', razorpay_payment_id=$1, pago_id=$2, updated_at=NOW() WHERE id=$3`,
		paymentID, pagoID, id)
}

func (r *OnlinePaymentRepository) MarkOnlineOrderFailed(ctx context.Context, id int, paymentID, reason string) error {
	return execOne(ctx, r.DB, "orden", "mark order failed", id,
		`UPDATE pagos_en_linea SET estado='fallida', razorpay_payment_id=$1, motivo_fallo=$2, updated_at=NOW() WHERE id=$3`,
		paymentID, reason, id)
}
