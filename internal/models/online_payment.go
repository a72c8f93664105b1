package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Online order statuses
const (
	OrdenCreada  = "creada"
	OrdenPagada  = "pagada"
	OrdenFallida = "fallida"
)

// OnlinePayment tracks a Razorpay order raised against an event's saldo
type OnlinePayment struct {
	ID                int             `json:"id"`
	EventoID          int             `json:"evento_id"`
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id,omitempty"`
	Monto             decimal.Decimal `json:"monto"`
	Moneda            string          `json:"moneda"`
	Estado            string          `json:"estado"`
	PagoID            *int            `json:"pago_id,omitempty"` // payment row created on verification
	MotivoFallo       string          `json:"motivo_fallo,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CreateOnlineOrderRequest asks for an order; zero monto means the whole saldo
type CreateOnlineOrderRequest struct {
	Monto decimal.Decimal `json:"monto"`
}

// CreateOnlineOrderResponse is what the checkout widget needs
type CreateOnlineOrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
	EventoID int    `json:"evento_id"`
}

// VerifyOnlinePaymentRequest is posted back by the checkout widget
type VerifyOnlinePaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}
