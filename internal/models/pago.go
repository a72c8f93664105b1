package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType separates money in from money returned
type PaymentType string

const (
	PagoTipoPago      PaymentType = "pago"
	PagoTipoReembolso PaymentType = "reembolso"
)

// Payment methods
const (
	MetodoEfectivo      = "efectivo"
	MetodoTransferencia = "transferencia"
	MetodoTarjeta       = "tarjeta"
	MetodoDeposito      = "deposito"
	MetodoEnLinea       = "en_linea"
)

// PaymentMethods lists accepted methods
var PaymentMethods = []string{MetodoEfectivo, MetodoTransferencia, MetodoTarjeta, MetodoDeposito, MetodoEnLinea}

// Payment origins
const (
	OrigenWeb     = "web"
	OrigenExterno = "externo"
	OrigenEnLinea = "en_linea"
)

// Payment is one monetary movement against an event
type Payment struct {
	ID            int             `json:"id"`
	EventoID      int             `json:"evento_id"`
	Tipo          PaymentType     `json:"tipo"`
	Monto         decimal.Decimal `json:"monto"`
	Metodo        string          `json:"metodo"`
	FechaPago     time.Time       `json:"fecha_pago"`
	UsuarioID     *int            `json:"usuario_id,omitempty"`
	UsuarioNombre string          `json:"usuario_nombre,omitempty"` // Joined from usuarios
	Origen        string          `json:"origen"`
	Referencia    string          `json:"referencia,omitempty"`
	Notas         string          `json:"notas,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentTotals are the ledger aggregates of one event
type PaymentTotals struct {
	Pagado      decimal.Decimal `json:"total_pagado"`
	Reembolsado decimal.Decimal `json:"total_reembolsos"`
}

// NetPaid is paid minus refunded
func (t PaymentTotals) NetPaid() decimal.Decimal {
	return t.Pagado.Sub(t.Reembolsado)
}

// CreatePaymentRequest registers a payment or refund
type CreatePaymentRequest struct {
	Tipo       PaymentType     `json:"tipo"` // defaults to pago
	Monto      decimal.Decimal `json:"monto"`
	Metodo     string          `json:"metodo"`
	FechaPago  string          `json:"fecha_pago"` // YYYY-MM-DD, defaults to today
	Origen     string          `json:"origen"`     // defaults to web
	Referencia string          `json:"referencia"`
	Notas      string          `json:"notas"`
}

// PaymentResult is returned after registering a payment
type PaymentResult struct {
	Pago  *Payment `json:"pago"`
	Event *Event   `json:"evento"`
	// AutoAvanzado is true when the payment moved the event to en_proceso
	AutoAvanzado     bool            `json:"auto_avanzado"`
	AutoAvanceError  string          `json:"auto_avance_error,omitempty"`
	AutoAvanceFaltas []StockShortage `json:"auto_avance_detalles,omitempty"`
}
