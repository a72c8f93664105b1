package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventState is the lifecycle state of an event
type EventState string

const (
	EstadoCotizacion EventState = "cotizacion"
	EstadoConfirmado EventState = "confirmado"
	EstadoEnProceso  EventState = "en_proceso"
	EstadoCompletado EventState = "completado"
	EstadoCancelado  EventState = "cancelado"
)

// AllEventStates lists every state in lifecycle order
var AllEventStates = []EventState{
	EstadoCotizacion,
	EstadoConfirmado,
	EstadoEnProceso,
	EstadoCompletado,
	EstadoCancelado,
}

// IsValid reports whether s is a known state
func (s EventState) IsValid() bool {
	for _, st := range AllEventStates {
		if s == st {
			return true
		}
	}
	return false
}

// CommitsStock reports whether an event in this state holds its stock
func (s EventState) CommitsStock() bool {
	return s == EstadoConfirmado || s == EstadoEnProceso
}

// Event is one booked occasion
type Event struct {
	ID                     int             `json:"id"`
	ClienteID              int             `json:"cliente_id"`
	ClienteNombre          string          `json:"cliente_nombre,omitempty"` // Joined from clientes
	ClienteTelefono        string          `json:"cliente_telefono,omitempty"`
	CoordinadorID          *int            `json:"coordinador_id,omitempty"`
	SalonID                *int            `json:"salon_id,omitempty"`
	PlanID                 *int            `json:"plan_id,omitempty"`
	Nombre                 string          `json:"nombre"`
	FechaEvento            time.Time       `json:"fecha_evento"`
	HoraInicio             string          `json:"hora_inicio"`
	HoraFin                string          `json:"hora_fin"`
	CantidadInvitados      int             `json:"cantidad_invitados"`
	Estado                 EventState      `json:"estado"`
	Total                  decimal.Decimal `json:"total"`
	PlanPrecioBase         decimal.Decimal `json:"plan_precio_base"` // Plan base price at booking time
	Calificacion           *int            `json:"calificacion,omitempty"`
	ComentarioCalificacion string          `json:"comentario_calificacion,omitempty"`
	Observaciones          string          `json:"observaciones"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`

	// Derived on read from the payment ledger, never stored
	TotalPagado     decimal.Decimal `json:"total_pagado"`
	TotalReembolsos decimal.Decimal `json:"total_reembolsos"`
	Saldo           decimal.Decimal `json:"saldo"`
}

// ApplyTotals fills the derived payment fields
func (e *Event) ApplyTotals(t PaymentTotals) {
	e.TotalPagado = t.Pagado
	e.TotalReembolsos = t.Reembolsado
	e.Saldo = Saldo(e.Total, t)
}

// Saldo is the balance due: total - paid + refunded
func Saldo(total decimal.Decimal, t PaymentTotals) decimal.Decimal {
	return total.Sub(t.Pagado).Add(t.Reembolsado)
}

// EventProductLine is one extra product attached to an event
type EventProductLine struct {
	ID             int             `json:"id"`
	EventoID       int             `json:"evento_id"`
	ProductoID     int             `json:"producto_id"`
	ProductoNombre string          `json:"producto_nombre,omitempty"` // Joined from productos
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Subtotal returns cantidad * precio_unitario
func (l EventProductLine) Subtotal() decimal.Decimal {
	return l.PrecioUnitario.Mul(decimal.NewFromInt(int64(l.Cantidad)))
}

// ChecklistItem is one service task of an event
type ChecklistItem struct {
	ID             int       `json:"id"`
	EventoID       int       `json:"evento_id"`
	PlanServicioID *int      `json:"plan_servicio_id,omitempty"` // nil for personalized items and removed templates
	OrigenPlan     bool      `json:"origen_plan"`                // Copied from a plan template, survives template removal
	Nombre         string    `json:"nombre"`
	Orden          int       `json:"orden"`
	Completado     bool      `json:"completado"`
	Descartado     bool      `json:"descartado"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsPersonalized reports whether the item was added by hand
func (c ChecklistItem) IsPersonalized() bool {
	return !c.OrigenPlan
}

// Checklist is an event's items plus their progress percentage
type Checklist struct {
	Items    []ChecklistItem `json:"items"`
	Progreso float64         `json:"progreso"`
}

// EventDetail is the full read model of one event
type EventDetail struct {
	Event
	Productos []EventProductLine `json:"productos"`
	Paquete   []PlanProduct      `json:"paquete"` // Plan products frozen at booking
	Servicios Checklist          `json:"servicios"`
	Pagos     []Payment          `json:"pagos"`
}

// EventFilter narrows event listings
type EventFilter struct {
	Estado    EventState
	ClienteID int
	Desde     *time.Time
	Hasta     *time.Time
	Limit     int
	Offset    int
}

// CreateEventRequest is the booking payload
type CreateEventRequest struct {
	ClienteID         int    `json:"cliente_id"`
	CoordinadorID     *int   `json:"coordinador_id"`
	SalonID           *int   `json:"salon_id"`
	PlanID            *int   `json:"plan_id"`
	Nombre            string `json:"nombre"`
	FechaEvento       string `json:"fecha_evento"` // YYYY-MM-DD
	HoraInicio        string `json:"hora_inicio"`  // HH:MM
	HoraFin           string `json:"hora_fin"`
	CantidadInvitados int    `json:"cantidad_invitados"`
	Observaciones     string `json:"observaciones"`
}

// ChangeStateRequest asks for a lifecycle transition
type ChangeStateRequest struct {
	Estado EventState `json:"estado"`
}

// AttachProductRequest attaches or replaces a product line
type AttachProductRequest struct {
	ProductoID     int              `json:"producto_id"`
	Cantidad       int              `json:"cantidad"`
	PrecioUnitario *decimal.Decimal `json:"precio_unitario"` // defaults to catalog price
}

// DetachProductRequest carries the optional note logged on detach
type DetachProductRequest struct {
	Nota string `json:"nota"`
}

// RateEventRequest records the client's rating of a finished event
type RateEventRequest struct {
	Calificacion int    `json:"calificacion"`
	Comentario   string `json:"comentario"`
}

// AddChecklistItemRequest adds a personalized item
type AddChecklistItemRequest struct {
	Nombre string `json:"nombre"`
	Orden  *int   `json:"orden"`
}

// UpdateChecklistItemRequest patches an item; nil fields are left alone
type UpdateChecklistItemRequest struct {
	Completado *bool   `json:"completado"`
	Descartado *bool   `json:"descartado"`
	Nombre     *string `json:"nombre"`
}
