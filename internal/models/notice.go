package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Notice kinds sent to the notification sinks
const (
	AvisoEventoCreado    = "evento_creado"
	AvisoEstadoCambiado  = "estado_cambiado"
	AvisoPagoRegistrado  = "pago_registrado"
	AvisoReembolso       = "reembolso_registrado"
	AvisoEventoEliminado = "evento_eliminado"
)

// Notice is a committed lifecycle fact published after the write
type Notice struct {
	Tipo            string          `json:"tipo"`
	EventoID        int             `json:"evento_id"`
	EventoNombre    string          `json:"evento_nombre"`
	ClienteID       int             `json:"cliente_id"`
	ClienteNombre   string          `json:"cliente_nombre,omitempty"`
	ClienteTelefono string          `json:"-"`
	FechaEvento     time.Time       `json:"fecha_evento"`
	EstadoAnterior  EventState      `json:"estado_anterior,omitempty"`
	Estado          EventState      `json:"estado"`
	Monto           decimal.Decimal `json:"monto,omitempty"`
	Saldo           decimal.Decimal `json:"saldo"`
	OcurridoAt      time.Time       `json:"ocurrido_at"`
}

// NewNotice builds a notice from the event's committed state
func NewNotice(tipo string, e *Event, at time.Time) Notice {
	return Notice{
		Tipo:            tipo,
		EventoID:        e.ID,
		EventoNombre:    e.Nombre,
		ClienteID:       e.ClienteID,
		ClienteNombre:   e.ClienteNombre,
		ClienteTelefono: e.ClienteTelefono,
		FechaEvento:     e.FechaEvento,
		Estado:          e.Estado,
		Saldo:           e.Saldo,
		OcurridoAt:      at,
	}
}
