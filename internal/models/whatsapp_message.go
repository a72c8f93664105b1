package models

import "time"

// WhatsAppMessage is one outbound client message and its delivery state
type WhatsAppMessage struct {
	ID          int        `json:"id"`
	EventoID    *int       `json:"evento_id,omitempty"`
	ClienteID   *int       `json:"cliente_id,omitempty"`
	Telefono    string     `json:"telefono"`
	Tipo        string     `json:"tipo"`
	Contenido   string     `json:"contenido"`
	Plantilla   string     `json:"plantilla,omitempty"`
	Parametros  []string   `json:"parametros,omitempty"` // template body values, in order
	Estado      string     `json:"estado"`
	Intentos    int        `json:"intentos"`
	UltimoError string     `json:"ultimo_error,omitempty"`
	Proveedor   string     `json:"proveedor,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	EnviadoAt   *time.Time `json:"enviado_at,omitempty"`
}

// Message statuses
const (
	MensajePendiente = "pendiente"
	MensajeEnviado   = "enviado"
	MensajeFallido   = "fallido"
)

// WhatsAppMessageFilter narrows message listings
type WhatsAppMessageFilter struct {
	Estado   string
	EventoID int
	Limit    int
}
