package whatsapp

import (
	"fmt"
	"strings"

	"eventos-backend/internal/models"
	"eventos-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// CountryCode is prefixed to 10-digit national numbers
const CountryCode = "52"

// FormatPhoneNumber strips everything but digits and normalizes Mexican
// numbers to 52 + 10 digits. The legacy mobile "1" after 52 is dropped.
func FormatPhoneNumber(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	cleaned := b.String()

	switch {
	case len(cleaned) == 10:
		return CountryCode + cleaned
	case len(cleaned) == 13 && strings.HasPrefix(cleaned, CountryCode+"1"):
		return CountryCode + cleaned[3:]
	default:
		return cleaned
	}
}

// NationalNumber returns the number without the country code
func NationalNumber(formatted string) string {
	if len(formatted) == 12 && strings.HasPrefix(formatted, CountryCode) {
		return formatted[2:]
	}
	return formatted
}

var stateLabels = map[models.EventState]string{
	models.EstadoCotizacion: "cotización",
	models.EstadoConfirmado: "confirmado",
	models.EstadoEnProceso:  "en proceso",
	models.EstadoCompletado: "completado",
	models.EstadoCancelado:  "cancelado",
}

// StateLabel is the client-facing name of a state
func StateLabel(s models.EventState) string {
	if l, ok := stateLabels[s]; ok {
		return l
	}
	return string(s)
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Render builds the message for a notice. ok is false for notice kinds that
// are not sent to clients.
func Render(n models.Notice) (m Message, ok bool) {
	cliente := n.ClienteNombre
	if cliente == "" {
		cliente = "cliente"
	}
	fecha := n.FechaEvento.In(timeutil.Local).Format("02/01/2006")

	switch n.Tipo {
	case models.AvisoEventoCreado:
		m.Params = []string{cliente, n.EventoNombre, fecha, money(n.Saldo)}
		m.Text = fmt.Sprintf("Hola %s, registramos su evento \"%s\" para el %s. Total a cubrir: %s.",
			cliente, n.EventoNombre, fecha, money(n.Saldo))
	case models.AvisoEstadoCambiado:
		m.Params = []string{cliente, n.EventoNombre, StateLabel(n.Estado)}
		m.Text = fmt.Sprintf("Hola %s, su evento \"%s\" ahora está %s.",
			cliente, n.EventoNombre, StateLabel(n.Estado))
	case models.AvisoPagoRegistrado:
		m.Params = []string{cliente, money(n.Monto), n.EventoNombre, money(n.Saldo)}
		m.Text = fmt.Sprintf("Hola %s, recibimos su pago de %s para \"%s\". Saldo pendiente: %s.",
			cliente, money(n.Monto), n.EventoNombre, money(n.Saldo))
	case models.AvisoReembolso:
		m.Params = []string{cliente, money(n.Monto), n.EventoNombre}
		m.Text = fmt.Sprintf("Hola %s, registramos un reembolso de %s para \"%s\".",
			cliente, money(n.Monto), n.EventoNombre)
	default:
		return Message{}, false
	}

	m.Template = n.Tipo
	m.Phone = n.ClienteTelefono
	m.Reference = fmt.Sprintf("evento_%d", n.EventoID)
	return m, true
}
