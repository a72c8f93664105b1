package whatsapp

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/metrics"
	"eventos-backend/internal/models"
)

// MessageStore persists every outbound message and its attempts
type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.WhatsAppMessage) error
	GetMessage(ctx context.Context, id int) (*models.WhatsAppMessage, error)
	MarkSent(ctx context.Context, id int) error
	MarkFailed(ctx context.Context, id int, reason string) error
	ListRetryable(ctx context.Context, maxAttempts, limit int) ([]models.WhatsAppMessage, error)
	ListMessages(ctx context.Context, f models.WhatsAppMessageFilter) ([]models.WhatsAppMessage, error)
}

// ErrDisabled is returned by manual operations when no provider is configured
var ErrDisabled = errors.New("whatsapp no está configurado")

// Dispatcher sends client notices over WhatsApp and keeps the delivery log.
// It is a notification sink: a failed send is recorded for retry, never
// reported back to the operation that produced the notice.
type Dispatcher struct {
	provider    Provider
	store       MessageStore
	maxAttempts int
	logger      *log.Logger
}

func NewDispatcher(provider Provider, store MessageStore, maxAttempts int, logger *log.Logger) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		provider:    provider,
		store:       store,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Enabled reports whether a provider is configured
func (d *Dispatcher) Enabled() bool {
	return d.provider != nil
}

// Notify renders the notice and sends it to the event's client
func (d *Dispatcher) Notify(ctx context.Context, n models.Notice) error {
	if d.provider == nil {
		return nil
	}
	msg, ok := Render(n)
	if !ok || msg.Phone == "" {
		return nil
	}

	eventID, clientID := n.EventoID, n.ClienteID
	row := &models.WhatsAppMessage{
		EventoID:   &eventID,
		ClienteID:  &clientID,
		Telefono:   FormatPhoneNumber(msg.Phone),
		Tipo:       n.Tipo,
		Contenido:  msg.Text,
		Plantilla:  msg.Template,
		Parametros: msg.Params,
		Estado:     models.MensajePendiente,
		Proveedor:  d.provider.Name(),
	}
	if err := d.store.CreateMessage(ctx, row); err != nil {
		return err
	}
	return d.attempt(ctx, row, msg)
}

// Retry resends one failed message on demand
func (d *Dispatcher) Retry(ctx context.Context, id int) (*models.WhatsAppMessage, error) {
	if d.provider == nil {
		return nil, apperr.WrapValidation(ErrDisabled, ErrDisabled.Error())
	}
	row, err := d.store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.Estado == models.MensajeEnviado {
		return nil, apperr.Validation("el mensaje ya fue enviado")
	}
	if err := d.attempt(ctx, row, messageFromRow(row)); err != nil {
		d.logger.Printf("[WhatsApp] Reintento manual del mensaje %d falló: %v", id, err)
	}
	return d.store.GetMessage(ctx, id)
}

// RetryFailed resends failed messages still below the attempt limit
func (d *Dispatcher) RetryFailed(ctx context.Context) (int, error) {
	if d.provider == nil {
		return 0, nil
	}
	rows, err := d.store.ListRetryable(ctx, d.maxAttempts, 50)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range rows {
		if err := d.attempt(ctx, &rows[i], messageFromRow(&rows[i])); err == nil {
			sent++
		}
	}
	if len(rows) > 0 {
		d.logger.Printf("[WhatsApp] Reintentos: %d de %d enviados", sent, len(rows))
	}
	return sent, nil
}

// RunRetryLoop retries failed messages every interval until ctx is done
func (d *Dispatcher) RunRetryLoop(ctx context.Context, interval time.Duration) {
	if d.provider == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.RetryFailed(ctx); err != nil {
				d.logger.Printf("[WhatsApp] Error en barrido de reintentos: %v", err)
			}
		}
	}
}

func (d *Dispatcher) List(ctx context.Context, f models.WhatsAppMessageFilter) ([]models.WhatsAppMessage, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return d.store.ListMessages(ctx, f)
}

func (d *Dispatcher) attempt(ctx context.Context, row *models.WhatsAppMessage, msg Message) error {
	sendErr := d.provider.Send(ctx, msg)
	metrics.WhatsAppMessages.WithLabelValues(row.Tipo, metrics.Result(sendErr)).Inc()

	if sendErr != nil {
		if err := d.store.MarkFailed(ctx, row.ID, sendErr.Error()); err != nil {
			d.logger.Printf("[WhatsApp] No se registró el fallo del mensaje %d: %v", row.ID, err)
		}
		return sendErr
	}
	if err := d.store.MarkSent(ctx, row.ID); err != nil {
		d.logger.Printf("[WhatsApp] No se registró el envío del mensaje %d: %v", row.ID, err)
	}
	return nil
}

func messageFromRow(row *models.WhatsAppMessage) Message {
	m := Message{
		Phone:    row.Telefono,
		Text:     row.Contenido,
		Template: row.Plantilla,
		Params:   row.Parametros,
	}
	if row.EventoID != nil {
		m.Reference = "evento_" + strconv.Itoa(*row.EventoID)
	}
	return m
}
