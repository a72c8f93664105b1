package whatsapp

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	sent []Message
	err  error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Send(_ context.Context, m Message) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, m)
	return nil
}

type memMessages struct {
	rows map[int]*models.WhatsAppMessage
	next int
}

func newMemMessages() *memMessages {
	return &memMessages{rows: make(map[int]*models.WhatsAppMessage)}
}

func (s *memMessages) CreateMessage(_ context.Context, m *models.WhatsAppMessage) error {
	s.next++
	m.ID = s.next
	cp := *m
	s.rows[m.ID] = &cp
	return nil
}

func (s *memMessages) GetMessage(_ context.Context, id int) (*models.WhatsAppMessage, error) {
	m, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("mensaje", id)
	}
	cp := *m
	return &cp, nil
}

func (s *memMessages) MarkSent(_ context.Context, id int) error {
	s.rows[id].Estado = models.MensajeEnviado
	s.rows[id].Intentos++
	return nil
}

func (s *memMessages) MarkFailed(_ context.Context, id int, reason string) error {
	s.rows[id].Estado = models.MensajeFallido
	s.rows[id].Intentos++
	s.rows[id].UltimoError = reason
	return nil
}

func (s *memMessages) ListRetryable(_ context.Context, maxAttempts, _ int) ([]models.WhatsAppMessage, error) {
	var out []models.WhatsAppMessage
	for id := 1; id <= s.next; id++ {
		if m := s.rows[id]; m.Estado == models.MensajeFallido && m.Intentos < maxAttempts {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memMessages) ListMessages(context.Context, models.WhatsAppMessageFilter) ([]models.WhatsAppMessage, error) {
	return nil, nil
}

var quiet = log.New(io.Discard, "", 0)

func notice() models.Notice {
	return models.Notice{
		Tipo:            models.AvisoEstadoCambiado,
		EventoID:        3,
		ClienteID:       9,
		EventoNombre:    "Boda",
		ClienteNombre:   "Ana",
		ClienteTelefono: "55 1234 5678",
		Estado:          models.EstadoConfirmado,
	}
}

func TestNotifySendsAndLogs(t *testing.T) {
	p := &fakeProvider{}
	store := newMemMessages()
	d := NewDispatcher(p, store, 3, quiet)

	require.NoError(t, d.Notify(context.Background(), notice()))
	require.Len(t, p.sent, 1)
	row := store.rows[1]
	assert.Equal(t, models.MensajeEnviado, row.Estado)
	assert.Equal(t, "525512345678", row.Telefono)
	assert.Equal(t, "fake", row.Proveedor)
	assert.Equal(t, []string{"Ana", "Boda", "confirmado"}, row.Parametros)
}

func TestNotifySkipsWithoutPhone(t *testing.T) {
	p := &fakeProvider{}
	store := newMemMessages()
	d := NewDispatcher(p, store, 3, quiet)

	n := notice()
	n.ClienteTelefono = ""
	require.NoError(t, d.Notify(context.Background(), n))
	assert.Empty(t, store.rows)
	assert.Empty(t, p.sent)
}

func TestFailedMessagesAreRetried(t *testing.T) {
	p := &fakeProvider{err: errors.New("503")}
	store := newMemMessages()
	d := NewDispatcher(p, store, 2, quiet)
	ctx := context.Background()

	assert.Error(t, d.Notify(ctx, notice()))
	assert.Equal(t, models.MensajeFallido, store.rows[1].Estado)
	assert.Equal(t, "503", store.rows[1].UltimoError)

	p.err = nil
	sent, err := d.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, models.MensajeEnviado, store.rows[1].Estado)
	assert.Equal(t, "evento_3", p.sent[0].Reference)

	_, err = d.Retry(ctx, 1)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "already sent")
}

func TestRetryStopsAtLimit(t *testing.T) {
	p := &fakeProvider{err: errors.New("timeout")}
	store := newMemMessages()
	d := NewDispatcher(p, store, 2, quiet)
	ctx := context.Background()

	_ = d.Notify(ctx, notice())
	_, _ = d.RetryFailed(ctx)
	sent, err := d.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 2, store.rows[1].Intentos)
}

func TestDisabledDispatcher(t *testing.T) {
	d := NewDispatcher(nil, newMemMessages(), 3, quiet)
	assert.False(t, d.Enabled())
	assert.NoError(t, d.Notify(context.Background(), notice()))

	_, err := d.Retry(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewProvider(t *testing.T) {
	assert.Nil(t, NewProvider(Config{}))
	assert.Nil(t, NewProvider(Config{APIKey: "k"}), "cloud needs a phone number id")
	assert.Equal(t, "cloud", NewProvider(Config{APIKey: "k", PhoneNumberID: "123"}).Name())
	assert.Equal(t, "aisensy", NewProvider(Config{APIKey: "k", Provider: "aisensy"}).Name())
	assert.Equal(t, "interakt", NewProvider(Config{APIKey: "k", Provider: "interakt"}).Name())
	assert.Nil(t, NewProvider(Config{APIKey: "k", Provider: "twilio"}))
}
