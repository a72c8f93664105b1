package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memArchive struct {
	keys []string
	err  error
}

func (a *memArchive) Put(_ context.Context, key, contentType string, data []byte) error {
	if a.err != nil {
		return a.err
	}
	if contentType != "application/pdf" || len(data) == 0 {
		return fmt.Errorf("unexpected document %s", key)
	}
	a.keys = append(a.keys, key)
	return nil
}

func TestQuoteAndReceiptPDF(t *testing.T) {
	e := newEnv(t)
	archive := &memArchive{}
	reports := NewReportService(e.events, e.payments, archive, "Salón Jardín", "https://salon.mx/verificar/", discard)
	sillas := e.product("Silla Tiffany", 50, "35")
	planID := e.plan("12000", []models.PlanProductInput{{ProductoID: sillas, Cantidad: 40}}, "Mesa de dulces")
	d := e.createEvent(t, &planID)
	ctx := context.Background()

	quote, err := reports.QuotePDF(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(quote, []byte("%PDF")))

	res, err := e.pay(d.ID, models.PagoTipoPago, "3000")
	require.NoError(t, err)
	receipt, err := reports.ReceiptPDF(ctx, res.Pago.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(receipt, []byte("%PDF")))

	require.Len(t, archive.keys, 2)
	assert.True(t, strings.HasPrefix(archive.keys[0], fmt.Sprintf("cotizaciones/%d/", d.ID)))
	assert.True(t, strings.HasPrefix(archive.keys[1], fmt.Sprintf("recibos/%d/pago_%d_", d.ID, res.Pago.ID)))

	_, err = reports.QuotePDF(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestArchiveFailureStillServesDocument(t *testing.T) {
	e := newEnv(t)
	reports := NewReportService(e.events, e.payments, &memArchive{err: errors.New("bucket caído")}, "", "", discard)
	planID := e.plan("500", nil)
	d := e.createEvent(t, &planID)

	quote, err := reports.QuotePDF(context.Background(), d.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, quote)
}

func TestEventsCSV(t *testing.T) {
	e := newEnv(t)
	reports := NewReportService(e.events, e.payments, nil, "", "", discard)
	planID := e.plan("1500", nil)
	d := e.createEvent(t, &planID)
	_, err := e.pay(d.ID, models.PagoTipoPago, "500")
	require.NoError(t, err)

	data, err := reports.EventsCSV(context.Background(), nil, nil)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Saldo", rows[0][9])
	assert.Equal(t, fmt.Sprint(d.ID), rows[1][0])
	assert.Equal(t, string(models.EstadoEnProceso), rows[1][4])
	assert.Equal(t, "1500.00", rows[1][6])
	assert.Equal(t, "500.00", rows[1][7])
	assert.Equal(t, "1000.00", rows[1][9])
}
