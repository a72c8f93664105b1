package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeySecret = "rzp_test_secret"

type fakeGateway struct {
	calls  int
	amount int64
	err    error
}

func (g *fakeGateway) CreateOrder(amount int64, _ string, _ string, _ map[string]interface{}) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.calls++
	g.amount = amount
	return fmt.Sprintf("order_%d", g.calls), nil
}

func sign(orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(testKeySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func newOnline(e *env, gw OrderGateway) *RazorpayService {
	return NewRazorpayService(e.payments, gw, "rzp_test_key", testKeySecret, "", discard)
}

func TestCreateOrderDefaultsToSaldo(t *testing.T) {
	e := newEnv(t)
	gw := &fakeGateway{}
	online := newOnline(e, gw)
	planID := e.plan("1234.56", nil)
	d := e.createEvent(t, &planID)

	resp, err := online.CreateOrder(context.Background(), d.ID, models.CreateOnlineOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, "order_1", resp.OrderID)
	assert.EqualValues(t, 123456, resp.Amount)
	assert.Equal(t, "MXN", resp.Currency)
	assert.Equal(t, "rzp_test_key", resp.KeyID)

	o := e.order(t, "order_1")
	assert.Equal(t, models.OrdenCreada, o.Estado)
	assert.Equal(t, "1234.56", o.Monto.StringFixed(2))
}

func TestCreateOrderRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	planID := e.plan("100", nil)
	d := e.createEvent(t, &planID)

	disabled := NewRazorpayService(e.payments, nil, "", "", "", discard)
	assert.False(t, disabled.IsEnabled())
	_, err := disabled.CreateOrder(ctx, d.ID, models.CreateOnlineOrderRequest{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	online := newOnline(e, &fakeGateway{})
	_, err = online.CreateOrder(ctx, d.ID, models.CreateOnlineOrderRequest{Monto: dec("100.01")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = online.CreateOrder(ctx, 999, models.CreateOnlineOrderRequest{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	down := newOnline(e, &fakeGateway{err: errors.New("timeout")})
	_, err = down.CreateOrder(ctx, d.ID, models.CreateOnlineOrderRequest{})
	assert.True(t, apperr.Is(err, apperr.KindInfrastructure))
}

func TestVerifyRecordsPaymentOnce(t *testing.T) {
	e := newEnv(t)
	online := newOnline(e, &fakeGateway{})
	planID := e.plan("800", nil)
	d := e.createEvent(t, &planID)
	ctx := context.Background()

	resp, err := online.CreateOrder(ctx, d.ID, models.CreateOnlineOrderRequest{Monto: dec("300")})
	require.NoError(t, err)
	req := models.VerifyOnlinePaymentRequest{
		RazorpayOrderID:   resp.OrderID,
		RazorpayPaymentID: "pay_abc",
		RazorpaySignature: sign(resp.OrderID, "pay_abc"),
	}

	first, err := online.Verify(ctx, nil, req)
	require.NoError(t, err)
	assert.Equal(t, models.OrigenEnLinea, first.Pago.Origen)
	assert.Equal(t, models.MetodoEnLinea, first.Pago.Metodo)
	assert.Equal(t, "pay_abc", first.Pago.Referencia)
	assert.True(t, first.AutoAvanzado)
	assert.Equal(t, "500.00", first.Event.Saldo.StringFixed(2))

	again, err := online.Verify(ctx, nil, req)
	require.NoError(t, err)
	assert.Equal(t, first.Pago.ID, again.Pago.ID)
	assert.False(t, again.AutoAvanzado)

	pagos, err := e.payments.List(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, pagos, 1)

	o := e.order(t, resp.OrderID)
	assert.Equal(t, models.OrdenPagada, o.Estado)
	require.NotNil(t, o.PagoID)
	assert.Equal(t, first.Pago.ID, *o.PagoID)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	e := newEnv(t)
	online := newOnline(e, &fakeGateway{})
	planID := e.plan("800", nil)
	d := e.createEvent(t, &planID)
	ctx := context.Background()

	resp, err := online.CreateOrder(ctx, d.ID, models.CreateOnlineOrderRequest{})
	require.NoError(t, err)

	_, err = online.Verify(ctx, nil, models.VerifyOnlinePaymentRequest{
		RazorpayOrderID:   resp.OrderID,
		RazorpayPaymentID: "pay_abc",
		RazorpaySignature: sign(resp.OrderID, "pay_other"),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	o := e.order(t, resp.OrderID)
	assert.Equal(t, models.OrdenFallida, o.Estado)
	assert.Nil(t, o.PagoID)

	pagos, err := e.payments.List(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, pagos)

	_, err = online.Verify(ctx, nil, models.VerifyOnlinePaymentRequest{RazorpayOrderID: resp.OrderID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestVerifyOrderExceedingSaldo(t *testing.T) {
	e := newEnv(t)
	online := newOnline(e, &fakeGateway{})
	planID := e.plan("800", nil)
	d := e.createEvent(t, &planID)
	ctx := context.Background()

	resp, err := online.CreateOrder(ctx, d.ID, models.CreateOnlineOrderRequest{})
	require.NoError(t, err)
	_, err = e.pay(d.ID, models.PagoTipoPago, "800")
	require.NoError(t, err)

	_, err = online.Verify(ctx, nil, models.VerifyOnlinePaymentRequest{
		RazorpayOrderID:   resp.OrderID,
		RazorpayPaymentID: "pay_late",
		RazorpaySignature: sign(resp.OrderID, "pay_late"),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, models.OrdenFallida, e.order(t, resp.OrderID).Estado)
}

func TestMinorUnits(t *testing.T) {
	assert.EqualValues(t, 150050, minorUnits(dec("1500.50")))
	assert.EqualValues(t, 1, minorUnits(dec("0.01")))
}
