package services

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"eventos-backend/internal/models"
	"eventos-backend/internal/store"
	"eventos-backend/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var discard = log.New(io.Discard, "", 0)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Tipo
	}
	return out
}

func (r *recordingNotifier) last() models.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[len(r.notices)-1]
}

type env struct {
	store    *memstore.Store
	events   *EventService
	payments *PaymentService
	notices  *recordingNotifier
	clientID int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	n := &recordingNotifier{}
	events := NewEventService(st, NewStockLedger(discard), NewPlanComposer(), NewPaymentLedger(), n, discard)
	payments := NewPaymentService(events, nil, discard)
	payments.DuplicateWindow = 0
	return &env{
		store:    st,
		events:   events,
		payments: payments,
		notices:  n,
		clientID: st.AddClient(models.Client{Nombre: "Ana López", Telefono: "5512345678"}),
	}
}

func (e *env) product(name string, stock int, price string) int {
	return e.store.AddProduct(models.Product{
		Nombre:        name,
		Precio:        dec(price),
		Stock:         stock,
		ControlaStock: true,
		Unidad:        "pieza",
	})
}

func (e *env) plan(price string, products []models.PlanProductInput, services ...string) int {
	return e.store.AddPlan(models.Plan{Nombre: "Plan " + price, PrecioBase: dec(price)}, products, services)
}

func (e *env) createEvent(t *testing.T, planID *int) *models.EventDetail {
	t.Helper()
	d, err := e.events.Create(context.Background(), models.CreateEventRequest{
		ClienteID:         e.clientID,
		PlanID:            planID,
		Nombre:            "Boda Pérez",
		FechaEvento:       "2026-12-12",
		HoraInicio:        "18:00",
		HoraFin:           "23:30",
		CantidadInvitados: 120,
	})
	require.NoError(t, err)
	return d
}

func (e *env) attach(t *testing.T, eventID, productID, qty int) *models.EventDetail {
	t.Helper()
	d, err := e.events.AttachProduct(context.Background(), eventID, models.AttachProductRequest{ProductoID: productID, Cantidad: qty})
	require.NoError(t, err)
	return d
}

func (e *env) setState(t *testing.T, eventID int, to models.EventState) *models.Event {
	t.Helper()
	ev, err := e.events.ChangeState(context.Background(), eventID, models.ChangeStateRequest{Estado: to})
	require.NoError(t, err)
	return ev
}

func (e *env) pay(eventID int, tipo models.PaymentType, amount string) (*models.PaymentResult, error) {
	return e.payments.Register(context.Background(), eventID, nil, models.CreatePaymentRequest{
		Tipo:   tipo,
		Monto:  dec(amount),
		Metodo: models.MetodoEfectivo,
	})
}

func (e *env) stock(t *testing.T, productID int) int {
	t.Helper()
	p, ok := e.store.Product(productID)
	require.True(t, ok)
	return p.Stock
}

func (e *env) state(t *testing.T, eventID int) models.EventState {
	t.Helper()
	ev, ok := e.store.Event(eventID)
	require.True(t, ok)
	return ev.Estado
}

func (e *env) order(t *testing.T, orderID string) *models.OnlinePayment {
	t.Helper()
	var o *models.OnlinePayment
	require.NoError(t, e.store.InTx(context.Background(), func(tx store.Tx) error {
		var err error
		o, err = tx.GetOnlineOrder(context.Background(), orderID)
		return err
	}))
	return o
}

func intPtr(v int) *int { return &v }
