package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
	"eventos-backend/internal/notify"
	"eventos-backend/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCopiesPlan(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 50, "15")
	planID := e.plan("8000", []models.PlanProductInput{{ProductoID: sillas, Cantidad: 40}}, "Decoración", "Banquete", "Música")

	d := e.createEvent(t, &planID)

	assert.Equal(t, models.EstadoCotizacion, d.Estado)
	assert.Equal(t, "8000.00", d.Total.StringFixed(2))
	assert.Equal(t, "8000.00", d.Saldo.StringFixed(2))
	require.Len(t, d.Servicios.Items, 3)
	assert.Equal(t, "Decoración", d.Servicios.Items[0].Nombre)
	assert.False(t, d.Servicios.Items[0].IsPersonalized())
	assert.Zero(t, d.Servicios.Progreso)
	assert.Empty(t, d.Productos)
	assert.Equal(t, 50, e.stock(t, sillas), "a quote holds no stock")
	assert.Equal(t, []string{models.AvisoEventoCreado}, e.notices.kinds())
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.events.Create(ctx, models.CreateEventRequest{ClienteID: e.clientID, Nombre: "X", FechaEvento: "12/12/2026"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = e.events.Create(ctx, models.CreateEventRequest{ClienteID: e.clientID, Nombre: "X", FechaEvento: "2026-12-12", HoraInicio: "7pm"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = e.events.Create(ctx, models.CreateEventRequest{ClienteID: 999, Nombre: "X", FechaEvento: "2026-12-12"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	inactive := e.store.AddPlan(models.Plan{Nombre: "Viejo", PrecioBase: dec("100"), Status: models.StatusInactivo}, nil, nil)
	_, err = e.events.Create(ctx, models.CreateEventRequest{ClienteID: e.clientID, PlanID: &inactive, Nombre: "X", FechaEvento: "2026-12-12"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestConfirmCommitsAndCancelReleases(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 10, "15")
	mesas := e.product("Mesa", 5, "80")
	planID := e.plan("1000", []models.PlanProductInput{{ProductoID: sillas, Cantidad: 4}})
	d := e.createEvent(t, &planID)
	e.attach(t, d.ID, sillas, 2)
	e.attach(t, d.ID, mesas, 1)

	e.setState(t, d.ID, models.EstadoConfirmado)
	assert.Equal(t, 4, e.stock(t, sillas), "plan and line quantities are summed")
	assert.Equal(t, 4, e.stock(t, mesas))

	e.setState(t, d.ID, models.EstadoEnProceso)
	assert.Equal(t, 4, e.stock(t, sillas), "en_proceso keeps what confirmado committed")

	e.setState(t, d.ID, models.EstadoCancelado)
	assert.Equal(t, 10, e.stock(t, sillas))
	assert.Equal(t, 5, e.stock(t, mesas))

	e.setState(t, d.ID, models.EstadoCotizacion)
	e.setState(t, d.ID, models.EstadoConfirmado)
	assert.Equal(t, 4, e.stock(t, sillas))

	last := e.notices.last()
	assert.Equal(t, models.AvisoEstadoCambiado, last.Tipo)
	assert.Equal(t, models.EstadoCotizacion, last.EstadoAnterior)
	assert.Equal(t, models.EstadoConfirmado, last.Estado)
}

func TestShortageReportsEveryProduct(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 3, "15")
	mesas := e.product("Mesa", 1, "80")
	manteles := e.product("Mantel", 100, "20")
	planID := e.plan("1000", []models.PlanProductInput{
		{ProductoID: sillas, Cantidad: 5},
		{ProductoID: mesas, Cantidad: 2},
		{ProductoID: manteles, Cantidad: 10},
	})
	d := e.createEvent(t, &planID)

	_, err := e.events.ChangeState(context.Background(), d.ID, models.ChangeStateRequest{Estado: models.EstadoConfirmado})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Len(t, ae.Details, 2)
	assert.Equal(t, sillas, ae.Details[0].ProductoID)
	assert.Equal(t, 5, ae.Details[0].Requerido)
	assert.Equal(t, 3, ae.Details[0].Disponible)
	assert.Equal(t, mesas, ae.Details[1].ProductoID)

	assert.Equal(t, models.EstadoCotizacion, e.state(t, d.ID))
	assert.Equal(t, 100, e.stock(t, manteles), "nothing is written on a shortage")
	assert.Empty(t, e.store.Movements())
}

func TestConcurrentConfirmationsNeverOversell(t *testing.T) {
	const stock, events = 3, 8
	e := newEnv(t)
	sillas := e.product("Silla", stock, "15")

	ids := make([]int, events)
	for i := range ids {
		ids[i] = e.createEvent(t, nil).ID
		e.attach(t, ids[i], sillas, 1)
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := e.events.ChangeState(context.Background(), id, models.ChangeStateRequest{Estado: models.EstadoConfirmado})
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperr.Is(err, apperr.KindValidation):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.EqualValues(t, stock, succeeded.Load())
	assert.EqualValues(t, events-stock, rejected.Load())
	assert.Equal(t, 0, e.stock(t, sillas))
}

func TestAttachOnCommittedEventAppliesDelta(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 20, "15")
	d := e.createEvent(t, nil)
	e.setState(t, d.ID, models.EstadoConfirmado)

	e.attach(t, d.ID, sillas, 2)
	assert.Equal(t, 18, e.stock(t, sillas))

	e.attach(t, d.ID, sillas, 5)
	assert.Equal(t, 15, e.stock(t, sillas))

	e.attach(t, d.ID, sillas, 1)
	assert.Equal(t, 19, e.stock(t, sillas))

	_, err := e.events.AttachProduct(context.Background(), d.ID, models.AttachProductRequest{ProductoID: sillas, Cantidad: 30})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 19, e.stock(t, sillas))

	_, err = e.events.DetachProduct(context.Background(), d.ID, sillas, models.DetachProductRequest{Nota: "cliente trae sus sillas"})
	require.NoError(t, err)
	assert.Equal(t, 20, e.stock(t, sillas))
}

func TestAttachOnQuoteOnlyValidates(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 4, "15")
	d := e.createEvent(t, nil)

	e.attach(t, d.ID, sillas, 4)
	assert.Equal(t, 4, e.stock(t, sillas))

	_, err := e.events.AttachProduct(context.Background(), d.ID, models.AttachProductRequest{ProductoID: sillas, Cantidad: 5})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
}

func TestTotalFollowsLines(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 100, "15.50")
	mesas := e.product("Mesa", 100, "80")
	planID := e.plan("1000", nil)
	d := e.createEvent(t, &planID)

	d = e.attach(t, d.ID, sillas, 10)
	assert.Equal(t, "1155.00", d.Total.StringFixed(2))

	custom := dec("70")
	d, err := e.events.AttachProduct(context.Background(), d.ID, models.AttachProductRequest{ProductoID: mesas, Cantidad: 2, PrecioUnitario: &custom})
	require.NoError(t, err)
	assert.Equal(t, "1295.00", d.Total.StringFixed(2))

	total, err := e.events.RecalculateTotal(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "1295.00", total.StringFixed(2))

	d, err = e.events.DetachProduct(context.Background(), d.ID, mesas, models.DetachProductRequest{})
	require.NoError(t, err)
	d, err = e.events.DetachProduct(context.Background(), d.ID, sillas, models.DetachProductRequest{})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", d.Total.StringFixed(2))
}

func TestPlanEditsDoNotReachBookedEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sillas := e.product("Silla", 50, "15")
	servilletas := e.product("Servilleta", 100, "5")
	planID := e.plan("1000", []models.PlanProductInput{{ProductoID: sillas, Cantidad: 10}})
	d := e.createEvent(t, &planID)
	require.Len(t, d.Paquete, 1)

	e.store.SetPlanPrice(planID, dec("5000"))
	e.store.SetPlanProducts(planID, []models.PlanProductInput{{ProductoID: sillas, Cantidad: 90}})

	d = e.attach(t, d.ID, servilletas, 1)
	assert.Equal(t, "1005.00", d.Total.StringFixed(2))
	assert.Equal(t, "1000.00", d.PlanPrecioBase.StringFixed(2))
	require.Len(t, d.Paquete, 1)
	assert.Equal(t, 10, d.Paquete[0].Cantidad)

	total, err := e.events.RecalculateTotal(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "1005.00", total.StringFixed(2))

	e.setState(t, d.ID, models.EstadoConfirmado)
	assert.Equal(t, 40, e.stock(t, sillas))
	assert.Equal(t, 99, e.stock(t, servilletas))

	later := e.createEvent(t, &planID)
	assert.Equal(t, "5000.00", later.Total.StringFixed(2))
	_, err = e.events.ChangeState(ctx, later.ID, models.ChangeStateRequest{Estado: models.EstadoConfirmado})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock, "new bookings take the edited bundle")
}

func TestTotalRoundTripWithoutPlan(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.product("Mantel", 20, "10")
	b := e.product("Centro de mesa", 20, "5")
	d := e.createEvent(t, nil)
	assert.True(t, d.Total.IsZero())
	assert.Empty(t, d.Paquete)

	e.attach(t, d.ID, a, 2)
	d = e.attach(t, d.ID, b, 1)
	assert.Equal(t, "25.00", d.Total.StringFixed(2))

	d, err := e.events.DetachProduct(ctx, d.ID, a, models.DetachProductRequest{})
	require.NoError(t, err)
	assert.Equal(t, "5.00", d.Total.StringFixed(2))

	d = e.attach(t, d.ID, a, 2)
	assert.Equal(t, "25.00", d.Total.StringFixed(2))
	assert.Equal(t, "25.00", d.Saldo.StringFixed(2))
}

func TestDetachUnknownLine(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 10, "15")
	d := e.createEvent(t, nil)

	_, err := e.events.DetachProduct(context.Background(), d.ID, sillas, models.DetachProductRequest{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCompletionGate(t *testing.T) {
	e := newEnv(t)
	planID := e.plan("500", nil)
	d := e.createEvent(t, &planID)

	_, err := e.pay(d.ID, models.PagoTipoPago, "200")
	require.NoError(t, err)
	assert.Equal(t, models.EstadoEnProceso, e.state(t, d.ID))

	_, err = e.events.ChangeState(context.Background(), d.ID, models.ChangeStateRequest{Estado: models.EstadoCompletado})
	assert.ErrorIs(t, err, ErrSaldoPending)

	_, err = e.pay(d.ID, models.PagoTipoPago, "300")
	require.NoError(t, err)
	ev := e.setState(t, d.ID, models.EstadoCompletado)
	assert.True(t, ev.Saldo.IsZero())

	_, err = e.events.ChangeState(context.Background(), d.ID, models.ChangeStateRequest{Estado: models.EstadoCancelado})
	assert.ErrorIs(t, err, ErrEventCompleted)

	sillas := e.product("Silla", 10, "15")
	_, err = e.events.AttachProduct(context.Background(), d.ID, models.AttachProductRequest{ProductoID: sillas, Cantidad: 1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDeleteNeedsFullRefund(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 10, "15")
	planID := e.plan("500", []models.PlanProductInput{{ProductoID: sillas, Cantidad: 6}})
	d := e.createEvent(t, &planID)

	_, err := e.pay(d.ID, models.PagoTipoPago, "100")
	require.NoError(t, err)
	assert.Equal(t, 4, e.stock(t, sillas))

	err = e.events.Delete(context.Background(), d.ID)
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, 1, ae.Count)

	_, err = e.pay(d.ID, models.PagoTipoReembolso, "100")
	require.NoError(t, err)
	require.NoError(t, e.events.Delete(context.Background(), d.ID))

	assert.Equal(t, 10, e.stock(t, sillas))
	_, err = e.events.Get(context.Background(), d.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, models.AvisoEventoEliminado, e.notices.last().Tipo)
}

func TestRateOnlyCompleted(t *testing.T) {
	e := newEnv(t)
	d := e.createEvent(t, nil)
	ctx := context.Background()

	_, err := e.events.Rate(ctx, d.ID, models.RateEventRequest{Calificacion: 5})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	e.setState(t, d.ID, models.EstadoEnProceso)
	e.setState(t, d.ID, models.EstadoCompletado)

	_, err = e.events.Rate(ctx, d.ID, models.RateEventRequest{Calificacion: 6})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	ev, err := e.events.Rate(ctx, d.ID, models.RateEventRequest{Calificacion: 4, Comentario: " muy bien "})
	require.NoError(t, err)
	require.NotNil(t, ev.Calificacion)
	assert.Equal(t, 4, *ev.Calificacion)
	assert.Equal(t, "muy bien", ev.ComentarioCalificacion)
}

func TestPlanAvailability(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 3, "15")
	mesas := e.product("Mesa", 10, "80")
	planID := e.plan("1000", []models.PlanProductInput{
		{ProductoID: sillas, Cantidad: 5},
		{ProductoID: mesas, Cantidad: 2},
	})

	short, err := e.events.PlanAvailability(context.Background(), planID)
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, sillas, short[0].ProductoID)

	_, err = e.events.PlanAvailability(context.Background(), 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdjustStock(t *testing.T) {
	e := newEnv(t)
	sillas := e.product("Silla", 3, "15")
	ctx := context.Background()

	p, err := e.events.AdjustStock(ctx, sillas, models.StockAdjustRequest{Delta: 7, Motivo: "compra"})
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)

	_, err = e.events.AdjustStock(ctx, sillas, models.StockAdjustRequest{Delta: -11})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 10, e.stock(t, sillas))

	_, err = e.events.AdjustStock(ctx, sillas, models.StockAdjustRequest{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	moves := e.store.Movements()
	require.Len(t, moves, 1)
	assert.Equal(t, models.MotivoAjuste, moves[0].Motivo)
	assert.Nil(t, moves[0].EventoID)
}

func TestServiceProductsSkipStock(t *testing.T) {
	e := newEnv(t)
	dj := e.store.AddProduct(models.Product{Nombre: "DJ", Precio: dec("3000"), ControlaStock: false})
	d := e.createEvent(t, nil)
	e.attach(t, d.ID, dj, 2)

	e.setState(t, d.ID, models.EstadoConfirmado)
	assert.Equal(t, 0, e.stock(t, dj))
	assert.Empty(t, e.store.Movements())
}

func TestCreateDoesNotWaitOnSlowSinks(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32
	slow := notify.NotifierFunc(func(_ context.Context, _ models.Notice) error {
		<-release
		delivered.Add(1)
		return nil
	})
	queue := notify.NewQueue(slow, 16, time.Second, discard)
	go queue.Run()

	st := memstore.New()
	events := NewEventService(st, NewStockLedger(discard), NewPlanComposer(), NewPaymentLedger(), queue, discard)
	clientID := st.AddClient(models.Client{Nombre: "Luis"})

	done := make(chan error, 1)
	go func() {
		_, err := events.Create(context.Background(), models.CreateEventRequest{ClienteID: clientID, Nombre: "Graduación", FechaEvento: "2026-07-01"})
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Create waited on the notification sink")
	}
	assert.Zero(t, delivered.Load())

	close(release)
	require.NoError(t, queue.Close(context.Background()))
	assert.EqualValues(t, 1, delivered.Load())
}
