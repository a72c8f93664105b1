package repositories_test

import (
	"context"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/database"
	"eventos-backend/internal/db"
	"eventos-backend/internal/models"
	"eventos-backend/internal/repositories"
	"eventos-backend/internal/services"
	"eventos-backend/internal/store"
	"eventos-backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set EVENTOS_TEST_DATABASE_URL to a disposable database to run these
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("EVENTOS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("EVENTOS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.ConnectDSN(ctx, dsn, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := log.New(io.Discard, "", 0)
	require.NoError(t, database.NewMigrator(pool, migrations.FS, logger).RunMigrations(ctx))
	return pool
}

func TestConcurrentConfirmationsOnPostgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	client := &models.Client{Nombre: "Prueba concurrencia", Telefono: "5500000000"}
	require.NoError(t, repositories.NewClientRepository(pool).CreateClient(ctx, client))
	mantel := &models.Product{Nombre: "Mantel", Precio: decimal.NewFromInt(40), Stock: 3, ControlaStock: true, Unidad: "pieza"}
	products := repositories.NewProductRepository(pool)
	require.NoError(t, products.CreateProduct(ctx, mantel))

	events := services.NewEventService(repositories.NewStore(pool), services.NewStockLedger(logger),
		services.NewPlanComposer(), services.NewPaymentLedger(), nil, logger)

	const attempts = 8
	ids := make([]int, attempts)
	for i := range ids {
		d, err := events.Create(ctx, models.CreateEventRequest{
			ClienteID: client.ID, Nombre: "Cena", FechaEvento: "2026-12-31",
		})
		require.NoError(t, err)
		_, err = events.AttachProduct(ctx, d.ID, models.AttachProductRequest{ProductoID: mantel.ID, Cantidad: 1})
		require.NoError(t, err)
		ids[i] = d.ID
	}

	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := events.ChangeState(ctx, id, models.ChangeStateRequest{Estado: models.EstadoConfirmado})
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.Is(err, apperr.KindValidation):
				short.Add(1)
			default:
				t.Errorf("confirm %d: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	assert.EqualValues(t, 3, ok.Load())
	assert.EqualValues(t, attempts-3, short.Load())
	p, err := products.GetProduct(ctx, mantel.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestStoreReadsOnPostgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	st := repositories.NewStore(pool)

	err := st.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.GetEvent(ctx, -1)
		return err
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	client := &models.Client{Nombre: "Totales"}
	require.NoError(t, repositories.NewClientRepository(pool).CreateClient(ctx, client))
	logger := log.New(io.Discard, "", 0)
	events := services.NewEventService(st, services.NewStockLedger(logger),
		services.NewPlanComposer(), services.NewPaymentLedger(), nil, logger)
	d, err := events.Create(ctx, models.CreateEventRequest{ClienteID: client.ID, Nombre: "Sin pagos", FechaEvento: "2026-10-30"})
	require.NoError(t, err)

	err = st.InTx(ctx, func(tx store.Tx) error {
		totals, err := tx.PaymentTotals(ctx, d.ID)
		if err != nil {
			return err
		}
		assert.True(t, totals.Pagado.IsZero())
		assert.True(t, totals.Reembolsado.IsZero())
		return nil
	})
	require.NoError(t, err)

	err = st.InTx(ctx, func(tx store.Tx) error {
		return tx.AddStock(ctx, -1, 5)
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestPlanSnapshotOnPostgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	client := &models.Client{Nombre: "Instantánea"}
	require.NoError(t, repositories.NewClientRepository(pool).CreateClient(ctx, client))
	products := repositories.NewProductRepository(pool)
	silla := &models.Product{Nombre: "Silla plegable", Precio: decimal.NewFromInt(15), Stock: 50, ControlaStock: true, Unidad: "pieza"}
	require.NoError(t, products.CreateProduct(ctx, silla))

	plans := repositories.NewPlanRepository(pool)
	plan := &models.Plan{Nombre: "Instantánea", PrecioBase: decimal.NewFromInt(1000)}
	require.NoError(t, plans.SavePlan(ctx, plan,
		[]models.PlanProductInput{{ProductoID: silla.ID, Cantidad: 10}},
		[]models.PlanServiceInput{{Nombre: "Decoración", Orden: 1}, {Nombre: "Banquete", Orden: 2}}))

	events := services.NewEventService(repositories.NewStore(pool), services.NewStockLedger(logger),
		services.NewPlanComposer(), services.NewPaymentLedger(), nil, logger)
	d, err := events.Create(ctx, models.CreateEventRequest{ClienteID: client.ID, PlanID: &plan.ID, Nombre: "Boda", FechaEvento: "2026-12-05"})
	require.NoError(t, err)

	plan.PrecioBase = decimal.NewFromInt(5000)
	require.NoError(t, plans.SavePlan(ctx, plan,
		[]models.PlanProductInput{{ProductoID: silla.ID, Cantidad: 90}},
		[]models.PlanServiceInput{{Nombre: "Decoración", Orden: 1}}))

	total, err := events.RecalculateTotal(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", total.StringFixed(2))

	_, err = events.ChangeState(ctx, d.ID, models.ChangeStateRequest{Estado: models.EstadoConfirmado})
	require.NoError(t, err)
	p, err := products.GetProduct(ctx, silla.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, p.Stock)

	cl, err := events.GetChecklist(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, cl.Items, 2)
	assert.Nil(t, cl.Items[1].PlanServicioID)
	_, err = events.DeleteChecklistItem(ctx, d.ID, cl.Items[1].ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
