package services

import (
	"context"
	"testing"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlans struct {
	plans  map[int]*models.Plan
	status map[int]models.RecordStatus
	saved  []models.PlanServiceInput
}

func (f *fakePlans) GetPlanDetail(_ context.Context, id int) (*models.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, apperr.NotFound("plan", id)
	}
	return p, nil
}

func (f *fakePlans) ListPlans(context.Context, bool) ([]models.Plan, error) { return nil, nil }

func (f *fakePlans) SavePlan(_ context.Context, p *models.Plan, _ []models.PlanProductInput, services []models.PlanServiceInput) error {
	if p.ID == 0 {
		p.ID = len(f.plans) + 1
	}
	f.plans[p.ID] = p
	f.saved = services
	return nil
}

func (f *fakePlans) SetPlanStatus(_ context.Context, id int, status models.RecordStatus) error {
	f.status[id] = status
	return nil
}

type fakeProducts struct {
	products map[int]*models.Product
}

func (f *fakeProducts) GetProduct(_ context.Context, id int) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, apperr.NotFound("producto", id)
	}
	return p, nil
}

func (f *fakeProducts) ListProducts(context.Context, bool, int) ([]models.Product, error) {
	return nil, nil
}
func (f *fakeProducts) CreateProduct(context.Context, *models.Product) error { return nil }
func (f *fakeProducts) UpdateProduct(context.Context, *models.Product) error { return nil }
func (f *fakeProducts) SetProductStatus(context.Context, int, models.RecordStatus) error {
	return nil
}

type openEvents map[int]int

func (o openEvents) CountOpenEventsByPlan(_ context.Context, planID int) (int, error) {
	return o[planID], nil
}

func newPlanService(open openEvents) (*PlanService, *fakePlans) {
	plans := &fakePlans{
		plans:  map[int]*models.Plan{1: {ID: 1, Nombre: "Boda", Status: models.StatusActivo}},
		status: make(map[int]models.RecordStatus),
	}
	products := &fakeProducts{products: map[int]*models.Product{
		10: {ID: 10, Nombre: "Silla", Status: models.StatusActivo},
		11: {ID: 11, Nombre: "Carpa", Status: models.StatusInactivo},
	}}
	return NewPlanService(plans, products, open, discard), plans
}

func TestPlanDeactivationBlockedByOpenEvents(t *testing.T) {
	svc, plans := newPlanService(openEvents{1: 2})
	ctx := context.Background()

	err := svc.SetStatus(ctx, 1, models.StatusInactivo)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, 2, ae.Count)
	assert.Empty(t, plans.status)

	require.NoError(t, svc.SetStatus(ctx, 1, models.StatusActivo))
	assert.Equal(t, models.StatusActivo, plans.status[1])

	err = svc.SetStatus(ctx, 1, models.RecordStatus("borrado"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPlanDeactivationWithoutEvents(t *testing.T) {
	svc, plans := newPlanService(openEvents{})
	require.NoError(t, svc.SetStatus(context.Background(), 1, models.StatusInactivo))
	assert.Equal(t, models.StatusInactivo, plans.status[1])
}

func TestPlanValidation(t *testing.T) {
	svc, _ := newPlanService(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.PlanRequest
	}{
		{"no name", models.PlanRequest{PrecioBase: dec("100")}},
		{"negative price", models.PlanRequest{Nombre: "X", PrecioBase: dec("-1")}},
		{"capacity inverted", models.PlanRequest{Nombre: "X", CapacidadMin: 200, CapacidadMax: 100}},
		{"zero quantity", models.PlanRequest{Nombre: "X", Productos: []models.PlanProductInput{{ProductoID: 10}}}},
		{"repeated product", models.PlanRequest{Nombre: "X", Productos: []models.PlanProductInput{
			{ProductoID: 10, Cantidad: 1}, {ProductoID: 10, Cantidad: 2},
		}}},
		{"inactive product", models.PlanRequest{Nombre: "X", Productos: []models.PlanProductInput{{ProductoID: 11, Cantidad: 1}}}},
		{"unnamed service", models.PlanRequest{Nombre: "X", Servicios: []models.PlanServiceInput{{Nombre: " "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "%v", err)
		})
	}

	_, err := svc.Create(ctx, models.PlanRequest{Nombre: "X", Productos: []models.PlanProductInput{{ProductoID: 99, Cantidad: 1}}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestPlanCreateNumbersServices(t *testing.T) {
	svc, plans := newPlanService(nil)
	p, err := svc.Create(context.Background(), models.PlanRequest{
		Nombre:     " XV Años ",
		PrecioBase: dec("15000"),
		Productos:  []models.PlanProductInput{{ProductoID: 10, Cantidad: 100}},
		Servicios:  []models.PlanServiceInput{{Nombre: "Vals"}, {Nombre: "Pastel", Orden: 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, "XV Años", p.Nombre)
	assert.Equal(t, []models.PlanServiceInput{{Nombre: "Vals", Orden: 1}, {Nombre: "Pastel", Orden: 7}}, plans.saved)

	_, err = svc.Update(context.Background(), 42, models.PlanRequest{Nombre: "Y"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
