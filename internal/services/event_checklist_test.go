package services

import (
	"context"
	"testing"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestProgress(t *testing.T) {
	item := func(done, discarded bool) models.ChecklistItem {
		return models.ChecklistItem{Completado: done, Descartado: discarded}
	}
	tests := []struct {
		name  string
		items []models.ChecklistItem
		want  float64
	}{
		{"empty", nil, 0},
		{"all discarded", []models.ChecklistItem{item(false, true), item(true, true)}, 0},
		{"one of three", []models.ChecklistItem{item(true, false), item(false, false), item(false, false)}, 33.33},
		{"discarded ignored", []models.ChecklistItem{item(true, false), item(false, true)}, 100},
		{"half", []models.ChecklistItem{item(true, false), item(false, false)}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Progress(tt.items))
		})
	}
}

func TestChecklistUpdateIsIdempotent(t *testing.T) {
	e := newEnv(t)
	planID := e.plan("1000", nil, "Decoración", "Banquete", "Música", "Fotografía")
	d := e.createEvent(t, &planID)
	ctx := context.Background()
	first := d.Servicios.Items[0].ID

	cl, err := e.events.UpdateChecklistItem(ctx, d.ID, first, models.UpdateChecklistItemRequest{Completado: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 25.0, cl.Progreso)

	cl, err = e.events.UpdateChecklistItem(ctx, d.ID, first, models.UpdateChecklistItemRequest{Completado: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 25.0, cl.Progreso)

	cl, err = e.events.UpdateChecklistItem(ctx, d.ID, d.Servicios.Items[3].ID, models.UpdateChecklistItemRequest{Descartado: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 33.33, cl.Progreso)

	_, err = e.events.UpdateChecklistItem(ctx, d.ID, first, models.UpdateChecklistItemRequest{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPlanItemsAreDiscardedNotDeleted(t *testing.T) {
	e := newEnv(t)
	planID := e.plan("1000", nil, "Decoración")
	d := e.createEvent(t, &planID)
	ctx := context.Background()
	planItem := d.Servicios.Items[0].ID

	_, err := e.events.DeleteChecklistItem(ctx, d.ID, planItem)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = e.events.UpdateChecklistItem(ctx, d.ID, planItem, models.UpdateChecklistItemRequest{Nombre: stringPtr("Flores")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	cl, err := e.events.AddChecklistItem(ctx, d.ID, models.AddChecklistItemRequest{Nombre: "Pastel de tres pisos"})
	require.NoError(t, err)
	require.Len(t, cl.Items, 2)
	added := cl.Items[1]
	assert.True(t, added.IsPersonalized())
	assert.Equal(t, 2, added.Orden)

	cl, err = e.events.UpdateChecklistItem(ctx, d.ID, added.ID, models.UpdateChecklistItemRequest{Nombre: stringPtr("Pastel")})
	require.NoError(t, err)
	assert.Equal(t, "Pastel", cl.Items[1].Nombre)

	cl, err = e.events.DeleteChecklistItem(ctx, d.ID, added.ID)
	require.NoError(t, err)
	assert.Len(t, cl.Items, 1)
}

func TestPlanItemsStayProtectedAfterTemplateRemoval(t *testing.T) {
	e := newEnv(t)
	planID := e.plan("1000", nil, "Decoración", "Banquete")
	d := e.createEvent(t, &planID)
	ctx := context.Background()
	item := d.Servicios.Items[0]
	require.NotNil(t, item.PlanServicioID)

	e.store.SetPlanServices(planID, []string{"Valet"})

	cl, err := e.events.GetChecklist(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, cl.Items, 2)
	assert.Nil(t, cl.Items[0].PlanServicioID, "the template is gone")
	assert.True(t, cl.Items[0].OrigenPlan)
	assert.False(t, cl.Items[0].IsPersonalized())

	_, err = e.events.DeleteChecklistItem(ctx, d.ID, item.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = e.events.UpdateChecklistItem(ctx, d.ID, item.ID, models.UpdateChecklistItemRequest{Nombre: stringPtr("Flores")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	cl, err = e.events.UpdateChecklistItem(ctx, d.ID, item.ID, models.UpdateChecklistItemRequest{Descartado: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, cl.Items[0].Descartado)
}

func TestChecklistItemBelongsToEvent(t *testing.T) {
	e := newEnv(t)
	planID := e.plan("1000", nil, "Decoración")
	a := e.createEvent(t, &planID)
	b := e.createEvent(t, &planID)

	_, err := e.events.UpdateChecklistItem(context.Background(), b.ID, a.Servicios.Items[0].ID,
		models.UpdateChecklistItemRequest{Completado: boolPtr(true)})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRegenerateReplacesWholeChecklist(t *testing.T) {
	e := newEnv(t)
	planID := e.plan("1000", nil, "Decoración", "Banquete")
	d := e.createEvent(t, &planID)
	ctx := context.Background()

	_, err := e.events.AddChecklistItem(ctx, d.ID, models.AddChecklistItemRequest{Nombre: "Pirotecnia"})
	require.NoError(t, err)
	_, err = e.events.UpdateChecklistItem(ctx, d.ID, d.Servicios.Items[0].ID, models.UpdateChecklistItemRequest{Completado: boolPtr(true)})
	require.NoError(t, err)

	e.store.SetPlanServices(planID, []string{"Valet", "Banquete", "Iluminación"})
	cl, err := e.events.RegenerateChecklist(ctx, d.ID)
	require.NoError(t, err)

	names := make([]string, len(cl.Items))
	for i, it := range cl.Items {
		names[i] = it.Nombre
		assert.False(t, it.Completado)
		assert.False(t, it.IsPersonalized())
	}
	assert.Equal(t, []string{"Valet", "Banquete", "Iluminación"}, names)
	assert.Zero(t, cl.Progreso)
}

func TestRegenerateWithoutTemplatesKeepsChecklist(t *testing.T) {
	e := newEnv(t)
	planID := e.plan("1000", nil, "Decoración")
	d := e.createEvent(t, &planID)
	ctx := context.Background()

	e.store.SetPlanServices(planID, nil)
	_, err := e.events.RegenerateChecklist(ctx, d.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	cl, err := e.events.GetChecklist(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, cl.Items, 1)
	assert.Equal(t, "Decoración", cl.Items[0].Nombre)

	noPlan := e.createEvent(t, nil)
	_, err = e.events.RegenerateChecklist(ctx, noPlan.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func stringPtr(v string) *string { return &v }
