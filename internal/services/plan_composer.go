package services

import (
	"context"
	"math"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
	"eventos-backend/internal/store"
)

// PlanComposer copies a plan's bundle and service templates onto events
type PlanComposer struct{}

func NewPlanComposer() *PlanComposer {
	return &PlanComposer{}
}

// CopyBundle freezes the plan's bundled products on the event. Stock
// requirements read this copy, never the live plan.
func (c *PlanComposer) CopyBundle(ctx context.Context, tx store.Tx, eventID, planID int) error {
	products, err := tx.ListPlanProducts(ctx, planID)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	items := make([]models.PlanProduct, 0, len(products))
	for _, pp := range products {
		items = append(items, models.PlanProduct{PlanID: planID, ProductoID: pp.ProductoID, Cantidad: pp.Cantidad})
	}
	return tx.InsertEventPlanProducts(ctx, eventID, items)
}

// CreateFromPlan adds one checklist item per service template of the plan
func (c *PlanComposer) CreateFromPlan(ctx context.Context, tx store.Tx, eventID, planID int) ([]models.ChecklistItem, error) {
	templates, err := tx.ListPlanServices(ctx, planID)
	if err != nil {
		return nil, err
	}
	items := make([]models.ChecklistItem, 0, len(templates))
	for _, t := range templates {
		templateID := t.ID
		item := models.ChecklistItem{
			EventoID:       eventID,
			PlanServicioID: &templateID,
			OrigenPlan:     true,
			Nombre:         t.Nombre,
			Orden:          t.Orden,
		}
		if err := tx.InsertChecklistItem(ctx, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ReplaceFromPlan wipes the event's whole checklist, personalized, completed
// and discarded items included, and rebuilds it from the plan's current
// templates. A plan without templates is rejected before anything is deleted.
func (c *PlanComposer) ReplaceFromPlan(ctx context.Context, tx store.Tx, eventID, planID int) ([]models.ChecklistItem, error) {
	templates, err := tx.ListPlanServices(ctx, planID)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, apperr.Validation("el plan no tiene servicios definidos; no se regenera la lista")
	}
	if err := tx.DeleteChecklist(ctx, eventID); err != nil {
		return nil, err
	}
	return c.CreateFromPlan(ctx, tx, eventID, planID)
}

// Progress is the completed share of the non-discarded items, in percent.
// An empty or fully discarded checklist is 0.
func Progress(items []models.ChecklistItem) float64 {
	var done, discarded int
	for _, item := range items {
		switch {
		case item.Descartado:
			discarded++
		case item.Completado:
			done++
		}
	}
	active := len(items) - discarded
	if active == 0 {
		return 0
	}
	return math.Round(10000*float64(done)/float64(active)) / 100
}
