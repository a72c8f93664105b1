package services

import (
	"context"
	"strings"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
	"eventos-backend/internal/store"
)

func (s *EventService) GetChecklist(ctx context.Context, eventID int) (*models.Checklist, error) {
	var cl *models.Checklist
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return err
		}
		var err error
		cl, err = s.checklist(ctx, tx, eventID)
		return err
	})
	return cl, err
}

// AddChecklistItem appends a personalized item; without an explicit order it goes last
func (s *EventService) AddChecklistItem(ctx context.Context, eventID int, req models.AddChecklistItemRequest) (*models.Checklist, error) {
	nombre := strings.TrimSpace(req.Nombre)
	if nombre == "" {
		return nil, apperr.Validation("el nombre del servicio es requerido")
	}

	var cl *models.Checklist
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockEvent(ctx, eventID); err != nil {
			return err
		}
		items, err := tx.ListChecklist(ctx, eventID)
		if err != nil {
			return err
		}
		orden := 1
		for _, it := range items {
			if it.Orden >= orden {
				orden = it.Orden + 1
			}
		}
		if req.Orden != nil {
			orden = *req.Orden
		}
		if err := tx.InsertChecklistItem(ctx, &models.ChecklistItem{
			EventoID: eventID,
			Nombre:   nombre,
			Orden:    orden,
		}); err != nil {
			return err
		}
		cl, err = s.checklist(ctx, tx, eventID)
		return err
	})
	return cl, err
}

// UpdateChecklistItem sets the completado/descartado flags and returns the recomputed checklist
func (s *EventService) UpdateChecklistItem(ctx context.Context, eventID, itemID int, req models.UpdateChecklistItemRequest) (*models.Checklist, error) {
	if req.Completado == nil && req.Descartado == nil && req.Nombre == nil {
		return nil, apperr.Validation("no hay cambios que aplicar")
	}

	var cl *models.Checklist
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockEvent(ctx, eventID); err != nil {
			return err
		}
		item, err := tx.GetChecklistItem(ctx, eventID, itemID)
		if err != nil {
			return err
		}
		if req.Completado != nil {
			item.Completado = *req.Completado
		}
		if req.Descartado != nil {
			item.Descartado = *req.Descartado
		}
		if req.Nombre != nil {
			if !item.IsPersonalized() {
				return apperr.Validation("solo se renombran servicios personalizados")
			}
			nombre := strings.TrimSpace(*req.Nombre)
			if nombre == "" {
				return apperr.Validation("el nombre del servicio es requerido")
			}
			item.Nombre = nombre
		}
		if err := tx.UpdateChecklistItem(ctx, item); err != nil {
			return err
		}
		cl, err = s.checklist(ctx, tx, eventID)
		return err
	})
	return cl, err
}

// DeleteChecklistItem removes a personalized item. Plan-derived items can
// only be discarded.
func (s *EventService) DeleteChecklistItem(ctx context.Context, eventID, itemID int) (*models.Checklist, error) {
	var cl *models.Checklist
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockEvent(ctx, eventID); err != nil {
			return err
		}
		item, err := tx.GetChecklistItem(ctx, eventID, itemID)
		if err != nil {
			return err
		}
		if !item.IsPersonalized() {
			return apperr.Validation("los servicios del plan no se eliminan; márquelos como descartados")
		}
		if err := tx.DeleteChecklistItem(ctx, eventID, itemID); err != nil {
			return err
		}
		cl, err = s.checklist(ctx, tx, eventID)
		return err
	})
	return cl, err
}

// RegenerateChecklist discards the event's checklist and rebuilds it from the plan's current templates
func (s *EventService) RegenerateChecklist(ctx context.Context, eventID int) (*models.Checklist, error) {
	var cl *models.Checklist
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.PlanID == nil {
			return apperr.Validation("el evento no tiene plan asignado")
		}
		if _, err := s.composer.ReplaceFromPlan(ctx, tx, eventID, *ev.PlanID); err != nil {
			return err
		}
		cl, err = s.checklist(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[Eventos] Servicios del evento %d regenerados desde el plan (%d items)", eventID, len(cl.Items))
	return cl, nil
}

func (s *EventService) checklist(ctx context.Context, tx store.Checklist, eventID int) (*models.Checklist, error) {
	items, err := tx.ListChecklist(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ChecklistItem{}
	}
	return &models.Checklist{Items: items, Progreso: Progress(items)}, nil
}
