package repositories

import (
	"context"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
)

// ChecklistRepository stores evento_servicios rows
type ChecklistRepository struct {
	DB DBTX
}

func NewChecklistRepository(db DBTX) *ChecklistRepository {
	return &ChecklistRepository{DB: db}
}

const checklistColumns = `id, evento_id, plan_servicio_id, origen_plan, nombre, orden, completado, descartado, updated_at`

func (r *ChecklistRepository) ListChecklist(ctx context.Context, eventID int) ([]models.ChecklistItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+checklistColumns+` FROM evento_servicios WHERE evento_id=$1 ORDER BY orden, id`, eventID)
	if err != nil {
		return nil, mapErr("list checklist", err)
	}
	defer rows.Close()

	var items []models.ChecklistItem
	for rows.Next() {
		var it models.ChecklistItem
		if err := rows.Scan(&it.ID, &it.EventoID, &it.PlanServicioID, &it.OrigenPlan, &it.Nombre, &it.Orden,
			&it.Completado, &it.Descartado, &it.UpdatedAt); err != nil {
			return nil, mapErr("scan checklist item", err)
		}
		items = append(items, it)
	}
	return items, mapErr("list checklist", rows.Err())
}

func (r *ChecklistRepository) GetChecklistItem(ctx context.Context, eventID, itemID int) (*models.ChecklistItem, error) {
	var it models.ChecklistItem
	err := r.DB.QueryRow(ctx,
		`SELECT `+checklistColumns+` FROM evento_servicios WHERE evento_id=$1 AND id=$2`, eventID, itemID,
	).Scan(&it.ID, &it.EventoID, &it.PlanServicioID, &it.OrigenPlan, &it.Nombre, &it.Orden, &it.Completado, &it.Descartado, &it.UpdatedAt)
	if err != nil {
		return nil, rowErr("get checklist item", "servicio", itemID, err)
	}
	return &it, nil
}

func (r *ChecklistRepository) InsertChecklistItem(ctx context.Context, it *models.ChecklistItem) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO evento_servicios(evento_id, plan_servicio_id, origen_plan, nombre, orden, completado, descartado)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, updated_at`,
		it.EventoID, it.PlanServicioID, it.OrigenPlan, it.Nombre, it.Orden, it.Completado, it.Descartado,
	).Scan(&it.ID, &it.UpdatedAt)
	return mapErr("insert checklist item", err)
}

func (r *ChecklistRepository) UpdateChecklistItem(ctx context.Context, it *models.ChecklistItem) error {
	err := r.DB.QueryRow(ctx,
		`UPDATE evento_servicios SET nombre=$1, completado=$2, descartado=$3, updated_at=NOW()
		 WHERE evento_id=$4 AND id=$5
		 RETURNING updated_at`,
		it.Nombre, it.Completado, it.Descartado, it.EventoID, it.ID,
	).Scan(&it.UpdatedAt)
	if err != nil {
		return rowErr("update checklist item", "servicio", it.ID, err)
	}
	return nil
}

func (r *ChecklistRepository) DeleteChecklistItem(ctx context.Context, eventID, itemID int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM evento_servicios WHERE evento_id=$1 AND id=$2`, eventID, itemID)
	if err != nil {
		return mapErr("delete checklist item", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("servicio", itemID)
	}
	return nil
}

func (r *ChecklistRepository) DeleteChecklist(ctx context.Context, eventID int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM evento_servicios WHERE evento_id=$1`, eventID)
	return mapErr("delete checklist", err)
}
