package repositories

import (
	"context"

	"eventos-backend/internal/models"
)

// EventPlanProductRepository stores evento_plan_productos, the plan bundle
// as it was when the event was booked
type EventPlanProductRepository struct {
	DB DBTX
}

func NewEventPlanProductRepository(db DBTX) *EventPlanProductRepository {
	return &EventPlanProductRepository{DB: db}
}

func (r *EventPlanProductRepository) InsertEventPlanProducts(ctx context.Context, eventID int, items []models.PlanProduct) error {
	for i := range items {
		err := r.DB.QueryRow(ctx,
			`INSERT INTO evento_plan_productos(evento_id, plan_id, producto_id, cantidad)
			 VALUES($1, $2, $3, $4)
			 RETURNING id`,
			eventID, items[i].PlanID, items[i].ProductoID, items[i].Cantidad,
		).Scan(&items[i].ID)
		if err != nil {
			return mapErr("insert event plan product", err)
		}
	}
	return nil
}

func (r *EventPlanProductRepository) ListEventPlanProducts(ctx context.Context, eventID int) ([]models.PlanProduct, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT epp.id, epp.plan_id, epp.producto_id, p.nombre, epp.cantidad
		 FROM evento_plan_productos epp JOIN productos p ON p.id = epp.producto_id
		 WHERE epp.evento_id=$1 ORDER BY epp.producto_id`, eventID)
	if err != nil {
		return nil, mapErr("list event plan products", err)
	}
	defer rows.Close()

	var items []models.PlanProduct
	for rows.Next() {
		var pp models.PlanProduct
		if err := rows.Scan(&pp.ID, &pp.PlanID, &pp.ProductoID, &pp.ProductoNombre, &pp.Cantidad); err != nil {
			return nil, mapErr("scan event plan product", err)
		}
		items = append(items, pp)
	}
	return items, mapErr("list event plan products", rows.Err())
}
