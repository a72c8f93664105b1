package repositories

import (
	"context"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
)

type EventLineRepository struct {
	DB DBTX
}

func NewEventLineRepository(db DBTX) *EventLineRepository {
	return &EventLineRepository{DB: db}
}

func (r *EventLineRepository) ListEventLines(ctx context.Context, eventID int) ([]models.EventProductLine, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT ep.id, ep.evento_id, ep.producto_id, p.nombre, ep.cantidad, ep.precio_unitario, ep.created_at
		 FROM evento_productos ep JOIN productos p ON p.id = ep.producto_id
		 WHERE ep.evento_id=$1 ORDER BY ep.producto_id`, eventID)
	if err != nil {
		return nil, mapErr("list event lines", err)
	}
	defer rows.Close()

	var lines []models.EventProductLine
	for rows.Next() {
		var l models.EventProductLine
		if err := rows.Scan(&l.ID, &l.EventoID, &l.ProductoID, &l.ProductoNombre, &l.Cantidad, &l.PrecioUnitario, &l.CreatedAt); err != nil {
			return nil, mapErr("scan event line", err)
		}
		lines = append(lines, l)
	}
	return lines, mapErr("list event lines", rows.Err())
}

func (r *EventLineRepository) GetEventLine(ctx context.Context, eventID, productID int) (*models.EventProductLine, error) {
	var l models.EventProductLine
	err := r.DB.QueryRow(ctx,
		`SELECT ep.id, ep.evento_id, ep.producto_id, p.nombre, ep.cantidad, ep.precio_unitario, ep.created_at
		 FROM evento_productos ep JOIN productos p ON p.id = ep.producto_id
		 WHERE ep.evento_id=$1 AND ep.producto_id=$2`, eventID, productID,
	).Scan(&l.ID, &l.EventoID, &l.ProductoID, &l.ProductoNombre, &l.Cantidad, &l.PrecioUnitario, &l.CreatedAt)
	if err != nil {
		return nil, rowErr("get event line", "producto del evento", productID, err)
	}
	return &l, nil
}

// UpsertEventLine replaces the quantity and price when the product is already on the event
func (r *EventLineRepository) UpsertEventLine(ctx context.Context, l *models.EventProductLine) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO evento_productos(evento_id, producto_id, cantidad, precio_unitario)
		 VALUES($1, $2, $3, $4)
		 ON CONFLICT (evento_id, producto_id)
		 DO UPDATE SET cantidad=EXCLUDED.cantidad, precio_unitario=EXCLUDED.precio_unitario
		 RETURNING id, created_at`,
		l.EventoID, l.ProductoID, l.Cantidad, l.PrecioUnitario,
	).Scan(&l.ID, &l.CreatedAt)
	return mapErr("upsert event line", err)
}

func (r *EventLineRepository) DeleteEventLine(ctx context.Context, eventID, productID int) error {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM evento_productos WHERE evento_id=$1 AND producto_id=$2`, eventID, productID)
	if err != nil {
		return mapErr("delete event line", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("producto del evento", productID)
	}
	return nil
}
