package repositories

import (
	"context"

	"eventos-backend/internal/models"
)

// StockMovementRepository is the append-only stock_movimientos ledger
type StockMovementRepository struct {
	DB DBTX
}

func NewStockMovementRepository(db DBTX) *StockMovementRepository {
	return &StockMovementRepository{DB: db}
}

func (r *StockMovementRepository) InsertStockMovement(ctx context.Context, m *models.StockMovement) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO stock_movimientos(producto_id, evento_id, cantidad, motivo)
		 VALUES($1, $2, $3, $4)
		 RETURNING id, created_at`,
		m.ProductoID, m.EventoID, m.Cantidad, m.Motivo,
	).Scan(&m.ID, &m.CreatedAt)
	return mapErr("insert stock movement", err)
}

// CommittedStock nets the event's commit and release movements per product
func (r *StockMovementRepository) CommittedStock(ctx context.Context, eventID int) (map[int]int, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT producto_id, -SUM(cantidad)
		 FROM stock_movimientos
		 WHERE evento_id=$1 AND motivo IN ('compromiso', 'liberacion')
		 GROUP BY producto_id
		 HAVING SUM(cantidad) < 0`, eventID)
	if err != nil {
		return nil, mapErr("committed stock", err)
	}
	defer rows.Close()

	held := make(map[int]int)
	for rows.Next() {
		var productID, qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, mapErr("scan committed stock", err)
		}
		held[productID] = qty
	}
	return held, mapErr("committed stock", rows.Err())
}

// ListMovements returns a product's most recent movements first
func (r *StockMovementRepository) ListMovements(ctx context.Context, productID, limit int) ([]models.StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, producto_id, evento_id, cantidad, motivo, created_at
		 FROM stock_movimientos WHERE producto_id=$1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, mapErr("list stock movements", err)
	}
	defer rows.Close()

	out := []models.StockMovement{}
	for rows.Next() {
		var m models.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductoID, &m.EventoID, &m.Cantidad, &m.Motivo, &m.CreatedAt); err != nil {
			return nil, mapErr("scan stock movement", err)
		}
		out = append(out, m)
	}
	return out, mapErr("list stock movements", rows.Err())
}
