package repositories

import (
	"context"

	"eventos-backend/internal/models"
)

type SalonRepository struct {
	DB DBTX
}

func NewSalonRepository(db DBTX) *SalonRepository {
	return &SalonRepository{DB: db}
}

func (r *SalonRepository) GetSalon(ctx context.Context, id int) (*models.Salon, error) {
	var s models.Salon
	err := r.DB.QueryRow(ctx,
		`SELECT id, nombre, capacidad, direccion, status, created_at FROM salones WHERE id=$1`, id,
	).Scan(&s.ID, &s.Nombre, &s.Capacidad, &s.Direccion, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, rowErr("get salon", "salón", id, err)
	}
	return &s, nil
}

func (r *SalonRepository) ListSalons(ctx context.Context, includeInactive bool) ([]models.Salon, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, nombre, capacidad, direccion, status, created_at FROM salones
		 WHERE $1 OR status = 'activo' ORDER BY nombre`, includeInactive)
	if err != nil {
		return nil, mapErr("list salons", err)
	}
	defer rows.Close()

	salons := []models.Salon{}
	for rows.Next() {
		var s models.Salon
		if err := rows.Scan(&s.ID, &s.Nombre, &s.Capacidad, &s.Direccion, &s.Status, &s.CreatedAt); err != nil {
			return nil, mapErr("scan salon", err)
		}
		salons = append(salons, s)
	}
	return salons, mapErr("list salons", rows.Err())
}

func (r *SalonRepository) CreateSalon(ctx context.Context, s *models.Salon) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO salones(nombre, capacidad, direccion) VALUES($1, $2, $3) RETURNING id, status, created_at`,
		s.Nombre, s.Capacidad, s.Direccion,
	).Scan(&s.ID, &s.Status, &s.CreatedAt)
	return mapErr("create salon", err)
}

func (r *SalonRepository) UpdateSalon(ctx context.Context, s *models.Salon) error {
	return execOne(ctx, r.DB, "salón", "update salon", s.ID,
		`UPDATE salones SET nombre=$1, capacidad=$2, direccion=$3 WHERE id=$4`,
		s.Nombre, s.Capacidad, s.Direccion, s.ID)
}

func (r *SalonRepository) SetSalonStatus(ctx context.Context, id int, status models.RecordStatus) error {
	return execOne(ctx, r.DB, "salón", "set salon status", id,
		`UPDATE salones SET status=$1 WHERE id=$2`, status, id)
}
