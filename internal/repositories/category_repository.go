package repositories

import (
	"context"

	"eventos-backend/internal/models"
)

type CategoryRepository struct {
	DB DBTX
}

func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

func (r *CategoryRepository) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, nombre, descripcion, status, created_at FROM categorias
		 WHERE $1 OR status = 'activo' ORDER BY nombre`, includeInactive)
	if err != nil {
		return nil, mapErr("list categories", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Descripcion, &c.Status, &c.CreatedAt); err != nil {
			return nil, mapErr("scan category", err)
		}
		categories = append(categories, c)
	}
	return categories, mapErr("list categories", rows.Err())
}

func (r *CategoryRepository) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	var c models.Category
	err := r.DB.QueryRow(ctx,
		`SELECT id, nombre, descripcion, status, created_at FROM categorias WHERE id=$1`, id,
	).Scan(&c.ID, &c.Nombre, &c.Descripcion, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, rowErr("get category", "categoría", id, err)
	}
	return &c, nil
}

func (r *CategoryRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO categorias(nombre, descripcion) VALUES($1, $2) RETURNING id, status, created_at`,
		c.Nombre, c.Descripcion,
	).Scan(&c.ID, &c.Status, &c.CreatedAt)
	return mapErr("create category", err)
}

func (r *CategoryRepository) UpdateCategory(ctx context.Context, c *models.Category) error {
	return execOne(ctx, r.DB, "categoría", "update category", c.ID,
		`UPDATE categorias SET nombre=$1, descripcion=$2 WHERE id=$3`, c.Nombre, c.Descripcion, c.ID)
}

func (r *CategoryRepository) SetCategoryStatus(ctx context.Context, id int, status models.RecordStatus) error {
	return execOne(ctx, r.DB, "categoría", "set category status", id,
		`UPDATE categorias SET status=$1 WHERE id=$2`, status, id)
}
