package repositories

import (
	"context"

	"eventos-backend/internal/models"
)

type ClientRepository struct {
	DB DBTX
}

func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{DB: db}
}

func (r *ClientRepository) GetClient(ctx context.Context, id int) (*models.Client, error) {
	var c models.Client
	err := r.DB.QueryRow(ctx,
		`SELECT id, nombre, telefono, email, direccion, status, created_at FROM clientes WHERE id=$1`, id,
	).Scan(&c.ID, &c.Nombre, &c.Telefono, &c.Email, &c.Direccion, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, rowErr("get client", "cliente", id, err)
	}
	return &c, nil
}

// ListClients filters by a name or phone fragment when search is not empty
func (r *ClientRepository) ListClients(ctx context.Context, includeInactive bool, search string) ([]models.Client, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, nombre, telefono, email, direccion, status, created_at FROM clientes
		 WHERE ($1 OR status = 'activo')
		   AND ($2 = '' OR nombre ILIKE '%' || $2 || '%' OR telefono LIKE '%' || $2 || '%')
		 ORDER BY nombre`, includeInactive, search)
	if err != nil {
		return nil, mapErr("list clients", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Telefono, &c.Email, &c.Direccion, &c.Status, &c.CreatedAt); err != nil {
			return nil, mapErr("scan client", err)
		}
		clients = append(clients, c)
	}
	return clients, mapErr("list clients", rows.Err())
}

func (r *ClientRepository) CreateClient(ctx context.Context, c *models.Client) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO clientes(nombre, telefono, email, direccion) VALUES($1, $2, $3, $4)
		 RETURNING id, status, created_at`,
		c.Nombre, c.Telefono, c.Email, c.Direccion,
	).Scan(&c.ID, &c.Status, &c.CreatedAt)
	return mapErr("create client", err)
}

func (r *ClientRepository) UpdateClient(ctx context.Context, c *models.Client) error {
	return execOne(ctx, r.DB, "cliente", "update client", c.ID,
		`UPDATE clientes SET nombre=$1, telefono=$2, email=$3, direccion=$4 WHERE id=$5`,
		c.Nombre, c.Telefono, c.Email, c.Direccion, c.ID)
}

func (r *ClientRepository) SetClientStatus(ctx context.Context, id int, status models.RecordStatus) error {
	return execOne(ctx, r.DB, "cliente", "set client status", id,
		`UPDATE clientes SET status=$1 WHERE id=$2`, status, id)
}
