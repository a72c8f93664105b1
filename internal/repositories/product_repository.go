package repositories

import (
	"context"
	"errors"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type ProductRepository struct {
	DB DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{DB: db}
}

const productColumns = `
	p.id, p.categoria_id, COALESCE(c.nombre, ''), p.nombre, p.descripcion, p.precio, p.stock,
	p.controla_stock, p.unidad, p.status, p.created_at, p.updated_at`

const productFrom = ` FROM productos p LEFT JOIN categorias c ON c.id = p.categoria_id`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.CategoriaID, &p.CategoriaNombre, &p.Nombre, &p.Descripcion, &p.Precio, &p.Stock,
		&p.ControlaStock, &p.Unidad, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *ProductRepository) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id=$1`, id))
	if err != nil {
		return nil, rowErr("get product", "producto", id, err)
	}
	return p, nil
}

// LockProducts takes the row locks in id order so concurrent commits cannot deadlock
func (r *ProductRepository) LockProducts(ctx context.Context, ids []int) (map[int]*models.Product, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.id = ANY($1) ORDER BY p.id FOR UPDATE OF p`, ids)
	if err != nil {
		return nil, mapErr("lock products", err)
	}
	defer rows.Close()

	locked := make(map[int]*models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, mapErr("scan product", err)
		}
		locked[p.ID] = p
	}
	return locked, mapErr("lock products", rows.Err())
}

// AddStock applies delta in one statement; it never takes stock below zero
func (r *ProductRepository) AddStock(ctx context.Context, productID, delta int) error {
	var stock int
	err := r.DB.QueryRow(ctx,
		`UPDATE productos SET stock = stock + $1, updated_at = NOW()
		 WHERE id = $2 AND stock + $1 >= 0
		 RETURNING stock`, delta, productID).Scan(&stock)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return mapErr("add stock", err)
	}
	p, gerr := r.GetProduct(ctx, productID)
	if gerr != nil {
		return gerr
	}
	return apperr.InsufficientStock([]models.StockShortage{{
		ProductoID: p.ID, Nombre: p.Nombre, Requerido: -delta, Disponible: p.Stock,
	}})
}

func (r *ProductRepository) ListProducts(ctx context.Context, includeInactive bool, categoryID int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE ($1 OR p.status = 'activo') AND ($2 = 0 OR p.categoria_id = $2)
		ORDER BY p.nombre`
	rows, err := r.DB.Query(ctx, query, includeInactive, categoryID)
	if err != nil {
		return nil, mapErr("list products", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, mapErr("scan product", err)
		}
		products = append(products, *p)
	}
	return products, mapErr("list products", rows.Err())
}

func (r *ProductRepository) CreateProduct(ctx context.Context, p *models.Product) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO productos(categoria_id, nombre, descripcion, precio, stock, controla_stock, unidad)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, status, created_at, updated_at`,
		p.CategoriaID, p.Nombre, p.Descripcion, p.Precio, p.Stock, p.ControlaStock, p.Unidad,
	).Scan(&p.ID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return mapErr("create product", err)
}

// UpdateProduct edits catalog fields; stock only moves through AddStock
func (r *ProductRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	return execOne(ctx, r.DB, "producto", "update product", p.ID,
		`UPDATE productos SET categoria_id=$1, nombre=$2, descripcion=$3, precio=$4, controla_stock=$5, unidad=$6,
		        updated_at=NOW()
		 WHERE id=$7`,
		p.CategoriaID, p.Nombre, p.Descripcion, p.Precio, p.ControlaStock, p.Unidad, p.ID)
}

func (r *ProductRepository) SetProductStatus(ctx context.Context, id int, status models.RecordStatus) error {
	return execOne(ctx, r.DB, "producto", "set product status", id,
		`UPDATE productos SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
}
