package services

import (
	"context"
	"log"
	"strings"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/shopspring/decimal"
)

type CategoryRepository interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error)
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	SetCategoryStatus(ctx context.Context, id int, status models.RecordStatus) error
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	ListProducts(ctx context.Context, includeInactive bool, categoryID int) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	SetProductStatus(ctx context.Context, id int, status models.RecordStatus) error
}

type StockMovementLister interface {
	ListMovements(ctx context.Context, productID, limit int) ([]models.StockMovement, error)
}

// CatalogService manages categories and products. Stock changes go through
// the stock ledger, never through product updates.
type CatalogService struct {
	Categories CategoryRepository
	Products   ProductRepository
	Movements  StockMovementLister
	logger     *log.Logger
}

func NewCatalogService(categories CategoryRepository, products ProductRepository, movements StockMovementLister, logger *log.Logger) *CatalogService {
	return &CatalogService{
		Categories: categories,
		Products:   products,
		Movements:  movements,
		logger:     loggerOrDefault(logger),
	}
}

func (s *CatalogService) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	return s.Categories.ListCategories(ctx, includeInactive)
}

func (s *CatalogService) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	return s.Categories.GetCategory(ctx, id)
}

func (s *CatalogService) CreateCategory(ctx context.Context, req models.CategoryRequest) (*models.Category, error) {
	if strings.TrimSpace(req.Nombre) == "" {
		return nil, apperr.Validation("el nombre de la categoría es requerido")
	}
	c := &models.Category{
		Nombre:      strings.TrimSpace(req.Nombre),
		Descripcion: req.Descripcion,
		Status:      models.StatusActivo,
	}
	if err := s.Categories.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int, req models.CategoryRequest) (*models.Category, error) {
	if strings.TrimSpace(req.Nombre) == "" {
		return nil, apperr.Validation("el nombre de la categoría es requerido")
	}
	c, err := s.Categories.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Nombre = strings.TrimSpace(req.Nombre)
	c.Descripcion = req.Descripcion
	if err := s.Categories.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) SetCategoryStatus(ctx context.Context, id int, status models.RecordStatus) error {
	if !status.IsValid() {
		return apperr.Validationf("status inválido: %q", status)
	}
	return s.Categories.SetCategoryStatus(ctx, id, status)
}

func (s *CatalogService) ListProducts(ctx context.Context, includeInactive bool, categoryID int) ([]models.Product, error) {
	return s.Products.ListProducts(ctx, includeInactive, categoryID)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	return s.Products.GetProduct(ctx, id)
}

// CreateProduct registers a product with its opening stock
func (s *CatalogService) CreateProduct(ctx context.Context, req models.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, apperr.Validation("el stock inicial no puede ser negativo")
	}
	controla := true
	if req.ControlaStock != nil {
		controla = *req.ControlaStock
	}
	p := &models.Product{
		CategoriaID:   req.CategoriaID,
		Nombre:        strings.TrimSpace(req.Nombre),
		Descripcion:   req.Descripcion,
		Precio:        req.Precio,
		Stock:         req.Stock,
		ControlaStock: controla,
		Unidad:        unidadOrDefault(req.Unidad),
		Status:        models.StatusActivo,
	}
	if err := s.Products.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Printf("[Catalogo] Producto %d creado: %s", p.ID, p.Nombre)
	return p, nil
}

// UpdateProduct edits descriptive fields and price. req.Stock is ignored;
// stock only moves through adjustments and event commitments.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int, req models.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	p, err := s.Products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.CategoriaID = req.CategoriaID
	p.Nombre = strings.TrimSpace(req.Nombre)
	p.Descripcion = req.Descripcion
	p.Precio = req.Precio
	p.Unidad = unidadOrDefault(req.Unidad)
	if req.ControlaStock != nil {
		p.ControlaStock = *req.ControlaStock
	}
	if err := s.Products.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) SetProductStatus(ctx context.Context, id int, status models.RecordStatus) error {
	if !status.IsValid() {
		return apperr.Validationf("status inválido: %q", status)
	}
	return s.Products.SetProductStatus(ctx, id, status)
}

// ListMovements returns the most recent stock movements of a product
func (s *CatalogService) ListMovements(ctx context.Context, productID, limit int) ([]models.StockMovement, error) {
	if _, err := s.Products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Movements.ListMovements(ctx, productID, limit)
}

func validateProduct(req models.ProductRequest) error {
	if strings.TrimSpace(req.Nombre) == "" {
		return apperr.Validation("el nombre del producto es requerido")
	}
	if req.Precio.IsNegative() {
		return apperr.Validation("el precio no puede ser negativo")
	}
	if !req.Precio.Equal(req.Precio.Round(2)) {
		return apperr.Validation("el precio admite como máximo dos decimales")
	}
	return nil
}

func unidadOrDefault(u string) string {
	if strings.TrimSpace(u) == "" {
		return "pieza"
	}
	return strings.TrimSpace(u)
}

// nonNegative reports whether d is zero or positive
func nonNegative(d decimal.Decimal) bool {
	return !d.IsNegative()
}
