package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"eventos-backend/internal/cache"
	"eventos-backend/internal/models"
	"eventos-backend/internal/services"
	"eventos-backend/pkg/utils"
)

// CatalogHandler serves categories and products. Listings are cached in
// redis and dropped on every write that changes them.
type CatalogHandler struct {
	Service *services.CatalogService
	logger  *log.Logger
}

func NewCatalogHandler(s *services.CatalogService, logger *log.Logger) *CatalogHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &CatalogHandler{Service: s, logger: logger}
}

// ListCategories handles GET /api/categorias
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	inactive := includeInactive(r)
	key := cache.CategoriesKeyPrefix + strconv.FormatBool(inactive)
	serveCached(w, r, h.logger, key, func(ctx context.Context) (interface{}, error) {
		cats, err := h.Service.ListCategories(ctx, inactive)
		if cats == nil {
			cats = []models.Category{}
		}
		return cats, err
	})
}

// GetCategory handles GET /api/categorias/{id}
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.GetCategory(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// CreateCategory handles POST /api/categorias
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if !decode(w, r, &req, false) {
		return
	}
	c, err := h.Service.CreateCategory(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateCategoryCaches(r.Context())
	utils.JSON(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/categorias/{id}
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.CategoryRequest
	if !decode(w, r, &req, false) {
		return
	}
	c, err := h.Service.UpdateCategory(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateCategoryCaches(r.Context())
	utils.JSON(w, http.StatusOK, c)
}

// SetCategoryStatus handles PATCH /api/categorias/{id}/estado
func (h *CatalogHandler) SetCategoryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.SetStatusRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.Service.SetCategoryStatus(r.Context(), id, req.Status); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateCategoryCaches(r.Context())
	utils.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}

// ListProducts handles GET /api/productos?categoria_id=&incluir_inactivos=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	inactive := includeInactive(r)
	categoryID := queryInt(r, "categoria_id")
	key := cache.ProductsKeyPrefix + strconv.FormatBool(inactive) + ":" + strconv.Itoa(categoryID)
	serveCached(w, r, h.logger, key, func(ctx context.Context) (interface{}, error) {
		products, err := h.Service.ListProducts(ctx, inactive, categoryID)
		if products == nil {
			products = []models.Product{}
		}
		return products, err
	})
}

// GetProduct handles GET /api/productos/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Service.GetProduct(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/productos
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRequest
	if !decode(w, r, &req, false) {
		return
	}
	p, err := h.Service.CreateProduct(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateProductCaches(r.Context())
	utils.JSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/productos/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ProductRequest
	if !decode(w, r, &req, false) {
		return
	}
	p, err := h.Service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateProductCaches(r.Context())
	cache.InvalidatePlanCaches(r.Context())
	utils.JSON(w, http.StatusOK, p)
}

// SetProductStatus handles PATCH /api/productos/{id}/estado
func (h *CatalogHandler) SetProductStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.SetStatusRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.Service.SetProductStatus(r.Context(), id, req.Status); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateProductCaches(r.Context())
	utils.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}

// ListMovements handles GET /api/productos/{id}/movimientos?limit=
func (h *CatalogHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	moves, err := h.Service.ListMovements(r.Context(), id, queryInt(r, "limit"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if moves == nil {
		moves = []models.StockMovement{}
	}
	utils.JSON(w, http.StatusOK, moves)
}
