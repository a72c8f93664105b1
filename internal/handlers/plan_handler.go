package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"eventos-backend/internal/cache"
	"eventos-backend/internal/models"
	"eventos-backend/internal/services"
	"eventos-backend/pkg/utils"
)

type PlanHandler struct {
	Service *services.PlanService
	logger  *log.Logger
}

func NewPlanHandler(s *services.PlanService, logger *log.Logger) *PlanHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &PlanHandler{Service: s, logger: logger}
}

// List handles GET /api/planes
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	inactive := includeInactive(r)
	key := cache.PlansKeyPrefix + strconv.FormatBool(inactive)
	serveCached(w, r, h.logger, key, func(ctx context.Context) (interface{}, error) {
		plans, err := h.Service.List(ctx, inactive)
		if plans == nil {
			plans = []models.Plan{}
		}
		return plans, err
	})
}

// Get handles GET /api/planes/{id}
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, p)
}

// Create handles POST /api/planes
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.PlanRequest
	if !decode(w, r, &req, false) {
		return
	}
	p, err := h.Service.Create(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidatePlanCaches(r.Context())
	utils.JSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/planes/{id}
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.PlanRequest
	if !decode(w, r, &req, false) {
		return
	}
	p, err := h.Service.Update(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidatePlanCaches(r.Context())
	utils.JSON(w, http.StatusOK, p)
}

// SetStatus handles PATCH /api/planes/{id}/estado. Deactivating a plan that
// open events use answers 409 with the number of events.
func (h *PlanHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.SetStatusRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.Service.SetStatus(r.Context(), id, req.Status); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidatePlanCaches(r.Context())
	utils.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}

// serveCached is the read-through used by every catalog listing
func serveCached(w http.ResponseWriter, r *http.Request, logger *log.Logger, key string, load func(ctx context.Context) (interface{}, error)) {
	ctx := r.Context()
	if data, ok := cache.GetCached(ctx, key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Write(data)
		return
	}

	v, err := load(ctx)
	if err != nil {
		utils.WriteError(w, logger, err)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		utils.WriteError(w, logger, err)
		return
	}
	cache.SetCached(ctx, key, data, cache.CatalogTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Write(data)
}
