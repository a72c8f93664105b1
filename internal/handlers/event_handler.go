package handlers

import (
	"log"
	"net/http"

	"eventos-backend/internal/cache"
	"eventos-backend/internal/models"
	"eventos-backend/internal/services"
	"eventos-backend/pkg/utils"
)

// EventHandler serves bookings, their product lines and their checklist
type EventHandler struct {
	Service *services.EventService
	logger  *log.Logger
}

func NewEventHandler(s *services.EventService, logger *log.Logger) *EventHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &EventHandler{Service: s, logger: logger}
}

// Create handles POST /api/eventos
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if !decode(w, r, &req, false) {
		return
	}
	ev, err := h.Service.Create(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusCreated, ev)
}

// List handles GET /api/eventos?estado=&cliente_id=&desde=&hasta=&limit=&offset=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	desde, err := queryDate(r, "desde")
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	hasta, err := queryDate(r, "hasta")
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	events, err := h.Service.List(r.Context(), models.EventFilter{
		Estado:    models.EventState(r.URL.Query().Get("estado")),
		ClienteID: queryInt(r, "cliente_id"),
		Desde:     desde,
		Hasta:     hasta,
		Limit:     queryInt(r, "limit"),
		Offset:    queryInt(r, "offset"),
	})
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	utils.JSON(w, http.StatusOK, events)
}

// Get handles GET /api/eventos/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ev, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, ev)
}

// ChangeState handles PUT /api/eventos/{id}/estado
func (h *EventHandler) ChangeState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ChangeStateRequest
	if !decode(w, r, &req, false) {
		return
	}
	ev, err := h.Service.ChangeState(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateProductCaches(r.Context())
	utils.JSON(w, http.StatusOK, ev)
}

// AttachProduct handles POST /api/eventos/{id}/productos
func (h *EventHandler) AttachProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.AttachProductRequest
	if !decode(w, r, &req, false) {
		return
	}
	detail, err := h.Service.AttachProduct(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateProductCaches(r.Context())
	utils.JSON(w, http.StatusOK, detail)
}

// DetachProduct handles DELETE /api/eventos/{id}/productos/{producto_id}
func (h *EventHandler) DetachProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "producto_id")
	if !ok {
		return
	}
	var req models.DetachProductRequest
	if !decode(w, r, &req, true) {
		return
	}
	if req.Nota == "" {
		req.Nota = r.URL.Query().Get("nota")
	}
	detail, err := h.Service.DetachProduct(r.Context(), id, productID, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateProductCaches(r.Context())
	utils.JSON(w, http.StatusOK, detail)
}

// RecalculateTotal handles POST /api/eventos/{id}/recalcular
func (h *EventHandler) RecalculateTotal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	total, err := h.Service.RecalculateTotal(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"evento_id": id, "total": total})
}

// Delete handles DELETE /api/eventos/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateProductCaches(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Rate handles PUT /api/eventos/{id}/calificacion
func (h *EventHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.RateEventRequest
	if !decode(w, r, &req, false) {
		return
	}
	ev, err := h.Service.Rate(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, ev)
}

// GetChecklist handles GET /api/eventos/{id}/servicios
func (h *EventHandler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.GetChecklist(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// AddChecklistItem handles POST /api/eventos/{id}/servicios
func (h *EventHandler) AddChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.AddChecklistItemRequest
	if !decode(w, r, &req, false) {
		return
	}
	c, err := h.Service.AddChecklistItem(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusCreated, c)
}

// UpdateChecklistItem handles PUT /api/eventos/{id}/servicios/{item_id}
func (h *EventHandler) UpdateChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	var req models.UpdateChecklistItemRequest
	if !decode(w, r, &req, false) {
		return
	}
	c, err := h.Service.UpdateChecklistItem(r.Context(), id, itemID, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// DeleteChecklistItem handles DELETE /api/eventos/{id}/servicios/{item_id}
func (h *EventHandler) DeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	c, err := h.Service.DeleteChecklistItem(r.Context(), id, itemID)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// RegenerateChecklist handles POST /api/eventos/{id}/servicios/regenerar
func (h *EventHandler) RegenerateChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.RegenerateChecklist(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// PlanAvailability handles GET /api/planes/{id}/disponibilidad
func (h *EventHandler) PlanAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	shortages, err := h.Service.PlanAvailability(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if shortages == nil {
		shortages = []models.StockShortage{}
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"disponible": len(shortages) == 0,
		"faltantes":  shortages,
	})
}

// AdjustStock handles PUT /api/productos/{id}/stock
func (h *EventHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.StockAdjustRequest
	if !decode(w, r, &req, false) {
		return
	}
	p, err := h.Service.AdjustStock(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateProductCaches(r.Context())
	utils.JSON(w, http.StatusOK, p)
}
