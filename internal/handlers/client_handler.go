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

type ClientHandler struct {
	Service *services.ClientService
	Salons  *services.SalonService
	logger  *log.Logger
}

func NewClientHandler(clients *services.ClientService, salons *services.SalonService, logger *log.Logger) *ClientHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ClientHandler{Service: clients, Salons: salons, logger: logger}
}

// List handles GET /api/clientes?q=&incluir_inactivos=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Service.List(r.Context(), includeInactive(r), r.URL.Query().Get("q"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	utils.JSON(w, http.StatusOK, clients)
}

// Get handles GET /api/clientes/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// Create handles POST /api/clientes
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ClientRequest
	if !decode(w, r, &req, false) {
		return
	}
	c, err := h.Service.Create(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusCreated, c)
}

// Update handles PUT /api/clientes/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ClientRequest
	if !decode(w, r, &req, false) {
		return
	}
	c, err := h.Service.Update(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// SetStatus handles PATCH /api/clientes/{id}/estado
func (h *ClientHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
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
	utils.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}

// ListSalons handles GET /api/salones
func (h *ClientHandler) ListSalons(w http.ResponseWriter, r *http.Request) {
	inactive := includeInactive(r)
	serveCached(w, r, h.logger, cache.SalonsKeyPrefix+strconv.FormatBool(inactive), func(ctx context.Context) (interface{}, error) {
		salons, err := h.Salons.List(ctx, inactive)
		if salons == nil {
			salons = []models.Salon{}
		}
		return salons, err
	})
}

// GetSalon handles GET /api/salones/{id}
func (h *ClientHandler) GetSalon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.Salons.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, s)
}

// CreateSalon handles POST /api/salones
func (h *ClientHandler) CreateSalon(w http.ResponseWriter, r *http.Request) {
	var req models.SalonRequest
	if !decode(w, r, &req, false) {
		return
	}
	s, err := h.Salons.Create(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateSalonCaches(r.Context())
	utils.JSON(w, http.StatusCreated, s)
}

// UpdateSalon handles PUT /api/salones/{id}
func (h *ClientHandler) UpdateSalon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.SalonRequest
	if !decode(w, r, &req, false) {
		return
	}
	s, err := h.Salons.Update(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateSalonCaches(r.Context())
	utils.JSON(w, http.StatusOK, s)
}

// SetSalonStatus handles PATCH /api/salones/{id}/estado
func (h *ClientHandler) SetSalonStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.SetStatusRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.Salons.SetStatus(r.Context(), id, req.Status); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	cache.InvalidateSalonCaches(r.Context())
	utils.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}
