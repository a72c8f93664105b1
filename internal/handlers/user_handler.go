package handlers

import (
	"log"
	"net/http"

	"eventos-backend/internal/middleware"
	"eventos-backend/internal/models"
	"eventos-backend/internal/services"
	"eventos-backend/pkg/utils"
)

// UserHandler is the admin's staff management
type UserHandler struct {
	Service *services.UserService
	logger  *log.Logger
}

func NewUserHandler(s *services.UserService, logger *log.Logger) *UserHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &UserHandler{Service: s, logger: logger}
}

// List handles GET /api/usuarios
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	utils.JSON(w, http.StatusOK, users)
}

// Get handles GET /api/usuarios/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, u)
}

// Create handles POST /api/usuarios
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decode(w, r, &req, false) {
		return
	}
	u, err := h.Service.CreateUser(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusCreated, u)
}

// Update handles PUT /api/usuarios/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if !decode(w, r, &req, false) {
		return
	}
	u, err := h.Service.UpdateUser(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, u)
}

// SetStatus handles PATCH /api/usuarios/{id}/estado
func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actingID, _ := middleware.GetUserIDFromContext(r.Context())
	var req models.SetStatusRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.Service.SetStatus(r.Context(), id, actingID, req.Status); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}
