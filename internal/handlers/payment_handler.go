package handlers

import (
	"log"
	"net/http"

	"eventos-backend/internal/cache"
	"eventos-backend/internal/models"
	"eventos-backend/internal/services"
	"eventos-backend/pkg/utils"
)

type PaymentHandler struct {
	Service *services.PaymentService
	Online  *services.RazorpayService
	logger  *log.Logger
}

func NewPaymentHandler(s *services.PaymentService, online *services.RazorpayService, logger *log.Logger) *PaymentHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &PaymentHandler{Service: s, Online: online, logger: logger}
}

// Register handles POST /api/eventos/{id}/pagos
func (h *PaymentHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.CreatePaymentRequest
	if !decode(w, r, &req, false) {
		return
	}
	result, err := h.Service.Register(r.Context(), id, actingUser(r), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if result.AutoAvanzado {
		cache.InvalidateProductCaches(r.Context())
	}
	utils.JSON(w, http.StatusCreated, result)
}

// List handles GET /api/eventos/{id}/pagos
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pagos, err := h.Service.List(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if pagos == nil {
		pagos = []models.Payment{}
	}
	utils.JSON(w, http.StatusOK, pagos)
}

// Get handles GET /api/pagos/{id}
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// Delete handles DELETE /api/pagos/{id} and returns the event with its new saldo
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ev, err := h.Service.Delete(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, ev)
}

// OnlineStatus handles GET /api/pagos-en-linea/estado
func (h *PaymentHandler) OnlineStatus(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]bool{"habilitado": h.Online != nil && h.Online.IsEnabled()})
}

// CreateOnlineOrder handles POST /api/eventos/{id}/pago-en-linea
func (h *PaymentHandler) CreateOnlineOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.CreateOnlineOrderRequest
	if !decode(w, r, &req, true) {
		return
	}
	if h.Online == nil {
		utils.Error(w, http.StatusServiceUnavailable, "Online payments are not configured")
		return
	}
	resp, err := h.Online.CreateOrder(r.Context(), id, req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

// VerifyOnline handles POST /api/pagos-en-linea/verificar
func (h *PaymentHandler) VerifyOnline(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOnlinePaymentRequest
	if !decode(w, r, &req, false) {
		return
	}
	if h.Online == nil {
		utils.Error(w, http.StatusServiceUnavailable, "Online payments are not configured")
		return
	}
	result, err := h.Online.Verify(r.Context(), actingUser(r), req)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if result.AutoAvanzado {
		cache.InvalidateProductCaches(r.Context())
	}
	utils.JSON(w, http.StatusOK, result)
}
