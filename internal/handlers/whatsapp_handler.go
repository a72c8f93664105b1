package handlers

import (
	"errors"
	"log"
	"net/http"

	"eventos-backend/internal/models"
	"eventos-backend/internal/whatsapp"
	"eventos-backend/pkg/utils"
)

type WhatsAppHandler struct {
	Dispatcher *whatsapp.Dispatcher
	logger     *log.Logger
}

func NewWhatsAppHandler(d *whatsapp.Dispatcher, logger *log.Logger) *WhatsAppHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WhatsAppHandler{Dispatcher: d, logger: logger}
}

// List handles GET /api/whatsapp/mensajes?estado=&evento_id=&limit=
func (h *WhatsAppHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Dispatcher.List(r.Context(), models.WhatsAppMessageFilter{
		Estado:   r.URL.Query().Get("estado"),
		EventoID: queryInt(r, "evento_id"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []models.WhatsAppMessage{}
	}
	utils.JSON(w, http.StatusOK, msgs)
}

// Retry handles POST /api/whatsapp/mensajes/{id}/reintentar
func (h *WhatsAppHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	msg, err := h.Dispatcher.Retry(r.Context(), id)
	if errors.Is(err, whatsapp.ErrDisabled) {
		utils.Error(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	// A failed send still answers 200 with the row and its ultimo_error
	utils.JSON(w, http.StatusOK, msg)
}
