package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error    string                 `json:"error"`
	Kind     apperr.Kind            `json:"kind,omitempty"`
	Detalles []models.StockShortage `json:"detalles,omitempty"`
	Count    int                    `json:"count,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes a plain error envelope
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{Error: msg})
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError classifies err and writes the envelope. Infrastructure failures
// are logged and answered with a generic message.
func WriteError(w http.ResponseWriter, logger *log.Logger, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Infrastructure(err)
	}
	if ae.Kind == apperr.KindInfrastructure {
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("[API] %v", err)
		JSON(w, http.StatusInternalServerError, ErrorResponse{Error: "error interno", Kind: ae.Kind})
		return
	}
	msg := ae.Message
	if msg == "" {
		msg = ae.Error()
	}
	JSON(w, StatusFor(ae.Kind), ErrorResponse{
		Error:    msg,
		Kind:     ae.Kind,
		Detalles: ae.Details,
		Count:    ae.Count,
	})
}
