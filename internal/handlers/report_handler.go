package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"eventos-backend/internal/services"
	"eventos-backend/internal/timeutil"
	"eventos-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
	logger  *log.Logger
}

func NewReportHandler(s *services.ReportService, logger *log.Logger) *ReportHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ReportHandler{Service: s, logger: logger}
}

// QuotePDF handles GET /api/eventos/{id}/cotizacion.pdf
func (h *ReportHandler) QuotePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	data, err := h.Service.QuotePDF(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	writeFile(w, "application/pdf", fmt.Sprintf("cotizacion_%d.pdf", id), data)
}

// ReceiptPDF handles GET /api/pagos/{id}/recibo.pdf
func (h *ReportHandler) ReceiptPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	data, err := h.Service.ReceiptPDF(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	writeFile(w, "application/pdf", fmt.Sprintf("recibo_%06d.pdf", id), data)
}

// EventsCSV handles GET /api/reportes/eventos.csv?desde=&hasta=
func (h *ReportHandler) EventsCSV(w http.ResponseWriter, r *http.Request) {
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
	data, err := h.Service.EventsCSV(r.Context(), desde, hasta)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	filename := fmt.Sprintf("eventos_%s.csv", timeutil.Now().Format("2006-01-02"))
	writeFile(w, "text/csv", filename, data)
}

func writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
