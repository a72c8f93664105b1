package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"eventos-backend/internal/models"
	"eventos-backend/internal/storage"
	"eventos-backend/internal/store"
	"eventos-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// Archiver keeps a copy of generated documents
type Archiver interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// ReportService renders quotes, receipts and exports
type ReportService struct {
	events   *EventService
	payments *PaymentService
	archive  Archiver

	// Business is printed in every document header
	Business string
	// VerifyBaseURL is encoded in receipt QR codes followed by the payment id
	VerifyBaseURL string

	logger *log.Logger
}

func NewReportService(events *EventService, payments *PaymentService, archive Archiver, business, verifyBaseURL string, logger *log.Logger) *ReportService {
	if business == "" {
		business = "Eventos"
	}
	return &ReportService{
		events:        events,
		payments:      payments,
		archive:       archive,
		Business:      business,
		VerifyBaseURL: verifyBaseURL,
		logger:        loggerOrDefault(logger),
	}
}

// QuotePDF renders the event quote: plan, extra products, totals, saldo and
// checklist progress. The copy is archived when storage is configured.
func (s *ReportService) QuotePDF(ctx context.Context, eventID int) ([]byte, error) {
	detail, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	var plan *models.Plan
	if detail.PlanID != nil {
		err := s.events.store.InTx(ctx, func(tx store.Tx) error {
			p, err := tx.GetPlan(ctx, *detail.PlanID)
			plan = p
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	data, err := s.renderQuote(detail, plan)
	if err != nil {
		return nil, err
	}
	s.store(ctx, storage.QuoteKey(eventID), data)
	return data, nil
}

// ReceiptPDF renders one payment with a QR code pointing at its verification URL
func (s *ReportService) ReceiptPDF(ctx context.Context, paymentID int) ([]byte, error) {
	pago, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	detail, err := s.events.Get(ctx, pago.EventoID)
	if err != nil {
		return nil, err
	}
	data, err := s.renderReceipt(pago, &detail.Event)
	if err != nil {
		return nil, err
	}
	s.store(ctx, storage.ReceiptKey(pago.EventoID, pago.ID), data)
	return data, nil
}

// EventsCSV exports events in the date range with their derived balances
func (s *ReportService) EventsCSV(ctx context.Context, desde, hasta *time.Time) ([]byte, error) {
	events, err := s.events.List(ctx, models.EventFilter{Desde: desde, Hasta: hasta})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{
		"ID", "Evento", "Cliente", "Fecha", "Estado", "Invitados",
		"Total", "Pagado", "Reembolsos", "Saldo", "Calificacion",
	})
	for _, e := range events {
		rating := ""
		if e.Calificacion != nil {
			rating = strconv.Itoa(*e.Calificacion)
		}
		w.Write([]string{
			strconv.Itoa(e.ID),
			e.Nombre,
			e.ClienteNombre,
			timeutil.FormatDate(e.FechaEvento),
			string(e.Estado),
			strconv.Itoa(e.CantidadInvitados),
			e.Total.StringFixed(2),
			e.TotalPagado.StringFixed(2),
			e.TotalReembolsos.StringFixed(2),
			e.Saldo.StringFixed(2),
			rating,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// store archives a document; failures only cost the copy
func (s *ReportService) store(ctx context.Context, key string, data []byte) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Put(ctx, key, "application/pdf", data); err != nil {
		s.logger.Printf("[Reportes] No se archivó %s: %v", key, err)
	}
}

func (s *ReportService) header(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, tr(s.Business+" - "+title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, tr("Generado: "+timeutil.Now().Format("02/01/2006 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(5)
}

func (s *ReportService) renderQuote(d *models.EventDetail, plan *models.Plan) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	s.header(pdf, tr, "Cotización")

	// Event box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, tr(fmt.Sprintf("Evento #%d: %s", d.ID, d.Nombre)), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, tr("Cliente: "+d.ClienteNombre), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Teléfono: "+d.ClienteTelefono), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr(fmt.Sprintf("Fecha: %s %s-%s", d.FechaEvento.In(timeutil.Local).Format("02/01/2006"), d.HoraInicio, d.HoraFin)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr(fmt.Sprintf("Invitados: %d   Estado: %s", d.CantidadInvitados, d.Estado)), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Plan
	if plan != nil {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 8, tr("Plan"), "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(140, 7, tr(plan.Nombre), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, money(d.PlanPrecioBase), "1", 1, "R", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, pp := range d.Paquete {
			pdf.CellFormat(140, 6, tr(fmt.Sprintf("  %d x %s", pp.Cantidad, truncate(pp.ProductoNombre, 60))), "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, 6, tr("incluido"), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(5)
	}

	// Extra products
	if len(d.Productos) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 8, tr("Productos adicionales"), "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(90, 7, tr("Producto"), "1", 0, "C", true, 0, "")
		pdf.CellFormat(25, 7, tr("Cantidad"), "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, tr("Precio"), "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, tr("Subtotal"), "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, l := range d.Productos {
			pdf.CellFormat(90, 6, tr(truncate(l.ProductoNombre, 45)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, strconv.Itoa(l.Cantidad), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, money(l.PrecioUnitario), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, 6, money(l.Subtotal()), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(5)
	}

	// Totals
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, tr("Resumen"), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, "Total: "+money(d.Total), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, "Pagado: "+money(d.TotalPagado), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, "Reembolsos: "+money(d.TotalReembolsos), "1", 1, "C", false, 0, "")

	if d.Saldo.IsPositive() {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	saldo := "Saldo pendiente: " + money(d.Saldo)
	if !d.Saldo.IsPositive() {
		saldo = "LIQUIDADO"
	}
	pdf.CellFormat(190, 10, tr(saldo), "1", 1, "C", true, 0, "")

	// Checklist
	if len(d.Servicios.Items) > 0 {
		pdf.Ln(5)
		pdf.SetFillColor(240, 240, 240)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 8, tr(fmt.Sprintf("Servicios (avance %.2f%%)", d.Servicios.Progreso)), "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, it := range d.Servicios.Items {
			mark := "[ ]"
			switch {
			case it.Descartado:
				mark = "[-]"
			case it.Completado:
				mark = "[x]"
			}
			pdf.CellFormat(190, 6, tr(mark+" "+it.Nombre), "1", 1, "L", false, 0, "")
		}
	}

	if d.Observaciones != "" {
		pdf.Ln(5)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(190, 5, tr("Observaciones: "+d.Observaciones), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ReportService) renderReceipt(p *models.Payment, ev *models.Event) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := "Recibo de pago"
	if p.Tipo == models.PagoTipoReembolso {
		title = "Comprobante de reembolso"
	}
	s.header(pdf, tr, title)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, tr(fmt.Sprintf("Folio %06d", p.ID)), "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{"Evento", fmt.Sprintf("#%d %s", ev.ID, ev.Nombre)},
		{"Cliente", ev.ClienteNombre},
		{"Fecha de pago", p.FechaPago.In(timeutil.Local).Format("02/01/2006")},
		{"Monto", money(p.Monto)},
		{"Método", p.Metodo},
		{"Referencia", p.Referencia},
		{"Saldo pendiente", money(ev.Saldo)},
	}
	for _, r := range rows {
		pdf.CellFormat(60, 7, tr(r[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(130, 7, tr(r[1]), "1", 1, "L", false, 0, "")
	}

	if s.VerifyBaseURL != "" {
		png, err := qrcode.Encode(fmt.Sprintf("%s/%d", s.VerifyBaseURL, p.ID), qrcode.Medium, 256)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("qr_%d", p.ID)
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
		pdf.Ln(8)
		pdf.ImageOptions(name, 80, pdf.GetY(), 50, 50, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetY(pdf.GetY() + 52)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(190, 5, tr("Escanee para verificar este comprobante"), "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
