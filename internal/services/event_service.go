package services

import (
	"context"
	"log"
	"strings"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/metrics"
	"eventos-backend/internal/models"
	"eventos-backend/internal/store"
	"eventos-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// Notifier receives lifecycle notices after the write has committed
type Notifier interface {
	Notify(ctx context.Context, n models.Notice) error
}

const notifyTimeout = 10 * time.Second

// EventService owns the event lifecycle: booking, state changes, product
// lines, totals and the service checklist. Each operation locks the event
// row for its whole check-then-write sequence.
type EventService struct {
	store    store.Store
	stock    *StockLedger
	composer *PlanComposer
	ledger   *PaymentLedger
	notifier Notifier
	logger   *log.Logger
}

func NewEventService(st store.Store, stock *StockLedger, composer *PlanComposer, ledger *PaymentLedger, notifier Notifier, logger *log.Logger) *EventService {
	return &EventService{
		store:    st,
		stock:    stock,
		composer: composer,
		ledger:   ledger,
		notifier: notifier,
		logger:   loggerOrDefault(logger),
	}
}

// Create books a new event in cotizacion. With a plan, the base price,
// bundled products and checklist are copied onto the event.
func (s *EventService) Create(ctx context.Context, req models.CreateEventRequest) (*models.EventDetail, error) {
	fecha, err := validateCreateEvent(req)
	if err != nil {
		return nil, err
	}

	var detail *models.EventDetail
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetClient(ctx, req.ClienteID); err != nil {
			return err
		}
		precioBase := decimal.Zero
		if req.PlanID != nil {
			plan, err := tx.GetPlan(ctx, *req.PlanID)
			if err != nil {
				return err
			}
			if plan.Status != models.StatusActivo {
				return apperr.Validationf("el plan %q está inactivo", plan.Nombre)
			}
			precioBase = plan.PrecioBase
		}

		ev := &models.Event{
			ClienteID:         req.ClienteID,
			CoordinadorID:     req.CoordinadorID,
			SalonID:           req.SalonID,
			PlanID:            req.PlanID,
			Nombre:            strings.TrimSpace(req.Nombre),
			FechaEvento:       fecha,
			HoraInicio:        req.HoraInicio,
			HoraFin:           req.HoraFin,
			CantidadInvitados: req.CantidadInvitados,
			Estado:            models.EstadoCotizacion,
			Total:             decimal.Zero,
			PlanPrecioBase:    precioBase,
			Observaciones:     req.Observaciones,
		}
		if err := tx.CreateEvent(ctx, ev); err != nil {
			return err
		}
		if req.PlanID != nil {
			if err := s.composer.CopyBundle(ctx, tx, ev.ID, *req.PlanID); err != nil {
				return err
			}
			if _, err := s.composer.CreateFromPlan(ctx, tx, ev.ID, *req.PlanID); err != nil {
				return err
			}
		}
		if _, err := s.recalculateTotal(ctx, tx, ev); err != nil {
			return err
		}
		detail, err = s.detail(ctx, tx, ev.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("[Eventos] Evento %d creado para cliente %d", detail.ID, detail.ClienteID)
	s.notify(ctx, models.NewNotice(models.AvisoEventoCreado, &detail.Event, timeutil.Now()))
	return detail, nil
}

// Get returns the event with lines, checklist, payments and a fresh saldo
func (s *EventService) Get(ctx context.Context, id int) (*models.EventDetail, error) {
	var detail *models.EventDetail
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		detail, err = s.detail(ctx, tx, id)
		return err
	})
	return detail, err
}

func (s *EventService) List(ctx context.Context, f models.EventFilter) ([]models.Event, error) {
	var events []models.Event
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		events, err = tx.ListEvents(ctx, f)
		if err != nil {
			return err
		}
		for i := range events {
			totals, err := s.ledger.Totals(ctx, tx, events[i].ID)
			if err != nil {
				return err
			}
			events[i].ApplyTotals(totals)
		}
		return nil
	})
	return events, err
}

// ChangeState moves the event to req.Estado when every guard passes
func (s *EventService) ChangeState(ctx context.Context, id int, req models.ChangeStateRequest) (*models.Event, error) {
	var (
		ev   *models.Event
		from models.EventState
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		cur, err := tx.LockEvent(ctx, id)
		if err != nil {
			return err
		}
		from = cur.Estado
		if err := s.transition(ctx, tx, cur, req.Estado); err != nil {
			return err
		}
		ev, err = s.load(ctx, tx, id)
		return err
	})
	if from != "" {
		metrics.StateTransitions.WithLabelValues(string(from), string(req.Estado), metrics.Result(err)).Inc()
	}
	if err != nil {
		return nil, err
	}

	s.logger.Printf("[Eventos] Evento %d: %s → %s", id, from, ev.Estado)
	n := models.NewNotice(models.AvisoEstadoCambiado, ev, timeutil.Now())
	n.EstadoAnterior = from
	s.notify(ctx, n)
	return ev, nil
}

// transition runs every guard against a locked event and applies the new
// state. Guards fail before the first write, so a rejected transition leaves
// the transaction untouched.
func (s *EventService) transition(ctx context.Context, tx store.Tx, ev *models.Event, to models.EventState) error {
	totals, err := s.ledger.Totals(ctx, tx, ev.ID)
	if err != nil {
		return err
	}
	if err := CheckTransition(ev.Estado, to, models.Saldo(ev.Total, totals)); err != nil {
		return err
	}

	switch {
	case entersStockZone(ev.Estado, to):
		reqs, err := s.stock.Requirements(ctx, tx, ev)
		if err != nil {
			return err
		}
		if err := s.stock.Commit(ctx, tx, ev.ID, reqs); err != nil {
			return err
		}
	case leavesStockZone(ev.Estado, to):
		if err := s.stock.Release(ctx, tx, ev.ID); err != nil {
			return err
		}
	}

	if err := tx.UpdateEventState(ctx, ev.ID, to); err != nil {
		return err
	}
	ev.Estado = to
	return nil
}

// AttachProduct adds a product line or replaces the existing one for the same product
func (s *EventService) AttachProduct(ctx context.Context, eventID int, req models.AttachProductRequest) (*models.EventDetail, error) {
	if req.ProductoID <= 0 {
		return nil, apperr.Validation("producto_id es requerido")
	}
	if req.Cantidad <= 0 {
		return nil, apperr.Validation("la cantidad debe ser mayor a cero")
	}
	if req.PrecioUnitario != nil && req.PrecioUnitario.IsNegative() {
		return nil, apperr.Validation("el precio unitario no puede ser negativo")
	}

	var detail *models.EventDetail
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.Estado == models.EstadoCompletado {
			return apperr.Validation("no se pueden modificar los productos de un evento completado")
		}
		product, err := tx.GetProduct(ctx, req.ProductoID)
		if err != nil {
			return err
		}
		if product.Status != models.StatusActivo {
			return apperr.Validationf("el producto %q está inactivo", product.Nombre)
		}

		oldQty := 0
		if old, err := tx.GetEventLine(ctx, eventID, req.ProductoID); err == nil {
			oldQty = old.Cantidad
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}

		if ev.Estado.CommitsStock() {
			err = s.stock.ApplyDelta(ctx, tx, eventID, product, req.Cantidad-oldQty)
		} else {
			err = s.stock.ValidateProduct(ctx, tx, product.ID, req.Cantidad)
		}
		if err != nil {
			return err
		}

		price := product.Precio
		if req.PrecioUnitario != nil {
			price = *req.PrecioUnitario
		}
		line := &models.EventProductLine{
			EventoID:       eventID,
			ProductoID:     product.ID,
			Cantidad:       req.Cantidad,
			PrecioUnitario: price,
		}
		if err := tx.UpsertEventLine(ctx, line); err != nil {
			return err
		}
		if _, err := s.recalculateTotal(ctx, tx, ev); err != nil {
			return err
		}
		detail, err = s.detail(ctx, tx, eventID)
		return err
	})
	return detail, err
}

// DetachProduct removes the product's line; the note is only logged
func (s *EventService) DetachProduct(ctx context.Context, eventID, productID int, req models.DetachProductRequest) (*models.EventDetail, error) {
	var detail *models.EventDetail
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.Estado == models.EstadoCompletado {
			return apperr.Validation("no se pueden modificar los productos de un evento completado")
		}
		line, err := tx.GetEventLine(ctx, eventID, productID)
		if err != nil {
			return err
		}
		if ev.Estado.CommitsStock() {
			product, err := tx.GetProduct(ctx, productID)
			if err != nil {
				return err
			}
			if err := s.stock.ApplyDelta(ctx, tx, eventID, product, -line.Cantidad); err != nil {
				return err
			}
		}
		if err := tx.DeleteEventLine(ctx, eventID, productID); err != nil {
			return err
		}
		if _, err := s.recalculateTotal(ctx, tx, ev); err != nil {
			return err
		}
		detail, err = s.detail(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if nota := strings.TrimSpace(req.Nota); nota != "" {
		s.logger.Printf("[Eventos] Producto %d retirado del evento %d: %s", productID, eventID, nota)
	} else {
		s.logger.Printf("[Eventos] Producto %d retirado del evento %d", productID, eventID)
	}
	return detail, nil
}

// RecalculateTotal recomputes and persists the event total
func (s *EventService) RecalculateTotal(ctx context.Context, eventID int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		total, err = s.recalculateTotal(ctx, tx, ev)
		return err
	})
	return total, err
}

// recalculateTotal is the booked plan base price plus the sum of every line subtotal
func (s *EventService) recalculateTotal(ctx context.Context, tx store.Tx, ev *models.Event) (decimal.Decimal, error) {
	total := ev.PlanPrecioBase
	lines, err := tx.ListEventLines(ctx, ev.ID)
	if err != nil {
		return decimal.Zero, err
	}
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	if err := tx.UpdateEventTotal(ctx, ev.ID, total); err != nil {
		return decimal.Zero, err
	}
	ev.Total = total
	return total, nil
}

// Delete removes an event whose payments are fully refunded
func (s *EventService) Delete(ctx context.Context, id int) error {
	var ev *models.Event
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		ev, err = tx.LockEvent(ctx, id)
		if err != nil {
			return err
		}
		totals, err := s.ledger.Totals(ctx, tx, id)
		if err != nil {
			return err
		}
		if net := totals.NetPaid(); net.IsPositive() {
			payments, err := tx.ListPayments(ctx, id)
			if err != nil {
				return err
			}
			return apperr.Conflict(
				"el evento tiene pagos sin reembolsar por "+net.StringFixed(2)+"; registre el reembolso antes de eliminarlo",
				len(payments))
		}
		if ev.Estado.CommitsStock() {
			if err := s.stock.Release(ctx, tx, id); err != nil {
				return err
			}
		}
		return tx.DeleteEvent(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Printf("[Eventos] Evento %d eliminado", id)
	s.notify(ctx, models.NewNotice(models.AvisoEventoEliminado, ev, timeutil.Now()))
	return nil
}

// Rate stores the client's rating of a completed event
func (s *EventService) Rate(ctx context.Context, id int, req models.RateEventRequest) (*models.Event, error) {
	if req.Calificacion < 1 || req.Calificacion > 5 {
		return nil, apperr.Validation("la calificación debe estar entre 1 y 5")
	}
	var ev *models.Event
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		cur, err := tx.LockEvent(ctx, id)
		if err != nil {
			return err
		}
		if cur.Estado != models.EstadoCompletado {
			return apperr.Validation("solo se califican eventos completados")
		}
		if err := tx.UpdateEventRating(ctx, id, req.Calificacion, strings.TrimSpace(req.Comentario)); err != nil {
			return err
		}
		ev, err = s.load(ctx, tx, id)
		return err
	})
	return ev, err
}

// PlanAvailability reports every bundled product of the plan that is short on stock
func (s *EventService) PlanAvailability(ctx context.Context, planID int) ([]models.StockShortage, error) {
	var shortages []models.StockShortage
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetPlan(ctx, planID); err != nil {
			return err
		}
		var err error
		shortages, err = s.stock.ValidatePlan(ctx, tx, planID)
		return err
	})
	if shortages == nil && err == nil {
		shortages = []models.StockShortage{}
	}
	return shortages, err
}

// AdjustStock applies a manual restock or write-off to a product
func (s *EventService) AdjustStock(ctx context.Context, productID int, req models.StockAdjustRequest) (*models.Product, error) {
	if req.Delta == 0 {
		return nil, apperr.Validation("delta no puede ser cero")
	}
	var p *models.Product
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = s.stock.Adjust(ctx, tx, productID, req.Delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[Stock] Ajuste de %+d al producto %d: %s", req.Delta, productID, req.Motivo)
	return p, nil
}

func (s *EventService) load(ctx context.Context, tx store.Tx, id int) (*models.Event, error) {
	ev, err := tx.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	totals, err := s.ledger.Totals(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	ev.ApplyTotals(totals)
	return ev, nil
}

func (s *EventService) detail(ctx context.Context, tx store.Tx, id int) (*models.EventDetail, error) {
	ev, err := s.load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	lines, err := tx.ListEventLines(ctx, id)
	if err != nil {
		return nil, err
	}
	bundle, err := tx.ListEventPlanProducts(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := tx.ListChecklist(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := tx.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []models.EventProductLine{}
	}
	if bundle == nil {
		bundle = []models.PlanProduct{}
	}
	if items == nil {
		items = []models.ChecklistItem{}
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return &models.EventDetail{
		Event:     *ev,
		Productos: lines,
		Paquete:   bundle,
		Servicios: models.Checklist{Items: items, Progreso: Progress(items)},
		Pagos:     payments,
	}, nil
}

// notify hands a committed notice to the sinks; failures are only logged
func (s *EventService) notify(ctx context.Context, n models.Notice) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Printf("[Eventos] Aviso %s del evento %d no entregado: %v", n.Tipo, n.EventoID, err)
	}
}

func validateCreateEvent(req models.CreateEventRequest) (time.Time, error) {
	if req.ClienteID <= 0 {
		return time.Time{}, apperr.Validation("cliente_id es requerido")
	}
	if strings.TrimSpace(req.Nombre) == "" {
		return time.Time{}, apperr.Validation("el nombre del evento es requerido")
	}
	if req.CantidadInvitados < 0 {
		return time.Time{}, apperr.Validation("la cantidad de invitados no puede ser negativa")
	}
	fecha, err := timeutil.ParseDate(req.FechaEvento)
	if err != nil {
		return time.Time{}, apperr.Validation("fecha_evento debe tener formato YYYY-MM-DD")
	}
	for _, clock := range []string{req.HoraInicio, req.HoraFin} {
		if clock != "" && !timeutil.ValidClock(clock) {
			return time.Time{}, apperr.Validationf("hora inválida %q, use HH:MM", clock)
		}
	}
	return fecha, nil
}
