package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/metrics"
	"eventos-backend/internal/models"
	"eventos-backend/internal/store"
	"eventos-backend/internal/timeutil"
)

// DuplicateGuard claims a key for a time window. AcquireOnce returns false
// when the key is already held.
type DuplicateGuard interface {
	AcquireOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// DefaultDuplicateWindow is how long an identical payment is treated as a double submit
const DefaultDuplicateWindow = 10 * time.Second

// PaymentService registers payments and refunds and runs the lifecycle
// reaction to them: a payment on a cotizacion or confirmado event moves it to
// en_proceso through the guarded transition.
type PaymentService struct {
	events *EventService
	guard  DuplicateGuard
	logger *log.Logger

	// DuplicateWindow rejects an identical payment registered within the
	// window. Zero disables the check.
	DuplicateWindow time.Duration
}

func NewPaymentService(events *EventService, guard DuplicateGuard, logger *log.Logger) *PaymentService {
	return &PaymentService{
		events:          events,
		guard:           guard,
		logger:          loggerOrDefault(logger),
		DuplicateWindow: DefaultDuplicateWindow,
	}
}

// Register records a payment or refund against the event
func (s *PaymentService) Register(ctx context.Context, eventID int, userID *int, req models.CreatePaymentRequest) (_ *models.PaymentResult, err error) {
	p, err := newPayment(eventID, userID, req)
	if err != nil {
		return nil, err
	}

	checkDB := s.guard == nil
	if s.guard != nil && s.DuplicateWindow > 0 {
		key := duplicateKey(p)
		ok, gerr := s.guard.AcquireOnce(ctx, key, s.DuplicateWindow)
		if gerr != nil {
			s.logger.Printf("[Pagos] Guardia de duplicados no disponible, se consulta la base: %v", gerr)
			checkDB = true
		} else if !ok {
			return nil, apperr.Conflict("pago duplicado: se registró uno idéntico hace unos segundos", 1)
		} else {
			defer func() {
				if err != nil {
					if relErr := s.guard.Release(context.WithoutCancel(ctx), key); relErr != nil {
						s.logger.Printf("[Pagos] No se liberó la guardia %s: %v", key, relErr)
					}
				}
			}()
		}
	}

	var (
		result *models.PaymentResult
		from   models.EventState
	)
	err = s.events.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		result, from, err = s.registerTx(ctx, tx, p, checkDB)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterRegister(ctx, result, from)
	return result, nil
}

// registerTx locks the event, checks the amount against the ledger, inserts
// the row and runs the auto-advance. It returns the state the event had before.
func (s *PaymentService) registerTx(ctx context.Context, tx store.Tx, p *models.Payment, checkDuplicates bool) (*models.PaymentResult, models.EventState, error) {
	ev, err := tx.LockEvent(ctx, p.EventoID)
	if err != nil {
		return nil, "", err
	}
	from := ev.Estado

	if checkDuplicates && s.DuplicateWindow > 0 {
		dup, err := tx.RecentDuplicatePayment(ctx, p, timeutil.Now().Add(-s.DuplicateWindow))
		if err != nil {
			return nil, "", err
		}
		if dup {
			return nil, "", apperr.Conflict("pago duplicado: se registró uno idéntico hace unos segundos", 1)
		}
	}

	totals, err := s.events.ledger.Totals(ctx, tx, p.EventoID)
	if err != nil {
		return nil, "", err
	}
	if err := checkPaymentAmount(ev, totals, p); err != nil {
		return nil, "", err
	}
	if err := s.events.ledger.Create(ctx, tx, p); err != nil {
		return nil, "", err
	}

	result := &models.PaymentResult{Pago: p}
	if p.Tipo == models.PagoTipoPago && (ev.Estado == models.EstadoCotizacion || ev.Estado == models.EstadoConfirmado) {
		if err := s.autoAdvance(ctx, tx, ev, result); err != nil {
			return nil, "", err
		}
	}
	if result.Event, err = s.events.load(ctx, tx, p.EventoID); err != nil {
		return nil, "", err
	}
	return result, from, nil
}

// afterRegister runs once the payment has committed
func (s *PaymentService) afterRegister(ctx context.Context, result *models.PaymentResult, from models.EventState) {
	p := result.Pago
	metrics.PaymentsRegistered.WithLabelValues(string(p.Tipo), p.Origen).Inc()
	s.logger.Printf("[Pagos] %s de %s registrado en evento %d (%s, %s)",
		p.Tipo, p.Monto.StringFixed(2), p.EventoID, p.Metodo, p.Origen)

	tipo := models.AvisoPagoRegistrado
	if p.Tipo == models.PagoTipoReembolso {
		tipo = models.AvisoReembolso
	}
	n := models.NewNotice(tipo, result.Event, timeutil.Now())
	n.Monto = p.Monto
	s.events.notify(ctx, n)
	if result.AutoAvanzado {
		n := models.NewNotice(models.AvisoEstadoCambiado, result.Event, timeutil.Now())
		n.EstadoAnterior = from
		s.events.notify(ctx, n)
	}
}

// autoAdvance moves the event to en_proceso after a payment. A stock shortage
// does not undo the payment: the event keeps its state and the result says why.
func (s *PaymentService) autoAdvance(ctx context.Context, tx store.Tx, ev *models.Event, result *models.PaymentResult) error {
	from := ev.Estado
	err := s.events.transition(ctx, tx, ev, models.EstadoEnProceso)
	metrics.StateTransitions.WithLabelValues(string(from), string(models.EstadoEnProceso), metrics.Result(err)).Inc()
	if err == nil {
		result.AutoAvanzado = true
		s.logger.Printf("[Pagos] Evento %d avanzó de %s a en_proceso por pago", ev.ID, from)
		return nil
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
		return err
	}
	result.AutoAvanceError = ae.Message
	result.AutoAvanceFaltas = ae.Details
	s.logger.Printf("[Pagos] Evento %d no avanzó a en_proceso: %s", ev.ID, ae.Message)
	return nil
}

// Delete removes a payment row. Removing it must not leave a negative saldo
// or more refunded than paid.
func (s *PaymentService) Delete(ctx context.Context, paymentID int) (*models.Event, error) {
	var ev *models.Event
	err := s.events.store.InTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		cur, err := tx.LockEvent(ctx, p.EventoID)
		if err != nil {
			return err
		}
		if cur.Estado == models.EstadoCompletado {
			return apperr.Validation("no se eliminan pagos de un evento completado")
		}
		totals, err := s.events.ledger.Totals(ctx, tx, p.EventoID)
		if err != nil {
			return err
		}
		after := totals
		if p.Tipo == models.PagoTipoPago {
			after.Pagado = after.Pagado.Sub(p.Monto)
		} else {
			after.Reembolsado = after.Reembolsado.Sub(p.Monto)
		}
		if models.Saldo(cur.Total, after).IsNegative() {
			return apperr.Validation("eliminar el pago dejaría el saldo negativo")
		}
		if after.NetPaid().IsNegative() {
			return apperr.Validation("eliminar el pago dejaría más reembolsado que pagado")
		}

		if err := s.events.ledger.Delete(ctx, tx, paymentID); err != nil {
			return err
		}
		ev, err = s.events.load(ctx, tx, p.EventoID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[Pagos] Pago %d eliminado del evento %d", paymentID, ev.ID)
	return ev, nil
}

func (s *PaymentService) Get(ctx context.Context, paymentID int) (*models.Payment, error) {
	var p *models.Payment
	err := s.events.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetPayment(ctx, paymentID)
		return err
	})
	return p, err
}

func (s *PaymentService) List(ctx context.Context, eventID int) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.events.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return err
		}
		var err error
		payments, err = tx.ListPayments(ctx, eventID)
		return err
	})
	if payments == nil && err == nil {
		payments = []models.Payment{}
	}
	return payments, err
}

func newPayment(eventID int, userID *int, req models.CreatePaymentRequest) (*models.Payment, error) {
	tipo := req.Tipo
	if tipo == "" {
		tipo = models.PagoTipoPago
	}
	if tipo != models.PagoTipoPago && tipo != models.PagoTipoReembolso {
		return nil, apperr.Validationf("tipo de pago desconocido: %q", tipo)
	}
	if !req.Monto.IsPositive() {
		return nil, apperr.Validation("el monto debe ser mayor a cero")
	}
	if !req.Monto.Equal(req.Monto.Round(2)) {
		return nil, apperr.Validation("el monto admite como máximo dos decimales")
	}
	metodo := strings.TrimSpace(req.Metodo)
	if metodo == "" {
		return nil, apperr.Validation("el método de pago es requerido")
	}
	if !slices.Contains(models.PaymentMethods, metodo) {
		return nil, apperr.Validationf("método de pago desconocido: %q", metodo)
	}
	origen := req.Origen
	if origen == "" {
		origen = models.OrigenWeb
	}
	if origen != models.OrigenWeb && origen != models.OrigenExterno && origen != models.OrigenEnLinea {
		return nil, apperr.Validationf("origen desconocido: %q", origen)
	}

	fecha := timeutil.Today()
	if req.FechaPago != "" {
		var err error
		fecha, err = timeutil.ParseDate(req.FechaPago)
		if err != nil {
			return nil, apperr.Validation("fecha_pago debe tener formato YYYY-MM-DD")
		}
	}

	return &models.Payment{
		EventoID:   eventID,
		Tipo:       tipo,
		Monto:      req.Monto,
		Metodo:     metodo,
		FechaPago:  fecha,
		UsuarioID:  userID,
		Origen:     origen,
		Referencia: strings.TrimSpace(req.Referencia),
		Notas:      strings.TrimSpace(req.Notas),
	}, nil
}

func checkPaymentAmount(ev *models.Event, totals models.PaymentTotals, p *models.Payment) error {
	if p.Tipo == models.PagoTipoReembolso {
		net := totals.NetPaid()
		if p.Monto.GreaterThan(net) {
			return apperr.Validationf("el reembolso de %s excede lo pagado neto (%s)",
				p.Monto.StringFixed(2), net.StringFixed(2))
		}
		return nil
	}
	if ev.Estado == models.EstadoCancelado {
		return apperr.Validation("no se registran pagos en un evento cancelado")
	}
	saldo := models.Saldo(ev.Total, totals)
	if p.Monto.GreaterThan(saldo) {
		return apperr.Validationf("el pago de %s excede el saldo pendiente (%s)",
			p.Monto.StringFixed(2), saldo.StringFixed(2))
	}
	return nil
}

func duplicateKey(p *models.Payment) string {
	return fmt.Sprintf("pago:%d:%s:%s:%s", p.EventoID, p.Tipo, p.Monto.StringFixed(2), p.Metodo)
}
