package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
	"eventos-backend/internal/store"
	"eventos-backend/internal/timeutil"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

// OrderGateway creates checkout orders at the payment provider
type OrderGateway interface {
	CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (string, error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway wraps the Razorpay orders API
func NewRazorpayGateway(keyID, keySecret string) OrderGateway {
	return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *razorpayGateway) CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	order, err := g.client.Order.Create(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create razorpay order: %w", err)
	}
	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order without id")
	}
	return id, nil
}

// RazorpayService collects an event's saldo online. A verified order becomes
// a regular payment with origen en_linea, so it goes through the same saldo
// checks and auto-advance as a payment taken at the desk.
type RazorpayService struct {
	payments  *PaymentService
	gateway   OrderGateway
	keyID     string
	keySecret string
	currency  string
	logger    *log.Logger
}

func NewRazorpayService(payments *PaymentService, gateway OrderGateway, keyID, keySecret, currency string, logger *log.Logger) *RazorpayService {
	if currency == "" {
		currency = "MXN"
	}
	return &RazorpayService{
		payments:  payments,
		gateway:   gateway,
		keyID:     keyID,
		keySecret: keySecret,
		currency:  currency,
		logger:    loggerOrDefault(logger),
	}
}

// IsEnabled reports whether credentials are configured
func (s *RazorpayService) IsEnabled() bool {
	return s.gateway != nil && s.keyID != "" && s.keySecret != ""
}

// CreateOrder raises a gateway order for part or all of the event's saldo
func (s *RazorpayService) CreateOrder(ctx context.Context, eventID int, req models.CreateOnlineOrderRequest) (*models.CreateOnlineOrderResponse, error) {
	if !s.IsEnabled() {
		return nil, apperr.Validation("los pagos en línea no están configurados")
	}
	if req.Monto.IsNegative() {
		return nil, apperr.Validation("el monto no puede ser negativo")
	}

	monto := req.Monto
	err := s.payments.events.store.InTx(ctx, func(tx store.Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.Estado == models.EstadoCancelado || ev.Estado == models.EstadoCompletado {
			return apperr.Validationf("no se cobran eventos en estado %s", ev.Estado)
		}
		totals, err := s.payments.events.ledger.Totals(ctx, tx, eventID)
		if err != nil {
			return err
		}
		saldo := models.Saldo(ev.Total, totals)
		if monto.IsZero() {
			monto = saldo
		}
		if !monto.IsPositive() {
			return apperr.Validation("el evento no tiene saldo pendiente")
		}
		if monto.GreaterThan(saldo) {
			return apperr.Validationf("el monto %s excede el saldo pendiente (%s)", monto.StringFixed(2), saldo.StringFixed(2))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	amount := minorUnits(monto)
	orderID, err := s.gateway.CreateOrder(amount, s.currency,
		fmt.Sprintf("evt_%d_%d", eventID, timeutil.Now().Unix()),
		map[string]interface{}{"evento_id": eventID})
	if err != nil {
		return nil, apperr.Infrastructure(err)
	}

	err = s.payments.events.store.InTx(ctx, func(tx store.Tx) error {
		return tx.CreateOnlineOrder(ctx, &models.OnlinePayment{
			EventoID:        eventID,
			RazorpayOrderID: orderID,
			Monto:           monto,
			Moneda:          s.currency,
			Estado:          models.OrdenCreada,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("[Razorpay] Orden %s creada para evento %d por %s %s", orderID, eventID, monto.StringFixed(2), s.currency)
	return &models.CreateOnlineOrderResponse{
		OrderID:  orderID,
		Amount:   amount,
		Currency: s.currency,
		KeyID:    s.keyID,
		EventoID: eventID,
	}, nil
}

// Verify checks the checkout signature and records the payment once per order.
// Verifying an order that is already paid returns the recorded payment.
func (s *RazorpayService) Verify(ctx context.Context, userID *int, req models.VerifyOnlinePaymentRequest) (*models.PaymentResult, error) {
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return nil, apperr.Validation("razorpay_order_id, razorpay_payment_id y razorpay_signature son requeridos")
	}
	if !s.verifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.markFailed(ctx, req, "firma inválida")
		return nil, apperr.Validation("firma de pago inválida")
	}

	var (
		result *models.PaymentResult
		from   models.EventState
		fresh  bool
	)
	err := s.payments.events.store.InTx(ctx, func(tx store.Tx) error {
		order, err := tx.LockOnlineOrder(ctx, req.RazorpayOrderID)
		if err != nil {
			return err
		}
		if order.Estado == models.OrdenPagada && order.PagoID != nil {
			pago, err := tx.GetPayment(ctx, *order.PagoID)
			if err != nil {
				return err
			}
			ev, err := s.payments.events.load(ctx, tx, order.EventoID)
			if err != nil {
				return err
			}
			result = &models.PaymentResult{Pago: pago, Event: ev}
			return nil
		}

		p, err := newPayment(order.EventoID, userID, models.CreatePaymentRequest{
			Tipo:       models.PagoTipoPago,
			Monto:      order.Monto,
			Metodo:     models.MetodoEnLinea,
			Origen:     models.OrigenEnLinea,
			Referencia: req.RazorpayPaymentID,
			Notas:      "Razorpay " + req.RazorpayOrderID,
		})
		if err != nil {
			return err
		}
		result, from, err = s.payments.registerTx(ctx, tx, p, false)
		if err != nil {
			return err
		}
		fresh = true
		return tx.MarkOnlineOrderPaid(ctx, order.ID, req.RazorpayPaymentID, p.ID)
	})
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			s.markFailed(ctx, req, err.Error())
		}
		return nil, err
	}

	if fresh {
		s.payments.afterRegister(ctx, result, from)
	}
	return result, nil
}

func (s *RazorpayService) markFailed(ctx context.Context, req models.VerifyOnlinePaymentRequest, reason string) {
	err := s.payments.events.store.InTx(ctx, func(tx store.Tx) error {
		order, err := tx.LockOnlineOrder(ctx, req.RazorpayOrderID)
		if err != nil {
			return err
		}
		if order.Estado == models.OrdenPagada {
			return nil
		}
		return tx.MarkOnlineOrderFailed(ctx, order.ID, req.RazorpayPaymentID, reason)
	})
	if err != nil {
		s.logger.Printf("[Razorpay] No se marcó la orden %s como fallida: %v", req.RazorpayOrderID, err)
		return
	}
	s.logger.Printf("[Razorpay] Orden %s fallida: %s", req.RazorpayOrderID, reason)
}

// verifySignature checks HMAC-SHA256(order_id|payment_id) with the key secret
func (s *RazorpayService) verifySignature(orderID, paymentID, signature string) bool {
	if s.keySecret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(s.keySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// minorUnits converts to centavos, the unit the gateway charges in
func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
