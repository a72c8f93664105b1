package services

import (
	"errors"
	"fmt"
	"slices"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransition = errors.New("evento: transición de estado inválida")
	ErrEventCompleted    = errors.New("evento: completado")
	ErrSaldoPending      = errors.New("evento: saldo pendiente")
)

var eventTransitions = map[models.EventState][]models.EventState{
	models.EstadoCotizacion: {models.EstadoConfirmado, models.EstadoEnProceso, models.EstadoCancelado},
	models.EstadoConfirmado: {models.EstadoEnProceso, models.EstadoCotizacion, models.EstadoCancelado},
	models.EstadoEnProceso:  {models.EstadoCompletado, models.EstadoCancelado, models.EstadoCotizacion},
	models.EstadoCompletado: {},
	models.EstadoCancelado:  {models.EstadoCotizacion},
}

// AllowedTransitions returns the states reachable from s in one step
func AllowedTransitions(s models.EventState) []models.EventState {
	return slices.Clone(eventTransitions[s])
}

// CheckTransition runs the state guards that need no stock lookup, in order.
// saldo is the balance derived from the payment ledger at lock time.
func CheckTransition(from, to models.EventState, saldo decimal.Decimal) error {
	if !to.IsValid() {
		return apperr.Validationf("estado desconocido: %q", to)
	}
	if from == models.EstadoCompletado {
		return apperr.WrapValidation(ErrEventCompleted, "el evento está completado y no admite cambios de estado")
	}
	if to == models.EstadoCompletado && saldo.IsPositive() {
		return apperr.WrapValidation(ErrSaldoPending,
			fmt.Sprintf("no se puede completar el evento con saldo pendiente de %s", saldo.StringFixed(2)))
	}
	if to == models.EstadoCancelado && from == models.EstadoCompletado {
		return apperr.WrapValidation(ErrEventCompleted, "un evento completado no puede cancelarse")
	}
	if from == models.EstadoCancelado && to != models.EstadoCotizacion {
		return apperr.WrapValidation(
			fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to),
			"un evento cancelado solo puede reactivarse a cotizacion")
	}
	if !slices.Contains(eventTransitions[from], to) {
		return apperr.WrapValidation(
			fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to),
			fmt.Sprintf("no se permite pasar de %s a %s", from, to))
	}
	return nil
}

// entersStockZone reports a first entry into confirmado/en_proceso
func entersStockZone(from, to models.EventState) bool {
	return to.CommitsStock() && !from.CommitsStock()
}

// leavesStockZone reports a move that hands committed stock back
func leavesStockZone(from, to models.EventState) bool {
	return from.CommitsStock() && (to == models.EstadoCotizacion || to == models.EstadoCancelado)
}
