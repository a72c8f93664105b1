package apperr

import (
	"errors"
	"fmt"
	"testing"

	"eventos-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("x")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("evento", 3)))
	assert.Equal(t, KindConflict, KindOf(Conflict("x", 2)))
	assert.Equal(t, KindInfrastructure, KindOf(errors.New("boom")))

	wrapped := fmt.Errorf("cargando: %w", NotFound("plan", 7))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(nil, KindInfrastructure))
}

func TestInsufficientStock(t *testing.T) {
	one := InsufficientStock([]models.StockShortage{{ProductoID: 1, Nombre: "Silla", Requerido: 5, Disponible: 3}})
	assert.Equal(t, "stock insuficiente para Silla: requerido 5, disponible 3", one.Message)
	assert.ErrorIs(t, one, ErrInsufficientStock)
	assert.Equal(t, KindValidation, one.Kind)

	many := InsufficientStock(make([]models.StockShortage, 3))
	assert.Equal(t, "stock insuficiente para 3 producto(s)", many.Message)
	assert.Len(t, many.Details, 3)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("transición inválida")
	err := WrapValidation(cause, "no se permite")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "no se permite: transición inválida", err.Error())

	infra := Infrastructure(cause)
	assert.Equal(t, "error interno", infra.Message)
	assert.ErrorIs(t, infra, cause)
}

func TestAs(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)

	ae, ok := As(fmt.Errorf("ctx: %w", Conflict("pagos", 4)))
	assert.True(t, ok)
	assert.Equal(t, 4, ae.Count)
}
