package notify

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"eventos-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFanoutDeliversToEverySink(t *testing.T) {
	var got []string
	record := func(name string, err error) Notifier {
		return NotifierFunc(func(_ context.Context, n models.Notice) error {
			got = append(got, name+":"+n.Tipo)
			return err
		})
	}

	f := NewFanout(log.New(io.Discard, "", 0)).
		Add("whatsapp", record("whatsapp", errors.New("sin saldo"))).
		Add("tablero", record("tablero", nil)).
		Add("broker", nil)

	err := f.Notify(context.Background(), models.Notice{Tipo: models.AvisoEventoCreado, EventoID: 1})
	assert.NoError(t, err)
	assert.Equal(t, []string{"whatsapp:evento_creado", "tablero:evento_creado"}, got)
}
