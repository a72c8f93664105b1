package repositories

import (
	"context"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type PaymentRepository struct {
	DB DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

const paymentColumns = `
	pg.id, pg.evento_id, pg.tipo, pg.monto, pg.metodo, pg.fecha_pago, pg.usuario_id, COALESCE(u.nombre, ''),
	pg.origen, pg.referencia, pg.notas, pg.created_at`

const paymentFrom = ` FROM pagos pg LEFT JOIN usuarios u ON u.id = pg.usuario_id`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.EventoID, &p.Tipo, &p.Monto, &p.Metodo, &p.FechaPago, &p.UsuarioID, &p.UsuarioNombre,
		&p.Origen, &p.Referencia, &p.Notas, &p.CreatedAt)
	return &p, err
}

func (r *PaymentRepository) InsertPayment(ctx context.Context, p *models.Payment) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO pagos(evento_id, tipo, monto, metodo, fecha_pago, usuario_id, origen, referencia, notas)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		p.EventoID, p.Tipo, p.Monto, p.Metodo, p.FechaPago, p.UsuarioID, p.Origen, p.Referencia, p.Notas,
	).Scan(&p.ID, &p.CreatedAt)
	return mapErr("insert payment", err)
}

func (r *PaymentRepository) GetPayment(ctx context.Context, id int) (*models.Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, `SELECT `+paymentColumns+paymentFrom+` WHERE pg.id=$1`, id))
	if err != nil {
		return nil, rowErr("get payment", "pago", id, err)
	}
	return p, nil
}

func (r *PaymentRepository) ListPayments(ctx context.Context, eventID int) ([]models.Payment, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+paymentColumns+paymentFrom+` WHERE pg.evento_id=$1 ORDER BY pg.fecha_pago, pg.id`, eventID)
	if err != nil {
		return nil, mapErr("list payments", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, mapErr("scan payment", err)
		}
		payments = append(payments, *p)
	}
	return payments, mapErr("list payments", rows.Err())
}

func (r *PaymentRepository) DeletePayment(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM pagos WHERE id=$1`, id)
	if err != nil {
		return mapErr("delete payment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pago", id)
	}
	return nil
}

// PaymentTotals sums each tipo; both are zero when the event has no payments
func (r *PaymentRepository) PaymentTotals(ctx context.Context, eventID int) (models.PaymentTotals, error) {
	var t models.PaymentTotals
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(monto) FILTER (WHERE tipo = 'pago'), 0),
		        COALESCE(SUM(monto) FILTER (WHERE tipo = 'reembolso'), 0)
		 FROM pagos WHERE evento_id=$1`, eventID,
	).Scan(&t.Pagado, &t.Reembolsado)
	return t, mapErr("payment totals", err)
}

// RecentDuplicatePayment finds the same tipo, monto and metodo on the event since the given time
func (r *PaymentRepository) RecentDuplicatePayment(ctx context.Context, p *models.Payment, since time.Time) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM pagos
		   WHERE evento_id=$1 AND tipo=$2 AND monto=$3 AND metodo=$4 AND created_at >= $5)`,
		p.EventoID, p.Tipo, p.Monto, p.Metodo, since,
	).Scan(&exists)
	return exists, mapErr("duplicate payment check", err)
}
