package repositories

import (
	"context"
	"fmt"
	"strings"

	"eventos-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type EventRepository struct {
	DB DBTX
}

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{DB: db}
}

const eventColumns = `
	e.id, e.cliente_id, c.nombre, c.telefono, e.coordinador_id, e.salon_id, e.plan_id,
	e.nombre, e.fecha_evento, e.hora_inicio, e.hora_fin, e.cantidad_invitados, e.estado, e.total,
	e.plan_precio_base, e.calificacion, e.comentario_calificacion, e.observaciones, e.created_at, e.updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.ClienteID, &e.ClienteNombre, &e.ClienteTelefono, &e.CoordinadorID, &e.SalonID, &e.PlanID,
		&e.Nombre, &e.FechaEvento, &e.HoraInicio, &e.HoraFin, &e.CantidadInvitados, &e.Estado, &e.Total,
		&e.PlanPrecioBase, &e.Calificacion, &e.ComentarioCalificacion, &e.Observaciones, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *EventRepository) CreateEvent(ctx context.Context, e *models.Event) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO eventos(cliente_id, coordinador_id, salon_id, plan_id, nombre, fecha_evento, hora_inicio, hora_fin,
		                     cantidad_invitados, estado, total, plan_precio_base, observaciones)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		e.ClienteID, e.CoordinadorID, e.SalonID, e.PlanID, e.Nombre, e.FechaEvento, e.HoraInicio, e.HoraFin,
		e.CantidadInvitados, e.Estado, e.Total, e.PlanPrecioBase, e.Observaciones,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapErr("create event", err)
}

func (r *EventRepository) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	e, err := scanEvent(r.DB.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM eventos e JOIN clientes c ON c.id = e.cliente_id WHERE e.id=$1`, id))
	if err != nil {
		return nil, rowErr("get event", "evento", id, err)
	}
	return e, nil
}

// LockEvent holds the event row until the transaction ends
func (r *EventRepository) LockEvent(ctx context.Context, id int) (*models.Event, error) {
	e, err := scanEvent(r.DB.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM eventos e JOIN clientes c ON c.id = e.cliente_id
		 WHERE e.id=$1 FOR UPDATE OF e`, id))
	if err != nil {
		return nil, rowErr("lock event", "evento", id, err)
	}
	return e, nil
}

func (r *EventRepository) ListEvents(ctx context.Context, f models.EventFilter) ([]models.Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Estado != "" {
		add("e.estado = $%d", f.Estado)
	}
	if f.ClienteID > 0 {
		add("e.cliente_id = $%d", f.ClienteID)
	}
	if f.Desde != nil {
		add("e.fecha_evento >= $%d", *f.Desde)
	}
	if f.Hasta != nil {
		add("e.fecha_evento <= $%d", *f.Hasta)
	}

	query := `SELECT ` + eventColumns + ` FROM eventos e JOIN clientes c ON c.id = e.cliente_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.fecha_evento, e.id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list events", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, mapErr("scan event", err)
		}
		events = append(events, *e)
	}
	return events, mapErr("list events", rows.Err())
}

func (r *EventRepository) UpdateEventState(ctx context.Context, id int, state models.EventState) error {
	return execOne(ctx, r.DB, "evento", "update event state", id,
		`UPDATE eventos SET estado=$1, updated_at=NOW() WHERE id=$2`, state, id)
}

func (r *EventRepository) UpdateEventTotal(ctx context.Context, id int, total decimal.Decimal) error {
	return execOne(ctx, r.DB, "evento", "update event total", id,
		`UPDATE eventos SET total=$1, updated_at=NOW() WHERE id=$2`, total, id)
}

func (r *EventRepository) UpdateEventRating(ctx context.Context, id int, rating int, comment string) error {
	return execOne(ctx, r.DB, "evento", "update event rating", id,
		`UPDATE eventos SET calificacion=$1, comentario_calificacion=$2, updated_at=NOW() WHERE id=$3`,
		rating, comment, id)
}

// DeleteEvent cascades lines, checklist and payments; stock movements keep their rows
func (r *EventRepository) DeleteEvent(ctx context.Context, id int) error {
	return execOne(ctx, r.DB, "evento", "delete event", id, `DELETE FROM eventos WHERE id=$1`, id)
}

// CountOpenEventsByPlan counts events still heading towards completion that use the plan
func (r *EventRepository) CountOpenEventsByPlan(ctx context.Context, planID int) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM eventos WHERE plan_id=$1 AND estado IN ('cotizacion', 'confirmado', 'en_proceso')`,
		planID).Scan(&n)
	return n, mapErr("count plan events", err)
}

