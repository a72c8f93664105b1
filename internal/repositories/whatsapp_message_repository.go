package repositories

import (
	"context"
	"fmt"
	"strings"

	"eventos-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// WhatsAppMessageRepository stores every outbound message and its delivery state
type WhatsAppMessageRepository struct {
	DB DBTX
}

func NewWhatsAppMessageRepository(db DBTX) *WhatsAppMessageRepository {
	return &WhatsAppMessageRepository{DB: db}
}

const messageColumns = `id, evento_id, cliente_id, telefono, tipo, contenido, plantilla, parametros, estado, intentos,
	ultimo_error, proveedor, created_at, updated_at, enviado_at`

func scanMessage(row pgx.Row) (*models.WhatsAppMessage, error) {
	var m models.WhatsAppMessage
	err := row.Scan(&m.ID, &m.EventoID, &m.ClienteID, &m.Telefono, &m.Tipo, &m.Contenido, &m.Plantilla, &m.Parametros, &m.Estado,
		&m.Intentos, &m.UltimoError, &m.Proveedor, &m.CreatedAt, &m.UpdatedAt, &m.EnviadoAt)
	return &m, err
}

func (r *WhatsAppMessageRepository) CreateMessage(ctx context.Context, m *models.WhatsAppMessage) error {
	if m.Estado == "" {
		m.Estado = models.MensajePendiente
	}
	if m.Parametros == nil {
		m.Parametros = []string{}
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO mensajes_whatsapp(evento_id, cliente_id, telefono, tipo, contenido, plantilla, parametros, estado, proveedor)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		m.EventoID, m.ClienteID, m.Telefono, m.Tipo, m.Contenido, m.Plantilla, m.Parametros, m.Estado, m.Proveedor,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return mapErr("create whatsapp message", err)
}

func (r *WhatsAppMessageRepository) GetMessage(ctx context.Context, id int) (*models.WhatsAppMessage, error) {
	m, err := scanMessage(r.DB.QueryRow(ctx, `SELECT `+messageColumns+` FROM mensajes_whatsapp WHERE id=$1`, id))
	if err != nil {
		return nil, rowErr("get whatsapp message", "mensaje", id, err)
	}
	return m, nil
}

// MarkSent records a successful attempt
func (r *WhatsAppMessageRepository) MarkSent(ctx context.Context, id int) error {
	return execOne(ctx, r.DB, "mensaje", "mark message sent", id,
		`UPDATE mensajes_whatsapp
		 SET estado='enviado', intentos=intentos+1, ultimo_error='', enviado_at=NOW(), updated_at=NOW()
		 WHERE id=$1`, id)
}

// MarkFailed records a failed attempt
func (r *WhatsAppMessageRepository) MarkFailed(ctx context.Context, id int, reason string) error {
	return execOne(ctx, r.DB, "mensaje", "mark message failed", id,
		`UPDATE mensajes_whatsapp
		 SET estado='fallido', intentos=intentos+1, ultimo_error=$1, updated_at=NOW()
		 WHERE id=$2`, reason, id)
}

// ListRetryable returns failed messages below maxAttempts, oldest first
func (r *WhatsAppMessageRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]models.WhatsAppMessage, error) {
	return r.list(ctx,
		`SELECT `+messageColumns+` FROM mensajes_whatsapp
		 WHERE estado='fallido' AND intentos < $1 ORDER BY updated_at LIMIT $2`, maxAttempts, limit)
}

func (r *WhatsAppMessageRepository) ListMessages(ctx context.Context, f models.WhatsAppMessageFilter) ([]models.WhatsAppMessage, error) {
	var (
		where []string
		args  []any
	)
	if f.Estado != "" {
		args = append(args, f.Estado)
		where = append(where, fmt.Sprintf("estado = $%d", len(args)))
	}
	if f.EventoID > 0 {
		args = append(args, f.EventoID)
		where = append(where, fmt.Sprintf("evento_id = $%d", len(args)))
	}
	query := `SELECT ` + messageColumns + ` FROM mensajes_whatsapp`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	return r.list(ctx, query, args...)
}

func (r *WhatsAppMessageRepository) list(ctx context.Context, query string, args ...any) ([]models.WhatsAppMessage, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list whatsapp messages", err)
	}
	defer rows.Close()

	out := []models.WhatsAppMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, mapErr("scan whatsapp message", err)
		}
		out = append(out, *m)
	}
	return out, mapErr("list whatsapp messages", rows.Err())
}
