package repositories

import (
	"context"
	"errors"
	"fmt"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// runs the same either standalone or inside a transaction. Begin on a pgx.Tx
// opens a savepoint.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL store.Store
type Store struct {
	Pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// InTx runs fn in one transaction, rolled back when fn fails
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		return fn(newTxQueries(tx))
	})
	if err != nil && !isClassified(err) {
		return apperr.Infrastructure(err)
	}
	return err
}

// txQueries binds every repository the event core needs to one pgx.Tx
type txQueries struct {
	*EventRepository
	*EventLineRepository
	*EventPlanProductRepository
	*ChecklistRepository
	*PlanRepository
	*ProductRepository
	*StockMovementRepository
	*PaymentRepository
	*ClientRepository
	*OnlinePaymentRepository
}

var _ store.Tx = (*txQueries)(nil)

func newTxQueries(db DBTX) *txQueries {
	return &txQueries{
		EventRepository:            NewEventRepository(db),
		EventLineRepository:        NewEventLineRepository(db),
		EventPlanProductRepository: NewEventPlanProductRepository(db),
		ChecklistRepository:        NewChecklistRepository(db),
		PlanRepository:             NewPlanRepository(db),
		ProductRepository:          NewProductRepository(db),
		StockMovementRepository:    NewStockMovementRepository(db),
		PaymentRepository:          NewPaymentRepository(db),
		ClientRepository:           NewClientRepository(db),
		OnlinePaymentRepository:    NewOnlinePaymentRepository(db),
	}
}

func isClassified(err error) bool {
	_, ok := apperr.As(err)
	return ok
}

// Postgres error codes mapped to domain errors
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// mapErr classifies a driver error. op names the failed operation for the log.
func mapErr(op string, err error) error {
	if err == nil || isClassified(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return apperr.WrapValidation(err, "referencia inválida ("+pgErr.ConstraintName+")")
		case pgCheckViolation:
			return apperr.WrapValidation(err, "valor fuera de rango ("+pgErr.ConstraintName+")")
		case pgUniqueViolation:
			ae := apperr.Conflict("registro duplicado ("+pgErr.ConstraintName+")", 1)
			ae.Err = err
			return ae
		}
	}
	return apperr.Infrastructure(fmt.Errorf("%s: %w", op, err))
}

// rowErr is mapErr for single-row reads, turning pgx.ErrNoRows into NotFound
func rowErr(op, entity string, id int, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return mapErr(op, err)
}

// execOne runs a single-row write and reports NotFound when nothing matched
func execOne(ctx context.Context, db DBTX, entity, op string, id int, sql string, args ...any) error {
	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}
