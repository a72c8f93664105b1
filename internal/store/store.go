// Package store declares the transactional persistence the event core runs on.
//
// Implementations must give each InTx call all-or-nothing semantics and must
// serialize transactions that lock the same event or product rows: LockEvent
// and LockProducts hold their rows until the transaction ends.
package store

import (
	"context"
	"time"

	"eventos-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Store runs fn inside one transaction, committing only when fn returns nil
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is everything the core reads and writes inside a transaction
type Tx interface {
	Events
	Lines
	Checklist
	Plans
	Stock
	Payments
	Clients
	OnlineOrders
}

type Events interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	// GetEvent returns a NotFound error when the event does not exist
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	// LockEvent is GetEvent holding the row until the transaction ends
	LockEvent(ctx context.Context, id int) (*models.Event, error)
	ListEvents(ctx context.Context, f models.EventFilter) ([]models.Event, error)
	UpdateEventState(ctx context.Context, id int, state models.EventState) error
	UpdateEventTotal(ctx context.Context, id int, total decimal.Decimal) error
	UpdateEventRating(ctx context.Context, id int, rating int, comment string) error
	DeleteEvent(ctx context.Context, id int) error
}

type Lines interface {
	ListEventLines(ctx context.Context, eventID int) ([]models.EventProductLine, error)
	GetEventLine(ctx context.Context, eventID, productID int) (*models.EventProductLine, error)
	// UpsertEventLine inserts or replaces the line for (evento, producto)
	UpsertEventLine(ctx context.Context, l *models.EventProductLine) error
	DeleteEventLine(ctx context.Context, eventID, productID int) error
	// InsertEventPlanProducts freezes the plan's bundled products on the event
	InsertEventPlanProducts(ctx context.Context, eventID int, items []models.PlanProduct) error
	ListEventPlanProducts(ctx context.Context, eventID int) ([]models.PlanProduct, error)
}

type Checklist interface {
	ListChecklist(ctx context.Context, eventID int) ([]models.ChecklistItem, error)
	GetChecklistItem(ctx context.Context, eventID, itemID int) (*models.ChecklistItem, error)
	InsertChecklistItem(ctx context.Context, item *models.ChecklistItem) error
	UpdateChecklistItem(ctx context.Context, item *models.ChecklistItem) error
	DeleteChecklistItem(ctx context.Context, eventID, itemID int) error
	DeleteChecklist(ctx context.Context, eventID int) error
}

type Plans interface {
	GetPlan(ctx context.Context, id int) (*models.Plan, error)
	ListPlanProducts(ctx context.Context, planID int) ([]models.PlanProduct, error)
	ListPlanServices(ctx context.Context, planID int) ([]models.PlanService, error)
}

type Stock interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	// LockProducts locks the rows in ascending id order; unknown ids are absent from the map
	LockProducts(ctx context.Context, ids []int) (map[int]*models.Product, error)
	// AddStock applies delta atomically and fails if stock would go negative
	AddStock(ctx context.Context, productID, delta int) error
	InsertStockMovement(ctx context.Context, m *models.StockMovement) error
	// CommittedStock returns the units each product currently holds for the event
	CommittedStock(ctx context.Context, eventID int) (map[int]int, error)
}

type Payments interface {
	InsertPayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id int) (*models.Payment, error)
	ListPayments(ctx context.Context, eventID int) ([]models.Payment, error)
	DeletePayment(ctx context.Context, id int) error
	// PaymentTotals sums payments and refunds; zero when there are no rows
	PaymentTotals(ctx context.Context, eventID int) (models.PaymentTotals, error)
	RecentDuplicatePayment(ctx context.Context, p *models.Payment, since time.Time) (bool, error)
}

type Clients interface {
	GetClient(ctx context.Context, id int) (*models.Client, error)
}

// OnlineOrders tracks payment-gateway orders raised against an event
type OnlineOrders interface {
	CreateOnlineOrder(ctx context.Context, o *models.OnlinePayment) error
	GetOnlineOrder(ctx context.Context, orderID string) (*models.OnlinePayment, error)
	// LockOnlineOrder holds the order row so a verification applies once
	LockOnlineOrder(ctx context.Context, orderID string) (*models.OnlinePayment, error)
	MarkOnlineOrderPaid(ctx context.Context, id int, paymentID string, pagoID int) error
	MarkOnlineOrderFailed(ctx context.Context, id int, paymentID, reason string) error
}
