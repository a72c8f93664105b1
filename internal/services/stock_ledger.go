package services

import (
	"context"
	"log"
	"sort"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/metrics"
	"eventos-backend/internal/models"
	"eventos-backend/internal/store"
)

// StockLedger validates, commits and releases product stock for events.
// Every method runs inside the caller's transaction.
type StockLedger struct {
	logger *log.Logger
}

func NewStockLedger(logger *log.Logger) *StockLedger {
	return &StockLedger{logger: loggerOrDefault(logger)}
}

// ValidateProduct checks one product against a required quantity without locking it
func (l *StockLedger) ValidateProduct(ctx context.Context, tx store.Stock, productID, qty int) error {
	p, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !p.ControlaStock || p.Stock >= qty {
		return nil
	}
	metrics.StockRejections.Inc()
	return apperr.InsufficientStock([]models.StockShortage{shortage(p, qty)})
}

// ValidatePlan checks every bundled product of a plan and reports all shortages
func (l *StockLedger) ValidatePlan(ctx context.Context, tx store.Tx, planID int) ([]models.StockShortage, error) {
	bundled, err := tx.ListPlanProducts(ctx, planID)
	if err != nil {
		return nil, err
	}
	var shortages []models.StockShortage
	for _, pp := range bundled {
		p, err := tx.GetProduct(ctx, pp.ProductoID)
		if err != nil {
			return nil, err
		}
		if p.ControlaStock && p.Stock < pp.Cantidad {
			shortages = append(shortages, shortage(p, pp.Cantidad))
		}
	}
	return shortages, nil
}

// Requirements aggregates the bundle frozen at booking and the event's lines per product
func (l *StockLedger) Requirements(ctx context.Context, tx store.Tx, ev *models.Event) ([]models.StockRequirement, error) {
	need := make(map[int]int)
	bundled, err := tx.ListEventPlanProducts(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	for _, pp := range bundled {
		need[pp.ProductoID] += pp.Cantidad
	}
	lines, err := tx.ListEventLines(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		need[line.ProductoID] += line.Cantidad
	}

	reqs := make([]models.StockRequirement, 0, len(need))
	for id, qty := range need {
		if qty > 0 {
			reqs = append(reqs, models.StockRequirement{ProductoID: id, Cantidad: qty})
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ProductoID < reqs[j].ProductoID })
	return reqs, nil
}

// Commit locks the required products, validates all of them and only then
// decrements them. On a shortage nothing is written and every short product
// is reported.
func (l *StockLedger) Commit(ctx context.Context, tx store.Stock, eventID int, reqs []models.StockRequirement) error {
	if len(reqs) == 0 {
		return nil
	}
	ids := make([]int, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ProductoID
	}
	sort.Ints(ids)

	locked, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return err
	}

	var shortages []models.StockShortage
	for _, r := range reqs {
		p, ok := locked[r.ProductoID]
		if !ok {
			return apperr.NotFound("producto", r.ProductoID)
		}
		if p.ControlaStock && p.Stock < r.Cantidad {
			shortages = append(shortages, shortage(p, r.Cantidad))
		}
	}
	if len(shortages) > 0 {
		metrics.StockRejections.Inc()
		return apperr.InsufficientStock(shortages)
	}

	for _, r := range reqs {
		if !locked[r.ProductoID].ControlaStock {
			continue
		}
		if err := l.move(ctx, tx, eventID, r.ProductoID, -r.Cantidad, models.MotivoCompromiso); err != nil {
			return err
		}
	}
	return nil
}

// Release hands back every unit the event still holds
func (l *StockLedger) Release(ctx context.Context, tx store.Stock, eventID int) error {
	held, err := tx.CommittedStock(ctx, eventID)
	if err != nil {
		return err
	}
	ids := make([]int, 0, len(held))
	for id := range held {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if err := l.move(ctx, tx, eventID, id, held[id], models.MotivoLiberacion); err != nil {
			return err
		}
	}
	if len(ids) > 0 {
		l.logger.Printf("[Stock] Evento %d liberó %d producto(s)", eventID, len(ids))
	}
	return nil
}

// ApplyDelta adjusts the stock an already committed event holds for one product
func (l *StockLedger) ApplyDelta(ctx context.Context, tx store.Stock, eventID int, p *models.Product, delta int) error {
	if delta == 0 || !p.ControlaStock {
		return nil
	}
	if delta > 0 {
		return l.Commit(ctx, tx, eventID, []models.StockRequirement{{ProductoID: p.ID, Cantidad: delta}})
	}
	held, err := tx.CommittedStock(ctx, eventID)
	if err != nil {
		return err
	}
	give := -delta
	if held[p.ID] < give {
		give = held[p.ID]
	}
	if give == 0 {
		return nil
	}
	return l.move(ctx, tx, eventID, p.ID, give, models.MotivoLiberacion)
}

// Adjust applies a manual restock or write-off outside of any event
func (l *StockLedger) Adjust(ctx context.Context, tx store.Stock, productID, delta int) (*models.Product, error) {
	locked, err := tx.LockProducts(ctx, []int{productID})
	if err != nil {
		return nil, err
	}
	p, ok := locked[productID]
	if !ok {
		return nil, apperr.NotFound("producto", productID)
	}
	if p.Stock+delta < 0 {
		return nil, apperr.InsufficientStock([]models.StockShortage{shortage(p, -delta)})
	}
	if err := tx.AddStock(ctx, productID, delta); err != nil {
		return nil, err
	}
	if err := tx.InsertStockMovement(ctx, &models.StockMovement{
		ProductoID: productID, Cantidad: delta, Motivo: models.MotivoAjuste,
	}); err != nil {
		return nil, err
	}
	p.Stock += delta
	return p, nil
}

func (l *StockLedger) move(ctx context.Context, tx store.Stock, eventID, productID, delta int, motivo string) error {
	if err := tx.AddStock(ctx, productID, delta); err != nil {
		return err
	}
	ev := eventID
	return tx.InsertStockMovement(ctx, &models.StockMovement{
		ProductoID: productID,
		EventoID:   &ev,
		Cantidad:   delta,
		Motivo:     motivo,
	})
}

func shortage(p *models.Product, required int) models.StockShortage {
	return models.StockShortage{
		ProductoID: p.ID,
		Nombre:     p.Nombre,
		Requerido:  required,
		Disponible: p.Stock,
	}
}
