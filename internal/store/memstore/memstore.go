// Package memstore is an in-memory store.Store. Transactions run one at a
// time against a private copy of the data, which replaces the shared copy
// only when the transaction function succeeds.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
	"eventos-backend/internal/store"

	"github.com/shopspring/decimal"
)

type data struct {
	nextID       int
	events       map[int]models.Event
	lines        map[int]map[int]models.EventProductLine // evento -> producto -> line
	bundles      map[int][]models.PlanProduct            // evento -> plan products at booking
	checklist    map[int]models.ChecklistItem
	plans        map[int]models.Plan
	planProducts map[int][]models.PlanProduct
	planServices map[int][]models.PlanService
	products     map[int]models.Product
	movements    []models.StockMovement
	payments     map[int]models.Payment
	clients      map[int]models.Client
	orders       map[string]models.OnlinePayment // by gateway order id
}

func newData() *data {
	return &data{
		events:       make(map[int]models.Event),
		lines:        make(map[int]map[int]models.EventProductLine),
		bundles:      make(map[int][]models.PlanProduct),
		checklist:    make(map[int]models.ChecklistItem),
		plans:        make(map[int]models.Plan),
		planProducts: make(map[int][]models.PlanProduct),
		planServices: make(map[int][]models.PlanService),
		products:     make(map[int]models.Product),
		payments:     make(map[int]models.Payment),
		clients:      make(map[int]models.Client),
		orders:       make(map[string]models.OnlinePayment),
	}
}

func (d *data) clone() *data {
	c := newData()
	c.nextID = d.nextID
	for k, v := range d.events {
		c.events[k] = v
	}
	for k, m := range d.lines {
		cm := make(map[int]models.EventProductLine, len(m))
		for pk, l := range m {
			cm[pk] = l
		}
		c.lines[k] = cm
	}
	for k, v := range d.bundles {
		c.bundles[k] = append([]models.PlanProduct(nil), v...)
	}
	for k, v := range d.checklist {
		c.checklist[k] = v
	}
	for k, v := range d.plans {
		c.plans[k] = v
	}
	for k, v := range d.planProducts {
		c.planProducts[k] = append([]models.PlanProduct(nil), v...)
	}
	for k, v := range d.planServices {
		c.planServices[k] = append([]models.PlanService(nil), v...)
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	c.movements = append([]models.StockMovement(nil), d.movements...)
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.clients {
		c.clients[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	return c
}

func (d *data) id() int {
	d.nextID++
	return d.nextID
}

// Store is a serializable in-memory store
type Store struct {
	mu   sync.Mutex
	data *data
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newData()}
}

// InTx runs fn with exclusive access, keeping its writes only on success
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return apperr.Infrastructure(err)
	}
	work := s.data.clone()
	if err := fn(&tx{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Seeding and inspection helpers for tests

func (s *Store) AddClient(c models.Client) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.data.id()
	if c.Status == "" {
		c.Status = models.StatusActivo
	}
	s.data.clients[c.ID] = c
	return c.ID
}

func (s *Store) AddProduct(p models.Product) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.data.id()
	if p.Status == "" {
		p.Status = models.StatusActivo
	}
	s.data.products[p.ID] = p
	return p.ID
}

// AddPlan stores the plan with its bundled products and service templates
func (s *Store) AddPlan(p models.Plan, products []models.PlanProductInput, services []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.data.id()
	if p.Status == "" {
		p.Status = models.StatusActivo
	}
	p.Productos, p.Servicios = nil, nil
	s.data.plans[p.ID] = p
	for _, in := range products {
		s.data.planProducts[p.ID] = append(s.data.planProducts[p.ID], models.PlanProduct{
			ID: s.data.id(), PlanID: p.ID, ProductoID: in.ProductoID, Cantidad: in.Cantidad,
		})
	}
	for i, name := range services {
		s.data.planServices[p.ID] = append(s.data.planServices[p.ID], models.PlanService{
			ID: s.data.id(), PlanID: p.ID, Nombre: name, Orden: i + 1,
		})
	}
	return p.ID
}

// SetPlanServices replaces a plan's service templates. Event items copied
// from a removed template lose their back reference, as ON DELETE SET NULL does.
func (s *Store) SetPlanServices(planID int, services []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make(map[int]bool)
	for _, t := range s.data.planServices[planID] {
		removed[t.ID] = true
	}
	for k, item := range s.data.checklist {
		if item.PlanServicioID != nil && removed[*item.PlanServicioID] {
			item.PlanServicioID = nil
			s.data.checklist[k] = item
		}
	}
	s.data.planServices[planID] = nil
	for i, name := range services {
		s.data.planServices[planID] = append(s.data.planServices[planID], models.PlanService{
			ID: s.data.id(), PlanID: planID, Nombre: name, Orden: i + 1,
		})
	}
}

// SetPlanProducts replaces a plan's bundled products
func (s *Store) SetPlanProducts(planID int, products []models.PlanProductInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.planProducts[planID] = nil
	for _, in := range products {
		s.data.planProducts[planID] = append(s.data.planProducts[planID], models.PlanProduct{
			ID: s.data.id(), PlanID: planID, ProductoID: in.ProductoID, Cantidad: in.Cantidad,
		})
	}
}

// SetPlanPrice changes a plan's base price
func (s *Store) SetPlanPrice(planID int, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.data.plans[planID]
	p.PrecioBase = price
	s.data.plans[planID] = p
}

// Product returns a copy of the stored product
func (s *Store) Product(id int) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.products[id]
	return p, ok
}

// Event returns a copy of the stored event row
func (s *Store) Event(id int) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.events[id]
	return e, ok
}

// Movements returns every stock movement recorded so far
func (s *Store) Movements() []models.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StockMovement(nil), s.data.movements...)
}

type tx struct {
	d *data
}

func now() time.Time { return time.Now().UTC() }

// Events

func (t *tx) CreateEvent(_ context.Context, e *models.Event) error {
	e.ID = t.d.id()
	e.CreatedAt, e.UpdatedAt = now(), now()
	row := *e
	row.ClienteNombre, row.ClienteTelefono = "", ""
	t.d.events[e.ID] = row
	return nil
}

func (t *tx) GetEvent(_ context.Context, id int) (*models.Event, error) {
	e, ok := t.d.events[id]
	if !ok {
		return nil, apperr.NotFound("evento", id)
	}
	if c, ok := t.d.clients[e.ClienteID]; ok {
		e.ClienteNombre, e.ClienteTelefono = c.Nombre, c.Telefono
	}
	return &e, nil
}

func (t *tx) LockEvent(ctx context.Context, id int) (*models.Event, error) {
	return t.GetEvent(ctx, id)
}

func (t *tx) ListEvents(ctx context.Context, f models.EventFilter) ([]models.Event, error) {
	var out []models.Event
	for id := range t.d.events {
		e, _ := t.GetEvent(ctx, id)
		if f.Estado != "" && e.Estado != f.Estado {
			continue
		}
		if f.ClienteID != 0 && e.ClienteID != f.ClienteID {
			continue
		}
		if f.Desde != nil && e.FechaEvento.Before(*f.Desde) {
			continue
		}
		if f.Hasta != nil && e.FechaEvento.After(*f.Hasta) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaEvento.Equal(out[j].FechaEvento) {
			return out[i].FechaEvento.Before(out[j].FechaEvento)
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *tx) update(id int, fn func(e *models.Event)) error {
	e, ok := t.d.events[id]
	if !ok {
		return apperr.NotFound("evento", id)
	}
	fn(&e)
	e.UpdatedAt = now()
	t.d.events[id] = e
	return nil
}

func (t *tx) UpdateEventState(_ context.Context, id int, state models.EventState) error {
	return t.update(id, func(e *models.Event) { e.Estado = state })
}

func (t *tx) UpdateEventTotal(_ context.Context, id int, total decimal.Decimal) error {
	return t.update(id, func(e *models.Event) { e.Total = total })
}

func (t *tx) UpdateEventRating(_ context.Context, id int, rating int, comment string) error {
	return t.update(id, func(e *models.Event) {
		e.Calificacion = &rating
		e.ComentarioCalificacion = comment
	})
}

func (t *tx) DeleteEvent(_ context.Context, id int) error {
	if _, ok := t.d.events[id]; !ok {
		return apperr.NotFound("evento", id)
	}
	delete(t.d.events, id)
	delete(t.d.lines, id)
	delete(t.d.bundles, id)
	for k, item := range t.d.checklist {
		if item.EventoID == id {
			delete(t.d.checklist, k)
		}
	}
	for k, p := range t.d.payments {
		if p.EventoID == id {
			delete(t.d.payments, k)
		}
	}
	for k, o := range t.d.orders {
		if o.EventoID == id {
			delete(t.d.orders, k)
		}
	}
	for i := range t.d.movements {
		if m := t.d.movements[i]; m.EventoID != nil && *m.EventoID == id {
			t.d.movements[i].EventoID = nil
		}
	}
	return nil
}

// Lines

func (t *tx) ListEventLines(_ context.Context, eventID int) ([]models.EventProductLine, error) {
	var out []models.EventProductLine
	for _, l := range t.d.lines[eventID] {
		if p, ok := t.d.products[l.ProductoID]; ok {
			l.ProductoNombre = p.Nombre
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) GetEventLine(_ context.Context, eventID, productID int) (*models.EventProductLine, error) {
	l, ok := t.d.lines[eventID][productID]
	if !ok {
		return nil, apperr.NotFoundMsg("el producto no está asociado al evento")
	}
	return &l, nil
}

func (t *tx) UpsertEventLine(_ context.Context, l *models.EventProductLine) error {
	if _, ok := t.d.events[l.EventoID]; !ok {
		return apperr.NotFound("evento", l.EventoID)
	}
	m := t.d.lines[l.EventoID]
	if m == nil {
		m = make(map[int]models.EventProductLine)
		t.d.lines[l.EventoID] = m
	}
	if old, ok := m[l.ProductoID]; ok {
		l.ID, l.CreatedAt = old.ID, old.CreatedAt
	} else {
		l.ID, l.CreatedAt = t.d.id(), now()
	}
	m[l.ProductoID] = *l
	return nil
}

func (t *tx) DeleteEventLine(_ context.Context, eventID, productID int) error {
	if _, ok := t.d.lines[eventID][productID]; !ok {
		return apperr.NotFoundMsg("el producto no está asociado al evento")
	}
	delete(t.d.lines[eventID], productID)
	return nil
}

func (t *tx) InsertEventPlanProducts(_ context.Context, eventID int, items []models.PlanProduct) error {
	if _, ok := t.d.events[eventID]; !ok {
		return apperr.NotFound("evento", eventID)
	}
	for i := range items {
		if _, ok := t.d.products[items[i].ProductoID]; !ok {
			return apperr.NotFound("producto", items[i].ProductoID)
		}
		for _, have := range t.d.bundles[eventID] {
			if have.ProductoID == items[i].ProductoID {
				return apperr.Conflict("el producto ya está en el paquete del evento", 1)
			}
		}
		items[i].ID = t.d.id()
		t.d.bundles[eventID] = append(t.d.bundles[eventID], items[i])
	}
	return nil
}

func (t *tx) ListEventPlanProducts(_ context.Context, eventID int) ([]models.PlanProduct, error) {
	out := append([]models.PlanProduct(nil), t.d.bundles[eventID]...)
	for i := range out {
		out[i].ProductoNombre = t.d.products[out[i].ProductoID].Nombre
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductoID < out[j].ProductoID })
	return out, nil
}

// Checklist

func (t *tx) ListChecklist(_ context.Context, eventID int) ([]models.ChecklistItem, error) {
	var out []models.ChecklistItem
	for _, item := range t.d.checklist {
		if item.EventoID == eventID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orden != out[j].Orden {
			return out[i].Orden < out[j].Orden
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) GetChecklistItem(_ context.Context, eventID, itemID int) (*models.ChecklistItem, error) {
	item, ok := t.d.checklist[itemID]
	if !ok || item.EventoID != eventID {
		return nil, apperr.NotFound("servicio", itemID)
	}
	return &item, nil
}

func (t *tx) InsertChecklistItem(_ context.Context, item *models.ChecklistItem) error {
	item.ID = t.d.id()
	item.UpdatedAt = now()
	t.d.checklist[item.ID] = *item
	return nil
}

func (t *tx) UpdateChecklistItem(_ context.Context, item *models.ChecklistItem) error {
	if _, ok := t.d.checklist[item.ID]; !ok {
		return apperr.NotFound("servicio", item.ID)
	}
	item.UpdatedAt = now()
	t.d.checklist[item.ID] = *item
	return nil
}

func (t *tx) DeleteChecklistItem(_ context.Context, eventID, itemID int) error {
	item, ok := t.d.checklist[itemID]
	if !ok || item.EventoID != eventID {
		return apperr.NotFound("servicio", itemID)
	}
	delete(t.d.checklist, itemID)
	return nil
}

func (t *tx) DeleteChecklist(_ context.Context, eventID int) error {
	for k, item := range t.d.checklist {
		if item.EventoID == eventID {
			delete(t.d.checklist, k)
		}
	}
	return nil
}

// Plans

func (t *tx) GetPlan(_ context.Context, id int) (*models.Plan, error) {
	p, ok := t.d.plans[id]
	if !ok {
		return nil, apperr.NotFound("plan", id)
	}
	return &p, nil
}

func (t *tx) ListPlanProducts(_ context.Context, planID int) ([]models.PlanProduct, error) {
	out := append([]models.PlanProduct(nil), t.d.planProducts[planID]...)
	for i := range out {
		out[i].ProductoNombre = t.d.products[out[i].ProductoID].Nombre
	}
	return out, nil
}

func (t *tx) ListPlanServices(_ context.Context, planID int) ([]models.PlanService, error) {
	return append([]models.PlanService(nil), t.d.planServices[planID]...), nil
}

// Stock

func (t *tx) GetProduct(_ context.Context, id int) (*models.Product, error) {
	p, ok := t.d.products[id]
	if !ok {
		return nil, apperr.NotFound("producto", id)
	}
	return &p, nil
}

func (t *tx) LockProducts(_ context.Context, ids []int) (map[int]*models.Product, error) {
	out := make(map[int]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.d.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (t *tx) AddStock(_ context.Context, productID, delta int) error {
	p, ok := t.d.products[productID]
	if !ok {
		return apperr.NotFound("producto", productID)
	}
	if p.Stock+delta < 0 {
		return apperr.InsufficientStock([]models.StockShortage{{
			ProductoID: p.ID, Nombre: p.Nombre, Requerido: -delta, Disponible: p.Stock,
		}})
	}
	p.Stock += delta
	p.UpdatedAt = now()
	t.d.products[productID] = p
	return nil
}

func (t *tx) InsertStockMovement(_ context.Context, m *models.StockMovement) error {
	m.ID = t.d.id()
	m.CreatedAt = now()
	t.d.movements = append(t.d.movements, *m)
	return nil
}

func (t *tx) CommittedStock(_ context.Context, eventID int) (map[int]int, error) {
	net := make(map[int]int)
	for _, m := range t.d.movements {
		if m.EventoID != nil && *m.EventoID == eventID {
			net[m.ProductoID] -= m.Cantidad
		}
	}
	for id, n := range net {
		if n <= 0 {
			delete(net, id)
		}
	}
	return net, nil
}

// Payments

func (t *tx) InsertPayment(_ context.Context, p *models.Payment) error {
	if _, ok := t.d.events[p.EventoID]; !ok {
		return apperr.NotFound("evento", p.EventoID)
	}
	p.ID = t.d.id()
	p.CreatedAt = now()
	t.d.payments[p.ID] = *p
	return nil
}

func (t *tx) GetPayment(_ context.Context, id int) (*models.Payment, error) {
	p, ok := t.d.payments[id]
	if !ok {
		return nil, apperr.NotFound("pago", id)
	}
	return &p, nil
}

func (t *tx) ListPayments(_ context.Context, eventID int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range t.d.payments {
		if p.EventoID == eventID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) DeletePayment(_ context.Context, id int) error {
	if _, ok := t.d.payments[id]; !ok {
		return apperr.NotFound("pago", id)
	}
	delete(t.d.payments, id)
	return nil
}

func (t *tx) PaymentTotals(_ context.Context, eventID int) (models.PaymentTotals, error) {
	totals := models.PaymentTotals{Pagado: decimal.Zero, Reembolsado: decimal.Zero}
	for _, p := range t.d.payments {
		if p.EventoID != eventID {
			continue
		}
		switch p.Tipo {
		case models.PagoTipoPago:
			totals.Pagado = totals.Pagado.Add(p.Monto)
		case models.PagoTipoReembolso:
			totals.Reembolsado = totals.Reembolsado.Add(p.Monto)
		}
	}
	return totals, nil
}

func (t *tx) RecentDuplicatePayment(_ context.Context, p *models.Payment, since time.Time) (bool, error) {
	for _, q := range t.d.payments {
		if q.EventoID == p.EventoID && q.Tipo == p.Tipo && q.Metodo == p.Metodo &&
			q.Monto.Equal(p.Monto) && !q.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// Clients

func (t *tx) GetClient(_ context.Context, id int) (*models.Client, error) {
	c, ok := t.d.clients[id]
	if !ok {
		return nil, apperr.NotFound("cliente", id)
	}
	return &c, nil
}

// Online orders

func (t *tx) CreateOnlineOrder(_ context.Context, o *models.OnlinePayment) error {
	if _, ok := t.d.events[o.EventoID]; !ok {
		return apperr.NotFound("evento", o.EventoID)
	}
	if _, ok := t.d.orders[o.RazorpayOrderID]; ok {
		return apperr.Conflict("registro duplicado (razorpay_order_id)", 1)
	}
	o.ID = t.d.id()
	o.CreatedAt, o.UpdatedAt = now(), now()
	t.d.orders[o.RazorpayOrderID] = *o
	return nil
}

func (t *tx) GetOnlineOrder(_ context.Context, orderID string) (*models.OnlinePayment, error) {
	o, ok := t.d.orders[orderID]
	if !ok {
		return nil, apperr.NotFoundMsg("orden " + orderID + " no encontrada")
	}
	return &o, nil
}

func (t *tx) LockOnlineOrder(ctx context.Context, orderID string) (*models.OnlinePayment, error) {
	return t.GetOnlineOrder(ctx, orderID)
}

func (t *tx) updateOrder(id int, fn func(o *models.OnlinePayment)) error {
	for k, o := range t.d.orders {
		if o.ID == id {
			fn(&o)
			o.UpdatedAt = now()
			t.d.orders[k] = o
			return nil
		}
	}
	return apperr.NotFound("orden", id)
}

func (t *tx) MarkOnlineOrderPaid(_ context.Context, id int, paymentID string, pagoID int) error {
	return t.updateOrder(id, func(o *models.OnlinePayment) {
		o.Estado = models.OrdenPagada
		o.RazorpayPaymentID = paymentID
		o.PagoID = &pagoID
	})
}

func (t *tx) MarkOnlineOrderFailed(_ context.Context, id int, paymentID, reason string) error {
	return t.updateOrder(id, func(o *models.OnlinePayment) {
		o.Estado = models.OrdenFallida
		o.RazorpayPaymentID = paymentID
		o.MotivoFallo = reason
	})
}
