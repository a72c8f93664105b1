package repositories

import (
	"context"

	"eventos-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type PlanRepository struct {
	DB DBTX
}

func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{DB: db}
}

const planColumns = `id, nombre, descripcion, precio_base, capacidad_min, capacidad_max, duracion_horas, status, created_at, updated_at`

func scanPlan(row pgx.Row) (*models.Plan, error) {
	var p models.Plan
	err := row.Scan(&p.ID, &p.Nombre, &p.Descripcion, &p.PrecioBase, &p.CapacidadMin, &p.CapacidadMax,
		&p.DuracionHoras, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *PlanRepository) GetPlan(ctx context.Context, id int) (*models.Plan, error) {
	p, err := scanPlan(r.DB.QueryRow(ctx, `SELECT `+planColumns+` FROM planes WHERE id=$1`, id))
	if err != nil {
		return nil, rowErr("get plan", "plan", id, err)
	}
	return p, nil
}

func (r *PlanRepository) ListPlanProducts(ctx context.Context, planID int) ([]models.PlanProduct, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT pp.id, pp.plan_id, pp.producto_id, p.nombre, pp.cantidad
		 FROM plan_productos pp JOIN productos p ON p.id = pp.producto_id
		 WHERE pp.plan_id=$1 ORDER BY pp.producto_id`, planID)
	if err != nil {
		return nil, mapErr("list plan products", err)
	}
	defer rows.Close()

	var out []models.PlanProduct
	for rows.Next() {
		var pp models.PlanProduct
		if err := rows.Scan(&pp.ID, &pp.PlanID, &pp.ProductoID, &pp.ProductoNombre, &pp.Cantidad); err != nil {
			return nil, mapErr("scan plan product", err)
		}
		out = append(out, pp)
	}
	return out, mapErr("list plan products", rows.Err())
}

func (r *PlanRepository) ListPlanServices(ctx context.Context, planID int) ([]models.PlanService, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, plan_id, nombre, orden FROM plan_servicios WHERE plan_id=$1 ORDER BY orden, id`, planID)
	if err != nil {
		return nil, mapErr("list plan services", err)
	}
	defer rows.Close()

	var out []models.PlanService
	for rows.Next() {
		var ps models.PlanService
		if err := rows.Scan(&ps.ID, &ps.PlanID, &ps.Nombre, &ps.Orden); err != nil {
			return nil, mapErr("scan plan service", err)
		}
		out = append(out, ps)
	}
	return out, mapErr("list plan services", rows.Err())
}

// GetPlanDetail returns the plan with its bundled products and service templates
func (r *PlanRepository) GetPlanDetail(ctx context.Context, id int) (*models.Plan, error) {
	p, err := r.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Productos, err = r.ListPlanProducts(ctx, id); err != nil {
		return nil, err
	}
	if p.Servicios, err = r.ListPlanServices(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PlanRepository) ListPlans(ctx context.Context, includeInactive bool) ([]models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM planes`
	if !includeInactive {
		query += ` WHERE status='activo'`
	}
	rows, err := r.DB.Query(ctx, query+` ORDER BY nombre`)
	if err != nil {
		return nil, mapErr("list plans", err)
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, mapErr("scan plan", err)
		}
		plans = append(plans, *p)
	}
	return plans, mapErr("list plans", rows.Err())
}

// SavePlan inserts the plan (ID 0) or replaces it, always rewriting its
// products and service templates as a whole. Events already created keep
// their own base price, bundle and checklist rows.
func (r *PlanRepository) SavePlan(ctx context.Context, p *models.Plan, products []models.PlanProductInput, services []models.PlanServiceInput) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		var err error
		if p.ID == 0 {
			err = tx.QueryRow(ctx,
				`INSERT INTO planes(nombre, descripcion, precio_base, capacidad_min, capacidad_max, duracion_horas)
				 VALUES($1, $2, $3, $4, $5, $6)
				 RETURNING id, status, created_at, updated_at`,
				p.Nombre, p.Descripcion, p.PrecioBase, p.CapacidadMin, p.CapacidadMax, p.DuracionHoras,
			).Scan(&p.ID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
		} else {
			err = tx.QueryRow(ctx,
				`UPDATE planes SET nombre=$1, descripcion=$2, precio_base=$3, capacidad_min=$4, capacidad_max=$5,
				        duracion_horas=$6, updated_at=NOW()
				 WHERE id=$7
				 RETURNING status, created_at, updated_at`,
				p.Nombre, p.Descripcion, p.PrecioBase, p.CapacidadMin, p.CapacidadMax, p.DuracionHoras, p.ID,
			).Scan(&p.Status, &p.CreatedAt, &p.UpdatedAt)
		}
		if err != nil {
			return rowErr("save plan", "plan", p.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM plan_productos WHERE plan_id=$1`, p.ID); err != nil {
			return mapErr("clear plan products", err)
		}
		for _, in := range products {
			if _, err := tx.Exec(ctx,
				`INSERT INTO plan_productos(plan_id, producto_id, cantidad) VALUES($1, $2, $3)`,
				p.ID, in.ProductoID, in.Cantidad); err != nil {
				return mapErr("insert plan product", err)
			}
		}

		// Templates are replaced in place where possible so checklist back references survive
		existing, err := NewPlanRepository(tx).ListPlanServices(ctx, p.ID)
		if err != nil {
			return err
		}
		for i, in := range services {
			if i < len(existing) {
				if _, err := tx.Exec(ctx,
					`UPDATE plan_servicios SET nombre=$1, orden=$2 WHERE id=$3`,
					in.Nombre, in.Orden, existing[i].ID); err != nil {
					return mapErr("update plan service", err)
				}
				continue
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO plan_servicios(plan_id, nombre, orden) VALUES($1, $2, $3)`,
				p.ID, in.Nombre, in.Orden); err != nil {
				return mapErr("insert plan service", err)
			}
		}
		for _, old := range existing[min(len(services), len(existing)):] {
			if _, err := tx.Exec(ctx, `DELETE FROM plan_servicios WHERE id=$1`, old.ID); err != nil {
				return mapErr("delete plan service", err)
			}
		}
		return nil
	})
}

func (r *PlanRepository) SetPlanStatus(ctx context.Context, id int, status models.RecordStatus) error {
	return execOne(ctx, r.DB, "plan", "set plan status", id,
		`UPDATE planes SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
}
