package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
)

type PlanRepository interface {
	GetPlanDetail(ctx context.Context, id int) (*models.Plan, error)
	ListPlans(ctx context.Context, includeInactive bool) ([]models.Plan, error)
	SavePlan(ctx context.Context, p *models.Plan, products []models.PlanProductInput, services []models.PlanServiceInput) error
	SetPlanStatus(ctx context.Context, id int, status models.RecordStatus) error
}

// OpenEventCounter counts events in cotizacion, confirmado or en_proceso using a plan
type OpenEventCounter interface {
	CountOpenEventsByPlan(ctx context.Context, planID int) (int, error)
}

// PlanService maintains plan templates. Events freeze the base price, the
// bundle and the checklist when they are created, so edits here only reach
// an existing event through an explicit checklist regeneration.
type PlanService struct {
	Repo     PlanRepository
	Products ProductRepository
	Events   OpenEventCounter
	logger   *log.Logger
}

func NewPlanService(repo PlanRepository, products ProductRepository, events OpenEventCounter, logger *log.Logger) *PlanService {
	return &PlanService{
		Repo:     repo,
		Products: products,
		Events:   events,
		logger:   loggerOrDefault(logger),
	}
}

func (s *PlanService) List(ctx context.Context, includeInactive bool) ([]models.Plan, error) {
	return s.Repo.ListPlans(ctx, includeInactive)
}

func (s *PlanService) Get(ctx context.Context, id int) (*models.Plan, error) {
	return s.Repo.GetPlanDetail(ctx, id)
}

func (s *PlanService) Create(ctx context.Context, req models.PlanRequest) (*models.Plan, error) {
	return s.save(ctx, 0, req)
}

// Update replaces the plan with its bundled products and service templates
func (s *PlanService) Update(ctx context.Context, id int, req models.PlanRequest) (*models.Plan, error) {
	if _, err := s.Repo.GetPlanDetail(ctx, id); err != nil {
		return nil, err
	}
	return s.save(ctx, id, req)
}

// SetStatus deactivation is refused while events still heading towards
// completion use the plan. The count and the update are separate statements;
// an event booked in between keeps working since it already holds a copy.
func (s *PlanService) SetStatus(ctx context.Context, id int, status models.RecordStatus) error {
	if !status.IsValid() {
		return apperr.Validationf("status inválido: %q", status)
	}
	if status == models.StatusInactivo {
		n, err := s.Events.CountOpenEventsByPlan(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict(fmt.Sprintf("el plan tiene %d evento(s) activos", n), n)
		}
	}
	if err := s.Repo.SetPlanStatus(ctx, id, status); err != nil {
		return err
	}
	s.logger.Printf("[Planes] Plan %d -> %s", id, status)
	return nil
}

func (s *PlanService) save(ctx context.Context, id int, req models.PlanRequest) (*models.Plan, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	p := &models.Plan{
		ID:            id,
		Nombre:        strings.TrimSpace(req.Nombre),
		Descripcion:   req.Descripcion,
		PrecioBase:    req.PrecioBase,
		CapacidadMin:  req.CapacidadMin,
		CapacidadMax:  req.CapacidadMax,
		DuracionHoras: req.DuracionHoras,
	}
	services := make([]models.PlanServiceInput, len(req.Servicios))
	for i, sv := range req.Servicios {
		services[i] = models.PlanServiceInput{Nombre: strings.TrimSpace(sv.Nombre), Orden: sv.Orden}
		if services[i].Orden == 0 {
			services[i].Orden = i + 1
		}
	}
	if err := s.Repo.SavePlan(ctx, p, req.Productos, services); err != nil {
		return nil, err
	}
	return s.Repo.GetPlanDetail(ctx, p.ID)
}

func (s *PlanService) validate(ctx context.Context, req models.PlanRequest) error {
	if strings.TrimSpace(req.Nombre) == "" {
		return apperr.Validation("el nombre del plan es requerido")
	}
	if !nonNegative(req.PrecioBase) {
		return apperr.Validation("el precio base no puede ser negativo")
	}
	if req.CapacidadMin < 0 || req.CapacidadMax < 0 {
		return apperr.Validation("la capacidad no puede ser negativa")
	}
	if req.CapacidadMax > 0 && req.CapacidadMin > req.CapacidadMax {
		return apperr.Validation("capacidad_min no puede ser mayor que capacidad_max")
	}
	if req.DuracionHoras < 0 {
		return apperr.Validation("la duración no puede ser negativa")
	}

	seen := make(map[int]bool, len(req.Productos))
	for _, in := range req.Productos {
		if in.Cantidad <= 0 {
			return apperr.Validationf("cantidad inválida para el producto %d", in.ProductoID)
		}
		if seen[in.ProductoID] {
			return apperr.Validationf("el producto %d aparece dos veces en el plan", in.ProductoID)
		}
		seen[in.ProductoID] = true
		p, err := s.Products.GetProduct(ctx, in.ProductoID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusActivo {
			return apperr.Validationf("el producto %s está inactivo", p.Nombre)
		}
	}
	for _, sv := range req.Servicios {
		if strings.TrimSpace(sv.Nombre) == "" {
			return apperr.Validation("cada servicio del plan necesita nombre")
		}
	}
	return nil
}
