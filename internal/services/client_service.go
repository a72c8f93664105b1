package services

import (
	"context"
	"regexp"
	"strings"

	"eventos-backend/internal/apperr"
	"eventos-backend/internal/models"
)

type ClientRepository interface {
	GetClient(ctx context.Context, id int) (*models.Client, error)
	ListClients(ctx context.Context, includeInactive bool, search string) ([]models.Client, error)
	CreateClient(ctx context.Context, c *models.Client) error
	UpdateClient(ctx context.Context, c *models.Client) error
	SetClientStatus(ctx context.Context, id int, status models.RecordStatus) error
}

type SalonRepository interface {
	GetSalon(ctx context.Context, id int) (*models.Salon, error)
	ListSalons(ctx context.Context, includeInactive bool) ([]models.Salon, error)
	CreateSalon(ctx context.Context, s *models.Salon) error
	UpdateSalon(ctx context.Context, s *models.Salon) error
	SetSalonStatus(ctx context.Context, id int, status models.RecordStatus) error
}

var phoneDigits = regexp.MustCompile(`^\+?[0-9 ()-]{10,20}$`)

type ClientService struct {
	Repo ClientRepository
}

func NewClientService(repo ClientRepository) *ClientService {
	return &ClientService{Repo: repo}
}

func (s *ClientService) Create(ctx context.Context, req models.ClientRequest) (*models.Client, error) {
	if err := validateClient(req); err != nil {
		return nil, err
	}
	c := &models.Client{
		Nombre:    strings.TrimSpace(req.Nombre),
		Telefono:  strings.TrimSpace(req.Telefono),
		Email:     strings.TrimSpace(req.Email),
		Direccion: req.Direccion,
		Status:    models.StatusActivo,
	}
	if err := s.Repo.CreateClient(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Get(ctx context.Context, id int) (*models.Client, error) {
	return s.Repo.GetClient(ctx, id)
}

// List matches search against name, phone and email
func (s *ClientService) List(ctx context.Context, includeInactive bool, search string) ([]models.Client, error) {
	return s.Repo.ListClients(ctx, includeInactive, strings.TrimSpace(search))
}

func (s *ClientService) Update(ctx context.Context, id int, req models.ClientRequest) (*models.Client, error) {
	if err := validateClient(req); err != nil {
		return nil, err
	}
	c, err := s.Repo.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Nombre = strings.TrimSpace(req.Nombre)
	c.Telefono = strings.TrimSpace(req.Telefono)
	c.Email = strings.TrimSpace(req.Email)
	c.Direccion = req.Direccion
	if err := s.Repo.UpdateClient(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) SetStatus(ctx context.Context, id int, status models.RecordStatus) error {
	if !status.IsValid() {
		return apperr.Validationf("status inválido: %q", status)
	}
	return s.Repo.SetClientStatus(ctx, id, status)
}

func validateClient(req models.ClientRequest) error {
	if strings.TrimSpace(req.Nombre) == "" || strings.TrimSpace(req.Telefono) == "" {
		return apperr.Validation("nombre y teléfono son requeridos")
	}
	if !phoneDigits.MatchString(strings.TrimSpace(req.Telefono)) {
		return apperr.Validationf("teléfono inválido: %s", req.Telefono)
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		return apperr.Validationf("email inválido: %s", req.Email)
	}
	return nil
}

type SalonService struct {
	Repo SalonRepository
}

func NewSalonService(repo SalonRepository) *SalonService {
	return &SalonService{Repo: repo}
}

func (s *SalonService) Create(ctx context.Context, req models.SalonRequest) (*models.Salon, error) {
	if err := validateSalon(req); err != nil {
		return nil, err
	}
	salon := &models.Salon{
		Nombre:    strings.TrimSpace(req.Nombre),
		Capacidad: req.Capacidad,
		Direccion: req.Direccion,
		Status:    models.StatusActivo,
	}
	if err := s.Repo.CreateSalon(ctx, salon); err != nil {
		return nil, err
	}
	return salon, nil
}

func (s *SalonService) Get(ctx context.Context, id int) (*models.Salon, error) {
	return s.Repo.GetSalon(ctx, id)
}

func (s *SalonService) List(ctx context.Context, includeInactive bool) ([]models.Salon, error) {
	return s.Repo.ListSalons(ctx, includeInactive)
}

func (s *SalonService) Update(ctx context.Context, id int, req models.SalonRequest) (*models.Salon, error) {
	if err := validateSalon(req); err != nil {
		return nil, err
	}
	salon, err := s.Repo.GetSalon(ctx, id)
	if err != nil {
		return nil, err
	}
	salon.Nombre = strings.TrimSpace(req.Nombre)
	salon.Capacidad = req.Capacidad
	salon.Direccion = req.Direccion
	if err := s.Repo.UpdateSalon(ctx, salon); err != nil {
		return nil, err
	}
	return salon, nil
}

func (s *SalonService) SetStatus(ctx context.Context, id int, status models.RecordStatus) error {
	if !status.IsValid() {
		return apperr.Validationf("status inválido: %q", status)
	}
	return s.Repo.SetSalonStatus(ctx, id, status)
}

func validateSalon(req models.SalonRequest) error {
	if strings.TrimSpace(req.Nombre) == "" {
		return apperr.Validation("el nombre del salón es requerido")
	}
	if req.Capacidad < 0 {
		return apperr.Validation("la capacidad no puede ser negativa")
	}
	return nil
}
