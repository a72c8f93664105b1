package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a reusable template of base price, bundled products and services
type Plan struct {
	ID            int             `json:"id"`
	Nombre        string          `json:"nombre"`
	Descripcion   string          `json:"descripcion"`
	PrecioBase    decimal.Decimal `json:"precio_base"`
	CapacidadMin  int             `json:"capacidad_min"`
	CapacidadMax  int             `json:"capacidad_max"`
	DuracionHoras int             `json:"duracion_horas"`
	Status        RecordStatus    `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Productos []PlanProduct `json:"productos,omitempty"`
	Servicios []PlanService `json:"servicios,omitempty"`
}

// PlanProduct is a product bundled into a plan
type PlanProduct struct {
	ID             int    `json:"id"`
	PlanID         int    `json:"plan_id"`
	ProductoID     int    `json:"producto_id"`
	ProductoNombre string `json:"producto_nombre,omitempty"`
	Cantidad       int    `json:"cantidad"`
}

// PlanService is one service template row of a plan
type PlanService struct {
	ID     int    `json:"id"`
	PlanID int    `json:"plan_id"`
	Nombre string `json:"nombre"`
	Orden  int    `json:"orden"`
}

type PlanProductInput struct {
	ProductoID int `json:"producto_id"`
	Cantidad   int `json:"cantidad"`
}

type PlanServiceInput struct {
	Nombre string `json:"nombre"`
	Orden  int    `json:"orden"`
}

// PlanRequest creates or fully replaces a plan, its products and services
type PlanRequest struct {
	Nombre        string             `json:"nombre"`
	Descripcion   string             `json:"descripcion"`
	PrecioBase    decimal.Decimal    `json:"precio_base"`
	CapacidadMin  int                `json:"capacidad_min"`
	CapacidadMax  int                `json:"capacidad_max"`
	DuracionHoras int                `json:"duracion_horas"`
	Productos     []PlanProductInput `json:"productos"`
	Servicios     []PlanServiceInput `json:"servicios"`
}
