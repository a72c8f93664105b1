package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordStatus replaces the old activo flag on catalog rows
type RecordStatus string

const (
	StatusActivo   RecordStatus = "activo"
	StatusInactivo RecordStatus = "inactivo"
)

func (s RecordStatus) IsValid() bool {
	return s == StatusActivo || s == StatusInactivo
}

// SetStatusRequest activates or deactivates a catalog row
type SetStatusRequest struct {
	Status RecordStatus `json:"status"`
}

type Category struct {
	ID          int          `json:"id"`
	Nombre      string       `json:"nombre"`
	Descripcion string       `json:"descripcion"`
	Status      RecordStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Product struct {
	ID              int             `json:"id"`
	CategoriaID     *int            `json:"categoria_id,omitempty"`
	CategoriaNombre string          `json:"categoria_nombre,omitempty"`
	Nombre          string          `json:"nombre"`
	Descripcion     string          `json:"descripcion"`
	Precio          decimal.Decimal `json:"precio"`
	Stock           int             `json:"stock"`
	ControlaStock   bool            `json:"controla_stock"` // false for services
	Unidad          string          `json:"unidad"`
	Status          RecordStatus    `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CategoryRequest struct {
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}

type ProductRequest struct {
	CategoriaID   *int            `json:"categoria_id"`
	Nombre        string          `json:"nombre"`
	Descripcion   string          `json:"descripcion"`
	Precio        decimal.Decimal `json:"precio"`
	Stock         int             `json:"stock"`
	ControlaStock *bool           `json:"controla_stock"` // defaults to true
	Unidad        string          `json:"unidad"`
}

// StockAdjustRequest is a manual restock or write-off
type StockAdjustRequest struct {
	Delta  int    `json:"delta"`
	Motivo string `json:"motivo"`
}

// Stock movement reasons
const (
	MotivoCompromiso = "compromiso"
	MotivoLiberacion = "liberacion"
	MotivoAjuste     = "ajuste"
)

// StockMovement is one signed change of a product's stock
type StockMovement struct {
	ID         int       `json:"id"`
	ProductoID int       `json:"producto_id"`
	EventoID   *int      `json:"evento_id,omitempty"`
	Cantidad   int       `json:"cantidad"`
	Motivo     string    `json:"motivo"`
	CreatedAt  time.Time `json:"created_at"`
}

// StockRequirement is a quantity an event needs from one product
type StockRequirement struct {
	ProductoID int
	Cantidad   int
}

// StockShortage describes one product that cannot cover its requirement
type StockShortage struct {
	ProductoID int    `json:"producto_id"`
	Nombre     string `json:"nombre"`
	Requerido  int    `json:"requerido"`
	Disponible int    `json:"disponible"`
}
