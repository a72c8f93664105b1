package models

import "time"

type Client struct {
	ID        int          `json:"id"`
	Nombre    string       `json:"nombre"`
	Telefono  string       `json:"telefono"`
	Email     string       `json:"email"`
	Direccion string       `json:"direccion"`
	Status    RecordStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

type ClientRequest struct {
	Nombre    string `json:"nombre"`
	Telefono  string `json:"telefono"`
	Email     string `json:"email"`
	Direccion string `json:"direccion"`
}

// Salon is a venue events can be booked into
type Salon struct {
	ID        int          `json:"id"`
	Nombre    string       `json:"nombre"`
	Capacidad int          `json:"capacidad"`
	Direccion string       `json:"direccion"`
	Status    RecordStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

type SalonRequest struct {
	Nombre    string `json:"nombre"`
	Capacidad int    `json:"capacidad"`
	Direccion string `json:"direccion"`
}
