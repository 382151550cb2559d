package entity

import "github.com/google/uuid"

// Vendor is a master-data vendor record used for name resolution.
type Vendor struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Inactive bool      `json:"inactive"`
}

// Subsidiary is a master-data subsidiary record used for name resolution.
type Subsidiary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Inactive bool      `json:"inactive"`
}
