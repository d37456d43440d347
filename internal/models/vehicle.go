package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle is a fleet vehicle identified by its license plate. Vehicles are
// never hard-deleted; they are deactivated instead.
type Vehicle struct {
	ID        uuid.UUID `db:"id"`
	Plate     string    `db:"plate"`
	Alias     string    `db:"alias"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}
