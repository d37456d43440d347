package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FuelEntry is the bookkeeping record derived from one fuel ticket.
// At most one entry exists per document.
type FuelEntry struct {
	ID            uuid.UUID        `db:"id"`
	DocumentID    uuid.UUID        `db:"document_id"`
	VehicleID     uuid.UUID        `db:"vehicle_id"`
	Date          time.Time        `db:"date"`
	Liters        decimal.Decimal  `db:"liters"`
	PricePerLiter decimal.Decimal  `db:"price_per_liter"`
	Subtotal      *decimal.Decimal `db:"subtotal_amount"`
	Tax           *decimal.Decimal `db:"tax_amount"`
	Total         decimal.Decimal  `db:"total_amount"`
	Station       string           `db:"station"`
	FuelType      string           `db:"fuel_type"`
	Kilometers    *int             `db:"kilometers"`
	CreatedAt     time.Time        `db:"created_at"`
}
