package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ExpenseCategory string

const (
	ExpenseCategoryWorkshop   ExpenseCategory = "workshop"
	ExpenseCategoryTires      ExpenseCategory = "tires"
	ExpenseCategoryInsurance  ExpenseCategory = "insurance"
	ExpenseCategoryInspection ExpenseCategory = "inspection"
	ExpenseCategoryOther      ExpenseCategory = "other"
)

// ExpenseEntry is the bookkeeping record derived from one non-fuel chargeable
// document. At most one entry exists per document.
type ExpenseEntry struct {
	ID         uuid.UUID        `db:"id"`
	DocumentID uuid.UUID        `db:"document_id"`
	VehicleID  uuid.UUID        `db:"vehicle_id"`
	Date       time.Time        `db:"date"`
	Category   ExpenseCategory  `db:"category"`
	Subtotal   *decimal.Decimal `db:"subtotal_amount"`
	Tax        *decimal.Decimal `db:"tax_amount"`
	Total      decimal.Decimal  `db:"total_amount"`
	Vendor     string           `db:"vendor"`
	CreatedAt  time.Time        `db:"created_at"`
}
