package models

import (
	"time"

	"github.com/google/uuid"
)

type ReminderKind string

const (
	ReminderKindInsurance  ReminderKind = "insurance"
	ReminderKindInspection ReminderKind = "inspection"
	ReminderKindTachograph ReminderKind = "tachograph"
)

type ReminderStatus string

const (
	ReminderStatusActive   ReminderStatus = "active"
	ReminderStatusNotified ReminderStatus = "notified"
	ReminderStatusExpired  ReminderStatus = "expired"
)

// Reminder is a compliance deadline for a vehicle. At most one active
// reminder exists per (vehicle, kind, source document).
type Reminder struct {
	ID         uuid.UUID      `db:"id"`
	VehicleID  uuid.UUID      `db:"vehicle_id"`
	Kind       ReminderKind   `db:"kind"`
	DueDate    time.Time      `db:"due_date"`
	Status     ReminderStatus `db:"status"`
	DocumentID *uuid.UUID     `db:"document_id"`
	CreatedAt  time.Time      `db:"created_at"`
}
