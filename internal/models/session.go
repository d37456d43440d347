package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingAction tracks what input the bot expects next from a user.
type PendingAction string

const (
	PendingNone            PendingAction = ""
	PendingPlateForTicket  PendingAction = "awaiting_plate_ticket"
	PendingPlateForDoc     PendingAction = "awaiting_plate_document"
	PendingUploadTicket    PendingAction = "upload_ticket"
	PendingUploadDocument  PendingAction = "upload_document"
	PendingOdometerReading PendingAction = "awaiting_odometer"
)

// Session is the per-user conversation state. It is created on first
// interaction and mutated only by the bot service; it is never deleted.
// PendingFileID stashes a photo that arrived before a vehicle was chosen;
// it is processed as soon as the plate question is answered.
type Session struct {
	ID               uuid.UUID     `db:"id"`
	UserID           uuid.UUID     `db:"user_id"`
	CurrentVehicleID *uuid.UUID    `db:"current_vehicle_id"`
	PendingAction    PendingAction `db:"pending_action"`
	PendingFileID    string        `db:"pending_file_id"`
	PendingFileMime  string        `db:"pending_file_mime"`
	UpdatedAt        time.Time     `db:"updated_at"`
}
