// Package store defines the persistence boundary of the pipeline. The pgx
// implementation lives in internal/repository; tests use in-memory fakes.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fleetdocs/internal/models"
)

// Store is the transactional persistence interface used by the services.
// Lookup methods return (nil, nil) when no row matches.
type Store interface {
	// InTx runs fn against a transaction-bound Store. The transaction is
	// committed when fn returns nil and rolled back otherwise. Nested calls
	// reuse the surrounding transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	GetSessionByUserID(ctx context.Context, userID uuid.UUID) (*models.Session, error)
	SaveSession(ctx context.Context, s *models.Session) error

	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicleByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	GetVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error)
	ListActiveVehicles(ctx context.Context) ([]*models.Vehicle, error)

	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListPendingDocuments(ctx context.Context, limit int) ([]*models.Document, error)
	UpdateDocument(ctx context.Context, d *models.Document) error
	MarkDocumentError(ctx context.Context, id uuid.UUID, message string) error

	CreateFuelEntry(ctx context.Context, e *models.FuelEntry) error
	GetFuelEntryByDocumentID(ctx context.Context, documentID uuid.UUID) (*models.FuelEntry, error)
	LatestFuelEntryWithoutOdometer(ctx context.Context, vehicleID uuid.UUID) (*models.FuelEntry, error)
	SetFuelEntryKilometers(ctx context.Context, id uuid.UUID, kilometers int) error

	CreateExpenseEntry(ctx context.Context, e *models.ExpenseEntry) error
	GetExpenseEntryByDocumentID(ctx context.Context, documentID uuid.UUID) (*models.ExpenseEntry, error)

	CreateReminder(ctx context.Context, r *models.Reminder) error
	GetActiveReminder(ctx context.Context, vehicleID uuid.UUID, kind models.ReminderKind, documentID uuid.UUID) (*models.Reminder, error)
	UpdateReminderDueDate(ctx context.Context, id uuid.UUID, due time.Time) error
	ExpireRemindersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
