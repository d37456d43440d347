package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fleetdocs/internal/models"
	"fleetdocs/internal/store"
)

// Repositories bundles the per-table repositories into one store.Store.
// A nil pool means the instance is already bound to a transaction.
type Repositories struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	users     *UserRepository
	sessions  *SessionRepository
	vehicles  *VehicleRepository
	documents *DocumentRepository
	fuel      *FuelRepository
	expenses  *ExpenseRepository
	reminders *ReminderRepository
}

var _ store.Store = (*Repositories)(nil)

func NewRepositories(pool *pgxpool.Pool, logger *zap.Logger) *Repositories {
	r := &Repositories{pool: pool, logger: logger}
	r.bind(pool)
	return r
}

func (r *Repositories) bind(db DB) {
	r.users = NewUserRepository(db, r.logger)
	r.sessions = NewSessionRepository(db, r.logger)
	r.vehicles = NewVehicleRepository(db, r.logger)
	r.documents = NewDocumentRepository(db, r.logger)
	r.fuel = NewFuelRepository(db, r.logger)
	r.expenses = NewExpenseRepository(db, r.logger)
	r.reminders = NewReminderRepository(db, r.logger)
}

func (r *Repositories) withDB(db DB) *Repositories {
	bound := &Repositories{logger: r.logger}
	bound.bind(db)
	return bound
}

// InTx runs fn inside a transaction. When called on an instance that is
// already transaction-bound, fn joins the surrounding transaction.
func (r *Repositories) InTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, r.withDB(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repositories) CreateUser(ctx context.Context, u *models.User) error {
	return r.users.Create(ctx, u)
}

func (r *Repositories) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.users.GetByTelegramID(ctx, telegramID)
}

func (r *Repositories) GetSessionByUserID(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	return r.sessions.GetByUserID(ctx, userID)
}

func (r *Repositories) SaveSession(ctx context.Context, s *models.Session) error {
	return r.sessions.Save(ctx, s)
}

func (r *Repositories) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	return r.vehicles.Create(ctx, v)
}

func (r *Repositories) GetVehicleByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	return r.vehicles.GetByID(ctx, id)
}

func (r *Repositories) GetVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	return r.vehicles.GetByPlate(ctx, plate)
}

func (r *Repositories) ListActiveVehicles(ctx context.Context) ([]*models.Vehicle, error) {
	return r.vehicles.ListActive(ctx)
}

func (r *Repositories) CreateDocument(ctx context.Context, d *models.Document) error {
	return r.documents.Create(ctx, d)
}

func (r *Repositories) GetDocumentByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return r.documents.GetByID(ctx, id)
}

func (r *Repositories) ListPendingDocuments(ctx context.Context, limit int) ([]*models.Document, error) {
	return r.documents.ListPending(ctx, limit)
}

func (r *Repositories) UpdateDocument(ctx context.Context, d *models.Document) error {
	return r.documents.Update(ctx, d)
}

func (r *Repositories) MarkDocumentError(ctx context.Context, id uuid.UUID, message string) error {
	return r.documents.MarkError(ctx, id, message)
}

func (r *Repositories) CreateFuelEntry(ctx context.Context, e *models.FuelEntry) error {
	return r.fuel.Create(ctx, e)
}

func (r *Repositories) GetFuelEntryByDocumentID(ctx context.Context, documentID uuid.UUID) (*models.FuelEntry, error) {
	return r.fuel.GetByDocumentID(ctx, documentID)
}

func (r *Repositories) LatestFuelEntryWithoutOdometer(ctx context.Context, vehicleID uuid.UUID) (*models.FuelEntry, error) {
	return r.fuel.LatestWithoutOdometer(ctx, vehicleID)
}

func (r *Repositories) SetFuelEntryKilometers(ctx context.Context, id uuid.UUID, kilometers int) error {
	return r.fuel.SetKilometers(ctx, id, kilometers)
}

func (r *Repositories) CreateExpenseEntry(ctx context.Context, e *models.ExpenseEntry) error {
	return r.expenses.Create(ctx, e)
}

func (r *Repositories) GetExpenseEntryByDocumentID(ctx context.Context, documentID uuid.UUID) (*models.ExpenseEntry, error) {
	return r.expenses.GetByDocumentID(ctx, documentID)
}

func (r *Repositories) CreateReminder(ctx context.Context, rem *models.Reminder) error {
	return r.reminders.Create(ctx, rem)
}

func (r *Repositories) GetActiveReminder(ctx context.Context, vehicleID uuid.UUID, kind models.ReminderKind, documentID uuid.UUID) (*models.Reminder, error) {
	return r.reminders.GetActive(ctx, vehicleID, kind, documentID)
}

func (r *Repositories) UpdateReminderDueDate(ctx context.Context, id uuid.UUID, due time.Time) error {
	return r.reminders.UpdateDueDate(ctx, id, due)
}

func (r *Repositories) ExpireRemindersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.reminders.ExpireBefore(ctx, cutoff)
}
