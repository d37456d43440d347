package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fleetdocs/internal/models"
)

type ReminderRepository struct {
	db     DB
	logger *zap.Logger
}

func NewReminderRepository(db DB, logger *zap.Logger) *ReminderRepository {
	return &ReminderRepository{db: db, logger: logger}
}

var reminderColumns = []string{
	"id", "vehicle_id", "kind", "due_date", "status", "document_id", "created_at",
}

func (r *ReminderRepository) Create(ctx context.Context, rem *models.Reminder) error {
	query := squirrel.Insert("reminders").
		Columns(reminderColumns...).
		Values(rem.ID, rem.VehicleID, rem.Kind, rem.DueDate, rem.Status, rem.DocumentID, rem.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// GetActive finds the active reminder for a (vehicle, kind, source document)
// triple, if one exists.
func (r *ReminderRepository) GetActive(ctx context.Context, vehicleID uuid.UUID, kind models.ReminderKind, documentID uuid.UUID) (*models.Reminder, error) {
	query := squirrel.Select(reminderColumns...).
		From("reminders").
		Where(squirrel.Eq{
			"vehicle_id":  vehicleID,
			"kind":        kind,
			"document_id": documentID,
			"status":      models.ReminderStatusActive,
		}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var rem models.Reminder
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&rem.ID, &rem.VehicleID, &rem.Kind, &rem.DueDate, &rem.Status, &rem.DocumentID, &rem.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

func (r *ReminderRepository) UpdateDueDate(ctx context.Context, id uuid.UUID, dueDate time.Time) error {
	query := squirrel.Update("reminders").
		Set("due_date", dueDate).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ExpireBefore marks every active reminder whose due date has passed the
// cutoff as expired and reports how many rows changed.
func (r *ReminderRepository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := squirrel.Update("reminders").
		Set("status", models.ReminderStatusExpired).
		Where(squirrel.Lt{"due_date": cutoff}).
		Where(squirrel.Eq{"status": models.ReminderStatusActive}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
