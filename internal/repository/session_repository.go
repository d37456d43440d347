package repository

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fleetdocs/internal/models"
)

type SessionRepository struct {
	db     DB
	logger *zap.Logger
}

func NewSessionRepository(db DB, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

var sessionColumns = []string{
	"id", "user_id", "current_vehicle_id", "pending_action",
	"pending_file_id", "pending_file_mime", "updated_at",
}

func (r *SessionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	query := squirrel.Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var s models.Session
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&s.ID, &s.UserID, &s.CurrentVehicleID, &s.PendingAction,
		&s.PendingFileID, &s.PendingFileMime, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the session keyed by user_id.
func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	query := squirrel.Insert("sessions").
		Columns(sessionColumns...).
		Values(s.ID, s.UserID, s.CurrentVehicleID, s.PendingAction, s.PendingFileID, s.PendingFileMime, s.UpdatedAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			current_vehicle_id = EXCLUDED.current_vehicle_id,
			pending_action = EXCLUDED.pending_action,
			pending_file_id = EXCLUDED.pending_file_id,
			pending_file_mime = EXCLUDED.pending_file_mime,
			updated_at = EXCLUDED.updated_at`).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
