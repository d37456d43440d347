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

type VehicleRepository struct {
	db     DB
	logger *zap.Logger
}

func NewVehicleRepository(db DB, logger *zap.Logger) *VehicleRepository {
	return &VehicleRepository{db: db, logger: logger}
}

var vehicleColumns = []string{"id", "plate", "alias", "active", "created_at"}

func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	query := squirrel.Insert("vehicles").
		Columns(vehicleColumns...).
		Values(v.ID, v.Plate, v.Alias, v.Active, v.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *VehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *VehicleRepository) GetByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	return r.getOne(ctx, squirrel.Eq{"plate": plate})
}

func (r *VehicleRepository) getOne(ctx context.Context, pred squirrel.Eq) (*models.Vehicle, error) {
	query := squirrel.Select(vehicleColumns...).
		From("vehicles").
		Where(pred).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var v models.Vehicle
	err = r.db.QueryRow(ctx, sql, args...).Scan(&v.ID, &v.Plate, &v.Alias, &v.Active, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VehicleRepository) ListActive(ctx context.Context) ([]*models.Vehicle, error) {
	query := squirrel.Select(vehicleColumns...).
		From("vehicles").
		Where(squirrel.Eq{"active": true}).
		OrderBy("plate").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.Plate, &v.Alias, &v.Active, &v.CreatedAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, &v)
	}

	return vehicles, rows.Err()
}
