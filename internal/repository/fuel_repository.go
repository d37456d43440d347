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

type FuelRepository struct {
	db     DB
	logger *zap.Logger
}

func NewFuelRepository(db DB, logger *zap.Logger) *FuelRepository {
	return &FuelRepository{db: db, logger: logger}
}

var fuelColumns = []string{
	"id", "document_id", "vehicle_id", "date", "liters", "price_per_liter",
	"subtotal_amount", "tax_amount", "total_amount", "station", "fuel_type",
	"kilometers", "created_at",
}

func scanFuelEntry(row pgx.Row) (*models.FuelEntry, error) {
	var e models.FuelEntry
	err := row.Scan(
		&e.ID, &e.DocumentID, &e.VehicleID, &e.Date, &e.Liters, &e.PricePerLiter,
		&e.Subtotal, &e.Tax, &e.Total, &e.Station, &e.FuelType,
		&e.Kilometers, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *FuelRepository) Create(ctx context.Context, e *models.FuelEntry) error {
	query := squirrel.Insert("fuel_entries").
		Columns(fuelColumns...).
		Values(
			e.ID, e.DocumentID, e.VehicleID, e.Date, e.Liters, e.PricePerLiter,
			e.Subtotal, e.Tax, e.Total, e.Station, e.FuelType,
			e.Kilometers, e.CreatedAt,
		).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *FuelRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*models.FuelEntry, error) {
	query := squirrel.Select(fuelColumns...).
		From("fuel_entries").
		Where(squirrel.Eq{"document_id": documentID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	entry, err := scanFuelEntry(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// LatestWithoutOdometer returns the newest fuel entry of a vehicle whose
// odometer reading has not been filled in yet.
func (r *FuelRepository) LatestWithoutOdometer(ctx context.Context, vehicleID uuid.UUID) (*models.FuelEntry, error) {
	query := squirrel.Select(fuelColumns...).
		From("fuel_entries").
		Where(squirrel.Eq{"vehicle_id": vehicleID, "kilometers": nil}).
		OrderBy("created_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	entry, err := scanFuelEntry(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

func (r *FuelRepository) SetKilometers(ctx context.Context, id uuid.UUID, kilometers int) error {
	query := squirrel.Update("fuel_entries").
		Set("kilometers", kilometers).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
