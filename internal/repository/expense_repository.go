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

type ExpenseRepository struct {
	db     DB
	logger *zap.Logger
}

func NewExpenseRepository(db DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{db: db, logger: logger}
}

var expenseColumns = []string{
	"id", "document_id", "vehicle_id", "date", "category",
	"subtotal_amount", "tax_amount", "total_amount", "vendor", "created_at",
}

func (r *ExpenseRepository) Create(ctx context.Context, e *models.ExpenseEntry) error {
	query := squirrel.Insert("expense_entries").
		Columns(expenseColumns...).
		Values(
			e.ID, e.DocumentID, e.VehicleID, e.Date, e.Category,
			e.Subtotal, e.Tax, e.Total, e.Vendor, e.CreatedAt,
		).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ExpenseRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*models.ExpenseEntry, error) {
	query := squirrel.Select(expenseColumns...).
		From("expense_entries").
		Where(squirrel.Eq{"document_id": documentID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var e models.ExpenseEntry
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&e.ID, &e.DocumentID, &e.VehicleID, &e.Date, &e.Category,
		&e.Subtotal, &e.Tax, &e.Total, &e.Vendor, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
