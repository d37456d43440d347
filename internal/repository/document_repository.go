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

type DocumentRepository struct {
	db     DB
	logger *zap.Logger
}

func NewDocumentRepository(db DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

var documentColumns = []string{
	"id", "vehicle_id", "user_id", "doc_type", "file_path", "mime_type", "status",
	"vendor", "vendor_tax_id", "issue_date", "due_date",
	"subtotal_amount", "tax_amount", "total_amount", "currency",
	"odometer_km", "notes", "extracted_json", "error_message",
	"uploaded_at", "processed_at",
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID, &d.VehicleID, &d.UserID, &d.DocType, &d.FilePath, &d.MimeType, &d.Status,
		&d.Vendor, &d.VendorTaxID, &d.IssueDate, &d.DueDate,
		&d.Subtotal, &d.Tax, &d.Total, &d.Currency,
		&d.OdometerKm, &d.Notes, &d.ExtractedJSON, &d.ErrorMessage,
		&d.UploadedAt, &d.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	query := squirrel.Insert("documents").
		Columns(documentColumns...).
		Values(
			d.ID, d.VehicleID, d.UserID, d.DocType, d.FilePath, d.MimeType, d.Status,
			d.Vendor, d.VendorTaxID, d.IssueDate, d.DueDate,
			d.Subtotal, d.Tax, d.Total, d.Currency,
			d.OdometerKm, d.Notes, d.ExtractedJSON, d.ErrorMessage,
			d.UploadedAt, d.ProcessedAt,
		).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

func (r *DocumentRepository) ListPending(ctx context.Context, limit int) ([]*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"status": models.DocumentStatusPending}).
		OrderBy("uploaded_at").
		Limit(uint64(limit)).
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

	var documents []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

// Update writes every mutable field of the document row.
func (r *DocumentRepository) Update(ctx context.Context, d *models.Document) error {
	query := squirrel.Update("documents").
		Set("vehicle_id", d.VehicleID).
		Set("doc_type", d.DocType).
		Set("status", d.Status).
		Set("vendor", d.Vendor).
		Set("vendor_tax_id", d.VendorTaxID).
		Set("issue_date", d.IssueDate).
		Set("due_date", d.DueDate).
		Set("subtotal_amount", d.Subtotal).
		Set("tax_amount", d.Tax).
		Set("total_amount", d.Total).
		Set("currency", d.Currency).
		Set("odometer_km", d.OdometerKm).
		Set("notes", d.Notes).
		Set("extracted_json", d.ExtractedJSON).
		Set("error_message", d.ErrorMessage).
		Set("processed_at", d.ProcessedAt).
		Where(squirrel.Eq{"id": d.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *DocumentRepository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	query := squirrel.Update("documents").
		Set("status", models.DocumentStatusError).
		Set("error_message", message).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
