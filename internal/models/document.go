package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DocumentType string

const (
	DocumentTypeFuelTicket      DocumentType = "fuel_ticket"
	DocumentTypeInvoice         DocumentType = "invoice"
	DocumentTypeDeliveryNote    DocumentType = "delivery_note"
	DocumentTypeInsurancePolicy DocumentType = "insurance_policy"
	DocumentTypeInspection      DocumentType = "itv"
	DocumentTypeTachograph      DocumentType = "tachograph"
	DocumentTypeWorkshopInvoice DocumentType = "workshop_invoice"
	DocumentTypeTiresInvoice    DocumentType = "tires_invoice"
	DocumentTypeOther           DocumentType = "other"
)

type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusProcessed DocumentStatus = "processed"
	DocumentStatusError     DocumentStatus = "error"
)

// Document is one uploaded image of a fleet document. status=processed
// implies ProcessedAt and ExtractedJSON are set; status=error implies
// ErrorMessage is set.
type Document struct {
	ID            uuid.UUID        `db:"id"`
	VehicleID     *uuid.UUID       `db:"vehicle_id"`
	UserID        *uuid.UUID       `db:"user_id"`
	DocType       DocumentType     `db:"doc_type"`
	FilePath      string           `db:"file_path"`
	MimeType      string           `db:"mime_type"`
	Status        DocumentStatus   `db:"status"`
	Vendor        string           `db:"vendor"`
	VendorTaxID   string           `db:"vendor_tax_id"`
	IssueDate     *time.Time       `db:"issue_date"`
	DueDate       *time.Time       `db:"due_date"`
	Subtotal      *decimal.Decimal `db:"subtotal_amount"`
	Tax           *decimal.Decimal `db:"tax_amount"`
	Total         *decimal.Decimal `db:"total_amount"`
	Currency      string           `db:"currency"`
	OdometerKm    *int             `db:"odometer_km"`
	Notes         string           `db:"notes"`
	ExtractedJSON string           `db:"extracted_json"`
	ErrorMessage  string           `db:"error_message"`
	UploadedAt    time.Time        `db:"uploaded_at"`
	ProcessedAt   *time.Time       `db:"processed_at"`
}
