package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fleetdocs/internal/extraction"
	"fleetdocs/internal/models"
	"fleetdocs/internal/store"
)

// expenseCategories maps chargeable non-fuel document types to the expense
// category the derived entry gets.
var expenseCategories = map[models.DocumentType]models.ExpenseCategory{
	models.DocumentTypeInsurancePolicy: models.ExpenseCategoryInsurance,
	models.DocumentTypeInspection:      models.ExpenseCategoryInspection,
	models.DocumentTypeTachograph:      models.ExpenseCategoryInspection,
	models.DocumentTypeWorkshopInvoice: models.ExpenseCategoryWorkshop,
	models.DocumentTypeTiresInvoice:    models.ExpenseCategoryTires,
	models.DocumentTypeInvoice:         models.ExpenseCategoryOther,
	models.DocumentTypeDeliveryNote:    models.ExpenseCategoryOther,
}

var errAlreadyProcessed = errors.New("document already processed")

// ProcessorService runs the extraction pipeline for one document: vision
// extraction, normalization, tax reconciliation, vehicle resolution and
// bookkeeping derivation, all committed atomically with the status flip.
type ProcessorService struct {
	store     store.Store
	vision    VisionExtractor
	reminders *ReminderService
	logger    *zap.Logger
}

func NewProcessorService(store store.Store, vision VisionExtractor, reminders *ReminderService, logger *zap.Logger) *ProcessorService {
	return &ProcessorService{
		store:     store,
		vision:    vision,
		reminders: reminders,
		logger:    logger,
	}
}

// ProcessDocument runs the full pipeline for one uploaded document and
// returns a user-facing outcome message. Reprocessing a processed document
// is a no-op. Failures before the commit leave the document in status=error
// with the cause recorded; they never return an error to the caller.
func (s *ProcessorService) ProcessDocument(ctx context.Context, documentID uuid.UUID) (bool, string) {
	doc, err := s.store.GetDocumentByID(ctx, documentID)
	if err != nil {
		s.logger.Error("Failed to load document", zap.String("document_id", documentID.String()), zap.Error(err))
		return false, "Internal error while loading the document."
	}
	if doc == nil {
		return false, "Document not found."
	}
	if doc.Status == models.DocumentStatusProcessed {
		return true, "This document was already processed."
	}

	image, err := os.ReadFile(doc.FilePath)
	if err != nil {
		s.failDocument(ctx, doc.ID, fmt.Sprintf("read file: %v", err))
		return false, "Could not open the uploaded file."
	}

	knownPlate := ""
	if doc.VehicleID != nil {
		vehicle, err := s.store.GetVehicleByID(ctx, *doc.VehicleID)
		if err != nil {
			s.logger.Warn("Failed to load bound vehicle", zap.String("document_id", doc.ID.String()), zap.Error(err))
		} else if vehicle != nil {
			knownPlate = vehicle.Plate
		}
	}

	raw, rawJSON, err := s.vision.Extract(ctx, image, doc.MimeType)
	if err != nil {
		s.failDocument(ctx, doc.ID, fmt.Sprintf("vision extraction: %v", err))
		return false, "Could not read the document. Please try again with a clearer photo."
	}

	canonical := extraction.ValidateAndEnrich(raw, knownPlate)
	canonical.Amounts = extraction.ReconcileTaxes(canonical.Amounts, canonical.DocType)

	err = s.store.InTx(ctx, func(ctx context.Context, tx store.Store) error {
		fresh, err := tx.GetDocumentByID(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("reload document: %w", err)
		}
		if fresh == nil {
			return fmt.Errorf("document %s disappeared", doc.ID)
		}
		if fresh.Status == models.DocumentStatusProcessed {
			return errAlreadyProcessed
		}
		doc = fresh

		if err := s.resolveVehicle(ctx, tx, doc, canonical.VehiclePlate); err != nil {
			return err
		}

		applyCanonical(doc, canonical, rawJSON)
		if err := tx.UpdateDocument(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		if err := s.derive(ctx, tx, doc, canonical); err != nil {
			return err
		}
		return nil
	})
	if errors.Is(err, errAlreadyProcessed) {
		return true, "This document was already processed."
	}
	if err != nil {
		s.failDocument(ctx, doc.ID, err.Error())
		return false, "Could not save the document data."
	}

	// Reminder failures must not undo a committed document, so the upsert
	// runs after the transaction and is only logged.
	if _, err := s.reminders.UpsertFromDocument(ctx, doc, canonical); err != nil {
		s.logger.Warn("Reminder upsert failed",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}

	return true, buildSummary(doc, canonical)
}

// ProcessPending drains up to limit pending documents. Used by the periodic
// sweep; safe to overlap interactive processing because ProcessDocument
// re-checks status inside its transaction.
func (s *ProcessorService) ProcessPending(ctx context.Context, limit int) int {
	documents, err := s.store.ListPendingDocuments(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to list pending documents", zap.Error(err))
		return 0
	}

	processed := 0
	for _, doc := range documents {
		ok, msg := s.ProcessDocument(ctx, doc.ID)
		if ok {
			processed++
		} else {
			s.logger.Warn("Pending document failed",
				zap.String("document_id", doc.ID.String()), zap.String("reason", msg))
		}
	}
	return processed
}

func (s *ProcessorService) failDocument(ctx context.Context, id uuid.UUID, message string) {
	s.logger.Error("Document processing failed", zap.String("document_id", id.String()), zap.String("cause", message))
	if err := s.store.MarkDocumentError(ctx, id, message); err != nil {
		s.logger.Error("Failed to mark document error", zap.String("document_id", id.String()), zap.Error(err))
	}
}

// resolveVehicle binds the document to the vehicle named by the extracted
// plate, creating the vehicle when it is unknown. The photographed plate is
// the ground truth, so it overrides an earlier binding; without a plate the
// existing binding stands.
func (s *ProcessorService) resolveVehicle(ctx context.Context, tx store.Store, doc *models.Document, plate string) error {
	if plate == "" {
		return nil
	}

	vehicle, err := tx.GetVehicleByPlate(ctx, plate)
	if err != nil {
		return fmt.Errorf("lookup vehicle by plate: %w", err)
	}
	if vehicle == nil {
		vehicle = &models.Vehicle{
			ID:        uuid.New(),
			Plate:     plate,
			Active:    true,
			CreatedAt: time.Now(),
		}
		if err := tx.CreateVehicle(ctx, vehicle); err != nil {
			return fmt.Errorf("create vehicle: %w", err)
		}
		s.logger.Info("Vehicle auto-created", zap.String("plate", plate))
	}

	if doc.VehicleID != nil && *doc.VehicleID != vehicle.ID {
		s.logger.Info("Document rebound to extracted plate",
			zap.String("document_id", doc.ID.String()),
			zap.String("plate", plate))
	}
	doc.VehicleID = &vehicle.ID
	return nil
}

func applyCanonical(doc *models.Document, c extraction.Canonical, rawJSON string) {
	doc.DocType = c.DocType
	doc.Vendor = c.VendorName
	doc.VendorTaxID = c.VendorTaxID
	doc.IssueDate = parseDay(c.IssueDate)
	doc.DueDate = parseDay(c.DueDate)
	doc.Subtotal = c.Amounts.Subtotal
	doc.Tax = c.Amounts.Tax
	doc.Total = c.Amounts.Total
	doc.Currency = c.Amounts.Currency
	doc.Notes = c.Notes
	doc.ExtractedJSON = rawJSON
	doc.ErrorMessage = ""

	doc.OdometerKm = c.OdometerKm
	if doc.OdometerKm == nil {
		doc.OdometerKm = c.Fuel.OdometerKm
	}

	now := time.Now()
	doc.Status = models.DocumentStatusProcessed
	doc.ProcessedAt = &now
}

// derive writes the single bookkeeping row a document implies: a fuel entry
// for fuel tickets, an expense entry for other chargeable types. An existing
// row for the document makes this a no-op.
func (s *ProcessorService) derive(ctx context.Context, tx store.Store, doc *models.Document, c extraction.Canonical) error {
	if doc.VehicleID == nil {
		return nil
	}

	if c.DocType == models.DocumentTypeFuelTicket {
		return s.deriveFuelEntry(ctx, tx, doc, c)
	}
	if _, chargeable := expenseCategories[c.DocType]; chargeable {
		return s.deriveExpenseEntry(ctx, tx, doc, c)
	}
	return nil
}

func (s *ProcessorService) deriveFuelEntry(ctx context.Context, tx store.Store, doc *models.Document, c extraction.Canonical) error {
	// Liters are required; a ticket carrying only a total gets an advisory
	// in the summary instead of a derived row.
	if c.Fuel.Liters == nil || !c.Fuel.Liters.IsPositive() {
		s.logger.Warn("Fuel ticket without liters, skipping fuel entry",
			zap.String("document_id", doc.ID.String()))
		return nil
	}

	total := c.Fuel.Total
	if total == nil {
		total = c.Amounts.Total
	}
	if total == nil {
		s.logger.Warn("Fuel ticket without total, skipping fuel entry",
			zap.String("document_id", doc.ID.String()))
		return nil
	}

	existing, err := tx.GetFuelEntryByDocumentID(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("lookup fuel entry: %w", err)
	}
	if existing != nil {
		return nil
	}

	entry := &models.FuelEntry{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		VehicleID:  *doc.VehicleID,
		Date:       entryDate(doc),
		Liters:     *c.Fuel.Liters,
		Total:      *total,
		Subtotal:   c.Amounts.Subtotal,
		Tax:        c.Amounts.Tax,
		Station:    c.VendorName,
		FuelType:   c.Fuel.Type,
		Kilometers: doc.OdometerKm,
		CreatedAt:  time.Now(),
	}
	if c.Fuel.PricePerLiter != nil {
		entry.PricePerLiter = *c.Fuel.PricePerLiter
	} else {
		entry.PricePerLiter = total.Div(*c.Fuel.Liters).Round(3)
	}

	if err := tx.CreateFuelEntry(ctx, entry); err != nil {
		return fmt.Errorf("create fuel entry: %w", err)
	}
	return nil
}

func (s *ProcessorService) deriveExpenseEntry(ctx context.Context, tx store.Store, doc *models.Document, c extraction.Canonical) error {
	if c.Amounts.Total == nil {
		s.logger.Warn("Chargeable document without total, skipping expense entry",
			zap.String("document_id", doc.ID.String()),
			zap.String("doc_type", string(c.DocType)))
		return nil
	}

	existing, err := tx.GetExpenseEntryByDocumentID(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("lookup expense entry: %w", err)
	}
	if existing != nil {
		return nil
	}

	entry := &models.ExpenseEntry{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		VehicleID:  *doc.VehicleID,
		Date:       entryDate(doc),
		Category:   expenseCategories[c.DocType],
		Subtotal:   c.Amounts.Subtotal,
		Tax:        c.Amounts.Tax,
		Total:      *c.Amounts.Total,
		Vendor:     c.VendorName,
		CreatedAt:  time.Now(),
	}
	if err := tx.CreateExpenseEntry(ctx, entry); err != nil {
		return fmt.Errorf("create expense entry: %w", err)
	}
	return nil
}

func entryDate(doc *models.Document) time.Time {
	if doc.IssueDate != nil {
		return *doc.IssueDate
	}
	return time.Now()
}

func parseDay(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// buildSummary renders the outcome message shown to the uploader.
func buildSummary(doc *models.Document, c extraction.Canonical) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document processed: %s\n", docTypeLabel(doc.DocType))
	if c.VehiclePlate != "" {
		fmt.Fprintf(&b, "Vehicle: %s\n", c.VehiclePlate)
	}
	if doc.IssueDate != nil {
		fmt.Fprintf(&b, "Date: %s\n", doc.IssueDate.Format("2006-01-02"))
	}
	if doc.Total != nil {
		fmt.Fprintf(&b, "Total: %s %s", doc.Total.StringFixed(2), doc.Currency)
		if doc.Tax != nil && !doc.Tax.Equal(decimal.Zero) {
			fmt.Fprintf(&b, " (VAT %s)", doc.Tax.StringFixed(2))
		}
		b.WriteString("\n")
	}
	if doc.DocType == models.DocumentTypeFuelTicket && c.Fuel.Liters != nil {
		fmt.Fprintf(&b, "Liters: %s", c.Fuel.Liters.String())
		if c.Fuel.PricePerLiter != nil {
			fmt.Fprintf(&b, " at %s/L", c.Fuel.PricePerLiter.String())
		}
		b.WriteString("\n")
	}
	if doc.DueDate != nil {
		fmt.Fprintf(&b, "Expires: %s\n", doc.DueDate.Format("2006-01-02"))
	}

	for _, warning := range extraction.MissingCriticalFields(c, doc.VehicleID != nil) {
		fmt.Fprintf(&b, "⚠ %s\n", warning)
	}
	return strings.TrimRight(b.String(), "\n")
}

func docTypeLabel(t models.DocumentType) string {
	switch t {
	case models.DocumentTypeFuelTicket:
		return "fuel ticket"
	case models.DocumentTypeInvoice:
		return "invoice"
	case models.DocumentTypeDeliveryNote:
		return "delivery note"
	case models.DocumentTypeInsurancePolicy:
		return "insurance policy"
	case models.DocumentTypeInspection:
		return "inspection report"
	case models.DocumentTypeTachograph:
		return "tachograph certificate"
	case models.DocumentTypeWorkshopInvoice:
		return "workshop invoice"
	case models.DocumentTypeTiresInvoice:
		return "tire invoice"
	default:
		return "document"
	}
}
