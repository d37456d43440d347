// Package extraction turns loosely formatted vision-model output into
// canonical typed records and reconciles partial amount triples.
package extraction

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"fleetdocs/internal/models"
)

// FlexString is a JSON scalar that may arrive as a string, a number or null.
// The vision model is asked for numbers but does not always comply.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(strings.Trim(string(b), `"`))
	return nil
}

// RawAmounts is the amounts sub-record of a vision extraction.
type RawAmounts struct {
	Subtotal FlexString `json:"subtotal"`
	Tax      FlexString `json:"tax"`
	Total    FlexString `json:"total"`
	Currency string     `json:"currency"`
}

// RawFuel is the fuel sub-record of a vision extraction.
type RawFuel struct {
	Liters        FlexString `json:"liters"`
	PricePerLiter FlexString `json:"price_per_liter"`
	FuelType      string     `json:"fuel_type"`
	TotalAmount   FlexString `json:"total_amount"`
	OdometerKm    FlexString `json:"odometer_km"`
}

// RawExtraction mirrors the JSON schema the vision model is prompted to
// return. Every field tolerates absence and wrong scalar types.
type RawExtraction struct {
	DocType                string     `json:"doc_type"`
	VehicleIdentifierGuess FlexString `json:"vehicle_identifier_guess"`
	VendorName             string     `json:"vendor_name"`
	VendorTaxID            string     `json:"vendor_tax_id"`
	DateIssue              FlexString `json:"date_issue"`
	DateDue                FlexString `json:"date_due"`
	Amounts                RawAmounts `json:"amounts"`
	Fuel                   RawFuel    `json:"fuel"`
	OdometerKm             FlexString `json:"odometer_km"`
	Notes                  string     `json:"notes"`
	Confidence             float64    `json:"confidence"`
}

// Amounts is a canonical (subtotal, tax, total) triple. Nil means the value
// was not present on the document.
type Amounts struct {
	Subtotal *decimal.Decimal
	Tax      *decimal.Decimal
	Total    *decimal.Decimal
	Currency string
}

// Fuel holds the canonical fuel figures of a fuel ticket.
type Fuel struct {
	Liters        *decimal.Decimal
	PricePerLiter *decimal.Decimal
	Total         *decimal.Decimal
	Type          string
	OdometerKm    *int
}

// Canonical is the normalized, typed result of validating a raw extraction.
type Canonical struct {
	DocType      models.DocumentType
	VehiclePlate string
	VendorName   string
	VendorTaxID  string
	IssueDate    string // YYYY-MM-DD, empty when absent
	DueDate      string // YYYY-MM-DD, empty when absent
	Amounts      Amounts
	Fuel         Fuel
	OdometerKm   *int
	Notes        string
	Confidence   float64
}

// ParseDocType maps a raw doc_type tag to a known document type.
func ParseDocType(raw string) models.DocumentType {
	switch models.DocumentType(strings.ToLower(strings.TrimSpace(raw))) {
	case models.DocumentTypeFuelTicket:
		return models.DocumentTypeFuelTicket
	case models.DocumentTypeInvoice:
		return models.DocumentTypeInvoice
	case models.DocumentTypeDeliveryNote:
		return models.DocumentTypeDeliveryNote
	case models.DocumentTypeInsurancePolicy:
		return models.DocumentTypeInsurancePolicy
	case models.DocumentTypeInspection:
		return models.DocumentTypeInspection
	case models.DocumentTypeTachograph:
		return models.DocumentTypeTachograph
	case models.DocumentTypeWorkshopInvoice:
		return models.DocumentTypeWorkshopInvoice
	case models.DocumentTypeTiresInvoice:
		return models.DocumentTypeTiresInvoice
	default:
		return models.DocumentTypeOther
	}
}
