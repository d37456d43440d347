package extraction

import (
	"fmt"
	"strconv"
	"strings"

	"fleetdocs/internal/models"
)

// ValidateAndEnrich normalizes a raw extraction into a canonical record.
// knownPlate is the plate of the vehicle the upload was bound to, if any;
// a plate read off the document itself takes precedence over it, since the
// photographed content is the ground truth.
func ValidateAndEnrich(raw RawExtraction, knownPlate string) Canonical {
	c := Canonical{
		DocType:     ParseDocType(raw.DocType),
		VendorName:  strings.TrimSpace(raw.VendorName),
		VendorTaxID: strings.TrimSpace(raw.VendorTaxID),
		Notes:       strings.TrimSpace(raw.Notes),
		Confidence:  raw.Confidence,
	}

	c.IssueDate = NormalizeDate(string(raw.DateIssue))
	c.DueDate = NormalizeDate(string(raw.DateDue))

	c.Amounts = Amounts{
		Subtotal: NormalizeAmount(string(raw.Amounts.Subtotal)),
		Tax:      NormalizeAmount(string(raw.Amounts.Tax)),
		Total:    NormalizeAmount(string(raw.Amounts.Total)),
		Currency: strings.TrimSpace(raw.Amounts.Currency),
	}
	if c.Amounts.Currency == "" {
		c.Amounts.Currency = "EUR"
	}

	c.Fuel = Fuel{
		Liters:        NormalizeAmount(string(raw.Fuel.Liters)),
		PricePerLiter: NormalizeAmount(string(raw.Fuel.PricePerLiter)),
		Total:         NormalizeAmount(string(raw.Fuel.TotalAmount)),
		Type:          strings.TrimSpace(raw.Fuel.FuelType),
		OdometerKm:    parseOdometer(string(raw.Fuel.OdometerKm)),
	}
	if c.Fuel.Total == nil && c.Fuel.Liters != nil && c.Fuel.PricePerLiter != nil {
		total := c.Fuel.Liters.Mul(*c.Fuel.PricePerLiter).Round(2)
		c.Fuel.Total = &total
	}

	c.OdometerKm = parseOdometer(string(raw.OdometerKm))

	if guess := NormalizePlate(string(raw.VehicleIdentifierGuess)); guess != "" {
		c.VehiclePlate = guess
	} else if plate := NormalizePlate(knownPlate); plate != "" {
		c.VehiclePlate = plate
	}

	return c
}

func parseOdometer(raw string) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f < 0 {
		return nil
	}
	km := int(f)
	return &km
}

// MissingCriticalFields lists advisory questions for fields the extraction
// could not supply. A non-empty list does not block persistence; it is
// surfaced to the interactive caller as warnings.
func MissingCriticalFields(c Canonical, hasVehicle bool) []string {
	var missing []string
	if !hasVehicle {
		missing = append(missing, "No vehicle selected. Pick one with /vehicles.")
	}
	switch c.DocType {
	case models.DocumentTypeFuelTicket:
		if c.Fuel.Liters == nil {
			missing = append(missing, "Could not read the liters. How many liters did you fill up?")
		}
		if c.IssueDate == "" {
			missing = append(missing, "Could not read the date. What date is on the ticket?")
		}
	case models.DocumentTypeInsurancePolicy, models.DocumentTypeInspection, models.DocumentTypeTachograph:
		if c.DueDate == "" {
			missing = append(missing, fmt.Sprintf("Could not read the expiry date for %s. When does it expire?", c.DocType))
		}
	}
	return missing
}
