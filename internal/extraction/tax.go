package extraction

import (
	"github.com/shopspring/decimal"

	"fleetdocs/internal/models"
)

// fuelVATDivisor converts a VAT-inclusive fuel total into its base amount.
// Fuel receipts in this domain are reliably gross at a 21% rate.
var fuelVATDivisor = decimal.RequireFromString("1.21")

// ReconcileTaxes derives a best-effort consistent (subtotal, tax, total)
// triple from partial data. Rules are applied in order:
//
//  1. total = subtotal + tax when only total is missing.
//  2. Fuel tickets: a lone total is assumed VAT-inclusive at 21%; a total
//     with subtotal yields tax by difference.
//  3. Other types: a lone total is treated as a tax-free base.
func ReconcileTaxes(a Amounts, docType models.DocumentType) Amounts {
	if a.Total == nil && a.Subtotal != nil && a.Tax != nil {
		total := a.Subtotal.Add(*a.Tax)
		a.Total = &total
	}

	if docType == models.DocumentTypeFuelTicket {
		if a.Total != nil && a.Tax == nil {
			if a.Subtotal == nil {
				subtotal := a.Total.Div(fuelVATDivisor).Round(2)
				tax := a.Total.Sub(subtotal)
				a.Subtotal = &subtotal
				a.Tax = &tax
			} else {
				tax := a.Total.Sub(*a.Subtotal)
				a.Tax = &tax
			}
		}
		return a
	}

	if a.Total != nil && a.Subtotal == nil && a.Tax == nil {
		subtotal := *a.Total
		zero := decimal.Zero
		a.Subtotal = &subtotal
		a.Tax = &zero
	}
	return a
}
