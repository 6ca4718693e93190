package service

// tds.go — TDS (tax deducted at source) arithmetic.
// Pure functions over decimal values; binary floats would drift by cents
// across repeated recomputation, so everything stays in shopspring/decimal.

import (
	"fmt"

	"paylog/internal/model"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// Epsilon absorbs rounding residue when deciding paid vs partial.
	Epsilon = decimal.NewFromFloat(0.01)
)

// ComputeTDS returns the withheld amount for gross at percentage using the
// given rounding mode. "exact" keeps the arithmetic value rounded to the
// cent; "round_up" ceils to the next whole currency unit.
func ComputeTDS(gross, percentage decimal.Decimal, roundingMode string) (decimal.Decimal, error) {
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return decimal.Zero, domainErr(CodeValidation, fmt.Sprintf("tds_percentage must be between 0 and 100, got %s", percentage))
	}
	exact := gross.Mul(percentage).Div(hundred)
	switch roundingMode {
	case model.RoundingRoundUp:
		return exact.Ceil(), nil
	case model.RoundingExact, "":
		return exact.Round(2), nil
	default:
		return decimal.Zero, domainErr(CodeValidation, fmt.Sprintf("unknown tds_rounding_mode %q", roundingMode))
	}
}

// TDSAmount returns the withheld amount for an invoice from its persisted
// TDS fields. Fields are validated on write, so an inconsistent row yields
// zero withholding rather than an error.
func TDSAmount(inv *model.Invoice) decimal.Decimal {
	if !inv.TDSApplicable || inv.TDSPercentage == nil {
		return decimal.Zero
	}
	tds, err := ComputeTDS(inv.InvoiceAmount, *inv.TDSPercentage, inv.TDSRoundingMode)
	if err != nil {
		return decimal.Zero
	}
	return tds
}

// NetPayable returns invoice_amount minus the computed TDS amount.
func NetPayable(inv *model.Invoice) decimal.Decimal {
	return inv.InvoiceAmount.Sub(TDSAmount(inv))
}
