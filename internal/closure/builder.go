package closure

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tributo-erp/tributo-erp/internal/liquidation"
)

// BuildRecord maps a computed liquidation result into the persisted closure
// shape. Monetary values are rounded to two decimals here and nowhere earlier;
// the calculator works on unrounded decimals.
func BuildRecord(taxpayerID uuid.UUID, res liquidation.Result) Record {
	r2 := func(v decimal.Decimal) decimal.Decimal { return v.Round(2) }

	// The warnings column is NOT NULL; a nil slice would encode as SQL NULL.
	warnings := res.Adjustments.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	return Record{
		TaxpayerID:         taxpayerID,
		PeriodStart:        res.Period.StartDate,
		PeriodEnd:          res.Period.EndDate,
		PeriodLabel:        res.Period.Label,
		SalesBase0:         r2(res.Sales.Base0),
		SalesBaseTaxed:     r2(res.Sales.BaseTaxed),
		SalesVAT:           r2(res.Sales.VAT),
		PurchasesBase0:     r2(res.Purchases.Base0),
		PurchasesBaseTaxed: r2(res.Purchases.BaseTaxed),
		PurchasesVAT:       r2(res.Purchases.VAT),
		CreditNotesVAT:     r2(res.CreditNotes.VAT),
		VATCausado:         r2(res.Calc.VATCausado),
		// The acquisition credit column stores purchase credit plus the carry
		// that entered the period; ExtractCarriedCredit recomputes the
		// next-period carry from it.
		CreditFavorFromAdquisition: r2(res.Calc.VATCreditFromPurchases.Add(res.Adjustments.CreditCarriedIn)),
		VATWithheldCredit:          r2(res.Calc.VATWithheldCredit),
		IncomeTaxWithheld:          r2(res.Withholding.IncomeTaxWithheld),
		CreditCarriedIn:            r2(res.Adjustments.CreditCarriedIn),
		VATPayable:                 r2(res.Calc.VATPayable),
		CreditFavor:                r2(res.Calc.CreditFavor),
		IncomeTaxPayable:           r2(res.Calc.IncomeTaxPayable),
		TotalPayable:               r2(res.Calc.TotalPayable),
		Warnings:                   warnings,
		Notes:                      res.Notes,
	}
}

// ExtractCarriedCredit derives the credit a closed period rolls into the next
// one. This is the only channel through which one period's outcome affects its
// successor.
func ExtractCarriedCredit(prior *Record) decimal.Decimal {
	if prior == nil {
		return decimal.Zero
	}
	carry := prior.CreditFavorFromAdquisition.
		Add(prior.VATWithheldCredit).
		Sub(prior.VATCausado)
	if carry.IsNegative() {
		return decimal.Zero
	}
	return carry
}
