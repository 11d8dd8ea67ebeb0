package liquidation

import "github.com/shopspring/decimal"

// WarningWithholdingExcess is attached when applying the withheld VAT drives
// the pending debit negative. The excess is booked as generated credit because
// withholding credit is applied whole, never split across periods.
const WarningWithholdingExcess = "retained VAT exceeded the remaining debit; excess booked as credit in favor"

// Calculate runs the fixed-order credit consumption chain:
// credit notes reduce output VAT, purchase credit applies first, then carried
// credit up to the amount still pending, then the whole withheld VAT. It is
// pure: identical inputs always produce identical results.
func Calculate(in Input) Result {
	adj := Adjustments{
		CreditCarriedIn:           in.CreditCarriedIn,
		CreditAppliedFromCarry:    decimal.Zero,
		CreditRemainingCarry:      in.CreditCarriedIn,
		CreditGeneratedThisPeriod: decimal.Zero,
	}

	vatCausado := in.Sales.VAT.Sub(in.CreditNotes.VAT)
	pending := vatCausado.Sub(in.Purchases.VAT)

	switch {
	case pending.LessThanOrEqual(decimal.Zero):
		adj.CreditGeneratedThisPeriod = pending.Neg()
		pending = decimal.Zero
	case in.CreditCarriedIn.GreaterThan(decimal.Zero):
		applied := decimal.Min(pending, in.CreditCarriedIn)
		adj.CreditAppliedFromCarry = applied
		adj.CreditRemainingCarry = in.CreditCarriedIn.Sub(applied)
		pending = pending.Sub(applied)
		if pending.LessThanOrEqual(decimal.Zero) {
			adj.CreditGeneratedThisPeriod = adj.CreditGeneratedThisPeriod.Add(pending.Neg())
			pending = decimal.Zero
		}
	}

	if pending.GreaterThan(decimal.Zero) {
		pending = pending.Sub(in.Withholding.VATWithheld)
		if pending.IsNegative() {
			adj.CreditGeneratedThisPeriod = adj.CreditGeneratedThisPeriod.Add(pending.Neg())
			adj.Warnings = append(adj.Warnings, WarningWithholdingExcess)
			pending = decimal.Zero
		}
	}

	incomeTax := in.IncomeTaxPayable
	vatPayable := pending
	creditFavor := adj.CreditRemainingCarry.Add(adj.CreditGeneratedThisPeriod)

	return Result{
		Period:      in.Period,
		Sales:       in.Sales,
		Purchases:   in.Purchases,
		Withholding: in.Withholding,
		CreditNotes: in.CreditNotes,
		Adjustments: adj,
		Calc: Calc{
			VATCausado:             vatCausado,
			VATCreditFromPurchases: in.Purchases.VAT,
			VATWithheldCredit:      in.Withholding.VATWithheld,
			VATPayable:             vatPayable,
			CreditFavor:            creditFavor,
			IncomeTaxPayable:       incomeTax,
			TotalPayable:           vatPayable.Add(incomeTax),
		},
		Notes: in.Notes,
	}
}
