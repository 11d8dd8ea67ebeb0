// Package liquidation computes the VAT settlement for a fiscal period.
package liquidation

import (
	"github.com/shopspring/decimal"

	"github.com/tributo-erp/tributo-erp/internal/fiscal"
	"github.com/tributo-erp/tributo-erp/internal/ledger"
)

// Input carries everything the calculator consumes. CreditCarriedIn is the
// unconsumed credit extracted from the previous period's closure; it is always
// threaded explicitly, never read from storage inside the calculator.
type Input struct {
	Period           fiscal.Period
	Sales            ledger.Totals
	Purchases        ledger.Totals
	Withholding      ledger.WithholdingTotals
	CreditNotes      ledger.CreditNoteTotals
	CreditCarriedIn  decimal.Decimal
	IncomeTaxPayable decimal.Decimal
	Notes            string
}

// Adjustments tracks how credit moved through the consumption chain.
type Adjustments struct {
	CreditCarriedIn           decimal.Decimal
	CreditAppliedFromCarry    decimal.Decimal
	CreditRemainingCarry      decimal.Decimal
	CreditGeneratedThisPeriod decimal.Decimal
	Warnings                  []string
}

// Calc holds the settlement figures.
type Calc struct {
	VATCausado             decimal.Decimal
	VATCreditFromPurchases decimal.Decimal
	VATWithheldCredit      decimal.Decimal
	VATPayable             decimal.Decimal
	CreditFavor            decimal.Decimal
	IncomeTaxPayable       decimal.Decimal
	TotalPayable           decimal.Decimal
}

// Result is the computed, not-yet-persisted outcome of a period liquidation.
// Values are unrounded; rounding to two decimals happens only when a closure
// record is built or the result is rendered.
type Result struct {
	Period      fiscal.Period
	Sales       ledger.Totals
	Purchases   ledger.Totals
	Withholding ledger.WithholdingTotals
	CreditNotes ledger.CreditNoteTotals
	Adjustments Adjustments
	Calc        Calc
	Notes       string
}
