// Package ledger aggregates taxpayer ledger records over a fiscal period.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrDataUnavailable indicates the ledger store could not be queried. The
// caller may retry; no partial aggregation is ever returned alongside it.
var ErrDataUnavailable = errors.New("ledger: data unavailable")

// SalesRecord is a sales invoice as stored in the ledger. Bases arrive
// pre-split by VAT rate band.
type SalesRecord struct {
	ID        int64
	Number    string
	IssueDate time.Time
	Base0     decimal.Decimal
	Base8     decimal.Decimal
	Base15    decimal.Decimal
	VAT       decimal.Decimal
}

// PurchaseRecord is a purchase invoice. Unlike sales, purchases carry a single
// base; the rate band is inferred (see RateClassifier).
type PurchaseRecord struct {
	ID        int64
	Number    string
	IssueDate time.Time
	Base      decimal.Decimal
	VAT       decimal.Decimal
}

// CreditNote reduces the sales-side output VAT of its period.
type CreditNote struct {
	ID        int64
	Number    string
	IssueDate time.Time
	VAT       decimal.Decimal
}

// WithholdingReceipt records tax withheld by a counterparty at payment time.
type WithholdingReceipt struct {
	ID                int64
	Number            string
	IssueDate         time.Time
	VATWithheld       decimal.Decimal
	IncomeTaxWithheld decimal.Decimal
}

// Totals is the reduced shape shared by the sales and purchases sides.
// BaseTaxed is the union of all non-zero-rate bases.
type Totals struct {
	Base0     decimal.Decimal
	BaseTaxed decimal.Decimal
	VAT       decimal.Decimal
}

// WithholdingTotals sums withholding receipts issued inside the period.
type WithholdingTotals struct {
	VATWithheld       decimal.Decimal
	IncomeTaxWithheld decimal.Decimal
}

// CreditNoteTotals sums credit notes issued inside the period.
type CreditNoteTotals struct {
	VAT decimal.Decimal
}

// Activity bundles the four aggregates plus record counts for a period.
// Counts drive the prior-period activity check during chain validation.
type Activity struct {
	TaxpayerID  uuid.UUID
	Sales       Totals
	Purchases   Totals
	Withholding WithholdingTotals
	CreditNotes CreditNoteTotals
	RecordCount int
}

// HasActivity reports whether any ledger record fell inside the period.
func (a Activity) HasActivity() bool {
	return a.RecordCount > 0
}

// ZeroTotals returns a Totals with explicit zero decimals.
func ZeroTotals() Totals {
	return Totals{Base0: decimal.Zero, BaseTaxed: decimal.Zero, VAT: decimal.Zero}
}
