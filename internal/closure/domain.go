// Package closure validates the period chain and persists liquidation
// closures.
package closure

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tributo-erp/tributo-erp/internal/fiscal"
	"github.com/tributo-erp/tributo-erp/internal/ledger"
)

// State describes where a (taxpayer, period) pair sits in the closure chain.
type State string

const (
	StateOpen     State = "OPEN"
	StateClosable State = "CLOSABLE"
	StateBlocked  State = "BLOCKED"
	StateClosed   State = "CLOSED"
)

// ErrPeriodNotElapsed is returned when closing the current or a future period.
var ErrPeriodNotElapsed = errors.New("closure: period has not elapsed yet")

// ErrDuplicatePeriod is returned when a non-deleted closure already exists for
// the exact (taxpayer, start, end) tuple.
var ErrDuplicatePeriod = errors.New("closure: period already closed")

// ErrPriorPeriodUnclosed is returned when the immediately preceding period has
// ledger activity but no closure. The chain must close in order.
var ErrPriorPeriodUnclosed = errors.New("closure: prior period must be closed first")

// ErrClosureNotFound indicates the requested closure does not exist.
var ErrClosureNotFound = errors.New("closure: not found")

// WarningPriorPeriodAssumedEmpty is attached when the prior period has neither
// activity nor a closure and the chain proceeds anyway.
const WarningPriorPeriodAssumedEmpty = "assumed no operations in prior period"

// Record is the persisted, immutable outcome of a period closure. Field names
// and two-decimal rounding match the store schema consumed by the rest of the
// application; creditFavorFromAdquisition keeps its historical spelling.
type Record struct {
	ID                         uuid.UUID       `json:"id"`
	TaxpayerID                 uuid.UUID       `json:"taxpayerId"`
	PeriodStart                time.Time       `json:"periodStart"`
	PeriodEnd                  time.Time       `json:"periodEnd"`
	PeriodLabel                string          `json:"periodLabel"`
	SalesBase0                 decimal.Decimal `json:"salesBase0"`
	SalesBaseTaxed             decimal.Decimal `json:"salesBaseTaxed"`
	SalesVAT                   decimal.Decimal `json:"salesVat"`
	PurchasesBase0             decimal.Decimal `json:"purchasesBase0"`
	PurchasesBaseTaxed         decimal.Decimal `json:"purchasesBaseTaxed"`
	PurchasesVAT               decimal.Decimal `json:"purchasesVat"`
	CreditNotesVAT             decimal.Decimal `json:"creditNotesVat"`
	VATCausado                 decimal.Decimal `json:"vatCausado"`
	CreditFavorFromAdquisition decimal.Decimal `json:"creditFavorFromAdquisition"`
	VATWithheldCredit          decimal.Decimal `json:"vatWithheldCredit"`
	IncomeTaxWithheld          decimal.Decimal `json:"incomeTaxWithheld"`
	CreditCarriedIn            decimal.Decimal `json:"creditCarriedIn"`
	VATPayable                 decimal.Decimal `json:"vatPayable"`
	CreditFavor                decimal.Decimal `json:"creditFavor"`
	IncomeTaxPayable           decimal.Decimal `json:"incomeTaxPayable"`
	TotalPayable               decimal.Decimal `json:"totalPayable"`
	Warnings                   []string        `json:"warnings,omitempty"`
	Notes                      string          `json:"notes,omitempty"`
	CreatedAt                  time.Time       `json:"createdAt"`
	DeletedAt                  *time.Time      `json:"deletedAt,omitempty"`
}

// Decision is the validator verdict for a closure attempt.
type Decision struct {
	State        State
	Period       fiscal.Period
	PriorPeriod  fiscal.Period
	PriorClosure *Record
	Warnings     []string
}

// ManualEntry feeds user-entered aggregates straight into the calculator,
// bypassing the ledger store entirely.
type ManualEntry struct {
	Sales       ledger.Totals
	Purchases   ledger.Totals
	Withholding ledger.WithholdingTotals
	CreditNotes ledger.CreditNoteTotals
}

// CloseInput is the caller contract for a preview or closure attempt.
type CloseInput struct {
	TaxpayerID       uuid.UUID
	Selection        fiscal.Selection
	Manual           *ManualEntry
	IncomeTaxPayable decimal.Decimal
	Notes            string
}

// YearSummary totals the non-deleted closures of one calendar year.
type YearSummary struct {
	Year             int             `json:"year"`
	ClosureCount     int             `json:"closureCount"`
	TotalVATPayable  decimal.Decimal `json:"totalVatPayable"`
	TotalCreditFavor decimal.Decimal `json:"totalCreditFavor"`
	TotalPayable     decimal.Decimal `json:"totalPayable"`
}
