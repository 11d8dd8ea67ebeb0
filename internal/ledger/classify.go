package ledger

import "github.com/shopspring/decimal"

// RateBucket identifies the VAT band a purchase base belongs to.
type RateBucket int

const (
	BucketZeroRate RateBucket = iota
	BucketTaxed
)

// RateClassifier decides the rate bucket for a purchase from its base and VAT
// amounts. It is injected into the Aggregator so the default heuristic can be
// swapped for an authoritative rate-table lookup later.
type RateClassifier func(base, vat decimal.Decimal) RateBucket

// ratioThreshold is 0.1%: purchases whose vat/base ratio falls at or below it
// are treated as zero-rate.
var ratioThreshold = decimal.NewFromFloat(0.001)

// ClassifyByRatio is the default classifier. It infers the bucket from the
// vat/base ratio rather than an authoritative rate table, which misclassifies
// mixed-rate invoices; a known limitation.
func ClassifyByRatio(base, vat decimal.Decimal) RateBucket {
	if base.IsZero() {
		if vat.IsZero() {
			return BucketZeroRate
		}
		return BucketTaxed
	}
	if vat.Div(base).Abs().LessThanOrEqual(ratioThreshold) {
		return BucketZeroRate
	}
	return BucketTaxed
}
