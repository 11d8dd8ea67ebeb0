package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tributo-erp/tributo-erp/internal/fiscal"
)

// RepositoryPort defines read access to the external ledger store. Date bounds
// are inclusive on both ends.
type RepositoryPort interface {
	FetchSales(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) ([]SalesRecord, error)
	FetchPurchases(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) ([]PurchaseRecord, error)
	FetchCreditNotes(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) ([]CreditNote, error)
	FetchWithholding(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) ([]WithholdingReceipt, error)
}

// Aggregator reduces raw ledger records into period totals.
type Aggregator struct {
	repo     RepositoryPort
	classify RateClassifier
}

// NewAggregator builds an Aggregator with the default rate classifier.
func NewAggregator(repo RepositoryPort) *Aggregator {
	return &Aggregator{repo: repo, classify: ClassifyByRatio}
}

// WithClassifier overrides the purchase rate classifier.
func (a *Aggregator) WithClassifier(fn RateClassifier) *Aggregator {
	if fn != nil {
		a.classify = fn
	}
	return a
}

// Aggregate fetches the four record sets for the period and reduces them.
// A failure on any fetch aborts the whole aggregation; partial results are
// never returned.
func (a *Aggregator) Aggregate(ctx context.Context, taxpayerID uuid.UUID, period fiscal.Period) (Activity, error) {
	var (
		sales       []SalesRecord
		purchases   []PurchaseRecord
		creditNotes []CreditNote
		withholding []WithholdingReceipt
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = a.repo.FetchSales(gctx, taxpayerID, period.StartDate, period.EndDate)
		return err
	})
	g.Go(func() error {
		var err error
		purchases, err = a.repo.FetchPurchases(gctx, taxpayerID, period.StartDate, period.EndDate)
		return err
	})
	g.Go(func() error {
		var err error
		creditNotes, err = a.repo.FetchCreditNotes(gctx, taxpayerID, period.StartDate, period.EndDate)
		return err
	})
	g.Go(func() error {
		var err error
		withholding, err = a.repo.FetchWithholding(gctx, taxpayerID, period.StartDate, period.EndDate)
		return err
	})
	if err := g.Wait(); err != nil {
		return Activity{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	act := Activity{
		TaxpayerID:  taxpayerID,
		Sales:       reduceSales(sales),
		Purchases:   a.reducePurchases(purchases),
		Withholding: reduceWithholding(withholding),
		CreditNotes: reduceCreditNotes(creditNotes),
		RecordCount: len(sales) + len(purchases) + len(creditNotes) + len(withholding),
	}
	return act, nil
}

func reduceSales(records []SalesRecord) Totals {
	t := ZeroTotals()
	for _, rec := range records {
		t.Base0 = t.Base0.Add(rec.Base0)
		t.BaseTaxed = t.BaseTaxed.Add(rec.Base8).Add(rec.Base15)
		t.VAT = t.VAT.Add(rec.VAT)
	}
	return t
}

func (a *Aggregator) reducePurchases(records []PurchaseRecord) Totals {
	t := ZeroTotals()
	for _, rec := range records {
		switch a.classify(rec.Base, rec.VAT) {
		case BucketZeroRate:
			t.Base0 = t.Base0.Add(rec.Base)
		default:
			t.BaseTaxed = t.BaseTaxed.Add(rec.Base)
		}
		t.VAT = t.VAT.Add(rec.VAT)
	}
	return t
}

func reduceWithholding(records []WithholdingReceipt) WithholdingTotals {
	t := WithholdingTotals{VATWithheld: decimal.Zero, IncomeTaxWithheld: decimal.Zero}
	for _, rec := range records {
		t.VATWithheld = t.VATWithheld.Add(rec.VATWithheld)
		t.IncomeTaxWithheld = t.IncomeTaxWithheld.Add(rec.IncomeTaxWithheld)
	}
	return t
}

func reduceCreditNotes(records []CreditNote) CreditNoteTotals {
	t := CreditNoteTotals{VAT: decimal.Zero}
	for _, rec := range records {
		t.VAT = t.VAT.Add(rec.VAT)
	}
	return t
}
