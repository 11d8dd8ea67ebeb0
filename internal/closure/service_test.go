package closure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tributo-erp/tributo-erp/internal/fiscal"
	"github.com/tributo-erp/tributo-erp/internal/ledger"
)

type memoryClosureRepo struct {
	records  map[uuid.UUID]Record
	failWith error
}

func newMemoryClosureRepo() *memoryClosureRepo {
	return &memoryClosureRepo{records: make(map[uuid.UUID]Record)}
}

func (r *memoryClosureRepo) FindClosure(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) (*Record, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, rec := range r.records {
		if rec.TaxpayerID == taxpayerID && rec.PeriodStart.Equal(start) && rec.PeriodEnd.Equal(end) && rec.DeletedAt == nil {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryClosureRepo) InsertClosure(ctx context.Context, rec Record) (Record, error) {
	if r.failWith != nil {
		return Record{}, r.failWith
	}
	existing, _ := r.FindClosure(ctx, rec.TaxpayerID, rec.PeriodStart, rec.PeriodEnd)
	if existing != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrDuplicatePeriod, rec.PeriodLabel)
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *memoryClosureRepo) ListClosures(ctx context.Context, taxpayerID uuid.UUID) ([]Record, error) {
	var out []Record
	for _, rec := range r.records {
		if rec.TaxpayerID == taxpayerID && rec.DeletedAt == nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryClosureRepo) ListClosuresByYear(ctx context.Context, taxpayerID uuid.UUID, year int) ([]Record, error) {
	var out []Record
	for _, rec := range r.records {
		if rec.TaxpayerID == taxpayerID && rec.DeletedAt == nil && rec.PeriodStart.Year() == year {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryClosureRepo) SoftDeleteClosure(ctx context.Context, taxpayerID, id uuid.UUID) (Record, error) {
	rec, ok := r.records[id]
	if !ok || rec.TaxpayerID != taxpayerID || rec.DeletedAt != nil {
		return Record{}, ErrClosureNotFound
	}
	now := time.Now()
	rec.DeletedAt = &now
	r.records[id] = rec
	return rec, nil
}

// stubAggregator serves canned activity per period ID.
type stubAggregator struct {
	byPeriod map[string]ledger.Activity
	failWith error
}

func (a *stubAggregator) Aggregate(ctx context.Context, taxpayerID uuid.UUID, period fiscal.Period) (ledger.Activity, error) {
	if a.failWith != nil {
		return ledger.Activity{}, a.failWith
	}
	act, ok := a.byPeriod[period.ID]
	if !ok {
		return ledger.Activity{TaxpayerID: taxpayerID}, nil
	}
	act.TaxpayerID = taxpayerID
	return act, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func activityWith(salesVAT, purchasesVAT, withheldVAT, creditNotesVAT string, count int) ledger.Activity {
	return ledger.Activity{
		Sales:       ledger.Totals{Base0: decimal.Zero, BaseTaxed: decimal.Zero, VAT: d(salesVAT)},
		Purchases:   ledger.Totals{Base0: decimal.Zero, BaseTaxed: decimal.Zero, VAT: d(purchasesVAT)},
		Withholding: ledger.WithholdingTotals{VATWithheld: d(withheldVAT), IncomeTaxWithheld: decimal.Zero},
		CreditNotes: ledger.CreditNoteTotals{VAT: d(creditNotesVAT)},
		RecordCount: count,
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var april15 = time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)

func TestCloseHappyPath(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		"2025-03": activityWith("100", "40", "0", "0", 3),
	}}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	rec, err := svc.Close(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2025, time.March),
	})
	require.NoError(t, err)
	require.True(t, rec.VATPayable.Equal(d("60")))
	require.True(t, rec.CreditFavor.IsZero())
	require.True(t, rec.VATCausado.Equal(d("100")))
	require.Equal(t, "Marzo 2025", rec.PeriodLabel)
	// February was empty and unclosed, so the chain proceeds with a warning.
	require.Len(t, rec.Warnings, 1)
	require.Contains(t, rec.Warnings[0], WarningPriorPeriodAssumedEmpty)
}

func TestCloseRejectsUnelapsedPeriod(t *testing.T) {
	svc := NewService(newMemoryClosureRepo(), &stubAggregator{}, nil, nil).WithNow(fixedNow(april15))

	_, err := svc.Close(context.Background(), CloseInput{
		TaxpayerID: uuid.New(),
		Selection:  fiscal.Monthly(2025, time.April),
	})
	require.ErrorIs(t, err, ErrPeriodNotElapsed)

	_, err = svc.Close(context.Background(), CloseInput{
		TaxpayerID: uuid.New(),
		Selection:  fiscal.Monthly(2025, time.December),
	})
	require.ErrorIs(t, err, ErrPeriodNotElapsed)
}

func TestCloseRejectsDuplicateIdempotently(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		"2025-03": activityWith("100", "40", "0", "0", 3),
	}}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	in := CloseInput{TaxpayerID: taxpayer, Selection: fiscal.Monthly(2025, time.March)}
	_, err := svc.Close(context.Background(), in)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Close(context.Background(), in)
		require.ErrorIs(t, err, ErrDuplicatePeriod)
	}
}

func TestCloseBlockedByPriorActivity(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		"2025-02": activityWith("50", "10", "0", "0", 3),
		"2025-03": activityWith("100", "40", "0", "0", 2),
	}}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	_, err := svc.Close(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2025, time.March),
	})
	require.ErrorIs(t, err, ErrPriorPeriodUnclosed)
	require.Contains(t, err.Error(), "Febrero 2025")
	require.Empty(t, repo.records, "nothing may be persisted on a blocked chain")
}

func TestCloseCarriesCreditAcrossPeriods(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		// February generates 20 of credit; March consumes it.
		"2025-02": activityWith("30", "50", "0", "0", 2),
		"2025-03": activityWith("100", "85", "0", "0", 2),
	}}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	feb, err := svc.Close(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2025, time.February),
	})
	require.NoError(t, err)
	require.True(t, feb.CreditFavor.Equal(d("20")))

	require.True(t, ExtractCarriedCredit(&feb).Equal(d("20")))

	mar, err := svc.Close(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2025, time.March),
	})
	require.NoError(t, err)
	require.True(t, mar.CreditCarriedIn.Equal(d("20")))
	// pending 15 after purchases, fully covered by the carried 20.
	require.True(t, mar.VATPayable.IsZero())
	require.True(t, mar.CreditFavor.Equal(d("5")))
}

func TestCloseManualEntryBypassesAggregator(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{failWith: fmt.Errorf("%w: ledger store down", ledger.ErrDataUnavailable)}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	rec, err := svc.Close(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2025, time.March),
		Manual: &ManualEntry{
			Sales:     ledger.Totals{Base0: decimal.Zero, BaseTaxed: d("500"), VAT: d("75")},
			Purchases: ledger.Totals{Base0: decimal.Zero, BaseTaxed: d("200"), VAT: d("30")},
		},
		IncomeTaxPayable: d("10"),
	})
	// The aggregator still runs for the prior-period activity check; only the
	// current period's aggregation is bypassed.
	require.ErrorIs(t, err, ledger.ErrDataUnavailable)
	_ = rec

	agg.failWith = nil
	rec, err = svc.Close(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2025, time.March),
		Manual: &ManualEntry{
			Sales:     ledger.Totals{Base0: decimal.Zero, BaseTaxed: d("500"), VAT: d("75")},
			Purchases: ledger.Totals{Base0: decimal.Zero, BaseTaxed: d("200"), VAT: d("30")},
		},
		IncomeTaxPayable: d("10"),
	})
	require.NoError(t, err)
	require.True(t, rec.VATPayable.Equal(d("45")))
	require.True(t, rec.IncomeTaxPayable.Equal(d("10")))
	require.True(t, rec.TotalPayable.Equal(d("55")))
}

func TestCloseDataUnavailableAborts(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{failWith: fmt.Errorf("%w: timeout", ledger.ErrDataUnavailable)}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	_, err := svc.Close(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2025, time.March),
	})
	require.ErrorIs(t, err, ledger.ErrDataUnavailable)
	require.Empty(t, repo.records)
}

func TestSoftDeleteEnablesReclosure(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		"2025-03": activityWith("100", "40", "0", "0", 1),
	}}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	in := CloseInput{TaxpayerID: taxpayer, Selection: fiscal.Monthly(2025, time.March)}
	rec, err := svc.Close(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), in)
	require.ErrorIs(t, err, ErrDuplicatePeriod)

	require.NoError(t, svc.SoftDelete(context.Background(), taxpayer, rec.ID))

	again, err := svc.Close(context.Background(), in)
	require.NoError(t, err)
	require.NotEqual(t, rec.ID, again.ID)
}

func TestSoftDeleteUnknownClosure(t *testing.T) {
	svc := NewService(newMemoryClosureRepo(), &stubAggregator{}, nil, nil)
	err := svc.SoftDelete(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrClosureNotFound)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		"2025-03": activityWith("100", "20", "90", "0", 2),
	}}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	res, err := svc.Preview(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2025, time.March),
	})
	require.NoError(t, err)
	require.True(t, res.Calc.VATPayable.IsZero())
	require.True(t, res.Adjustments.CreditGeneratedThisPeriod.Equal(d("10")))
	require.Empty(t, repo.records)
}

func TestYearSummary(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		"2025-01": activityWith("100", "40", "0", "0", 1),
		"2025-02": activityWith("30", "50", "0", "0", 1),
	}}
	svc := NewService(repo, agg, nil, nil).WithNow(fixedNow(april15))

	for _, m := range []time.Month{time.January, time.February} {
		_, err := svc.Close(context.Background(), CloseInput{TaxpayerID: taxpayer, Selection: fiscal.Monthly(2025, m)})
		require.NoError(t, err)
	}

	summary, err := svc.YearSummary(context.Background(), taxpayer, 2025)
	require.NoError(t, err)
	require.Equal(t, 2, summary.ClosureCount)
	require.True(t, summary.TotalVATPayable.Equal(d("60")))
	require.True(t, summary.TotalCreditFavor.Equal(d("20")))
}

// Soft-deleting a closure from an earlier year must drop that year's cached
// summary, not just the years around the current clock.
func TestSoftDeleteInvalidatesOwningYearSummary(t *testing.T) {
	taxpayer := uuid.New()
	repo := newMemoryClosureRepo()
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		"2023-03": activityWith("100", "40", "0", "0", 1),
	}}
	svc := NewService(repo, agg, newTestCache(t), nil).WithNow(fixedNow(april15))

	rec, err := svc.Close(context.Background(), CloseInput{
		TaxpayerID: taxpayer,
		Selection:  fiscal.Monthly(2023, time.March),
	})
	require.NoError(t, err)

	warm, err := svc.YearSummary(context.Background(), taxpayer, 2023)
	require.NoError(t, err)
	require.Equal(t, 1, warm.ClosureCount)

	require.NoError(t, svc.SoftDelete(context.Background(), taxpayer, rec.ID))

	after, err := svc.YearSummary(context.Background(), taxpayer, 2023)
	require.NoError(t, err)
	require.Equal(t, 0, after.ClosureCount)
	require.True(t, after.TotalVATPayable.IsZero())
}
