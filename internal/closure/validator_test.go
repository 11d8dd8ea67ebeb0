package closure

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tributo-erp/tributo-erp/internal/fiscal"
	"github.com/tributo-erp/tributo-erp/internal/ledger"
)

func TestValidatorStates(t *testing.T) {
	taxpayer := uuid.New()
	ctx := context.Background()

	t.Run("open while period running", func(t *testing.T) {
		v := NewValidator(newMemoryClosureRepo(), &stubAggregator{})
		dec, err := v.Evaluate(ctx, taxpayer, fiscal.Monthly(2025, time.April), april15)
		require.ErrorIs(t, err, ErrPeriodNotElapsed)
		require.Equal(t, StateOpen, dec.State)
	})

	t.Run("closed when a closure exists", func(t *testing.T) {
		repo := newMemoryClosureRepo()
		march := fiscal.Resolve(fiscal.Monthly(2025, time.March))
		_, err := repo.InsertClosure(ctx, Record{
			TaxpayerID:  taxpayer,
			PeriodStart: march.StartDate,
			PeriodEnd:   march.EndDate,
			PeriodLabel: march.Label,
		})
		require.NoError(t, err)

		v := NewValidator(repo, &stubAggregator{})
		dec, err := v.Evaluate(ctx, taxpayer, fiscal.Monthly(2025, time.March), april15)
		require.ErrorIs(t, err, ErrDuplicatePeriod)
		require.Equal(t, StateClosed, dec.State)
	})

	t.Run("blocked by unclosed prior activity", func(t *testing.T) {
		agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
			"2025-02": activityWith("10", "0", "0", "0", 1),
		}}
		v := NewValidator(newMemoryClosureRepo(), agg)
		dec, err := v.Evaluate(ctx, taxpayer, fiscal.Monthly(2025, time.March), april15)
		require.ErrorIs(t, err, ErrPriorPeriodUnclosed)
		require.Equal(t, StateBlocked, dec.State)
		require.Equal(t, "Febrero 2025", dec.PriorPeriod.Label)
	})

	t.Run("closable with warning on empty prior", func(t *testing.T) {
		v := NewValidator(newMemoryClosureRepo(), &stubAggregator{})
		dec, err := v.Evaluate(ctx, taxpayer, fiscal.Monthly(2025, time.March), april15)
		require.NoError(t, err)
		require.Equal(t, StateClosable, dec.State)
		require.Nil(t, dec.PriorClosure)
		require.Len(t, dec.Warnings, 1)
		require.Contains(t, dec.Warnings[0], WarningPriorPeriodAssumedEmpty)
		require.Contains(t, dec.Warnings[0], "Febrero 2025")
	})

	t.Run("closable without warning when prior is closed", func(t *testing.T) {
		repo := newMemoryClosureRepo()
		feb := fiscal.Resolve(fiscal.Monthly(2025, time.February))
		_, err := repo.InsertClosure(ctx, Record{
			TaxpayerID:  taxpayer,
			PeriodStart: feb.StartDate,
			PeriodEnd:   feb.EndDate,
			PeriodLabel: feb.Label,
		})
		require.NoError(t, err)

		v := NewValidator(repo, &stubAggregator{})
		dec, err := v.Evaluate(ctx, taxpayer, fiscal.Monthly(2025, time.March), april15)
		require.NoError(t, err)
		require.Equal(t, StateClosable, dec.State)
		require.NotNil(t, dec.PriorClosure)
		require.Empty(t, dec.Warnings)
	})
}

func TestValidatorSemiannualChain(t *testing.T) {
	taxpayer := uuid.New()
	ctx := context.Background()
	ref := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	// S2 2024 has activity and no closure: S1 2025 is blocked.
	agg := &stubAggregator{byPeriod: map[string]ledger.Activity{
		"2024-S2": activityWith("10", "0", "0", "0", 4),
	}}
	v := NewValidator(newMemoryClosureRepo(), agg)
	dec, err := v.Evaluate(ctx, taxpayer, fiscal.Semiannual(2025, 1), ref)
	require.ErrorIs(t, err, ErrPriorPeriodUnclosed)
	require.Equal(t, "Semestre 2 2024", dec.PriorPeriod.Label)
}

func TestValidatorStoreFailure(t *testing.T) {
	repo := newMemoryClosureRepo()
	repo.failWith = context.DeadlineExceeded
	v := NewValidator(repo, &stubAggregator{})
	_, err := v.Evaluate(context.Background(), uuid.New(), fiscal.Monthly(2025, time.March), april15)
	require.ErrorIs(t, err, ledger.ErrDataUnavailable)
}
