package closure

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tributo-erp/tributo-erp/internal/fiscal"
	"github.com/tributo-erp/tributo-erp/internal/ledger"
	"github.com/tributo-erp/tributo-erp/internal/liquidation"
)

// RepositoryPort defines persistence for closure records.
type RepositoryPort interface {
	FindClosure(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) (*Record, error)
	InsertClosure(ctx context.Context, rec Record) (Record, error)
	ListClosures(ctx context.Context, taxpayerID uuid.UUID) ([]Record, error)
	ListClosuresByYear(ctx context.Context, taxpayerID uuid.UUID, year int) ([]Record, error)
	SoftDeleteClosure(ctx context.Context, taxpayerID, id uuid.UUID) (Record, error)
}

// AggregatorPort is the ledger aggregation dependency.
type AggregatorPort interface {
	Aggregate(ctx context.Context, taxpayerID uuid.UUID, period fiscal.Period) (ledger.Activity, error)
}

// Service orchestrates a period liquidation end to end: chain validation,
// aggregation, calculation, and persistence of the closure record.
type Service struct {
	repo      RepositoryPort
	ledger    AggregatorPort
	validator *Validator
	cache     *SummaryCache
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds the closure service. cache may be nil.
func NewService(repo RepositoryPort, agg AggregatorPort, cache *SummaryCache, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		ledger:    agg,
		validator: NewValidator(repo, agg),
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Preview runs the full liquidation without persisting anything.
func (s *Service) Preview(ctx context.Context, in CloseInput) (liquidation.Result, error) {
	dec, err := s.validator.Evaluate(ctx, in.TaxpayerID, in.Selection, s.now())
	if err != nil {
		return liquidation.Result{}, err
	}
	return s.liquidate(ctx, in, dec)
}

// Close runs the liquidation and persists the closure record. The repository
// re-checks the duplicate transactionally; a concurrent winner surfaces as
// ErrDuplicatePeriod.
func (s *Service) Close(ctx context.Context, in CloseInput) (Record, error) {
	dec, err := s.validator.Evaluate(ctx, in.TaxpayerID, in.Selection, s.now())
	if err != nil {
		return Record{}, err
	}
	result, err := s.liquidate(ctx, in, dec)
	if err != nil {
		return Record{}, err
	}

	rec, err := s.repo.InsertClosure(ctx, BuildRecord(in.TaxpayerID, result))
	if err != nil {
		return Record{}, err
	}
	s.invalidateSummary(ctx, in.TaxpayerID, rec.PeriodStart.Year())
	if s.logger != nil {
		s.logger.Info("period closed",
			slog.String("taxpayer", in.TaxpayerID.String()),
			slog.String("period", rec.PeriodLabel),
			slog.String("vat_payable", rec.VATPayable.String()))
	}
	return rec, nil
}

// ListClosures returns every non-deleted closure for the taxpayer.
func (s *Service) ListClosures(ctx context.Context, taxpayerID uuid.UUID) ([]Record, error) {
	return s.repo.ListClosures(ctx, taxpayerID)
}

// SoftDelete marks a closure deleted so its period can be closed again. This
// is the external operator action; the record itself is never mutated.
func (s *Service) SoftDelete(ctx context.Context, taxpayerID, id uuid.UUID) error {
	rec, err := s.repo.SoftDeleteClosure(ctx, taxpayerID, id)
	if err != nil {
		return err
	}
	s.invalidateSummary(ctx, taxpayerID, rec.PeriodStart.Year())
	return nil
}

// YearSummary totals the taxpayer's closures for one year, served from cache
// when warm.
func (s *Service) YearSummary(ctx context.Context, taxpayerID uuid.UUID, year int) (YearSummary, error) {
	if s.cache != nil {
		if summary, ok := s.cache.Get(ctx, taxpayerID, year); ok {
			return summary, nil
		}
	}
	records, err := s.repo.ListClosuresByYear(ctx, taxpayerID, year)
	if err != nil {
		return YearSummary{}, err
	}
	summary := YearSummary{
		Year:             year,
		ClosureCount:     len(records),
		TotalVATPayable:  decimal.Zero,
		TotalCreditFavor: decimal.Zero,
		TotalPayable:     decimal.Zero,
	}
	for _, rec := range records {
		summary.TotalVATPayable = summary.TotalVATPayable.Add(rec.VATPayable)
		summary.TotalCreditFavor = summary.TotalCreditFavor.Add(rec.CreditFavor)
		summary.TotalPayable = summary.TotalPayable.Add(rec.TotalPayable)
	}
	if s.cache != nil {
		s.cache.Set(ctx, taxpayerID, summary)
	}
	return summary, nil
}

func (s *Service) liquidate(ctx context.Context, in CloseInput, dec Decision) (liquidation.Result, error) {
	var activity ledger.Activity
	if in.Manual != nil {
		activity = ledger.Activity{
			TaxpayerID:  in.TaxpayerID,
			Sales:       in.Manual.Sales,
			Purchases:   in.Manual.Purchases,
			Withholding: in.Manual.Withholding,
			CreditNotes: in.Manual.CreditNotes,
		}
	} else {
		var err error
		activity, err = s.ledger.Aggregate(ctx, in.TaxpayerID, dec.Period)
		if err != nil {
			return liquidation.Result{}, err
		}
	}

	result := liquidation.Calculate(liquidation.Input{
		Period:           dec.Period,
		Sales:            activity.Sales,
		Purchases:        activity.Purchases,
		Withholding:      activity.Withholding,
		CreditNotes:      activity.CreditNotes,
		CreditCarriedIn:  ExtractCarriedCredit(dec.PriorClosure),
		IncomeTaxPayable: in.IncomeTaxPayable,
		Notes:            in.Notes,
	})
	result.Adjustments.Warnings = append(dec.Warnings, result.Adjustments.Warnings...)
	return result, nil
}

func (s *Service) invalidateSummary(ctx context.Context, taxpayerID uuid.UUID, year int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, taxpayerID, year); err != nil && s.logger != nil {
		s.logger.Warn("invalidate summary cache", slog.Any("error", err))
	}
}
