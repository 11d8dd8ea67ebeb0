package closure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tributo-erp/tributo-erp/internal/fiscal"
	"github.com/tributo-erp/tributo-erp/internal/ledger"
)

// activityChecker is the slice of the aggregator the validator needs: whether
// the prior period has any ledger records.
type activityChecker interface {
	Aggregate(ctx context.Context, taxpayerID uuid.UUID, period fiscal.Period) (ledger.Activity, error)
}

// closureFinder looks up an existing closure for exact period bounds.
type closureFinder interface {
	FindClosure(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) (*Record, error)
}

// Validator enforces that closures form an unbroken chronological chain.
type Validator struct {
	finder   closureFinder
	activity activityChecker
}

// NewValidator builds a chain validator.
func NewValidator(finder closureFinder, activity activityChecker) *Validator {
	return &Validator{finder: finder, activity: activity}
}

// Evaluate decides whether the selected period can be closed at the reference
// time. The returned Decision carries the prior closure, when one exists, so
// the caller can extract the carried credit without a second lookup.
//
// Verdicts:
//   - the period has not fully elapsed: StateOpen + ErrPeriodNotElapsed
//   - a non-deleted closure exists: StateClosed + ErrDuplicatePeriod
//   - the prior period has activity but no closure: StateBlocked +
//     ErrPriorPeriodUnclosed naming the period to close first
//   - the prior period is empty and unclosed: StateClosable with a warning
func (v *Validator) Evaluate(ctx context.Context, taxpayerID uuid.UUID, sel fiscal.Selection, reference time.Time) (Decision, error) {
	period := fiscal.Resolve(sel)
	prior := fiscal.Resolve(fiscal.Previous(sel))
	dec := Decision{State: StateOpen, Period: period, PriorPeriod: prior}

	if !fiscal.HasElapsed(period, reference) {
		return dec, fmt.Errorf("%w: %s", ErrPeriodNotElapsed, period.Label)
	}

	existing, err := v.finder.FindClosure(ctx, taxpayerID, period.StartDate, period.EndDate)
	if err != nil {
		return dec, fmt.Errorf("%w: %v", ledger.ErrDataUnavailable, err)
	}
	if existing != nil {
		dec.State = StateClosed
		return dec, fmt.Errorf("%w: %s", ErrDuplicatePeriod, period.Label)
	}

	priorClosure, err := v.finder.FindClosure(ctx, taxpayerID, prior.StartDate, prior.EndDate)
	if err != nil {
		return dec, fmt.Errorf("%w: %v", ledger.ErrDataUnavailable, err)
	}
	if priorClosure != nil {
		dec.State = StateClosable
		dec.PriorClosure = priorClosure
		return dec, nil
	}

	priorActivity, err := v.activity.Aggregate(ctx, taxpayerID, prior)
	if err != nil {
		return dec, err
	}
	if priorActivity.HasActivity() {
		dec.State = StateBlocked
		return dec, fmt.Errorf("%w: %s", ErrPriorPeriodUnclosed, prior.Label)
	}

	dec.State = StateClosable
	dec.Warnings = append(dec.Warnings, fmt.Sprintf("%s (%s)", WarningPriorPeriodAssumedEmpty, prior.Label))
	return dec, nil
}
