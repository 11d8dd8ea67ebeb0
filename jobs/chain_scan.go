package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/tributo-erp/tributo-erp/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ChainScanJob walks ledger activity looking for elapsed months that carry
// invoices but have no matching closure record. Gaps block every later
// closure for that taxpayer, so they are surfaced early instead of at the
// moment someone tries to close the current period.
type ChainScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewChainScanJob wires dependencies for the chain integrity handler.
func NewChainScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ChainScanJob {
	return &ChainScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type chainGap struct {
	TaxpayerID string
	Month      string
}

// Handle executes the chain integrity scan.
func (j *ChainScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("chain scan: handler not configured")
	}
	var payload ChainScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.LookbackMonths <= 0 {
		payload.LookbackMonths = 12
	}

	tracker := j.metrics().Track(TaskClosureChainScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("lookback_months", payload.LookbackMonths))
	logger.Info("starting closure chain scan")

	gaps, err := j.scan(ctx, payload)
	if err != nil {
		resultErr = err
		logger.Error("chain scan failed", slog.Any("error", err))
		return resultErr
	}

	perTaxpayer := make(map[string]int)
	for _, gap := range gaps {
		perTaxpayer[gap.TaxpayerID]++
		logger.Warn("unclosed period with activity",
			slog.String("taxpayer_id", gap.TaxpayerID),
			slog.String("month", gap.Month),
		)
	}
	for taxpayerID, count := range perTaxpayer {
		j.metrics().AddChainGaps(taxpayerID, count)
	}

	logger.Info("completed closure chain scan",
		slog.Int("gaps", len(gaps)),
		slog.Int("taxpayers", len(perTaxpayer)),
	)
	return resultErr
}

// scan returns taxpayer/month pairs where sales or purchases exist but no
// closure record covers the month. Only fully elapsed months are considered;
// the current month is still open by definition.
func (j *ChainScanJob) scan(ctx context.Context, payload ChainScanPayload) ([]chainGap, error) {
	if j.Pool == nil {
		return nil, errors.New("chain scan: pool not configured")
	}
	now := j.now()
	windowEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowStart := windowEnd.AddDate(0, -payload.LookbackMonths, 0)

	const query = `
		WITH activity AS (
			SELECT taxpayer_id, date_trunc('month', issue_date)::date AS month
			FROM sales_invoices
			WHERE issue_date >= $1 AND issue_date < $2 AND deleted_at IS NULL
			UNION
			SELECT taxpayer_id, date_trunc('month', issue_date)::date AS month
			FROM purchase_invoices
			WHERE issue_date >= $1 AND issue_date < $2 AND deleted_at IS NULL
		)
		SELECT a.taxpayer_id, to_char(a.month, 'YYYY-MM')
		FROM activity a
		LEFT JOIN period_closures pc
			ON pc.taxpayer_id = a.taxpayer_id
			AND pc.period_start <= a.month
			AND pc.period_end >= a.month
			AND pc.deleted_at IS NULL
		WHERE pc.id IS NULL
			AND ($3 = '' OR a.taxpayer_id::text = $3)
		ORDER BY a.taxpayer_id, a.month`

	rows, err := j.Pool.Query(ctx, query, windowStart, windowEnd, payload.TaxpayerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gaps []chainGap
	for rows.Next() {
		var gap chainGap
		if err := rows.Scan(&gap.TaxpayerID, &gap.Month); err != nil {
			return nil, err
		}
		gaps = append(gaps, gap)
	}
	return gaps, rows.Err()
}

func (j *ChainScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *ChainScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ChainScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
