package closure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tributo-erp/tributo-erp/internal/platform/db"
)

// uniqueViolation is the SQLSTATE raised by the partial unique index on
// (taxpayer_id, period_start, period_end) WHERE deleted_at IS NULL. That index
// is the authoritative duplicate guard; the validator pre-check only gives the
// user a friendlier rejection.
const uniqueViolation = "23505"

const recordColumns = `id, taxpayer_id, period_start, period_end, period_label,
sales_base_0, sales_base_taxed, sales_vat,
purchases_base_0, purchases_base_taxed, purchases_vat,
credit_notes_vat, vat_causado, credit_favor_from_adquisition,
vat_withheld_credit, income_tax_withheld, credit_carried_in,
vat_payable, credit_favor, income_tax_payable, total_payable,
warnings, notes, created_at, deleted_at`

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed closure store.
func NewRepository(pool *pgxpool.Pool) RepositoryPort {
	return &repository{db: pool}
}

// FindClosure returns the non-deleted closure for exact period bounds, or nil.
func (r *repository) FindClosure(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) (*Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+recordColumns+`
FROM period_closures
WHERE taxpayer_id = $1 AND period_start = $2 AND period_end = $3 AND deleted_at IS NULL`,
		taxpayerID, start, end)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// InsertClosure persists a closure inside a transaction, re-checking the
// duplicate right before the write. A unique violation from a concurrent
// attempt maps to ErrDuplicatePeriod.
func (r *repository) InsertClosure(ctx context.Context, rec Record) (Record, error) {
	var inserted Record
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var existing uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM period_closures
WHERE taxpayer_id = $1 AND period_start = $2 AND period_end = $3 AND deleted_at IS NULL
FOR UPDATE`, rec.TaxpayerID, rec.PeriodStart, rec.PeriodEnd).Scan(&existing)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicatePeriod, rec.PeriodLabel)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		row := tx.QueryRow(ctx, `INSERT INTO period_closures (
id, taxpayer_id, period_start, period_end, period_label,
sales_base_0, sales_base_taxed, sales_vat,
purchases_base_0, purchases_base_taxed, purchases_vat,
credit_notes_vat, vat_causado, credit_favor_from_adquisition,
vat_withheld_credit, income_tax_withheld, credit_carried_in,
vat_payable, credit_favor, income_tax_payable, total_payable,
warnings, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,now())
RETURNING `+recordColumns,
			uuid.New(), rec.TaxpayerID, rec.PeriodStart, rec.PeriodEnd, rec.PeriodLabel,
			rec.SalesBase0, rec.SalesBaseTaxed, rec.SalesVAT,
			rec.PurchasesBase0, rec.PurchasesBaseTaxed, rec.PurchasesVAT,
			rec.CreditNotesVAT, rec.VATCausado, rec.CreditFavorFromAdquisition,
			rec.VATWithheldCredit, rec.IncomeTaxWithheld, rec.CreditCarriedIn,
			rec.VATPayable, rec.CreditFavor, rec.IncomeTaxPayable, rec.TotalPayable,
			rec.Warnings, rec.Notes)
		var e error
		inserted, e = scanRecord(row)
		return e
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Record{}, fmt.Errorf("%w: %s", ErrDuplicatePeriod, rec.PeriodLabel)
		}
		return Record{}, err
	}
	return inserted, nil
}

// ListClosures returns non-deleted closures ordered by period start.
func (r *repository) ListClosures(ctx context.Context, taxpayerID uuid.UUID) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+`
FROM period_closures
WHERE taxpayer_id = $1 AND deleted_at IS NULL
ORDER BY period_start`, taxpayerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListClosuresByYear returns non-deleted closures whose start falls in year.
func (r *repository) ListClosuresByYear(ctx context.Context, taxpayerID uuid.UUID, year int) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+`
FROM period_closures
WHERE taxpayer_id = $1 AND deleted_at IS NULL
  AND period_start >= $2 AND period_start < $3
ORDER BY period_start`,
		taxpayerID,
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SoftDeleteClosure marks a closure deleted, re-enabling closure of its
// period, and returns the deleted record so callers can invalidate the
// summary of the year it belonged to.
func (r *repository) SoftDeleteClosure(ctx context.Context, taxpayerID, id uuid.UUID) (Record, error) {
	row := r.db.QueryRow(ctx, `UPDATE period_closures SET deleted_at = now()
WHERE id = $1 AND taxpayer_id = $2 AND deleted_at IS NULL
RETURNING `+recordColumns, id, taxpayerID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrClosureNotFound
	}
	return rec, err
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.TaxpayerID, &rec.PeriodStart, &rec.PeriodEnd, &rec.PeriodLabel,
		&rec.SalesBase0, &rec.SalesBaseTaxed, &rec.SalesVAT,
		&rec.PurchasesBase0, &rec.PurchasesBaseTaxed, &rec.PurchasesVAT,
		&rec.CreditNotesVAT, &rec.VATCausado, &rec.CreditFavorFromAdquisition,
		&rec.VATWithheldCredit, &rec.IncomeTaxWithheld, &rec.CreditCarriedIn,
		&rec.VATPayable, &rec.CreditFavor, &rec.IncomeTaxPayable, &rec.TotalPayable,
		&rec.Warnings, &rec.Notes, &rec.CreatedAt, &rec.DeletedAt,
	)
	return rec, err
}
