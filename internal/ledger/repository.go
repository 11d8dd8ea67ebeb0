package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed ledger reader.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

func (r *repository) FetchSales(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) ([]SalesRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, number, issue_date, base_0, base_8, base_15, vat
FROM sales_invoices
WHERE taxpayer_id = $1 AND issue_date BETWEEN $2 AND $3 AND deleted_at IS NULL
ORDER BY issue_date, id`, taxpayerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SalesRecord
	for rows.Next() {
		var rec SalesRecord
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.IssueDate, &rec.Base0, &rec.Base8, &rec.Base15, &rec.VAT); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *repository) FetchPurchases(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) ([]PurchaseRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, number, issue_date, base, vat
FROM purchase_invoices
WHERE taxpayer_id = $1 AND issue_date BETWEEN $2 AND $3 AND deleted_at IS NULL
ORDER BY issue_date, id`, taxpayerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PurchaseRecord
	for rows.Next() {
		var rec PurchaseRecord
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.IssueDate, &rec.Base, &rec.VAT); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *repository) FetchCreditNotes(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) ([]CreditNote, error) {
	rows, err := r.db.Query(ctx, `SELECT id, number, issue_date, vat
FROM credit_notes
WHERE taxpayer_id = $1 AND issue_date BETWEEN $2 AND $3 AND deleted_at IS NULL
ORDER BY issue_date, id`, taxpayerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CreditNote
	for rows.Next() {
		var rec CreditNote
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.IssueDate, &rec.VAT); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *repository) FetchWithholding(ctx context.Context, taxpayerID uuid.UUID, start, end time.Time) ([]WithholdingReceipt, error) {
	rows, err := r.db.Query(ctx, `SELECT id, number, issue_date, vat_withheld, income_tax_withheld
FROM withholding_receipts
WHERE taxpayer_id = $1 AND issue_date BETWEEN $2 AND $3 AND deleted_at IS NULL
ORDER BY issue_date, id`, taxpayerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []WithholdingReceipt
	for rows.Next() {
		var rec WithholdingReceipt
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.IssueDate, &rec.VATWithheld, &rec.IncomeTaxWithheld); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
