// Package closurehttp exposes the liquidation engine as a JSON API.
package closurehttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tributo-erp/tributo-erp/internal/closure"
	"github.com/tributo-erp/tributo-erp/internal/fiscal"
	"github.com/tributo-erp/tributo-erp/internal/ledger"
	"github.com/tributo-erp/tributo-erp/internal/liquidation"
	"github.com/tributo-erp/tributo-erp/internal/platform/httpx"
)

type closureService interface {
	Preview(ctx context.Context, in closure.CloseInput) (liquidation.Result, error)
	Close(ctx context.Context, in closure.CloseInput) (closure.Record, error)
	ListClosures(ctx context.Context, taxpayerID uuid.UUID) ([]closure.Record, error)
	SoftDelete(ctx context.Context, taxpayerID, id uuid.UUID) error
	YearSummary(ctx context.Context, taxpayerID uuid.UUID, year int) (closure.YearSummary, error)
}

// Handler wires HTTP endpoints for period liquidation.
type Handler struct {
	logger   *slog.Logger
	service  closureService
	validate *validator.Validate
}

// NewHandler constructs a closure HTTP handler.
func NewHandler(logger *slog.Logger, service closureService) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/taxpayers/{taxpayerID}/closures", func(r chi.Router) {
		r.Get("/", h.listClosures)
		r.Get("/summary", h.yearSummary)
		r.Post("/", h.closePeriod)
		r.Post("/preview", h.previewPeriod)
	})
	r.Delete("/taxpayers/{taxpayerID}/closures/{id}", h.softDelete)
}

type totalsPayload struct {
	Base0     decimal.Decimal `json:"base0"`
	BaseTaxed decimal.Decimal `json:"baseTaxed"`
	VAT       decimal.Decimal `json:"vatAmount"`
}

type manualEntryPayload struct {
	Sales       totalsPayload   `json:"sales"`
	Purchases   totalsPayload   `json:"purchases"`
	VATWithheld decimal.Decimal `json:"vatWithheld"`
	IncomeTaxWH decimal.Decimal `json:"incomeTaxWithheld"`
	CreditNotes decimal.Decimal `json:"creditNotesVat"`
}

type closeRequest struct {
	Kind             string              `json:"kind" validate:"required,oneof=monthly semiannual"`
	Year             int                 `json:"year" validate:"required,gte=2000,lte=2100"`
	Month            int                 `json:"month" validate:"omitempty,gte=1,lte=12"`
	Semester         int                 `json:"semester" validate:"omitempty,oneof=1 2"`
	IncomeTaxPayable decimal.Decimal     `json:"incomeTaxPayable"`
	Notes            string              `json:"notes" validate:"max=500"`
	Manual           *manualEntryPayload `json:"manual"`
}

func (req closeRequest) selection() (fiscal.Selection, error) {
	switch req.Kind {
	case "monthly":
		if req.Month == 0 {
			return fiscal.Selection{}, fmt.Errorf("%w: month required for monthly periods", httpx.ErrValidation)
		}
		return fiscal.Monthly(req.Year, time.Month(req.Month)), nil
	case "semiannual":
		if req.Semester == 0 {
			return fiscal.Selection{}, fmt.Errorf("%w: semester required for semiannual periods", httpx.ErrValidation)
		}
		return fiscal.Semiannual(req.Year, req.Semester), nil
	default:
		return fiscal.Selection{}, fmt.Errorf("%w: unknown period kind %q", httpx.ErrValidation, req.Kind)
	}
}

func (h *Handler) decodeCloseInput(r *http.Request) (closure.CloseInput, error) {
	taxpayerID, err := taxpayerParam(r)
	if err != nil {
		return closure.CloseInput{}, err
	}
	var req closeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return closure.CloseInput{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return closure.CloseInput{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	sel, err := req.selection()
	if err != nil {
		return closure.CloseInput{}, err
	}

	in := closure.CloseInput{
		TaxpayerID:       taxpayerID,
		Selection:        sel,
		IncomeTaxPayable: req.IncomeTaxPayable,
		Notes:            req.Notes,
	}
	if req.Manual != nil {
		in.Manual = &closure.ManualEntry{
			Sales: ledger.Totals{
				Base0:     req.Manual.Sales.Base0,
				BaseTaxed: req.Manual.Sales.BaseTaxed,
				VAT:       req.Manual.Sales.VAT,
			},
			Purchases: ledger.Totals{
				Base0:     req.Manual.Purchases.Base0,
				BaseTaxed: req.Manual.Purchases.BaseTaxed,
				VAT:       req.Manual.Purchases.VAT,
			},
			Withholding: ledger.WithholdingTotals{
				VATWithheld:       req.Manual.VATWithheld,
				IncomeTaxWithheld: req.Manual.IncomeTaxWH,
			},
			CreditNotes: ledger.CreditNoteTotals{VAT: req.Manual.CreditNotes},
		}
	}
	return in, nil
}

func (h *Handler) previewPeriod(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeCloseInput(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Preview(r.Context(), in)
	if err != nil {
		h.logError(r, "preview period", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, previewResponse(result))
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeCloseInput(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Close(r.Context(), in)
	if err != nil {
		h.logError(r, "close period", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) listClosures(w http.ResponseWriter, r *http.Request) {
	taxpayerID, err := taxpayerParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.ListClosures(r.Context(), taxpayerID)
	if err != nil {
		h.logError(r, "list closures", err)
		httpx.RespondError(w, err)
		return
	}
	if records == nil {
		records = []closure.Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) yearSummary(w http.ResponseWriter, r *http.Request) {
	taxpayerID, err := taxpayerParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		httpx.RespondError(w, fmt.Errorf("%w: year query parameter required", httpx.ErrValidation))
		return
	}
	summary, err := h.service.YearSummary(r.Context(), taxpayerID, year)
	if err != nil {
		h.logError(r, "year summary", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) softDelete(w http.ResponseWriter, r *http.Request) {
	taxpayerID, err := taxpayerParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid closure id", httpx.ErrValidation))
		return
	}
	if err := h.service.SoftDelete(r.Context(), taxpayerID, id); err != nil {
		h.logError(r, "soft delete closure", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	if h.logger != nil {
		h.logger.Warn(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}

func taxpayerParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "taxpayerID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid taxpayer id", httpx.ErrValidation)
	}
	return id, nil
}

// previewResponse flattens a result for rendering; monetary values are rounded
// here because previews never touch the store.
func previewResponse(res liquidation.Result) map[string]any {
	r2 := func(v decimal.Decimal) decimal.Decimal { return v.Round(2) }
	return map[string]any{
		"periodo": map[string]any{
			"id":      res.Period.ID,
			"label":   res.Period.Label,
			"start":   res.Period.StartDate.Format("2006-01-02"),
			"end":     res.Period.EndDate.Format("2006-01-02"),
			"dueDate": res.Period.DueDate.Format("2006-01-02"),
		},
		"calc": map[string]any{
			"vatCausado":             r2(res.Calc.VATCausado),
			"vatCreditFromPurchases": r2(res.Calc.VATCreditFromPurchases),
			"vatWithheldCredit":      r2(res.Calc.VATWithheldCredit),
			"vatPayable":             r2(res.Calc.VATPayable),
			"creditFavor":            r2(res.Calc.CreditFavor),
			"incomeTaxPayable":       r2(res.Calc.IncomeTaxPayable),
			"totalPayable":           r2(res.Calc.TotalPayable),
		},
		"adjustments": map[string]any{
			"creditCarriedIn":           r2(res.Adjustments.CreditCarriedIn),
			"creditAppliedFromCarry":    r2(res.Adjustments.CreditAppliedFromCarry),
			"creditRemainingCarry":      r2(res.Adjustments.CreditRemainingCarry),
			"creditGeneratedThisPeriod": r2(res.Adjustments.CreditGeneratedThisPeriod),
			"warnings":                  res.Adjustments.Warnings,
		},
	}
}
