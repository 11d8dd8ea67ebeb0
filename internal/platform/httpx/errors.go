// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/tributo-erp/tributo-erp/internal/closure"
	"github.com/tributo-erp/tributo-erp/internal/ledger"
)

// ErrValidation marks malformed or incoherent request payloads.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain errors to RFC7807 responses. Each chain error gets
// its own title because the corrective action differs: wait for the period to
// elapse, close the prior period first, or retry once the store recovers.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, closure.ErrPeriodNotElapsed):
		Problem(w, http.StatusUnprocessableEntity, "Period Not Elapsed", err.Error())
	case errors.Is(err, closure.ErrDuplicatePeriod):
		Problem(w, http.StatusConflict, "Duplicate Period", err.Error())
	case errors.Is(err, closure.ErrPriorPeriodUnclosed):
		Problem(w, http.StatusConflict, "Prior Period Unclosed", err.Error())
	case errors.Is(err, closure.ErrClosureNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrDataUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Ledger Unavailable", "ledger store unavailable, retry later")
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
