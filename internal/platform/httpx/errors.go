// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/salesops-erp/salesops-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. A
// partial link failure is reported with its own title and the list of
// failed selections so operators can reconcile the orphaned quotation.
func RespondError(w http.ResponseWriter, err error) {
	var partial *shared.PartialLinkError
	if errors.As(err, &partial) {
		JSON(w, http.StatusInternalServerError, struct {
			ProblemDetail
			QuotationID     int64    `json:"quotation_id"`
			QuotationNumber string   `json:"quotation_number"`
			Failed          []string `json:"failed_selections"`
		}{
			ProblemDetail: ProblemDetail{
				Title:  "Partial Link Failure",
				Status: http.StatusInternalServerError,
				Detail: partial.Error(),
			},
			QuotationID:     partial.QuotationID,
			QuotationNumber: partial.QuotationNumber,
			Failed:          partial.Failed,
		})
		return
	}

	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrEntryLocked):
		Problem(w, http.StatusConflict, "Entry Locked", err.Error())
	case errors.Is(err, shared.ErrQuotationClosed):
		Problem(w, http.StatusConflict, "Quotation Closed", err.Error())
	case errors.Is(err, shared.ErrEmptyEntry):
		Problem(w, http.StatusUnprocessableEntity, "Empty Entry", err.Error())
	case errors.Is(err, shared.ErrGenerationExhausted):
		Problem(w, http.StatusServiceUnavailable, "Generation Exhausted", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
