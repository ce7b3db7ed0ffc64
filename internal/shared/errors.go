package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates a request failed field validation.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the actor is not permitted to perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrEntryLocked indicates a mutation was attempted on a balance entry
	// that is referenced by a quotation. The caller must re-fetch state.
	ErrEntryLocked = errors.New("balance entry is locked")
	// ErrEmptyEntry indicates quotation creation was attempted for a balance
	// entry that has no items.
	ErrEmptyEntry = errors.New("balance entry has no items")
	// ErrGenerationExhausted indicates the document number generator ran out
	// of attempts. The whole operation must be retried later, not just the
	// code draw.
	ErrGenerationExhausted = errors.New("document number generation exhausted")
	// ErrQuotationClosed indicates a purchase order was attempted against a
	// closed quotation.
	ErrQuotationClosed = errors.New("quotation is closed")
)

// PartialLinkError reports a quotation that was created but whose entry links
// could not all be persisted. The quotation row is not rolled back; operators
// reconcile manually, so the failed selections must be listed.
type PartialLinkError struct {
	QuotationID     int64
	QuotationNumber string
	Failed          []string
	Cause           error
}

func (e *PartialLinkError) Error() string {
	return fmt.Sprintf("quotation %s created but %d link(s) failed (%s): %v",
		e.QuotationNumber, len(e.Failed), strings.Join(e.Failed, ", "), e.Cause)
}

func (e *PartialLinkError) Unwrap() error { return e.Cause }
