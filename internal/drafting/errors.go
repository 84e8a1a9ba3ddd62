package drafting

import (
	"errors"
	"fmt"

	"invoiceai/pkg/models"
)

var (
	// ErrUnknownStatus is returned for a status outside the closed enum.
	ErrUnknownStatus = errors.New("unknown draft status")

	// ErrPromotionReserved is returned when a caller asks for COMPLETE on a
	// draft still IN_PROGRESS.
	ErrPromotionReserved = errors.New("only the completeness check marks a draft COMPLETE")

	// ErrNoLineItems is returned when totals are requested for an empty invoice.
	ErrNoLineItems = errors.New("at least one line item is required")

	// ErrInvalidLineItem is returned for a quantity below 1 or a negative rate.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrNegativeTaxRate is returned when the tax rate is below zero.
	ErrNegativeTaxRate = errors.New("tax rate must not be negative")
)

// TransitionError reports a status change the lifecycle does not permit.
type TransitionError struct {
	From models.DraftStatus
	To   models.DraftStatus
	Err  error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move draft from %s to %s", e.From, e.To)
}

// Unwrap returns the underlying state machine error.
func (e *TransitionError) Unwrap() error {
	return e.Err
}
