// Package faults defines the error taxonomy shared by the compliance,
// liquidity and secondary-market packages. Each error carries enough
// structure for the API layer to map it to a status code without string
// matching.
package faults

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed caller input: bad quantities,
// a disabled liquidity program, a malformed fee schedule.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IneligibleError reports a compliance or holding-period gate failure.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string {
	return "ineligible: " + e.Reason
}

// InsufficientReserveError reports that an offering's redemption reserve
// cannot cover a requested payout.
type InsufficientReserveError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientReserveError) Error() string {
	return fmt.Sprintf("insufficient reserve: requested %s, available %s",
		e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

// CapExceededError reports that an offering's monthly redemption cap has
// already been reached.
type CapExceededError struct {
	Cap       int
	Completed int
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("monthly redemption cap exceeded: %d of %d used", e.Completed, e.Cap)
}

// InvalidTransitionError reports an attempted lifecycle transition
// outside the allowed set. The attempted call fails with no mutation.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}
