package core

import "errors"

// Errors returned by the matching engine. The taxonomy is intentionally
// small: invalid input is rejected without mutating state, and "not found"
// is modeled as a bool return rather than an error (see CancelOrder,
// ModifyOrder).
var (
	ErrInvalidQuantity = errors.New("core: quantity must be greater than zero")
	ErrInvalidSide     = errors.New("core: unrecognized order side")
)
