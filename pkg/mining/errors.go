package mining

import "errors"

var (
	// ErrInvalidParams is returned when Params fail validation.
	ErrInvalidParams = errors.New("invalid mining parameters")

	// ErrFrontierBudget is returned when the next level's frontier does not
	// fit in the memory budget.
	ErrFrontierBudget = errors.New("frontier exceeds memory budget")
)
