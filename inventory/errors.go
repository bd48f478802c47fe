package inventory

import "errors"

var (
	ErrMaterialNotFound     = errors.New("material not found")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyReturned  = errors.New("loan already returned")
	ErrInsufficientQuantity = errors.New("not enough units available")
	ErrMaterialUnavailable  = errors.New("material is lost or in maintenance")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidDate          = errors.New("date must be YYYY-MM-DD")
)
