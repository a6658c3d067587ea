package item

import "errors"

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrNameRequired      = errors.New("item name is required")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPrice      = errors.New("price must be zero or greater with at most 2 decimal places")
	ErrPriceRequired     = errors.New("price is required for own items")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotAssignable     = errors.New("only catalog items can be assigned")
	ErrForbidden         = errors.New("item belongs to another user")
	ErrStore             = errors.New("item store failure")
)
