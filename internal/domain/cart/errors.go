package cart

import "errors"

var (
	ErrLineNotFound   = errors.New("item is not in the cart")
	ErrNotPurchasable = errors.New("item is not available to you")
	ErrStore          = errors.New("cart store error")
)
