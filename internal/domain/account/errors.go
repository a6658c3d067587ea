package account

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNegativeBalance = errors.New("balance would become negative")
	ErrStore           = errors.New("account store failure")
)
