package budget

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrMissingPrice           = errors.New("item has no price")
	ErrInvalidAmount          = errors.New("amount must be greater than zero with at most 2 decimal places")
	ErrNotFound               = errors.New("referenced user or item not found")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrStoreUnavailable       = errors.New("store unavailable")

	ErrEmptyCart         = errors.New("cart is empty")
	ErrSelfTransfer      = errors.New("cannot transfer to the same account")
	ErrRequestNotPending = errors.New("money request is not pending")
	ErrUnexplainedDelta  = errors.New("balance or stock change without a ledger entry")
	ErrUnlockedResource  = errors.New("mutation touches a resource outside its lock scope")
	ErrInvalidKind       = errors.New("transfer kind must be money_given or transfer")
	ErrRateLimited       = errors.New("too many money requests, try again later")
)

// ErrInactiveUser is a PermissionDenied raised for deactivated accounts.
var ErrInactiveUser = fmt.Errorf("user is inactive: %w", ErrPermissionDenied)
