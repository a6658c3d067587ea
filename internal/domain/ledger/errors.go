package ledger

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidEntry        = errors.New("invalid ledger entry")
	ErrNotPending          = errors.New("transaction is not a pending money request")
	ErrStore               = errors.New("ledger store failure")
)
