package transaction

import (
	"fmt"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

// InvalidTransitionError is returned when a status change is not allowed
// from the current status. It matches domainErrors.ErrInvalidState.
type InvalidTransitionError struct {
	TxnID string
	From  models.TransactionStatus
	To    models.TransactionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transaction %s: invalid transition %s -> %s", e.TxnID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == domainErrors.ErrInvalidState
}

// Code is used by the HTTP layer.
func (e *InvalidTransitionError) Code() string {
	return "INVALID_TRANSITION"
}
