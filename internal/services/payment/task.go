package payment

import (
	"context"
	"errors"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/services/queue"
)

// TaskHandler runs Process for queued transactions. Errors that a retry
// cannot fix are marked permanent so the task is dead-lettered at once.
func TaskHandler(svc Service) queue.Handler {
	return func(ctx context.Context, task *queue.Task) error {
		txnID, _ := task.Payload["txn_id"].(string)
		if txnID == "" {
			return queue.Permanent(domainErrors.Validation("MISSING_TXN_ID", "task %s has no txn_id", task.ID))
		}

		_, err := svc.Process(ctx, txnID)
		if err == nil {
			return nil
		}
		if errors.Is(err, domainErrors.ErrValidation) ||
			errors.Is(err, domainErrors.ErrNotFound) ||
			errors.Is(err, domainErrors.ErrInvalidState) {
			return queue.Permanent(err)
		}
		return err
	}
}
