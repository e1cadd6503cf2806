package transaction

import "pinkpay/internal/models"

var transitions = map[models.TransactionStatus][]models.TransactionStatus{
	models.StatusPending:       {models.StatusProcessing},
	models.StatusProcessing:    {models.StatusCompleted, models.StatusFailed, models.StatusPendingReview},
	models.StatusPendingReview: {models.StatusCompleted, models.StatusFailed},
	models.StatusCompleted:     {models.StatusRefunded, models.StatusPartiallyRefunded},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to models.TransactionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the legal successors of s.
func NextStatuses(s models.TransactionStatus) []models.TransactionStatus {
	return append([]models.TransactionStatus(nil), transitions[s]...)
}

func isTerminal(s models.TransactionStatus) bool {
	switch s {
	case models.StatusCompleted, models.StatusFailed, models.StatusRefunded, models.StatusPartiallyRefunded:
		return true
	}
	return false
}
