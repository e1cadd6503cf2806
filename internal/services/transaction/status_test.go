package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pinkpay/internal/models"
)

func TestCanTransition(t *testing.T) {
	all := []models.TransactionStatus{
		models.StatusPending,
		models.StatusProcessing,
		models.StatusCompleted,
		models.StatusFailed,
		models.StatusPendingReview,
		models.StatusRefunded,
		models.StatusPartiallyRefunded,
	}
	allowed := map[[2]models.TransactionStatus]bool{
		{models.StatusPending, models.StatusProcessing}:          true,
		{models.StatusProcessing, models.StatusCompleted}:        true,
		{models.StatusProcessing, models.StatusFailed}:           true,
		{models.StatusProcessing, models.StatusPendingReview}:    true,
		{models.StatusPendingReview, models.StatusCompleted}:     true,
		{models.StatusPendingReview, models.StatusFailed}:        true,
		{models.StatusCompleted, models.StatusRefunded}:          true,
		{models.StatusCompleted, models.StatusPartiallyRefunded}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]models.TransactionStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoExitExceptRefund(t *testing.T) {
	for _, s := range []models.TransactionStatus{models.StatusFailed, models.StatusRefunded, models.StatusPartiallyRefunded} {
		assert.Empty(t, NextStatuses(s), s)
	}
	assert.ElementsMatch(t,
		[]models.TransactionStatus{models.StatusRefunded, models.StatusPartiallyRefunded},
		NextStatuses(models.StatusCompleted))
}
