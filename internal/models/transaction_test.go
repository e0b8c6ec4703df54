package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_OverdueRule(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	past := &Transaction{Status: TransactionStatusPending, DueDate: now.Add(-time.Hour)}
	future := &Transaction{Status: TransactionStatusPending, DueDate: now.Add(time.Hour)}
	paid := &Transaction{Status: TransactionStatusPaid, DueDate: now.Add(-time.Hour)}

	assert.True(t, past.IsOverdue(now))
	assert.False(t, future.IsOverdue(now))
	assert.False(t, paid.IsOverdue(now))

	past.ApplyOverdue(now)
	future.ApplyOverdue(now)
	paid.ApplyOverdue(now)
	assert.Equal(t, TransactionStatusOverdue, past.Status)
	assert.Equal(t, TransactionStatusPending, future.Status)
	assert.Equal(t, TransactionStatusPaid, paid.Status)
}

func TestTransaction_MarkPaid(t *testing.T) {
	at := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	tx := &Transaction{Status: TransactionStatusOverdue}

	assert.True(t, tx.Status.IsPayable())
	tx.MarkPaid("pi_123", at)

	assert.Equal(t, TransactionStatusPaid, tx.Status)
	assert.Equal(t, at, *tx.PaymentDate)
	assert.Equal(t, "pi_123", *tx.PaymentIntentID)
	assert.False(t, tx.Status.IsPayable())
}
