package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeMonthlyRental TransactionType = "Monthly Rental"
	TransactionTypeDeposit       TransactionType = "Deposit"
	TransactionTypeOtherFees     TransactionType = "Other Fees"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusPaid      TransactionStatus = "Paid"
	TransactionStatusOverdue   TransactionStatus = "Overdue"
	TransactionStatusCancelled TransactionStatus = "Cancelled"
)

func (s TransactionStatus) IsPayable() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusOverdue:
		return true
	case TransactionStatusPaid, TransactionStatusCancelled:
		return false
	default:
		return false
	}
}

type Transaction struct {
	Versioned

	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user"`
	PropertyID      uuid.UUID         `json:"property"`
	RoomID          *uuid.UUID        `json:"room_id,omitempty"`
	ApplicationID   *uuid.UUID        `json:"application,omitempty"`
	ContractID      *uuid.UUID        `json:"contract,omitempty"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	Status          TransactionStatus `json:"status"`
	DueDate         time.Time         `json:"due_date"`
	PaymentDate     *time.Time        `json:"payment_date,omitempty"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (t *Transaction) GetID() string { return t.ID.String() }

// IsOverdue is the derived rule: a Pending charge past its due date.
func (t *Transaction) IsOverdue(now time.Time) bool {
	return t.Status == TransactionStatusPending && t.DueDate.Before(now)
}

// ApplyOverdue persists the derived rule on the next write.
func (t *Transaction) ApplyOverdue(now time.Time) {
	if t.IsOverdue(now) {
		t.Status = TransactionStatusOverdue
	}
}

// MarkPaid settles the transaction.
func (t *Transaction) MarkPaid(paymentRef string, at time.Time) {
	t.Status = TransactionStatusPaid
	t.PaymentDate = &at
	t.PaymentIntentID = &paymentRef
}
