package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maximillian1508/easyrent-backend/internal/models"
)

// AcceptanceNotice is everything the acceptance email needs.
type AcceptanceNotice struct {
	User          *models.User
	Property      *models.Property
	RoomName      string
	StartDate     time.Time
	EndDate       time.Time
	RentAmount    decimal.Decimal
	DepositAmount decimal.Decimal
}

// Notifier delivers tenant-facing messages. Callers never let its errors
// affect the outcome of a lifecycle transition.
type Notifier interface {
	SendAcceptance(ctx context.Context, n AcceptanceNotice) error
	SendRejection(ctx context.Context, user *models.User, property *models.Property) error
	SendPaymentReminder(ctx context.Context, user *models.User, amount decimal.Decimal, dueDate time.Time) error
}

// LeaseFields is the fixed field set rendered into a lease.
type LeaseFields struct {
	ApplicationID   uuid.UUID
	AgreementDate   time.Time
	LandlordName    string
	TenantName      string
	TenantEmail     string
	PropertyName    string
	PropertyAddress string
	// RoomName is empty for unit rentals.
	RoomName      string
	StayLength    int
	StartDate     time.Time
	EndDate       time.Time
	RentAmount    decimal.Decimal
	DepositAmount decimal.Decimal
}

func (f LeaseFields) IsRoomRental() bool { return f.RoomName != "" }

// DocumentGenerator renders a lease and returns a durable URL for it. A
// render for the same application must land on the same URL.
type DocumentGenerator interface {
	RenderLease(ctx context.Context, fields LeaseFields) (string, error)
}

// ObjectUploader stores rendered documents.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type IntentRequest struct {
	// Amount in minor units (sen).
	Amount         int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type PaymentIntent struct {
	Reference    string
	ClientSecret string
	Status       PaymentStatus
}

type PaymentGateway interface {
	Verify(ctx context.Context, reference string) (PaymentStatus, error)
	CreateIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error)
	GetIntent(ctx context.Context, reference string) (*PaymentIntent, error)
}

// Dispatcher runs notification jobs after the triggering transaction has
// committed.
type Dispatcher interface {
	Dispatch(kind string, job func(ctx context.Context) error)
}
