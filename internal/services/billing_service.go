package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

type ContractFailure struct {
	ContractID uuid.UUID
	Err        error
}

// BillingReport summarises one GenerateMonthlyCharges run.
type BillingReport struct {
	Considered           int
	Charged              int
	Charges              []*models.Transaction
	ChargeFailures       []ContractFailure
	NotificationFailures []ContractFailure
}

type BillingService struct {
	store       repositories.Store
	notifier    Notifier
	concurrency int
	now         func() time.Time
}

func NewBillingService(store repositories.Store, notifier Notifier, now func() time.Time) *BillingService {
	if now == nil {
		now = time.Now
	}
	return &BillingService{
		store:       store,
		notifier:    notifier,
		concurrency: constants.BillingConcurrency,
		now:         now,
	}
}

// GenerateMonthlyCharges raises one Pending MonthlyRental charge per billable
// contract and reminds its tenant. Failures are isolated per contract.
func (s *BillingService) GenerateMonthlyCharges(ctx context.Context) (*BillingReport, error) {
	now := s.now()
	contracts, err := s.store.Contracts().ListBillable(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &BillingReport{Considered: len(contracts)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, c := range contracts {
		g.Go(func() error {
			charge, err := s.chargeContract(ctx, c, now)
			if err != nil {
				utils.Logger.WithError(err).WithField("contract_id", c.ID).Error("Failed to create monthly charge")
				mu.Lock()
				report.ChargeFailures = append(report.ChargeFailures, ContractFailure{ContractID: c.ID, Err: err})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			report.Charged++
			report.Charges = append(report.Charges, charge)
			mu.Unlock()

			if err := s.remind(ctx, charge); err != nil {
				utils.Logger.WithError(err).WithField("contract_id", c.ID).Warn("Payment reminder failed")
				mu.Lock()
				report.NotificationFailures = append(report.NotificationFailures, ContractFailure{ContractID: c.ID, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	utils.Logger.WithFields(logrus.Fields{
		"considered":            report.Considered,
		"charged":               report.Charged,
		"charge_failures":       len(report.ChargeFailures),
		"notification_failures": len(report.NotificationFailures),
	}).Info("Monthly charges generated")
	return report, nil
}

func (s *BillingService) chargeContract(ctx context.Context, c *models.Contract, now time.Time) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	charge := &models.Transaction{
		ID:         uuid.New(),
		UserID:     c.UserID,
		PropertyID: c.PropertyID,
		RoomID:     c.RoomID,
		ContractID: &c.ID,
		Type:       models.TransactionTypeMonthlyRental,
		Amount:     c.RentAmount,
		Status:     models.TransactionStatusPending,
		DueDate:    now.Add(constants.RentGracePeriod),
	}
	if err := s.store.Transactions().Create(ctx, charge); err != nil {
		return nil, err
	}
	return charge, nil
}

func (s *BillingService) remind(ctx context.Context, charge *models.Transaction) error {
	user, err := s.store.Users().GetByID(ctx, charge.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return utils.NewNotFoundError("user %s not found", charge.UserID)
	}

	nCtx, cancel := context.WithTimeout(ctx, constants.NotificationTimeout)
	defer cancel()
	if err := s.notifier.SendPaymentReminder(nCtx, user, charge.Amount, charge.DueDate); err != nil {
		return utils.NewExternalServiceError(utils.CollaboratorNotifier, err)
	}
	return nil
}

// ExpireContracts deactivates every active contract whose end date has
// passed and returns how many were flipped.
func (s *BillingService) ExpireContracts(ctx context.Context) (int64, error) {
	n, err := s.store.Contracts().ExpireEnded(ctx, s.now())
	if err != nil {
		return 0, err
	}
	utils.Logger.WithField("expired", n).Info("Contracts expired")
	return n, nil
}

// MarkOverdueTransactions persists the overdue rule for every late Pending
// transaction.
func (s *BillingService) MarkOverdueTransactions(ctx context.Context) (int64, error) {
	n, err := s.store.Transactions().MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	utils.Logger.WithField("overdue", n).Info("Transactions marked overdue")
	return n, nil
}
