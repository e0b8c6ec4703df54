package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

// DepositConfirmation is the state after a deposit has been applied.
type DepositConfirmation struct {
	Contract    *models.Contract
	Deposit     *models.Transaction
	Application *models.Application
	Property    *models.Property
	User        *models.User
}

type PaymentService struct {
	store   repositories.Store
	gateway PaymentGateway
	now     func() time.Time
}

func NewPaymentService(store repositories.Store, gateway PaymentGateway, now func() time.Time) *PaymentService {
	if now == nil {
		now = time.Now
	}
	return &PaymentService{store: store, gateway: gateway, now: now}
}

// ToMinorUnits converts a ringgit amount to sen, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreatePaymentIntent returns the intent a tenant should pay for the given
// transaction, creating one on first use.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, transactionID uuid.UUID) (*PaymentIntent, error) {
	txn, err := s.store.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, utils.NewNotFoundError("transaction %s not found", transactionID)
	}
	if !txn.Status.IsPayable() {
		return nil, utils.NewConflictError("transaction %s is %s", txn.ID, txn.Status)
	}

	if txn.PaymentIntentID != nil {
		return s.getIntent(ctx, *txn.PaymentIntentID)
	}

	metadata := map[string]string{
		"transaction_id": txn.ID.String(),
		"type":           string(txn.Type),
	}
	if txn.ContractID != nil {
		metadata["contract_id"] = txn.ContractID.String()
	}

	gwCtx, cancel := context.WithTimeout(ctx, constants.PaymentIntentTimeout)
	defer cancel()
	intent, err := s.gateway.CreateIntent(gwCtx, IntentRequest{
		Amount:         ToMinorUnits(txn.Amount),
		Currency:       constants.CurrencyCode,
		Metadata:       metadata,
		IdempotencyKey: "txn-" + txn.ID.String(),
	})
	if err != nil {
		return nil, utils.NewExternalServiceError(utils.CollaboratorPaymentGateway, err)
	}

	tag, err := s.store.Transactions().AttachPaymentIntent(ctx, txn.ID, intent.Reference)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Another request attached first; hand back whatever is stored.
		current, err := s.store.Transactions().GetByID(ctx, txn.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.PaymentIntentID != nil && *current.PaymentIntentID != intent.Reference {
			return s.getIntent(ctx, *current.PaymentIntentID)
		}
	}

	utils.Logger.WithFields(logrus.Fields{
		"transaction_id": txn.ID,
		"payment_intent": intent.Reference,
	}).Info("Payment intent attached")
	return intent, nil
}

func (s *PaymentService) getIntent(ctx context.Context, reference string) (*PaymentIntent, error) {
	gwCtx, cancel := context.WithTimeout(ctx, constants.PaymentIntentTimeout)
	defer cancel()
	intent, err := s.gateway.GetIntent(gwCtx, reference)
	if err != nil {
		return nil, utils.NewExternalServiceError(utils.CollaboratorPaymentGateway, err)
	}
	return intent, nil
}

// verify fails closed: anything but a confirmed success leaves state alone.
func (s *PaymentService) verify(ctx context.Context, reference string) error {
	if strings.TrimSpace(reference) == "" {
		return utils.NewValidationError("paymentReference is required")
	}

	gwCtx, cancel := context.WithTimeout(ctx, constants.PaymentVerificationTimeout)
	defer cancel()
	status, err := s.gateway.Verify(gwCtx, reference)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			utils.Logger.WithField("payment_intent", reference).Warn("Payment verification timed out")
		}
		return utils.NewExternalServiceError(utils.CollaboratorPaymentGateway, err)
	}
	if status != PaymentStatusSucceeded {
		return utils.NewPaymentNotSucceededError(reference, string(status))
	}
	return nil
}

// ConfirmDeposit activates a contract once its deposit payment succeeded.
// A replayed reference finds no payable deposit and returns NotFoundError.
func (s *PaymentService) ConfirmDeposit(ctx context.Context, paymentReference string, contractID uuid.UUID) (*DepositConfirmation, error) {
	if err := s.verify(ctx, paymentReference); err != nil {
		return nil, err
	}

	contract, err := s.store.Contracts().GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, utils.NewNotFoundError("contract %s not found", contractID)
	}

	now := s.now()
	lapsed := !contract.EndDate.After(now)
	out := &DepositConfirmation{}
	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.LockScope(ctx, models.ScopeKey(contract.PropertyID, contract.RoomID)); err != nil {
			return err
		}
		if err := tx.LockScope(ctx, userLockKey(contract.UserID)); err != nil {
			return err
		}

		deposit, err := tx.Transactions().MarkPaid(ctx, repositories.PaymentMatch{
			ContractID: &contract.ID,
			Type:       models.TransactionTypeDeposit,
			PaymentRef: paymentReference,
		}, now)
		if err != nil {
			return err
		}
		if deposit == nil {
			return utils.NewNotFoundError("no pending deposit for contract %s and payment %s", contract.ID, paymentReference)
		}
		out.Deposit = deposit

		// A lease that ran out before its deposit arrived is settled but
		// never activated, so it cannot block the tenant's next application.
		if !lapsed {
			if err := tx.Contracts().UpdateWithRetry(ctx, contract.ID, func(c *models.Contract) error {
				c.IsActive = true
				return nil
			}); err != nil {
				return err
			}
		}

		if err := tx.Applications().UpdateWithRetry(ctx, contract.ApplicationID, func(a *models.Application) error {
			if !a.Status.CanTransitionTo(models.ApplicationStatusCompleted) {
				return utils.NewConflictError("application %s is %s", a.ID, a.Status)
			}
			return a.Transition(models.ApplicationStatusCompleted)
		}); err != nil {
			return err
		}

		if lapsed {
			return nil
		}

		var rentalType models.RentalType
		if err := tx.Properties().UpdateWithRetry(ctx, contract.PropertyID, func(p *models.Property) error {
			var occErr error
			rentalType, occErr = occupy(p, contract)
			return occErr
		}); err != nil {
			return err
		}

		return tx.Users().UpdateWithRetry(ctx, contract.UserID, func(u *models.User) error {
			u.RentalType = rentalType
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	entry := utils.Logger.WithFields(logrus.Fields{
		"contract_id":    contract.ID,
		"payment_intent": paymentReference,
	})
	if lapsed {
		entry.WithField("end_date", contract.EndDate).Warn("Deposit confirmed after contract end, contract left inactive")
	} else {
		entry.Info("Deposit confirmed, contract active")
	}

	if out.Contract, err = s.store.Contracts().GetByID(ctx, contract.ID); err != nil {
		return nil, err
	}
	if out.Application, err = s.store.Applications().GetByID(ctx, contract.ApplicationID); err != nil {
		return nil, err
	}
	if out.Property, err = s.store.Properties().GetByID(ctx, contract.PropertyID); err != nil {
		return nil, err
	}
	if out.User, err = s.store.Users().GetByID(ctx, contract.UserID); err != nil {
		return nil, err
	}
	return out, nil
}

// occupy marks the contract's unit or room as taken by its tenant.
func occupy(p *models.Property, c *models.Contract) (models.RentalType, error) {
	tenant := c.UserID
	if c.RoomID == nil {
		if p.CurrentTenantID != nil && *p.CurrentTenantID != tenant {
			return "", utils.NewConflictError("property %s is occupied by another tenant", p.ID)
		}
		p.CurrentTenantID = &tenant
		p.IsAvailable = false
		return models.RentalTypeUnit, nil
	}

	room := p.FindRoom(*c.RoomID)
	if room == nil {
		return "", utils.NewInvariantError("room %s does not exist on property %s", *c.RoomID, p.ID)
	}
	if room.OccupantID != nil && *room.OccupantID != tenant {
		return "", utils.NewConflictError("room %s is occupied by another tenant", room.ID)
	}
	room.OccupantID = &tenant
	room.IsOccupied = true
	return models.RentalTypeRoom, nil
}

// ConfirmRentPayment settles a monthly rent charge. Replays return
// NotFoundError just like deposits.
func (s *PaymentService) ConfirmRentPayment(ctx context.Context, paymentReference string, transactionID uuid.UUID) (*models.Transaction, error) {
	if err := s.verify(ctx, paymentReference); err != nil {
		return nil, err
	}

	paid, err := s.store.Transactions().MarkPaid(ctx, repositories.PaymentMatch{
		TransactionID: &transactionID,
		Type:          models.TransactionTypeMonthlyRental,
		PaymentRef:    paymentReference,
	}, s.now())
	if err != nil {
		return nil, err
	}
	if paid == nil {
		return nil, utils.NewNotFoundError("no pending rent charge %s for payment %s", transactionID, paymentReference)
	}

	utils.Logger.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"payment_intent": paymentReference,
	}).Info("Rent payment confirmed")
	return paid, nil
}
