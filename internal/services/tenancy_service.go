package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

// DecisionResult is the aggregate returned by Decide. Contract and Deposit
// are only set for acceptances.
type DecisionResult struct {
	Application *models.Application
	Contract    *models.Contract
	Deposit     *models.Transaction
}

// TenancyService drives applications through Accepted/Rejected/Cancelled.
type TenancyService struct {
	store      repositories.Store
	documents  DocumentGenerator
	notifier   Notifier
	dispatcher Dispatcher
	now        func() time.Time
}

func NewTenancyService(
	store repositories.Store,
	documents DocumentGenerator,
	notifier Notifier,
	dispatcher Dispatcher,
	now func() time.Time,
) *TenancyService {
	if now == nil {
		now = time.Now
	}
	return &TenancyService{
		store:      store,
		documents:  documents,
		notifier:   notifier,
		dispatcher: dispatcher,
		now:        now,
	}
}

type leaseTerms struct {
	rent     decimal.Decimal
	deposit  decimal.Decimal
	roomName string
}

func resolveTerms(app *models.Application, property *models.Property) (leaseTerms, error) {
	if !app.IsRoomScoped() {
		return leaseTerms{rent: property.Price, deposit: property.DepositAmount}, nil
	}
	room := property.FindRoom(*app.RoomID)
	if room == nil {
		return leaseTerms{}, utils.NewInvariantError("room %s does not exist on property %s", *app.RoomID, property.ID)
	}
	return leaseTerms{rent: room.Price, deposit: room.DepositAmount, roomName: room.Name}, nil
}

// Decide applies a landlord decision to a WaitingForResponse application.
func (s *TenancyService) Decide(ctx context.Context, applicationID uuid.UUID, decision models.ApplicationStatus) (*DecisionResult, error) {
	switch decision {
	case models.ApplicationStatusAccepted:
		return s.accept(ctx, applicationID)
	case models.ApplicationStatusRejected:
		return s.reject(ctx, applicationID)
	default:
		return nil, utils.NewValidationError("decision must be %q or %q", models.ApplicationStatusAccepted, models.ApplicationStatusRejected)
	}
}

// loadWaiting returns the application with its user and property.
func (s *TenancyService) loadWaiting(ctx context.Context, applicationID uuid.UUID) (*models.Application, *models.User, *models.Property, error) {
	app, err := s.store.Applications().GetByID(ctx, applicationID)
	if err != nil {
		return nil, nil, nil, err
	}
	if app == nil {
		return nil, nil, nil, utils.NewNotFoundError("application %s not found", applicationID)
	}
	if app.Status != models.ApplicationStatusWaitingForResponse {
		return nil, nil, nil, utils.NewConflictError("application %s is %s", app.ID, app.Status)
	}

	user, err := s.store.Users().GetByID(ctx, app.UserID)
	if err != nil {
		return nil, nil, nil, err
	}
	if user == nil {
		return nil, nil, nil, utils.NewInvariantError("application %s references missing user %s", app.ID, app.UserID)
	}
	property, err := s.store.Properties().GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, nil, nil, err
	}
	if property == nil {
		return nil, nil, nil, utils.NewInvariantError("application %s references missing property %s", app.ID, app.PropertyID)
	}
	return app, user, property, nil
}

func (s *TenancyService) reject(ctx context.Context, applicationID uuid.UUID) (*DecisionResult, error) {
	app, user, property, err := s.loadWaiting(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	expected := app.RowVersion
	if err := app.Transition(models.ApplicationStatusRejected); err != nil {
		return nil, utils.NewConflictError("%v", err)
	}
	tag, err := s.store.Applications().UpdateIfVersion(ctx, app, expected)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != 1 {
		return nil, utils.NewConflictError("application %s changed concurrently", app.ID)
	}
	app.RowVersion = expected + 1

	utils.Logger.WithField("application_id", app.ID).Info("Application rejected")

	s.dispatcher.Dispatch("rejection", func(ctx context.Context) error {
		return s.notifier.SendRejection(ctx, user, property)
	})

	return &DecisionResult{Application: app}, nil
}

func (s *TenancyService) accept(ctx context.Context, applicationID uuid.UUID) (*DecisionResult, error) {
	app, user, property, err := s.loadWaiting(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	terms, err := resolveTerms(app, property)
	if err != nil {
		return nil, err
	}

	// The lease is rendered before any lock is taken. Its location is keyed
	// by the application, so a retried decision overwrites the same object.
	contractFile, err := s.renderLease(ctx, app, user, property, terms)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &DecisionResult{}
	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.LockScope(ctx, models.ScopeKey(app.PropertyID, app.RoomID)); err != nil {
			return err
		}
		if err := tx.LockScope(ctx, userLockKey(app.UserID)); err != nil {
			return err
		}

		cur, err := tx.Applications().GetByID(ctx, app.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return utils.NewNotFoundError("application %s not found", app.ID)
		}
		if cur.RowVersion != app.RowVersion || cur.Status != models.ApplicationStatusWaitingForResponse {
			return utils.NewConflictError("application %s was decided concurrently (now %s)", cur.ID, cur.Status)
		}

		if err := ensureScopeFree(ctx, tx, cur); err != nil {
			return err
		}
		ok, err := canApply(ctx, tx, cur.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewConflictError("user %s already holds a tenancy", cur.UserID)
		}

		version := cur.RowVersion
		if err := cur.Transition(models.ApplicationStatusAccepted); err != nil {
			return utils.NewConflictError("%v", err)
		}
		if err := casApplication(ctx, tx, cur, version); err != nil {
			return err
		}

		// Siblings for the same rental and the applicant's other pending
		// applications lose before the contract exists.
		inScope, err := tx.Applications().RejectWaitingInScope(ctx, cur.PropertyID, cur.RoomID, cur.ID)
		if err != nil {
			return err
		}
		byUser, err := tx.Applications().RejectWaitingForUser(ctx, cur.UserID, cur.ID)
		if err != nil {
			return err
		}

		contract := &models.Contract{
			ID:            uuid.New(),
			ApplicationID: cur.ID,
			UserID:        cur.UserID,
			PropertyID:    cur.PropertyID,
			RoomID:        cur.RoomID,
			StartDate:     cur.StartDate,
			EndDate:       cur.EndDate,
			RentAmount:    terms.rent,
			DepositAmount: terms.deposit,
			ContractFile:  contractFile,
			IsActive:      false,
		}
		if err := tx.Contracts().Create(ctx, contract); err != nil {
			return err
		}

		deposit := &models.Transaction{
			ID:            uuid.New(),
			UserID:        cur.UserID,
			PropertyID:    cur.PropertyID,
			RoomID:        cur.RoomID,
			ApplicationID: &cur.ID,
			ContractID:    &contract.ID,
			Type:          models.TransactionTypeDeposit,
			Amount:        terms.deposit,
			Status:        models.TransactionStatusPending,
			DueDate:       cur.StartDate,
		}
		if err := tx.Transactions().Create(ctx, deposit); err != nil {
			return err
		}

		cur.ContractID = &contract.ID
		cur.DepositTransactionID = &deposit.ID
		if err := casApplication(ctx, tx, cur, version+1); err != nil {
			return err
		}

		utils.Logger.WithFields(logrus.Fields{
			"application_id":    cur.ID,
			"contract_id":       contract.ID,
			"deposit_id":        deposit.ID,
			"rejected_in_scope": inScope,
			"rejected_for_user": byUser,
			"decided_at":        now,
		}).Info("Application accepted")

		result.Application = cur
		result.Contract = contract
		result.Deposit = deposit
		return nil
	})
	if err != nil {
		return nil, err
	}

	notice := AcceptanceNotice{
		User:          user,
		Property:      property,
		RoomName:      terms.roomName,
		StartDate:     app.StartDate,
		EndDate:       app.EndDate,
		RentAmount:    terms.rent,
		DepositAmount: terms.deposit,
	}
	s.dispatcher.Dispatch("acceptance", func(ctx context.Context) error {
		return s.notifier.SendAcceptance(ctx, notice)
	})

	return s.reload(ctx, result)
}

func (s *TenancyService) renderLease(
	ctx context.Context,
	app *models.Application,
	user *models.User,
	property *models.Property,
	terms leaseTerms,
) (string, error) {
	docCtx, cancel := context.WithTimeout(ctx, constants.DocumentGenerationTimeout)
	defer cancel()

	url, err := s.documents.RenderLease(docCtx, LeaseFields{
		ApplicationID:   app.ID,
		AgreementDate:   s.now(),
		LandlordName:    constants.LandlordName,
		TenantName:      user.FullName(),
		TenantEmail:     user.Email,
		PropertyName:    property.Name,
		PropertyAddress: property.Address,
		RoomName:        terms.roomName,
		StayLength:      app.StayLength,
		StartDate:       app.StartDate,
		EndDate:         app.EndDate,
		RentAmount:      terms.rent,
		DepositAmount:   terms.deposit,
	})
	if err != nil {
		utils.Logger.WithError(err).WithField("application_id", app.ID).Error("Lease generation failed")
		return "", utils.NewDocumentGenerationError(err)
	}
	return url, nil
}

// ensureScopeFree rejects an acceptance when the unit/room is already
// occupied or promised to another accepted application.
func ensureScopeFree(ctx context.Context, tx repositories.Store, app *models.Application) error {
	property, err := tx.Properties().GetByID(ctx, app.PropertyID)
	if err != nil {
		return err
	}
	if property == nil {
		return utils.NewInvariantError("property %s not found", app.PropertyID)
	}
	if !app.IsRoomScoped() {
		if property.IsFullyOccupied() || property.CurrentTenantID != nil {
			return utils.NewConflictError("property %s is already occupied", property.ID)
		}
	} else {
		room := property.FindRoom(*app.RoomID)
		if room == nil {
			return utils.NewInvariantError("room %s does not exist on property %s", *app.RoomID, property.ID)
		}
		if room.IsOccupied || room.OccupantID != nil {
			return utils.NewConflictError("room %s is already occupied", room.ID)
		}
	}

	taken, err := tx.Applications().HasAcceptedInScope(ctx, app.PropertyID, app.RoomID, app.ID)
	if err != nil {
		return err
	}
	if taken {
		return utils.NewConflictError("another application was already accepted for this rental")
	}
	return nil
}

func casApplication(ctx context.Context, tx repositories.Store, app *models.Application, expected int64) error {
	tag, err := tx.Applications().UpdateIfVersion(ctx, app, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return utils.NewConflictError("application %s changed concurrently", app.ID)
	}
	app.RowVersion = expected + 1
	return nil
}

func (s *TenancyService) reload(ctx context.Context, r *DecisionResult) (*DecisionResult, error) {
	app, err := s.store.Applications().GetByID(ctx, r.Application.ID)
	if err != nil {
		return nil, err
	}
	contract, err := s.store.Contracts().GetByID(ctx, r.Contract.ID)
	if err != nil {
		return nil, err
	}
	deposit, err := s.store.Transactions().GetByID(ctx, r.Deposit.ID)
	if err != nil {
		return nil, err
	}
	return &DecisionResult{Application: app, Contract: contract, Deposit: deposit}, nil
}

// Cancel withdraws a WaitingForResponse application on the applicant's behalf.
func (s *TenancyService) Cancel(ctx context.Context, applicationID, userID uuid.UUID) (*models.Application, error) {
	app, err := s.store.Applications().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, utils.NewNotFoundError("application %s not found", applicationID)
	}
	if app.UserID != userID {
		return nil, utils.NewValidationError("only the applicant can cancel application %s", applicationID)
	}

	err = s.store.Applications().UpdateWithRetry(ctx, applicationID, func(cur *models.Application) error {
		if cur.Status != models.ApplicationStatusWaitingForResponse {
			return utils.NewConflictError("application %s is %s", cur.ID, cur.Status)
		}
		return cur.Transition(models.ApplicationStatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.WithField("application_id", applicationID).Info("Application cancelled")
	return s.store.Applications().GetByID(ctx, applicationID)
}
