package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

type SubmitApplicationInput struct {
	UserID     uuid.UUID
	PropertyID uuid.UUID
	RoomID     *uuid.UUID
	StartDate  *time.Time
	StayLength int
}

type ApplicationService struct {
	store repositories.Store
	now   func() time.Time
}

func NewApplicationService(store repositories.Store, now func() time.Time) *ApplicationService {
	if now == nil {
		now = time.Now
	}
	return &ApplicationService{store: store, now: now}
}

// Submit records a new WaitingForResponse application.
func (s *ApplicationService) Submit(ctx context.Context, in SubmitApplicationInput) (*models.Application, error) {
	if in.StartDate == nil || in.StartDate.IsZero() {
		return nil, utils.NewValidationError("startDate is required")
	}
	if !models.IsPermittedStayLength(in.StayLength) {
		return nil, utils.NewValidationError("stayLength %d is not one of %v", in.StayLength, models.PermittedStayLengths)
	}
	if in.StartDate.Before(startOfDay(s.now())) {
		return nil, utils.NewValidationError("startDate %s is in the past", in.StartDate.Format(time.DateOnly))
	}

	property, err := s.store.Properties().GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, utils.NewNotFoundError("property %s not found", in.PropertyID)
	}
	switch property.Type {
	case models.PropertyTypeRoomRental:
		if in.RoomID == nil {
			return nil, utils.NewValidationError("roomId is required for a room rental")
		}
		room := property.FindRoom(*in.RoomID)
		if room == nil {
			return nil, utils.NewNotFoundError("room %s not found on property %s", *in.RoomID, property.ID)
		}
		if room.IsOccupied {
			return nil, utils.NewConflictError("room %s is occupied", room.ID)
		}
	case models.PropertyTypeUnitRental:
		if in.RoomID != nil {
			return nil, utils.NewValidationError("roomId must be empty for a unit rental")
		}
		if property.IsFullyOccupied() || property.CurrentTenantID != nil {
			return nil, utils.NewConflictError("property %s is not available", property.ID)
		}
	default:
		return nil, utils.NewInvariantError("property %s has unknown type %q", property.ID, property.Type)
	}

	app := &models.Application{
		ID:         uuid.New(),
		UserID:     in.UserID,
		PropertyID: in.PropertyID,
		RoomID:     in.RoomID,
		Status:     models.ApplicationStatusWaitingForResponse,
		StartDate:  *in.StartDate,
		StayLength: in.StayLength,
		EndDate:    models.ComputeEndDate(*in.StartDate, in.StayLength),
	}

	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.LockScope(ctx, userLockKey(in.UserID)); err != nil {
			return err
		}

		user, err := tx.Users().GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return utils.NewNotFoundError("user %s not found", in.UserID)
		}

		ok, err := canApply(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewConflictError("user %s already holds a tenancy", in.UserID)
		}

		dup, err := tx.Applications().HasWaitingInScope(ctx, in.UserID, in.PropertyID, in.RoomID)
		if err != nil {
			return err
		}
		if dup {
			return utils.NewConflictError("user %s already has a pending application for this rental", in.UserID)
		}

		return tx.Applications().Create(ctx, app)
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"application_id": app.ID,
		"user_id":        app.UserID,
		"property_id":    app.PropertyID,
	}).Info("Application submitted")

	return s.store.Applications().GetByID(ctx, app.ID)
}

// CanApply is true iff the user holds no active contract and no Accepted
// application.
func (s *ApplicationService) CanApply(ctx context.Context, userID uuid.UUID) (bool, error) {
	return canApply(ctx, s.store, userID)
}

// HasActiveApplication is true iff the user has a WaitingForResponse
// application for the given property/room scope.
func (s *ApplicationService) HasActiveApplication(ctx context.Context, userID, propertyID uuid.UUID, roomID *uuid.UUID) (bool, error) {
	return s.store.Applications().HasWaitingInScope(ctx, userID, propertyID, roomID)
}

func canApply(ctx context.Context, st repositories.Store, userID uuid.UUID) (bool, error) {
	active, err := st.Contracts().HasActiveForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if active {
		return false, nil
	}
	accepted, err := st.Applications().HasAcceptedForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return !accepted, nil
}

func userLockKey(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// startOfDay truncates t to midnight in its own location, so a start date
// of today is still accepted.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
