package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/maximillian1508/easyrent-backend/internal/models"
)

type SubmitApplicationRequest struct {
	PropertyID uuid.UUID  `json:"property_id" validate:"required"`
	RoomID     *uuid.UUID `json:"room_id,omitempty"`
	StartDate  *time.Time `json:"start_date" validate:"required"`
	StayLength int        `json:"stay_length" validate:"required,oneof=1 3 4 6 8 12"`
}

type DecisionRequest struct {
	Decision models.ApplicationStatus `json:"decision" validate:"required,oneof=Accepted Rejected"`
}

type DecisionResponse struct {
	Application *models.Application `json:"application"`
	Contract    *models.Contract    `json:"contract,omitempty"`
	Deposit     *models.Transaction `json:"deposit,omitempty"`
}

type EligibilityResponse struct {
	CanApply bool `json:"can_apply"`
}

type ActiveApplicationResponse struct {
	HasActiveApplication bool `json:"has_active_application"`
}
