package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationStatusWaitingForResponse ApplicationStatus = "Waiting for Response"
	ApplicationStatusAccepted           ApplicationStatus = "Accepted"
	ApplicationStatusRejected           ApplicationStatus = "Rejected"
	ApplicationStatusCompleted          ApplicationStatus = "Completed"
	ApplicationStatusCancelled          ApplicationStatus = "Cancelled"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusWaitingForResponse,
		ApplicationStatusAccepted,
		ApplicationStatusRejected,
		ApplicationStatusCompleted,
		ApplicationStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationStatusRejected, ApplicationStatusCancelled, ApplicationStatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes the application state machine:
//
//	Waiting for Response -> Accepted | Rejected | Cancelled
//	Accepted             -> Completed
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if !s.Valid() || !next.Valid() || s.IsTerminal() {
		return false
	}
	switch s {
	case ApplicationStatusWaitingForResponse:
		return next == ApplicationStatusAccepted || next == ApplicationStatusRejected || next == ApplicationStatusCancelled
	case ApplicationStatusAccepted:
		return next == ApplicationStatusCompleted
	default:
		return false
	}
}

// PermittedStayLengths is the menu of lease terms, in whole months.
var PermittedStayLengths = []int{1, 3, 4, 6, 8, 12}

func IsPermittedStayLength(months int) bool {
	for _, m := range PermittedStayLengths {
		if m == months {
			return true
		}
	}
	return false
}

type Application struct {
	Versioned

	ID                   uuid.UUID         `json:"id"`
	UserID               uuid.UUID         `json:"user"`
	PropertyID           uuid.UUID         `json:"property"`
	RoomID               *uuid.UUID        `json:"room_id,omitempty"`
	Status               ApplicationStatus `json:"status"`
	StartDate            time.Time         `json:"start_date"`
	StayLength           int               `json:"stay_length"`
	EndDate              time.Time         `json:"end_date"`
	ContractID           *uuid.UUID        `json:"contract,omitempty"`
	DepositTransactionID *uuid.UUID        `json:"deposit_transaction,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func (a *Application) GetID() string { return a.ID.String() }

func (a *Application) IsRoomScoped() bool { return a.RoomID != nil }

// Transition moves the application to next, refusing edges the state
// machine does not allow.
func (a *Application) Transition(next ApplicationStatus) error {
	if !a.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid application transition %q -> %q", a.Status, next)
	}
	a.Status = next
	return nil
}

// ScopeKey names the rentable unit an application competes for: the whole
// property for unit rentals, a single room for room rentals.
func ScopeKey(propertyID uuid.UUID, roomID *uuid.UUID) string {
	if roomID == nil {
		return "scope:property:" + propertyID.String()
	}
	return "scope:room:" + propertyID.String() + ":" + roomID.String()
}

// AddMonthsClamped adds n calendar months to t. When the day of month does
// not exist in the target month it clamps to that month's last day, so
// Jan 31 + 1 month is Feb 28 (or Feb 29 in a leap year).
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// ComputeEndDate is startDate + stayLength months, clamped.
func ComputeEndDate(startDate time.Time, stayLength int) time.Time {
	return AddMonthsClamped(startDate, stayLength)
}
