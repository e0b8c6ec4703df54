package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract is created once per accepted application. It stays inactive
// until the deposit is confirmed and goes inactive again once it ends.
type Contract struct {
	Versioned

	ID            uuid.UUID       `json:"id"`
	ApplicationID uuid.UUID       `json:"application"`
	UserID        uuid.UUID       `json:"user"`
	PropertyID    uuid.UUID       `json:"property"`
	RoomID        *uuid.UUID      `json:"room_id,omitempty"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	RentAmount    decimal.Decimal `json:"rent_amount"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	ContractFile  string          `json:"contract_file"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (c *Contract) GetID() string { return c.ID.String() }

// IsBillable reports whether a rent charge should be raised at now.
func (c *Contract) IsBillable(now time.Time) bool {
	return c.IsActive && c.EndDate.After(now)
}

// HasEnded reports whether an active contract is due for expiry at now.
func (c *Contract) HasEnded(now time.Time) bool {
	return c.IsActive && !c.EndDate.After(now)
}
