package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PropertyType string

const (
	PropertyTypeUnitRental PropertyType = "Unit Rental"
	PropertyTypeRoomRental PropertyType = "Room Rental"
)

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeUnitRental, PropertyTypeRoomRental:
		return true
	default:
		return false
	}
}

// Room is an independently rentable part of a RoomRental property.
type Room struct {
	ID            uuid.UUID       `json:"id"`
	PropertyID    uuid.UUID       `json:"property_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	Description   string          `json:"description,omitempty"`
	IsOccupied    bool            `json:"is_occupied"`
	OccupantID    *uuid.UUID      `json:"occupant,omitempty"`
}

// Property is the versioned aggregate root for its rooms: any change to
// occupancy, unit- or room-level, bumps the property's row version.
type Property struct {
	Versioned

	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Type            PropertyType    `json:"type"`
	Address         string          `json:"address"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	IsAvailable     bool            `json:"is_available"`
	CurrentTenantID *uuid.UUID      `json:"current_tenant,omitempty"`
	Rooms           []Room          `json:"rooms"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (p *Property) GetID() string { return p.ID.String() }

// FindRoom returns the property's room with the given id, or nil.
func (p *Property) FindRoom(roomID uuid.UUID) *Room {
	for i := range p.Rooms {
		if p.Rooms[i].ID == roomID {
			return &p.Rooms[i]
		}
	}
	return nil
}

func (p *Property) AvailableRooms() int {
	n := 0
	for _, r := range p.Rooms {
		if !r.IsOccupied {
			n++
		}
	}
	return n
}

func (p *Property) IsFullyOccupied() bool {
	if p.Type == PropertyTypeUnitRental {
		return !p.IsAvailable
	}
	return p.AvailableRooms() == 0
}

// Clone returns a deep copy, rooms included.
func (p *Property) Clone() *Property {
	cp := *p
	if p.CurrentTenantID != nil {
		id := *p.CurrentTenantID
		cp.CurrentTenantID = &id
	}
	cp.Rooms = make([]Room, len(p.Rooms))
	for i, r := range p.Rooms {
		if r.OccupantID != nil {
			id := *r.OccupantID
			r.OccupantID = &id
		}
		cp.Rooms[i] = r
	}
	return &cp
}
