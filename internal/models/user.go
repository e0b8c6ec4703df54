package models

import (
	"time"

	"github.com/google/uuid"
)

type RentalType string

const (
	RentalTypeNone RentalType = ""
	RentalTypeUnit RentalType = "unit"
	RentalTypeRoom RentalType = "room"
)

type User struct {
	Versioned

	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"firstname"`
	LastName    string     `json:"lastname"`
	Email       string     `json:"email"`
	PhoneNumber *string    `json:"phone,omitempty"`
	RentalType  RentalType `json:"rental_type,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) GetID() string { return u.ID.String() }

// FullName is what goes on the lease.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
