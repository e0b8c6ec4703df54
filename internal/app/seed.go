package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

const (
	SeedApplicantUserID      = "0e7d3f02-7f7a-4c1b-9a53-5d0f8a2c1e02"
	SeedUnitPropertyID       = "5a1c7e44-0b6d-4f3e-8d21-7c9e0b4a6f01"
	SeedRoomPropertyID       = "5a1c7e44-0b6d-4f3e-8d21-7c9e0b4a6f02"
	SeedRoomAID              = "9b2e4d10-3c7f-4a8e-b1d6-2f5a8c0e7d01"
	SeedRoomBID              = "9b2e4d10-3c7f-4a8e-b1d6-2f5a8c0e7d02"
	SeedRoomCID              = "9b2e4d10-3c7f-4a8e-b1d6-2f5a8c0e7d03"
	SeedWaitingApplicationID = "c4f8a2e6-1d3b-4e7a-9c05-8b6d2f4a1e01"
)

// SeedAllTestData creates demo users, listings and a pending application.
// It is idempotent: the sentinel user marks a completed seed.
func SeedAllTestData(ctx context.Context, store repositories.Store) error {
	sentinelID := uuid.MustParse(constants.SeedSentinelUserID)

	existing, err := store.Users().GetByID(ctx, sentinelID)
	if err != nil {
		return fmt.Errorf("failed to check for sentinel user: %w", err)
	}
	if existing != nil {
		utils.Logger.Info("rental-service: Seed data already present; skipping seeding.")
		return nil
	}

	err = store.InTx(ctx, func(tx repositories.Store) error {
		applicantID := uuid.MustParse(SeedApplicantUserID)
		users := []*models.User{
			{ID: applicantID, FirstName: "Nur", LastName: "Aisyah", Email: "aisyah.demo@easyrent.my", PhoneNumber: utils.Ptr("+60123450001")},
			{ID: sentinelID, FirstName: "Daniel", LastName: "Wong", Email: "daniel.demo@easyrent.my"},
		}
		for _, u := range users {
			if err := tx.Users().Create(ctx, u); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Email, err)
			}
		}

		unitID := uuid.MustParse(SeedUnitPropertyID)
		houseID := uuid.MustParse(SeedRoomPropertyID)
		properties := []*models.Property{
			{
				ID:            unitID,
				Name:          "Sunway Geo Residence A-12-3",
				Type:          models.PropertyTypeUnitRental,
				Address:       "Jalan Lagoon Selatan, Bandar Sunway, 47500 Subang Jaya",
				Description:   "Fully furnished two-bedroom unit next to the BRT line.",
				Price:         decimal.NewFromInt(2200),
				DepositAmount: decimal.NewFromInt(4400),
				IsAvailable:   true,
			},
			{
				ID:          houseID,
				Name:        "SS15 Shared House",
				Type:        models.PropertyTypeRoomRental,
				Address:     "Jalan SS 15/4, 47500 Subang Jaya",
				Description: "Terrace house with three rentable rooms.",
				Rooms: []models.Room{
					{ID: uuid.MustParse(SeedRoomAID), Name: "Master Room", Price: decimal.NewFromInt(850), DepositAmount: decimal.NewFromInt(1700)},
					{ID: uuid.MustParse(SeedRoomBID), Name: "Middle Room", Price: decimal.NewFromInt(650), DepositAmount: decimal.NewFromInt(1300)},
					{ID: uuid.MustParse(SeedRoomCID), Name: "Small Room", Price: decimal.NewFromInt(500), DepositAmount: decimal.NewFromInt(1000)},
				},
			},
		}
		for _, p := range properties {
			if err := tx.Properties().Create(ctx, p); err != nil {
				return fmt.Errorf("seed property %s: %w", p.Name, err)
			}
		}

		start := firstOfNextMonth(time.Now().UTC())
		roomID := uuid.MustParse(SeedRoomBID)
		app := &models.Application{
			ID:         uuid.MustParse(SeedWaitingApplicationID),
			UserID:     applicantID,
			PropertyID: houseID,
			RoomID:     &roomID,
			Status:     models.ApplicationStatusWaitingForResponse,
			StartDate:  start,
			StayLength: 6,
			EndDate:    models.ComputeEndDate(start, 6),
		}
		if err := tx.Applications().Create(ctx, app); err != nil {
			return fmt.Errorf("seed application: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.Logger.Info("rental-service: Seeding completed successfully.")
	return nil
}

func firstOfNextMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
