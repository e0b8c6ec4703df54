package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

var fixedNow = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func waitingApp(userID, propertyID uuid.UUID, roomID *uuid.UUID) *models.Application {
	return &models.Application{
		ID:         uuid.New(),
		UserID:     userID,
		PropertyID: propertyID,
		RoomID:     roomID,
		Status:     models.ApplicationStatusWaitingForResponse,
		StartDate:  fixedNow,
		StayLength: 3,
		EndDate:    models.ComputeEndDate(fixedNow, 3),
	}
}

func TestInTx_RollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	u := &models.User{ID: uuid.New(), FirstName: "Ali"}
	require.NoError(t, s.Users().Create(ctx, u))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repositories.Store) error {
		require.NoError(t, tx.LockScope(ctx, "user:"+u.ID.String()))
		require.NoError(t, tx.Users().UpdateWithRetry(ctx, u.ID, func(cur *models.User) error {
			cur.RentalType = models.RentalTypeUnit
			return nil
		}))
		require.NoError(t, tx.Users().Create(ctx, &models.User{ID: uuid.New()}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RentalTypeNone, got.RentalType)
	assert.Equal(t, int64(1), got.RowVersion)
	assert.Len(t, s.data.users, 1)
}

func TestInTx_CommitAndNested(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	id := uuid.New()

	err := s.InTx(ctx, func(tx repositories.Store) error {
		return tx.InTx(ctx, func(inner repositories.Store) error {
			return inner.Users().Create(ctx, &models.User{ID: id})
		})
	})
	require.NoError(t, err)

	got, err := s.Users().GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestLockScope_RequiresTransaction(t *testing.T) {
	s := newTestStore()
	assert.ErrorIs(t, s.LockScope(context.Background(), "x"), repositories.ErrLockOutsideTx)
}

func TestGetByID_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	p := &models.Property{
		ID:    uuid.New(),
		Type:  models.PropertyTypeRoomRental,
		Rooms: []models.Room{{ID: uuid.New(), Name: "R1"}},
	}
	require.NoError(t, s.Properties().Create(ctx, p))

	got, err := s.Properties().GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Rooms[0].IsOccupied = true

	again, err := s.Properties().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, again.Rooms[0].IsOccupied)
	assert.Equal(t, p.ID, again.Rooms[0].PropertyID)

	missing, err := s.Properties().GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateIfVersion_StaleVersionAffectsNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	c := &models.Contract{ID: uuid.New(), ApplicationID: uuid.New(), UserID: uuid.New()}
	require.NoError(t, s.Contracts().Create(ctx, c))

	c.IsActive = true
	tag, err := s.Contracts().UpdateIfVersion(ctx, c, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tag.RowsAffected())

	tag, err = s.Contracts().UpdateIfVersion(ctx, c, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tag.RowsAffected())

	got, _ := s.Contracts().GetByID(ctx, c.ID)
	assert.Equal(t, int64(2), got.RowVersion)
}

func TestContractCreate_OnePerApplication(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	appID := uuid.New()

	require.NoError(t, s.Contracts().Create(ctx, &models.Contract{ID: uuid.New(), ApplicationID: appID}))
	assert.Error(t, s.Contracts().Create(ctx, &models.Contract{ID: uuid.New(), ApplicationID: appID}))
}

func TestRejectWaiting_ScopeAndUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	propertyID := uuid.New()
	roomA, roomB := uuid.New(), uuid.New()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	accepted := waitingApp(alice, propertyID, &roomA)
	sameRoom := waitingApp(bob, propertyID, &roomA)
	otherRoom := waitingApp(carol, propertyID, &roomB)
	aliceElsewhere := waitingApp(alice, uuid.New(), nil)
	for _, a := range []*models.Application{accepted, sameRoom, otherRoom, aliceElsewhere} {
		require.NoError(t, s.Applications().Create(ctx, a))
	}

	n, err := s.Applications().RejectWaitingInScope(ctx, propertyID, &roomA, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Applications().RejectWaitingForUser(ctx, alice, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	status := func(id uuid.UUID) models.ApplicationStatus {
		a, err := s.Applications().GetByID(ctx, id)
		require.NoError(t, err)
		return a.Status
	}
	assert.Equal(t, models.ApplicationStatusWaitingForResponse, status(accepted.ID))
	assert.Equal(t, models.ApplicationStatusRejected, status(sameRoom.ID))
	assert.Equal(t, models.ApplicationStatusWaitingForResponse, status(otherRoom.ID))
	assert.Equal(t, models.ApplicationStatusRejected, status(aliceElsewhere.ID))

	has, err := s.Applications().HasWaitingInScope(ctx, carol, propertyID, &roomB)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = s.Applications().HasWaitingInScope(ctx, carol, propertyID, nil)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMarkPaid_OnlyOnceAndOnlyMatchingReference(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	contractID := uuid.New()
	ref := "pi_abc"
	deposit := &models.Transaction{
		ID:              uuid.New(),
		ContractID:      &contractID,
		Type:            models.TransactionTypeDeposit,
		Amount:          decimal.NewFromInt(1200),
		Status:          models.TransactionStatusOverdue,
		DueDate:         fixedNow.AddDate(0, 0, -1),
		PaymentIntentID: &ref,
	}
	require.NoError(t, s.Transactions().Create(ctx, deposit))

	m := repositories.PaymentMatch{ContractID: &contractID, Type: models.TransactionTypeDeposit, PaymentRef: "pi_other"}
	got, err := s.Transactions().MarkPaid(ctx, m, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, got)

	m.PaymentRef = ref
	got, err = s.Transactions().MarkPaid(ctx, m, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.TransactionStatusPaid, got.Status)
	assert.Equal(t, fixedNow, *got.PaymentDate)
	require.NotNil(t, got.PaymentIntentID)
	assert.Equal(t, ref, *got.PaymentIntentID)

	got, err = s.Transactions().MarkPaid(ctx, m, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAttachPaymentIntent_OnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	tx := &models.Transaction{ID: uuid.New(), Status: models.TransactionStatusPending, DueDate: fixedNow}
	require.NoError(t, s.Transactions().Create(ctx, tx))

	tag, err := s.Transactions().AttachPaymentIntent(ctx, tx.ID, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tag.RowsAffected())

	tag, err = s.Transactions().AttachPaymentIntent(ctx, tx.ID, "pi_2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), tag.RowsAffected())

	got, _ := s.Transactions().GetByID(ctx, tx.ID)
	assert.Equal(t, "pi_1", *got.PaymentIntentID)
}

func TestExpireEndedAndListBillable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	yesterday := &models.Contract{ID: uuid.New(), ApplicationID: uuid.New(), IsActive: true, EndDate: fixedNow.AddDate(0, 0, -1)}
	tomorrow := &models.Contract{ID: uuid.New(), ApplicationID: uuid.New(), IsActive: true, EndDate: fixedNow.AddDate(0, 0, 1)}
	inactive := &models.Contract{ID: uuid.New(), ApplicationID: uuid.New(), EndDate: fixedNow.AddDate(0, 0, -1)}
	for _, c := range []*models.Contract{yesterday, tomorrow, inactive} {
		require.NoError(t, s.Contracts().Create(ctx, c))
	}

	billable, err := s.Contracts().ListBillable(ctx, fixedNow)
	require.NoError(t, err)
	require.Len(t, billable, 1)
	assert.Equal(t, tomorrow.ID, billable[0].ID)

	n, err := s.Contracts().ExpireEnded(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := s.Contracts().GetByID(ctx, yesterday.ID)
	assert.False(t, got.IsActive)
	got, _ = s.Contracts().GetByID(ctx, tomorrow.ID)
	assert.True(t, got.IsActive)
}

func TestTransactionOverdueRule(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	late := &models.Transaction{ID: uuid.New(), Status: models.TransactionStatusPending, DueDate: fixedNow.Add(-time.Hour)}
	fresh := &models.Transaction{ID: uuid.New(), Status: models.TransactionStatusPending, DueDate: fixedNow.Add(time.Hour)}
	alsoLate := &models.Transaction{ID: uuid.New(), Status: models.TransactionStatusPending, DueDate: fixedNow.Add(-time.Minute)}
	for _, tx := range []*models.Transaction{late, fresh, alsoLate} {
		require.NoError(t, s.Transactions().Create(ctx, tx))
	}

	// single-row writes persist the rule
	require.NoError(t, s.Transactions().UpdateWithRetry(ctx, alsoLate.ID, func(cur *models.Transaction) error {
		cur.Amount = decimal.NewFromInt(10)
		return nil
	}))
	got, _ := s.Transactions().GetByID(ctx, alsoLate.ID)
	assert.Equal(t, models.TransactionStatusOverdue, got.Status)

	n, err := s.Transactions().MarkOverdue(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ = s.Transactions().GetByID(ctx, fresh.ID)
	assert.Equal(t, models.TransactionStatusPending, got.Status)
	got, _ = s.Transactions().GetByID(ctx, late.ID)
	assert.Equal(t, models.TransactionStatusOverdue, got.Status)
}

const concurrency = 8

func TestUser_UpdateWithRetry_Stress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	u := &models.User{ID: uuid.New(), FirstName: "Stress"}
	require.NoError(t, s.Users().Create(ctx, u))

	var wg sync.WaitGroup
	errCh := make(chan error, concurrency)
	for i := range concurrency {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errCh <- s.Users().UpdateWithRetry(ctx, u.ID, func(cur *models.User) error {
				cur.LastName = fmt.Sprintf("stress_%d", n)
				return nil
			})
		}(i)
	}
	wg.Wait()
	close(errCh)

	succeeded := 0
	for err := range errCh {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, utils.ErrRowVersionConflict)
	}

	final, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1+succeeded), final.RowVersion)
}
