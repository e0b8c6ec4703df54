package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"1800":     180000,
		"1234.56":  123456,
		"1234.565": 123457,
		"0.004":    0,
		"99.995":   10000,
	}
	for in, want := range cases {
		assert.Equal(t, want, ToMinorUnits(decimal.RequireFromString(in)), in)
	}
}

func TestCreatePaymentIntent_CreatesOnceThenReuses(t *testing.T) {
	f := newFixture(t)
	u := f.user("pavan")
	p := f.unitProperty()
	app := f.submit(u, p, nil)
	res, err := f.tenancy.Decide(f.ctx, app.ID, models.ApplicationStatusAccepted)
	require.NoError(t, err)

	first, err := f.payments.CreatePaymentIntent(f.ctx, res.Deposit.ID)
	require.NoError(t, err)
	second, err := f.payments.CreatePaymentIntent(f.ctx, res.Deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)

	require.Len(t, f.gateway.created, 1)
	req := f.gateway.created[0]
	assert.Equal(t, int64(360000), req.Amount)
	assert.Equal(t, "myr", req.Currency)
	assert.Equal(t, "txn-"+res.Deposit.ID.String(), req.IdempotencyKey)
	assert.Equal(t, res.Deposit.ID.String(), req.Metadata["transaction_id"])
	assert.Equal(t, string(models.TransactionTypeDeposit), req.Metadata["type"])
	assert.Equal(t, res.Contract.ID.String(), req.Metadata["contract_id"])

	stored, err := f.store.Transactions().GetByID(f.ctx, res.Deposit.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentIntentID)
	assert.Equal(t, first.Reference, *stored.PaymentIntentID)
}

func TestCreatePaymentIntent_Errors(t *testing.T) {
	f := newFixture(t)
	_, err := f.payments.CreatePaymentIntent(f.ctx, uuid.New())
	assert.ErrorIs(t, err, utils.ErrNotFound)

	u := f.user("qistina")
	res, ref := f.accepted(u, f.unitProperty(), nil)
	f.gateway.succeed(ref)
	_, err = f.payments.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	require.NoError(t, err)

	_, err = f.payments.CreatePaymentIntent(f.ctx, res.Deposit.ID)
	assert.ErrorIs(t, err, utils.ErrConflict, "a paid transaction cannot be paid again")
}

func TestConfirmDeposit_UnitRental(t *testing.T) {
	f := newFixture(t)
	u := f.user("rahim")
	p := f.unitProperty()
	res, ref := f.accepted(u, p, nil)
	f.gateway.succeed(ref)

	out, err := f.payments.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	require.NoError(t, err)

	assert.True(t, out.Contract.IsActive)
	assert.Equal(t, models.TransactionStatusPaid, out.Deposit.Status)
	require.NotNil(t, out.Deposit.PaymentDate)
	assert.Equal(t, testNow, *out.Deposit.PaymentDate)
	assert.Equal(t, models.ApplicationStatusCompleted, out.Application.Status)
	assert.False(t, out.Property.IsAvailable)
	require.NotNil(t, out.Property.CurrentTenantID)
	assert.Equal(t, u.ID, *out.Property.CurrentTenantID)
	assert.Equal(t, models.RentalTypeUnit, out.User.RentalType)

	ok, err := f.apps.CanApply(f.ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfirmDeposit_RoomRental(t *testing.T) {
	f := newFixture(t)
	u := f.user("siti")
	house := f.roomProperty(2)
	roomID := house.Rooms[1].ID
	res, ref := f.accepted(u, house, &roomID)
	f.gateway.succeed(ref)

	out, err := f.payments.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	require.NoError(t, err)

	room := out.Property.FindRoom(roomID)
	require.NotNil(t, room)
	assert.True(t, room.IsOccupied)
	require.NotNil(t, room.OccupantID)
	assert.Equal(t, u.ID, *room.OccupantID)
	assert.False(t, out.Property.FindRoom(house.Rooms[0].ID).IsOccupied)
	assert.Nil(t, out.Property.CurrentTenantID)
	assert.Equal(t, models.RentalTypeRoom, out.User.RentalType)
}

func TestConfirmDeposit_ReplayIsNotFound(t *testing.T) {
	f := newFixture(t)
	u := f.user("tan")
	p := f.unitProperty()
	res, ref := f.accepted(u, p, nil)
	f.gateway.succeed(ref)

	first, err := f.payments.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	require.NoError(t, err)

	_, err = f.payments.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	prop, err := f.store.Properties().GetByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Property.RowVersion, prop.RowVersion, "occupancy is applied once")

	dep, err := f.store.Transactions().GetByID(f.ctx, res.Deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Deposit.RowVersion, dep.RowVersion)
}

func TestConfirmDeposit_WrongReferenceIsNotFound(t *testing.T) {
	f := newFixture(t)
	res, _ := f.accepted(f.user("umar"), f.unitProperty(), nil)
	f.gateway.statuses["pi_forged"] = PaymentStatusSucceeded

	_, err := f.payments.ConfirmDeposit(f.ctx, "pi_forged", res.Contract.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	c, err := f.store.Contracts().GetByID(f.ctx, res.Contract.ID)
	require.NoError(t, err)
	assert.False(t, c.IsActive)
}

func TestConfirmDeposit_FailsClosed(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture, ref string)
		ref   func(ref string) string
		kind  error
	}{
		{
			name:  "payment still pending",
			setup: func(*fixture, string) {},
			kind:  utils.ErrPaymentNotSucceeded,
		},
		{
			name:  "payment failed",
			setup: func(f *fixture, ref string) { f.gateway.statuses[ref] = PaymentStatusFailed },
			kind:  utils.ErrPaymentNotSucceeded,
		},
		{
			name:  "gateway timeout",
			setup: func(f *fixture, _ string) { f.gateway.verifyErr = context.DeadlineExceeded },
			kind:  utils.ErrExternalService,
		},
		{
			name:  "empty reference",
			setup: func(*fixture, string) {},
			ref:   func(string) string { return " " },
			kind:  utils.ErrValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.user("victor")
			p := f.unitProperty()
			res, ref := f.accepted(u, p, nil)
			tc.setup(f, ref)
			if tc.ref != nil {
				ref = tc.ref(ref)
			}

			_, err := f.payments.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)

			c, err := f.store.Contracts().GetByID(f.ctx, res.Contract.ID)
			require.NoError(t, err)
			assert.False(t, c.IsActive)
			d, err := f.store.Transactions().GetByID(f.ctx, res.Deposit.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionStatusPending, d.Status)
			prop, err := f.store.Properties().GetByID(f.ctx, p.ID)
			require.NoError(t, err)
			assert.Nil(t, prop.CurrentTenantID)
			assert.Equal(t, models.ApplicationStatusAccepted, f.application(res.Application.ID).Status)
		})
	}
}

func TestConfirmDeposit_OverdueDepositIsPayable(t *testing.T) {
	f := newFixture(t)
	res, ref := f.accepted(f.user("wani"), f.unitProperty(), nil)
	require.NoError(t, f.store.Transactions().UpdateWithRetry(f.ctx, res.Deposit.ID, func(tx *models.Transaction) error {
		tx.Status = models.TransactionStatusOverdue
		return nil
	}))
	f.gateway.succeed(ref)

	out, err := f.payments.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPaid, out.Deposit.Status)
}

func TestConfirmDeposit_AfterContractEndLeavesItInactive(t *testing.T) {
	f := newFixture(t)
	u := f.user("yasmin")
	p := f.unitProperty()
	res, ref := f.accepted(u, p, nil)
	f.gateway.succeed(ref)

	// The lease ends 2025-10-01; the payment only lands a year after testNow.
	late := NewPaymentService(f.store, f.gateway, func() time.Time { return testNow.AddDate(1, 0, 0) })
	out, err := late.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	require.NoError(t, err)

	assert.False(t, out.Contract.IsActive)
	assert.Equal(t, models.TransactionStatusPaid, out.Deposit.Status)
	assert.Equal(t, models.ApplicationStatusCompleted, out.Application.Status)
	assert.Nil(t, out.Property.CurrentTenantID)
	assert.True(t, out.Property.IsAvailable)

	ok, err := f.apps.CanApply(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok, "a lapsed lease does not hold a tenancy")

	_, err = late.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestConfirmRentPayment(t *testing.T) {
	f := newFixture(t)
	u := f.user("xavier")
	res, ref := f.accepted(u, f.unitProperty(), nil)
	f.gateway.succeed(ref)
	_, err := f.payments.ConfirmDeposit(f.ctx, ref, res.Contract.ID)
	require.NoError(t, err)

	report, err := f.billing.GenerateMonthlyCharges(f.ctx)
	require.NoError(t, err)
	require.Len(t, report.Charges, 1)
	charge := report.Charges[0]

	intent, err := f.payments.CreatePaymentIntent(f.ctx, charge.ID)
	require.NoError(t, err)

	_, err = f.payments.ConfirmRentPayment(f.ctx, intent.Reference, charge.ID)
	assert.ErrorIs(t, err, utils.ErrPaymentNotSucceeded)

	f.gateway.succeed(intent.Reference)
	paid, err := f.payments.ConfirmRentPayment(f.ctx, intent.Reference, charge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)

	_, err = f.payments.ConfirmRentPayment(f.ctx, intent.Reference, charge.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	// A deposit reference cannot settle a rent charge.
	_, err = f.payments.ConfirmRentPayment(f.ctx, ref, res.Deposit.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
