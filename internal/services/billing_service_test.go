package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

func (f *fixture) contract(u *models.User, p *models.Property, end time.Time, active bool, rent int64) *models.Contract {
	f.t.Helper()
	c := &models.Contract{
		ID:            uuid.New(),
		ApplicationID: uuid.New(),
		UserID:        u.ID,
		PropertyID:    p.ID,
		StartDate:     end.AddDate(0, -6, 0),
		EndDate:       end,
		RentAmount:    decimal.NewFromInt(rent),
		DepositAmount: decimal.NewFromInt(rent * 2),
		ContractFile:  "https://docs.test/lease.pdf",
		IsActive:      active,
	}
	require.NoError(f.t, f.store.Contracts().Create(f.ctx, c))
	return c
}

func TestGenerateMonthlyCharges_IsolatesNotificationFailures(t *testing.T) {
	f := newFixture(t)
	later := testNow.AddDate(0, 4, 0)

	var contracts []*models.Contract
	var failing *models.Contract
	for i, name := range []string{"yusof", "zara", "amir"} {
		u := f.user(name)
		c := f.contract(u, f.unitProperty(), later, true, int64(1000+100*i))
		contracts = append(contracts, c)
		if name == "zara" {
			f.notifier.failReminderFor[u.ID] = true
			failing = c
		}
	}
	// Neither an inactive nor an ended contract is billed.
	f.contract(f.user("ben"), f.unitProperty(), later, false, 900)
	f.contract(f.user("cara"), f.unitProperty(), testNow.AddDate(0, 0, -1), true, 900)

	report, err := f.billing.GenerateMonthlyCharges(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Considered)
	assert.Equal(t, 3, report.Charged)
	assert.Empty(t, report.ChargeFailures)
	require.Len(t, report.NotificationFailures, 1)
	assert.Equal(t, failing.ID, report.NotificationFailures[0].ContractID)
	assert.ErrorIs(t, report.NotificationFailures[0].Err, utils.ErrExternalService)

	for _, c := range contracts {
		txns, err := f.store.Transactions().ListByContract(f.ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, txns, 1)
		charge := txns[0]
		assert.Equal(t, models.TransactionTypeMonthlyRental, charge.Type)
		assert.Equal(t, models.TransactionStatusPending, charge.Status)
		assert.True(t, c.RentAmount.Equal(charge.Amount))
		assert.Equal(t, testNow.Add(5*24*time.Hour), charge.DueDate)
	}

	_, _, reminders := f.notifier.counts()
	assert.Equal(t, 2, reminders)
}

func TestGenerateMonthlyCharges_NoContracts(t *testing.T) {
	f := newFixture(t)
	report, err := f.billing.GenerateMonthlyCharges(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Considered)
	assert.Zero(t, report.Charged)
}

func TestExpireContracts(t *testing.T) {
	f := newFixture(t)
	ended := f.contract(f.user("dina"), f.unitProperty(), testNow.AddDate(0, 0, -1), true, 800)
	running := f.contract(f.user("eric"), f.unitProperty(), testNow.AddDate(0, 0, 1), true, 800)

	n, err := f.billing.ExpireContracts(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.store.Contracts().GetByID(f.ctx, ended.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	got, err = f.store.Contracts().GetByID(f.ctx, running.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	n, err = f.billing.ExpireContracts(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkOverdueTransactions(t *testing.T) {
	f := newFixture(t)
	u := f.user("fatimah")
	p := f.unitProperty()

	mk := func(due time.Time, status models.TransactionStatus) *models.Transaction {
		txn := &models.Transaction{
			ID:         uuid.New(),
			UserID:     u.ID,
			PropertyID: p.ID,
			Type:       models.TransactionTypeMonthlyRental,
			Amount:     decimal.NewFromInt(700),
			Status:     status,
			DueDate:    due,
		}
		require.NoError(t, f.store.Transactions().Create(f.ctx, txn))
		return txn
	}
	late := mk(testNow.AddDate(0, 0, -2), models.TransactionStatusPending)
	notYet := mk(testNow.AddDate(0, 0, 2), models.TransactionStatusPending)
	paid := mk(testNow.AddDate(0, 0, -2), models.TransactionStatusPaid)

	n, err := f.billing.MarkOverdueTransactions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	want := map[uuid.UUID]models.TransactionStatus{
		late.ID:   models.TransactionStatusOverdue,
		notYet.ID: models.TransactionStatusPending,
		paid.ID:   models.TransactionStatusPaid,
	}
	for id, status := range want {
		got, err := f.store.Transactions().GetByID(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status, id.String())
	}
}
