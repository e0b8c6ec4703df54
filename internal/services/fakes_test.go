package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories/memstore"
)

var testNow = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

/* ---------------------------- notifier ---------------------------- */

type fakeNotifier struct {
	mu          sync.Mutex
	acceptances []AcceptanceNotice
	rejections  []uuid.UUID
	reminders   []uuid.UUID
	// reminders to these users fail
	failReminderFor map[uuid.UUID]bool
	failAcceptance  bool
	acceptAttempts  int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failReminderFor: map[uuid.UUID]bool{}}
}

func (f *fakeNotifier) SendAcceptance(_ context.Context, n AcceptanceNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acceptAttempts++
	if f.failAcceptance {
		return errors.New("smtp: connection refused")
	}
	f.acceptances = append(f.acceptances, n)
	return nil
}

func (f *fakeNotifier) SendRejection(_ context.Context, user *models.User, _ *models.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejections = append(f.rejections, user.ID)
	return nil
}

func (f *fakeNotifier) SendPaymentReminder(_ context.Context, user *models.User, _ decimal.Decimal, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReminderFor[user.ID] {
		return errors.New("smtp: connection refused")
	}
	f.reminders = append(f.reminders, user.ID)
	return nil
}

func (f *fakeNotifier) counts() (acc, rej, rem int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acceptances), len(f.rejections), len(f.reminders)
}

/* ---------------------------- documents --------------------------- */

type fakeDocuments struct {
	mu    sync.Mutex
	calls []LeaseFields
	err   error
}

func (f *fakeDocuments) RenderLease(_ context.Context, fields LeaseFields) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fields)
	if f.err != nil {
		return "", f.err
	}
	return "https://docs.test/" + LeaseObjectKey(fields), nil
}

func (f *fakeDocuments) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

/* ----------------------------- gateway ---------------------------- */

type fakeGateway struct {
	mu        sync.Mutex
	statuses  map[string]PaymentStatus
	verifyErr error
	created   []IntentRequest
	next      int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: map[string]PaymentStatus{}}
}

func (f *fakeGateway) Verify(_ context.Context, ref string) (PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	if st, ok := f.statuses[ref]; ok {
		return st, nil
	}
	return PaymentStatusPending, nil
}

func (f *fakeGateway) CreateIntent(_ context.Context, req IntentRequest) (*PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.created = append(f.created, req)
	ref := fmt.Sprintf("pi_%d", f.next)
	f.statuses[ref] = PaymentStatusPending
	return &PaymentIntent{Reference: ref, ClientSecret: ref + "_secret", Status: PaymentStatusPending}, nil
}

func (f *fakeGateway) GetIntent(_ context.Context, ref string) (*PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.statuses[ref]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return &PaymentIntent{Reference: ref, ClientSecret: ref + "_secret", Status: st}, nil
}

func (f *fakeGateway) succeed(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[ref] = PaymentStatusSucceeded
}

/* ----------------------------- uploader --------------------------- */

type fakeUploader struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakeUploader) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.key, f.contentType, f.body = key, contentType, b
	return "https://bucket.test/" + key, nil
}

/* ----------------------------- fixture ---------------------------- */

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *memstore.Store
	notifier   *fakeNotifier
	documents  *fakeDocuments
	gateway    *fakeGateway
	dispatcher *NotificationDispatcher

	apps     *ApplicationService
	tenancy  *TenancyService
	payments *PaymentService
	billing  *BillingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		store:     memstore.New(memstore.WithClock(clock)),
		notifier:  newFakeNotifier(),
		documents: &fakeDocuments{},
		gateway:   newFakeGateway(),
	}
	f.dispatcher = NewNotificationDispatcher(DispatcherOptions{
		Workers:        2,
		QueueSize:      64,
		MaxAttempts:    1,
		AttemptTimeout: time.Second,
	})
	t.Cleanup(f.dispatcher.Close)

	f.apps = NewApplicationService(f.store, clock)
	f.tenancy = NewTenancyService(f.store, f.documents, f.notifier, f.dispatcher, clock)
	f.payments = NewPaymentService(f.store, f.gateway, clock)
	f.billing = NewBillingService(f.store, f.notifier, clock)
	return f
}

// drain waits for every dispatched notification.
func (f *fixture) drain() {
	f.dispatcher.Close()
}

func (f *fixture) user(name string) *models.User {
	f.t.Helper()
	u := &models.User{
		ID:        uuid.New(),
		FirstName: name,
		LastName:  "Tester",
		Email:     name + "@example.com",
	}
	require.NoError(f.t, f.store.Users().Create(f.ctx, u))
	return u
}

func (f *fixture) unitProperty() *models.Property {
	f.t.Helper()
	p := &models.Property{
		ID:            uuid.New(),
		Name:          "Sunway Residence",
		Type:          models.PropertyTypeUnitRental,
		Address:       "Jalan PJS 11/28, Bandar Sunway",
		Price:         decimal.NewFromInt(1800),
		DepositAmount: decimal.NewFromInt(3600),
		IsAvailable:   true,
	}
	require.NoError(f.t, f.store.Properties().Create(f.ctx, p))
	return p
}

func (f *fixture) roomProperty(rooms int) *models.Property {
	f.t.Helper()
	p := &models.Property{
		ID:      uuid.New(),
		Name:    "Taman Desa Shared House",
		Type:    models.PropertyTypeRoomRental,
		Address: "Jalan Desa Bakti, Taman Desa",
	}
	for i := 0; i < rooms; i++ {
		p.Rooms = append(p.Rooms, models.Room{
			ID:            uuid.New(),
			Name:          fmt.Sprintf("Room %c", 'A'+i),
			Price:         decimal.NewFromInt(int64(600 + 50*i)),
			DepositAmount: decimal.NewFromInt(int64(1200 + 100*i)),
		})
	}
	require.NoError(f.t, f.store.Properties().Create(f.ctx, p))
	return p
}

func (f *fixture) submit(u *models.User, p *models.Property, roomID *uuid.UUID) *models.Application {
	f.t.Helper()
	start := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	app, err := f.apps.Submit(f.ctx, SubmitApplicationInput{
		UserID:     u.ID,
		PropertyID: p.ID,
		RoomID:     roomID,
		StartDate:  &start,
		StayLength: 6,
	})
	require.NoError(f.t, err)
	return app
}

func (f *fixture) application(id uuid.UUID) *models.Application {
	f.t.Helper()
	a, err := f.store.Applications().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, a)
	return a
}

// accepted runs a full acceptance and attaches a payment reference to the
// deposit, mirroring what the checkout flow does before confirmation.
func (f *fixture) accepted(u *models.User, p *models.Property, roomID *uuid.UUID) (*DecisionResult, string) {
	f.t.Helper()
	app := f.submit(u, p, roomID)
	res, err := f.tenancy.Decide(f.ctx, app.ID, models.ApplicationStatusAccepted)
	require.NoError(f.t, err)

	intent, err := f.payments.CreatePaymentIntent(f.ctx, res.Deposit.ID)
	require.NoError(f.t, err)
	return res, intent.Reference
}
