// Package memstore is an in-process implementation of repositories.Store.
// It backs the service tests and the STORE_DRIVER=memory mode. A single
// mutex serializes every transaction, which makes LockScope trivially
// satisfied; a failed transaction restores the snapshot taken on entry.
package memstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
)

type state struct {
	users        map[uuid.UUID]*models.User
	properties   map[uuid.UUID]*models.Property
	applications map[uuid.UUID]*models.Application
	contracts    map[uuid.UUID]*models.Contract
	transactions map[uuid.UUID]*models.Transaction
}

func newState() state {
	return state{
		users:        map[uuid.UUID]*models.User{},
		properties:   map[uuid.UUID]*models.Property{},
		applications: map[uuid.UUID]*models.Application{},
		contracts:    map[uuid.UUID]*models.Contract{},
		transactions: map[uuid.UUID]*models.Transaction{},
	}
}

// snapshot copies the maps; stored values are never mutated in place so
// sharing the pointers is safe.
func (s state) snapshot() state {
	cp := newState()
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.properties {
		cp.properties[k] = v
	}
	for k, v := range s.applications {
		cp.applications[k] = v
	}
	for k, v := range s.contracts {
		cp.contracts[k] = v
	}
	for k, v := range s.transactions {
		cp.transactions[k] = v
	}
	return cp
}

type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
	now  func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used for timestamps and the overdue rule.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	st := newState()
	s := &Store{mu: &sync.Mutex{}, data: &st, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ repositories.Store = (*Store)(nil)

func (s *Store) Users() repositories.UserRepository               { return &userRepo{s} }
func (s *Store) Properties() repositories.PropertyRepository      { return &propertyRepo{s} }
func (s *Store) Applications() repositories.ApplicationRepository { return &applicationRepo{s} }
func (s *Store) Contracts() repositories.ContractRepository       { return &contractRepo{s} }
func (s *Store) Transactions() repositories.TransactionRepository { return &transactionRepo{s} }

func (s *Store) InTx(ctx context.Context, fn func(repositories.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.data.snapshot()
	defer func() {
		if p := recover(); p != nil {
			*s.data = saved
			panic(p)
		}
		if err != nil {
			*s.data = saved
		}
	}()

	return fn(&Store{mu: s.mu, data: s.data, inTx: true, now: s.now})
}

func (s *Store) LockScope(_ context.Context, _ string) error {
	if !s.inTx {
		return repositories.ErrLockOutsideTx
	}
	return nil
}

// read runs fn under the store mutex unless the caller already holds it.
func (s *Store) read(fn func(d *state)) {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn(s.data)
}

func (s *Store) write(fn func(d *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

func tag(n int64) pgconn.CommandTag {
	return pgconn.CommandTag("UPDATE " + strconv.FormatInt(n, 10))
}

func cloneRef[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
