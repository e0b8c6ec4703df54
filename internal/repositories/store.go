package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

// Store groups the repositories behind one transactional boundary.
type Store interface {
	Users() UserRepository
	Properties() PropertyRepository
	Applications() ApplicationRepository
	Contracts() ContractRepository
	Transactions() TransactionRepository

	// InTx runs fn against a Store bound to a single transaction, committing
	// when fn returns nil and rolling back otherwise. Nested calls reuse the
	// enclosing transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	// LockScope acquires an exclusive lock on key that is held until the
	// enclosing transaction ends. It must be called inside InTx.
	LockScope(ctx context.Context, key string) error
}

var ErrLockOutsideTx = errors.New("LockScope called outside a transaction")

type pgStore struct {
	db   DB
	inTx bool

	users        UserRepository
	properties   PropertyRepository
	applications ApplicationRepository
	contracts    ContractRepository
	transactions TransactionRepository
}

// NewPostgresStore builds a Store over a pool (or any DB).
func NewPostgresStore(db DB) Store {
	return newPGStore(db, false)
}

func newPGStore(db DB, inTx bool) *pgStore {
	return &pgStore{
		db:           db,
		inTx:         inTx,
		users:        NewUserRepository(db),
		properties:   NewPropertyRepository(db),
		applications: NewApplicationRepository(db),
		contracts:    NewContractRepository(db),
		transactions: NewTransactionRepository(db),
	}
}

func (s *pgStore) Users() UserRepository               { return s.users }
func (s *pgStore) Properties() PropertyRepository      { return s.properties }
func (s *pgStore) Applications() ApplicationRepository { return s.applications }
func (s *pgStore) Contracts() ContractRepository       { return s.contracts }
func (s *pgStore) Transactions() TransactionRepository { return s.transactions }

func (s *pgStore) InTx(ctx context.Context, fn func(Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				utils.Logger.WithError(rbErr).Warn("transaction rollback failed")
			}
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(newPGStore(tx, true))
}

func (s *pgStore) LockScope(ctx context.Context, key string) error {
	if !s.inTx {
		return ErrLockOutsideTx
	}
	_, err := s.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return err
}
