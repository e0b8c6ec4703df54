package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

// versionedTable pairs a table's select-by-id statement with its row
// scanner. Repositories embed one to get load and retry for free.
type versionedTable[T VersionedEntity] struct {
	db         DB
	selectByID string
	scan       func(pgx.Row) (T, error)
}

func newVersionedTable[T VersionedEntity](db DB, selectByID string, scan func(pgx.Row) (T, error)) versionedTable[T] {
	return versionedTable[T]{db: db, selectByID: selectByID, scan: scan}
}

// load returns the zero T when no row matches.
func (t versionedTable[T]) load(ctx context.Context, id uuid.UUID) (T, error) {
	return t.scan(t.db.QueryRow(ctx, t.selectByID, id))
}

func (t versionedTable[T]) updateWithRetry(ctx context.Context, id uuid.UUID, mutate func(T) error, cas CASFunc[T]) error {
	return WithRetry(ctx, DefaultMaxRetries, id, t.load, cas, mutate)
}
