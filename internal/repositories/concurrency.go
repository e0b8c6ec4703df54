package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

// DefaultMaxRetries bounds every optimistic-lock loop.
const DefaultMaxRetries = 3

// VersionedEntity is a row guarded by row_version. Implementations are
// pointers, so the zero value is nil.
type VersionedEntity interface {
	comparable
	GetID() string
	GetRowVersion() int64
	SetRowVersion(int64)
}

// CASFunc writes entity only if the stored row_version still equals
// expectedVersion, reporting zero rows affected otherwise.
type CASFunc[T VersionedEntity] func(ctx context.Context, entity T, expectedVersion int64) (pgconn.CommandTag, error)

type LoadFunc[K any, T VersionedEntity] func(ctx context.Context, id K) (T, error)

/*
WithRetry reloads the row, applies mutate and attempts the CAS write, up
to maxRetries times. A mutate error aborts the loop unchanged; a missing
row yields pgx.ErrNoRows; losing every race yields
utils.ErrRowVersionConflict.
*/
func WithRetry[K any, T VersionedEntity](
	ctx context.Context,
	maxRetries int,
	id K,
	load LoadFunc[K, T],
	cas CASFunc[T],
	mutate func(T) error,
) error {
	var zero T
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		current, err := load(ctx, id)
		if err != nil {
			return err
		}
		if current == zero {
			return fmt.Errorf("load %v: %w", id, pgx.ErrNoRows)
		}

		seen := current.GetRowVersion()
		if err := mutate(current); err != nil {
			return err
		}

		tag, err := cas(ctx, current, seen)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			current.SetRowVersion(seen + 1)
			return nil
		}
	}
	return fmt.Errorf("%w: %d attempts lost updating %v", utils.ErrRowVersionConflict, maxRetries, id)
}
