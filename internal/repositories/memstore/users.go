package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
)

type userRepo struct{ s *Store }

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.PhoneNumber = cloneRef(u.PhoneNumber)
	return &cp
}

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.users[u.ID]; ok {
			return fmt.Errorf("user %s already exists", u.ID)
		}
		now := r.s.now()
		cp := cloneUser(u)
		cp.RowVersion, cp.CreatedAt, cp.UpdatedAt = 1, now, now
		d.users[u.ID] = cp
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (out *models.User, _ error) {
	r.s.read(func(d *state) {
		if u, ok := d.users[id]; ok {
			out = cloneUser(u)
		}
	})
	return out, nil
}

func (r *userRepo) UpdateIfVersion(_ context.Context, u *models.User, expected int64) (pgconn.CommandTag, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		cur, ok := d.users[u.ID]
		if !ok || cur.RowVersion != expected {
			return nil
		}
		cp := cloneUser(u)
		cp.CreatedAt = cur.CreatedAt
		cp.UpdatedAt = r.s.now()
		cp.RowVersion = expected + 1
		d.users[u.ID] = cp
		n = 1
		return nil
	})
	return tag(n), err
}

func (r *userRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) error {
	return repositories.WithRetry(ctx, repositories.DefaultMaxRetries, id, r.GetByID, r.UpdateIfVersion, mutate)
}
