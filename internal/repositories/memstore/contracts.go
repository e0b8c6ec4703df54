package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
)

type contractRepo struct{ s *Store }

func cloneContract(c *models.Contract) *models.Contract {
	cp := *c
	cp.RoomID = cloneRef(c.RoomID)
	return &cp
}

func (r *contractRepo) Create(_ context.Context, c *models.Contract) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.contracts[c.ID]; ok {
			return fmt.Errorf("contract %s already exists", c.ID)
		}
		for _, existing := range d.contracts {
			if existing.ApplicationID == c.ApplicationID {
				return fmt.Errorf("application %s already has contract %s", c.ApplicationID, existing.ID)
			}
		}
		now := r.s.now()
		cp := cloneContract(c)
		cp.RowVersion, cp.CreatedAt, cp.UpdatedAt = 1, now, now
		d.contracts[c.ID] = cp
		return nil
	})
}

func (r *contractRepo) GetByID(_ context.Context, id uuid.UUID) (out *models.Contract, _ error) {
	r.s.read(func(d *state) {
		if c, ok := d.contracts[id]; ok {
			out = cloneContract(c)
		}
	})
	return out, nil
}

func (r *contractRepo) UpdateIfVersion(_ context.Context, c *models.Contract, expected int64) (pgconn.CommandTag, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		cur, ok := d.contracts[c.ID]
		if !ok || cur.RowVersion != expected {
			return nil
		}
		cp := cloneContract(c)
		cp.ApplicationID, cp.UserID, cp.PropertyID, cp.RoomID = cur.ApplicationID, cur.UserID, cur.PropertyID, cloneRef(cur.RoomID)
		cp.CreatedAt = cur.CreatedAt
		cp.UpdatedAt = r.s.now()
		cp.RowVersion = expected + 1
		d.contracts[c.ID] = cp
		n = 1
		return nil
	})
	return tag(n), err
}

func (r *contractRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Contract) error) error {
	return repositories.WithRetry(ctx, repositories.DefaultMaxRetries, id, r.GetByID, r.UpdateIfVersion, mutate)
}

func (r *contractRepo) HasActiveForUser(_ context.Context, userID uuid.UUID) (found bool, _ error) {
	r.s.read(func(d *state) {
		for _, c := range d.contracts {
			if c.UserID == userID && c.IsActive {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *contractRepo) ListBillable(_ context.Context, now time.Time) ([]*models.Contract, error) {
	var out []*models.Contract
	r.s.read(func(d *state) {
		for _, c := range d.contracts {
			if c.IsBillable(now) {
				out = append(out, cloneContract(c))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *contractRepo) ExpireEnded(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		stamp := r.s.now()
		for id, c := range d.contracts {
			if !c.HasEnded(now) {
				continue
			}
			cp := cloneContract(c)
			cp.IsActive = false
			cp.UpdatedAt = stamp
			cp.RowVersion++
			d.contracts[id] = cp
			n++
		}
		return nil
	})
	return n, err
}
