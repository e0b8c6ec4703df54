package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
)

type applicationRepo struct{ s *Store }

func cloneApplication(a *models.Application) *models.Application {
	cp := *a
	cp.RoomID = cloneRef(a.RoomID)
	cp.ContractID = cloneRef(a.ContractID)
	cp.DepositTransactionID = cloneRef(a.DepositTransactionID)
	return &cp
}

func (r *applicationRepo) Create(_ context.Context, a *models.Application) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.applications[a.ID]; ok {
			return fmt.Errorf("application %s already exists", a.ID)
		}
		now := r.s.now()
		cp := cloneApplication(a)
		cp.RowVersion, cp.CreatedAt, cp.UpdatedAt = 1, now, now
		d.applications[a.ID] = cp
		return nil
	})
}

func (r *applicationRepo) GetByID(_ context.Context, id uuid.UUID) (out *models.Application, _ error) {
	r.s.read(func(d *state) {
		if a, ok := d.applications[id]; ok {
			out = cloneApplication(a)
		}
	})
	return out, nil
}

func (r *applicationRepo) UpdateIfVersion(_ context.Context, a *models.Application, expected int64) (pgconn.CommandTag, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		cur, ok := d.applications[a.ID]
		if !ok || cur.RowVersion != expected {
			return nil
		}
		cp := cloneApplication(a)
		cp.UserID, cp.PropertyID, cp.RoomID = cur.UserID, cur.PropertyID, cloneRef(cur.RoomID)
		cp.CreatedAt = cur.CreatedAt
		cp.UpdatedAt = r.s.now()
		cp.RowVersion = expected + 1
		d.applications[a.ID] = cp
		n = 1
		return nil
	})
	return tag(n), err
}

func (r *applicationRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Application) error) error {
	return repositories.WithRetry(ctx, repositories.DefaultMaxRetries, id, r.GetByID, r.UpdateIfVersion, mutate)
}

func (r *applicationRepo) exists(match func(a *models.Application) bool) (found bool) {
	r.s.read(func(d *state) {
		for _, a := range d.applications {
			if match(a) {
				found = true
				return
			}
		}
	})
	return found
}

func (r *applicationRepo) HasWaitingInScope(_ context.Context, userID, propertyID uuid.UUID, roomID *uuid.UUID) (bool, error) {
	return r.exists(func(a *models.Application) bool {
		return a.UserID == userID &&
			a.PropertyID == propertyID &&
			sameRef(a.RoomID, roomID) &&
			a.Status == models.ApplicationStatusWaitingForResponse
	}), nil
}

func (r *applicationRepo) HasAcceptedForUser(_ context.Context, userID uuid.UUID) (bool, error) {
	return r.exists(func(a *models.Application) bool {
		return a.UserID == userID && a.Status == models.ApplicationStatusAccepted
	}), nil
}

func (r *applicationRepo) HasAcceptedInScope(_ context.Context, propertyID uuid.UUID, roomID *uuid.UUID, exceptID uuid.UUID) (bool, error) {
	return r.exists(func(a *models.Application) bool {
		return a.ID != exceptID &&
			a.PropertyID == propertyID &&
			sameRef(a.RoomID, roomID) &&
			a.Status == models.ApplicationStatusAccepted
	}), nil
}

func (r *applicationRepo) rejectWaiting(match func(a *models.Application) bool) (int64, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		now := r.s.now()
		for id, a := range d.applications {
			if a.Status != models.ApplicationStatusWaitingForResponse || !match(a) {
				continue
			}
			cp := cloneApplication(a)
			cp.Status = models.ApplicationStatusRejected
			cp.UpdatedAt = now
			cp.RowVersion++
			d.applications[id] = cp
			n++
		}
		return nil
	})
	return n, err
}

func (r *applicationRepo) RejectWaitingInScope(_ context.Context, propertyID uuid.UUID, roomID *uuid.UUID, exceptID uuid.UUID) (int64, error) {
	return r.rejectWaiting(func(a *models.Application) bool {
		return a.ID != exceptID && a.PropertyID == propertyID && sameRef(a.RoomID, roomID)
	})
}

func (r *applicationRepo) RejectWaitingForUser(_ context.Context, userID uuid.UUID, exceptID uuid.UUID) (int64, error) {
	return r.rejectWaiting(func(a *models.Application) bool {
		return a.ID != exceptID && a.UserID == userID
	})
}
