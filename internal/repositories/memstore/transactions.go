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

type transactionRepo struct{ s *Store }

func cloneTransaction(t *models.Transaction) *models.Transaction {
	cp := *t
	cp.RoomID = cloneRef(t.RoomID)
	cp.ApplicationID = cloneRef(t.ApplicationID)
	cp.ContractID = cloneRef(t.ContractID)
	cp.PaymentDate = cloneRef(t.PaymentDate)
	cp.PaymentIntentID = cloneRef(t.PaymentIntentID)
	return &cp
}

func (r *transactionRepo) Create(_ context.Context, t *models.Transaction) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.transactions[t.ID]; ok {
			return fmt.Errorf("transaction %s already exists", t.ID)
		}
		now := r.s.now()
		cp := cloneTransaction(t)
		cp.RowVersion, cp.CreatedAt, cp.UpdatedAt = 1, now, now
		d.transactions[t.ID] = cp
		return nil
	})
}

func (r *transactionRepo) GetByID(_ context.Context, id uuid.UUID) (out *models.Transaction, _ error) {
	r.s.read(func(d *state) {
		if t, ok := d.transactions[id]; ok {
			out = cloneTransaction(t)
		}
	})
	return out, nil
}

func (r *transactionRepo) ListByContract(_ context.Context, contractID uuid.UUID) ([]*models.Transaction, error) {
	var out []*models.Transaction
	r.s.read(func(d *state) {
		for _, t := range d.transactions {
			if t.ContractID != nil && *t.ContractID == contractID {
				out = append(out, cloneTransaction(t))
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

func (r *transactionRepo) UpdateIfVersion(_ context.Context, t *models.Transaction, expected int64) (pgconn.CommandTag, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		cur, ok := d.transactions[t.ID]
		if !ok || cur.RowVersion != expected {
			return nil
		}
		now := r.s.now()
		cp := cloneTransaction(t)
		cp.ApplyOverdue(now)
		cp.CreatedAt = cur.CreatedAt
		cp.UpdatedAt = now
		cp.RowVersion = expected + 1
		d.transactions[t.ID] = cp
		n = 1
		return nil
	})
	return tag(n), err
}

func (r *transactionRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Transaction) error) error {
	return repositories.WithRetry(ctx, repositories.DefaultMaxRetries, id, r.GetByID, r.UpdateIfVersion, mutate)
}

func (r *transactionRepo) AttachPaymentIntent(_ context.Context, id uuid.UUID, ref string) (pgconn.CommandTag, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		cur, ok := d.transactions[id]
		if !ok || cur.PaymentIntentID != nil {
			return nil
		}
		cp := cloneTransaction(cur)
		cp.PaymentIntentID = &ref
		cp.UpdatedAt = r.s.now()
		cp.RowVersion++
		d.transactions[id] = cp
		n = 1
		return nil
	})
	return tag(n), err
}

func (r *transactionRepo) MarkPaid(_ context.Context, m repositories.PaymentMatch, paidAt time.Time) (out *models.Transaction, _ error) {
	err := r.s.write(func(d *state) error {
		for id, t := range d.transactions {
			if t.Type != m.Type || !t.Status.IsPayable() {
				continue
			}
			if t.PaymentIntentID == nil || *t.PaymentIntentID != m.PaymentRef {
				continue
			}
			if m.TransactionID != nil && *m.TransactionID != id {
				continue
			}
			if m.ContractID != nil && (t.ContractID == nil || *t.ContractID != *m.ContractID) {
				continue
			}
			cp := cloneTransaction(t)
			cp.MarkPaid(m.PaymentRef, paidAt)
			cp.UpdatedAt = r.s.now()
			cp.RowVersion++
			d.transactions[id] = cp
			out = cloneTransaction(cp)
			return nil
		}
		return nil
	})
	return out, err
}

func (r *transactionRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		stamp := r.s.now()
		for id, t := range d.transactions {
			if !t.IsOverdue(now) {
				continue
			}
			cp := cloneTransaction(t)
			cp.Status = models.TransactionStatusOverdue
			cp.UpdatedAt = stamp
			cp.RowVersion++
			d.transactions[id] = cp
			n++
		}
		return nil
	})
	return n, err
}
