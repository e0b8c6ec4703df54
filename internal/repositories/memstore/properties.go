package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
)

type propertyRepo struct{ s *Store }

func (r *propertyRepo) Create(_ context.Context, p *models.Property) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.properties[p.ID]; ok {
			return fmt.Errorf("property %s already exists", p.ID)
		}
		now := r.s.now()
		cp := p.Clone()
		for i := range cp.Rooms {
			cp.Rooms[i].PropertyID = p.ID
		}
		cp.RowVersion, cp.CreatedAt, cp.UpdatedAt = 1, now, now
		d.properties[p.ID] = cp
		return nil
	})
}

func (r *propertyRepo) GetByID(_ context.Context, id uuid.UUID) (out *models.Property, _ error) {
	r.s.read(func(d *state) {
		if p, ok := d.properties[id]; ok {
			out = p.Clone()
		}
	})
	return out, nil
}

// UpdateIfVersion mirrors the Postgres repository: the room set itself is
// fixed at creation, only existing rooms are rewritten.
func (r *propertyRepo) UpdateIfVersion(_ context.Context, p *models.Property, expected int64) (pgconn.CommandTag, error) {
	var n int64
	err := r.s.write(func(d *state) error {
		cur, ok := d.properties[p.ID]
		if !ok || cur.RowVersion != expected {
			return nil
		}
		next := p.Clone()
		next.Type = cur.Type
		rooms := make([]models.Room, 0, len(cur.Rooms))
		for _, existing := range cur.Rooms {
			if updated := next.FindRoom(existing.ID); updated != nil {
				room := *updated
				room.PropertyID = cur.ID
				rooms = append(rooms, room)
				continue
			}
			rooms = append(rooms, existing)
		}
		next.Rooms = rooms
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = r.s.now()
		next.RowVersion = expected + 1
		d.properties[p.ID] = next
		n = 1
		return nil
	})
	return tag(n), err
}

func (r *propertyRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Property) error) error {
	return repositories.WithRetry(ctx, repositories.DefaultMaxRetries, id, r.GetByID, r.UpdateIfVersion, mutate)
}
