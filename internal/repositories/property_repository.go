package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/maximillian1508/easyrent-backend/internal/models"
)

/* ------------------------------------------------------------------
   Public interface
------------------------------------------------------------------ */

// PropertyRepository persists properties together with their rooms. The
// property row version covers room occupancy as well.
type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	UpdateIfVersion(ctx context.Context, p *models.Property, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Property) error) error
}

/* ------------------------------------------------------------------
   Implementation
------------------------------------------------------------------ */

type propertyRepo struct {
	table versionedTable[*models.Property]
	db    DB
}

func NewPropertyRepository(db DB) PropertyRepository {
	return &propertyRepo{
		table: newVersionedTable(db, baseSelectProperty()+" WHERE id=$1", scanProperty),
		db:    db,
	}
}

func (r *propertyRepo) Create(ctx context.Context, p *models.Property) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO properties (
            id, name, type, address, description, price, deposit_amount,
            is_available, current_tenant_id,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, NOW(), NOW(), 1)
    `,
		p.ID,
		p.Name,
		p.Type,
		p.Address,
		p.Description,
		p.Price,
		p.DepositAmount,
		p.IsAvailable,
		p.CurrentTenantID,
	)
	if err != nil {
		return err
	}
	for _, room := range p.Rooms {
		if _, err := r.db.Exec(ctx, `
            INSERT INTO rooms (
                id, property_id, name, price, deposit_amount, description,
                is_occupied, occupant_id
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        `,
			room.ID,
			p.ID,
			room.Name,
			room.Price,
			room.DepositAmount,
			room.Description,
			room.IsOccupied,
			room.OccupantID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *propertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := r.table.load(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	if err := r.loadRooms(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *propertyRepo) loadRooms(ctx context.Context, p *models.Property) error {
	rows, err := r.db.Query(ctx, `
        SELECT id, property_id, name, price, deposit_amount, description,
               is_occupied, occupant_id
        FROM rooms
        WHERE property_id=$1
        ORDER BY name
    `, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	p.Rooms = nil
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(
			&room.ID,
			&room.PropertyID,
			&room.Name,
			&room.Price,
			&room.DepositAmount,
			&room.Description,
			&room.IsOccupied,
			&room.OccupantID,
		); err != nil {
			return err
		}
		p.Rooms = append(p.Rooms, room)
	}
	return rows.Err()
}

// UpdateIfVersion writes the property row under CAS and, only when that
// succeeds, the occupancy of each room. Callers run it inside Store.InTx so
// both land together.
func (r *propertyRepo) UpdateIfVersion(ctx context.Context, p *models.Property, expected int64) (pgconn.CommandTag, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE properties SET
            name=$1, address=$2, description=$3, price=$4, deposit_amount=$5,
            is_available=$6, current_tenant_id=$7,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$8 AND row_version=$9
    `,
		p.Name, p.Address, p.Description, p.Price, p.DepositAmount,
		p.IsAvailable, p.CurrentTenantID,
		p.ID, expected,
	)
	if err != nil || tag.RowsAffected() != 1 {
		return tag, err
	}
	for _, room := range p.Rooms {
		if _, err := r.db.Exec(ctx, `
            UPDATE rooms SET
                name=$1, price=$2, deposit_amount=$3, description=$4,
                is_occupied=$5, occupant_id=$6
            WHERE id=$7 AND property_id=$8
        `,
			room.Name, room.Price, room.DepositAmount, room.Description,
			room.IsOccupied, room.OccupantID,
			room.ID, p.ID,
		); err != nil {
			return nil, err
		}
	}
	return tag, nil
}

func (r *propertyRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Property) error) error {
	// Rooms are part of the aggregate, so reload through GetByID.
	return WithRetry(ctx, DefaultMaxRetries, id, r.GetByID, r.UpdateIfVersion, mutate)
}

func baseSelectProperty() string {
	return `
        SELECT
            id, name, type, address, description, price, deposit_amount,
            is_available, current_tenant_id,
            created_at, updated_at, row_version
        FROM properties
    `
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Type,
		&p.Address,
		&p.Description,
		&p.Price,
		&p.DepositAmount,
		&p.IsAvailable,
		&p.CurrentTenantID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
