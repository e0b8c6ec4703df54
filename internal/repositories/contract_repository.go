package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/maximillian1508/easyrent-backend/internal/models"
)

type ContractRepository interface {
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	UpdateIfVersion(ctx context.Context, c *models.Contract, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Contract) error) error

	HasActiveForUser(ctx context.Context, userID uuid.UUID) (bool, error)
	// ListBillable returns active contracts whose endDate is after now.
	ListBillable(ctx context.Context, now time.Time) ([]*models.Contract, error)
	// ExpireEnded flips isActive off for every active contract whose endDate
	// is at or before now, returning the count flipped.
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

type contractRepo struct {
	table versionedTable[*models.Contract]
	db    DB
}

func NewContractRepository(db DB) ContractRepository {
	return &contractRepo{
		table: newVersionedTable(db, baseSelectContract()+" WHERE id=$1", scanContract),
		db:    db,
	}
}

func (r *contractRepo) Create(ctx context.Context, c *models.Contract) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO contracts (
            id, application_id, user_id, property_id, room_id,
            start_date, end_date, rent_amount, deposit_amount,
            contract_file, is_active,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, NOW(), NOW(), 1)
    `,
		c.ID,
		c.ApplicationID,
		c.UserID,
		c.PropertyID,
		c.RoomID,
		c.StartDate,
		c.EndDate,
		c.RentAmount,
		c.DepositAmount,
		c.ContractFile,
		c.IsActive,
	)
	return err
}

func (r *contractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return r.table.load(ctx, id)
}

func (r *contractRepo) UpdateIfVersion(ctx context.Context, c *models.Contract, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE contracts SET
            start_date=$1, end_date=$2, rent_amount=$3, deposit_amount=$4,
            contract_file=$5, is_active=$6,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$7 AND row_version=$8
    `,
		c.StartDate, c.EndDate, c.RentAmount, c.DepositAmount,
		c.ContractFile, c.IsActive,
		c.ID, expected,
	)
}

func (r *contractRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Contract) error) error {
	return r.table.updateWithRetry(ctx, id, mutate, r.UpdateIfVersion)
}

func (r *contractRepo) HasActiveForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM contracts WHERE user_id=$1 AND is_active)
    `, userID).Scan(&exists)
	return exists, err
}

func (r *contractRepo) ListBillable(ctx context.Context, now time.Time) ([]*models.Contract, error) {
	rows, err := r.db.Query(ctx, baseSelectContract()+`
        WHERE is_active AND end_date > $1
        ORDER BY created_at
    `, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *contractRepo) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE contracts SET
            is_active=FALSE, updated_at=NOW(), row_version=row_version+1
        WHERE is_active AND end_date <= $1
    `, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func baseSelectContract() string {
	return `
        SELECT
            id, application_id, user_id, property_id, room_id,
            start_date, end_date, rent_amount, deposit_amount,
            contract_file, is_active,
            created_at, updated_at, row_version
        FROM contracts
    `
}

func scanContract(row pgx.Row) (*models.Contract, error) {
	var c models.Contract
	err := row.Scan(
		&c.ID,
		&c.ApplicationID,
		&c.UserID,
		&c.PropertyID,
		&c.RoomID,
		&c.StartDate,
		&c.EndDate,
		&c.RentAmount,
		&c.DepositAmount,
		&c.ContractFile,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
