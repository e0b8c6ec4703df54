package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/maximillian1508/easyrent-backend/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateIfVersion(ctx context.Context, u *models.User, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) error
}

type userRepo struct {
	table versionedTable[*models.User]
	db    DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepo{
		table: newVersionedTable(db, baseSelectUser()+" WHERE id=$1", scanUser),
		db:    db,
	}
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (
            id, first_name, last_name, email, phone_number, rental_type,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6, NOW(), NOW(), 1)
    `,
		u.ID,
		u.FirstName,
		u.LastName,
		u.Email,
		u.PhoneNumber,
		u.RentalType,
	)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.table.load(ctx, id)
}

func (r *userRepo) UpdateIfVersion(ctx context.Context, u *models.User, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE users SET
            first_name=$1, last_name=$2, email=$3, phone_number=$4, rental_type=$5,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$6 AND row_version=$7
    `,
		u.FirstName, u.LastName, u.Email, u.PhoneNumber, u.RentalType,
		u.ID, expected,
	)
}

func (r *userRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) error {
	return r.table.updateWithRetry(ctx, id, mutate, r.UpdateIfVersion)
}

func baseSelectUser() string {
	return `
        SELECT
            id, first_name, last_name, email, phone_number, rental_type,
            created_at, updated_at, row_version
        FROM users
    `
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PhoneNumber,
		&u.RentalType,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
