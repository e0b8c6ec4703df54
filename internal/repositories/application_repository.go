package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/maximillian1508/easyrent-backend/internal/models"
)

type ApplicationRepository interface {
	Create(ctx context.Context, a *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	UpdateIfVersion(ctx context.Context, a *models.Application, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Application) error) error

	// HasWaitingInScope reports whether the user already has a
	// WaitingForResponse application for this property/room scope.
	HasWaitingInScope(ctx context.Context, userID, propertyID uuid.UUID, roomID *uuid.UUID) (bool, error)
	HasAcceptedForUser(ctx context.Context, userID uuid.UUID) (bool, error)
	// HasAcceptedInScope ignores the application identified by exceptID.
	HasAcceptedInScope(ctx context.Context, propertyID uuid.UUID, roomID *uuid.UUID, exceptID uuid.UUID) (bool, error)

	// Bulk conditional updates used by acceptance. Both only touch rows
	// still WaitingForResponse and return the number rejected.
	RejectWaitingInScope(ctx context.Context, propertyID uuid.UUID, roomID *uuid.UUID, exceptID uuid.UUID) (int64, error)
	RejectWaitingForUser(ctx context.Context, userID uuid.UUID, exceptID uuid.UUID) (int64, error)
}

type applicationRepo struct {
	table versionedTable[*models.Application]
	db    DB
}

func NewApplicationRepository(db DB) ApplicationRepository {
	return &applicationRepo{
		table: newVersionedTable(db, baseSelectApplication()+" WHERE id=$1", scanApplication),
		db:    db,
	}
}

func (r *applicationRepo) Create(ctx context.Context, a *models.Application) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO applications (
            id, user_id, property_id, room_id, status,
            start_date, stay_length, end_date,
            contract_id, deposit_transaction_id,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW(), NOW(), 1)
    `,
		a.ID,
		a.UserID,
		a.PropertyID,
		a.RoomID,
		a.Status,
		a.StartDate,
		a.StayLength,
		a.EndDate,
		a.ContractID,
		a.DepositTransactionID,
	)
	return err
}

func (r *applicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return r.table.load(ctx, id)
}

func (r *applicationRepo) UpdateIfVersion(ctx context.Context, a *models.Application, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE applications SET
            status=$1, start_date=$2, stay_length=$3, end_date=$4,
            contract_id=$5, deposit_transaction_id=$6,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$7 AND row_version=$8
    `,
		a.Status, a.StartDate, a.StayLength, a.EndDate,
		a.ContractID, a.DepositTransactionID,
		a.ID, expected,
	)
}

func (r *applicationRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Application) error) error {
	return r.table.updateWithRetry(ctx, id, mutate, r.UpdateIfVersion)
}

func (r *applicationRepo) HasWaitingInScope(ctx context.Context, userID, propertyID uuid.UUID, roomID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM applications
            WHERE user_id=$1 AND property_id=$2
              AND room_id IS NOT DISTINCT FROM $3
              AND status=$4
        )
    `, userID, propertyID, roomID, models.ApplicationStatusWaitingForResponse).Scan(&exists)
	return exists, err
}

func (r *applicationRepo) HasAcceptedForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM applications WHERE user_id=$1 AND status=$2
        )
    `, userID, models.ApplicationStatusAccepted).Scan(&exists)
	return exists, err
}

func (r *applicationRepo) HasAcceptedInScope(ctx context.Context, propertyID uuid.UUID, roomID *uuid.UUID, exceptID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM applications
            WHERE property_id=$1
              AND room_id IS NOT DISTINCT FROM $2
              AND status=$3
              AND id<>$4
        )
    `, propertyID, roomID, models.ApplicationStatusAccepted, exceptID).Scan(&exists)
	return exists, err
}

func (r *applicationRepo) RejectWaitingInScope(ctx context.Context, propertyID uuid.UUID, roomID *uuid.UUID, exceptID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE applications SET
            status=$1, updated_at=NOW(), row_version=row_version+1
        WHERE property_id=$2
          AND room_id IS NOT DISTINCT FROM $3
          AND status=$4
          AND id<>$5
    `,
		models.ApplicationStatusRejected,
		propertyID, roomID,
		models.ApplicationStatusWaitingForResponse,
		exceptID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *applicationRepo) RejectWaitingForUser(ctx context.Context, userID uuid.UUID, exceptID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE applications SET
            status=$1, updated_at=NOW(), row_version=row_version+1
        WHERE user_id=$2 AND status=$3 AND id<>$4
    `,
		models.ApplicationStatusRejected,
		userID,
		models.ApplicationStatusWaitingForResponse,
		exceptID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func baseSelectApplication() string {
	return `
        SELECT
            id, user_id, property_id, room_id, status,
            start_date, stay_length, end_date,
            contract_id, deposit_transaction_id,
            created_at, updated_at, row_version
        FROM applications
    `
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	var a models.Application
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.PropertyID,
		&a.RoomID,
		&a.Status,
		&a.StartDate,
		&a.StayLength,
		&a.EndDate,
		&a.ContractID,
		&a.DepositTransactionID,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
