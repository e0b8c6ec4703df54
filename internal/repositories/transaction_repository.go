package repositories

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/maximillian1508/easyrent-backend/internal/models"
)

// PaymentMatch selects the single payable transaction a confirmed payment
// settles. Type and PaymentRef are always required; at least one of
// TransactionID or ContractID narrows the match.
type PaymentMatch struct {
	TransactionID *uuid.UUID
	ContractID    *uuid.UUID
	Type          models.TransactionType
	PaymentRef    string
}

type TransactionRepository interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*models.Transaction, error)
	UpdateIfVersion(ctx context.Context, t *models.Transaction, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Transaction) error) error

	// AttachPaymentIntent records ref only while no reference is stored yet.
	AttachPaymentIntent(ctx context.Context, id uuid.UUID, ref string) (pgconn.CommandTag, error)
	// MarkPaid moves the matching Pending/Overdue transaction to Paid. It
	// returns (nil, nil) when nothing matched, which is how a replayed
	// confirmation is detected.
	MarkPaid(ctx context.Context, m PaymentMatch, paidAt time.Time) (*models.Transaction, error)
	// MarkOverdue persists the derived overdue rule in bulk.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type transactionRepo struct {
	table versionedTable[*models.Transaction]
	db    DB
}

func NewTransactionRepository(db DB) TransactionRepository {
	return &transactionRepo{
		table: newVersionedTable(db, baseSelectTransaction()+" WHERE id=$1", scanTransaction),
		db:    db,
	}
}

func (r *transactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO transactions (
            id, user_id, property_id, room_id, application_id, contract_id,
            type, amount, status, due_date, payment_date, payment_intent_id,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, NOW(), NOW(), 1)
    `,
		t.ID,
		t.UserID,
		t.PropertyID,
		t.RoomID,
		t.ApplicationID,
		t.ContractID,
		t.Type,
		t.Amount,
		t.Status,
		t.DueDate,
		t.PaymentDate,
		t.PaymentIntentID,
	)
	return err
}

func (r *transactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return r.table.load(ctx, id)
}

func (r *transactionRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.db.Query(ctx, baseSelectTransaction()+" WHERE contract_id=$1 ORDER BY created_at", contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateIfVersion applies the overdue rule on the way in: a Pending row
// whose due date has passed is written as Overdue.
func (r *transactionRepo) UpdateIfVersion(ctx context.Context, t *models.Transaction, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE transactions SET
            amount=$1,
            status=CASE WHEN $2::text=$3 AND $4::timestamptz < NOW() THEN $5 ELSE $2::text END,
            due_date=$4, payment_date=$6, payment_intent_id=$7,
            updated_at=NOW(), row_version=row_version+1
        WHERE id=$8 AND row_version=$9
    `,
		t.Amount,
		string(t.Status), string(models.TransactionStatusPending), t.DueDate, string(models.TransactionStatusOverdue),
		t.PaymentDate, t.PaymentIntentID,
		t.ID, expected,
	)
}

func (r *transactionRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Transaction) error) error {
	return r.table.updateWithRetry(ctx, id, mutate, r.UpdateIfVersion)
}

func (r *transactionRepo) AttachPaymentIntent(ctx context.Context, id uuid.UUID, ref string) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE transactions SET
            payment_intent_id=$1, updated_at=NOW(), row_version=row_version+1
        WHERE id=$2 AND payment_intent_id IS NULL
    `, ref, id)
}

func (r *transactionRepo) MarkPaid(ctx context.Context, m PaymentMatch, paidAt time.Time) (*models.Transaction, error) {
	var (
		qb   strings.Builder
		args []any
		idx  = 1
	)

	arg := func(v any) string {
		args = append(args, v)
		s := "$" + strconv.Itoa(idx)
		idx++
		return s
	}

	qb.WriteString("UPDATE transactions SET status=")
	qb.WriteString(arg(string(models.TransactionStatusPaid)))
	qb.WriteString(", payment_date=")
	qb.WriteString(arg(paidAt))
	qb.WriteString(", updated_at=NOW(), row_version=row_version+1")
	qb.WriteString(" WHERE type=")
	qb.WriteString(arg(string(m.Type)))
	qb.WriteString(" AND payment_intent_id=")
	qb.WriteString(arg(m.PaymentRef))
	qb.WriteString(" AND status = ANY(")
	qb.WriteString(arg([]string{
		string(models.TransactionStatusPending),
		string(models.TransactionStatusOverdue),
	}))
	qb.WriteString(")")
	if m.TransactionID != nil {
		qb.WriteString(" AND id=")
		qb.WriteString(arg(*m.TransactionID))
	}
	if m.ContractID != nil {
		qb.WriteString(" AND contract_id=")
		qb.WriteString(arg(*m.ContractID))
	}
	qb.WriteString(`
        RETURNING
            id, user_id, property_id, room_id, application_id, contract_id,
            type, amount, status, due_date, payment_date, payment_intent_id,
            created_at, updated_at, row_version
    `)

	return scanTransaction(r.db.QueryRow(ctx, qb.String(), args...))
}

func (r *transactionRepo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE transactions SET
            status=$1, updated_at=NOW(), row_version=row_version+1
        WHERE status=$2 AND due_date < $3
    `,
		models.TransactionStatusOverdue,
		models.TransactionStatusPending,
		now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func baseSelectTransaction() string {
	return `
        SELECT
            id, user_id, property_id, room_id, application_id, contract_id,
            type, amount, status, due_date, payment_date, payment_intent_id,
            created_at, updated_at, row_version
        FROM transactions
    `
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.PropertyID,
		&t.RoomID,
		&t.ApplicationID,
		&t.ContractID,
		&t.Type,
		&t.Amount,
		&t.Status,
		&t.DueDate,
		&t.PaymentDate,
		&t.PaymentIntentID,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.RowVersion,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
