package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var ErrPaymentRecordExists = errors.New("payment record already exists")

type PaymentRecordRepository struct {
	db DBTX
}

func NewPaymentRecordRepository(db DBTX) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

// Create inserts the record. The unique key on reference is the
// serialization point for concurrent verifications of the same attempt.
func (r *PaymentRecordRepository) Create(ctx context.Context, record *entity.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (
			user_id, reference, provider, plan_id, amount_cents, currency, status, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.UserID,
		record.Reference,
		record.Provider,
		record.PlanID,
		record.AmountCents,
		record.Currency,
		record.Status,
		record.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentRecordExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}

func (r *PaymentRecordRepository) FindByReference(ctx context.Context, reference string) (*entity.PaymentRecord, error) {
	query := `
		SELECT id, user_id, reference, provider, plan_id, amount_cents, currency, status, created_at
		FROM payment_records
		WHERE reference = ?
	`

	record := &entity.PaymentRecord{}
	err := r.db.QueryRowContext(ctx, query, reference).Scan(
		&record.ID,
		&record.UserID,
		&record.Reference,
		&record.Provider,
		&record.PlanID,
		&record.AmountCents,
		&record.Currency,
		&record.Status,
		&record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}
