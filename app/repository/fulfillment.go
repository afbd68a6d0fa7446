package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

// FulfillmentWriter applies a verified payment in a single transaction:
// the payment record insert (unique on reference) and the user plan upsert
// land together or not at all. A duplicate reference means another call
// already fulfilled this attempt, which is the idempotent success case.
type FulfillmentWriter struct {
	db *sql.DB
}

func NewFulfillmentWriter(db *sql.DB) *FulfillmentWriter {
	return &FulfillmentWriter{db: db}
}

// Apply returns the payment record for the reference and whether this call
// performed the write. When the reference was already recorded, the
// existing row is returned unchanged and applied is false.
func (w *FulfillmentWriter) Apply(ctx context.Context, record *entity.PaymentRecord) (*entity.PaymentRecord, bool, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}

	recordRepo := NewPaymentRecordRepository(tx)
	if err := recordRepo.Create(ctx, record); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, ErrPaymentRecordExists) {
			existing, findErr := NewPaymentRecordRepository(w.db).FindByReference(ctx, record.Reference)
			if findErr != nil {
				return nil, false, findErr
			}
			if existing == nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	userPlanRepo := NewUserPlanRepository(tx)
	if err := userPlanRepo.Upsert(ctx, &entity.UserPlan{
		UserID:    record.UserID,
		PlanID:    record.PlanID,
		Status:    entity.UserPlanStatusActive,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		_ = tx.Rollback()
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return record, true, nil
}
