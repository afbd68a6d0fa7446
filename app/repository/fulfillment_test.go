package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

func sampleRecord() *entity.PaymentRecord {
	return &entity.PaymentRecord{
		UserID:      "user-1",
		Reference:   "ref_abc",
		Provider:    "paystack",
		PlanID:      "pro",
		AmountCents: 5000,
		Currency:    "NGN",
		Status:      entity.PaymentStatusSuccess,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestFulfillmentWriterApply(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := sampleRecord()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_records").
		WithArgs(record.UserID, record.Reference, record.Provider, record.PlanID,
			record.AmountCents, record.Currency, record.Status, record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO user_plans").
		WithArgs(record.UserID, record.PlanID, entity.UserPlanStatusActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, wrote, err := NewFulfillmentWriter(db).Apply(context.Background(), record)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, uint64(42), applied.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillmentWriterApplyDuplicateReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := sampleRecord()
	createdAt := time.Now().UTC().Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_records").
		WillReturnError(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT (.+) FROM payment_records").
		WithArgs(record.Reference).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "reference", "provider", "plan_id", "amount_cents", "currency", "status", "created_at",
		}).AddRow(7, "user-1", "ref_abc", "paystack", "pro", 5000, "NGN", entity.PaymentStatusSuccess, createdAt))

	existing, wrote, err := NewFulfillmentWriter(db).Apply(context.Background(), record)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, uint64(7), existing.ID)
	assert.Equal(t, "pro", existing.PlanID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillmentWriterUpsertFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := sampleRecord()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_records").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO user_plans").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, wrote, err := NewFulfillmentWriter(db).Apply(context.Background(), record)
	require.Error(t, err)
	assert.False(t, wrote)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRecordFindByReferenceMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM payment_records").
		WithArgs("ref_missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "reference", "provider", "plan_id", "amount_cents", "currency", "status", "created_at",
		}))

	record, err := NewPaymentRecordRepository(db).FindByReference(context.Background(), "ref_missing")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestUserPlanUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO user_plans").
		WithArgs("user-1", "pro", entity.UserPlanStatusActive, now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = NewUserPlanRepository(db).Upsert(context.Background(), &entity.UserPlan{
		UserID:    "user-1",
		PlanID:    "pro",
		Status:    entity.UserPlanStatusActive,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPlanFindByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM user_plans").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "plan_id", "status", "updated_at"}).
			AddRow("user-1", "pro", entity.UserPlanStatusActive, now))

	userPlan, err := NewUserPlanRepository(db).FindByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, userPlan)
	assert.Equal(t, "pro", userPlan.PlanID)
	assert.Equal(t, entity.UserPlanStatusActive, userPlan.Status)
}

func TestUserPlanFindByUserIDMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM user_plans").
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "plan_id", "status", "updated_at"}))

	userPlan, err := NewUserPlanRepository(db).FindByUserID(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Nil(t, userPlan)
}
