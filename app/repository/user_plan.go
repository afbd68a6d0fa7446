package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type UserPlanRepository struct {
	db DBTX
}

func NewUserPlanRepository(db DBTX) *UserPlanRepository {
	return &UserPlanRepository{db: db}
}

// Upsert is keyed by user_id and unconditionally sets the purchased plan
// and active status, whatever the prior row held.
func (r *UserPlanRepository) Upsert(ctx context.Context, userPlan *entity.UserPlan) error {
	query := `
		INSERT INTO user_plans (user_id, plan_id, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			plan_id = VALUES(plan_id),
			status = VALUES(status),
			updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query,
		userPlan.UserID,
		userPlan.PlanID,
		userPlan.Status,
		userPlan.UpdatedAt,
	)
	return err
}

func (r *UserPlanRepository) FindByUserID(ctx context.Context, userID string) (*entity.UserPlan, error) {
	query := `
		SELECT user_id, plan_id, status, updated_at
		FROM user_plans
		WHERE user_id = ?
	`

	userPlan := &entity.UserPlan{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&userPlan.UserID,
		&userPlan.PlanID,
		&userPlan.Status,
		&userPlan.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return userPlan, nil
}
