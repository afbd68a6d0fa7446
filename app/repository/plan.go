package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

type PlanRepository struct {
	db DBTX
}

func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) FindByID(ctx context.Context, id string) (*entity.Plan, error) {
	query := `
		SELECT id, name, amount_cents, currency, billing_interval, features_json, active, created_at, updated_at
		FROM plans
		WHERE id = ?
	`

	plan, err := scanPlan(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *PlanRepository) ListActive(ctx context.Context) ([]*entity.Plan, error) {
	query := `
		SELECT id, name, amount_cents, currency, billing_interval, features_json, active, created_at, updated_at
		FROM plans
		WHERE active = 1
		ORDER BY amount_cents ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []*entity.Plan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (*entity.Plan, error) {
	var (
		plan         entity.Plan
		featuresJSON string
	)
	if err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.AmountCents,
		&plan.Currency,
		&plan.Interval,
		&featuresJSON,
		&plan.Active,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	); err != nil {
		return nil, err
	}

	features, err := parseFeatures(featuresJSON)
	if err != nil {
		return nil, err
	}
	plan.Features = features
	return &plan, nil
}
