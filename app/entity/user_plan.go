package entity

import "time"

const (
	UserPlanStatusActive    = "active"
	UserPlanStatusSuspended = "suspended"
)

type UserPlan struct {
	UserID string
	PlanID string
	Status string

	UpdatedAt time.Time
}
