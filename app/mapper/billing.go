package mapper

import (
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

func PlanToPayload(item *entity.Plan) *types.PlanPayload {
	if item == nil {
		return nil
	}

	features := item.Features
	if features == nil {
		features = []string{}
	}

	return &types.PlanPayload{
		ID:          item.ID,
		Name:        item.Name,
		AmountCents: item.AmountCents,
		Currency:    item.Currency,
		Interval:    item.Interval,
		Features:    features,
	}
}

func PlansToPayload(items []*entity.Plan) []*types.PlanPayload {
	result := make([]*types.PlanPayload, 0, len(items))
	for _, item := range items {
		result = append(result, PlanToPayload(item))
	}
	return result
}
