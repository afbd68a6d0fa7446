package entity

import "time"

type Plan struct {
	ID       string
	Name     string
	Interval string

	AmountCents int64
	Currency    string

	Features []string
	Active   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Plan) Free() bool {
	return p.AmountCents <= 0
}
