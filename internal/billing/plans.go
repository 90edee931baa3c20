package billing

import (
	"errors"
	"strings"
)

type Plan string

const (
	PlanStarter      Plan = "STARTER"
	PlanProfessional Plan = "PROFESSIONAL"
	PlanEnterprise   Plan = "ENTERPRISE"
)

type Period string

const (
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// Unlimited marks a limit that does not apply.
const Unlimited = -1

var (
	ErrInvalidPlan   = errors.New("invalid plan")
	ErrInvalidPeriod = errors.New("invalid billing period")
	ErrPriceMissing  = errors.New("no price configured for plan")
)

type Limits struct {
	Restaurants        int `json:"restaurants"`
	MenuItems          int `json:"menu_items"`
	AnalyticsRetention int `json:"analytics_retention_days"`
}

type PlanDetails struct {
	ID           Plan   `json:"id"`
	Name         string `json:"name"`
	MonthlyPrice int    `json:"monthly_price"`
	YearlyPrice  int    `json:"yearly_price"`
	Limits       Limits `json:"limits"`
}

// Plans lists what can be bought, cheapest first. Prices are whole euros.
var Plans = []PlanDetails{
	{
		ID: PlanStarter, Name: "Starter", MonthlyPrice: 29, YearlyPrice: 290,
		Limits: Limits{Restaurants: 1, MenuItems: 100, AnalyticsRetention: 30},
	},
	{
		ID: PlanProfessional, Name: "Professional", MonthlyPrice: 49, YearlyPrice: 490,
		Limits: Limits{Restaurants: 3, MenuItems: Unlimited, AnalyticsRetention: 365},
	},
	{
		ID: PlanEnterprise, Name: "Enterprise", MonthlyPrice: 89, YearlyPrice: 890,
		Limits: Limits{Restaurants: Unlimited, MenuItems: Unlimited, AnalyticsRetention: Unlimited},
	},
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToUpper(strings.TrimSpace(s)))
	for _, d := range Plans {
		if d.ID == p {
			return p, nil
		}
	}
	return "", ErrInvalidPlan
}

func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	}
	return "", ErrInvalidPeriod
}

// PriceIDs maps a plan and period to the provider's price identifier.
type PriceIDs map[Plan]map[Period]string

func (p PriceIDs) Lookup(plan Plan, period Period) (string, error) {
	id := p[plan][period]
	if id == "" {
		return "", ErrPriceMissing
	}
	return id, nil
}
