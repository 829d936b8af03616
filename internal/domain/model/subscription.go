package model

import (
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

// ParseBillingCycle maps the metadata billing_cycle value; "annual" and
// "yearly" mean annual, everything else falls back to monthly.
func ParseBillingCycle(s string) BillingCycle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "annual", "yearly":
		return BillingCycleAnnual
	}
	return BillingCycleMonthly
}

// Subscription is a user's premium entitlement. At most one row per user
// (unique on UserID); renewals update the row in place.
type Subscription struct {
	ID               string // UUID
	UserID           string // UUID, unique
	PlanID           string
	PlanName         string
	Status           SubscriptionStatus
	SubscriptionCode string
	StartDate        time.Time
	NextBillingDate  time.Time
	ExpiryDate       time.Time // kept equal to NextBillingDate
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PlanSlug lowercases a plan name and turns whitespace runs into hyphens,
// e.g. "Gold Annual" -> "gold-annual".
func PlanSlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}

// NextBilling advances start by one billing period using calendar-aware
// addition: the day-of-month is preserved where possible and clamped to the
// last day of shorter months (2024-01-31 +1mo -> 2024-02-29,
// 2024-02-29 +1y -> 2025-02-28). time.AddDate normalizes overflow into the
// following month instead, so the clamp is done by hand.
func NextBilling(start time.Time, cycle BillingCycle) time.Time {
	years, months := 0, 1
	if cycle == BillingCycleAnnual {
		years, months = 1, 0
	}
	y, m, d := start.Date()
	m += time.Month(months)
	y += years
	for m > 12 {
		m -= 12
		y++
	}
	if last := daysInMonth(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
