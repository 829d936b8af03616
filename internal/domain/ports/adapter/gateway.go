package adapter

import (
	"context"
	"time"
)

// VerifyResult is the normalized outcome of a verify-by-reference call.
// Confirmed is true only when the gateway accepted the request AND reports the
// transaction status as "success"; Message carries the gateway's own wording
// either way.
type VerifyResult struct {
	Confirmed bool
	Message   string
	Status    string // raw gateway transaction status, e.g. "success", "failed", "abandoned"
	Amount    int64  // minor units
	Currency  string
	Channel   string // e.g. "card", "bank_transfer"
	Reference string
	PaidAt    *time.Time
	CreatedAt *time.Time

	// Optional sub-objects the gateway attaches for subscription charges.
	SubscriptionCode string
	PlanName         string
	CustomerEmail    string
}

// InitResult is returned by transaction initialization.
type InitResult struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// PaymentGateway is the hex port for the external payment provider.
type PaymentGateway interface {
	Name() string

	// Initialize creates a charge attempt on the provider and returns the
	// hosted checkout handle. The reference is client-generated when non-empty.
	Initialize(ctx context.Context, email string, amount int64, currency, reference string, meta map[string]interface{}) (*InitResult, error)

	// Verify confirms a charge by reference. One outbound call, no retries;
	// the caller decides whether to retry the whole verification.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}
