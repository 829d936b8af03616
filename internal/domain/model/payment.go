package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // checkout initiated; awaiting verification
	PaymentStatusCompleted PaymentStatus = "completed" // verified OK at gateway; monotonic, never reverts
	PaymentStatusFailed    PaymentStatus = "failed"    // verification failed or explicitly failed
)

// PaymentIntent is decided once at payment creation and stored on the row.
// Verification branches on it instead of re-reading loosely-typed metadata
// flags.
type PaymentIntent string

const (
	IntentCardPurchase PaymentIntent = "card_purchase" // physical/digital card; bundles a subscription
	IntentSubscription PaymentIntent = "subscription"  // subscription only
	IntentBundled      PaymentIntent = "bundled"       // explicit card + subscription bundle
)

// ProvisionsCard reports whether this intent creates a card record.
func (i PaymentIntent) ProvisionsCard() bool {
	return i == IntentCardPurchase || i == IntentBundled
}

// ProvisionsSubscription reports whether this intent creates or renews a
// subscription. A card purchase bundles a subscription.
func (i PaymentIntent) ProvisionsSubscription() bool {
	return i == IntentCardPurchase || i == IntentSubscription || i == IntentBundled
}

// MinorUnitFactor converts gateway amounts (kobo/cents) to major units.
const MinorUnitFactor = 100

// Payment records one attempted charge against the external gateway.
type Payment struct {
	ID          string // UUID
	Reference   string // globally unique; shared with the gateway
	UserID      string // UUID (owner; set at creation)
	Amount      int64  // minor units (integer), to avoid float errors
	Currency    string
	Status      PaymentStatus
	Intent      PaymentIntent
	Method      *string // gateway channel, populated on verification
	Metadata    map[string]interface{}
	PaidAt      *time.Time // set when completed
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Description string
}

var referencePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// ValidReference reports whether ref is a syntactically acceptable payment
// reference. Checked before any I/O.
func ValidReference(ref string) bool {
	return referencePattern.MatchString(ref)
}

// AmountMajor renders an amount in minor units as a fixed two-decimal major
// unit string, e.g. 450000 -> "4500.00".
func AmountMajor(minor int64) string {
	return fmt.Sprintf("%.2f", float64(minor)/float64(MinorUnitFactor))
}

// Truthy interprets the loosely-typed boolean values that arrive in
// client-supplied metadata bags: true, "true", "1", "yes", 1 all count.
// It is only consulted at the payment-creation boundary, where metadata
// flags are folded into an explicit intent.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1" || s == "yes"
	case int:
		return t == 1
	case int64:
		return t == 1
	case float64:
		return t == 1
	default:
		return false
	}
}

// IntentFromMetadata folds legacy metadata trigger flags into an explicit
// intent. card_purchase wins over subscription because a card purchase
// bundles a subscription anyway.
func IntentFromMetadata(meta map[string]interface{}) (PaymentIntent, bool) {
	if meta == nil {
		return "", false
	}
	if Truthy(meta["card_purchase"]) {
		return IntentCardPurchase, true
	}
	if Truthy(meta["subscription"]) {
		return IntentSubscription, true
	}
	return "", false
}

// ParseIntent validates an explicit intent string from a client request.
func ParseIntent(s string) (PaymentIntent, error) {
	switch PaymentIntent(s) {
	case IntentCardPurchase, IntentSubscription, IntentBundled:
		return PaymentIntent(s), nil
	}
	return "", fmt.Errorf("unknown payment intent %q", s)
}

// MergeMetadata overlays src onto a copy of dst. Existing keys in dst survive
// unless src explicitly carries the same key; dst itself is never mutated.
func MergeMetadata(dst, src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

// MetaString fetches a non-empty string value from a metadata bag.
func MetaString(meta map[string]interface{}, key string) (string, bool) {
	if meta == nil {
		return "", false
	}
	if s, ok := meta[key].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s), true
	}
	return "", false
}
