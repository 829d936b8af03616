package model

import "time"

// CardIDPrefix is the fixed three-letter prefix carried by every card id.
const CardIDPrefix = "OCD"

// Card is a provisioned physical/digital card bound to a user. Created only
// as a side effect of a completed card-type or bundled payment.
type Card struct {
	CardID    string // globally unique: OCD + millisecond timestamp + 5-char suffix
	UserID    string
	CardName  string // derived from plan_type metadata, fallback "OneCard"
	CardType  string // derived from card_type metadata, fallback "standard"
	CreatedAt time.Time
}

const (
	DefaultCardName = "OneCard"
	DefaultCardType = "standard"
)

// NewCard derives card naming from the payment's metadata bag.
func NewCard(userID string, meta map[string]interface{}, now time.Time) *Card {
	name, ok := MetaString(meta, "plan_type")
	if !ok {
		name = DefaultCardName
	}
	typ, ok := MetaString(meta, "card_type")
	if !ok {
		typ = DefaultCardType
	}
	return &Card{
		UserID:    userID,
		CardName:  name,
		CardType:  typ,
		CreatedAt: now,
	}
}
