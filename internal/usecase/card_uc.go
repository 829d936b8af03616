// File: internal/usecase/card_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/itzhord/onecard-sub000/internal/domain"
	"github.com/itzhord/onecard-sub000/internal/domain/model"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/repository"
	"github.com/itzhord/onecard-sub000/internal/infra/logging"
)

// Compile-time check
var _ CardProvisioner = (*cardUC)(nil)

// CardProvisioner creates a card record as a side effect of a completed
// card-type or bundled payment.
type CardProvisioner interface {
	ProvisionCard(ctx context.Context, userID string, meta map[string]interface{}) (*model.Card, error)
}

const (
	cardIDAttempts    = 5
	cardSuffixLen     = 5
	cardSuffixLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type cardUC struct {
	cards repository.CardRepository
	log   *zerolog.Logger
	now   func() time.Time
}

func NewCardProvisioner(cards repository.CardRepository, logger *zerolog.Logger) *cardUC {
	return &cardUC{cards: cards, log: logger, now: time.Now}
}

// ProvisionCard derives naming from the payment metadata, generates a
// collision-free card id and persists the card. Id generation is bounded:
// after cardIDAttempts timestamp-based candidates it falls back to a single
// ULID-based id, which is checked once and carries enough entropy that a
// collision means a broken store, not bad luck.
func (u *cardUC) ProvisionCard(ctx context.Context, userID string, meta map[string]interface{}) (*model.Card, error) {
	defer logging.TraceDuration(u.log, "CardUC.ProvisionCard")()

	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	card := model.NewCard(userID, meta, u.now())

	for attempt := 0; attempt < cardIDAttempts; attempt++ {
		candidate, err := u.candidateID()
		if err != nil {
			return nil, err
		}
		taken, err := u.cards.Exists(ctx, nil, candidate)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}
		card.CardID = candidate
		err = u.cards.Insert(ctx, nil, card)
		if err == nil {
			u.log.Info().Str("card_id", card.CardID).Str("user_id", userID).Str("card_name", card.CardName).Msg("card provisioned")
			return card, nil
		}
		// lost the exists/insert race to a concurrent insert; regenerate
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return nil, err
	}

	// high-entropy fallback, checked once
	card.CardID = model.CardIDPrefix + ulid.MustNew(ulid.Timestamp(u.now()), ulid.DefaultEntropy()).String()
	if err := u.cards.Insert(ctx, nil, card); err != nil {
		return nil, fmt.Errorf("card id fallback insert: %w", err)
	}
	u.log.Info().Str("card_id", card.CardID).Str("user_id", userID).Msg("card provisioned with fallback id")
	return card, nil
}

// candidateID is <prefix><millisecond-timestamp><5-char-random-suffix>.
func (u *cardUC) candidateID() (string, error) {
	buf := make([]byte, cardSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("card id entropy: %w", err)
	}
	for i, b := range buf {
		buf[i] = cardSuffixLetters[int(b)%len(cardSuffixLetters)]
	}
	return fmt.Sprintf("%s%d%s", model.CardIDPrefix, u.now().UnixMilli(), string(buf)), nil
}
