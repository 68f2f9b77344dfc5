package progression

import (
	"context"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
	"github.com/Billy-Davies-2/xpulse-cards/internal/ranks"
)

// GrantStarterCard gives a player with no cards one random card and selects it
func (e *Engine) GrantStarterCard(ctx context.Context, userID string) (*StarterResult, error) {
	var res StarterResult
	_, err := e.mutate(ctx, "start", userID, func(p *models.PlayerProfile) error {
		if len(p.OwnedCards) > 0 {
			return ErrAlreadyHasCard
		}
		codes := e.cards.AllCodes()
		if len(codes) == 0 {
			return ErrCardNotFound
		}
		code := codes[e.rnd.Intn(len(codes))]
		def, _ := e.cards.Lookup(code)

		p.AddCard(code)
		p.SelectedCard = code
		cp := p.Progress(code, ranks.First())

		res = StarterResult{Card: def, Progress: *cp}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(pubsub.EventStarterGranted, userID, cardPayload(res.Card.Code, &res.Progress))
	return &res, nil
}

// SelectCard makes an owned card the target of train, work and ascend
func (e *Engine) SelectCard(ctx context.Context, userID, cardCode string) (*SelectResult, error) {
	def, ok := e.cards.Lookup(cardCode)
	if !ok {
		return nil, ErrCardNotFound
	}

	var cp models.CardProgress
	profile, err := e.mutate(ctx, "select", userID, func(p *models.PlayerProfile) error {
		if !p.Owns(cardCode) {
			return ErrCardNotOwned
		}
		cp = *p.Progress(cardCode, ranks.First())
		p.SelectedCard = cardCode
		return nil
	})
	if err != nil {
		return nil, err
	}

	level, err := ranks.VisualLevel(cp.Experience, cp.Rank)
	if err != nil {
		return nil, err
	}

	e.publish(pubsub.EventCardSelected, userID, cardPayload(cardCode, &cp))
	return &SelectResult{Card: def, Level: level, Profile: profile}, nil
}

// BuyCard adds a catalog card to the player's collection. Buying a card
// already owned is reported in the result and changes nothing. A player
// with no selection gets the bought card selected, so a selection always
// exists once the collection is non-empty.
func (e *Engine) BuyCard(ctx context.Context, userID, cardCode string) (*BuyResult, error) {
	def, ok := e.cards.Lookup(cardCode)
	if !ok {
		return nil, ErrCardNotFound
	}

	res := BuyResult{Card: def}
	_, err := e.mutate(ctx, "buy", userID, func(p *models.PlayerProfile) error {
		if !p.AddCard(cardCode) {
			res.AlreadyOwned = true
			res.OwnedCount = len(p.OwnedCards)
			return errNoChange
		}
		res.OwnedCount = len(p.OwnedCards)
		if p.SelectedCard == "" {
			p.Progress(cardCode, ranks.First())
			p.SelectedCard = cardCode
			res.Selected = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.AlreadyOwned {
		e.publish(pubsub.EventCardBought, userID, map[string]interface{}{
			"cardCode": cardCode,
			"category": string(def.Category),
			"selected": res.Selected,
		})
	}
	return &res, nil
}

// Profile returns a snapshot of the player's collection. An unknown
// player gets an empty view and nothing is stored.
func (e *Engine) Profile(ctx context.Context, userID string) (*ProfileView, error) {
	p, err := e.read(ctx, "profile", userID)
	if err != nil {
		return nil, err
	}

	view := &ProfileView{
		UserID:       userID,
		SelectedCard: p.SelectedCard,
		HasAscended:  p.HasAscended,
		MailboxSize:  len(p.Mailbox),
		Cards:        make([]CardView, 0, len(p.OwnedCards)),
	}
	for _, code := range p.OwnedCards {
		def, ok := e.cards.Lookup(code)
		if !ok {
			def = models.CardDefinition{Code: code, Category: models.CategoryUnknown, DisplayName: code}
		}
		cp := models.CardProgress{Rank: ranks.First()}
		if stored, ok := p.CardProgress[code]; ok {
			cp = *stored
		}
		level, _ := ranks.VisualLevel(cp.Experience, cp.Rank)
		view.Cards = append(view.Cards, CardView{
			Card:     def,
			Progress: cp,
			Level:    level,
			Selected: code == p.SelectedCard,
		})
	}
	return view, nil
}

// ResetProfile wipes a player's cards, progress, mailbox and ascension marker
func (e *Engine) ResetProfile(ctx context.Context, userID string) (*ResetResult, error) {
	res := ResetResult{UserID: userID}
	_, err := e.mutate(ctx, "reset", userID, func(p *models.PlayerProfile) error {
		if p.Version == 0 {
			return errNoChange
		}
		res.Existed = true
		res.CardsRemoved = len(p.OwnedCards)

		version := p.Version
		*p = *models.NewPlayerProfile(userID)
		p.Version = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Existed {
		e.publish(pubsub.EventProfileReset, userID, map[string]interface{}{
			"cardsRemoved": res.CardsRemoved,
		})
	}
	return &res, nil
}
