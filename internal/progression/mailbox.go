package progression

import (
	"context"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

// ListMailbox returns the pending mail in display order, positions from 1
func (e *Engine) ListMailbox(ctx context.Context, userID string) ([]MailboxEntry, error) {
	p, err := e.read(ctx, "inbox", userID)
	if err != nil {
		return nil, err
	}

	entries := make([]MailboxEntry, 0, len(p.Mailbox))
	for i, item := range p.Mailbox {
		entries = append(entries, MailboxEntry{
			Position:    i + 1,
			Item:        item,
			DisplayName: e.mailDisplayName(item),
		})
	}
	return entries, nil
}

func (e *Engine) mailDisplayName(item models.MailItem) string {
	if item.Type == models.MailItemWork {
		if w, ok := e.works.Lookup(item.Code); ok {
			return w.Name
		}
	}
	if item.Name != "" {
		return item.Name
	}
	return item.Code
}

// UseMailboxItem activates the item at the 1-based position. A work grant
// replaces the selected card's work with a fresh full set of uses.
func (e *Engine) UseMailboxItem(ctx context.Context, userID string, position int) (*UseMailResult, error) {
	var res UseMailResult
	_, err := e.mutate(ctx, "use", userID, func(p *models.PlayerProfile) error {
		if position < 1 || position > len(p.Mailbox) {
			return ErrItemNotFound
		}
		item := p.Mailbox[position-1]
		res = UseMailResult{Item: item}

		if item.Type == models.MailItemWork {
			w, ok := e.works.Lookup(item.Code)
			if !ok {
				return ErrItemNotFound
			}
			code, cp, err := e.selected(p)
			if err != nil {
				return err
			}
			cp.Work = w.Code
			cp.WorkRemainingUses = w.MaxUses

			res.CardCode = code
			res.WorkName = w.Name
			res.RemainingUses = w.MaxUses
		}

		p.Mailbox = append(p.Mailbox[:position-1], p.Mailbox[position:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(pubsub.EventMailUsed, userID, map[string]interface{}{
		"itemId":   res.Item.ID,
		"itemType": res.Item.Type,
		"code":     res.Item.Code,
		"cardCode": res.CardCode,
	})
	return &res, nil
}

// GrantWorkMail appends a random work grant to the player's mailbox
func (e *Engine) GrantWorkMail(ctx context.Context, userID string) (*models.MailItem, error) {
	var item models.MailItem
	_, err := e.mutate(ctx, "grant", userID, func(p *models.PlayerProfile) error {
		w := e.works.PickRandom(e.rnd)
		item = models.MailItem{
			ID:   uuid.NewString(),
			Type: models.MailItemWork,
			Code: w.Code,
			Name: w.Name,
		}
		p.Mailbox = append(p.Mailbox, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(pubsub.EventMailGranted, userID, map[string]interface{}{
		"itemId": item.ID,
		"code":   item.Code,
	})
	return &item, nil
}
