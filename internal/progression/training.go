package progression

import (
	"context"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
	"github.com/Billy-Davies-2/xpulse-cards/internal/ranks"
)

// Train adds TrainExperience to the selected card and assigns a random
// work when the card has none.
func (e *Engine) Train(ctx context.Context, userID string) (*TrainResult, error) {
	var res TrainResult
	var snapshot models.CardProgress
	_, err := e.mutate(ctx, "train", userID, func(p *models.PlayerProfile) error {
		code, cp, err := e.selected(p)
		if err != nil {
			return err
		}

		cp.Experience += TrainExperience

		res = TrainResult{CardCode: code, ExperienceGained: TrainExperience}
		if _, known := e.works.Lookup(cp.Work); !cp.HasWork() || !known {
			w := e.works.PickRandom(e.rnd)
			cp.Work = w.Code
			cp.WorkRemainingUses = w.MaxUses
			res.AssignedWorkName = w.Name
		}

		level, err := ranks.VisualLevel(cp.Experience, cp.Rank)
		if err != nil {
			return err
		}
		res.TotalExperience = cp.Experience
		res.Rank = cp.Rank
		res.VisualLevel = level
		res.RemainingUses = cp.WorkRemainingUses
		snapshot = *cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(pubsub.EventCardTrained, userID, cardPayload(res.CardCode, &snapshot))
	return &res, nil
}

// Work spends one use of the selected card's work for its experience yield.
// The assignment is cleared when the last use is spent.
func (e *Engine) Work(ctx context.Context, userID string) (*WorkResult, error) {
	var res WorkResult
	var snapshot models.CardProgress
	_, err := e.mutate(ctx, "work", userID, func(p *models.PlayerProfile) error {
		code, cp, err := e.selected(p)
		if err != nil {
			return err
		}
		if !cp.HasWork() || cp.WorkRemainingUses <= 0 {
			return ErrNoWorkAssigned
		}
		w, ok := e.works.Lookup(cp.Work)
		if !ok {
			return ErrNoWorkAssigned
		}

		cp.Experience += w.ExperienceYield
		cp.WorkRemainingUses--
		finished := cp.WorkRemainingUses <= 0
		if finished {
			cp.ClearWork()
		}

		level, err := ranks.VisualLevel(cp.Experience, cp.Rank)
		if err != nil {
			return err
		}
		res = WorkResult{
			CardCode:         code,
			WorkName:         w.Name,
			ExperienceGained: w.ExperienceYield,
			TotalExperience:  cp.Experience,
			Rank:             cp.Rank,
			VisualLevel:      level,
			RemainingUses:    cp.WorkRemainingUses,
			Finished:         finished,
		}
		snapshot = *cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := cardPayload(res.CardCode, &snapshot)
	payload["work"] = res.WorkName
	e.publish(pubsub.EventCardWorked, userID, payload)
	return &res, nil
}

// Ascend promotes the selected card to the next rank once the experience
// earned since its last promotion reaches the rank threshold. Not meeting
// the threshold is a normal outcome reported with Promoted false.
func (e *Engine) Ascend(ctx context.Context, userID string) (*AscendResult, error) {
	var res AscendResult
	var snapshot models.CardProgress
	_, err := e.mutate(ctx, "ascend", userID, func(p *models.PlayerProfile) error {
		code, cp, err := e.selected(p)
		if err != nil {
			return err
		}

		res = AscendResult{CardCode: code, PreviousRank: cp.Rank, Rank: cp.Rank}
		earned := cp.Experience - cp.RankExperience
		next, ok, err := ranks.CanAscend(earned, cp.Rank)
		if err != nil {
			return err
		}
		if !ok {
			res.VisualLevel, _ = ranks.VisualLevel(cp.Experience, cp.Rank)
			if cp.Rank == ranks.Terminal() {
				res.Terminal = true
			} else {
				res.ExperienceNeeded = ranks.LevelsPerRank*ranks.ExperiencePerLevel - earned
			}
			return errNoChange
		}

		cp.Rank = next
		cp.RankExperience = cp.Experience
		p.HasAscended = true

		res.Promoted = true
		res.Rank = next
		res.VisualLevel, _ = ranks.VisualLevel(cp.Experience, next)
		res.Terminal = next == ranks.Terminal()
		snapshot = *cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Promoted {
		payload := cardPayload(res.CardCode, &snapshot)
		payload["previousRank"] = string(res.PreviousRank)
		e.publish(pubsub.EventCardAscended, userID, payload)
	}
	return &res, nil
}
