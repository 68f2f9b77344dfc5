// Package ranks holds the fixed rank ladder and the level formula.
package ranks

import (
	"errors"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
)

const (
	// LevelsPerRank is the visual level span of one rank
	LevelsPerRank = 100
	// ExperiencePerLevel is how much experience one in-rank level costs
	ExperiencePerLevel = 5
)

// ErrUnknownRank is returned for a rank that is not on the ladder
var ErrUnknownRank = errors.New("unknown rank")

// Ladder in ascending order
var ladder = []models.Rank{
	"Trainee",
	"Idol",
	"Star",
	"Superstar",
	"Global Superstar",
	"Galactic Superstar",
	"Universal Superstar",
	"Deity",
}

// All returns a copy of the ladder
func All() []models.Rank {
	out := make([]models.Rank, len(ladder))
	copy(out, ladder)
	return out
}

// First is the starting rank of every card
func First() models.Rank {
	return ladder[0]
}

// Terminal is the last rank; ascension always fails there
func Terminal() models.Rank {
	return ladder[len(ladder)-1]
}

// Index returns the position of rank on the ladder
func Index(rank models.Rank) (int, error) {
	for i, r := range ladder {
		if r == rank {
			return i, nil
		}
	}
	return 0, ErrUnknownRank
}

// Next returns the following rank, or false at the terminal rank
func Next(rank models.Rank) (models.Rank, bool, error) {
	i, err := Index(rank)
	if err != nil {
		return "", false, err
	}
	if i == len(ladder)-1 {
		return "", false, nil
	}
	return ladder[i+1], true, nil
}

// VisualLevel is 100 * rankIndex + floor(experience / 5).
// Negative experience is treated as zero.
func VisualLevel(experience int, rank models.Rank) (int, error) {
	i, err := Index(rank)
	if err != nil {
		return 0, err
	}
	if experience < 0 {
		experience = 0
	}
	return LevelsPerRank*i + experience/ExperiencePerLevel, nil
}

// Threshold is the visual level required to leave rank
func Threshold(rank models.Rank) (int, error) {
	i, err := Index(rank)
	if err != nil {
		return 0, err
	}
	return LevelsPerRank * (i + 1), nil
}

// CanAscend evaluates the promotion rule for experience earned within rank.
// It returns the next rank when the threshold is met.
func CanAscend(rankExperience int, rank models.Rank) (models.Rank, bool, error) {
	next, ok, err := Next(rank)
	if err != nil || !ok {
		return "", false, err
	}
	level, err := VisualLevel(rankExperience, rank)
	if err != nil {
		return "", false, err
	}
	threshold, err := Threshold(rank)
	if err != nil {
		return "", false, err
	}
	if level < threshold {
		return "", false, nil
	}
	return next, true, nil
}
