package dal

import (
	"context"
	"errors"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
)

var (
	// ErrProfileNotFound is returned by GetProfile for an unknown user
	ErrProfileNotFound = errors.New("profile not found")
	// ErrVersionConflict is returned by SaveProfile when the stored version
	// moved on since the profile was read
	ErrVersionConflict = errors.New("profile version conflict")
)

// ProfileDAL defines the interface for the player profile store.
//
// SaveProfile is a compare-and-swap on profile.Version: version 0 inserts
// and fails if the user already exists, any other version updates only
// when the stored version matches. On success the profile's Version is
// advanced to the stored value.
type ProfileDAL interface {
	GetProfile(ctx context.Context, userID string) (*models.PlayerProfile, error)
	SaveProfile(ctx context.Context, profile *models.PlayerProfile) error
	Ping(ctx context.Context) error
	Close() error
}
