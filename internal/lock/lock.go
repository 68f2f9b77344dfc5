// Package lock serializes read-modify-write cycles on one player profile.
package lock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotHeld is returned when releasing a key with the wrong token
var ErrNotHeld = errors.New("lock not held")

// Manager acquires and releases per-key locks.
// ok is false when the lock could not be taken within the retry budget.
type Manager interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// ProfileKey is the lock key for a user's profile
func ProfileKey(userID string) string {
	return "xpulse:profile:" + userID
}

func newToken() string {
	return uuid.NewString()
}
