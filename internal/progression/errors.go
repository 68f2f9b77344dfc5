package progression

import (
	"errors"
	"fmt"

	"github.com/Billy-Davies-2/xpulse-cards/internal/ranks"
)

// Domain errors returned by Engine operations. Callers match them with errors.Is.
var (
	ErrCardNotFound       = errors.New("card not found")
	ErrCardNotOwned       = errors.New("card not owned")
	ErrAlreadyHasCard     = errors.New("already has a card")
	ErrNoCardSelected     = errors.New("no card selected")
	ErrNoWorkAssigned     = errors.New("no work assigned")
	ErrUnknownRank        = ranks.ErrUnknownRank
	ErrItemNotFound       = errors.New("mailbox item not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrValidation         = errors.New("validation error")
)

func storageError(cause error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, cause)
}
