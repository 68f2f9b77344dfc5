// Package progression implements the card progression rules on top of a
// profile store: starter grants, training, work, ascension, shop and mailbox.
package progression

import (
	"context"
	"errors"
	"time"

	"github.com/Billy-Davies-2/xpulse-cards/internal/catalog"
	"github.com/Billy-Davies-2/xpulse-cards/internal/dal"
	"github.com/Billy-Davies-2/xpulse-cards/internal/lock"
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
	"github.com/Billy-Davies-2/xpulse-cards/internal/random"
	"github.com/Billy-Davies-2/xpulse-cards/internal/ranks"
)

const (
	// TrainExperience is the experience added by one train call
	TrainExperience = 40

	// DefaultStorageTimeout bounds one operation including lock wait
	DefaultStorageTimeout = 5 * time.Second

	maxSaveAttempts = 3
)

// errNoChange lets a mutation report success without writing
var errNoChange = errors.New("no change")

// Engine applies progression operations to player profiles.
// Every mutating operation holds the user's lock for one
// load-modify-save cycle and saves with a version check.
type Engine struct {
	store   dal.ProfileDAL
	cards   *catalog.CardCatalog
	works   *catalog.WorkCatalog
	rnd     random.Source
	locker  lock.Manager
	events  pubsub.Publisher
	timeout time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithRandom sets the random source used for starter draws and work picks
func WithRandom(src random.Source) Option {
	return func(e *Engine) { e.rnd = src }
}

// WithLocker sets the per-user lock manager
func WithLocker(m lock.Manager) Option {
	return func(e *Engine) { e.locker = m }
}

// WithPublisher sets where committed changes are announced
func WithPublisher(p pubsub.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithTimeout bounds each operation
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an engine over store using the given catalogs
func New(store dal.ProfileDAL, cards *catalog.CardCatalog, works *catalog.WorkCatalog, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		cards:   cards,
		works:   works,
		rnd:     random.NewCrypto(),
		locker:  lock.NewLocalLock(),
		timeout: DefaultStorageTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cards returns the card catalog
func (e *Engine) Cards() *catalog.CardCatalog { return e.cards }

// Works returns the work catalog
func (e *Engine) Works() *catalog.WorkCatalog { return e.works }

// Ping checks the profile store
func (e *Engine) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.store.Ping(ctx); err != nil {
		return storageError(err)
	}
	return nil
}

// load returns the stored profile or a fresh unsaved one
func (e *Engine) load(ctx context.Context, userID string) (*models.PlayerProfile, error) {
	p, err := e.store.GetProfile(ctx, userID)
	if errors.Is(err, dal.ErrProfileNotFound) {
		return models.NewPlayerProfile(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// read loads a profile for a read-only operation
func (e *Engine) read(ctx context.Context, op, userID string) (*models.PlayerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	p, err := e.load(ctx, userID)
	if err != nil {
		logger.Error("Profile read failed", "op", op, "userId", userID, "error", err)
		return nil, storageError(err)
	}
	return p, nil
}

// mutate runs fn on a copy of the user's profile and saves it.
// If fn returns an error nothing is written; errNoChange means success
// without a write. The returned profile is the committed state.
func (e *Engine) mutate(ctx context.Context, op, userID string, fn func(p *models.PlayerProfile) error) (*models.PlayerProfile, error) {
	log := logger.With("op", op, "userId", userID)
	log.Debug("Progression operation started")

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	key := lock.ProfileKey(userID)
	token, ok, err := e.locker.Acquire(ctx, key)
	if err != nil {
		log.Error("Failed to acquire profile lock", "error", err)
		return nil, storageError(err)
	}
	if !ok {
		log.Error("Profile lock busy")
		return nil, storageError(errors.New("profile lock busy"))
	}
	defer func() {
		// The operation context may already be spent
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), time.Second)
		defer releaseCancel()
		if err := e.locker.Release(releaseCtx, key, token); err != nil {
			log.Warn("Failed to release profile lock", "error", err)
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		current, err := e.load(ctx, userID)
		if err != nil {
			log.Error("Profile load failed", "error", err)
			return nil, storageError(err)
		}

		working := current.Clone()
		if err := fn(working); err != nil {
			if errors.Is(err, errNoChange) {
				return current, nil
			}
			return nil, err
		}

		err = e.store.SaveProfile(ctx, working)
		if err == nil {
			log.Info("Profile updated", "version", working.Version)
			return working, nil
		}
		if !errors.Is(err, dal.ErrVersionConflict) {
			log.Error("Profile save failed", "error", err)
			return nil, storageError(err)
		}
		// Another instance wrote without our lock (e.g. lock TTL expired)
		log.Warn("Profile version conflict, retrying", "attempt", attempt)
		lastErr = err
	}
	return nil, storageError(lastErr)
}

func (e *Engine) publish(eventType, userID string, payload map[string]interface{}) {
	if e.events == nil {
		return
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["userId"] = userID
	e.events.Publish(pubsub.NewEvent(eventType, payload))
}

// cardPayload is the common event payload for a card's progress
func cardPayload(code string, cp *models.CardProgress) map[string]interface{} {
	level, _ := ranks.VisualLevel(cp.Experience, cp.Rank)
	return map[string]interface{}{
		"cardCode":   code,
		"experience": cp.Experience,
		"rank":       string(cp.Rank),
		"level":      level,
	}
}

// selected resolves the selected card and its progress entry
func (e *Engine) selected(p *models.PlayerProfile) (string, *models.CardProgress, error) {
	code := p.SelectedCard
	if code == "" {
		return "", nil, ErrNoCardSelected
	}
	if _, ok := e.cards.Lookup(code); !ok {
		return "", nil, ErrCardNotFound
	}
	cp := p.Progress(code, ranks.First())
	if _, err := ranks.Index(cp.Rank); err != nil {
		return "", nil, err
	}
	return code, cp, nil
}
