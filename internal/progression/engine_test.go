package progression

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Billy-Davies-2/xpulse-cards/internal/catalog"
	"github.com/Billy-Davies-2/xpulse-cards/internal/dal"
	"github.com/Billy-Davies-2/xpulse-cards/internal/lock"
	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
	"github.com/Billy-Davies-2/xpulse-cards/internal/random"
	"github.com/Billy-Davies-2/xpulse-cards/internal/ranks"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []pubsub.Event
}

func (r *recordingPublisher) Publish(e pubsub.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newTestEngine(t *testing.T, works *catalog.WorkCatalog, opts ...Option) (*Engine, *dal.MemoryDAL, *recordingPublisher) {
	t.Helper()
	store := dal.NewMemoryDAL()
	pub := &recordingPublisher{}
	if works == nil {
		works = catalog.DefaultWorks()
	}
	opts = append([]Option{WithRandom(random.NewFixed(0)), WithPublisher(pub)}, opts...)
	return New(store, catalog.DefaultCards(), works, opts...), store, pub
}

func singleWork(t *testing.T, w models.WorkDefinition) *catalog.WorkCatalog {
	t.Helper()
	c, err := catalog.NewWorkCatalog(w)
	if err != nil {
		t.Fatalf("NewWorkCatalog: %v", err)
	}
	return c
}

func mustGet(t *testing.T, store dal.ProfileDAL, userID string) *models.PlayerProfile {
	t.Helper()
	p, err := store.GetProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetProfile(%s): %v", userID, err)
	}
	return p
}

func TestStarterTrainWorkScenario(t *testing.T) {
	e, store, _ := newTestEngine(t, singleWork(t, models.WorkDefinition{Code: "DRILL", Name: "Drill", ExperienceYield: 10, MaxUses: 3}))
	ctx := context.Background()

	starter, err := e.GrantStarterCard(ctx, "u1")
	if err != nil {
		t.Fatalf("GrantStarterCard: %v", err)
	}
	if starter.Card.Code != "JYRB01" {
		t.Fatalf("expected JYRB01, got %s", starter.Card.Code)
	}
	p := mustGet(t, store, "u1")
	if len(p.OwnedCards) != 1 || p.OwnedCards[0] != "JYRB01" || p.SelectedCard != "JYRB01" {
		t.Fatalf("unexpected profile after start: %+v", p)
	}

	tr, err := e.Train(ctx, "u1")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if tr.TotalExperience != 40 || tr.ExperienceGained != TrainExperience {
		t.Errorf("expected 40 experience, got %+v", tr)
	}
	if tr.AssignedWorkName != "Drill" || tr.RemainingUses != 3 {
		t.Errorf("expected Drill with 3 uses, got %+v", tr)
	}

	for i := 0; i < 3; i++ {
		wr, err := e.Work(ctx, "u1")
		if err != nil {
			t.Fatalf("Work %d: %v", i, err)
		}
		if wr.RemainingUses != 2-i {
			t.Errorf("work %d: expected %d remaining, got %d", i, 2-i, wr.RemainingUses)
		}
		if wr.Finished != (i == 2) {
			t.Errorf("work %d: finished=%v", i, wr.Finished)
		}
	}

	cp := mustGet(t, store, "u1").CardProgress["JYRB01"]
	if cp.Experience != 70 || cp.Work != "" || cp.WorkRemainingUses != 0 {
		t.Errorf("expected 70 experience and no work, got %+v", cp)
	}

	if _, err := e.Work(ctx, "u1"); !errors.Is(err, ErrNoWorkAssigned) {
		t.Errorf("expected ErrNoWorkAssigned after last use, got %v", err)
	}
}

func TestTrainKeepsExistingWork(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	first, err := e.Train(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if first.AssignedWorkName != "Dance Practice" {
		t.Fatalf("expected Dance Practice, got %q", first.AssignedWorkName)
	}
	if _, err := e.Work(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	second, err := e.Train(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if second.AssignedWorkName != "" {
		t.Errorf("train should not replace an active work, got %q", second.AssignedWorkName)
	}
	cp := mustGet(t, store, "u1").CardProgress["JYRB01"]
	if cp.WorkRemainingUses != 2 || cp.Experience != 40+10+40 {
		t.Errorf("unexpected progress %+v", cp)
	}
}

func TestGrantStarterCardAlreadyHasCard(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.BuyCard(ctx, "u1", "JYRBD01"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.GrantStarterCard(ctx, "u1"); !errors.Is(err, ErrAlreadyHasCard) {
		t.Fatalf("expected ErrAlreadyHasCard, got %v", err)
	}
	if got := mustGet(t, store, "u1").OwnedCards; len(got) != 1 {
		t.Errorf("owned cards changed: %v", got)
	}
}

func TestSelectCard(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		code string
		want error
	}{
		{"unknown card", "NOPE", ErrCardNotFound},
		{"catalog card not owned", "JYRBD01", ErrCardNotOwned},
		{"owned card", "JYRB01", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.SelectCard(ctx, "u1", tt.code)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.want == nil && res.Profile.SelectedCard != tt.code {
				t.Errorf("expected %s selected, got %s", tt.code, res.Profile.SelectedCard)
			}
		})
	}
}

func TestSelectBoughtCardInitializesProgress(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.BuyCard(ctx, "u1", "JYRBC01"); err != nil {
		t.Fatal(err)
	}
	if _, ok := mustGet(t, store, "u1").CardProgress["JYRBC01"]; ok {
		t.Fatal("buying a second card should not create progress")
	}
	res, err := e.SelectCard(ctx, "u1", "JYRBC01")
	if err != nil {
		t.Fatal(err)
	}
	if res.Level != 0 {
		t.Errorf("expected level 0, got %d", res.Level)
	}
	cp, ok := mustGet(t, store, "u1").CardProgress["JYRBC01"]
	if !ok || cp.Rank != ranks.First() || cp.Experience != 0 {
		t.Errorf("expected default progress, got %+v", cp)
	}
}

func TestOperationsRequireSelectedCard(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.Train(ctx, "ghost"); !errors.Is(err, ErrNoCardSelected) {
		t.Errorf("Train: expected ErrNoCardSelected, got %v", err)
	}
	if _, err := e.Work(ctx, "ghost"); !errors.Is(err, ErrNoCardSelected) {
		t.Errorf("Work: expected ErrNoCardSelected, got %v", err)
	}
	if _, err := e.Ascend(ctx, "ghost"); !errors.Is(err, ErrNoCardSelected) {
		t.Errorf("Ascend: expected ErrNoCardSelected, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("failed operations should not create profiles, have %d", store.Len())
	}
}

func TestAscend(t *testing.T) {
	big := singleWork(t, models.WorkDefinition{Code: "TOUR", Name: "World Tour", ExperienceYield: 460, MaxUses: 1})
	e, store, pub := newTestEngine(t, big)
	ctx := context.Background()

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Train(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	res, err := e.Ascend(ctx, "u1")
	if err != nil {
		t.Fatalf("Ascend: %v", err)
	}
	if res.Promoted || res.Rank != ranks.First() || res.ExperienceNeeded != 460 {
		t.Fatalf("expected no promotion with 460 needed, got %+v", res)
	}

	if _, err := e.Work(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	res, err = e.Ascend(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Promoted || res.PreviousRank != "Trainee" || res.Rank != "Idol" {
		t.Fatalf("expected Trainee -> Idol, got %+v", res)
	}
	if res.VisualLevel != 200 {
		t.Errorf("expected visual level 200, got %d", res.VisualLevel)
	}

	// No new experience, no second promotion
	for i := 0; i < 3; i++ {
		again, err := e.Ascend(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if again.Promoted || again.Rank != "Idol" {
			t.Fatalf("repeated ascend promoted again: %+v", again)
		}
	}

	p := mustGet(t, store, "u1")
	if !p.HasAscended || p.CardProgress["JYRB01"].Rank != "Idol" {
		t.Errorf("unexpected profile %+v", p.CardProgress["JYRB01"])
	}

	ascended := 0
	for _, typ := range pub.types() {
		if typ == pubsub.EventCardAscended {
			ascended++
		}
	}
	if ascended != 1 {
		t.Errorf("expected one ascension event, got %d", ascended)
	}
}

func TestAscendTerminalRank(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	p := models.NewPlayerProfile("u1")
	p.AddCard("JYRB01")
	p.SelectedCard = "JYRB01"
	p.CardProgress["JYRB01"] = &models.CardProgress{Experience: 100000, Rank: ranks.Terminal()}
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	res, err := e.Ascend(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Promoted || !res.Terminal || res.Rank != ranks.Terminal() {
		t.Errorf("expected terminal non-promotion, got %+v", res)
	}
}

func TestUnknownStoredRank(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	p := models.NewPlayerProfile("u1")
	p.AddCard("JYRB01")
	p.SelectedCard = "JYRB01"
	p.CardProgress["JYRB01"] = &models.CardProgress{Experience: 10, Rank: "Mascot"}
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Train(ctx, "u1"); !errors.Is(err, ErrUnknownRank) {
		t.Fatalf("expected ErrUnknownRank, got %v", err)
	}
	if got := mustGet(t, store, "u1").CardProgress["JYRB01"].Experience; got != 10 {
		t.Errorf("experience changed on failure: %d", got)
	}
}

func TestBuyFirstCardSelectsIt(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := e.BuyCard(ctx, "u1", "JYRBD01")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Selected {
		t.Errorf("expected first bought card to be selected: %+v", res)
	}

	p := mustGet(t, store, "u1")
	if p.SelectedCard != "JYRBD01" {
		t.Fatalf("expected JYRBD01 selected, got %q", p.SelectedCard)
	}
	if cp, ok := p.CardProgress["JYRBD01"]; !ok || cp.Rank != ranks.First() {
		t.Errorf("expected default progress for the selected card, got %+v", cp)
	}

	// Train works straight away
	if _, err := e.Train(ctx, "u1"); err != nil {
		t.Errorf("train after first buy: %v", err)
	}

	second, err := e.BuyCard(ctx, "u1", "JYRBC01")
	if err != nil {
		t.Fatal(err)
	}
	if second.Selected || mustGet(t, store, "u1").SelectedCard != "JYRBD01" {
		t.Errorf("a later buy must keep the current selection: %+v", second)
	}
}

func TestBuyCardIdempotent(t *testing.T) {
	e, store, pub := newTestEngine(t, nil)
	ctx := context.Background()

	first, err := e.BuyCard(ctx, "u1", "JYRBB01")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.BuyCard(ctx, "u1", "JYRBB01")
	if err != nil {
		t.Fatal(err)
	}
	if first.AlreadyOwned || !second.AlreadyOwned {
		t.Errorf("expected first new, second already owned: %+v %+v", first, second)
	}

	owned := mustGet(t, store, "u1").OwnedCards
	if len(owned) != 1 || owned[0] != "JYRBB01" {
		t.Errorf("expected exactly one JYRBB01, got %v", owned)
	}
	if len(pub.types()) != 1 {
		t.Errorf("expected one bought event, got %v", pub.types())
	}

	if _, err := e.BuyCard(ctx, "u1", "NOPE"); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound, got %v", err)
	}
}

func TestMailbox(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	item, err := e.GrantWorkMail(ctx, "u1")
	if err != nil {
		t.Fatalf("GrantWorkMail: %v", err)
	}
	if item.Type != models.MailItemWork || item.Code != "DANCE" || item.ID == "" {
		t.Fatalf("unexpected mail item %+v", item)
	}

	entries, err := e.ListMailbox(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Position != 1 || entries[0].DisplayName != "Dance Practice" {
		t.Fatalf("unexpected mailbox %+v", entries)
	}

	for _, pos := range []int{0, 2, -1} {
		if _, err := e.UseMailboxItem(ctx, "u1", pos); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("position %d: expected ErrItemNotFound, got %v", pos, err)
		}
	}

	if _, err := e.UseMailboxItem(ctx, "u1", 1); !errors.Is(err, ErrNoCardSelected) {
		t.Fatalf("expected ErrNoCardSelected, got %v", err)
	}
	if n := len(mustGet(t, store, "u1").Mailbox); n != 1 {
		t.Fatalf("failed use consumed the item, mailbox has %d", n)
	}

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	res, err := e.UseMailboxItem(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("UseMailboxItem: %v", err)
	}
	if res.WorkName != "Dance Practice" || res.RemainingUses != 3 || res.CardCode != "JYRB01" {
		t.Errorf("unexpected use result %+v", res)
	}

	p := mustGet(t, store, "u1")
	if len(p.Mailbox) != 0 {
		t.Errorf("item should be removed, mailbox %v", p.Mailbox)
	}
	if cp := p.CardProgress["JYRB01"]; cp.Work != "DANCE" || cp.WorkRemainingUses != 3 {
		t.Errorf("work not assigned: %+v", cp)
	}
}

func TestUseMailboxItemOverwritesWork(t *testing.T) {
	e, store, _ := newTestEngine(t, nil, WithRandom(random.NewFixed(0, 0, 3)))
	ctx := context.Background()

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Train(ctx, "u1"); err != nil { // DANCE
		t.Fatal(err)
	}
	if _, err := e.Work(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.GrantWorkMail(ctx, "u1"); err != nil { // VARIETY
		t.Fatal(err)
	}
	if _, err := e.UseMailboxItem(ctx, "u1", 1); err != nil {
		t.Fatal(err)
	}

	cp := mustGet(t, store, "u1").CardProgress["JYRB01"]
	if cp.Work != "VARIETY" || cp.WorkRemainingUses != 1 {
		t.Errorf("expected VARIETY with 1 use, got %+v", cp)
	}
}

func TestUseMailboxItemShiftsPositions(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	p := models.NewPlayerProfile("u1")
	p.Mailbox = []models.MailItem{
		{ID: "a", Type: "gift", Code: "BADGE", Name: "Badge"},
		{ID: "b", Type: models.MailItemWork, Code: "GONE", Name: "Retired"},
		{ID: "c", Type: "gift", Code: "STICKER"},
	}
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	entries, err := e.ListMailbox(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if entries[1].DisplayName != "Retired" || entries[2].DisplayName != "STICKER" {
		t.Errorf("unexpected display names %+v", entries)
	}

	if _, err := e.UseMailboxItem(ctx, "u1", 2); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("unknown work code: expected ErrItemNotFound, got %v", err)
	}

	res, err := e.UseMailboxItem(ctx, "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Item.ID != "a" || res.WorkName != "" {
		t.Errorf("unexpected result %+v", res)
	}

	got := mustGet(t, store, "u1").Mailbox
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("expected [b c], got %+v", got)
	}
}

func TestProfileView(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	empty, err := e.Profile(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Cards) != 0 || store.Len() != 0 {
		t.Errorf("reading an unknown profile should not create it")
	}

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.BuyCard(ctx, "u1", "JYRBD01"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Train(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	view, err := e.Profile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Cards) != 2 || view.SelectedCard != "JYRB01" {
		t.Fatalf("unexpected view %+v", view)
	}
	if !view.Cards[0].Selected || view.Cards[0].Level != 8 {
		t.Errorf("unexpected selected card view %+v", view.Cards[0])
	}
	if view.Cards[1].Card.DisplayName != "Jeongyeon" || view.Cards[1].Progress.Rank != ranks.First() {
		t.Errorf("defaults not applied to unprogressed card %+v", view.Cards[1])
	}
}

func TestResetProfile(t *testing.T) {
	e, store, pub := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := e.ResetProfile(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if res.Existed || store.Len() != 0 {
		t.Errorf("resetting an unknown user should be a no-op: %+v", res)
	}

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.BuyCard(ctx, "u1", "JYRBC01"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.GrantWorkMail(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	res, err = e.ResetProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Existed || res.CardsRemoved != 2 {
		t.Errorf("unexpected reset result %+v", res)
	}

	p := mustGet(t, store, "u1")
	if len(p.OwnedCards) != 0 || p.SelectedCard != "" || len(p.Mailbox) != 0 || len(p.CardProgress) != 0 || p.HasAscended {
		t.Errorf("profile not cleared: %+v", p)
	}

	// A reset player can start over
	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Errorf("start after reset: %v", err)
	}

	types := pub.types()
	if types[len(types)-2] != pubsub.EventProfileReset {
		t.Errorf("expected reset event, got %v", types)
	}
}

func TestConcurrentTrainSameUser(t *testing.T) {
	e, store, _ := newTestEngine(t, nil, WithRandom(random.NewSeeded(7)))
	ctx := context.Background()

	if _, err := e.GrantStarterCard(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Train(ctx, "u1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Train: %v", err)
	}

	p := mustGet(t, store, "u1")
	code := p.SelectedCard
	if got := p.CardProgress[code].Experience; got != n*TrainExperience {
		t.Errorf("lost updates: expected %d experience, got %d", n*TrainExperience, got)
	}
}

// conflictingDAL reports a version conflict on the first save
type conflictingDAL struct {
	*dal.MemoryDAL
	mu        sync.Mutex
	conflicts int
}

func (c *conflictingDAL) SaveProfile(ctx context.Context, p *models.PlayerProfile) error {
	c.mu.Lock()
	if c.conflicts > 0 {
		c.conflicts--
		c.mu.Unlock()
		return dal.ErrVersionConflict
	}
	c.mu.Unlock()
	return c.MemoryDAL.SaveProfile(ctx, p)
}

func TestMutateRetriesVersionConflict(t *testing.T) {
	store := &conflictingDAL{MemoryDAL: dal.NewMemoryDAL(), conflicts: 1}
	e := New(store, catalog.DefaultCards(), catalog.DefaultWorks(), WithRandom(random.NewFixed(0)))
	ctx := context.Background()

	if _, err := e.BuyCard(ctx, "u1", "JYRB01"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	store.conflicts = maxSaveAttempts
	if _, err := e.BuyCard(ctx, "u1", "JYRBB01"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable after repeated conflicts, got %v", err)
	}
	if owned := mustGet(t, store, "u1").OwnedCards; len(owned) != 1 {
		t.Errorf("failed operation leaked a mutation: %v", owned)
	}
}

// brokenDAL fails every call
type brokenDAL struct{}

var errDiskOnFire = errors.New("disk on fire")

func (brokenDAL) GetProfile(context.Context, string) (*models.PlayerProfile, error) {
	return nil, errDiskOnFire
}
func (brokenDAL) SaveProfile(context.Context, *models.PlayerProfile) error { return errDiskOnFire }
func (brokenDAL) Ping(context.Context) error                               { return errDiskOnFire }
func (brokenDAL) Close() error                                             { return nil }

func TestStorageFailures(t *testing.T) {
	e := New(brokenDAL{}, catalog.DefaultCards(), catalog.DefaultWorks())
	ctx := context.Background()

	if _, err := e.Train(ctx, "u1"); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Train: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := e.Profile(ctx, "u1"); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Profile: expected ErrStorageUnavailable, got %v", err)
	}
	if err := e.Ping(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Ping: expected ErrStorageUnavailable, got %v", err)
	}
}

func TestLockTimeout(t *testing.T) {
	locker := lock.NewLocalLock()
	e, _, _ := newTestEngine(t, nil, WithLocker(locker), WithTimeout(20*time.Millisecond))
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, lock.ProfileKey("u1"))
	if err != nil || !ok {
		t.Fatalf("Acquire: %v %v", ok, err)
	}
	defer locker.Release(ctx, lock.ProfileKey("u1"), token)

	start := time.Now()
	if _, err := e.BuyCard(ctx, "u1", "JYRB01"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable while locked, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("operation blocked for %v", time.Since(start))
	}
}
