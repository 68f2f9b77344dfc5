package models

import "testing"

func TestAddCard(t *testing.T) {
	p := NewPlayerProfile("u1")

	if !p.AddCard("JYRB01") {
		t.Fatal("expected first add to succeed")
	}
	if p.AddCard("JYRB01") {
		t.Error("expected duplicate add to report false")
	}
	if len(p.OwnedCards) != 1 || !p.Owns("JYRB01") || p.Owns("JYRBB01") {
		t.Errorf("unexpected owned set %v", p.OwnedCards)
	}
}

func TestProgressDefaults(t *testing.T) {
	p := &PlayerProfile{UserID: "u1"}

	cp := p.Progress("JYRB01", "Trainee")
	if cp.Experience != 0 || cp.Rank != "Trainee" || cp.HasWork() {
		t.Errorf("unexpected defaults %+v", cp)
	}

	cp.Experience = 40
	if again := p.Progress("JYRB01", "Idol"); again.Experience != 40 || again.Rank != "Trainee" {
		t.Errorf("existing entry must be returned unchanged, got %+v", again)
	}
}

func TestClearWork(t *testing.T) {
	cp := CardProgress{Work: "DANCE", WorkRemainingUses: 2}
	cp.ClearWork()
	if cp.HasWork() || cp.WorkRemainingUses != 0 {
		t.Errorf("expected work cleared, got %+v", cp)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := NewPlayerProfile("u1")
	p.AddCard("JYRB01")
	p.SelectedCard = "JYRB01"
	p.Progress("JYRB01", "Trainee").Experience = 100
	p.Mailbox = append(p.Mailbox, MailItem{ID: "m1", Type: MailItemWork, Code: "DANCE"})
	p.Version = 3

	c := p.Clone()
	c.OwnedCards[0] = "CHANGED"
	c.CardProgress["JYRB01"].Experience = 999
	c.Mailbox[0].Code = "VOCAL"

	if p.OwnedCards[0] != "JYRB01" {
		t.Error("owned cards shared with clone")
	}
	if p.CardProgress["JYRB01"].Experience != 100 {
		t.Error("card progress shared with clone")
	}
	if p.Mailbox[0].Code != "DANCE" {
		t.Error("mailbox shared with clone")
	}
	if c.Version != 3 || c.SelectedCard != "JYRB01" {
		t.Errorf("scalar fields not copied: %+v", c)
	}
}
