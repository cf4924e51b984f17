package game

import "testing"

func intPtr(v int) *int { return &v }

func TestSubmitPairsCompatibleTickets(t *testing.T) {
	q := NewQueue(10)

	p, err := q.Submit("u1", Preferences{Difficulty: intPtr(3), TimeLimitMinutes: 10, Side: ChoiceRandom})
	if err != nil {
		t.Fatalf("Submit u1: %v", err)
	}
	if p != nil {
		t.Fatalf("expected u1 to queue, got pairing")
	}

	p, err = q.Submit("u2", Preferences{Difficulty: intPtr(3), TimeLimitMinutes: 10, Side: ChoiceRandom})
	if err != nil {
		t.Fatalf("Submit u2: %v", err)
	}
	if p == nil {
		t.Fatalf("expected pairing for matching preferences")
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after pairing, len=%d", q.Len())
	}
	seats := map[string]bool{p.White.UserID: true, p.Black.UserID: true}
	if !seats["u1"] || !seats["u2"] {
		t.Fatalf("pairing seats wrong: white=%s black=%s", p.White.UserID, p.Black.UserID)
	}
}

func TestSubmitKeepsIncompatibleTicketsQueued(t *testing.T) {
	q := NewQueue(10)

	if _, err := q.Submit("u1", Preferences{TimeLimitMinutes: 5, Side: ChoiceRandom}); err != nil {
		t.Fatalf("Submit u1: %v", err)
	}
	p, err := q.Submit("u2", Preferences{TimeLimitMinutes: 10, Side: ChoiceRandom})
	if err != nil {
		t.Fatalf("Submit u2: %v", err)
	}
	if p != nil {
		t.Fatalf("expected no pairing for mismatched time limits")
	}
	if q.Len() != 2 {
		t.Fatalf("expected both tickets queued, len=%d", q.Len())
	}

	// Same explicit side never matches either.
	q2 := NewQueue(10)
	q2.Submit("a", Preferences{Side: ChoiceWhite})
	p, _ = q2.Submit("b", Preferences{Side: ChoiceWhite})
	if p != nil {
		t.Fatalf("expected no pairing for colliding side preferences")
	}

	// Difficulty nil only matches difficulty nil.
	q3 := NewQueue(10)
	q3.Submit("a", Preferences{Difficulty: intPtr(2)})
	p, _ = q3.Submit("b", Preferences{})
	if p != nil {
		t.Fatalf("expected no pairing when only one side sets difficulty")
	}
}

func TestResubmissionSupersedesPriorTicket(t *testing.T) {
	q := NewQueue(10)

	q.Submit("u1", Preferences{TimeLimitMinutes: 5})
	q.Submit("u1", Preferences{TimeLimitMinutes: 10})
	if q.Len() != 1 {
		t.Fatalf("expected single ticket after resubmission, len=%d", q.Len())
	}

	// The superseding preferences are the ones that match.
	p, err := q.Submit("u2", Preferences{TimeLimitMinutes: 10})
	if err != nil {
		t.Fatalf("Submit u2: %v", err)
	}
	if p == nil {
		t.Fatalf("expected pairing against resubmitted ticket")
	}
}

func TestExplicitSidePreferenceHonored(t *testing.T) {
	q := NewQueue(10)

	q.Submit("wants-black", Preferences{Side: ChoiceBlack})
	p, err := q.Submit("random", Preferences{Side: ChoiceRandom})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p == nil {
		t.Fatalf("expected pairing")
	}
	if p.Black.UserID != "wants-black" {
		t.Fatalf("explicit black preference ignored: black=%s", p.Black.UserID)
	}
	if p.White.UserID != "random" {
		t.Fatalf("expected random ticket on white, got %s", p.White.UserID)
	}
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(1)

	if _, err := q.Submit("u1", Preferences{TimeLimitMinutes: 5}); err != nil {
		t.Fatalf("Submit u1: %v", err)
	}
	if _, err := q.Submit("u2", Preferences{TimeLimitMinutes: 10}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	q := NewQueue(10)

	q.Submit("u1", Preferences{})
	if !q.Remove("u1") {
		t.Fatalf("expected Remove to find ticket")
	}
	if q.Remove("u1") {
		t.Fatalf("expected second Remove to be a no-op")
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, len=%d", q.Len())
	}
}
