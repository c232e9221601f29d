package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnsureAccountIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.EnsureAccount(ctx, "Ash")
	if err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	second, err := store.EnsureAccount(ctx, "Ash")
	if err != nil {
		t.Fatalf("ensure account again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("account ids differ: %d vs %d", first.ID, second.ID)
	}

	if _, err := store.AccountByName(ctx, "Misty"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRecordScreenshotDerivesHoldings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account, err := store.EnsureAccount(ctx, "Ash")
	if err != nil {
		t.Fatal(err)
	}

	pikachu := Card{SetCode: "A1", Number: "001", Name: "Pikachu", Rarity: "1D"}
	obs := []CardObservation{
		{Card: pikachu, Position: 0, Confidence: 0.93},
		{Card: pikachu, Position: 1, Confidence: 0.91},
		{Card: Card{SetCode: "A1", Number: "002", Name: "Raichu"}, Position: 2, Confidence: 0.88},
	}
	shot := Screenshot{
		Fingerprint:      "fp-1",
		OriginalFilename: "20250102030405_Ash.png",
		CleanFilename:    "Ash",
		AccountID:        account.ID,
		PackType:         "Pikachu",
		Status:           StatusMatched,
	}

	id, err := store.RecordScreenshot(ctx, shot, obs)
	if err != nil {
		t.Fatalf("record screenshot: %v", err)
	}
	if id == 0 {
		t.Fatal("expected nonzero screenshot id")
	}

	// Same fingerprint again must not add provenance.
	again, err := store.RecordScreenshot(ctx, shot, obs)
	if err != nil {
		t.Fatalf("record duplicate: %v", err)
	}
	if again != id {
		t.Fatalf("duplicate returned id %d, want %d", again, id)
	}

	holdings, err := store.Holdings(ctx, account.ID)
	if err != nil {
		t.Fatalf("holdings: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("expected 2 distinct cards, got %d", len(holdings))
	}
	if holdings[0].Card.Name != "Pikachu" || holdings[0].Count != 2 {
		t.Fatalf("unexpected first holding %+v", holdings[0])
	}
	if holdings[1].Card.Name != "Raichu" || holdings[1].Count != 1 {
		t.Fatalf("unexpected second holding %+v", holdings[1])
	}

	known, err := store.KnownFingerprints(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := known["fp-1"]; !ok {
		t.Fatal("fingerprint not recorded")
	}
}

func TestRemovalLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account, err := store.EnsureAccount(ctx, "Ash")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetShinedust(ctx, account.ID, 5000); err != nil {
		t.Fatal(err)
	}

	pikachu := Card{SetCode: "A1", Number: "001", Name: "Pikachu"}
	_, err = store.RecordScreenshot(ctx, Screenshot{
		Fingerprint:      "fp-1",
		OriginalFilename: "shot.png",
		AccountID:        account.ID,
		Status:           StatusMatched,
	}, []CardObservation{
		{Card: pikachu, Position: 0, Confidence: 0.95},
		{Card: pikachu, Position: 1, Confidence: 0.92},
	})
	if err != nil {
		t.Fatal(err)
	}
	card, err := store.CardBySetNumber(ctx, "A1", "001")
	if err != nil {
		t.Fatal(err)
	}

	// Tier costs more than the balance and force is off.
	if _, err := store.RecordRemoval(ctx, account.ID, card.ID, 10000, false); !errors.Is(err, ErrInsufficientShinedust) {
		t.Fatalf("expected ErrInsufficientShinedust, got %v", err)
	}

	removalID, err := store.RecordRemoval(ctx, account.ID, card.ID, 4000, false)
	if err != nil {
		t.Fatalf("record removal: %v", err)
	}

	updated, err := store.AccountByName(ctx, "Ash")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Shinedust != 1000 {
		t.Fatalf("balance = %d, want 1000", updated.Shinedust)
	}

	pending, err := store.PendingRemovals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != removalID {
		t.Fatalf("unexpected pending removals %+v", pending)
	}

	applied, err := store.ApplyRemoval(ctx, removalID)
	if err != nil {
		t.Fatalf("apply removal: %v", err)
	}
	if !applied {
		t.Fatal("expected removal to be applied")
	}

	count, err := store.HoldingCount(ctx, account.ID, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("holding count = %d, want 1", count)
	}

	// Replaying is a no-op.
	applied, err = store.ApplyRemoval(ctx, removalID)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("replayed removal should not apply again")
	}
	if count, _ = store.HoldingCount(ctx, account.ID, card.ID); count != 1 {
		t.Fatalf("holding count changed on replay: %d", count)
	}
}

func TestForcedRemovalDrainsBalance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account, err := store.EnsureAccount(ctx, "Ash")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetShinedust(ctx, account.ID, 3000); err != nil {
		t.Fatal(err)
	}
	_, err = store.RecordScreenshot(ctx, Screenshot{
		Fingerprint:      "fp-1",
		OriginalFilename: "shot.png",
		AccountID:        account.ID,
		Status:           StatusMatched,
	}, []CardObservation{
		{Card: Card{SetCode: "A1", Number: "001", Name: "Pikachu"}, Position: 0, Confidence: 0.9},
	})
	if err != nil {
		t.Fatal(err)
	}
	card, err := store.CardBySetNumber(ctx, "A1", "001")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.RecordRemoval(ctx, account.ID, card.ID, 10000, true); err != nil {
		t.Fatalf("forced removal: %v", err)
	}

	updated, err := store.AccountByName(ctx, "Ash")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Shinedust != 0 {
		t.Fatalf("balance = %d, want 0", updated.Shinedust)
	}
}

func TestRemovalRequiresHolding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account, err := store.EnsureAccount(ctx, "Ash")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetShinedust(ctx, account.ID, 50000); err != nil {
		t.Fatal(err)
	}
	card, err := store.EnsureCard(ctx, Card{SetCode: "A1", Number: "001", Name: "Pikachu"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.RecordRemoval(ctx, account.ID, card.ID, 4000, false); !errors.Is(err, ErrNoHolding) {
		t.Fatalf("expected ErrNoHolding, got %v", err)
	}
}

func TestSummaryAndRecentActivity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account, err := store.EnsureAccount(ctx, "Ash")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetShinedust(ctx, account.ID, 1200); err != nil {
		t.Fatal(err)
	}

	_, err = store.RecordScreenshot(ctx, Screenshot{
		Fingerprint:      "fp-1",
		OriginalFilename: "first.png",
		AccountID:        account.ID,
		PackType:         "Pikachu",
		Status:           StatusMatched,
	}, []CardObservation{
		{Card: Card{SetCode: "A1", Number: "001", Name: "Pikachu"}, Position: 0, Confidence: 0.9},
		{Card: Card{SetCode: "A1", Number: "002", Name: "Raichu"}, Position: 1, Confidence: 0.9},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.RecordScreenshot(ctx, Screenshot{
		Fingerprint:      "fp-2",
		OriginalFilename: "second.png",
		Status:           StatusEmpty,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	stats, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if stats.TotalAccounts != 1 || stats.TotalPacks != 2 || stats.TotalCards != 2 || stats.UniqueCards != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.TotalShinedust != 1200 {
		t.Fatalf("shinedust = %d", stats.TotalShinedust)
	}
	if stats.LastProcessed == nil {
		t.Fatal("expected last processed time")
	}

	activity, err := store.RecentActivity(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(activity) != 2 {
		t.Fatalf("activity rows = %d", len(activity))
	}
	if activity[0].Filename != "second.png" {
		t.Fatalf("expected newest first, got %q", activity[0].Filename)
	}
}
