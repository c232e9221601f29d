// Package reconcile merges the two untrusted evidence sources into the
// ledger: re-exported CSV account snapshots and screenshot-derived match
// records. It also owns the shinedust removal bookkeeping and the removal
// replay pass. Import and replay take the run-level lock so they never
// interleave with an active batch run.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"cardcounter/internal/config"
	"cardcounter/internal/ledger"
	"cardcounter/internal/logging"
)

// Sentinels re-exported from the store where callers deal with this package
// only.
var (
	ErrAccountNotFound       = ledger.ErrAccountNotFound
	ErrCardNotFound          = ledger.ErrCardNotFound
	ErrInsufficientShinedust = ledger.ErrInsufficientShinedust
	// ErrAmbiguousTier indicates a removal without a valid explicit cost
	// tier. The engine never infers one.
	ErrAmbiguousTier = errors.New("ambiguous shinedust tier: an explicit tier is required")
)

// CostTiers is the fixed set of valid removal costs.
var CostTiers = []int64{4000, 10000, 25000, 30000}

// ValidTier reports whether cost is one of the fixed removal tiers.
func ValidTier(cost int64) bool {
	for _, tier := range CostTiers {
		if cost == tier {
			return true
		}
	}
	return false
}

// Merger applies snapshots, evidence, and removals to the ledger.
type Merger struct {
	store  *ledger.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New builds a merger over an open store.
func New(store *ledger.Store, cfg *config.Config, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Merger{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "reconcile"),
	}
}

// withRunLock runs fn while holding the exclusive run lock shared with the
// batch pipeline.
func (m *Merger) withRunLock(fn func() error) error {
	lock := flock.New(m.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return errors.New("another run is already in progress")
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// Evidence is one screenshot-derived match record to merge into the ledger.
// The account must already exist; evidence never creates accounts.
type Evidence struct {
	Account     string
	Fingerprint string
	Filename    string
	PackType    string
	Cards       []ledger.CardObservation
}

// ApplyEvidence merges match records. Records for unknown accounts are
// rejected with ErrAccountNotFound; records whose fingerprint is already in
// the ledger are no-ops. Returns the number of records newly applied.
func (m *Merger) ApplyEvidence(ctx context.Context, records []Evidence) (int, error) {
	applied := 0
	for _, record := range records {
		account, err := m.store.AccountByName(ctx, record.Account)
		if err != nil {
			return applied, err
		}

		known, err := m.store.HasFingerprint(ctx, record.Fingerprint)
		if err != nil {
			return applied, err
		}
		if known {
			continue
		}

		_, err = m.store.RecordScreenshot(ctx, ledger.Screenshot{
			Fingerprint:      record.Fingerprint,
			OriginalFilename: record.Filename,
			AccountID:        account.ID,
			PackType:         record.PackType,
			Status:           ledger.StatusMatched,
		}, record.Cards)
		if err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// RemoveOne removes a single instance of a card from an account at an
// explicit cost tier. The tier must be one of CostTiers. Without force the
// shinedust balance must cover the tier; with force the balance is drained
// instead. Exactly one provenance row is retired and shinedust is charged
// exactly once.
func (m *Merger) RemoveOne(ctx context.Context, accountName string, card *ledger.Card, tier int64, force bool) error {
	if !ValidTier(tier) {
		return fmt.Errorf("%w: %d", ErrAmbiguousTier, tier)
	}

	account, err := m.store.AccountByName(ctx, accountName)
	if err != nil {
		return err
	}

	removalID, err := m.store.RecordRemoval(ctx, account.ID, card.ID, tier, force)
	if err != nil {
		return err
	}
	if _, err := m.store.ApplyRemoval(ctx, removalID); err != nil {
		return err
	}

	m.logger.Info("card removed",
		logging.String("account", accountName),
		logging.String("card", card.SetCode+"_"+card.Number),
		logging.Int64("tier", tier),
		logging.Bool("forced", force))
	return nil
}

// ReprocessSummary is the result of a removal replay pass.
type ReprocessSummary struct {
	RecordsProcessed     int
	CardsActuallyRemoved int
}

// ReprocessRemovals replays the full removal history against current
// evidence. For each account and card, the number of retired provenance
// rows is brought up to the number of removal records without charging
// shinedust again; cards whose evidence never reappeared are untouched.
// Running the pass twice yields the same ledger as running it once.
func (m *Merger) ReprocessRemovals(ctx context.Context) (ReprocessSummary, error) {
	var summary ReprocessSummary
	err := m.withRunLock(func() error {
		removals, err := m.store.AllRemovals(ctx)
		if err != nil {
			return err
		}

		type key struct{ account, card int64 }
		expected := make(map[key]int64)
		for _, removal := range removals {
			expected[key{removal.AccountID, removal.Card.ID}]++
			summary.RecordsProcessed++
			if !removal.Processed {
				if err := m.store.MarkRemovalProcessed(ctx, removal.ID); err != nil {
					return err
				}
			}
		}

		for k, want := range expected {
			have, err := m.store.RemovedProvenanceCount(ctx, k.account, k.card)
			if err != nil {
				return err
			}
			for have < want {
				removed, err := m.store.RemoveOneProvenance(ctx, k.account, k.card)
				if err != nil {
					return err
				}
				if !removed {
					break
				}
				have++
				summary.CardsActuallyRemoved++
			}
		}
		return nil
	})
	if err != nil {
		return ReprocessSummary{}, err
	}
	if summary.CardsActuallyRemoved > 0 {
		m.logger.Info("removal replay retired reappeared cards",
			logging.Int("records", summary.RecordsProcessed),
			logging.Int("removed", summary.CardsActuallyRemoved))
	}
	return summary, nil
}
