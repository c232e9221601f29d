package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordRemoval debits an account's shinedust balance and records a removal
// request for one instance of a card. The provenance row is not touched
// here; ApplyRemoval does that when the record is processed. Without force
// the account balance must cover the tier cost in full; with force the
// balance is drained to zero when it falls short.
func (s *Store) RecordRemoval(ctx context.Context, accountID, cardID, tierCost int64, force bool) (int64, error) {
	ctx = ensureContext(ctx)
	var removalID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var balance int64
		if err := tx.QueryRowContext(ctx,
			`SELECT shinedust FROM accounts WHERE id = ?`, accountID,
		).Scan(&balance); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("read balance: %w", err)
		}
		if balance < tierCost && !force {
			return fmt.Errorf("%w: balance %d, tier costs %d", ErrInsufficientShinedust, balance, tierCost)
		}

		var held int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1)
             FROM screenshot_cards sc
             JOIN screenshots s ON s.id = sc.screenshot_id
             WHERE s.account_id = ? AND sc.card_id = ? AND sc.removed = 0`,
			accountID, cardID,
		).Scan(&held); err != nil {
			return fmt.Errorf("count holding: %w", err)
		}
		if held == 0 {
			return ErrNoHolding
		}

		if err := debitShinedustTx(ctx, tx, accountID, tierCost); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO removals (account_id, card_id, tier_cost, forced, created_at)
             VALUES (?, ?, ?, ?, ?)`,
			accountID, cardID, tierCost, boolToInt(force),
			time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert removal: %w", err)
		}
		removalID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removalID, nil
}

// PendingRemovals returns unprocessed removal records in request order.
func (s *Store) PendingRemovals(ctx context.Context) ([]Removal, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT r.id, r.account_id, a.name,
                c.id, c.set_code, c.number, c.name, c.rarity,
                r.tier_cost, r.forced, r.processed, r.created_at, r.processed_at
         FROM removals r
         JOIN accounts a ON a.id = r.account_id
         JOIN cards c ON c.id = r.card_id
         WHERE r.processed = 0
         ORDER BY r.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending removals: %w", err)
	}
	defer rows.Close()
	return collectRemovals(rows)
}

func collectRemovals(rows *sql.Rows) ([]Removal, error) {
	var removals []Removal
	for rows.Next() {
		var (
			r            Removal
			rarity       sql.NullString
			forced       int
			processed    int
			createdRaw   string
			processedRaw sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.AccountID, &r.AccountName,
			&r.Card.ID, &r.Card.SetCode, &r.Card.Number, &r.Card.Name, &rarity,
			&r.TierCost, &forced, &processed, &createdRaw, &processedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan removal: %w", err)
		}
		r.Card.Rarity = rarity.String
		r.Forced = forced != 0
		r.Processed = processed != 0
		if created, err := parseTimeString(createdRaw); err == nil {
			r.CreatedAt = created
		}
		if processedRaw.Valid {
			if t, err := parseTimeString(processedRaw.String); err == nil {
				r.ProcessedAt = &t
			}
		}
		removals = append(removals, r)
	}
	return removals, rows.Err()
}

// AllRemovals returns every removal record in request order, processed or
// not. Removal reprocessing replays the full history.
func (s *Store) AllRemovals(ctx context.Context) ([]Removal, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT r.id, r.account_id, a.name,
                c.id, c.set_code, c.number, c.name, c.rarity,
                r.tier_cost, r.forced, r.processed, r.created_at, r.processed_at
         FROM removals r
         JOIN accounts a ON a.id = r.account_id
         JOIN cards c ON c.id = r.card_id
         ORDER BY r.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list removals: %w", err)
	}
	defer rows.Close()
	return collectRemovals(rows)
}

// RemovedProvenanceCount counts the provenance rows already marked removed
// for one account and card.
func (s *Store) RemovedProvenanceCount(ctx context.Context, accountID, cardID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1)
         FROM screenshot_cards sc
         JOIN screenshots s ON s.id = sc.screenshot_id
         WHERE s.account_id = ? AND sc.card_id = ? AND sc.removed = 1`,
		accountID, cardID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count removed provenance: %w", err)
	}
	return count, nil
}

// RemoveOneProvenance marks the oldest live provenance row for the card as
// removed without touching shinedust. Reports false when the account holds
// no live copies.
func (s *Store) RemoveOneProvenance(ctx context.Context, accountID, cardID int64) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE screenshot_cards SET removed = 1
         WHERE id = (
             SELECT sc.id
             FROM screenshot_cards sc
             JOIN screenshots s ON s.id = sc.screenshot_id
             WHERE s.account_id = ? AND sc.card_id = ? AND sc.removed = 0
             ORDER BY sc.id
             LIMIT 1
         )`,
		accountID, cardID,
	)
	if err != nil {
		return false, fmt.Errorf("mark provenance removed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkRemovalProcessed stamps a removal record processed.
func (s *Store) MarkRemovalProcessed(ctx context.Context, removalID int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(ctx,
		`UPDATE removals SET processed = 1, processed_at = ? WHERE id = ? AND processed = 0`,
		now, removalID,
	); err != nil {
		return fmt.Errorf("mark removal processed: %w", err)
	}
	return nil
}

// ApplyRemoval marks one live provenance row for the removal's card as
// removed and stamps the record processed. When the account no longer holds
// the card the record is still marked processed and applied reports false,
// so replaying the removal queue stays idempotent.
func (s *Store) ApplyRemoval(ctx context.Context, removalID int64) (applied bool, err error) {
	ctx = ensureContext(ctx)
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			accountID int64
			cardID    int64
			processed int
		)
		if err := tx.QueryRowContext(ctx,
			`SELECT account_id, card_id, processed FROM removals WHERE id = ?`,
			removalID,
		).Scan(&accountID, &cardID, &processed); err != nil {
			return fmt.Errorf("read removal: %w", err)
		}
		if processed != 0 {
			return nil
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE screenshot_cards SET removed = 1
             WHERE id = (
                 SELECT sc.id
                 FROM screenshot_cards sc
                 JOIN screenshots s ON s.id = sc.screenshot_id
                 WHERE s.account_id = ? AND sc.card_id = ? AND sc.removed = 0
                 ORDER BY sc.id
                 LIMIT 1
             )`,
			accountID, cardID,
		)
		if err != nil {
			return fmt.Errorf("mark provenance removed: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		applied = affected > 0

		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			`UPDATE removals SET processed = 1, processed_at = ? WHERE id = ?`,
			now, removalID,
		); err != nil {
			return fmt.Errorf("mark removal processed: %w", err)
		}
		return nil
	})
	return applied, err
}
