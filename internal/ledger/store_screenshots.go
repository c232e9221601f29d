package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordScreenshot persists a processed screenshot and its card observations
// in one transaction. Cards are resolved through EnsureCard semantics inside
// the transaction so a half-recorded screenshot never survives a crash.
// Recording the same fingerprint again is a no-op that returns the existing
// screenshot id.
func (s *Store) RecordScreenshot(ctx context.Context, shot Screenshot, cards []CardObservation) (int64, error) {
	ctx = ensureContext(ctx)
	var screenshotID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing := tx.QueryRowContext(ctx,
			`SELECT id FROM screenshots WHERE fingerprint = ?`, shot.Fingerprint)
		if err := existing.Scan(&screenshotID); err == nil {
			return nil
		} else if err != sql.ErrNoRows {
			return fmt.Errorf("check fingerprint: %w", err)
		}

		now := time.Now().UTC()
		createdAt := shot.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		processedAt := shot.ProcessedAt
		if processedAt == nil {
			processedAt = &now
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO screenshots (
                fingerprint, original_filename, clean_filename, account_id,
                pack_type, status, card_count, created_at, processed_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			shot.Fingerprint,
			shot.OriginalFilename,
			nullableString(shot.CleanFilename),
			nullableID(shot.AccountID),
			nullableString(shot.PackType),
			string(shot.Status),
			len(cards),
			createdAt.Format(time.RFC3339Nano),
			nullableTime(processedAt),
		)
		if err != nil {
			return fmt.Errorf("insert screenshot: %w", err)
		}
		screenshotID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		for _, obs := range cards {
			cardID, err := ensureCardTx(ctx, tx, obs.Card)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO screenshot_cards (screenshot_id, card_id, position, confidence)
                 VALUES (?, ?, ?, ?)`,
				screenshotID, cardID, obs.Position, obs.Confidence,
			); err != nil {
				return fmt.Errorf("insert screenshot card: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return screenshotID, nil
}

func ensureCardTx(ctx context.Context, tx *sql.Tx, card Card) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cards (set_code, number, name, rarity)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(set_code, number) DO UPDATE SET
             name = CASE WHEN cards.name = '' THEN excluded.name ELSE cards.name END,
             rarity = CASE WHEN COALESCE(cards.rarity, '') = '' THEN excluded.rarity ELSE cards.rarity END`,
		card.SetCode, card.Number, card.Name, nullableString(card.Rarity),
	); err != nil {
		return 0, fmt.Errorf("ensure card: %w", err)
	}
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM cards WHERE set_code = ? AND number = ?`,
		card.SetCode, card.Number,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve card id: %w", err)
	}
	return id, nil
}

// KnownFingerprints returns the fingerprints of every recorded screenshot,
// regardless of status. Failed screenshots count as known so a broken image
// is not retried on the next run.
func (s *Store) KnownFingerprints(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT fingerprint FROM screenshots`)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		known[fp] = struct{}{}
	}
	return known, rows.Err()
}

// KnownCardCodes returns the "<set>_<number>" codes of every card with at
// least one live provenance row. The matcher uses it as its prior set when
// two templates tie.
func (s *Store) KnownCardCodes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT DISTINCT c.set_code, c.number
         FROM screenshot_cards sc
         JOIN cards c ON c.id = sc.card_id
         WHERE sc.removed = 0`)
	if err != nil {
		return nil, fmt.Errorf("list known card codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var setCode, number string
		if err := rows.Scan(&setCode, &number); err != nil {
			return nil, fmt.Errorf("scan card code: %w", err)
		}
		codes[setCode+"_"+number] = struct{}{}
	}
	return codes, rows.Err()
}

// HasFingerprint reports whether a screenshot with this fingerprint exists.
func (s *Store) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM screenshots WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return count > 0, nil
}

// Holdings returns the derived per-card counts for an account, ordered by
// set code then collection number. Only live provenance rows contribute.
func (s *Store) Holdings(ctx context.Context, accountID int64) ([]Holding, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT c.id, c.set_code, c.number, c.name, c.rarity, COUNT(sc.id)
         FROM screenshot_cards sc
         JOIN screenshots s ON s.id = sc.screenshot_id
         JOIN cards c ON c.id = sc.card_id
         WHERE s.account_id = ? AND sc.removed = 0
         GROUP BY c.id
         ORDER BY c.set_code, c.number`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var (
			h      Holding
			rarity sql.NullString
		)
		if err := rows.Scan(&h.Card.ID, &h.Card.SetCode, &h.Card.Number, &h.Card.Name, &rarity, &h.Count); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		h.Card.Rarity = rarity.String
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// HoldingCount returns how many live copies of one card an account holds.
func (s *Store) HoldingCount(ctx context.Context, accountID, cardID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1)
         FROM screenshot_cards sc
         JOIN screenshots s ON s.id = sc.screenshot_id
         WHERE s.account_id = ? AND sc.card_id = ? AND sc.removed = 0`,
		accountID, cardID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count holding: %w", err)
	}
	return count, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
