package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PackImport is one reconciliation snapshot row ready for merging: an
// account, its reported shinedust balance, and the cards one pack
// contributed.
type PackImport struct {
	AccountName string
	Shinedust   *int64
	Screenshot  Screenshot
	Cards       []CardObservation
}

// ImportPacks merges a batch of snapshot rows in a single transaction.
// A pack whose original filename is already recorded is a no-op, except
// that blank account or pack-type columns on the existing row are
// backfilled from the import. Returns the number of new packs and new card
// provenance rows.
func (s *Store) ImportPacks(ctx context.Context, batch []PackImport) (newPacks, newCards int, err error) {
	ctx = ensureContext(ctx)
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, pack := range batch {
			accountID, err := ensureAccountTx(ctx, tx, pack.AccountName, now)
			if err != nil {
				return err
			}
			if pack.Shinedust != nil {
				if _, err := tx.ExecContext(ctx,
					`UPDATE accounts SET shinedust = ?, updated_at = ? WHERE id = ?`,
					*pack.Shinedust, now.Format(time.RFC3339Nano), accountID,
				); err != nil {
					return fmt.Errorf("set shinedust: %w", err)
				}
			}

			var (
				existingID      int64
				existingAccount sql.NullInt64
				existingPack    sql.NullString
			)
			err = tx.QueryRowContext(ctx,
				`SELECT id, account_id, pack_type FROM screenshots WHERE original_filename = ?`,
				pack.Screenshot.OriginalFilename,
			).Scan(&existingID, &existingAccount, &existingPack)
			switch {
			case err == nil:
				if err := backfillScreenshotTx(ctx, tx, existingID, existingAccount, existingPack, accountID, pack.Screenshot.PackType); err != nil {
					return err
				}
				continue
			case errors.Is(err, sql.ErrNoRows):
			default:
				return fmt.Errorf("check pack filename: %w", err)
			}

			createdAt := pack.Screenshot.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO screenshots (
                    fingerprint, original_filename, clean_filename, account_id,
                    pack_type, status, card_count, created_at, processed_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				pack.Screenshot.Fingerprint,
				pack.Screenshot.OriginalFilename,
				nullableString(pack.Screenshot.CleanFilename),
				accountID,
				nullableString(pack.Screenshot.PackType),
				string(StatusImported),
				len(pack.Cards),
				createdAt.Format(time.RFC3339Nano),
				now.Format(time.RFC3339Nano),
			)
			if err != nil {
				return fmt.Errorf("insert imported pack: %w", err)
			}
			screenshotID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}

			for _, obs := range pack.Cards {
				cardID, err := ensureCardTx(ctx, tx, obs.Card)
				if err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO screenshot_cards (screenshot_id, card_id, position, confidence)
                     VALUES (?, ?, ?, ?)`,
					screenshotID, cardID, obs.Position, obs.Confidence,
				); err != nil {
					return fmt.Errorf("insert imported card: %w", err)
				}
				newCards++
			}
			newPacks++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return newPacks, newCards, nil
}

func ensureAccountTx(ctx context.Context, tx *sql.Tx, name string, now time.Time) (int64, error) {
	stamp := now.Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (name, shinedust, created_at, updated_at)
         VALUES (?, 0, ?, ?)
         ON CONFLICT(name) DO NOTHING`,
		name, stamp, stamp,
	); err != nil {
		return 0, fmt.Errorf("ensure account: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE name = ?`, name,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve account id: %w", err)
	}
	return id, nil
}

func backfillScreenshotTx(ctx context.Context, tx *sql.Tx, id int64, account sql.NullInt64, packType sql.NullString, accountID int64, newPackType string) error {
	setAccount := !account.Valid && accountID != 0
	setPack := packType.String == "" && newPackType != ""
	if !setAccount && !setPack {
		return nil
	}
	if setAccount {
		if _, err := tx.ExecContext(ctx,
			`UPDATE screenshots SET account_id = ? WHERE id = ?`, accountID, id,
		); err != nil {
			return fmt.Errorf("backfill account: %w", err)
		}
	}
	if setPack {
		if _, err := tx.ExecContext(ctx,
			`UPDATE screenshots SET pack_type = ? WHERE id = ?`, newPackType, id,
		); err != nil {
			return fmt.Errorf("backfill pack type: %w", err)
		}
	}
	return nil
}

// KnownFilenames returns the original filename of every recorded screenshot,
// letting the scanner skip files that entered the ledger through a snapshot
// import rather than a previous scan.
func (s *Store) KnownFilenames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT original_filename FROM screenshots`)
	if err != nil {
		return nil, fmt.Errorf("list filenames: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan filename: %w", err)
		}
		known[name] = struct{}{}
	}
	return known, rows.Err()
}
