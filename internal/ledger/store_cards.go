package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EnsureCard returns the card identified by set code and number, inserting it
// when new. Name and rarity backfill blank columns on existing rows so a
// richer source of card metadata wins over an earlier sparse one.
func (s *Store) EnsureCard(ctx context.Context, card Card) (*Card, error) {
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO cards (set_code, number, name, rarity)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(set_code, number) DO UPDATE SET
             name = CASE WHEN cards.name = '' THEN excluded.name ELSE cards.name END,
             rarity = CASE WHEN COALESCE(cards.rarity, '') = '' THEN excluded.rarity ELSE cards.rarity END`,
		card.SetCode, card.Number, card.Name, nullableString(card.Rarity),
	); err != nil {
		return nil, fmt.Errorf("ensure card: %w", err)
	}
	return s.CardBySetNumber(ctx, card.SetCode, card.Number)
}

// CardBySetNumber fetches a card by set code and collection number.
func (s *Store) CardBySetNumber(ctx context.Context, setCode, number string) (*Card, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+cardColumns+` FROM cards WHERE set_code = ? AND number = ?`,
		setCode, number,
	)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrCardNotFound, setCode, number)
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

// CardByName fetches a card by display name, preferring the lowest card id
// when multiple sets reuse a name.
func (s *Store) CardByName(ctx context.Context, name string) (*Card, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+cardColumns+` FROM cards WHERE name = ? ORDER BY id LIMIT 1`,
		name,
	)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrCardNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get card by name: %w", err)
	}
	return card, nil
}
