package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnsureAccount returns the account with the given name, creating it with a
// zero shinedust balance when it does not exist yet.
func (s *Store) EnsureAccount(ctx context.Context, name string) (*Account, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO accounts (name, shinedust, created_at, updated_at)
         VALUES (?, 0, ?, ?)
         ON CONFLICT(name) DO NOTHING`,
		name, now, now,
	); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	return s.AccountByName(ctx, name)
}

// AccountByName fetches an account by its exact name.
func (s *Store) AccountByName(ctx context.Context, name string) (*Account, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+accountColumns+` FROM accounts WHERE name = ?`,
		name,
	)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrAccountNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns every account ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+accountColumns+` FROM accounts ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// SetShinedust replaces an account's shinedust balance, as read from a
// reconciliation snapshot.
func (s *Store) SetShinedust(ctx context.Context, accountID, balance int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE accounts SET shinedust = ?, updated_at = ? WHERE id = ?`,
		balance, now, accountID,
	)
	if err != nil {
		return fmt.Errorf("set shinedust: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func debitShinedustTx(ctx context.Context, tx *sql.Tx, accountID, amount int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := tx.ExecContext(
		ctx,
		`UPDATE accounts SET shinedust = MAX(shinedust - ?, 0), updated_at = ? WHERE id = ?`,
		amount, now, accountID,
	)
	if err != nil {
		return fmt.Errorf("debit shinedust: %w", err)
	}
	return nil
}
