package ledger

import (
	"database/sql"
	"errors"
	"time"
)

const cardColumns = "id, set_code, number, name, rarity"

func scanCard(scanner interface{ Scan(dest ...any) error }) (*Card, error) {
	var (
		id      int64
		setCode string
		number  string
		name    string
		rarity  sql.NullString
	)
	if err := scanner.Scan(&id, &setCode, &number, &name, &rarity); err != nil {
		return nil, err
	}
	return &Card{
		ID:      id,
		SetCode: setCode,
		Number:  number,
		Name:    name,
		Rarity:  rarity.String,
	}, nil
}

const accountColumns = "id, name, shinedust, created_at, updated_at"

func scanAccount(scanner interface{ Scan(dest ...any) error }) (*Account, error) {
	var (
		id         int64
		name       string
		shinedust  int64
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &name, &shinedust, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	account := &Account{ID: id, Name: name, Shinedust: shinedust}
	if created, err := parseTimeString(createdRaw); err == nil {
		account.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		account.UpdatedAt = updated
	}
	return account, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
