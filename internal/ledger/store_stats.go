package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats summarizes the inventory for the dashboard.
type Stats struct {
	TotalAccounts  int64
	TotalPacks     int64
	TotalCards     int64
	UniqueCards    int64
	TotalShinedust int64
	LastProcessed  *time.Time
}

// Summary computes dashboard statistics across all accounts. Pack counts
// include every processed screenshot; card counts only live provenance.
func (s *Store) Summary(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(shinedust), 0) FROM accounts`,
	).Scan(&stats.TotalAccounts, &stats.TotalShinedust); err != nil {
		return stats, fmt.Errorf("count accounts: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM screenshots`,
	).Scan(&stats.TotalPacks); err != nil {
		return stats, fmt.Errorf("count screenshots: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COUNT(DISTINCT card_id) FROM screenshot_cards WHERE removed = 0`,
	).Scan(&stats.TotalCards, &stats.UniqueCards); err != nil {
		return stats, fmt.Errorf("count cards: %w", err)
	}

	var lastRaw sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(processed_at) FROM screenshots`,
	).Scan(&lastRaw); err != nil {
		return stats, fmt.Errorf("read last processed: %w", err)
	}
	if lastRaw.Valid {
		if t, err := parseTimeString(lastRaw.String); err == nil {
			stats.LastProcessed = &t
		}
	}

	return stats, nil
}

// Activity is one row of the recent-activity feed.
type Activity struct {
	Filename    string
	AccountName string
	PackType    string
	Status      ScreenshotStatus
	CardCount   int
	ProcessedAt *time.Time
}

// RecentActivity returns the most recently processed screenshots, newest
// first, capped at limit.
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT sc.original_filename, COALESCE(a.name, ''), COALESCE(sc.pack_type, ''),
                sc.status, sc.card_count, sc.processed_at
         FROM screenshots sc
         LEFT JOIN accounts a ON a.id = sc.account_id
         ORDER BY sc.id DESC
         LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	defer rows.Close()

	var activity []Activity
	for rows.Next() {
		var (
			a            Activity
			status       string
			processedRaw sql.NullString
		)
		if err := rows.Scan(&a.Filename, &a.AccountName, &a.PackType, &status, &a.CardCount, &processedRaw); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Status = ScreenshotStatus(status)
		if processedRaw.Valid {
			if t, err := parseTimeString(processedRaw.String); err == nil {
				a.ProcessedAt = &t
			}
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}
