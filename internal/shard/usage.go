package shard

import (
	"fmt"
	"time"
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS usage_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	token_type TEXT NOT NULL,
	amount TEXT NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS usage_daily (
	day TEXT NOT NULL,
	category TEXT NOT NULL,
	requests INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (day, category)
);
`

// UsageRecord is one priced request a payer made.
type UsageRecord struct {
	Category  string
	TokenType string
	Amount    string
	At        int64
}

// DailyUsage is one day's aggregate request count for a category.
type DailyUsage struct {
	Day      string
	Category string
	Requests int64
}

// RecordUsage appends a per-request record and increments that day's
// aggregate for category. No handler or middleware in this repository
// calls it, so these tables stay empty in the running gateway.
func (s *Shard) RecordUsage(category, tokenType, amount string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	day := now.UTC().Format("2006-01-02")

	if _, err := s.db.Exec(`INSERT INTO usage_requests (category, token_type, amount, recorded_at) VALUES (?, ?, ?, ?)`,
		category, tokenType, amount, now.Unix()); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	if _, err := s.db.Exec(`
		INSERT INTO usage_daily (day, category, requests) VALUES (?, ?, 1)
		ON CONFLICT(day, category) DO UPDATE SET requests = requests + 1
	`, day, category); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// DailyUsageFor returns the aggregate rows for day (format YYYY-MM-DD).
func (s *Shard) DailyUsageFor(day string) ([]DailyUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT day, category, requests FROM usage_daily WHERE day = ? ORDER BY category ASC`, day)
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}
	defer rows.Close()

	var out []DailyUsage
	for rows.Next() {
		var d DailyUsage
		if err := rows.Scan(&d.Day, &d.Category, &d.Requests); err != nil {
			return nil, fmt.Errorf("daily usage: scanning row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
