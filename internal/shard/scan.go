package shard

import (
	"database/sql"
	"fmt"
	"time"
)

// ContentType is the kind of stored content a scan verdict refers to.
type ContentType string

const (
	ContentPaste  ContentType = "paste"
	ContentKV     ContentType = "kv"
	ContentMemory ContentType = "memory"
)

// ScanVerdict is a safety classifier's opinion on one piece of content.
type ScanVerdict struct {
	ID          string
	ContentType ContentType
	Safe        bool
	Confidence  float64
	Reason      string
	ScannedAt   int64
}

// ScanStore upserts a verdict for id.
func (s *Shard) ScanStore(id string, contentType ContentType, safe bool, confidence float64, reason string) error {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO content_scans (id, content_type, safe, confidence, reason, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content_type = excluded.content_type, safe = excluded.safe,
			confidence = excluded.confidence, reason = excluded.reason, scanned_at = excluded.scanned_at
	`, id, string(contentType), boolToInt(safe), confidence, reason, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("scan store: %w", err)
	}
	return nil
}

// ScanGet returns the verdict for id, or ErrNotFound.
func (s *Shard) ScanGet(id string) (ScanVerdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v ScanVerdict
	var safe int
	var reason sql.NullString
	var contentType string
	err := s.db.QueryRow(`SELECT id, content_type, safe, confidence, reason, scanned_at FROM content_scans WHERE id = ?`, id).
		Scan(&v.ID, &contentType, &safe, &v.Confidence, &reason, &v.ScannedAt)
	if err == sql.ErrNoRows {
		return ScanVerdict{}, ErrNotFound
	}
	if err != nil {
		return ScanVerdict{}, fmt.Errorf("scan get: %w", err)
	}
	v.ContentType = ContentType(contentType)
	v.Safe = safe != 0
	v.Reason = reason.String
	return v, nil
}

// ScanListOptions filter a ScanList call.
type ScanListOptions struct {
	ContentType ContentType
	SafeOnly    bool
	Limit       int
}

// ScanList returns verdicts matching opts.
func (s *Shard) ScanList(opts ScanListOptions) ([]ScanVerdict, error) {
	limit := clampCount(opts.Limit, 1000)

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, content_type, safe, confidence, reason, scanned_at FROM content_scans WHERE 1 = 1`
	var args []any
	if opts.ContentType != "" {
		query += ` AND content_type = ?`
		args = append(args, string(opts.ContentType))
	}
	if opts.SafeOnly {
		query += ` AND safe = 1`
	}
	query += ` ORDER BY scanned_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}
	defer rows.Close()

	var out []ScanVerdict
	for rows.Next() {
		var v ScanVerdict
		var safe int
		var reason sql.NullString
		var contentType string
		if err := rows.Scan(&v.ID, &contentType, &safe, &v.Confidence, &reason, &v.ScannedAt); err != nil {
			return nil, fmt.Errorf("scan list: scanning row: %w", err)
		}
		v.ContentType = ContentType(contentType)
		v.Safe = safe != 0
		v.Reason = reason.String
		out = append(out, v)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
