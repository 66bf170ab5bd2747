package shard

import (
	"database/sql"
	"fmt"
	"time"
)

// KVEntry is one row of the key/value store.
type KVEntry struct {
	Key       string
	Value     string
	Metadata  string
	CreatedAt int64
	UpdatedAt int64
	ExpiresAt *int64
}

// KVSetOptions are the optional fields of a Set call.
type KVSetOptions struct {
	Metadata string
	TTL      *time.Duration
}

// KVSet upserts key. Created reports whether the row did not previously
// exist (an insert rather than an overwrite).
func (s *Shard) KVSet(key, value string, opts KVSetOptions) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	var expiresAt any
	if opts.TTL != nil {
		expiresAt = now + int64(opts.TTL.Seconds())
	}

	var existedRaw int
	err = s.db.QueryRow(`SELECT 1 FROM kv WHERE key = ?`, key).Scan(&existedRaw)
	existed := err == nil
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("kv set: checking existence: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, metadata, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, metadata = excluded.metadata,
			updated_at = excluded.updated_at, expires_at = excluded.expires_at
	`, key, value, opts.Metadata, now, now, expiresAt)
	if err != nil {
		return false, fmt.Errorf("kv set: %w", err)
	}
	return !existed, nil
}

// KVGet returns the entry for key, or ErrNotFound. Lazily deletes the row
// first if it has expired.
func (s *Shard) KVGet(key string) (KVEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireKV(key)

	var e KVEntry
	var metadata sql.NullString
	var expiresAt sql.NullInt64
	err := s.db.QueryRow(`SELECT key, value, metadata, created_at, updated_at, expires_at FROM kv WHERE key = ?`, key).
		Scan(&e.Key, &e.Value, &metadata, &e.CreatedAt, &e.UpdatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return KVEntry{}, ErrNotFound
	}
	if err != nil {
		return KVEntry{}, fmt.Errorf("kv get: %w", err)
	}
	e.Metadata = metadata.String
	if expiresAt.Valid {
		e.ExpiresAt = &expiresAt.Int64
	}
	return e, nil
}

// KVDelete removes key. Reports whether a row was actually deleted.
func (s *Shard) KVDelete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("kv delete: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// KVListOptions bound a List call.
type KVListOptions struct {
	Prefix string
	Limit  int
}

// KVList returns up to opts.Limit entries (capped at 1000) whose key has
// opts.Prefix, after sweeping expired rows.
func (s *Shard) KVList(opts KVListOptions) ([]KVEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepExpiredKV()

	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.Query(`
		SELECT key, value, metadata, created_at, updated_at, expires_at FROM kv
		WHERE key LIKE ? ESCAPE '\' ORDER BY key ASC LIMIT ?
	`, likePrefix(opts.Prefix), limit)
	if err != nil {
		return nil, fmt.Errorf("kv list: %w", err)
	}
	defer rows.Close()

	var out []KVEntry
	for rows.Next() {
		var e KVEntry
		var metadata sql.NullString
		var expiresAt sql.NullInt64
		if err := rows.Scan(&e.Key, &e.Value, &metadata, &e.CreatedAt, &e.UpdatedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("kv list: scanning row: %w", err)
		}
		e.Metadata = metadata.String
		if expiresAt.Valid {
			e.ExpiresAt = &expiresAt.Int64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Shard) expireKV(key string) {
	_, _ = s.db.Exec(`DELETE FROM kv WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?`, key, time.Now().Unix())
}

func (s *Shard) sweepExpiredKV() {
	_, _ = s.db.Exec(`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, time.Now().Unix())
}

// likePrefix escapes LIKE metacharacters in prefix and appends a wildcard.
func likePrefix(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '%' || c == '_' || c == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, c)
	}
	return string(escaped) + "%"
}
