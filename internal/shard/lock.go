package shard

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	lockDefaultTTL = 60 * time.Second
	lockMinTTL     = 10 * time.Second
	lockMaxTTL     = 300 * time.Second
)

// LockResult is the outcome of an acquire attempt.
type LockResult struct {
	Acquired  bool
	Token     string
	ExpiresAt int64
}

// LockStatus describes a lock's current state.
type LockStatus struct {
	Name      string
	Held      bool
	ExpiresAt int64
}

// Lock attempts to acquire name for ttl (clamped to [10s, 300s], defaulting
// to 60s). Expired rows are swept before the attempt so a stale holder
// never blocks a new acquire.
func (s *Shard) Lock(name string, ttl time.Duration) (LockResult, error) {
	ttl = clampTTL(ttl)
	token, err := randomToken(16)
	if err != nil {
		return LockResult{}, fmt.Errorf("lock: generating token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	s.sweepExpiredLocks(now)

	var existing int
	err = s.db.QueryRow(`SELECT 1 FROM locks WHERE name = ?`, name).Scan(&existing)
	if err == nil {
		return LockResult{Acquired: false}, nil
	}
	if err != sql.ErrNoRows {
		return LockResult{}, fmt.Errorf("lock: checking existing: %w", err)
	}

	expiresAt := now + int64(ttl.Seconds())
	if _, err := s.db.Exec(`INSERT INTO locks (name, token, expires_at) VALUES (?, ?, ?)`, name, token, expiresAt); err != nil {
		return LockResult{}, fmt.Errorf("lock: inserting: %w", err)
	}
	return LockResult{Acquired: true, Token: token, ExpiresAt: expiresAt}, nil
}

// Unlock releases name iff token matches the current holder.
func (s *Shard) Unlock(name, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM locks WHERE name = ? AND token = ?`, name, token)
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrTokenMismatch
	}
	return nil
}

// Extend renews name's ttl iff token matches and the lock has not expired.
func (s *Shard) Extend(name, token string, ttl time.Duration) (LockResult, error) {
	ttl = clampTTL(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	s.sweepExpiredLocks(now)

	var current string
	err := s.db.QueryRow(`SELECT token FROM locks WHERE name = ?`, name).Scan(&current)
	if err == sql.ErrNoRows {
		return LockResult{}, ErrNotFound
	}
	if err != nil {
		return LockResult{}, fmt.Errorf("extend: %w", err)
	}
	if current != token {
		return LockResult{}, ErrTokenMismatch
	}

	expiresAt := now + int64(ttl.Seconds())
	if _, err := s.db.Exec(`UPDATE locks SET expires_at = ? WHERE name = ?`, expiresAt, name); err != nil {
		return LockResult{}, fmt.Errorf("extend: %w", err)
	}
	return LockResult{Acquired: true, Token: token, ExpiresAt: expiresAt}, nil
}

// Status reports whether name is currently held.
func (s *Shard) Status(name string) (LockStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	s.sweepExpiredLocks(now)

	var expiresAt int64
	err := s.db.QueryRow(`SELECT expires_at FROM locks WHERE name = ?`, name).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return LockStatus{Name: name, Held: false}, nil
	}
	if err != nil {
		return LockStatus{}, fmt.Errorf("lock status: %w", err)
	}
	return LockStatus{Name: name, Held: true, ExpiresAt: expiresAt}, nil
}

// ListLocks returns every currently-held lock.
func (s *Shard) ListLocks() ([]LockStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	s.sweepExpiredLocks(now)

	rows, err := s.db.Query(`SELECT name, expires_at FROM locks ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	defer rows.Close()

	var out []LockStatus
	for rows.Next() {
		var st LockStatus
		if err := rows.Scan(&st.Name, &st.ExpiresAt); err != nil {
			return nil, fmt.Errorf("list locks: scanning row: %w", err)
		}
		st.Held = true
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Shard) sweepExpiredLocks(now int64) {
	_, _ = s.db.Exec(`DELETE FROM locks WHERE expires_at <= ?`, now)
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return lockDefaultTTL
	}
	if ttl < lockMinTTL {
		return lockMinTTL
	}
	if ttl > lockMaxTTL {
		return lockMaxTTL
	}
	return ttl
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
