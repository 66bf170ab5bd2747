package shard

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"
)

const pasteIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Paste is an immutable blob of content.
type Paste struct {
	ID        string
	Content   string
	Title     string
	Language  string
	CreatedAt int64
	ExpiresAt *int64
}

// PasteCreateOptions are the optional fields of a Create call.
type PasteCreateOptions struct {
	Title    string
	Language string
	TTL      *time.Duration
}

// PasteCreate stores content under a new random 8-character id.
func (s *Shard) PasteCreate(content string, opts PasteCreateOptions) (string, error) {
	id, err := randomPasteID()
	if err != nil {
		return "", fmt.Errorf("paste create: generating id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	var expiresAt any
	if opts.TTL != nil {
		expiresAt = now + int64(opts.TTL.Seconds())
	}

	_, err = s.db.Exec(`
		INSERT INTO pastes (id, content, title, language, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, content, opts.Title, opts.Language, now, expiresAt)
	if err != nil {
		return "", fmt.Errorf("paste create: %w", err)
	}
	return id, nil
}

// PasteGet returns the paste for id, or ErrNotFound if absent or expired.
func (s *Shard) PasteGet(id string) (Paste, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.db.Exec(`DELETE FROM pastes WHERE id = ? AND expires_at IS NOT NULL AND expires_at <= ?`, id, time.Now().Unix())

	var p Paste
	var title, language sql.NullString
	var expiresAt sql.NullInt64
	err := s.db.QueryRow(`SELECT id, content, title, language, created_at, expires_at FROM pastes WHERE id = ?`, id).
		Scan(&p.ID, &p.Content, &title, &language, &p.CreatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return Paste{}, ErrNotFound
	}
	if err != nil {
		return Paste{}, fmt.Errorf("paste get: %w", err)
	}
	p.Title = title.String
	p.Language = language.String
	if expiresAt.Valid {
		p.ExpiresAt = &expiresAt.Int64
	}
	return p, nil
}

// PasteDelete removes id. Reports whether a row was actually deleted.
func (s *Shard) PasteDelete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM pastes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("paste delete: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func randomPasteID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	id := make([]byte, 8)
	for i, b := range buf {
		id[i] = pasteIDAlphabet[int(b)%len(pasteIDAlphabet)]
	}
	return string(id), nil
}
