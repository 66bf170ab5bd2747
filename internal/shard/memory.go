package shard

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// MemoryItem is one vector-memory entry.
type MemoryItem struct {
	ID        string
	Text      string
	Embedding []float64
	Metadata  string
	CreatedAt int64
	UpdatedAt int64
}

// MemorySearchResult pairs an item with its similarity score.
type MemorySearchResult struct {
	Item  MemoryItem
	Score float64
}

// MemoryStore upserts items by id, preserving each item's original
// createdAt across an update and stamping updatedAt to now. Rejects any
// item whose embedding is empty.
func (s *Shard) MemoryStore(items []MemoryItem) error {
	for _, item := range items {
		if len(item.Embedding) == 0 {
			return fmt.Errorf("%w: memory item %q has an empty embedding", ErrInvalidInput, item.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	for _, item := range items {
		embedding, err := json.Marshal(item.Embedding)
		if err != nil {
			return fmt.Errorf("memory store: marshalling embedding: %w", err)
		}

		var createdAt int64
		err = s.db.QueryRow(`SELECT created_at FROM vector_memory WHERE id = ?`, item.ID).Scan(&createdAt)
		if err == sql.ErrNoRows {
			createdAt = now
		} else if err != nil {
			return fmt.Errorf("memory store: %w", err)
		}

		_, err = s.db.Exec(`
			INSERT INTO vector_memory (id, text, embedding, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET text = excluded.text, embedding = excluded.embedding,
				metadata = excluded.metadata, updated_at = excluded.updated_at
		`, item.ID, item.Text, string(embedding), item.Metadata, createdAt, now)
		if err != nil {
			return fmt.Errorf("memory store: %w", err)
		}
	}
	return nil
}

// MemorySearchOptions bound a Search call.
type MemorySearchOptions struct {
	Limit     int
	Threshold float64
}

// MemorySearch scores every stored item by cosine similarity to query,
// drops scores below opts.Threshold, and returns the top opts.Limit
// results descending by score.
func (s *Shard) MemorySearch(query []float64, opts MemorySearchOptions) ([]MemorySearchResult, error) {
	limit := clampCount(opts.Limit, 100)

	s.mu.Lock()
	items, err := s.allMemoryItems()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	results := make([]MemorySearchResult, 0, len(items))
	for _, item := range items {
		score := cosineSimilarity(query, item.Embedding)
		if score < opts.Threshold {
			continue
		}
		results = append(results, MemorySearchResult{Item: item, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// MemoryDelete removes the items in ids that existed, reporting the ids
// actually deleted.
func (s *Shard) MemoryDelete(ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []string
	stmt, err := s.db.Prepare(`DELETE FROM vector_memory WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("memory delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		res, err := stmt.Exec(id)
		if err != nil {
			return nil, fmt.Errorf("memory delete: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// MemoryList returns up to limit items (capped at 1000) starting at offset.
func (s *Shard) MemoryList(limit, offset int) ([]MemoryItem, error) {
	limit = clampCount(limit, 1000)
	if offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, text, embedding, metadata, created_at, updated_at FROM vector_memory ORDER BY created_at ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("memory list: %w", err)
	}
	defer rows.Close()

	return scanMemoryRows(rows)
}

// MemoryClear deletes every vector-memory entry in the shard.
func (s *Shard) MemoryClear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM vector_memory`)
	if err != nil {
		return fmt.Errorf("memory clear: %w", err)
	}
	return nil
}

func (s *Shard) allMemoryItems() ([]MemoryItem, error) {
	rows, err := s.db.Query(`SELECT id, text, embedding, metadata, created_at, updated_at FROM vector_memory`)
	if err != nil {
		return nil, fmt.Errorf("memory scan: %w", err)
	}
	defer rows.Close()
	return scanMemoryRows(rows)
}

func scanMemoryRows(rows *sql.Rows) ([]MemoryItem, error) {
	var out []MemoryItem
	for rows.Next() {
		var item MemoryItem
		var embedding string
		var metadata sql.NullString
		if err := rows.Scan(&item.ID, &item.Text, &embedding, &metadata, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("memory scan: scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &item.Embedding); err != nil {
			return nil, fmt.Errorf("memory scan: decoding embedding: %w", err)
		}
		item.Metadata = metadata.String
		out = append(out, item)
	}
	return out, rows.Err()
}

// cosineSimilarity returns 0 if the vectors differ in length or either has
// zero magnitude.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
