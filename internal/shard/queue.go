package shard

import (
	"fmt"
	"time"
)

const queueVisibilityTimeout = 30 * time.Second

// QueueItem is one entry in a named queue.
type QueueItem struct {
	ID       int64
	Payload  string
	Priority int
	Status   string
	Attempt  int
}

// QueuePushOptions are the optional fields of a Push call.
type QueuePushOptions struct {
	Priority int
}

// Push enqueues items onto queue, all at the given priority.
func (s *Shard) Push(queue string, items []string, opts QueuePushOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	stmt, err := s.db.Prepare(`INSERT INTO queue_items (queue, payload, priority, status, created_at) VALUES (?, ?, ?, 'pending', ?)`)
	if err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.Exec(queue, item, opts.Priority, now); err != nil {
			return fmt.Errorf("queue push: %w", err)
		}
	}
	return nil
}

// Pop atomically selects up to count pending items ordered by
// (priority DESC, created ASC), marks them processing with a fresh
// visibility window, and returns them.
func (s *Shard) Pop(queue string, count int) ([]QueueItem, error) {
	count = clampCount(count, 100)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	s.recoverVisibility(queue, now)

	rows, err := s.db.Query(`
		SELECT id, payload, priority, attempt FROM queue_items
		WHERE queue = ? AND status = 'pending'
		ORDER BY priority DESC, created_at ASC LIMIT ?
	`, queue, count)
	if err != nil {
		return nil, fmt.Errorf("queue pop: %w", err)
	}

	var ids []int64
	var items []QueueItem
	for rows.Next() {
		var it QueueItem
		if err := rows.Scan(&it.ID, &it.Payload, &it.Priority, &it.Attempt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("queue pop: scanning row: %w", err)
		}
		it.Status = "processing"
		items = append(items, it)
		ids = append(ids, it.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("queue pop: %w", err)
	}
	rows.Close()

	visibleAt := now + int64(queueVisibilityTimeout.Seconds())
	stmt, err := s.db.Prepare(`UPDATE queue_items SET status = 'processing', visible_at = ? WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("queue pop: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.Exec(visibleAt, id); err != nil {
			return nil, fmt.Errorf("queue pop: %w", err)
		}
	}
	return items, nil
}

// Peek returns up to count pending items in pop order, without consuming them.
func (s *Shard) Peek(queue string, count int) ([]QueueItem, error) {
	count = clampCount(count, 100)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recoverVisibility(queue, time.Now().Unix())

	rows, err := s.db.Query(`
		SELECT id, payload, priority, status, attempt FROM queue_items
		WHERE queue = ? AND status = 'pending'
		ORDER BY priority DESC, created_at ASC LIMIT ?
	`, queue, count)
	if err != nil {
		return nil, fmt.Errorf("queue peek: %w", err)
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var it QueueItem
		if err := rows.Scan(&it.ID, &it.Payload, &it.Priority, &it.Status, &it.Attempt); err != nil {
			return nil, fmt.Errorf("queue peek: scanning row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// QueueStatus is a count of items by status.
type QueueStatus struct {
	Pending    int
	Processing int
	Done       int
}

// Status summarizes queue by status after running the visibility hygiene step.
func (s *Shard) QueueStatus(queue string) (QueueStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recoverVisibility(queue, time.Now().Unix())

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM queue_items WHERE queue = ? GROUP BY status`, queue)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("queue status: %w", err)
	}
	defer rows.Close()

	var st QueueStatus
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return QueueStatus{}, fmt.Errorf("queue status: scanning row: %w", err)
		}
		switch status {
		case "pending":
			st.Pending = n
		case "processing":
			st.Processing = n
		default:
			st.Done += n
		}
	}
	return st, rows.Err()
}

// Clear deletes items from queue, optionally filtered by status.
func (s *Shard) Clear(queue, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res = func() (int64, error) {
		if status == "" {
			r, err := s.db.Exec(`DELETE FROM queue_items WHERE queue = ?`, queue)
			if err != nil {
				return 0, err
			}
			return r.RowsAffected()
		}
		r, err := s.db.Exec(`DELETE FROM queue_items WHERE queue = ? AND status = ?`, queue, status)
		if err != nil {
			return 0, err
		}
		return r.RowsAffected()
	}
	n, err := res()
	if err != nil {
		return 0, fmt.Errorf("queue clear: %w", err)
	}
	return n, nil
}

// recoverVisibility moves processing items whose visibility window elapsed
// back to pending, incrementing their attempt count.
func (s *Shard) recoverVisibility(queue string, now int64) {
	_, _ = s.db.Exec(`
		UPDATE queue_items SET status = 'pending', visible_at = NULL, attempt = attempt + 1
		WHERE queue = ? AND status = 'processing' AND visible_at IS NOT NULL AND visible_at <= ?
	`, queue, now)
}

func clampCount(count, max int) int {
	if count <= 0 || count > max {
		return max
	}
	return count
}
