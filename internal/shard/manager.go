// Package shard implements the per-payer storage actor: one exclusive
// modernc.org/sqlite database per payer address, holding the KV, Paste,
// SQL sandbox, Lock, Queue, Vector Memory, and Content Scan subsystems.
//
// Adapted from the teacher gateway's single-purpose adapters
// (kshinn-umbra-gateway/gateway/proxy/rpc.go wraps one external RPC client
// behind a small typed surface); here the same "thin typed wrapper, one
// mutex, no surprises" shape guards a whole embedded SQL engine instead of
// an HTTP client.
package shard

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Manager owns the sync.Map of payer address to *Shard and the data
// directory shard database files live under.
type Manager struct {
	dataDir string
	logger  *slog.Logger

	shards sync.Map // string(payer) -> *Shard
	initMu sync.Mutex
}

// NewManager builds a Manager rooted at dataDir. dataDir/shards is created
// lazily on first shard open.
func NewManager(dataDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dataDir: dataDir, logger: logger}
}

// Get returns the shard for payer, opening and initializing it on first
// use. Concurrent Get calls for the same payer never observe a
// partially-initialized schema: the exclusive initMu guard covers the
// open-and-migrate sequence, and the map is checked again under that guard
// so only the first caller performs it.
func (m *Manager) Get(payer string) (*Shard, error) {
	if existing, ok := m.shards.Load(payer); ok {
		return existing.(*Shard), nil
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()

	if existing, ok := m.shards.Load(payer); ok {
		return existing.(*Shard), nil
	}

	sh, err := m.open(payer)
	if err != nil {
		return nil, err
	}
	m.shards.Store(payer, sh)
	return sh, nil
}

func (m *Manager) open(payer string) (*Shard, error) {
	dir := filepath.Join(m.dataDir, "shards")
	path := filepath.Join(dir, shardFileName(payer))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating shard dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening shard db for %s: %w", payer, err)
	}
	db.SetMaxOpenConns(1) // one exclusive connection per shard, per spec.

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating shard db for %s: %w", payer, err)
	}

	return &Shard{
		payer:  payer,
		db:     db,
		logger: m.logger.With("payer", payer),
	}, nil
}

// shardFileName hashes the payer address so directory listings never leak
// addresses verbatim as filenames.
func shardFileName(payer string) string {
	sum := sha256.Sum256([]byte(payer))
	return hex.EncodeToString(sum[:])[:16] + ".db"
}

// Shard is the single exclusive actor for one payer. Every exported method
// takes the shard's mutex; handlers must not hold a shard method call
// across an external network call.
type Shard struct {
	payer  string
	db     *sql.DB
	logger *slog.Logger
	mu     sync.Mutex
}

// Payer returns the address this shard belongs to.
func (s *Shard) Payer() string { return s.payer }

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	metadata TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER
);
CREATE TABLE IF NOT EXISTS pastes (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	title TEXT,
	language TEXT,
	created_at INTEGER NOT NULL,
	expires_at INTEGER
);
CREATE TABLE IF NOT EXISTS locks (
	name TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS queue_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	queue TEXT NOT NULL,
	payload TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	attempt INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	visible_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_queue_items_dispatch ON queue_items(queue, status, priority DESC, created_at ASC);
CREATE TABLE IF NOT EXISTS vector_memory (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	metadata TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS content_scans (
	id TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	safe INTEGER NOT NULL,
	confidence REAL NOT NULL,
	reason TEXT,
	scanned_at INTEGER NOT NULL
);
`

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	_, err := db.Exec(usageSchema)
	return err
}
