package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sunwell/internal/types"
)

// Index is the optional, rebuildable sqlite-backed accelerator for the
// Learning Store. Every sunwell component must keep working
// with Index nil — it is never authoritative and never required.
//
// The pure-Go modernc.org/sqlite driver is used instead of a cgo sqlite
// driver so sunwell stays cross-compilable without a C toolchain (see
// DESIGN.md); the driver name it registers is "sqlite", not "sqlite3".
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if absent) the sqlite database at path and
// ensures its schema exists.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("memory: index mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open index: %w", err)
	}
	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS learnings (
	id         TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	fact       TEXT NOT NULL,
	confidence REAL NOT NULL,
	goal_hash  TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_learnings_category ON learnings(category);
CREATE TABLE IF NOT EXISTS gate_results (
	gate_id         TEXT PRIMARY KEY,
	passed          INTEGER NOT NULL,
	checkpoint_hash TEXT NOT NULL,
	recorded_at     TEXT NOT NULL
);
`
	_, err := idx.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("memory: index migrate: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error { return idx.db.Close() }

// IndexLearning upserts one Learning row.
func (idx *Index) IndexLearning(l types.Learning) error {
	_, err := idx.db.Exec(
		`INSERT INTO learnings (id, category, fact, confidence, goal_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET category=excluded.category, fact=excluded.fact,
		   confidence=excluded.confidence, goal_hash=excluded.goal_hash, created_at=excluded.created_at`,
		l.ID, l.Category, l.Fact, l.Confidence, l.GoalHash, l.CreatedAt.Format(rfc3339),
	)
	if err != nil {
		return fmt.Errorf("memory: index learning: %w", err)
	}
	return nil
}

// IndexGateResult upserts one GateResult row, used to answer "has this gate
// ever passed" without replaying the checkpoint files.
func (idx *Index) IndexGateResult(r types.GateResult) error {
	passed := 0
	if r.Passed {
		passed = 1
	}
	_, err := idx.db.Exec(
		`INSERT INTO gate_results (gate_id, passed, checkpoint_hash, recorded_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(gate_id) DO UPDATE SET passed=excluded.passed, checkpoint_hash=excluded.checkpoint_hash, recorded_at=excluded.recorded_at`,
		r.GateID, passed, r.CheckpointHash,
	)
	if err != nil {
		return fmt.Errorf("memory: index gate result: %w", err)
	}
	return nil
}

// QueryByCategory returns learnings in category ordered by recency, newest
// first. It is a fast path over LearningStore.Query for the common
// single-category lookup; ranking queries still go through the in-memory
// TF-IDF scorer since relevance ranking isn't worth an FTS dependency here.
func (idx *Index) QueryByCategory(category string, limit int) ([]types.Learning, error) {
	rows, err := idx.db.Query(
		`SELECT id, category, fact, confidence, goal_hash, created_at FROM learnings
		 WHERE category = ? ORDER BY created_at DESC LIMIT ?`,
		category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: index query: %w", err)
	}
	defer rows.Close()

	var out []types.Learning
	for rows.Next() {
		var (
			l        types.Learning
			goalHash sql.NullString
			created  string
		)
		if err := rows.Scan(&l.ID, &l.Category, &l.Fact, &l.Confidence, &goalHash, &created); err != nil {
			return nil, fmt.Errorf("memory: index scan: %w", err)
		}
		l.GoalHash = goalHash.String
		if t, err := time.Parse(rfc3339, created); err == nil {
			l.CreatedAt = t
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Rebuild drops and repopulates the index from store, restoring the
// invariant that it is fully derivable from the JSONL source of truth.
func (idx *Index) Rebuild(store *LearningStore) error {
	if _, err := idx.db.Exec(`DELETE FROM learnings`); err != nil {
		return fmt.Errorf("memory: index rebuild clear: %w", err)
	}
	for _, l := range store.GetByIDs(allIDs(store)) {
		if err := idx.IndexLearning(l); err != nil {
			return err
		}
	}
	return nil
}

func allIDs(store *LearningStore) []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	ids := make([]string, 0, len(store.learnings))
	for _, l := range store.learnings {
		ids = append(ids, l.ID)
	}
	return ids
}

const rfc3339 = time.RFC3339
