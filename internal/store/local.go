// Package store implements SQLite persistence for the ardi pipeline:
// generated knowledge, interaction patterns, feedback history, and
// per-category performance. Records are stored as JSON blobs keyed by id,
// with the statistics the learning system updates lifted into columns.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ardi/internal/logging"
	"ardi/internal/types"
)

// LocalStore is the persistence collaborator backing the pipeline's four
// durable maps. All failures are reported to callers, who log and degrade;
// the store never aborts an answer.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore initializes the SQLite database at the given path.
func NewLocalStore(path string) (*LocalStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("LocalStore initialized at %s", path)
	return store, nil
}

// initialize creates the required tables.
func (s *LocalStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generated_knowledge (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		usage_count INTEGER DEFAULT 0,
		success_rate REAL DEFAULT 0.7,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS interaction_patterns (
		pattern TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		frequency INTEGER DEFAULT 0,
		success_rate REAL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		process_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS category_performance (
		category TEXT PRIMARY KEY,
		score REAL NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_process ON feedback(process_id);
	CREATE INDEX IF NOT EXISTS idx_generated_usage ON generated_knowledge(usage_count);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logging.Store("Closing LocalStore")
	return s.db.Close()
}

// =============================================================================
// GENERATED KNOWLEDGE
// =============================================================================

// SaveGeneratedKnowledge upserts a generated knowledge entry.
func (s *LocalStore) SaveGeneratedKnowledge(gk types.GeneratedKnowledge) error {
	timer := logging.StartTimer(logging.CategoryStore, "SaveGeneratedKnowledge")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(gk)
	if err != nil {
		return fmt.Errorf("failed to marshal generated knowledge: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO generated_knowledge (id, data, usage_count, success_rate, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			usage_count = excluded.usage_count,
			success_rate = excluded.success_rate
	`, gk.ID, string(data), gk.UsageCount, gk.SuccessRate, gk.CreatedAt.Format(time.RFC3339))
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save generated knowledge %s: %v", gk.ID, err)
		return err
	}

	logging.StoreDebug("Generated knowledge saved: id=%s", gk.ID)
	return nil
}

// LoadGeneratedKnowledge retrieves all generated knowledge entries.
func (s *LocalStore) LoadGeneratedKnowledge() ([]types.GeneratedKnowledge, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadGeneratedKnowledge")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT data, usage_count, success_rate FROM generated_knowledge ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query generated knowledge: %w", err)
	}
	defer rows.Close()

	var entries []types.GeneratedKnowledge
	for rows.Next() {
		var data string
		var usageCount int
		var successRate float64
		if err := rows.Scan(&data, &usageCount, &successRate); err != nil {
			continue
		}
		var gk types.GeneratedKnowledge
		if err := json.Unmarshal([]byte(data), &gk); err != nil {
			continue
		}
		// Columns are authoritative for the mutable statistics.
		gk.UsageCount = usageCount
		gk.SuccessRate = successRate
		entries = append(entries, gk)
	}

	logging.StoreDebug("Loaded %d generated knowledge entries", len(entries))
	return entries, nil
}

// UpdateGeneratedStats updates the mutable statistics of a generated entry.
func (s *LocalStore) UpdateGeneratedStats(id string, usageCount int, successRate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE generated_knowledge SET usage_count = ?, success_rate = ? WHERE id = ?
	`, usageCount, successRate, id)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to update stats for %s: %v", id, err)
		return err
	}
	return nil
}

// DeleteGeneratedKnowledge removes a generated entry (eviction).
func (s *LocalStore) DeleteGeneratedKnowledge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM generated_knowledge WHERE id = ?`, id)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to delete generated knowledge %s: %v", id, err)
		return err
	}
	logging.StoreDebug("Generated knowledge deleted: id=%s", id)
	return nil
}

// =============================================================================
// INTERACTION PATTERNS
// =============================================================================

// SavePattern upserts an interaction pattern.
func (s *LocalStore) SavePattern(p types.InteractionPattern) error {
	timer := logging.StartTimer(logging.CategoryStore, "SavePattern")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO interaction_patterns (pattern, data, frequency, success_rate, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pattern) DO UPDATE SET
			data = excluded.data,
			frequency = excluded.frequency,
			success_rate = excluded.success_rate,
			updated_at = CURRENT_TIMESTAMP
	`, p.Pattern, string(data), p.Frequency, p.SuccessRate)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save pattern %s: %v", p.Pattern, err)
		return err
	}

	logging.StoreDebug("Pattern saved: %s freq=%d", p.Pattern, p.Frequency)
	return nil
}

// LoadPatterns retrieves all interaction patterns keyed by pattern string.
func (s *LocalStore) LoadPatterns() (map[string]*types.InteractionPattern, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadPatterns")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT data FROM interaction_patterns`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	patterns := make(map[string]*types.InteractionPattern)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		var p types.InteractionPattern
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			continue
		}
		patterns[p.Pattern] = &p
	}

	logging.StoreDebug("Loaded %d interaction patterns", len(patterns))
	return patterns, nil
}

// =============================================================================
// FEEDBACK
// =============================================================================

// SaveFeedback stores one feedback record permanently.
func (s *LocalStore) SaveFeedback(fb types.UserFeedback) error {
	timer := logging.StartTimer(logging.CategoryStore, "SaveFeedback")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO feedback (id, process_id, data, created_at) VALUES (?, ?, ?, ?)
	`, fb.ID, fb.ProcessID, string(data), fb.Timestamp.Format(time.RFC3339))
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save feedback %s: %v", fb.ID, err)
		return err
	}

	logging.StoreDebug("Feedback saved: id=%s rating=%s", fb.ID, fb.Rating)
	return nil
}

// LoadFeedback retrieves the full feedback history, oldest first.
func (s *LocalStore) LoadFeedback() ([]types.UserFeedback, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadFeedback")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT data FROM feedback ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var history []types.UserFeedback
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		var fb types.UserFeedback
		if err := json.Unmarshal([]byte(data), &fb); err != nil {
			continue
		}
		history = append(history, fb)
	}

	logging.StoreDebug("Loaded %d feedback records", len(history))
	return history, nil
}

// =============================================================================
// CATEGORY PERFORMANCE
// =============================================================================

// SaveCategoryPerformance upserts the running score for a category.
func (s *LocalStore) SaveCategoryPerformance(category string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO category_performance (category, score, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(category) DO UPDATE SET score = excluded.score, updated_at = CURRENT_TIMESTAMP
	`, category, score)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save category performance %s: %v", category, err)
		return err
	}
	return nil
}

// LoadCategoryPerformance retrieves the per-category performance map.
func (s *LocalStore) LoadCategoryPerformance() (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT category, score FROM category_performance`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category performance: %w", err)
	}
	defer rows.Close()

	perf := make(map[string]float64)
	for rows.Next() {
		var category string
		var score float64
		if err := rows.Scan(&category, &score); err != nil {
			continue
		}
		perf[category] = score
	}
	return perf, nil
}

// Stats returns row counts for the stats surface.
func (s *LocalStore) Stats() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"generated_knowledge", "interaction_patterns", "feedback", "category_performance"} {
		var count int64
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}
