package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the ResultCache interface.
// Analysis results are stored as JSON keyed by fingerprint; least recently
// used rows are pruned once the table exceeds capacity.
type SQLiteCache struct {
	db          *sql.DB
	capacity    int
	ttl         time.Duration
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite-backed cache
func NewSQLiteCache(dbPath string, capacity int, ttl time.Duration, cleanupFreq time.Duration, logger *zap.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			fingerprint TEXT PRIMARY KEY,
			result TEXT NOT NULL,
			created_at TIMESTAMP,
			expires_at TIMESTAMP,
			last_accessed TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_analysis_expires_at ON analysis_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		capacity:    capacity,
		ttl:         ttl,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache, nil
}

// Get retrieves a cached result by fingerprint
func (c *SQLiteCache) Get(ctx context.Context, fingerprint string) (*core.AnalysisResult, error) {
	var encoded string
	var expiresAt sql.NullString

	err := c.db.QueryRowContext(ctx, `
		SELECT result, expires_at
		FROM analysis_cache
		WHERE fingerprint = ?
	`, fingerprint).Scan(&encoded, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %v", core.ErrCacheUnavailable, err)
	}

	if expiresAt.Valid && expiresAt.String != "" {
		expiry, err := time.Parse(time.RFC3339, expiresAt.String)
		if err == nil && time.Now().After(expiry) {
			return nil, core.ErrCacheMiss
		}
	}

	var result core.AnalysisResult
	if err := json.Unmarshal([]byte(encoded), &result); err != nil {
		return nil, fmt.Errorf("%w: corrupt cache entry: %v", core.ErrCacheUnavailable, err)
	}

	// Touch the row so LRU pruning sees it as fresh
	if _, err := c.db.ExecContext(ctx, `
		UPDATE analysis_cache SET last_accessed = ? WHERE fingerprint = ?
	`, time.Now().Format(time.RFC3339), fingerprint); err != nil {
		c.logger.Warn("Failed to update cache recency", zap.Error(err))
	}

	return &result, nil
}

// Set stores a result, then prunes least recently used rows beyond capacity
func (c *SQLiteCache) Set(ctx context.Context, fingerprint string, result *core.AnalysisResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}

	now := time.Now()
	var expiresAt string
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl).Format(time.RFC3339)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analysis_cache (fingerprint, result, created_at, expires_at, last_accessed)
		VALUES (?, ?, ?, ?, ?)
	`, fingerprint, string(encoded), now.Format(time.RFC3339), expiresAt, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCacheUnavailable, err)
	}

	if c.capacity > 0 {
		if _, err := c.db.ExecContext(ctx, `
			DELETE FROM analysis_cache
			WHERE fingerprint NOT IN (
				SELECT fingerprint FROM analysis_cache
				ORDER BY last_accessed DESC
				LIMIT ?
			)
		`, c.capacity); err != nil {
			c.logger.Warn("Failed to prune cache to capacity", zap.Error(err))
		}
	}

	return nil
}

// Delete removes a cache entry
func (c *SQLiteCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM analysis_cache
		WHERE fingerprint = ?
	`, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM analysis_cache
		WHERE expires_at != '' AND expires_at <= ?
	`, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
